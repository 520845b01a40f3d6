// Package mizan provides a high-level façade over the dialogue runner, the
// model registry and the result store. Most applications interact with this
// package by:
//  1. Creating a Mizan via New() (optionally overriding settings, scorer or store)
//  2. Evaluating task definitions from maps (Evaluate) or files (EvaluateFile)
//  3. Reading persisted results back from Store()
//
// The façade delegates orchestration to runner.Runner and model acquisition
// to model.Registry. All defaults are safe for local development: the
// simulated backend needs no credentials and results are kept in memory.
package mizan

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/mizan/config"
	"github.com/hupe1980/mizan/dialogue"
	"github.com/hupe1980/mizan/evaluation"
	"github.com/hupe1980/mizan/logging"
	"github.com/hupe1980/mizan/model"
	"github.com/hupe1980/mizan/model/anthropic"
	"github.com/hupe1980/mizan/model/openai"
	"github.com/hupe1980/mizan/model/simulated"
	"github.com/hupe1980/mizan/runner"
	"github.com/hupe1980/mizan/store"
	"github.com/hupe1980/mizan/store/sqlite"
)

// Version is the released version of the harness.
const Version = "0.1.0-alpha"

// Options configures the Mizan instance.
type Options struct {
	// Settings holds harness configuration (backend, limits, credentials).
	Settings config.Settings
	// Provider overrides the registry built from Settings.
	Provider model.Provider
	// Store overrides the store selected by Settings.Store.
	Store store.Store
	// Scorer is handed every turn that carries a reference.
	Scorer evaluation.Scorer
	// OnTransition observes run state changes.
	OnTransition func(runner.Transition)
	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Mizan is the high-level façade aggregating runner, provider and store.
type Mizan struct {
	opts     Options
	provider model.Provider
	runner   *runner.Runner
	store    store.Store
	closer   io.Closer
}

// New creates a Mizan instance. Unset dependencies are derived from
// Options.Settings, which default to config.DefaultSettings().
func New(optFns ...func(o *Options)) (*Mizan, error) {
	opts := Options{
		Settings: config.DefaultSettings(),
		Scorer:   evaluation.NopScorer{},
		Logger:   logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if err := opts.Settings.Validate(); err != nil {
		return nil, err
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	m := &Mizan{opts: opts, provider: opts.Provider, store: opts.Store}
	if m.provider == nil {
		m.provider = NewRegistry(opts.Settings)
	}
	if m.store == nil {
		s, closer, err := OpenStore(opts.Settings.Store)
		if err != nil {
			return nil, err
		}
		m.store, m.closer = s, closer
	}

	m.runner = runner.New(func(o *runner.Options) {
		o.Logger = opts.Logger
		o.Scorer = opts.Scorer
		o.TurnTimeout = opts.Settings.TurnTimeout
		o.MaxGenerations = opts.Settings.MaxGenerations
		o.Concurrency = opts.Settings.Concurrency
		o.DefaultLanguage = opts.Settings.DefaultLanguage
		o.OnTransition = opts.OnTransition
	})

	return m, nil
}

// NewRegistry builds the model registry for s: the echo, simulated, openai
// and anthropic backends, with s.Backend serving unprefixed model names.
func NewRegistry(s config.Settings) *model.Registry {
	reg := model.NewRegistry(func(o *model.RegistryOptions) {
		o.DefaultBackend = s.Backend
		o.Generator.Instructions = s.SystemPrompt
	})

	reg.Register("echo", simulated.NewEchoFactory())
	reg.Register("simulated", simulated.NewFactory(func(o *simulated.Options) {
		o.Language = s.DefaultLanguage
	}))
	reg.Register("openai", openai.NewFactory(func(o *openai.Options) {
		o.APIKey = s.OpenAI.APIKey
		o.BaseURL = s.OpenAI.BaseURL
		o.Temperature = s.Temperature
		if s.MaxTokens > 0 {
			o.MaxCompletionTokens = s.MaxTokens
		}
	}))
	reg.Register("anthropic", anthropic.NewFactory(func(o *anthropic.Options) {
		o.APIKey = s.Anthropic.APIKey
		o.BaseURL = s.Anthropic.BaseURL
		o.Temperature = s.Temperature
		if s.MaxTokens > 0 {
			o.MaxTokens = s.MaxTokens
		}
	}))

	return reg
}

// OpenStore opens the store selected by s. The returned closer is nil for
// stores without resources.
func OpenStore(s config.StoreSettings) (store.Store, io.Closer, error) {
	switch s.Driver {
	case "", "memory":
		return store.NewInMemoryStore(), nil, nil
	case "sqlite":
		st, err := sqlite.New(s.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store %s: %w", s.DSN, err)
		}
		return st, st, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", s.Driver)
	}
}

// Evaluate validates raw, runs it and persists the result. The result is
// persisted and returned on failure too.
func (m *Mizan) Evaluate(ctx context.Context, raw map[string]any) (*runner.Result, error) {
	res, err := m.runner.Evaluate(ctx, raw, m.provider)
	return res, m.save(ctx, res, err)
}

// EvaluateFile loads a task definition from path and evaluates it. Files
// that cannot be read or decoded return a *config.ConfigurationError and no result.
func (m *Mizan) EvaluateFile(ctx context.Context, path string) (*runner.Result, error) {
	raw, err := config.ReadRaw(path)
	if err != nil {
		return nil, err
	}
	return m.Evaluate(ctx, raw)
}

// EvaluateAll runs validated tasks concurrently and persists every result.
func (m *Mizan) EvaluateAll(ctx context.Context, tasks []*dialogue.Task) ([]*runner.Result, error) {
	results, err := m.runner.EvaluateAll(ctx, tasks, m.provider)
	for _, res := range results {
		err = m.save(ctx, res, err)
	}
	return results, err
}

// Cancel cancels an active run by ID.
func (m *Mizan) Cancel(runID string) error { return m.runner.Cancel(runID) }

// Store returns the result store.
func (m *Mizan) Store() store.Store { return m.store }

// Close releases the store opened by New.
func (m *Mizan) Close() error {
	if m.closer == nil {
		return nil
	}
	return m.closer.Close()
}

func (m *Mizan) save(ctx context.Context, res *runner.Result, runErr error) error {
	if res == nil {
		return runErr
	}
	if err := m.store.Save(context.WithoutCancel(ctx), res); err != nil {
		m.opts.Logger.Error("Saving run failed", "run_id", res.RunID, "error", err.Error())
		return errors.Join(runErr, fmt.Errorf("save run %s: %w", res.RunID, err))
	}
	return runErr
}
