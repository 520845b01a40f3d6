// Package simulated provides deterministic backends that need no network
// access: Echo repeats the prompt and Simulated produces a turn-numbered
// placeholder in the dialogue language. Both are used for dry runs and tests.
package simulated

import (
	"context"
	"fmt"

	"github.com/hupe1980/mizan/core"
	"github.com/hupe1980/mizan/model"
)

// EchoPrefix is prepended to the prompt by the Echo backend.
const EchoPrefix = "echo:"

// Compile-time assertions.
var (
	_ model.Model = (*Echo)(nil)
	_ model.Model = (*Simulated)(nil)
)

// Echo answers every prompt with EchoPrefix + prompt.
type Echo struct {
	name string
}

// NewEcho creates an Echo backend.
func NewEcho() *Echo { return &Echo{name: "echo"} }

// Generate implements model.Model.
func (e *Echo) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	return respond(ctx, req, func(prompt string, _ int) string {
		return EchoPrefix + prompt
	})
}

// Info implements model.Model.
func (e *Echo) Info() model.Info { return model.Info{Name: e.name, Provider: "simulated"} }

// Options configure the Simulated backend.
type Options struct {
	// Name is reported by Info.
	Name string
	// Language is used when the request context carries none.
	Language string
}

// Simulated answers turn N with "Simulated LLM Response for Turn N in <language>.".
type Simulated struct {
	opts Options
}

// New creates a Simulated backend.
func New(optFns ...func(o *Options)) *Simulated {
	opts := Options{Name: "simulated", Language: "Arabic"}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Simulated{opts: opts}
}

// Generate implements model.Model. The turn number is the count of user
// contents in the request, i.e. the history length plus one.
func (s *Simulated) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	language := s.opts.Language
	if l, ok := core.LanguageFromContext(ctx); ok {
		language = l
	}
	return respond(ctx, req, func(_ string, turn int) string {
		return fmt.Sprintf("Simulated LLM Response for Turn %d in %s.", turn, language)
	})
}

// Info implements model.Model.
func (s *Simulated) Info() model.Info {
	return model.Info{Name: s.opts.Name, Provider: "simulated"}
}

// NewEchoFactory returns a model.Factory producing Echo backends.
func NewEchoFactory() model.Factory {
	return func(_ context.Context, _ string) (model.Model, error) {
		return NewEcho(), nil
	}
}

// NewFactory returns a model.Factory producing Simulated backends. A
// non-empty model id becomes the reported name.
func NewFactory(optFns ...func(o *Options)) model.Factory {
	return func(_ context.Context, modelID string) (model.Model, error) {
		return New(append(optFns, func(o *Options) {
			if modelID != "" {
				o.Name = modelID
			}
		})...), nil
	}
}

func respond(ctx context.Context, req model.Request, reply func(prompt string, turn int) string) (<-chan model.Response, <-chan error) {
	respCh := make(chan model.Response, 1)
	errCh := make(chan error, 1)
	defer close(respCh)
	defer close(errCh)

	if err := ctx.Err(); err != nil {
		errCh <- err
		return respCh, errCh
	}

	var (
		prompt string
		turn   int
	)
	for _, c := range req.Contents {
		if c.Role == core.RoleUser {
			turn++
			prompt = c.Text()
		}
	}
	if turn == 0 {
		errCh <- fmt.Errorf("no user prompt provided")
		return respCh, errCh
	}

	respCh <- model.Response{
		ID:           core.NewID(),
		Content:      core.NewTextContent(core.RoleAssistant, reply(prompt, turn)),
		FinishReason: "stop",
	}
	return respCh, errCh
}
