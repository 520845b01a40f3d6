package runner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/mizan/config"
	"github.com/hupe1980/mizan/core"
	"github.com/hupe1980/mizan/dialogue"
	"github.com/hupe1980/mizan/evaluation"
	"github.com/hupe1980/mizan/logging"
	"github.com/hupe1980/mizan/model"
)

var errNoGenerator = errors.New("provider returned no generator")

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// Logger receives transition, generation and run records.
	Logger logging.Logger
	// Scorer is invoked for every turn that carries a reference.
	Scorer evaluation.Scorer
	// TurnTimeout bounds a single generation. Zero disables the bound.
	TurnTimeout time.Duration
	// MaxGenerations caps generation calls per run. Zero means unlimited.
	MaxGenerations int
	// Concurrency limits the number of tasks EvaluateAll runs at once.
	Concurrency int
	// OnTransition observes state changes. It must be safe for concurrent
	// use when EvaluateAll is used.
	OnTransition func(Transition)
	// DefaultLanguage is applied to tasks validated by Evaluate.
	DefaultLanguage string
	// Now and NewRunID are overridable for deterministic tests.
	Now      func() time.Time
	NewRunID func() string
}

// Runner drives dialogue tasks through a model: it validates the task,
// acquires the generator, executes the turns in order and scores referenced
// turns. Public methods are safe for concurrent use; each run owns its history.
type Runner struct {
	opts Options

	activeRuns map[string]context.CancelFunc
	mu         sync.RWMutex
}

// New constructs a Runner with optional overrides.
func New(optFns ...func(o *Options)) *Runner {
	opts := Options{
		Logger:          logging.NoOpLogger{},
		Scorer:          evaluation.NopScorer{},
		Concurrency:     4,
		DefaultLanguage: dialogue.DefaultLanguage,
		Now:             time.Now,
		NewRunID:        core.NewID,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	opts.Logger = logging.OrNoOp(opts.Logger)
	if opts.Scorer == nil {
		opts.Scorer = evaluation.NopScorer{}
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewRunID == nil {
		opts.NewRunID = core.NewID
	}

	return &Runner{
		opts:       opts,
		activeRuns: make(map[string]context.CancelFunc),
	}
}

// Evaluate runs the full pipeline on an untyped task definition:
// validation, model acquisition, then the dialogue. Validation fails before
// any acquisition and acquisition fails before any generation.
func (r *Runner) Evaluate(ctx context.Context, raw map[string]any, p model.Provider) (*Result, error) {
	ex := r.start(ctx, rawTaskID(raw), rawModelName(raw), "")
	defer ex.finish()

	ex.transition(StatusValidatingConfig, -1, ReasonNone)
	task, err := config.Validate(raw, func(o *config.Options) {
		o.DefaultLanguage = r.opts.DefaultLanguage
	})
	if err != nil {
		return ex.fail(ReasonConfiguration, err)
	}
	ex.result.TaskID = task.ID()
	ex.result.ModelName = task.ModelName()
	ex.result.Language = task.Language()

	return r.acquireAndRun(ex, task, p)
}

// EvaluateTask runs an already validated task: model acquisition, then the
// dialogue.
func (r *Runner) EvaluateTask(ctx context.Context, task *dialogue.Task, p model.Provider) (*Result, error) {
	ex := r.start(ctx, task.ID(), task.ModelName(), task.Language())
	defer ex.finish()

	return r.acquireAndRun(ex, task, p)
}

// Run executes the turns of task against an acquired generator.
// The returned Result is never nil; on failure it carries the partial history.
func (r *Runner) Run(ctx context.Context, task *dialogue.Task, gen model.Generator) (*Result, error) {
	ex := r.start(ctx, task.ID(), task.ModelName(), task.Language())
	defer ex.finish()

	return r.runTurns(ex, task, gen)
}

// EvaluateAll evaluates tasks concurrently, at most Concurrency at a time.
// Results are returned in input order; every task gets its own history. The
// returned error joins the failures of all runs.
func (r *Runner) EvaluateAll(ctx context.Context, tasks []*dialogue.Task, p model.Provider) ([]*Result, error) {
	results := make([]*Result, len(tasks))
	errs := make([]error, len(tasks))

	var g errgroup.Group
	g.SetLimit(r.opts.Concurrency)
	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			results[i], errs[i] = r.EvaluateTask(ctx, task, p)
			return nil
		})
	}
	_ = g.Wait()

	return results, errors.Join(errs...)
}

// Cancel cancels an active run by ID.
func (r *Runner) Cancel(runID string) error {
	r.mu.Lock()
	cancel, exists := r.activeRuns[runID]
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("run %s not found", runID)
	}

	cancel()

	return nil
}

// ActiveRuns returns the IDs of runs currently executing.
func (r *Runner) ActiveRuns() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.activeRuns))
	for id := range r.activeRuns {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Runner) acquireAndRun(ex *execution, task *dialogue.Task, p model.Provider) (*Result, error) {
	ex.transition(StatusAcquiringModel, -1, ReasonNone)
	gen, err := p.Acquire(ex.ctx, task.ModelName())
	if err == nil && gen == nil {
		err = errNoGenerator
	}
	if err != nil {
		var aerr *model.AcquisitionError
		if !errors.As(err, &aerr) {
			err = &model.AcquisitionError{Model: task.ModelName(), Err: err}
		}
		return ex.fail(ReasonAcquisition, err)
	}
	return r.runTurns(ex, task, gen)
}

func (r *Runner) runTurns(ex *execution, task *dialogue.Task, gen model.Generator) (*Result, error) {
	ctx := core.WithLanguage(ex.ctx, task.Language())
	budget := core.NewGenerationBudget(r.opts.MaxGenerations)
	history := core.NewHistory()

	for i, turn := range task.Turns() {
		ex.transition(StatusRunningTurn, i, ReasonNone)

		if err := ctx.Err(); err != nil {
			return ex.fail(contextReason(err), &GenerationError{TaskID: task.ID(), TurnIndex: i, Err: err})
		}
		if err := budget.Take(); err != nil {
			return ex.fail(ReasonBudget, &GenerationError{TaskID: task.ID(), TurnIndex: i, Err: err})
		}
		ex.result.Generations = budget.Used()
		if left, ok := budget.Remaining(); ok {
			r.opts.Logger.Debug("Generation budget", "run_id", ex.result.RunID, "turn", i, "remaining", left)
		}

		started := r.opts.Now()
		response, err := r.generate(ctx, gen, history, turn.UserPrompt)
		elapsed := r.opts.Now().Sub(started)
		logging.LogGeneration(r.opts.Logger, task.ModelName(), task.ID(), i, elapsed, err)
		if err != nil {
			gerr := &GenerationError{TaskID: task.ID(), TurnIndex: i, Err: err}
			return ex.fail(contextReason(err), gerr)
		}

		history = history.Append(turn.UserPrompt, response)
		ex.result.History = history

		tr := TurnResult{
			Index:     i,
			Prompt:    turn.UserPrompt,
			Response:  response,
			Reference: turn.ExpectedResponse,
			Duration:  elapsed,
		}
		if ref, ok := turn.Reference(); ok {
			r.score(ctx, &tr, evaluation.Invocation{
				TaskID:    task.ID(),
				TurnIndex: i,
				Language:  task.Language(),
				Prompt:    turn.UserPrompt,
				Response:  response,
				Reference: ref,
				History:   history,
			})
		}
		ex.result.Turns = append(ex.result.Turns, tr)
	}

	ex.transition(StatusCompleted, -1, ReasonNone)
	return ex.result, nil
}

// generate calls gen under the per-turn timeout. The call runs in its own
// goroutine so a generator that ignores its context still cannot outlive
// the deadline.
func (r *Runner) generate(ctx context.Context, gen model.Generator, history core.History, prompt string) (string, error) {
	if r.opts.TurnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.TurnTimeout)
		defer cancel()
	}

	type outcome struct {
		text string
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		text, err := gen.Generate(ctx, history, prompt)
		done <- outcome{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case o := <-done:
		return o.text, o.err
	}
}

func (r *Runner) score(ctx context.Context, tr *TurnResult, inv evaluation.Invocation) {
	res, err := r.opts.Scorer.Score(ctx, inv)
	if err != nil {
		tr.ScoreError = err.Error()
		r.opts.Logger.Warn("Scoring failed", "task_id", inv.TaskID, "turn", inv.TurnIndex, "error", err.Error())
		return
	}
	tr.Scored = true
	if res != nil && len(res.Scores) > 0 {
		tr.Scores = make(map[string]float64, len(res.Scores))
		for k, v := range res.Scores {
			tr.Scores[k] = v
		}
	}
}

// execution tracks the state of a single run.
type execution struct {
	r      *Runner
	ctx    context.Context
	cancel context.CancelFunc
	result *Result
}

func (r *Runner) start(ctx context.Context, taskID, modelName, language string) *execution {
	runID := r.opts.NewRunID()
	ctx, cancel := context.WithCancel(ctx)

	r.mu.Lock()
	r.activeRuns[runID] = cancel
	r.mu.Unlock()

	r.opts.Logger.Debug("Dialogue run started", "run_id", runID, "task_id", taskID, "model", modelName)

	return &execution{
		r:      r,
		ctx:    ctx,
		cancel: cancel,
		result: &Result{
			RunID:     runID,
			TaskID:    taskID,
			ModelName: modelName,
			Language:  language,
			Status:    StatusNotStarted,
			StartedAt: r.opts.Now(),
		},
	}
}

func (ex *execution) transition(to Status, turn int, reason Reason) {
	t := Transition{
		RunID:  ex.result.RunID,
		TaskID: ex.result.TaskID,
		From:   ex.result.Status,
		To:     to,
		Turn:   turn,
		Reason: reason,
		At:     ex.r.opts.Now(),
	}
	ex.result.Status = to
	ex.r.opts.Logger.Debug("Run state changed", "run_id", t.RunID, "from", t.From, "to", t.To, "turn", t.Turn)
	if ex.r.opts.OnTransition != nil {
		ex.r.opts.OnTransition(t)
	}
}

func (ex *execution) fail(reason Reason, err error) (*Result, error) {
	ex.result.Reason = reason
	ex.result.Err = err
	ex.transition(StatusFailed, -1, reason)
	return ex.result, err
}

func (ex *execution) finish() {
	ex.cancel()
	ex.r.mu.Lock()
	delete(ex.r.activeRuns, ex.result.RunID)
	ex.r.mu.Unlock()

	res := ex.result
	res.FinishedAt = ex.r.opts.Now()
	logging.LogRun(ex.r.opts.Logger, res.TaskID, string(res.Status), len(res.Turns), res.Duration(), res.Err)
}

// contextReason maps a generation error to timeout, cancelled or generation.
func contextReason(err error) Reason {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, context.Canceled):
		return ReasonCancelled
	default:
		return ReasonGeneration
	}
}

func rawTaskID(raw map[string]any) string {
	id, _ := raw["task_id"].(string)
	return id
}

func rawModelName(raw map[string]any) string {
	name, _ := raw["model_name"].(string)
	return name
}
