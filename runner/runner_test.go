package runner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/mizan/config"
	"github.com/hupe1980/mizan/core"
	"github.com/hupe1980/mizan/dialogue"
	"github.com/hupe1980/mizan/evaluation"
	"github.com/hupe1980/mizan/internal/testutil"
	"github.com/hupe1980/mizan/model"
	"github.com/hupe1980/mizan/model/simulated"
)

// mockGenerator records every generation call.
type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, history core.History, prompt string) (string, error) {
	args := m.Called(ctx, history, prompt)
	return args.String(0), args.Error(1)
}

// mockScorer records every scoring call.
type mockScorer struct {
	mock.Mock
}

func (m *mockScorer) Score(ctx context.Context, inv evaluation.Invocation) (*evaluation.Result, error) {
	args := m.Called(ctx, inv)
	res, _ := args.Get(0).(*evaluation.Result)
	return res, args.Error(1)
}

// recordingLogger keeps debug records for assertions.
type recordingLogger struct {
	mu      sync.Mutex
	records []logRecord
}

type logRecord struct {
	msg  string
	args []any
}

func (l *recordingLogger) Debug(msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, logRecord{msg: msg, args: args})
}

func (l *recordingLogger) Info(string, ...any)  {}
func (l *recordingLogger) Warn(string, ...any)  {}
func (l *recordingLogger) Error(string, ...any) {}

// values returns the value logged under key for every record with msg.
func (l *recordingLogger) values(msg, key string) []any {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []any
	for _, rec := range l.records {
		if rec.msg != msg {
			continue
		}
		for i := 0; i+1 < len(rec.args); i += 2 {
			if rec.args[i] == key {
				out = append(out, rec.args[i+1])
			}
		}
	}
	return out
}

// echoGenerator answers "echo:"+prompt and records the history length seen per call.
type echoGenerator struct {
	mu      sync.Mutex
	prompts []string
	lengths []int
}

func (g *echoGenerator) Generate(_ context.Context, history core.History, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	g.lengths = append(g.lengths, history.Len())
	return "echo:" + prompt, nil
}

func newRegistry() *model.Registry {
	reg := model.NewRegistry(func(o *model.RegistryOptions) { o.DefaultBackend = "simulated" })
	reg.Register("echo", simulated.NewEchoFactory())
	reg.Register("simulated", simulated.NewFactory())
	return reg
}

func staticProvider(gen model.Generator) model.Provider {
	return model.ProviderFunc(func(context.Context, string) (model.Generator, error) { return gen, nil })
}

func TestRun_EchoTwoTurns(t *testing.T) {
	task := testutil.NewTaskBuilder("echo").Turn("hi").Turn("bye").Build(t)

	res, err := New().Evaluate(context.Background(), testutil.NewTaskBuilder("echo").Turn("hi").Turn("bye").Raw(), newRegistry())
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, ReasonNone, res.Reason)
	assert.Equal(t, []core.Exchange{
		{Prompt: "hi", Response: "echo:hi"},
		{Prompt: "bye", Response: "echo:bye"},
	}, res.History.Exchanges())
	assert.Equal(t, task.ID(), res.TaskID)
	assert.Equal(t, dialogue.DefaultLanguage, res.Language)
	assert.Equal(t, 2, res.Generations)
	assert.True(t, res.Completed())
}

func TestRun_GeneratesOncePerTurnInOrder(t *testing.T) {
	gen := &echoGenerator{}
	task := testutil.NewTaskBuilder("echo").Turn("a").Turn("b").Turn("c").Turn("d").Build(t)

	res, err := New().Run(context.Background(), task, gen)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c", "d"}, gen.prompts)
	assert.Equal(t, []int{0, 1, 2, 3}, gen.lengths, "history before turn i has length i")
	require.Len(t, res.Turns, 4)
	for i, tr := range res.Turns {
		assert.Equal(t, i, tr.Index)
	}
}

func TestRun_HistoryPassedToGenerator(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(h core.History) bool { return h.Len() == 0 }), "q1").
		Return("a1", nil).Once()
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(h core.History) bool {
		ex, ok := h.At(0)
		return h.Len() == 1 && ok && ex == core.Exchange{Prompt: "q1", Response: "a1"}
	}), "q2").Return("a2", nil).Once()

	task := testutil.NewTaskBuilder("m").Turn("q1").Turn("q2").Build(t)
	_, err := New().Run(context.Background(), task, gen)
	require.NoError(t, err)
	gen.AssertExpectations(t)
}

func TestRun_LanguageInContext(t *testing.T) {
	var seen string
	gen := model.GeneratorFunc(func(ctx context.Context, _ core.History, _ string) (string, error) {
		seen, _ = core.LanguageFromContext(ctx)
		return "ok", nil
	})
	task := testutil.NewTaskBuilder("m").Language("Egyptian Arabic").Turn("hi").Build(t)

	_, err := New().Run(context.Background(), task, gen)
	require.NoError(t, err)
	assert.Equal(t, "Egyptian Arabic", seen)
}

func TestRun_GenerationFailureKeepsPartialHistory(t *testing.T) {
	boom := errors.New("boom")
	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything, "one").Return("1", nil).Once()
	gen.On("Generate", mock.Anything, mock.Anything, "two").Return("", boom).Once()

	task := testutil.NewTaskBuilder("m").ID("t-gen").Turn("one").Turn("two").Turn("three").Build(t)
	res, err := New().Run(context.Background(), task, gen)

	var gerr *GenerationError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, "t-gen", gerr.TaskID)
	assert.Equal(t, 1, gerr.TurnIndex)
	assert.ErrorIs(t, err, boom)

	require.NotNil(t, res)
	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, ReasonGeneration, res.Reason)
	assert.Equal(t, []core.Exchange{{Prompt: "one", Response: "1"}}, res.History.Exchanges())
	assert.Len(t, res.Turns, 1)
	gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, "three")
}

func TestEvaluate_ZeroTurnsFailsValidation(t *testing.T) {
	raw := testutil.NewTaskBuilder("echo").Raw()

	res, err := New().Evaluate(context.Background(), raw, newRegistry())
	var cerr *config.ConfigurationError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, config.ReasonSchemaViolation, cerr.Reason)
	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, ReasonConfiguration, res.Reason)
}

func TestEvaluate_EmptyPromptFailsBeforeAcquisition(t *testing.T) {
	acquired := false
	p := model.ProviderFunc(func(context.Context, string) (model.Generator, error) {
		acquired = true
		return nil, errors.New("unexpected")
	})
	raw := testutil.NewTaskBuilder("echo").Turn("ok").Turn("").Raw()

	var statuses []Status
	r := New(func(o *Options) { o.OnTransition = func(tr Transition) { statuses = append(statuses, tr.To) } })
	res, err := r.Evaluate(context.Background(), raw, p)

	var verr *dialogue.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has("dialogue_scenario[1].user_prompt", dialogue.ConstraintBlank))
	assert.False(t, acquired)
	assert.Equal(t, ReasonConfiguration, res.Reason)
	assert.Equal(t, []Status{StatusValidatingConfig, StatusFailed}, statuses)
}

func TestEvaluate_AcquisitionFailure(t *testing.T) {
	gen := &echoGenerator{}
	p := model.ProviderFunc(func(context.Context, string) (model.Generator, error) {
		return gen, errors.New("weights not found")
	})
	raw := testutil.NewTaskBuilder("org/missing-model").Turn("hi").Raw()

	res, err := New().Evaluate(context.Background(), raw, p)

	var aerr *model.AcquisitionError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "org/missing-model", aerr.Model)
	assert.Contains(t, err.Error(), "org/missing-model")
	assert.Equal(t, ReasonAcquisition, res.Reason)
	assert.Equal(t, 0, res.Generations)
	assert.Zero(t, res.History.Len())
	assert.Empty(t, gen.prompts)
}

func TestEvaluate_ProviderReturnsNoGenerator(t *testing.T) {
	p := model.ProviderFunc(func(context.Context, string) (model.Generator, error) {
		return nil, nil
	})
	raw := testutil.NewTaskBuilder("org/empty").Turn("hi").Raw()

	res, err := New().Evaluate(context.Background(), raw, p)

	var aerr *model.AcquisitionError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "org/empty", aerr.Model)
	assert.ErrorIs(t, err, errNoGenerator)
	assert.Equal(t, ReasonAcquisition, res.Reason)
	assert.Equal(t, StatusFailed, res.Status)
}

func TestEvaluate_RegistryUnknownBackend(t *testing.T) {
	reg := model.NewRegistry()
	reg.Register("echo", simulated.NewEchoFactory())
	raw := testutil.NewTaskBuilder("X").Turn("hi").Raw()

	res, err := New().Evaluate(context.Background(), raw, reg)
	var aerr *model.AcquisitionError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "X", aerr.Model)
	assert.ErrorIs(t, err, model.ErrUnknownBackend)
	assert.Equal(t, StatusFailed, res.Status)
}

func TestEvaluate_Transitions(t *testing.T) {
	var transitions []Transition
	r := New(func(o *Options) {
		o.NewRunID = func() string { return "run-1" }
		o.OnTransition = func(tr Transition) { transitions = append(transitions, tr) }
	})
	raw := testutil.NewTaskBuilder("echo").Turn("hi").Turn("bye").Raw()

	_, err := r.Evaluate(context.Background(), raw, newRegistry())
	require.NoError(t, err)

	var got []Status
	var turns []int
	for _, tr := range transitions {
		assert.Equal(t, "run-1", tr.RunID)
		got = append(got, tr.To)
		turns = append(turns, tr.Turn)
	}
	assert.Equal(t, []Status{
		StatusValidatingConfig, StatusAcquiringModel, StatusRunningTurn, StatusRunningTurn, StatusCompleted,
	}, got)
	assert.Equal(t, []int{-1, -1, 0, 1, -1}, turns)
	assert.Equal(t, StatusNotStarted, transitions[0].From)
	assert.Empty(t, r.ActiveRuns())
}

func TestRun_ScoringOnlyReferencedTurns(t *testing.T) {
	scorer := &mockScorer{}
	scorer.On("Score", mock.Anything, mock.MatchedBy(func(inv evaluation.Invocation) bool {
		return inv.TurnIndex == 1 && inv.Reference == "ref" && inv.Response == "echo:b" && inv.History.Len() == 2
	})).Return(&evaluation.Result{Scores: map[string]float64{"match": 0.5}}, nil).Once()

	task := testutil.NewTaskBuilder("echo").Turn("a").TurnWithReference("b", "ref").Build(t)
	res, err := New(func(o *Options) { o.Scorer = scorer }).Run(context.Background(), task, &echoGenerator{})
	require.NoError(t, err)

	scorer.AssertNumberOfCalls(t, "Score", 1)
	assert.False(t, res.Turns[0].Scored)
	assert.Nil(t, res.Turns[0].Reference)
	assert.True(t, res.Turns[1].Scored)
	assert.Equal(t, map[string]float64{"match": 0.5}, res.Turns[1].Scores)
	require.NotNil(t, res.Turns[1].Reference)
	assert.Equal(t, "ref", *res.Turns[1].Reference)
}

func TestRun_ScoringErrorDoesNotFailRun(t *testing.T) {
	scorer := evaluation.ScorerFunc(func(context.Context, evaluation.Invocation) (*evaluation.Result, error) {
		return nil, errors.New("judge unavailable")
	})
	task := testutil.NewTaskBuilder("echo").TurnWithReference("a", "x").Build(t)

	res, err := New(func(o *Options) { o.Scorer = scorer }).Run(context.Background(), task, &echoGenerator{})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, res.Status)
	assert.False(t, res.Turns[0].Scored)
	assert.Equal(t, "judge unavailable", res.Turns[0].ScoreError)
}

func TestRun_TurnTimeout(t *testing.T) {
	gen := model.GeneratorFunc(func(ctx context.Context, h core.History, prompt string) (string, error) {
		if h.Len() == 0 {
			return "fast", nil
		}
		time.Sleep(500 * time.Millisecond)
		return "slow", nil
	})
	task := testutil.NewTaskBuilder("m").Turn("one").Turn("two").Build(t)

	res, err := New(func(o *Options) { o.TurnTimeout = 20 * time.Millisecond }).Run(context.Background(), task, gen)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, ReasonTimeout, res.Reason)
	assert.Equal(t, 1, res.History.Len())
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gen := &echoGenerator{}
	task := testutil.NewTaskBuilder("m").Turn("one").Turn("two").Build(t)

	r := New(func(o *Options) {
		o.OnTransition = func(tr Transition) {
			if tr.To == StatusRunningTurn && tr.Turn == 1 {
				cancel()
			}
		}
	})
	res, err := r.Run(ctx, task, gen)
	var gerr *GenerationError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, 1, gerr.TurnIndex)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, ReasonCancelled, res.Reason)
	assert.Equal(t, []string{"one"}, gen.prompts)
	assert.Equal(t, 1, res.History.Len())
}

func TestRun_CancelByID(t *testing.T) {
	started := make(chan struct{})
	gen := model.GeneratorFunc(func(ctx context.Context, _ core.History, _ string) (string, error) {
		close(started)
		<-ctx.Done()
		return "", ctx.Err()
	})
	r := New(func(o *Options) { o.NewRunID = func() string { return "run-x" } })
	task := testutil.NewTaskBuilder("m").Turn("one").Build(t)

	done := make(chan *Result, 1)
	go func() {
		res, _ := r.Run(context.Background(), task, gen)
		done <- res
	}()

	<-started
	require.Equal(t, []string{"run-x"}, r.ActiveRuns())
	require.NoError(t, r.Cancel("run-x"))

	res := <-done
	assert.Equal(t, ReasonCancelled, res.Reason)
	assert.Error(t, r.Cancel("run-x"))
}

func TestRun_GenerationBudget(t *testing.T) {
	gen := &echoGenerator{}
	task := testutil.NewTaskBuilder("m").Turn("a").Turn("b").Turn("c").Build(t)

	res, err := New(func(o *Options) { o.MaxGenerations = 2 }).Run(context.Background(), task, gen)
	assert.ErrorIs(t, err, core.ErrBudgetExceeded)
	assert.Equal(t, ReasonBudget, res.Reason)
	assert.Equal(t, []string{"a", "b"}, gen.prompts)
	assert.Equal(t, 2, res.History.Len())
	assert.Equal(t, 2, res.Generations)
}

func TestRun_LogsRemainingBudget(t *testing.T) {
	logger := &recordingLogger{}
	task := testutil.NewTaskBuilder("m").Turn("a").Turn("b").Build(t)

	_, err := New(func(o *Options) {
		o.MaxGenerations = 3
		o.Logger = logger
	}).Run(context.Background(), task, &echoGenerator{})
	require.NoError(t, err)

	assert.Equal(t, []any{2, 1}, logger.values("Generation budget", "remaining"))
}

func TestEvaluateAll_IndependentHistoriesInOrder(t *testing.T) {
	tasks := []*dialogue.Task{
		testutil.NewTaskBuilder("echo").ID("t1").Turn("a").Turn("b").Build(t),
		testutil.NewTaskBuilder("missing:model").ID("t2").Turn("x").Build(t),
		testutil.NewTaskBuilder("simulated").ID("t3").Language("Gulf Arabic").Turn("q1").Turn("q2").Build(t),
	}
	reg := model.NewRegistry()
	reg.Register("echo", simulated.NewEchoFactory())
	reg.Register("simulated", simulated.NewFactory())

	results, err := New(func(o *Options) { o.Concurrency = 2 }).EvaluateAll(context.Background(), tasks, reg)
	require.Error(t, err)
	var aerr *model.AcquisitionError
	assert.ErrorAs(t, err, &aerr)

	require.Len(t, results, 3)
	assert.Equal(t, "t1", results[0].TaskID)
	assert.Equal(t, []core.Exchange{{Prompt: "a", Response: "echo:a"}, {Prompt: "b", Response: "echo:b"}}, results[0].History.Exchanges())
	assert.Equal(t, ReasonAcquisition, results[1].Reason)
	assert.Equal(t, "Simulated LLM Response for Turn 2 in Gulf Arabic.", results[2].Turns[1].Response)
}

func TestEvaluateTask_StaticProvider(t *testing.T) {
	task := testutil.NewTaskBuilder("anything").Turn("hi").Build(t)
	res, err := New().EvaluateTask(context.Background(), task, staticProvider(&echoGenerator{}))
	require.NoError(t, err)
	assert.Equal(t, "echo:hi", res.Turns[0].Response)
	assert.False(t, res.FinishedAt.Before(res.StartedAt))
}
