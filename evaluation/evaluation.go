package evaluation

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/mizan/core"
)

// Invocation is the material handed to a Scorer for one turn.
type Invocation struct {
	TaskID    string
	TurnIndex int
	Language  string
	Prompt    string
	Response  string
	Reference string
	// History is the conversation up to and including this turn.
	History core.History
}

// Result holds the named metric values produced for one turn.
type Result struct {
	Scores map[string]float64 `json:"scores"`
}

// Scorer computes metrics for a turn that carries a reference response.
// The runner calls Score exactly once per referenced turn and never for
// turns without a reference.
type Scorer interface {
	Score(ctx context.Context, inv Invocation) (*Result, error)
}

// ScorerFunc adapts a plain function to the Scorer interface.
type ScorerFunc func(ctx context.Context, inv Invocation) (*Result, error)

// Score implements Scorer.
func (f ScorerFunc) Score(ctx context.Context, inv Invocation) (*Result, error) {
	return f(ctx, inv)
}

// NopScorer marks referenced turns as scored without computing any metric.
type NopScorer struct{}

// Score implements Scorer.
func (NopScorer) Score(context.Context, Invocation) (*Result, error) {
	return &Result{Scores: map[string]float64{}}, nil
}

// MultiScorer runs several scorers and merges their metrics. Later scorers
// overwrite metrics of the same name.
type MultiScorer []Scorer

// Score implements Scorer. Every scorer runs; their errors are joined.
func (ms MultiScorer) Score(ctx context.Context, inv Invocation) (*Result, error) {
	merged := &Result{Scores: map[string]float64{}}
	var errs []error
	for i, s := range ms {
		res, err := s.Score(ctx, inv)
		if err != nil {
			errs = append(errs, fmt.Errorf("scorer %d: %w", i, err))
			continue
		}
		if res == nil {
			continue
		}
		for name, v := range res.Scores {
			merged.Scores[name] = v
		}
	}
	return merged, errors.Join(errs...)
}
