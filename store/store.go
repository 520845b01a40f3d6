package store

import (
	"context"
	"errors"

	"github.com/hupe1980/mizan/runner"
)

// ErrNotFound is returned by Get when no run with the given id was saved.
var ErrNotFound = errors.New("run not found")

// Store saves and loads run results. Implementations must be safe for
// concurrent use and must not retain caller-owned results.
type Store interface {
	// Save inserts or replaces the record of res.RunID.
	Save(ctx context.Context, res *runner.Result) error
	// Get loads a single run.
	Get(ctx context.Context, runID string) (*runner.Result, error)
	// List returns the runs of taskID ordered by start time; an empty
	// taskID lists every run.
	List(ctx context.Context, taskID string) ([]*runner.Result, error)
}
