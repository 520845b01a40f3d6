package runner

import (
	"fmt"
	"time"

	"github.com/hupe1980/mizan/core"
)

// TurnResult records one completed turn.
type TurnResult struct {
	Index     int     `json:"index"`
	Prompt    string  `json:"prompt"`
	Response  string  `json:"response"`
	Reference *string `json:"reference,omitempty"`
	// Scored is true when the scorer ran successfully for this turn.
	Scored     bool               `json:"scored"`
	Scores     map[string]float64 `json:"scores,omitempty"`
	ScoreError string             `json:"score_error,omitempty"`
	Duration   time.Duration      `json:"duration"`
}

// Result is the outcome of a dialogue run. It is returned on success and on
// failure; on failure History and Turns hold every turn completed before
// the error.
type Result struct {
	RunID     string `json:"run_id"`
	TaskID    string `json:"task_id"`
	ModelName string `json:"model_name"`
	Language  string `json:"language"`
	Status    Status `json:"status"`
	Reason    Reason `json:"reason,omitempty"`
	// Err is the error that failed the run.
	Err         error        `json:"-"`
	History     core.History `json:"-"`
	Turns       []TurnResult `json:"turns"`
	Generations int          `json:"generations"`
	StartedAt   time.Time    `json:"started_at"`
	FinishedAt  time.Time    `json:"finished_at"`
}

// Completed reports whether every turn ran.
func (r *Result) Completed() bool { return r.Status == StatusCompleted }

// Duration returns the wall time of the run.
func (r *Result) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// ErrorMessage returns the failure message, or "" for successful runs.
func (r *Result) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// GenerationError reports a turn whose response could not be produced.
type GenerationError struct {
	TaskID    string
	TurnIndex int
	Err       error
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	return fmt.Sprintf("task %s: turn %d: generation failed: %v", e.TaskID, e.TurnIndex, e.Err)
}

// Unwrap returns the underlying cause.
func (e *GenerationError) Unwrap() error { return e.Err }

// Clone returns a deep copy of the result. History is immutable and shared.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	out := *r
	if r.Turns != nil {
		out.Turns = make([]TurnResult, len(r.Turns))
		for i, tr := range r.Turns {
			if tr.Reference != nil {
				ref := *tr.Reference
				tr.Reference = &ref
			}
			if tr.Scores != nil {
				scores := make(map[string]float64, len(tr.Scores))
				for k, v := range tr.Scores {
					scores[k] = v
				}
				tr.Scores = scores
			}
			out.Turns[i] = tr
		}
	}
	return &out
}
