package runner

import "time"

// Status is the lifecycle state of a dialogue run.
type Status string

// Run states. A run moves forward only:
//
//	NotStarted -> ValidatingConfig -> AcquiringModel -> RunningTurn* -> Completed | Failed
const (
	StatusNotStarted       Status = "not_started"
	StatusValidatingConfig Status = "validating_config"
	StatusAcquiringModel   Status = "acquiring_model"
	StatusRunningTurn      Status = "running_turn"
	StatusCompleted        Status = "completed"
	StatusFailed           Status = "failed"
)

// Terminal reports whether no further transition can leave s.
func (s Status) Terminal() bool { return s == StatusCompleted || s == StatusFailed }

// Reason classifies why a run ended in StatusFailed.
type Reason string

// Failure reasons.
const (
	ReasonNone          Reason = ""
	ReasonConfiguration Reason = "configuration"
	ReasonAcquisition   Reason = "acquisition"
	ReasonGeneration    Reason = "generation"
	ReasonTimeout       Reason = "timeout"
	ReasonCancelled     Reason = "cancelled"
	ReasonBudget        Reason = "budget"
)

// Transition describes one state change of a run. Turn is the zero-based
// turn index for StatusRunningTurn and -1 otherwise.
type Transition struct {
	RunID  string    `json:"run_id"`
	TaskID string    `json:"task_id"`
	From   Status    `json:"from"`
	To     Status    `json:"to"`
	Turn   int       `json:"turn"`
	Reason Reason    `json:"reason,omitempty"`
	At     time.Time `json:"at"`
}
