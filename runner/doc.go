// Package runner implements the dialogue execution layer of mizan.
//
// A Runner takes one evaluation task through its lifecycle:
//
//	NotStarted -> ValidatingConfig -> AcquiringModel -> RunningTurn(0..N-1) -> Completed | Failed(reason)
//
// Turns run strictly in order. Each turn sees the history of every earlier
// turn and nothing else, and a turn that carries an expected response is
// handed to the configured evaluation.Scorer exactly once. A failing turn
// stops the run; the returned Result still carries the history collected
// so far, so callers can persist or inspect partial progress.
//
// Independent tasks may be evaluated concurrently with EvaluateAll; each
// run owns its history and generation budget.
package runner
