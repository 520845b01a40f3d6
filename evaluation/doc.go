// Package evaluation defines the scoring extension point of the harness.
//
// Metric semantics (coherence, faithfulness to the reference and so on) are
// left to implementations of Scorer. The package only fixes the
// contract: what a scorer receives for a turn (Invocation) and what it hands
// back (Result).
package evaluation
