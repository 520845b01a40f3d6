// Package model defines the provider-agnostic abstractions used to obtain
// responses from language models.
//
// Two layers exist:
//   - Model: the backend interface (streaming Generate over normalized
//     Request/Response shapes). Vendor packages (openai, anthropic) and the
//     deterministic simulated backends implement it.
//   - Generator / Provider: the capability consumed by the dialogue runner.
//     A Provider turns a model identifier into a Generator; Registry is the
//     standard Provider, dispatching identifiers to registered backends.
//
// Keeping the runner on Generator means swapping a hosted model for a
// deterministic stub needs no conditional logic in the runner.
package model
