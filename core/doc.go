// Package core provides the small set of conversation types shared by the
// model backends, the dialogue runner and the result stores:
//
//   - Content / Part (role-based message content handed to backends)
//   - Exchange / History (the append-only prompt/response record of a run)
//   - GenerationBudget (per-run cap on generation calls)
//   - NewID (run correlation identifiers)
//   - WithLanguage / LanguageFromContext (dialogue language of the current run)
//
// Nothing in this package performs I/O; persistence and orchestration live in
// the store and runner packages.
package core
