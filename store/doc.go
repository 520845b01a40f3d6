// Package store persists finished dialogue runs so that histories, scores
// and failure reasons survive the process that produced them.
//
// Two implementations are provided: InMemoryStore for tests and one-shot
// CLI runs, and the SQLite-backed store in the sqlite subpackage.
package store
