// Package logging provides a minimal logging interface and adapters for mizan.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the runner and backends use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - a pretty console handler (charmbracelet/log) for interactive CLI use
//   - NoOpLogger for silent operation (testing, minimal setups)
//   - LogGeneration / LogRun helpers with a fixed attribute vocabulary
//
// Usage:
//
//	logger := logging.New(&logging.LoggerConfig{Level: logging.LogLevelInfo, Format: "json", Output: os.Stderr})
//	r := runner.New(func(o *runner.Options) { o.Logger = logger })
package logging
