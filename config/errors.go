package config

import "fmt"

// Reason classifies why a task definition was rejected.
type Reason string

const (
	// ReasonMissingFile means the definition file does not exist.
	ReasonMissingFile Reason = "missing_file"
	// ReasonMalformed means the definition could not be decoded into a mapping.
	ReasonMalformed Reason = "malformed"
	// ReasonSchemaViolation means the decoded definition failed the dialogue schema.
	ReasonSchemaViolation Reason = "schema_violation"
)

// ConfigurationError reports a task definition that cannot be used.
type ConfigurationError struct {
	// Source is the file path, or empty for in-memory definitions.
	Source string
	Reason Reason
	Err    error
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	src := e.Source
	if src == "" {
		src = "task definition"
	}
	switch e.Reason {
	case ReasonMissingFile:
		return fmt.Sprintf("configuration file not found at %s", src)
	case ReasonSchemaViolation:
		return fmt.Sprintf("invalid %s:\n%v", src, e.Err)
	default:
		return fmt.Sprintf("malformed %s: %v", src, e.Err)
	}
}

// Unwrap returns the underlying cause.
func (e *ConfigurationError) Unwrap() error { return e.Err }
