package dialogue

import (
	"fmt"
	"strings"
)

// Constraint names the rule a field violated.
type Constraint string

const (
	// ConstraintMissing marks a required field that is absent.
	ConstraintMissing Constraint = "missing"
	// ConstraintWrongType marks a field whose value has the wrong type.
	ConstraintWrongType Constraint = "wrong_type"
	// ConstraintEmpty marks a required collection with no elements.
	ConstraintEmpty Constraint = "empty"
	// ConstraintBlank marks a required text that is empty or whitespace-only.
	ConstraintBlank Constraint = "blank"
	// ConstraintUnknownField marks a key that is not part of the schema.
	ConstraintUnknownField Constraint = "unknown_field"
)

// Issue captures a validation problem with a task field.
type Issue struct {
	Field      string
	Constraint Constraint
	Message    string
}

// String renders the issue as "field: message".
func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Field, i.Message)
}

// ValidationError aggregates task validation issues.
type ValidationError struct {
	Issues []Issue
}

// Error renders validation errors as a multi-line string.
func (err *ValidationError) Error() string {
	if err == nil || len(err.Issues) == 0 {
		return "task validation failed"
	}
	lines := make([]string, 0, len(err.Issues))
	for _, issue := range err.Issues {
		lines = append(lines, issue.String())
	}
	return strings.Join(lines, "\n")
}

// Has reports whether an issue with the given field and constraint exists.
func (err *ValidationError) Has(field string, constraint Constraint) bool {
	if err == nil {
		return false
	}
	for _, issue := range err.Issues {
		if issue.Field == field && issue.Constraint == constraint {
			return true
		}
	}
	return false
}

// issueCollector accumulates validation issues.
type issueCollector struct {
	issues []Issue
}

// add records a new validation issue.
func (c *issueCollector) add(field string, constraint Constraint, message string) {
	c.issues = append(c.issues, Issue{Field: field, Constraint: constraint, Message: message})
}

// result returns a ValidationError when issues are present.
func (c *issueCollector) result() error {
	if len(c.issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: c.issues}
}
