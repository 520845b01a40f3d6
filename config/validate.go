package config

import (
	"github.com/hupe1980/mizan/dialogue"
)

// Options tune task validation.
type Options struct {
	// DefaultLanguage is applied when a task omits its language.
	DefaultLanguage string
	// AllowUnknownFields accepts keys that are not part of the task schema.
	AllowUnknownFields bool
}

// Validate checks an already-decoded task definition against the dialogue
// schema. Schema failures are returned as *ConfigurationError wrapping the
// *dialogue.ValidationError.
func Validate(raw map[string]any, optFns ...func(o *Options)) (*dialogue.Task, error) {
	return validate("", raw, optFns...)
}

func validate(source string, raw map[string]any, optFns ...func(o *Options)) (*dialogue.Task, error) {
	opts := Options{DefaultLanguage: dialogue.DefaultLanguage}
	for _, fn := range optFns {
		fn(&opts)
	}

	task, err := dialogue.Parse(raw, func(o *dialogue.ParseOptions) {
		if opts.DefaultLanguage != "" {
			o.DefaultLanguage = opts.DefaultLanguage
		}
		o.AllowUnknownFields = opts.AllowUnknownFields
	})
	if err != nil {
		return nil, &ConfigurationError{Source: source, Reason: ReasonSchemaViolation, Err: err}
	}
	return task, nil
}
