package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/mizan/dialogue"
)

// LoadTask reads, decodes and validates a task definition file. YAML and JSON
// are both accepted.
func LoadTask(path string, optFns ...func(o *Options)) (*dialogue.Task, error) {
	raw, err := ReadRaw(path)
	if err != nil {
		return nil, err
	}
	return validate(path, raw, optFns...)
}

// ReadRaw reads a task definition file into an untyped mapping without
// applying the schema.
func ReadRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ConfigurationError{Source: path, Reason: ReasonMissingFile, Err: err}
		}
		return nil, &ConfigurationError{Source: path, Reason: ReasonMalformed, Err: fmt.Errorf("read config: %w", err)}
	}
	raw, err := DecodeRaw(data)
	if err != nil {
		return nil, &ConfigurationError{Source: path, Reason: ReasonMalformed, Err: err}
	}
	return raw, nil
}

// DecodeRaw decodes a single YAML (or JSON) document whose root is a mapping.
func DecodeRaw(data []byte) (map[string]any, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))

	var node yaml.Node
	if err := decoder.Decode(&node); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("parse config: empty document")
		}
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("parse config: multiple YAML documents are not supported")
		}
		return nil, fmt.Errorf("parse config: %w", err)
	}

	root := &node
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parse config: root must be a mapping")
	}

	var raw map[string]any
	if err := root.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return raw, nil
}
