package dialogue

import (
	"fmt"
	"sort"
	"strings"
)

const (
	fieldModelName        = "model_name"
	fieldTaskID           = "task_id"
	fieldLanguage         = "language"
	fieldDialogueScenario = "dialogue_scenario"
	fieldUserPrompt       = "user_prompt"
	fieldExpectedResponse = "expected_response"
)

var (
	taskFields = map[string]struct{}{
		fieldModelName:        {},
		fieldTaskID:           {},
		fieldLanguage:         {},
		fieldDialogueScenario: {},
	}
	turnFields = map[string]struct{}{
		fieldUserPrompt:       {},
		fieldExpectedResponse: {},
	}
)

// ParseOptions tune how Parse fills optional fields.
type ParseOptions struct {
	// DefaultLanguage replaces an absent or blank language. Defaults to DefaultLanguage.
	DefaultLanguage string
	// AllowUnknownFields disables the unknown_field check.
	AllowUnknownFields bool
}

// Parse checks raw against the task schema and returns a Task, or a
// *ValidationError listing every violated constraint.
func Parse(raw map[string]any, optFns ...func(o *ParseOptions)) (*Task, error) {
	opts := ParseOptions{DefaultLanguage: DefaultLanguage}
	for _, fn := range optFns {
		fn(&opts)
	}

	c := &issueCollector{}
	if raw == nil {
		c.add("", ConstraintMissing, "task definition is required")
		return nil, c.result()
	}

	if !opts.AllowUnknownFields {
		checkUnknown(raw, taskFields, "", c)
	}

	task := &Task{
		modelName: requiredText(raw, fieldModelName, fieldModelName, c),
		taskID:    requiredText(raw, fieldTaskID, fieldTaskID, c),
		language:  optionalText(raw, fieldLanguage, fieldLanguage, c),
	}
	if strings.TrimSpace(task.language) == "" {
		task.language = opts.DefaultLanguage
	}
	task.turns = parseScenario(raw, opts, c)

	if err := c.result(); err != nil {
		return nil, err
	}
	return task, nil
}

func parseScenario(raw map[string]any, opts ParseOptions, c *issueCollector) []Turn {
	value, ok := raw[fieldDialogueScenario]
	if !ok || value == nil {
		c.add(fieldDialogueScenario, ConstraintMissing, "is required")
		return nil
	}
	items, ok := value.([]any)
	if !ok {
		c.add(fieldDialogueScenario, ConstraintWrongType, fmt.Sprintf("must be a list, got %s", typeName(value)))
		return nil
	}
	if len(items) == 0 {
		c.add(fieldDialogueScenario, ConstraintEmpty, "must include at least one turn")
		return nil
	}

	turns := make([]Turn, 0, len(items))
	for i, item := range items {
		prefix := fmt.Sprintf("%s[%d]", fieldDialogueScenario, i)
		entry, ok := asMap(item)
		if !ok {
			c.add(prefix, ConstraintWrongType, fmt.Sprintf("must be a mapping, got %s", typeName(item)))
			continue
		}
		if !opts.AllowUnknownFields {
			checkUnknown(entry, turnFields, prefix+".", c)
		}
		turn := Turn{
			UserPrompt: requiredText(entry, fieldUserPrompt, prefix+"."+fieldUserPrompt, c),
		}
		if ref, present := optionalRef(entry, fieldExpectedResponse, prefix+"."+fieldExpectedResponse, c); present {
			turn.ExpectedResponse = &ref
		}
		turns = append(turns, turn)
	}
	return turns
}

// requiredText reads a non-blank string field.
func requiredText(m map[string]any, key, path string, c *issueCollector) string {
	value, ok := m[key]
	if !ok || value == nil {
		c.add(path, ConstraintMissing, "is required")
		return ""
	}
	s, ok := value.(string)
	if !ok {
		c.add(path, ConstraintWrongType, fmt.Sprintf("must be a string, got %s", typeName(value)))
		return ""
	}
	if strings.TrimSpace(s) == "" {
		c.add(path, ConstraintBlank, "must not be empty or whitespace-only")
		return ""
	}
	return s
}

// optionalText reads a string field that may be absent.
func optionalText(m map[string]any, key, path string, c *issueCollector) string {
	value, ok := m[key]
	if !ok || value == nil {
		return ""
	}
	s, ok := value.(string)
	if !ok {
		c.add(path, ConstraintWrongType, fmt.Sprintf("must be a string, got %s", typeName(value)))
		return ""
	}
	return s
}

// optionalRef reads an optional reference text; an explicit null counts as absent.
func optionalRef(m map[string]any, key, path string, c *issueCollector) (string, bool) {
	value, ok := m[key]
	if !ok || value == nil {
		return "", false
	}
	s, ok := value.(string)
	if !ok {
		c.add(path, ConstraintWrongType, fmt.Sprintf("must be a string, got %s", typeName(value)))
		return "", false
	}
	return s, true
}

func checkUnknown(m map[string]any, known map[string]struct{}, prefix string, c *issueCollector) {
	keys := make([]string, 0, len(m))
	for k := range m {
		if _, ok := known[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		c.add(prefix+k, ConstraintUnknownField, "is not a known field")
	}
}

// asMap accepts both string-keyed maps and the map[any]any shape some
// decoders produce for nested mappings.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	default:
		return nil, false
	}
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "bool"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "integer"
	case float32, float64:
		return "number"
	case []any:
		return "list"
	case map[string]any, map[any]any:
		return "mapping"
	default:
		return fmt.Sprintf("%T", v)
	}
}
