package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/mizan/dialogue"
)

// TaskBuilder helps construct tasks with fluent chaining for tests.
// Example:
//
//	task := NewTaskBuilder("echo").Turn("hi").TurnWithReference("bye", "ciao").Build(t)
type TaskBuilder struct {
	modelName string
	taskID    string
	language  string
	turns     []dialogue.Turn
}

// NewTaskBuilder creates a builder for a task against modelName with id "test-task".
func NewTaskBuilder(modelName string) *TaskBuilder {
	return &TaskBuilder{modelName: modelName, taskID: "test-task"}
}

// ID overrides the task id (chainable).
func (b *TaskBuilder) ID(id string) *TaskBuilder { b.taskID = id; return b }

// Language sets the dialogue language (chainable).
func (b *TaskBuilder) Language(l string) *TaskBuilder { b.language = l; return b }

// Turn appends a turn without a reference response (chainable).
func (b *TaskBuilder) Turn(prompt string) *TaskBuilder {
	b.turns = append(b.turns, dialogue.Turn{UserPrompt: prompt})
	return b
}

// TurnWithReference appends a turn carrying an expected response (chainable).
func (b *TaskBuilder) TurnWithReference(prompt, reference string) *TaskBuilder {
	b.turns = append(b.turns, dialogue.Turn{UserPrompt: prompt, ExpectedResponse: &reference})
	return b
}

// Build returns the validated task, failing the test on schema errors.
func (b *TaskBuilder) Build(t testing.TB) *dialogue.Task {
	t.Helper()
	task, err := dialogue.NewTask(b.modelName, b.taskID, b.language, b.turns)
	require.NoError(t, err)
	return task
}

// Raw returns the task as the untyped map a decoded configuration file yields.
func (b *TaskBuilder) Raw() map[string]any {
	scenario := make([]any, 0, len(b.turns))
	for _, turn := range b.turns {
		entry := map[string]any{"user_prompt": turn.UserPrompt}
		if turn.ExpectedResponse != nil {
			entry["expected_response"] = *turn.ExpectedResponse
		}
		scenario = append(scenario, entry)
	}
	raw := map[string]any{
		"model_name":        b.modelName,
		"task_id":           b.taskID,
		"dialogue_scenario": scenario,
	}
	if b.language != "" {
		raw["language"] = b.language
	}
	return raw
}
