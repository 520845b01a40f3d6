package dialogue

// DefaultLanguage is the language tag used when a task does not declare one.
const DefaultLanguage = "Arabic"

// Turn is one conversational stimulus with an optional reference answer.
type Turn struct {
	// UserPrompt is the text sent to the model. Never empty or whitespace-only.
	UserPrompt string `json:"user_prompt" yaml:"user_prompt"`
	// ExpectedResponse is the reference used for scoring; nil means the turn
	// has no reference and is left unscored.
	ExpectedResponse *string `json:"expected_response,omitempty" yaml:"expected_response,omitempty"`
}

// HasReference reports whether the turn carries an expected response.
func (t Turn) HasReference() bool { return t.ExpectedResponse != nil }

// Reference returns the expected response and whether one is present.
func (t Turn) Reference() (string, bool) {
	if t.ExpectedResponse == nil {
		return "", false
	}
	return *t.ExpectedResponse, true
}

// Task is a validated evaluation unit: a model identifier plus an ordered
// dialogue scenario.
type Task struct {
	modelName string
	taskID    string
	language  string
	turns     []Turn
}

// NewTask validates the given values and builds a Task. Blank language falls
// back to DefaultLanguage.
func NewTask(modelName, taskID, language string, turns []Turn) (*Task, error) {
	raw := map[string]any{
		fieldModelName: modelName,
		fieldTaskID:    taskID,
		fieldLanguage:  language,
	}
	scenario := make([]any, 0, len(turns))
	for _, t := range turns {
		item := map[string]any{fieldUserPrompt: t.UserPrompt}
		if t.ExpectedResponse != nil {
			item[fieldExpectedResponse] = *t.ExpectedResponse
		}
		scenario = append(scenario, item)
	}
	raw[fieldDialogueScenario] = scenario
	return Parse(raw)
}

// ModelName returns the identifier resolved by the model provider.
func (t *Task) ModelName() string { return t.modelName }

// ID returns the unique identifier of the evaluation run.
func (t *Task) ID() string { return t.taskID }

// Language returns the target natural language of the dialogue.
func (t *Task) Language() string { return t.language }

// Len returns the number of turns.
func (t *Task) Len() int { return len(t.turns) }

// Turn returns the turn at index i.
func (t *Task) Turn(i int) Turn { return copyTurn(t.turns[i]) }

// Turns returns a copy of the turns in conversation order.
func (t *Task) Turns() []Turn {
	out := make([]Turn, len(t.turns))
	for i, turn := range t.turns {
		out[i] = copyTurn(turn)
	}
	return out
}

func copyTurn(t Turn) Turn {
	if t.ExpectedResponse != nil {
		ref := *t.ExpectedResponse
		t.ExpectedResponse = &ref
	}
	return t
}
