package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/mizan/dialogue"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func requireConfigError(t *testing.T, err error, reason Reason) *ConfigurationError {
	t.Helper()
	require.Error(t, err)
	var cerr *ConfigurationError
	require.True(t, errors.As(err, &cerr), "expected *ConfigurationError, got %T", err)
	assert.Equal(t, reason, cerr.Reason)
	return cerr
}

const sampleYAML = `model_name: meta-llama/Meta-Llama-3-8B-Instruct
task_id: cultural_test_001
dialogue_scenario:
  - user_prompt: "ما هي عاصمة المغرب؟"
    expected_response: "الرباط"
  - user_prompt: "وما هي أكبر مدنها؟"
`

func TestLoadTask_YAML(t *testing.T) {
	path := writeFile(t, "task.yaml", sampleYAML)

	task, err := LoadTask(path)
	require.NoError(t, err)
	assert.Equal(t, "cultural_test_001", task.ID())
	assert.Equal(t, dialogue.DefaultLanguage, task.Language())
	assert.Equal(t, 2, task.Len())
}

func TestLoadTask_JSON(t *testing.T) {
	path := writeFile(t, "task.json", `{"model_name":"echo","task_id":"j1","language":"Arabic","dialogue_scenario":[{"user_prompt":"hi"}]}`)

	task, err := LoadTask(path)
	require.NoError(t, err)
	assert.Equal(t, "j1", task.ID())
	assert.Equal(t, "hi", task.Turn(0).UserPrompt)
}

func TestLoadTask_DefaultLanguageOption(t *testing.T) {
	path := writeFile(t, "task.yaml", sampleYAML)

	task, err := LoadTask(path, func(o *Options) { o.DefaultLanguage = "Levantine Arabic" })
	require.NoError(t, err)
	assert.Equal(t, "Levantine Arabic", task.Language())
}

func TestLoadTask_MissingFile(t *testing.T) {
	_, err := LoadTask(filepath.Join(t.TempDir(), "missing.yaml"))
	cerr := requireConfigError(t, err, ReasonMissingFile)
	assert.Contains(t, cerr.Error(), "missing.yaml")
}

func TestLoadTask_Malformed(t *testing.T) {
	cases := map[string]string{
		"syntax":   "model_name: [unterminated",
		"empty":    "",
		"sequence": "- a\n- b\n",
		"multi":    "model_name: a\n---\nmodel_name: b\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, "task.yaml", content)
			_, err := LoadTask(path)
			requireConfigError(t, err, ReasonMalformed)
		})
	}
}

func TestLoadTask_SchemaViolationWrapsValidationError(t *testing.T) {
	path := writeFile(t, "task.yaml", "model_name: echo\ntask_id: t\ndialogue_scenario: []\n")

	_, err := LoadTask(path)
	requireConfigError(t, err, ReasonSchemaViolation)

	var verr *dialogue.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("dialogue_scenario", dialogue.ConstraintEmpty))
}

func TestValidate_InMemory(t *testing.T) {
	_, err := Validate(map[string]any{"model_name": "echo"})
	cerr := requireConfigError(t, err, ReasonSchemaViolation)
	assert.Contains(t, cerr.Error(), "task_id")

	task, err := Validate(map[string]any{
		"model_name":        "echo",
		"task_id":           "t",
		"dialogue_scenario": []any{map[string]any{"user_prompt": "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "echo", task.ModelName())
}

func TestSettings_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	v, err := InitViper("")
	require.NoError(t, err)
	s, err := LoadSettings(v)
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)
}

func TestSettings_FileAndEnv(t *testing.T) {
	path := writeFile(t, "mizan.yaml", `default_language: Gulf Arabic
backend: openai
turn_timeout: 30s
log:
  format: json
store:
  driver: sqlite
  dsn: runs.db
`)
	t.Setenv("MIZAN_CONCURRENCY", "8")
	t.Setenv("MIZAN_OPENAI_API_KEY", "sk-test")

	v, err := InitViper(path)
	require.NoError(t, err)
	s, err := LoadSettings(v)
	require.NoError(t, err)

	assert.Equal(t, "Gulf Arabic", s.DefaultLanguage)
	assert.Equal(t, "openai", s.Backend)
	assert.Equal(t, 30*time.Second, s.TurnTimeout)
	assert.Equal(t, "json", s.Log.Format)
	assert.Equal(t, "sqlite", s.Store.Driver)
	assert.Equal(t, "runs.db", s.Store.DSN)
	assert.Equal(t, 8, s.Concurrency)
	assert.Equal(t, "sk-test", s.OpenAI.APIKey)
}

func TestSettings_ExplicitFileMissing(t *testing.T) {
	_, err := InitViper(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestSettings_Validate(t *testing.T) {
	s := DefaultSettings()
	s.Concurrency = 0
	s.Log.Format = "xml"
	s.Store.Driver = "postgres"

	err := s.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "concurrency")
	assert.Contains(t, err.Error(), "log.format")
	assert.Contains(t, err.Error(), "store.driver")
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Fatal(err)
		}
	})
}
