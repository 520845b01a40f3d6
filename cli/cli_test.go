package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewMizanCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeTask(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const echoTask = `
model_name: echo
task_id: echo_task
dialogue_scenario:
  - user_prompt: hi
  - user_prompt: bye
    expected_response: echo:bye
`

func TestRoot_Banner(t *testing.T) {
	out, err := execute(t)
	require.NoError(t, err)
	assert.Contains(t, out, "Mizan CLI: Ready for systematic Arabic LLM evaluation.")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "mizan version 0.1.0-alpha\n", out)
}

func TestRun_Echo(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := writeTask(t, dir, "task.yaml", echoTask)

	out, err := execute(t, "run", "-c", path)
	require.NoError(t, err)
	assert.Contains(t, out, "echo_task")
	assert.Contains(t, out, "echo:hi")
	assert.Contains(t, out, "Completed")
	assert.Contains(t, out, "completed successfully")
}

func TestRun_DefaultConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeTask(t, dir, DefaultTaskFile, echoTask)

	out, err := execute(t, "run")
	require.NoError(t, err)
	assert.Contains(t, out, DefaultTaskFile)
}

func TestRun_MissingFileFails(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	out, err := execute(t, "run", "-c", filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, ErrRunsFailed)
	assert.Contains(t, out, "configuration file not found")
}

func TestRun_BackendFlagAndSQLiteStore(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := writeTask(t, dir, "task.json",
		`{"model_name": "some/model", "task_id": "sim", "language": "Gulf Arabic",
		  "dialogue_scenario": [{"user_prompt": "مرحبا"}]}`)

	out, err := execute(t, "run", "-c", path, "--backend", "simulated",
		"--store", "sqlite", "--dsn", filepath.Join(dir, "runs.db"))
	require.NoError(t, err)
	assert.Contains(t, out, "Simulated LLM Response for Turn 1 in Gulf Arabic.")
	assert.FileExists(t, filepath.Join(dir, "runs.db"))
}

func TestRun_AcquisitionFailureExitsNonZero(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("MIZAN_OPENAI_API_KEY", "")
	path := writeTask(t, dir, "task.yaml", `
model_name: openai:gpt-4o-mini
task_id: hosted
dialogue_scenario:
  - user_prompt: hi
`)

	out, err := execute(t, "run", "-c", path)
	assert.ErrorIs(t, err, ErrRunsFailed)
	assert.Contains(t, out, "Failed (acquisition)")
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	good := writeTask(t, dir, "good.yaml", echoTask)
	bad := writeTask(t, dir, "bad.yaml", `
model_name: echo
task_id: bad
dialogue_scenario:
  - user_prompt: "  "
`)

	out, err := execute(t, "validate", "-c", good)
	require.NoError(t, err)
	assert.Contains(t, out, "turns=2")

	out, err = execute(t, "validate", "-c", good, "-c", bad)
	assert.ErrorIs(t, err, ErrInvalidTasks)
	assert.Contains(t, out, "dialogue_scenario[0].user_prompt")
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
