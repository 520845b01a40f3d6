package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hupe1980/mizan"
	"github.com/hupe1980/mizan/config"
	"github.com/hupe1980/mizan/dialogue"
	"github.com/hupe1980/mizan/runner"
)

// DefaultTaskFile is read when run or validate get no --config flag.
const DefaultTaskFile = "mizan_config.yaml"

// ErrRunsFailed is returned when at least one task did not complete.
var ErrRunsFailed = errors.New("one or more evaluation runs failed")

const runLongDesc string = `Run Arabic LLM evaluation tasks.

Each task file (YAML or JSON) names a model and a dialogue scenario. The
model is driven through the turns in order; every response is printed next
to its expected reference. Several files run concurrently.

Model names resolve by prefix: openai:<model>, anthropic:<model>, echo and
simulated select a backend explicitly; any other name is served by the
configured default backend.

Example:
  mizan run
  mizan run -c tasks/greeting.yaml -c tasks/history.yaml --concurrency 2
  mizan run -c task.yaml --backend echo --store sqlite --dsn runs.db`

const runShortDesc string = "Run a new Arabic LLM evaluation task."

type runCommander struct {
	configs []string
	out     io.Writer
	errOut  io.Writer
}

// NewRunCmd builds the run command.
func NewRunCmd() *cobra.Command {
	cmder := &runCommander{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: runShortDesc,
		Long:  runLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.out = cmd.OutOrStdout()
			cmder.errOut = cmd.ErrOrStderr()

			settings, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			return cmder.run(cmd, settings)
		},
	}

	cmd.Flags().StringArrayVarP(&cmder.configs, "config", "c", []string{DefaultTaskFile},
		"Path to a Mizan task file (YAML/JSON); repeatable")
	cmd.Flags().String("backend", "", "Backend for model names without a backend prefix")
	cmd.Flags().String("store", "", "Result store driver (memory, sqlite)")
	cmd.Flags().String("dsn", "", "Result store location for the sqlite driver")
	cmd.Flags().Duration("timeout", 0, "Per-turn generation timeout (0 disables)")
	cmd.Flags().Int("concurrency", 0, "Number of tasks evaluated at once")
	cmd.Flags().Int("max-generations", 0, "Maximum generation calls per run (0 is unlimited)")
	cmd.Flags().String("language", "", "Language for tasks that do not declare one")

	return cmd
}

func (c *runCommander) run(cmd *cobra.Command, settings config.Settings) error {
	logger, err := newLogger(settings, c.errOut)
	if err != nil {
		return err
	}

	m, err := mizan.New(func(o *mizan.Options) {
		o.Settings = settings
		o.Logger = logger
	})
	if err != nil {
		return err
	}
	defer m.Close()

	fmt.Fprintf(c.out, "\n%s\n", headerStyle.Render("Mizan Evaluation Initiated..."))

	failed := false
	var (
		tasks   []*dialogue.Task
		sources []string
	)
	for _, path := range c.configs {
		fmt.Fprintf(c.out, "%s %s\n", labelStyle.Render("- Config Path:"), path)
		task, err := config.LoadTask(path, func(o *config.Options) {
			o.DefaultLanguage = settings.DefaultLanguage
		})
		if err != nil {
			failed = true
			fmt.Fprintf(c.out, "%s %v\n", failStyle.Render("❌ Error:"), err)
			continue
		}
		tasks = append(tasks, task)
		sources = append(sources, path)
	}

	results, _ := m.EvaluateAll(cmd.Context(), tasks)
	for i, res := range results {
		renderResult(c.out, sources[i], res)
		if res.Status != runner.StatusCompleted {
			failed = true
		}
	}

	if failed {
		fmt.Fprintf(c.out, "\n%s\n", failStyle.Render("❌ Mizan Evaluation Task failed."))
		return ErrRunsFailed
	}
	fmt.Fprintf(c.out, "\n%s\n", okStyle.Render("✅ Mizan Evaluation Task completed successfully."))
	return nil
}
