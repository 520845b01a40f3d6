package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/mizan/config"
)

// ErrInvalidTasks is returned when at least one task file is rejected.
var ErrInvalidTasks = errors.New("one or more task files are invalid")

const validateLongDesc string = `Validate task files without acquiring a model.

Every file is decoded and checked against the dialogue schema; all problems
of a file are reported together.

Example:
  mizan validate -c task.yaml
  mizan validate -c a.yaml -c b.json`

const validateShortDesc string = "Validate Mizan task files"

// NewValidateCmd builds the validate command.
func NewValidateCmd() *cobra.Command {
	var configs []string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: validateShortDesc,
		Long:  validateLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			invalid := false
			for _, path := range configs {
				task, err := config.LoadTask(path, func(o *config.Options) {
					o.DefaultLanguage = settings.DefaultLanguage
				})
				if err != nil {
					invalid = true
					fmt.Fprintf(out, "%s %s\n%v\n", failStyle.Render("❌"), path, err)
					continue
				}
				fmt.Fprintf(out, "%s %s %s\n", okStyle.Render("✅"), path,
					dimStyle.Render(fmt.Sprintf("task=%s model=%s language=%s turns=%d",
						task.ID(), task.ModelName(), task.Language(), task.Len())))
			}
			if invalid {
				return ErrInvalidTasks
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&configs, "config", "c", []string{DefaultTaskFile},
		"Path to a Mizan task file (YAML/JSON); repeatable")

	return cmd
}
