package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

const banner = `
  منصة ميزان (Mizan Platform)
  ---------------------------------
  إطار عمل مفتوح المصدر لتقييم نماذج اللغة العربية الكبيرة.
  Mizan CLI: Ready for systematic Arabic LLM evaluation.

  استخدم mizan --help لعرض الأوامر المتاحة.
`

const mizanLongDesc string = `Mizan is an evaluation harness for Arabic LLMs and AI agents.

It drives a model through a declarative multi-turn dialogue and records every
response next to its expected reference.

Run tasks using:
  mizan run -c task.yaml        Evaluate one or more task files
  mizan validate -c task.yaml   Check task files without running them`

const mizanShortDesc string = "Mizan Platform CLI: Evaluation framework for Arabic LLMs and AI Agents."

// NewMizanCmd builds the root command.
func NewMizanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "mizan",
		Short:         mizanShortDesc,
		Long:          mizanLongDesc,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprint(cmd.OutOrStdout(), banner)
			return err
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("settings", "", "Path to a mizan.yaml settings file")

	// Add subcommands
	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewValidateCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}
