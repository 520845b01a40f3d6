package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hupe1980/mizan/runner"
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	turnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	scoreStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// renderResult prints the turns and final status of one run.
func renderResult(w io.Writer, source string, res *runner.Result) {
	fmt.Fprintf(w, "\n%s %s\n", headerStyle.Render("Task:"), res.TaskID)
	fmt.Fprintf(w, "%s\n", dimStyle.Render(fmt.Sprintf("source=%s model=%s language=%s run=%s",
		source, res.ModelName, res.Language, res.RunID)))

	for _, tr := range res.Turns {
		fmt.Fprintf(w, "\n%s\n", turnStyle.Render(fmt.Sprintf("--- Turn %d ---", tr.Index+1)))
		fmt.Fprintf(w, "%s %s\n", labelStyle.Render("USER PROMPT:"), tr.Prompt)
		fmt.Fprintf(w, "%s %s\n", labelStyle.Render("LLM RESPONSE:"), tr.Response)
		if tr.Reference != nil {
			fmt.Fprintf(w, "%s %s\n", labelStyle.Render("EXPECTED:"), *tr.Reference)
		}
		switch {
		case tr.ScoreError != "":
			fmt.Fprintf(w, "%s %s\n", labelStyle.Render("SCORE ERROR:"), tr.ScoreError)
		case len(tr.Scores) > 0:
			fmt.Fprintf(w, "%s %s\n", labelStyle.Render("SCORES:"), scoreStyle.Render(formatScores(tr.Scores)))
		}
	}

	if res.Completed() {
		fmt.Fprintf(w, "\n%s %s\n", okStyle.Render("✅ Completed"),
			dimStyle.Render(fmt.Sprintf("(%d turns in %s)", len(res.Turns), res.Duration())))
		return
	}
	fmt.Fprintf(w, "\n%s %s\n", failStyle.Render(fmt.Sprintf("❌ Failed (%s)", res.Reason)), res.ErrorMessage())
}

func formatScores(scores map[string]float64) string {
	names := make([]string, 0, len(scores))
	for name := range scores {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%.3f", name, scores[name]))
	}
	return strings.Join(parts, " ")
}
