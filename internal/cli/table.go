package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ConserveLee/mapwalk/internal/journal"
	"github.com/charmbracelet/lipgloss"
)

const tablePadding = 2

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	busyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	mutedStyle  = lipgloss.NewStyle().Faint(true)
)

func writeTable(out io.Writer, headers []string, rows [][]string) error {
	writer := tabwriter.NewWriter(out, 0, 0, tablePadding, ' ', tabwriter.StripEscape)
	if len(headers) > 0 {
		styled := make([]string, len(headers))
		for i, h := range headers {
			styled[i] = headerStyle.Render(h)
		}
		fmt.Fprintln(writer, strings.Join(styled, "\t"))
	}
	for _, row := range rows {
		fmt.Fprintln(writer, strings.Join(row, "\t"))
	}
	return writer.Flush()
}

func formatRunStatus(status journal.RunStatus) string {
	switch status {
	case journal.RunFinished:
		return okStyle.Render("OK " + string(status))
	case journal.RunRunning:
		return busyStyle.Render("BUSY " + string(status))
	case journal.RunStopped:
		return warnStyle.Render("WARN " + string(status))
	default:
		return errorStyle.Render("ERR " + string(status))
	}
}

func formatOutcome(outcome journal.Outcome) string {
	switch outcome {
	case journal.OutcomeOK:
		return okStyle.Render(string(outcome))
	case journal.OutcomeStopped:
		return warnStyle.Render(string(outcome))
	default:
		return errorStyle.Render(string(outcome))
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatDuration(d time.Duration) string {
	return d.Round(10 * time.Millisecond).String()
}

func orDash(s string) string {
	if s == "" {
		return mutedStyle.Render("-")
	}
	return s
}
