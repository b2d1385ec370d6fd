package tui

import (
	"github.com/charmbracelet/lipgloss"

	"unityrunner/internal/report"
)

var (
	// HeaderStyle styles the column header row.
	HeaderStyle = lipgloss.NewStyle().Bold(true)

	// BlockStyle styles block open/close markers in console output.
	BlockStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)

	statusStyles = map[string]lipgloss.Style{
		"success":  lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		"running":  lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		"failed":   lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		"error":    lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		"canceled": lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		"pending":  lipgloss.NewStyle().Faint(true),
	}

	severityStyles = map[report.Severity]lipgloss.Style{
		report.SeverityNormal:  lipgloss.NewStyle(),
		report.SeverityWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		report.SeverityError:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	}
)

// StatusStyle returns the lipgloss style for the given status string.
func StatusStyle(status string) lipgloss.Style {
	if s, ok := statusStyles[status]; ok {
		return s
	}
	return lipgloss.NewStyle()
}

// SeverityStyle returns the style for a classified output line.
func SeverityStyle(s report.Severity) lipgloss.Style {
	if st, ok := severityStyles[s]; ok {
		return st
	}
	return lipgloss.NewStyle()
}
