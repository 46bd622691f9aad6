package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/homefix-assistant/server/internal/agent/escalation"
)

const alertTitle = "Professional Assistance Recommended"

var (
	criticalColor = lipgloss.Color("#EF4444")
	highColor     = lipgloss.Color("#F97316")
	defaultColor  = lipgloss.Color("#3B82F6")

	alertTitleStyle = lipgloss.NewStyle().
			Bold(true)

	assistantStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#10B981"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))
)

func borderColor(sev escalation.Severity) lipgloss.Color {
	switch sev {
	case escalation.Critical:
		return criticalColor
	case escalation.High:
		return highColor
	default:
		return defaultColor
	}
}

// RenderAlert draws the escalation panel. The border color follows the
// verdict severity.
func RenderAlert(v escalation.Verdict, advisory string) string {
	color := borderColor(v.Severity)

	var b strings.Builder
	b.WriteString(alertTitleStyle.Foreground(color).Render(alertTitle))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Severity: " + strings.ToUpper(v.Severity.String())))
	b.WriteString("\n")
	for _, r := range v.Reasons {
		b.WriteString("\n• " + r)
	}
	if advisory != "" {
		b.WriteString("\n\n" + advisory)
	}

	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(0, 1)
	return panel.Render(b.String())
}
