package auditviewer

import (
	"github.com/charmbracelet/lipgloss"
)

// Color palette, consistent across the airlock TUI surfaces
var (
	ColorPrimary   = lipgloss.Color("#8B5CF6") // Violet
	ColorSecondary = lipgloss.Color("#06B6D4") // Cyan
	ColorSuccess   = lipgloss.Color("#10B981") // Emerald
	ColorWarning   = lipgloss.Color("#F59E0B") // Amber
	ColorError     = lipgloss.Color("#EF4444") // Red
	ColorFatal     = lipgloss.Color("#DC2626") // Dark Red
	ColorDimmed    = lipgloss.Color("#374151") // Dark Gray

	ColorBgPanel   = lipgloss.Color("#1E293B") // Slate 800
	ColorText      = lipgloss.Color("#F8FAFC") // Slate 50
	ColorTextMuted = lipgloss.Color("#94A3B8") // Slate 400
	ColorTextDim   = lipgloss.Color("#64748B") // Slate 500
)

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorDimmed).
			Padding(0, 1)

	StatusBarStyle = lipgloss.NewStyle().
			Background(ColorBgPanel).
			Foreground(ColorText).
			Padding(0, 1)

	HelpStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			MarginTop(1)

	HelpKeyStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	TimestampStyle = lipgloss.NewStyle().
			Foreground(ColorTextDim)

	PlanIDStyle = lipgloss.NewStyle().
			Foreground(ColorSecondary)

	SummaryStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	FilterActiveStyle = lipgloss.NewStyle().
				Foreground(ColorSuccess).
				Bold(true)

	FilterInactiveStyle = lipgloss.NewStyle().
				Foreground(ColorTextDim)

	PausedStyle = lipgloss.NewStyle().
			Foreground(ColorWarning).
			Bold(true)
)

var (
	kindIntentStyle = lipgloss.NewStyle().Foreground(ColorTextMuted).Bold(true)
	kindPlanStyle   = lipgloss.NewStyle().Foreground(ColorSecondary).Bold(true)
	kindReportStyle = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	kindResultStyle = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)

	statusOKStyle     = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	statusWarnStyle   = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	statusFailStyle   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	statusFatalStyle  = lipgloss.NewStyle().Foreground(ColorFatal).Background(lipgloss.Color("#450A0A")).Bold(true)
	statusNeutralStyle = lipgloss.NewStyle().Foreground(ColorTextMuted)
)

// RenderKindBadge renders the record kind column.
func RenderKindBadge(kind string) string {
	switch kind {
	case "intent":
		return kindIntentStyle.Render("[INTENT]")
	case "plan":
		return kindPlanStyle.Render("[PLAN]  ")
	case "report":
		return kindReportStyle.Render("[REPORT]")
	case "result":
		return kindResultStyle.Render("[RESULT]")
	default:
		return statusNeutralStyle.Render("[" + kind + "]")
	}
}

// RenderStatus renders a pipeline status with its severity color.
func RenderStatus(status string) string {
	switch status {
	case "SUCCEEDED", "SUCCESS":
		return statusOKStyle.Render(status)
	case "BLOCKED", "UNSAFE":
		return statusWarnStyle.Render(status)
	case "FAILED_ROLLED_BACK":
		return statusFailStyle.Render(status)
	case "FAILED_NO_ROLLBACK":
		return statusFatalStyle.Render(status)
	case "":
		return ""
	default:
		return statusNeutralStyle.Render(status)
	}
}

// RenderKeyHint renders a keyboard shortcut hint
func RenderKeyHint(key, description string) string {
	return HelpKeyStyle.Render(key) + " " + HelpStyle.Render(description)
}

// RenderFilterStatus renders a filter indicator
func RenderFilterStatus(name string, active bool) string {
	if active {
		return FilterActiveStyle.Render(name)
	}
	return FilterInactiveStyle.Render(name)
}
