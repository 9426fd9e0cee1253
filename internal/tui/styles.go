package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	Primary = lipgloss.Color("#2DB682") // Green
	Muted   = lipgloss.Color("#6B7280") // Gray
	Warning = lipgloss.Color("#F59E0B") // Amber
	Error   = lipgloss.Color("#EF4444") // Red
	White   = lipgloss.Color("#FFFFFF")

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Subtitle = lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true)

	// Status bar
	StatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("#1F2937")).
			Foreground(White).
			Padding(0, 1)

	StatusError = lipgloss.NewStyle().
			Foreground(Error)

	// Side panel
	Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#1F4D3C")).
		Padding(0, 1)

	PanelLabel = lipgloss.NewStyle().
			Foreground(Muted)

	Relation = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A0AEC0"))

	ResultActive = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	Empty = lipgloss.NewStyle().
		Foreground(Muted).
		Italic(true)
)

// Swatch renders text in a sprite's hex color.
func Swatch(hex string, bold bool) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(hex)).Bold(bold)
}
