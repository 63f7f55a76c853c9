package browser

import "github.com/charmbracelet/lipgloss"

var (
	accent = lipgloss.AdaptiveColor{Light: "#005FAF", Dark: "#5FAFFF"}
	muted  = lipgloss.AdaptiveColor{Light: "#808080", Dark: "#6C6C6C"}
	red    = lipgloss.AdaptiveColor{Light: "#AF0000", Dark: "#FF5F5F"}
	purple = lipgloss.AdaptiveColor{Light: "#8700AF", Dark: "#D787FF"}

	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(accent)
	mutedStyle    = lipgloss.NewStyle().Foreground(muted)
	errorStyle    = lipgloss.NewStyle().Foreground(red)
	folderStyle   = lipgloss.NewStyle().Bold(true).Foreground(accent)
	charStyle     = lipgloss.NewStyle().Foreground(purple)
	cursorStyle   = lipgloss.NewStyle().Bold(true).Foreground(accent)
	selectedStyle = lipgloss.NewStyle().Reverse(true)

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 1)
)
