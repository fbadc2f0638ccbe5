package shell

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")) // Cyan

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // Red

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82")) // Green

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242"))
)
