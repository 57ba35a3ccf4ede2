package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	pinRed    = lipgloss.Color("#E60023")
	softRose  = lipgloss.Color("#F5A3B4")
	leafGreen = lipgloss.Color("#2EAD5B")
	amber     = lipgloss.Color("#F2A900")
	paper     = lipgloss.Color("#EFEFEF")
	slate     = lipgloss.Color("#8E8E8E")

	titleStyle = lipgloss.NewStyle().
			Foreground(pinRed).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(softRose)

	valueStyle = lipgloss.NewStyle().
			Foreground(paper)

	successStyle = lipgloss.NewStyle().
			Foreground(leafGreen).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(pinRed).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(amber)

	dimStyle = lipgloss.NewStyle().
			Foreground(slate).
			Faint(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(pinRed).
			Padding(0, 1)
)
