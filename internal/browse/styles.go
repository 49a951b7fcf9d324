package browse

import "github.com/charmbracelet/lipgloss"

// ─── Colors (carried from the Engram Elephant palette) ────────────────────

var (
	colorBase     = lipgloss.Color("#191724")
	colorOverlay  = lipgloss.Color("#6e6a86")
	colorText     = lipgloss.Color("#e0def4")
	colorSubtext  = lipgloss.Color("#908caa")
	colorLavender = lipgloss.Color("#c4a7e7")
	colorGreen    = lipgloss.Color("#9ccfd8")
	colorRed      = lipgloss.Color("#eb6f92")
)

var (
	appStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorLavender).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(colorOverlay).
			PaddingBottom(1).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(colorSubtext).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true).
			Padding(0, 1)

	statNumberStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorGreen).
			Width(8).
			Align(lipgloss.Right)

	statLabelStyle = lipgloss.NewStyle().
			Foreground(colorText).
			PaddingLeft(2)

	statCardStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(colorOverlay).
			Padding(1, 2).
			MarginBottom(1)

	resultItemStyle = lipgloss.NewStyle().
			Foreground(colorText).
			PaddingLeft(2)

	resultSelectedStyle = lipgloss.NewStyle().
				Foreground(colorBase).
				Background(colorLavender).
				PaddingLeft(2).
				Bold(true)

	kindTagStyle = lipgloss.NewStyle().
			Foreground(colorSubtext)
)
