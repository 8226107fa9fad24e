package tui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/zenevo/shirodhara/internal/version"
)

// AppName is shown in the dashboard header
const AppName = "SHIRODHARA"

// Layout constants for responsive terminal width
const (
	MinTerminalWidth = 60  // Minimum supported terminal width
	MaxContentWidth  = 100 // Maximum content width before capping
	defaultHeight    = 24
)

// Color palette
var (
	PrimaryColor = lipgloss.Color("#7D56F4") // Purple - headers, borders
	SuccessColor = lipgloss.Color("#43BF6D") // Green - ready, completed
	WarningColor = lipgloss.Color("#FFA500") // Orange - heating
	ErrorColor   = lipgloss.Color("#FF5555") // Red
	SubtleColor  = lipgloss.Color("#626262") // Gray
	TextColor    = lipgloss.Color("#FFFFFF") // White
)

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	LabelStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			Width(16)

	ValueStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	// FocusedValueStyle marks the parameter being edited
	FocusedValueStyle = lipgloss.NewStyle().
				Foreground(PrimaryColor).
				Bold(true)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor)

	ErrorTextStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)

	SubtleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	// TimerStyle renders the remaining treatment time
	TimerStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Bold(true).
			Padding(0, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(SuccessColor)
)

// stateColor picks the banner color for a state kind name.
func stateColor(kind string) lipgloss.Color {
	switch kind {
	case "Heating":
		return WarningColor
	case "Ready", "InProgress", "Completed":
		return SuccessColor
	case "Error":
		return ErrorColor
	default:
		return SubtleColor
	}
}

// StateBannerStyle returns the bordered banner style for a state
func StateBannerStyle(kind string, width int) lipgloss.Style {
	c := stateColor(kind)
	return lipgloss.NewStyle().
		Foreground(c).
		Bold(true).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(c).
		Width(width-6).
		Padding(0, 1)
}

// terminalSize returns the current terminal size, clamped to the layout limits.
func terminalSize() (int, int) {
	width, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return MinTerminalWidth, defaultHeight
	}
	return clampWidth(width), height
}

func clampWidth(width int) int {
	if width < MinTerminalWidth {
		return MinTerminalWidth
	}
	if width > MaxContentWidth {
		return MaxContentWidth
	}
	return width
}

// renderContainer wraps a screen in the application frame: header with name
// and version, content, and a footer with help text.
func renderContainer(content, footer string, width int) string {
	width = clampWidth(width)

	header := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Foreground(TextColor).Bold(true).Render(AppName),
		" ",
		SubtleStyle.Render("v"+version.Get().Version),
	)

	section := func(border lipgloss.Border) lipgloss.Style {
		return lipgloss.NewStyle().
			BorderStyle(border).
			BorderForeground(PrimaryColor).
			Width(width-4).
			Padding(0, 1)
	}

	inner := lipgloss.JoinVertical(lipgloss.Left,
		section(lipgloss.Border{Bottom: "─"}).Render(header),
		lipgloss.NewStyle().Width(width-4).Padding(1, 1).Render(content),
		section(lipgloss.Border{Top: "─"}).Render(SubtleStyle.Render(footer)),
	)

	return lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(PrimaryColor).
		Width(width - 2).
		Render(inner)
}
