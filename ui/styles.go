package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	runewidth "github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/indent"
)

var (
	normalDim = lipgloss.AdaptiveColor{Light: "#A49FA5", Dark: "#777777"}
	gray      = lipgloss.AdaptiveColor{Light: "#909090", Dark: "#626262"}
	midGray   = lipgloss.AdaptiveColor{Light: "#B2B2B2", Dark: "#4A4A4A"}
	darkGray  = lipgloss.AdaptiveColor{Light: "#DDDADA", Dark: "#3C3C3C"}
	brightRed = lipgloss.AdaptiveColor{Light: "#FF5F87", Dark: "#FF6B9B"}
	green     = lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#04B575"}
	cream     = lipgloss.AdaptiveColor{Light: "#FFFDF5", Dark: "#FFFDF5"}
	yellow    = lipgloss.AdaptiveColor{Light: "#CFAA00", Dark: "#ECFD66"}
	fuchsia   = lipgloss.AdaptiveColor{Light: "#EE6FF8", Dark: "#EE6FF8"}
	amber     = lipgloss.AdaptiveColor{Light: "#9A6700", Dark: "#F5A524"}
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(cream).
			Background(green).
			Bold(true).
			Padding(0, 1)

	subtitleStyle = lipgloss.NewStyle().Foreground(gray)

	subtleStyle = lipgloss.NewStyle().Foreground(midGray)

	pickerTitleStyle = lipgloss.NewStyle().Foreground(gray).Bold(true)

	pickerFocusedTitleStyle = lipgloss.NewStyle().Foreground(fuchsia).Bold(true)

	pickerCursorStyle = lipgloss.NewStyle().Foreground(fuchsia)

	pickerSelectedStyle = lipgloss.NewStyle().Foreground(green)

	pickerDetailStyle = lipgloss.NewStyle().Foreground(normalDim)

	previewTitleStyle = lipgloss.NewStyle().Bold(true)

	buttonStyle = lipgloss.NewStyle().
			Foreground(cream).
			Background(green).
			Padding(0, 2)

	buttonDisabledStyle = lipgloss.NewStyle().
				Foreground(gray).
				Background(darkGray).
				Padding(0, 2)

	errorTitleStyle = lipgloss.NewStyle().
			Foreground(cream).
			Background(brightRed).
			Padding(0, 1)

	errorBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(brightRed).
			Foreground(brightRed).
			Padding(0, 1)

	setupBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(amber).
			Foreground(amber).
			Padding(0, 1)

	resultHeaderStyle = lipgloss.NewStyle().Foreground(green).Bold(true)

	speechControlStyle = lipgloss.NewStyle().Foreground(yellow)

	footerStyle = lipgloss.NewStyle().Foreground(normalDim)

	logoStyle = lipgloss.NewStyle().
			Foreground(cream).
			Background(green).
			Bold(true)
)

func logoView() string {
	return logoStyle.Render(" Health Guide ")
}

// indentLines indents every line of s by n spaces.
func indentLines(s string, n int) string {
	if n <= 0 || s == "" {
		return s
	}
	return indent.String(s, uint(n)) //nolint:gosec
}

// pad fills every line of the unstyled string s up to width so background
// colors reach the edge.
func pad(s string, width int) string {
	if width <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		n := max(width-runewidth.StringWidth(l), 0)
		lines[i] = l + strings.Repeat(" ", n)
	}
	return strings.Join(lines, "\n")
}
