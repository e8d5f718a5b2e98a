package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

// Theme holds the styled components for the UI.
type Theme struct {
	Accent  lipgloss.Color
	Muted   lipgloss.Color
	Error   lipgloss.Color
	Warning lipgloss.Color

	GradientStart lipgloss.Color
	GradientEnd   lipgloss.Color

	Title      lipgloss.Style
	Breadcrumb lipgloss.Style
	StatusBar  lipgloss.Style
	SelectedRow lipgloss.Style
	Cursor      lipgloss.Style
	DirName     lipgloss.Style
	FileName    lipgloss.Style
	AggName     lipgloss.Style
	SizeText    lipgloss.Style
	PercentText lipgloss.Style
	ErrorText   lipgloss.Style
	Spinner     lipgloss.Style
}

// DefaultTheme returns the default dark theme.
func DefaultTheme() Theme {
	t := Theme{
		Accent:  lipgloss.Color("#61AFEF"),
		Muted:   lipgloss.Color("#6C7086"),
		Error:   lipgloss.Color("#E06C75"),
		Warning: lipgloss.Color("#E5C07B"),

		GradientStart: lipgloss.Color("#7B2FBE"),
		GradientEnd:   lipgloss.Color("#00D4AA"),
	}

	t.Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#CDD6F4")).
		Background(lipgloss.Color("#282A36"))

	t.Breadcrumb = lipgloss.NewStyle().
		Foreground(t.Muted)

	t.StatusBar = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#BAC2DE")).
		Background(lipgloss.Color("#282A36"))

	t.SelectedRow = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#4A4A6A"))

	t.Cursor = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#7B2FBE")).
		Bold(true)

	t.DirName = lipgloss.NewStyle().
		Foreground(t.Accent).
		Bold(true)

	t.FileName = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#BAC2DE"))

	t.AggName = lipgloss.NewStyle().
		Foreground(t.Muted).
		Italic(true)

	t.SizeText = lipgloss.NewStyle().
		Foreground(t.Muted).
		Align(lipgloss.Right)

	t.PercentText = lipgloss.NewStyle().
		Foreground(t.Muted).
		Width(6).
		Align(lipgloss.Right)

	t.ErrorText = lipgloss.NewStyle().
		Foreground(t.Error)

	t.Spinner = lipgloss.NewStyle().
		Foreground(t.Accent)

	return t
}

// Bar renders a per-character gradient usage bar.
func (t Theme) Bar(width int, ratio float64) string {
	if width <= 0 {
		return ""
	}
	if ratio < 0 {
		ratio = 0
	}
	filled := int(ratio * float64(width))
	if filled > width {
		filled = width
	}

	var buf strings.Builder
	c1, _ := colorful.Hex(string(t.GradientStart))
	c2, _ := colorful.Hex(string(t.GradientEnd))

	for i := 0; i < filled; i++ {
		pos := float64(i) / float64(maxInt(width-1, 1))
		blended := c1.BlendLab(c2, pos)
		buf.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(blended.Hex())).Render("━"))
	}
	if filled < width {
		dim := lipgloss.NewStyle().Foreground(t.Muted)
		buf.WriteString(dim.Render(strings.Repeat("─", width-filled)))
	}
	return buf.String()
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
