package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/quilr/qonboard/onboard"
)

// Status glyphs, readable without colour.
const (
	GlyphOK   = "✓"
	GlyphWarn = "⚡"
	GlyphFail = "✗"
)

var (
	colorBlue   = lipgloss.Color("33")
	colorCyan   = lipgloss.Color("51")
	colorGreen  = lipgloss.Color("42")
	colorRed    = lipgloss.Color("196")
	colorYellow = lipgloss.Color("214")
	colorDim    = lipgloss.Color("240")
)

// styles are bound to one renderer so colour detection follows the
// terminal's output, not os.Stdout.
type styles struct {
	headerPanel lipgloss.Style
	headerTitle lipgloss.Style
	label       lipgloss.Style
	key         lipgloss.Style
	env         lipgloss.Style
	email       lipgloss.Style

	stepPanel lipgloss.Style
	stepTitle lipgloss.Style
	stepEnv   lipgloss.Style
	prompt    lipgloss.Style

	credPanel    lipgloss.Style
	credOldPanel lipgloss.Style
	credTitle    lipgloss.Style
	credOldTitle lipgloss.Style
	password     lipgloss.Style

	rules map[onboard.RuleStyle]lipgloss.Style

	ok   lipgloss.Style
	warn lipgloss.Style
	fail lipgloss.Style

	tableHeader lipgloss.Style
	tableCell   lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		headerPanel: r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorBlue).Padding(0, 1),
		headerTitle: r.NewStyle().Bold(true).Foreground(colorBlue),
		label:       r.NewStyle().Foreground(colorDim),
		key:         r.NewStyle().Bold(true).Foreground(colorBlue),
		env:         r.NewStyle().Bold(true).Foreground(colorGreen),
		email:       r.NewStyle().Foreground(colorCyan),

		stepPanel: r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorCyan).Padding(1, 2),
		stepTitle: r.NewStyle().Bold(true).Foreground(colorCyan),
		stepEnv:   r.NewStyle().Foreground(colorDim),
		prompt:    r.NewStyle().Bold(true),

		credPanel:    r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorYellow).Padding(1, 2),
		credOldPanel: r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorDim).Padding(0, 2),
		credTitle:    r.NewStyle().Bold(true).Foreground(colorYellow),
		credOldTitle: r.NewStyle().Foreground(colorDim),
		password:     r.NewStyle().Bold(true).Foreground(colorYellow),

		rules: map[onboard.RuleStyle]lipgloss.Style{
			onboard.RuleHeading:     r.NewStyle().Bold(true).Foreground(colorBlue),
			onboard.RuleEnvironment: r.NewStyle().Bold(true).Foreground(colorCyan),
			onboard.RuleDone:        r.NewStyle().Bold(true).Foreground(colorGreen),
			onboard.RuleSkipped:     r.NewStyle().Faint(true).Foreground(colorGreen),
			onboard.RuleFailed:      r.NewStyle().Bold(true).Foreground(colorRed),
		},

		ok:   r.NewStyle().Foreground(colorGreen),
		warn: r.NewStyle().Foreground(colorYellow),
		fail: r.NewStyle().Foreground(colorRed),

		tableHeader: r.NewStyle().Bold(true).Foreground(colorCyan).Padding(0, 1),
		tableCell:   r.NewStyle().Padding(0, 1),
	}
}
