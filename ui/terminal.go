package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/termenv"

	"github.com/quilr/qonboard/onboard"
)

// DefaultWidth is used for rules when the terminal width is unknown.
const DefaultWidth = 80

// Terminal renders onboarding progress and asks the operator for
// approval. It implements onboard.UI.
type Terminal struct {
	mu       sync.Mutex
	out      io.Writer
	in       *bufio.Reader
	pending  chan readResult
	renderer *lipgloss.Renderer
	st       styles
	width    int
	color    bool
}

var _ onboard.UI = (*Terminal)(nil)

// Option configures a Terminal.
type Option func(*Terminal)

// WithWidth sets the rule width.
func WithWidth(w int) Option {
	return func(t *Terminal) {
		if w > 0 {
			t.width = w
		}
	}
}

// WithColor forces colour output on or off.
func WithColor(on bool) Option {
	return func(t *Terminal) {
		if on {
			t.renderer.SetColorProfile(termenv.ANSI256)
		} else {
			t.renderer.SetColorProfile(termenv.Ascii)
		}
	}
}

// New creates a Terminal writing to out and reading answers from in.
// Colour is detected from out.
func New(out io.Writer, in io.Reader, opts ...Option) *Terminal {
	t := &Terminal{
		out:      out,
		in:       bufio.NewReader(in),
		renderer: lipgloss.NewRenderer(out),
		width:    DefaultWidth,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.st = newStyles(t.renderer)
	t.color = t.renderer.ColorProfile() != termenv.Ascii
	return t
}

func (t *Terminal) println(s string) {
	fmt.Fprintln(t.out, s)
}

// TicketHeader renders the ticket panel: key, summary, environments and
// users.
func (t *Terminal) TicketHeader(tk onboard.Ticket) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s — %s\n", t.st.label.Render("Ticket"), t.st.key.Render(tk.Key), tk.Summary)
	fmt.Fprintf(&b, "%s     %s\n", t.st.label.Render("Env"), t.st.env.Render(strings.Join(tk.Environments, ", ")))
	fmt.Fprintf(&b, "%s", t.st.label.Render("Users"))
	for i, u := range tk.Users {
		prefix := "   "
		if i > 0 {
			prefix = "        "
		}
		fmt.Fprintf(&b, "%s%s  %s", prefix, u.FullName(), t.st.email.Render(u.Email))
		if i < len(tk.Users)-1 {
			b.WriteString("\n")
		}
	}

	t.println("")
	t.println(t.st.headerTitle.Render(" Customer Onboarding "))
	t.println(t.st.headerPanel.Render(b.String()))
}

// Rule renders a full-width horizontal rule with centred text.
func (t *Terminal) Rule(style onboard.RuleStyle, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.println("")
	t.println(t.st.rules[style].Render(rule(text, t.width)))
}

// rule centres text in a line of width runes.
func rule(text string, width int) string {
	label := " " + strings.TrimSpace(text) + " "
	n := lipgloss.Width(label)
	if n >= width-2 {
		return "──" + label + "──"
	}
	left := (width - n) / 2
	right := width - n - left
	return strings.Repeat("─", left) + label + strings.Repeat("─", right)
}

// Status prints a one-line message with a status glyph.
func (t *Terminal) Status(kind onboard.StatusKind, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch kind {
	case onboard.StatusWarn:
		t.println("  " + t.st.warn.Render(GlyphWarn) + " " + text)
	case onboard.StatusFail:
		t.println("  " + t.st.fail.Render(GlyphFail) + " " + text)
	default:
		t.println("  " + t.st.ok.Render(GlyphOK) + " " + text)
	}
}

// ShowCredentials renders the monitoring account credentials.
func (t *Terminal) ShowCredentials(email, password string, fromPreviousRun bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	body := fmt.Sprintf("Email:    %s\nPassword: %s", t.st.email.Render(email), t.st.password.Render(password))

	t.println("")
	if fromPreviousRun {
		t.println(t.st.credOldTitle.Render(" Monitoring user credentials (from previous run) "))
		t.println(t.st.credOldPanel.Render(body))
		return
	}
	t.println(t.st.credTitle.Render(" ⚠  Save this password — it will not be shown again "))
	t.println(t.st.credPanel.Render(body))
}

// Table renders rows under headers.
func (t *Terminal) Table(title string, headers []string, rows [][]string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(t.renderer.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return t.st.tableHeader
			}
			return t.st.tableCell
		})

	if title != "" {
		t.println(t.st.headerTitle.Render(title))
	}
	t.println(tbl.String())
}

// Println writes a plain line.
func (t *Terminal) Println(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.println(text)
}
