package viz

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Styles is a theme resolved into lipgloss styles. With Color off every
// style renders plain text.
type Styles struct {
	Theme Theme
	Color bool

	Title   lipgloss.Style
	Header  lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Subtle  lipgloss.Style
	Good    lipgloss.Style
	Warn    lipgloss.Style
	Bad     lipgloss.Style
	Panel   lipgloss.Style
	KeyHint lipgloss.Style
}

func NewStyles(t Theme, color bool) Styles {
	s := Styles{Theme: t, Color: color}
	plain := lipgloss.NewStyle()
	if !color {
		s.Title, s.Header, s.Label, s.Value = plain, plain, plain, plain
		s.Subtle, s.Good, s.Warn, s.Bad = plain, plain, plain, plain
		s.Panel, s.KeyHint = plain, plain
		return s
	}
	s.Title = plain.Bold(true).Foreground(t.Title)
	s.Header = plain.Bold(true).
		Foreground(t.Text).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(t.Border)
	s.Label = plain.Foreground(t.Muted)
	s.Value = plain.Bold(true).Foreground(t.Title)
	s.Subtle = plain.Foreground(t.Muted)
	s.Good = plain.Bold(true).Foreground(t.Success)
	s.Warn = plain.Bold(true).Foreground(t.Warning)
	s.Bad = plain.Bold(true).Foreground(t.Error)
	s.Panel = plain.Border(lipgloss.RoundedBorder()).BorderForeground(t.Border).Padding(0, 1)
	s.KeyHint = plain.Foreground(t.Muted).Italic(true)
	return s
}

// ColorEnabled reports whether output to f should be styled: f must be a
// terminal and NO_COLOR must be unset.
func ColorEnabled(f *os.File) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Stability renders the stability verdict of a run.
func (s Styles) Stability(stable bool) string {
	if stable {
		return s.Good.Render("stable")
	}
	return s.Bad.Render("UNSTABLE")
}

// Sparkline renders values as one row of block characters, sampled down to
// at most width cells.
func (s Styles) Sparkline(values []float64, width int) string {
	if width <= 0 {
		return ""
	}
	if len(values) == 0 {
		return strings.Repeat("─", width)
	}

	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo, hi = min(lo, v), max(hi, v)
	}
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}

	step := max(len(values)/width, 1)
	var b strings.Builder
	for i := 0; i < width && i*step < len(values); i++ {
		norm := (values[i*step] - lo) / rng
		idx := min(max(int(norm*float64(len(chars)-1)), 0), len(chars)-1)
		b.WriteRune(chars[idx])
	}
	return s.Value.Render(b.String())
}
