package viz

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/cstrsim/internal/config"
	"github.com/san-kum/cstrsim/internal/experiment"
	"github.com/san-kum/cstrsim/internal/storage"
)

// Trace is one named signal sampled on its panel's time grid.
type Trace struct {
	Name   string
	Values []float64
}

type Panel struct {
	Title  string
	Times  []float64
	Traces []Trace
}

// ChannelPanels builds one panel per controlled variable, plotting the
// measurement against its setpoint, followed by one panel per manipulated
// variable with the controller command. Signals column cannot find are
// left out, as are panels left empty.
func ChannelPanels(times []float64, column func(string) []float64, cvs, mvs []string) []Panel {
	var panels []Panel
	add := func(title string, names ...string) {
		p := Panel{Title: title, Times: times}
		for _, name := range names {
			if vals := column(name); len(vals) == len(times) {
				p.Traces = append(p.Traces, Trace{Name: name, Values: vals})
			}
		}
		if len(p.Traces) > 0 {
			panels = append(panels, p)
		}
	}
	for _, cv := range cvs {
		add(cv, experiment.MeasuredOutput(cv), config.SetpointInput(cv))
	}
	for _, mv := range mvs {
		add(mv+" command", experiment.CommandOutput(mv))
	}
	return panels
}

// RunPanels builds the channel panels of a stored run.
func RunPanels(meta *storage.RunMetadata, series *storage.Series) []Panel {
	var cvs, mvs []string
	for _, ch := range meta.Channels {
		cvs, mvs = append(cvs, ch.CV), append(mvs, ch.MV)
	}
	return ChannelPanels(series.Times, series.Column, cvs, mvs)
}

// Chart draws a panel as an ASCII line graph. Traces are downsampled or
// interpolated to width columns.
func Chart(p Panel, width, height int, s Styles) string {
	if len(p.Traces) == 0 || len(p.Times) == 0 {
		return ""
	}
	data := make([][]float64, len(p.Traces))
	names := make([]string, len(p.Traces))
	for i, tr := range p.Traces {
		data[i], names[i] = tr.Values, tr.Name
	}

	caption := fmt.Sprintf("%s  (t = %.4g .. %.4g s)", p.Title, p.Times[0], p.Times[len(p.Times)-1])
	opts := []asciigraph.Option{
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	}
	colored := s.Color && len(s.Theme.Series) > 0
	if len(data) > 1 || colored {
		// Legends index the series colors, so every series needs one.
		colors := make([]asciigraph.AnsiColor, len(data))
		for i := range colors {
			colors[i] = asciigraph.Default
			if colored {
				colors[i] = s.Theme.Series[i%len(s.Theme.Series)]
			}
		}
		opts = append(opts, asciigraph.SeriesColors(colors...))
	}
	if len(data) > 1 {
		opts = append(opts, asciigraph.SeriesLegends(names...))
	}
	return asciigraph.PlotMany(data, opts...)
}

// MetricsTable renders per-channel metrics, one row per channel and one
// column per metric name.
func MetricsTable(channels []experiment.ChannelReport, s Styles) string {
	var names []string
	for _, ch := range channels {
		for name := range ch.Metrics {
			if !slices.Contains(names, name) {
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)

	rows := make([][]string, len(channels))
	for i, ch := range channels {
		row := []string{ch.CV, ch.MV}
		for _, name := range names {
			v, ok := ch.Metrics[name]
			switch {
			case !ok:
				row = append(row, "-")
			case math.IsNaN(v):
				row = append(row, "nan")
			default:
				row = append(row, fmt.Sprintf("%.4g", v))
			}
		}
		rows[i] = row
	}

	headers := append([]string{"CV", "MV"}, names...)
	for i := range headers {
		headers[i] = strings.ToUpper(headers[i])
	}
	border := lipgloss.NewStyle()
	if s.Color {
		border = border.Foreground(s.Theme.Border)
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(border).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.Label.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	return t.String()
}
