package viz

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/cstrsim/internal/experiment"
	"github.com/san-kum/cstrsim/internal/storage"
)

type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	NextPanel key.Binding
	PrevPanel key.Binding
	Theme     key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextPanel, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.NextPanel, k.PrevPanel},
		{k.Theme, k.Help, k.Quit},
	}
}

var keys = keyMap{
	Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "previous run")),
	Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "next run")),
	NextPanel: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next panel")),
	PrevPanel: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous panel")),
	Theme:     key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "theme")),
	Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
	Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// Viewer browses stored runs: a table of runs on top, the selected run's
// panels and metrics below.
type Viewer struct {
	store  *storage.Store
	runs   []storage.RunMetadata
	table  table.Model
	help   help.Model
	styles Styles

	selected string
	panels   []Panel
	panel    int
	err      error

	width, height int
}

func NewViewer(store *storage.Store, styles Styles) (*Viewer, error) {
	runs, err := store.List()
	if err != nil {
		return nil, err
	}
	columns := []table.Column{
		{Title: "ID", Width: 32},
		{Title: "Time", Width: 19},
		{Title: "Method", Width: 6},
		{Title: "Stable", Width: 8},
		{Title: "Total IAE", Width: 10},
	}
	rows := make([]table.Row, len(runs))
	// newest first
	for i, run := range runs {
		rows[len(runs)-1-i] = table.Row{
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Method,
			fmt.Sprint(run.Stable),
			fmt.Sprintf("%.4g", run.Metrics[experiment.TotalIAE]),
		}
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(min(max(len(rows), 1), 8)),
	)

	v := &Viewer{
		store:  store,
		runs:   runs,
		table:  t,
		help:   help.New(),
		width:  100,
		height: 40,
	}
	v.setStyles(styles)
	v.load()
	return v, nil
}

func (v *Viewer) setStyles(s Styles) {
	v.styles = s
	ts := table.DefaultStyles()
	if s.Color {
		ts.Header = ts.Header.BorderForeground(s.Theme.Border).Bold(true)
		ts.Selected = ts.Selected.Foreground(s.Theme.Text).Background(s.Theme.Border).Bold(true)
	} else {
		ts.Selected = ts.Selected.UnsetForeground().UnsetBackground()
	}
	v.table.SetStyles(ts)
}

func (v *Viewer) run(id string) *storage.RunMetadata {
	for i := range v.runs {
		if v.runs[i].ID == id {
			return &v.runs[i]
		}
	}
	return nil
}

// load reads the series of the selected run when the selection changed.
func (v *Viewer) load() {
	row := v.table.SelectedRow()
	if row == nil || row[0] == v.selected {
		return
	}
	v.selected, v.panel, v.panels, v.err = row[0], 0, nil, nil
	meta := v.run(v.selected)
	if meta == nil {
		return
	}
	series, err := v.store.LoadSeries(meta.ID)
	if err != nil {
		v.err = err
		return
	}
	v.panels = RunPanels(meta, series)
}

func (v *Viewer) Init() tea.Cmd { return nil }

func (v *Viewer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width, v.height = msg.Width, msg.Height
		v.help.Width = msg.Width
		return v, nil
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return v, tea.Quit
		case key.Matches(msg, keys.Help):
			v.help.ShowAll = !v.help.ShowAll
			return v, nil
		case key.Matches(msg, keys.Theme):
			v.setStyles(NewStyles(nextTheme(v.styles.Theme), v.styles.Color))
			return v, nil
		case key.Matches(msg, keys.NextPanel):
			if n := len(v.panels); n > 0 {
				v.panel = (v.panel + 1) % n
			}
			return v, nil
		case key.Matches(msg, keys.PrevPanel):
			if n := len(v.panels); n > 0 {
				v.panel = (v.panel + n - 1) % n
			}
			return v, nil
		}
	}

	var cmd tea.Cmd
	v.table, cmd = v.table.Update(msg)
	v.load()
	return v, cmd
}

func (v *Viewer) View() string {
	s := v.styles
	var b strings.Builder
	b.WriteString(s.Header.Render("CSTR RUNS") + "\n")
	if len(v.runs) == 0 {
		b.WriteString(s.Subtle.Render("no runs found") + "\n\n")
		b.WriteString(v.help.View(keys))
		return b.String()
	}
	b.WriteString(v.table.View() + "\n\n")

	meta := v.run(v.selected)
	switch {
	case v.err != nil:
		b.WriteString(s.Bad.Render("error: "+v.err.Error()) + "\n")
	case meta != nil:
		b.WriteString(s.Label.Render("run ") + s.Value.Render(meta.ID) + "  " + s.Stability(meta.Stable) + "\n")
		if len(v.panels) > 0 {
			p := v.panels[v.panel]
			b.WriteString(s.Subtle.Render(fmt.Sprintf("panel %d/%d", v.panel+1, len(v.panels))) + "\n")
			chart := Chart(p, max(v.width-20, 20), max(v.height/4, 5), s)
			b.WriteString(s.Panel.Render(chart) + "\n")
		}
		b.WriteString(MetricsTable(meta.Channels, s) + "\n")
	}
	b.WriteString("\n" + v.help.View(keys))
	return b.String()
}
