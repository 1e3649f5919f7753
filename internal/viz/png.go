package viz

import (
	"errors"
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

var ErrNoPanels = errors.New("viz: nothing to plot")

// PanelHeight is the height given to each stacked panel by default.
const PanelHeight = 3 * vg.Inch

func newPlot(p Panel) (*plot.Plot, error) {
	pl := plot.New()
	pl.Title.Text = p.Title
	pl.X.Label.Text = "time (s)"
	pl.Add(plotter.NewGrid())
	pl.Legend.Top = true

	for i, tr := range p.Traces {
		if len(tr.Values) != len(p.Times) {
			return nil, fmt.Errorf("panel %q: trace %q has %d samples for %d times", p.Title, tr.Name, len(tr.Values), len(p.Times))
		}
		pts := make(plotter.XYs, len(p.Times))
		for k := range p.Times {
			pts[k].X, pts[k].Y = p.Times[k], tr.Values[k]
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("panel %q: trace %q: %w", p.Title, tr.Name, err)
		}
		line.LineStyle.Width = vg.Points(1.5)
		line.LineStyle.Color = plotutil.Color(i)
		if i > 0 {
			line.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(3)}
			line.LineStyle.Color = color.Gray{Y: 96}
		}
		pl.Add(line)
		pl.Legend.Add(tr.Name, line)
	}
	return pl, nil
}

// WritePNG stacks the panels vertically, one plot each, and encodes the
// figure as PNG. height is per panel.
func WritePNG(w io.Writer, panels []Panel, width, height vg.Length) error {
	if len(panels) == 0 {
		return ErrNoPanels
	}
	plots := make([][]*plot.Plot, len(panels))
	for i, p := range panels {
		pl, err := newPlot(p)
		if err != nil {
			return err
		}
		plots[i] = []*plot.Plot{pl}
	}

	img := vgimg.NewWith(
		vgimg.UseWH(width, height*vg.Length(len(panels))),
		vgimg.UseDPI(96),
	)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: len(panels),
		Cols: 1,
		PadX: vg.Millimeter,
		PadY: 2 * vg.Millimeter,
	}
	canvases := plot.Align(plots, tiles, dc)
	for i := range plots {
		plots[i][0].Draw(canvases[i][0])
	}

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
