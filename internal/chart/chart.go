// Package chart renders frequency tables as bar charts.
package chart

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/danielolaszy/bzstat/internal/logging"
	"github.com/danielolaszy/bzstat/pkg/models"
	"github.com/pkg/browser"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

const (
	minWidth = 8 * vg.Inch
	height   = 6 * vg.Inch
	barWidth = 16

	// barSlot is the horizontal room given to each bar, gap included.
	barSlot = barWidth * 1.5
	// axisRoom covers the y axis label and tick labels left of the data area.
	axisRoom = vg.Inch
)

var barColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}

// Options describes what a chart shows.
type Options struct {
	// Title is drawn above the chart
	Title string

	// Annotation, when set, is boxed in the upper-right corner of the data area
	Annotation string

	// Field is the aggregation field; it names the x axis and the saved file
	Field string
}

// Render builds a vertical bar chart with one bar per table row.
func Render(table models.FrequencyTable, opts Options) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = opts.Field
	p.Y.Label.Text = "count"
	p.Y.Min = 0

	if len(table) > 0 {
		values := make(plotter.Values, len(table))
		for i, c := range table {
			values[i] = float64(c.Count)
		}

		bars, err := plotter.NewBarChart(values, vg.Points(barWidth))
		if err != nil {
			return nil, fmt.Errorf("failed to build bar chart: %w", err)
		}
		bars.Color = barColor
		bars.LineStyle.Width = 0
		p.Add(bars)
		p.NominalX(table.Values()...)
	}

	p.X.Tick.Label.Rotation = math.Pi / 2
	p.X.Tick.Label.XAlign = text.XRight
	p.X.Tick.Label.YAlign = text.YCenter

	if opts.Annotation != "" {
		style := p.Legend.TextStyle
		style.Rotation = 0
		style.XAlign = text.XLeft
		style.YAlign = text.YBottom
		p.Add(&annotation{text: opts.Annotation, style: style, pad: vg.Points(4)})
	}

	return p, nil
}

// Width returns the canvas width for a chart of n bars. Wide tables grow the
// canvas so bars never overlap.
func Width(n int) vg.Length {
	w := vg.Points(float64(n)*barSlot) + axisRoom
	if w < minWidth {
		return minWidth
	}
	return w
}

// Save writes a chart of n bars as a PNG.
func Save(p *plot.Plot, n int, path string) error {
	if err := p.Save(Width(n), height, path); err != nil {
		return fmt.Errorf("failed to save chart to %s: %w", path, err)
	}
	return nil
}

// FileName is the image name used when a chart for field is saved.
func FileName(field string) string {
	return field + ".png"
}

// Viewer displays a rendered chart file.
type Viewer func(path string) error

// Drawer renders charts and either saves or displays them.
type Drawer struct {
	// Dir is where saved charts are written
	Dir string

	// TempDir holds displayed charts; empty means os.TempDir()
	TempDir string

	// Viewer opens unsaved charts; defaults to the system image viewer
	Viewer Viewer
}

// NewDrawer creates a Drawer writing to the working directory.
func NewDrawer() *Drawer {
	return &Drawer{Dir: ".", Viewer: browser.OpenFile}
}

// Draw renders table. With save set the PNG is written to Dir as
// <field>.png; otherwise it is written to TempDir as bzstat-<field>.png and
// handed to the Viewer. The display file is overwritten by the next run for
// the same field, since the viewer may still be reading it when Draw returns.
// It returns the path of the written image.
func (d *Drawer) Draw(table models.FrequencyTable, opts Options, save bool) (string, error) {
	p, err := Render(table, opts)
	if err != nil {
		return "", err
	}

	if save {
		path := filepath.Join(d.Dir, FileName(opts.Field))
		if err := Save(p, len(table), path); err != nil {
			return "", err
		}
		logging.Info("saved chart", "path", path, "bars", len(table))
		return path, nil
	}

	dir := d.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, "bzstat-"+FileName(opts.Field))

	if err := Save(p, len(table), path); err != nil {
		return "", err
	}

	viewer := d.Viewer
	if viewer == nil {
		viewer = browser.OpenFile
	}
	if err := viewer(path); err != nil {
		return path, fmt.Errorf("failed to display chart %s: %w", path, err)
	}

	logging.Debug("displayed chart", "path", path)
	return path, nil
}

// annotation draws a boxed label anchored to the top-right of the data area.
type annotation struct {
	text  string
	style text.Style
	pad   vg.Length
}

// Plot implements plot.Plotter.
func (a *annotation) Plot(c draw.Canvas, _ *plot.Plot) {
	w := a.style.Width(a.text)
	h := a.style.Height(a.text)

	maxX, maxY := c.Max.X-a.pad, c.Max.Y-a.pad
	minX, minY := maxX-w-2*a.pad, maxY-h-2*a.pad

	box := []vg.Point{
		{X: minX, Y: minY},
		{X: maxX, Y: minY},
		{X: maxX, Y: maxY},
		{X: minX, Y: maxY},
		{X: minX, Y: minY},
	}
	c.FillPolygon(color.White, box)
	c.StrokeLines(draw.LineStyle{Color: color.Gray{Y: 128}, Width: vg.Points(0.5)}, box)
	c.FillText(a.style, vg.Point{X: minX + a.pad, Y: minY + a.pad}, a.text)
}
