package chart

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/danielolaszy/bzstat/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func sampleTable() models.FrequencyTable {
	return models.FrequencyTable{
		{Value: "Core", Count: 5},
		{Value: "UI", Count: 3},
		{Value: "Docs", Count: 1},
	}
}

func assertPNG(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, pngMagic), "expected a PNG file at %s", path)
}

func TestRender(t *testing.T) {
	p, err := Render(sampleTable(), Options{Title: "NEW bugs sorted by Component", Annotation: "Widget", Field: "component"})
	require.NoError(t, err)

	assert.Equal(t, "NEW bugs sorted by Component", p.Title.Text)
	assert.Equal(t, "count", p.Y.Label.Text)
	assert.Equal(t, "component", p.X.Label.Text)
	assert.NotZero(t, p.X.Tick.Label.Rotation)

	path := filepath.Join(t.TempDir(), "chart.png")
	require.NoError(t, Save(p, len(sampleTable()), path))
	assertPNG(t, path)
}

func TestRenderEmptyTable(t *testing.T) {
	p, err := Render(nil, Options{Title: "nothing", Field: "creator"})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "empty.png")
	require.NoError(t, Save(p, 0, path))
	assertPNG(t, path)
}

func TestDrawSave(t *testing.T) {
	dir := t.TempDir()
	viewed := false
	d := &Drawer{Dir: dir, Viewer: func(string) error {
		viewed = true
		return nil
	}}

	path, err := d.Draw(sampleTable(), Options{Field: "qa_contact"}, true)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "qa_contact.png"), path)
	assertPNG(t, path)
	assert.False(t, viewed, "saved charts are not displayed")
}

func TestDrawDisplay(t *testing.T) {
	var viewed []string
	d := &Drawer{Dir: t.TempDir(), TempDir: t.TempDir(), Viewer: func(path string) error {
		viewed = append(viewed, path)
		return nil
	}}

	path, err := d.Draw(sampleTable(), Options{Field: "component", Annotation: "Widget"}, false)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(d.TempDir, "bzstat-component.png"), path)
	assert.Equal(t, []string{path}, viewed)
	assertPNG(t, path)

	again, err := d.Draw(sampleTable(), Options{Field: "component"}, false)
	require.NoError(t, err)
	assert.Equal(t, path, again, "repeated runs reuse the display file")

	entries, err := os.ReadDir(d.TempDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	_, err = os.Stat(filepath.Join(d.Dir, "component.png"))
	assert.True(t, os.IsNotExist(err), "display mode does not write <field>.png")
}

func TestDrawViewerError(t *testing.T) {
	d := &Drawer{Dir: t.TempDir(), TempDir: t.TempDir(), Viewer: func(string) error {
		return errors.New("no display")
	}}

	_, err := d.Draw(sampleTable(), Options{Field: "component"}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no display")
}

func wideTable(n int) models.FrequencyTable {
	table := make(models.FrequencyTable, n)
	for i := range table {
		table[i] = models.Count{Value: fmt.Sprintf("user%03d@example.com", i), Count: n - i}
	}
	return table
}

func TestWideTableBarsDoNotOverlap(t *testing.T) {
	for _, n := range []int{10, 30, 60, 100, 120} {
		t.Run(fmt.Sprintf("%d rows", n), func(t *testing.T) {
			table := wideTable(n)
			p, err := Render(table, Options{Title: "NEW bugs sorted by Assigned_to", Field: "assigned_to"})
			require.NoError(t, err)

			c := vgimg.New(Width(n), height)
			data := p.DataCanvas(draw.New(c))
			slot := (data.Max.X - data.Min.X) / vg.Length(n)

			assert.Greater(t, float64(slot), float64(vg.Points(barWidth)),
				"slot per bar %.1fpt must exceed bar width %dpt", float64(slot), barWidth)
		})
	}
}

func TestWidth(t *testing.T) {
	assert.Equal(t, minWidth, Width(0))
	assert.Equal(t, minWidth, Width(10))
	assert.Greater(t, float64(Width(100)), float64(vg.Points(100*barWidth)))
	assert.Greater(t, float64(Width(120)), float64(Width(100)))
}

func TestDrawSaveWideTable(t *testing.T) {
	d := &Drawer{Dir: t.TempDir()}

	path, err := d.Draw(wideTable(100), Options{Field: "assigned_to"}, true)
	require.NoError(t, err)
	assertPNG(t, path)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "assigned_to.png", FileName("assigned_to"))
}
