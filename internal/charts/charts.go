// Package charts renders the PNG charts of an autolysis run.
package charts

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/KaramelBytes/autolysis/internal/utils"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// ErrSkipped marks a chart that was not produced because its input does not
// qualify. Nothing is written when it is returned.
var ErrSkipped = errors.New("chart skipped")

func skipf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSkipped, fmt.Sprintf(format, args...))
}

// Kinds of chart.
const (
	KindScatter = "scatter"
	KindHeatmap = "heatmap"
	KindCluster = "cluster"
)

// Artifact describes a written chart.
type Artifact struct {
	Kind  string
	Title string
	Path  string
}

// Name returns the file name of the chart.
func (a Artifact) Name() string { return filepath.Base(a.Path) }

// render draws onto a w x h canvas at dpi and writes it as PNG to path.
func render(path string, w, h vg.Length, dpi int, paint func(dc draw.Canvas)) error {
	c := vgimg.NewWith(vgimg.UseWH(w, h), vgimg.UseDPI(dpi))
	paint(draw.New(c))
	var buf bytes.Buffer
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(&buf); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func savePlot(p *plot.Plot, path string, w, h vg.Length, dpi int) error {
	return render(path, w, h, dpi, p.Draw)
}
