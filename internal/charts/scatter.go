package charts

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/autolysis/internal/dataset"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Scatter plots column y against column x. Both columns must be numeric and
// are coerced to numbers in place; rows missing either value are left out.
func Scatter(ds *dataset.Dataset, x, y, outDir string) (Artifact, error) {
	for _, name := range []string{x, y} {
		c, ok := ds.Column(name)
		if !ok {
			return Artifact{}, skipf("column %q not found", name)
		}
		if !c.IsNumeric() {
			return Artifact{}, skipf("column %q is %s", name, c.Type)
		}
	}
	ds.CoerceNumeric(x)
	ds.CoerceNumeric(y)
	xc, _ := ds.Column(x)
	yc, _ := ds.Column(y)

	pts := make(plotter.XYs, 0, ds.Rows())
	for i := 0; i < ds.Rows(); i++ {
		xv, yv := xc.Num[i], yc.Num[i]
		if xc.Null[i] || yc.Null[i] || !finite(xv) || !finite(yv) {
			continue
		}
		pts = append(pts, plotter.XY{X: xv, Y: yv})
	}
	if len(pts) == 0 {
		return Artifact{}, skipf("no rows with both %s and %s", x, y)
	}

	title := fmt.Sprintf("Scatterplot between %s and %s", x, y)
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = x
	p.Y.Label.Text = y
	p.Add(plotter.NewGrid())

	s, err := plotter.NewScatter(pts)
	if err != nil {
		return Artifact{}, fmt.Errorf("scatter: %w", err)
	}
	s.GlyphStyle.Color = plotutil.Color(0)
	s.GlyphStyle.Radius = vg.Points(3)
	p.Add(s)

	name := fmt.Sprintf("%s_%s_scatterplot.png", fileStem(x), fileStem(y))
	path := filepath.Join(outDir, name)
	if err := savePlot(p, path, 8*vg.Inch, 6*vg.Inch, 50); err != nil {
		return Artifact{}, err
	}
	return Artifact{Kind: KindScatter, Title: title, Path: path}, nil
}

// fileStem drops spaces from a column name and replaces path separators so
// the chart stays inside the output directory.
func fileStem(name string) string {
	return strings.NewReplacer(" ", "", "/", "_", "\\", "_").Replace(name)
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
