package charts

import (
	"fmt"
	"image/color"
	"math"
	"path/filepath"

	"github.com/KaramelBytes/autolysis/internal/dataset"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// HeatmapFile is the file name of the correlation heatmap.
const HeatmapFile = "correlation_heatmap.png"

var nanColor = color.Gray{Y: 0xc0}

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]; NaN where undefined
}

// Correlations computes pairwise-complete Pearson correlations between the
// numeric columns of ds. Pairs with fewer than two shared observations or a
// constant side are NaN.
func Correlations(ds *dataset.Dataset) *CorrMatrix {
	cols := ds.NumericColumns()
	m := &CorrMatrix{Values: make([][]float64, len(cols))}
	for i, c := range cols {
		m.Columns = append(m.Columns, c.Name)
		m.Values[i] = make([]float64, len(cols))
	}
	for i := range cols {
		for j := i; j < len(cols); j++ {
			r := pairCorr(cols[i], cols[j])
			m.Values[i][j], m.Values[j][i] = r, r
		}
	}
	return m
}

func pairCorr(a, b *dataset.Column) float64 {
	var xs, ys []float64
	for k := range a.Num {
		if a.Null[k] || b.Null[k] || !finite(a.Num[k]) || !finite(b.Num[k]) {
			continue
		}
		xs = append(xs, a.Num[k])
		ys = append(ys, b.Num[k])
	}
	if len(xs) < 2 {
		return math.NaN()
	}
	return stat.Correlation(xs, ys, nil)
}

// corrGrid adapts a CorrMatrix to plotter.GridXYZ with the first column at
// the top row.
type corrGrid struct{ m *CorrMatrix }

func (g corrGrid) Dims() (c, r int) { return len(g.m.Columns), len(g.m.Columns) }
func (g corrGrid) X(c int) float64  { return float64(c) }
func (g corrGrid) Y(r int) float64  { return float64(r) }
func (g corrGrid) Z(c, r int) float64 {
	v := g.m.Values[len(g.m.Columns)-1-r][c]
	if math.IsNaN(v) {
		return v
	}
	return math.Max(-1, math.Min(1, v))
}

// Heatmap renders the annotated correlation matrix of the numeric columns.
func Heatmap(ds *dataset.Dataset, outDir string) (Artifact, error) {
	m := Correlations(ds)
	n := len(m.Columns)
	if n < 2 {
		return Artifact{}, skipf("need at least 2 numeric columns, have %d", n)
	}

	cm := moreland.SmoothBlueRed()
	cm.SetMin(-1)
	cm.SetMax(1)

	const title = "Correlation Heatmap"
	p := plot.New()
	p.Title.Text = title
	grid := corrGrid{m: m}
	h := plotter.NewHeatMap(grid, cm.Palette(255))
	h.Min, h.Max = -1, 1
	h.NaN = nanColor
	p.Add(h)

	xys := make(plotter.XYs, 0, n*n)
	labels := make([]string, 0, n*n)
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			xys = append(xys, plotter.XY{X: float64(c), Y: float64(r)})
			if v := grid.Z(c, r); math.IsNaN(v) {
				labels = append(labels, "nan")
			} else {
				labels = append(labels, fmt.Sprintf("%.2f", v))
			}
		}
	}
	ann, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
	if err != nil {
		return Artifact{}, fmt.Errorf("heatmap labels: %w", err)
	}
	for i := range ann.TextStyle {
		ann.TextStyle[i].XAlign = text.XCenter
		ann.TextStyle[i].YAlign = text.YCenter
		ann.TextStyle[i].Color = color.Black
		if v := grid.Z(int(xys[i].X), int(xys[i].Y)); !math.IsNaN(v) && math.Abs(v) > 0.6 {
			ann.TextStyle[i].Color = color.White
		}
	}
	p.Add(ann)

	rev := make([]string, n)
	for i, name := range m.Columns {
		rev[n-1-i] = name
	}
	p.NominalX(m.Columns...)
	p.NominalY(rev...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = text.XRight
	p.X.Tick.Label.YAlign = text.YCenter

	bar := plot.New()
	bar.HideX()
	bar.Y.Padding = 0
	bar.Add(&plotter.ColorBar{ColorMap: cm, Vertical: true})

	const w, ht, barW = 10 * vg.Inch, 8 * vg.Inch, 1 * vg.Inch
	path := filepath.Join(outDir, HeatmapFile)
	err = render(path, w, ht, 50, func(dc draw.Canvas) {
		p.Draw(draw.Crop(dc, 0, -barW, 0, 0))
		bar.Draw(draw.Crop(dc, w-barW, 0, 0, 0))
	})
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{Kind: KindHeatmap, Title: title, Path: path}, nil
}
