package charts

import (
	"fmt"
	"math"
	"path/filepath"

	"github.com/KaramelBytes/autolysis/internal/dataset"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

const (
	// ClusterFile is the file name of the cluster plot.
	ClusterFile = "clustering_plot.png"
	// LabelColumn is the column added to the dataset with each row's cluster.
	LabelColumn = "Cluster"

	clusterK    = 3
	clusterSeed = 42
	minRows     = 3
)

// Cluster runs k-means over the selected columns and plots the first two,
// coloured by cluster. Unknown names are ignored. Once the input qualifies the
// selected columns are mean-imputed in place; the Cluster column is added to
// ds only after the chart is written.
func Cluster(ds *dataset.Dataset, cols []string, outDir string) (Artifact, error) {
	var sel []*dataset.Column
	for _, name := range cols {
		if c, ok := ds.Column(name); ok {
			sel = append(sel, c)
		}
	}
	if len(sel) < 2 {
		return Artifact{}, skipf("need at least 2 known columns, have %d", len(sel))
	}
	for _, c := range sel {
		if !c.IsNumeric() {
			return Artifact{}, skipf("column %q is %s", c.Name, c.Type)
		}
	}
	if ds.Rows() < minRows {
		return Artifact{}, skipf("need at least %d rows, have %d", minRows, ds.Rows())
	}
	for _, c := range sel {
		if len(c.Observed()) == 0 {
			return Artifact{}, skipf("column %q has no values", c.Name)
		}
		for _, v := range c.Observed() {
			if math.IsInf(v, 0) {
				return Artifact{}, skipf("column %q holds an infinite value", c.Name)
			}
		}
	}

	for _, c := range sel {
		c.ImputeMean()
	}
	X := standardize(sel, ds.Rows())
	labels, err := NewKMeans(clusterK, clusterSeed).Fit(X)
	if err != nil {
		return Artifact{}, fmt.Errorf("kmeans: %w", err)
	}
	const title = "KMeans Clustering"
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = sel[0].Name
	p.Y.Label.Text = sel[1].Name
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	for k := 0; k < clusterK; k++ {
		var pts plotter.XYs
		for i, l := range labels {
			if l == k {
				pts = append(pts, plotter.XY{X: sel[0].Num[i], Y: sel[1].Num[i]})
			}
		}
		if len(pts) == 0 {
			continue
		}
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return Artifact{}, fmt.Errorf("cluster scatter: %w", err)
		}
		s.GlyphStyle.Color = plotutil.Color(k)
		s.GlyphStyle.Radius = vg.Points(4)
		p.Add(s)
		p.Legend.Add(fmt.Sprintf("Cluster %d", k), s)
	}

	path := filepath.Join(outDir, ClusterFile)
	if err := savePlot(p, path, 8*vg.Inch, 6*vg.Inch, 72); err != nil {
		return Artifact{}, err
	}
	ds.AddIntColumn(LabelColumn, labels)
	return Artifact{Kind: KindCluster, Title: title, Path: path}, nil
}

// standardize scales each column to zero mean and unit population variance.
// Constant columns are centred only.
func standardize(cols []*dataset.Column, rows int) [][]float64 {
	d := mat.NewDense(rows, len(cols), nil)
	for j, c := range cols {
		mean, variance := stat.PopMeanVariance(c.Num, nil)
		std := math.Sqrt(variance)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		scaled := make([]float64, rows)
		for i, v := range c.Num {
			scaled[i] = (v - mean) / std
		}
		d.SetCol(j, scaled)
	}
	X := make([][]float64, rows)
	for i := range X {
		X[i] = mat.Row(nil, i, d)
	}
	return X
}
