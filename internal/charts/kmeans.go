package charts

import (
	"errors"
	"math"
	"math/rand"
)

// KMeans partitions rows into K clusters by Lloyd iteration from k-means++
// seeds. NInit restarts are run and the lowest-inertia result is kept.
type KMeans struct {
	K       int
	MaxIter int
	NInit   int
	Tol     float64
	Seed    int64

	Centroids [][]float64
	Labels    []int
	Inertia   float64 // sum of squared distances to nearest centroid
}

// NewKMeans returns a model with the usual defaults: 10 restarts, 300
// iterations, tolerance 1e-4.
func NewKMeans(k int, seed int64) *KMeans {
	return &KMeans{K: k, MaxIter: 300, NInit: 10, Tol: 1e-4, Seed: seed}
}

// Fit clusters X and returns the label of each row.
func (m *KMeans) Fit(X [][]float64) ([]int, error) {
	if len(X) == 0 {
		return nil, errors.New("input data cannot be empty")
	}
	if len(X) < m.K {
		return nil, errors.New("number of data points is less than K")
	}
	rng := rand.New(rand.NewSource(m.Seed))
	tol := m.Tol * meanVariance(X)
	m.Inertia = math.Inf(1)
	m.Centroids, m.Labels = nil, nil
	for run := 0; run < max(1, m.NInit); run++ {
		centroids, labels, inertia := m.lloyd(X, m.initCenters(X, rng), tol)
		if inertia < m.Inertia {
			m.Centroids, m.Labels, m.Inertia = centroids, labels, inertia
		}
	}
	if m.Labels == nil {
		return nil, errors.New("no run reached a finite inertia")
	}
	return m.Labels, nil
}

func (m *KMeans) lloyd(X [][]float64, centroids [][]float64, tol float64) ([][]float64, []int, float64) {
	n, p := len(X), len(X[0])
	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}
	for it := 0; it < m.MaxIter; it++ {
		changed := assign(X, centroids, labels)

		sums := make([][]float64, m.K)
		counts := make([]int, m.K)
		for k := range sums {
			sums[k] = make([]float64, p)
		}
		for i, k := range labels {
			counts[k]++
			for j := 0; j < p; j++ {
				sums[k][j] += X[i][j]
			}
		}
		shift := 0.0
		for k := 0; k < m.K; k++ {
			if counts[k] == 0 {
				continue // empty cluster keeps its centroid
			}
			for j := 0; j < p; j++ {
				v := sums[k][j] / float64(counts[k])
				d := v - centroids[k][j]
				shift += d * d
				centroids[k][j] = v
			}
		}
		if !changed || shift <= tol {
			break
		}
	}
	assign(X, centroids, labels)
	inertia := 0.0
	for i, k := range labels {
		inertia += euclidSquared(X[i], centroids[k])
	}
	return centroids, labels, inertia
}

// assign labels each row with its nearest centroid and reports whether any
// label changed.
func assign(X, centroids [][]float64, labels []int) bool {
	changed := false
	for i, x := range X {
		best, bestD := 0, math.MaxFloat64
		for k, c := range centroids {
			if d := euclidSquared(x, c); d < bestD {
				best, bestD = k, d
			}
		}
		if labels[i] != best {
			labels[i] = best
			changed = true
		}
	}
	return changed
}

// initCenters picks K seeds by k-means++ sampling.
func (m *KMeans) initCenters(X [][]float64, rng *rand.Rand) [][]float64 {
	n := len(X)
	centroids := make([][]float64, 0, m.K)
	centroids = append(centroids, append([]float64(nil), X[rng.Intn(n)]...))

	distSq := make([]float64, n)
	for len(centroids) < m.K {
		total := 0.0
		for i, x := range X {
			minDist := math.MaxFloat64
			for _, c := range centroids {
				if d := euclidSquared(x, c); d < minDist {
					minDist = d
				}
			}
			distSq[i] = minDist
			total += minDist
		}
		pick := n - 1
		r := rng.Float64() * total
		cumulative := 0.0
		for i, d2 := range distSq {
			cumulative += d2
			if cumulative >= r {
				pick = i
				break
			}
		}
		centroids = append(centroids, append([]float64(nil), X[pick]...))
	}
	return centroids
}

func euclidSquared(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

// meanVariance is the mean over features of the population variance.
func meanVariance(X [][]float64) float64 {
	n, p := float64(len(X)), len(X[0])
	total := 0.0
	for j := 0; j < p; j++ {
		var sum, sq float64
		for _, x := range X {
			sum += x[j]
		}
		mean := sum / n
		for _, x := range X {
			d := x[j] - mean
			sq += d * d
		}
		total += sq / n
	}
	return total / float64(p)
}
