package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/autolysis/internal/dataset"
	"gonum.org/v1/gonum/stat"
)

// Options controls profiling behavior.
type Options struct {
	// SampleRows determines how many leading rows to include in the profile.
	SampleRows int
}

// DefaultOptions returns reasonable defaults for dataset profiling.
func DefaultOptions() Options {
	return Options{SampleRows: 3}
}

// Profile is a read-only statistical snapshot of a Dataset.
type Profile struct {
	Name    string          `json:"name" yaml:"name"`
	Rows    int             `json:"rows" yaml:"rows"`
	Cols    int             `json:"cols" yaml:"cols"`
	Columns []ColumnSummary `json:"columns" yaml:"columns"`
	Sample  [][]string      `json:"sample" yaml:"sample"`
}

// ColumnSummary captures the inferred type and null counts of one column.
// Describe is set for numeric columns only.
type ColumnSummary struct {
	Name     string    `json:"name" yaml:"name"`
	Type     string    `json:"type" yaml:"type"`
	NonNull  int       `json:"non_null" yaml:"non_null"`
	Missing  int       `json:"missing" yaml:"missing"`
	Describe *Describe `json:"describe,omitempty" yaml:"describe,omitempty"`
}

// Describe mirrors the usual count/mean/std/min/quartiles/max summary.
// Std is the sample standard deviation; NaN when fewer than two values.
type Describe struct {
	Count float64 `json:"count" yaml:"count"`
	Mean  float64 `json:"mean" yaml:"mean"`
	Std   float64 `json:"std" yaml:"std"`
	Min   float64 `json:"min" yaml:"min"`
	Q25   float64 `json:"25%" yaml:"25%"`
	Q50   float64 `json:"50%" yaml:"50%"`
	Q75   float64 `json:"75%" yaml:"75%"`
	Max   float64 `json:"max" yaml:"max"`
}

// MarshalJSON writes NaN statistics as null.
func (d Describe) MarshalJSON() ([]byte, error) {
	num := func(v float64) any {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		return v
	}
	return json.Marshal(struct {
		Count any `json:"count"`
		Mean  any `json:"mean"`
		Std   any `json:"std"`
		Min   any `json:"min"`
		Q25   any `json:"25%"`
		Q50   any `json:"50%"`
		Q75   any `json:"75%"`
		Max   any `json:"max"`
	}{num(d.Count), num(d.Mean), num(d.Std), num(d.Min), num(d.Q25), num(d.Q50), num(d.Q75), num(d.Max)})
}

// NewProfile computes the profile of ds. Missing values are counted, never imputed.
func NewProfile(ds *dataset.Dataset, opt Options) *Profile {
	p := &Profile{Name: ds.Name, Rows: ds.Rows(), Cols: len(ds.Columns)}
	for _, c := range ds.Columns {
		miss := c.NullCount()
		cs := ColumnSummary{
			Name:    c.Name,
			Type:    string(c.Type),
			NonNull: len(c.Raw) - miss,
			Missing: miss,
		}
		if c.IsNumeric() {
			cs.Describe = describe(c.Observed())
		}
		p.Columns = append(p.Columns, cs)
	}
	n := opt.SampleRows
	if n < 0 {
		n = 0
	}
	if n > ds.Rows() {
		n = ds.Rows()
	}
	for i := 0; i < n; i++ {
		p.Sample = append(p.Sample, ds.Row(i))
	}
	return p
}

func describe(vals []float64) *Describe {
	d := &Describe{Count: float64(len(vals))}
	if len(vals) == 0 {
		nan := math.NaN()
		d.Mean, d.Std, d.Min, d.Q25, d.Q50, d.Q75, d.Max = nan, nan, nan, nan, nan, nan, nan
		return d
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	d.Mean, d.Std = stat.MeanStdDev(sorted, nil)
	if len(sorted) < 2 {
		d.Std = math.NaN()
	}
	d.Min = sorted[0]
	d.Max = sorted[len(sorted)-1]
	d.Q25 = quantile(sorted, 0.25)
	d.Q50 = quantile(sorted, 0.50)
	d.Q75 = quantile(sorted, 0.75)
	return d
}

// Headers returns the column names in order.
func (p *Profile) Headers() []string {
	out := make([]string, len(p.Columns))
	for i, c := range p.Columns {
		out[i] = c.Name
	}
	return out
}

// NumericColumns returns the names of columns that carry describe statistics.
func (p *Profile) NumericColumns() []string {
	var out []string
	for _, c := range p.Columns {
		if c.Describe != nil {
			out = append(out, c.Name)
		}
	}
	return out
}

// HeadersJSON returns {"headers":[...]} for use as narration context.
func (p *Profile) HeadersJSON() string {
	b, err := json.Marshal(struct {
		Headers []string `json:"headers"`
	}{Headers: p.Headers()})
	if err != nil {
		return `{"headers":[]}`
	}
	return string(b)
}

// Text renders the profile as the sectioned context sent to the column advisor.
func (p *Profile) Text() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if p.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", p.Name))
	}
	b.WriteString(fmt.Sprintf("Shape: (%d, %d)\n", p.Rows, p.Cols))
	b.WriteString(fmt.Sprintf("Rows: %d\n", p.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", p.Cols))

	b.WriteString("[SCHEMA]\n")
	for _, c := range p.Columns {
		total := c.NonNull + c.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, null %d, missing %.1f%%)\n",
			safeName(c.Name), c.Type, c.NonNull, c.Missing, missPct))
	}

	b.WriteString("\n[NUMERIC SUMMARY]\n")
	if len(p.NumericColumns()) == 0 {
		b.WriteString("(no numeric columns)\n")
	}
	for _, c := range p.Columns {
		d := c.Describe
		if d == nil {
			continue
		}
		b.WriteString(fmt.Sprintf("- %s: count %.0f, mean %.4g, std %.4g, min %.4g, 25%% %.4g, 50%% %.4g, 75%% %.4g, max %.4g\n",
			safeName(c.Name), d.Count, d.Mean, d.Std, d.Min, d.Q25, d.Q50, d.Q75, d.Max))
	}

	if len(p.Sample) > 0 {
		b.WriteString("\n[SAMPLE ROWS]\n")
		b.WriteString("| ")
		b.WriteString(strings.Join(mapStrings(p.Headers(), safeVal), " | "))
		b.WriteString(" |\n")
		b.WriteString("|")
		for range p.Columns {
			b.WriteString(" --- |")
		}
		b.WriteString("\n")
		for _, row := range p.Sample {
			b.WriteString("| ")
			b.WriteString(strings.Join(mapStrings(row, safeVal), " | "))
			b.WriteString(" |\n")
		}
	}

	b.WriteString("\n[HEADERS]\n")
	b.WriteString(strings.Join(p.Headers(), ", "))
	b.WriteString("\n")
	return b.String()
}

func mapStrings(in []string, f func(string) string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = f(s)
	}
	return out
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }

// quantile interpolates linearly at q*(n-1) over sorted values.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
