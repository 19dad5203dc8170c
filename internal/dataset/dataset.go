// Package dataset holds the in-memory table the pipeline works on.
package dataset

import (
	"math"
	"strconv"
	"strings"
)

// DType is the inferred storage type of a column.
type DType string

const (
	Int64   DType = "int64"
	Float64 DType = "float64"
	Bool    DType = "bool"
	Object  DType = "object"
)

// Column keeps the raw cell text alongside a float view. Num is NaN where the
// cell is missing or not a number.
type Column struct {
	Name string
	Type DType
	Raw  []string
	Num  []float64
	Null []bool
}

// IsNumeric reports whether the column has a numeric storage type.
func (c *Column) IsNumeric() bool { return c.Type == Int64 || c.Type == Float64 }

// NullCount returns the number of missing cells.
func (c *Column) NullCount() int {
	n := 0
	for _, m := range c.Null {
		if m {
			n++
		}
	}
	return n
}

// Observed returns the non-missing numeric values in row order.
func (c *Column) Observed() []float64 {
	out := make([]float64, 0, len(c.Num))
	for i, v := range c.Num {
		if !c.Null[i] && !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// Dataset is an ordered set of equally long named columns.
type Dataset struct {
	Name    string
	Columns []*Column
	rows    int
	index   map[string]int
}

// New builds a dataset from a header and row-major cells. Rows must already
// have len(header) fields.
func New(name string, header []string, rows [][]string) *Dataset {
	ds := &Dataset{Name: name, rows: len(rows), index: make(map[string]int, len(header))}
	for j, h := range header {
		raw := make([]string, len(rows))
		for i, r := range rows {
			raw[i] = r[j]
		}
		ds.index[h] = len(ds.Columns)
		ds.Columns = append(ds.Columns, NewColumn(h, raw))
	}
	return ds
}

// Rows returns the number of data rows.
func (d *Dataset) Rows() int { return d.rows }

// Column looks up a column by exact name.
func (d *Dataset) Column(name string) (*Column, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return d.Columns[i], true
}

// Names returns the column names in order.
func (d *Dataset) Names() []string {
	out := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		out[i] = c.Name
	}
	return out
}

// NumericColumns returns the columns with a numeric storage type, in order.
func (d *Dataset) NumericColumns() []*Column {
	var out []*Column
	for _, c := range d.Columns {
		if c.IsNumeric() {
			out = append(out, c)
		}
	}
	return out
}

// Row returns the raw cells of row i.
func (d *Dataset) Row(i int) []string {
	out := make([]string, len(d.Columns))
	for j, c := range d.Columns {
		out[j] = c.Raw[i]
	}
	return out
}

// AddColumn appends c, replacing any existing column of the same name.
func (d *Dataset) AddColumn(c *Column) {
	if i, ok := d.index[c.Name]; ok {
		d.Columns[i] = c
		return
	}
	d.index[c.Name] = len(d.Columns)
	d.Columns = append(d.Columns, c)
}

// AddIntColumn adds an int64 column built from values.
func (d *Dataset) AddIntColumn(name string, values []int) {
	c := &Column{
		Name: name,
		Type: Int64,
		Raw:  make([]string, len(values)),
		Num:  make([]float64, len(values)),
		Null: make([]bool, len(values)),
	}
	for i, v := range values {
		c.Raw[i] = strconv.Itoa(v)
		c.Num[i] = float64(v)
	}
	d.AddColumn(c)
}

// CoerceNumeric converts the named column to a numeric type in place.
// Unparseable cells become missing.
func (d *Dataset) CoerceNumeric(name string) bool {
	c, ok := d.Column(name)
	if !ok {
		return false
	}
	if c.IsNumeric() {
		return true
	}
	if c.Type == Bool {
		c.Type = Int64
		return true
	}
	allInt := true
	for i, s := range c.Raw {
		if c.Null[i] {
			allInt = false
			continue
		}
		v, isInt, ok := parseNumber(s)
		if !ok {
			c.Num[i] = math.NaN()
			c.Null[i] = true
			allInt = false
			continue
		}
		c.Num[i] = v
		allInt = allInt && isInt
	}
	if allInt {
		c.Type = Int64
	} else {
		c.Type = Float64
	}
	return true
}

// ImputeMean replaces missing cells of a numeric column with the column mean.
// It returns false if the column has no observed value.
func (c *Column) ImputeMean() bool {
	obs := c.Observed()
	if len(obs) == 0 {
		return false
	}
	var sum float64
	for _, v := range obs {
		sum += v
	}
	mean := sum / float64(len(obs))
	for i := range c.Num {
		if c.Null[i] || math.IsNaN(c.Num[i]) {
			c.Num[i] = mean
			c.Null[i] = false
			c.Raw[i] = strconv.FormatFloat(mean, 'g', -1, 64)
		}
	}
	return true
}

// missing markers recognised by default.
var naValues = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

// IsNA reports whether s is a missing marker.
func IsNA(s string) bool {
	_, ok := naValues[s]
	return ok
}

// NewColumn infers the storage type of raw cells: int64 when every cell is an
// integer, float64 when every present cell is a number, bool when every cell
// is true/false, object otherwise.
func NewColumn(name string, raw []string) *Column {
	c := &Column{
		Name: name,
		Raw:  raw,
		Num:  make([]float64, len(raw)),
		Null: make([]bool, len(raw)),
	}
	allInt, allNum, allBool := true, true, true
	missing := 0
	for i, s := range raw {
		c.Num[i] = math.NaN()
		if IsNA(s) {
			c.Null[i] = true
			missing++
			continue
		}
		if _, ok := parseBool(s); !ok {
			allBool = false
		}
		v, isInt, ok := parseNumber(s)
		if !ok {
			allNum, allInt = false, false
			continue
		}
		c.Num[i] = v
		allInt = allInt && isInt
	}
	present := len(raw) - missing
	switch {
	case present == 0:
		c.Type = Float64
	case allInt && missing == 0:
		c.Type = Int64
	case allNum:
		c.Type = Float64
	case allBool && missing == 0:
		c.Type = Bool
	default:
		c.Type = Object
	}
	if c.Type == Bool {
		for i, s := range raw {
			if b, _ := parseBool(s); b {
				c.Num[i] = 1
			} else {
				c.Num[i] = 0
			}
		}
	}
	if !c.IsNumeric() && c.Type != Bool {
		for i := range c.Num {
			c.Num[i] = math.NaN()
		}
	}
	return c
}

func parseNumber(s string) (v float64, isInt bool, ok bool) {
	t := strings.TrimSpace(s)
	if t == "" {
		return 0, false, false
	}
	if n, err := strconv.ParseInt(t, 10, 64); err == nil {
		return float64(n), true, true
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return 0, false, false
	}
	return f, false, true
}

func parseBool(s string) (bool, bool) {
	switch strings.TrimSpace(s) {
	case "True", "TRUE", "true":
		return true, true
	case "False", "FALSE", "false":
		return false, true
	}
	return false, false
}
