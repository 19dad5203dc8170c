package dataset

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func TestLoadInfersTypes(t *testing.T) {
	csv := "id,price,flag,city,score\n" +
		"1,10.5,True,Paris,3\n" +
		"2,,False,Rome,NA\n" +
		"3,7,True,Oslo,5\n"
	ds, err := Load(writeFile(t, "shop.csv", []byte(csv)), Options{})
	require.NoError(t, err)

	assert.Equal(t, "shop.csv", ds.Name)
	assert.Equal(t, 3, ds.Rows())
	assert.Equal(t, []string{"id", "price", "flag", "city", "score"}, ds.Names())

	want := map[string]DType{"id": Int64, "price": Float64, "flag": Bool, "city": Object, "score": Float64}
	for name, typ := range want {
		c, ok := ds.Column(name)
		require.True(t, ok, name)
		assert.Equal(t, typ, c.Type, name)
	}
	price, _ := ds.Column("price")
	assert.Equal(t, 1, price.NullCount())
	assert.True(t, math.IsNaN(price.Num[1]))
	assert.Equal(t, []float64{10.5, 7}, price.Observed())

	var numeric []string
	for _, c := range ds.NumericColumns() {
		numeric = append(numeric, c.Name)
	}
	assert.Equal(t, []string{"id", "price", "score"}, numeric)
}

func TestLoadStripsBOMAndDedupesHeaders(t *testing.T) {
	csv := "\ufeffa, a ,b,,a\n1,2,3,4,5\n"
	ds, err := Load(writeFile(t, "dup.csv", []byte(csv)), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a.1", "b", "Unnamed: 3", "a.2"}, ds.Names())
}

func TestLoadPadsRaggedRows(t *testing.T) {
	csv := "x,y,z\n1,2\n3,4,5,6\n"
	ds, err := Load(writeFile(t, "ragged.csv", []byte(csv)), Options{})
	require.NoError(t, err)
	require.Equal(t, 2, ds.Rows())
	z, _ := ds.Column("z")
	assert.Equal(t, 1, z.NullCount())
	assert.Equal(t, []string{"3", "4", "5"}, ds.Row(1))
}

func TestLoadTSVAndCustomDelimiter(t *testing.T) {
	ds, err := Load(writeFile(t, "t.tsv", []byte("a\tb\n1\t2\n")), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ds.Names())

	ds, err = Load(writeFile(t, "semi.csv", []byte("a;b\n1;2\n")), Options{Delimiter: ';'})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ds.Names())
}

func TestLoadLatin1(t *testing.T) {
	// "café" and "crème" in ISO-8859-1
	data := []byte("name,qty\ncaf\xe9,1\ncr\xe8me br\xfbl\xe9e,2\nd\xe9j\xe0 vu,3\n")
	ds, err := Load(writeFile(t, "latin.csv", data), Options{})
	require.NoError(t, err)
	name, _ := ds.Column("name")
	assert.Contains(t, name.Raw[0], "caf")
	assert.NotContains(t, name.Raw[0], "\ufffd")
	assert.Equal(t, 3, ds.Rows())
}

func TestLoadEmpty(t *testing.T) {
	_, err := Load(writeFile(t, "empty.csv", nil), Options{})
	assert.ErrorIs(t, err, ErrEmptyDataset)

	_, err = Load(writeFile(t, "header.csv", []byte("a,b\n")), Options{})
	assert.ErrorIs(t, err, ErrEmptyDataset)

	_, err = Load(filepath.Join(t.TempDir(), "missing.csv"), Options{})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrEmptyDataset))
}

func TestLoadXLSX(t *testing.T) {
	p := filepath.Join(t.TempDir(), "book.xlsx")
	f := excelize.NewFile()
	idx, err := f.NewSheet("Data")
	require.NoError(t, err)
	f.SetActiveSheet(idx)
	rows := [][]any{{"height", "weight"}, {170, 65.5}, {180, 80}, {165, nil}}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Data", cell, &r))
	}
	require.NoError(t, f.SaveAs(p))
	require.NoError(t, f.Close())

	ds, err := Load(p, Options{SheetName: "data"})
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Rows())
	h, _ := ds.Column("height")
	assert.Equal(t, Int64, h.Type)
	w, _ := ds.Column("weight")
	assert.Equal(t, Float64, w.Type)
	assert.Equal(t, 1, w.NullCount())

	// Sheet1 exists but is empty.
	_, err = Load(p, Options{})
	assert.ErrorIs(t, err, ErrEmptyDataset)

	_, err = Load(p, Options{SheetName: "nope"})
	assert.ErrorContains(t, err, "Available sheets")
}

func TestCoerceAndImpute(t *testing.T) {
	ds := New("t", []string{"a", "b"}, [][]string{{"1", "x"}, {"2", "3"}, {"", "4.5"}})

	require.True(t, ds.CoerceNumeric("b"))
	b, _ := ds.Column("b")
	assert.Equal(t, Float64, b.Type)
	assert.Equal(t, 1, b.NullCount())
	assert.False(t, ds.CoerceNumeric("missing"))

	a, _ := ds.Column("a")
	require.True(t, a.ImputeMean())
	assert.Equal(t, 0, a.NullCount())
	assert.InDelta(t, 1.5, a.Num[2], 1e-12)

	empty := NewColumn("e", []string{"", "NA"})
	assert.Equal(t, Float64, empty.Type)
	assert.False(t, empty.ImputeMean())
}

func TestAddIntColumn(t *testing.T) {
	ds := New("t", []string{"a"}, [][]string{{"1"}, {"2"}})
	ds.AddIntColumn("Cluster", []int{0, 1})
	require.Len(t, ds.Columns, 2)
	ds.AddIntColumn("Cluster", []int{2, 2})
	require.Len(t, ds.Columns, 2)
	c, ok := ds.Column("Cluster")
	require.True(t, ok)
	assert.Equal(t, Int64, c.Type)
	assert.Equal(t, []string{"2", "2"}, c.Raw)
}

func TestInfinityStaysNumeric(t *testing.T) {
	c := NewColumn("x", []string{"1", "inf", "-Infinity"})
	assert.Equal(t, Float64, c.Type)
	assert.True(t, math.IsInf(c.Num[1], 1))
	assert.True(t, math.IsInf(c.Num[2], -1))
}
