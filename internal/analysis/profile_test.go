package analysis

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/KaramelBytes/autolysis/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleDataset() *dataset.Dataset {
	return dataset.New("wines.csv",
		[]string{"id", "alcohol", "region", "score"},
		[][]string{
			{"1", "12.5", "north", "80"},
			{"2", "", "south", "85"},
			{"3", "13.1", "north", "NA"},
			{"4", "11.9", "east", "90"},
			{"5", "14.0", "south", "95"},
		})
}

func TestNewProfileCounts(t *testing.T) {
	p := NewProfile(sampleDataset(), DefaultOptions())

	assert.Equal(t, 5, p.Rows)
	assert.Equal(t, 4, p.Cols)
	require.Len(t, p.Columns, 4)
	assert.Equal(t, []string{"id", "alcohol", "region", "score"}, p.Headers())
	assert.Equal(t, []string{"id", "alcohol", "score"}, p.NumericColumns())

	alcohol := p.Columns[1]
	assert.Equal(t, "float64", alcohol.Type)
	assert.Equal(t, 4, alcohol.NonNull)
	assert.Equal(t, 1, alcohol.Missing)

	region := p.Columns[2]
	assert.Equal(t, "object", region.Type)
	assert.Nil(t, region.Describe)

	assert.Len(t, p.Sample, 3)
	assert.Equal(t, []string{"1", "12.5", "north", "80"}, p.Sample[0])
}

func TestDescribeMatchesLinearQuartiles(t *testing.T) {
	p := NewProfile(sampleDataset(), DefaultOptions())
	d := p.Columns[0].Describe
	require.NotNil(t, d)

	assert.Equal(t, 5.0, d.Count)
	assert.InDelta(t, 3.0, d.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(2.5), d.Std, 1e-12)
	assert.Equal(t, 1.0, d.Min)
	assert.Equal(t, 2.0, d.Q25)
	assert.Equal(t, 3.0, d.Q50)
	assert.Equal(t, 4.0, d.Q75)
	assert.Equal(t, 5.0, d.Max)

	score := p.Columns[3].Describe
	require.NotNil(t, score)
	assert.Equal(t, 4.0, score.Count)
	assert.InDelta(t, 83.75, score.Q25, 1e-12)
}

func TestProfileWithoutNumericColumns(t *testing.T) {
	ds := dataset.New("names.csv", []string{"name"}, [][]string{{"ann"}, {"bob"}})
	p := NewProfile(ds, Options{SampleRows: 10})

	assert.Empty(t, p.NumericColumns())
	assert.Len(t, p.Sample, 2)
	txt := p.Text()
	assert.Contains(t, txt, "[NUMERIC SUMMARY]\n(no numeric columns)")
}

func TestProfileText(t *testing.T) {
	txt := NewProfile(sampleDataset(), DefaultOptions()).Text()
	for _, section := range []string{"[DATASET SUMMARY]", "[SCHEMA]", "[NUMERIC SUMMARY]", "[SAMPLE ROWS]", "[HEADERS]"} {
		assert.Contains(t, txt, section)
	}
	assert.Contains(t, txt, "Shape: (5, 4)")
	assert.Contains(t, txt, "- alcohol: float64 (non-null 4, null 1, missing 20.0%)")
	assert.True(t, strings.HasSuffix(txt, "id, alcohol, region, score\n"))
}

func TestHeadersJSON(t *testing.T) {
	p := NewProfile(sampleDataset(), DefaultOptions())
	var got map[string][]string
	require.NoError(t, json.Unmarshal([]byte(p.HeadersJSON()), &got))
	assert.Equal(t, []string{"id", "alcohol", "region", "score"}, got["headers"])
}

func TestProfileYAML(t *testing.T) {
	p := NewProfile(sampleDataset(), Options{SampleRows: 1})
	b, err := yaml.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(b), "name: wines.csv")
	assert.Contains(t, string(b), "non_null: 4")
}

func TestQuantile(t *testing.T) {
	s := []float64{1, 2, 3, 4}
	assert.Equal(t, 1.0, quantile(s, 0))
	assert.Equal(t, 4.0, quantile(s, 1))
	assert.InDelta(t, 1.75, quantile(s, 0.25), 1e-12)
	assert.Equal(t, 0.0, quantile(nil, 0.5))
}

func TestDescribeJSONWritesNaNAsNull(t *testing.T) {
	ds := dataset.New("one.csv", []string{"x"}, [][]string{{"4"}})
	b, err := json.Marshal(NewProfile(ds, DefaultOptions()))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"std":null`)
	assert.Contains(t, string(b), `"mean":4`)
}
