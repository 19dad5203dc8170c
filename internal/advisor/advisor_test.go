package advisor

import (
	"context"
	"errors"
	"testing"

	"github.com/KaramelBytes/autolysis/internal/ai"
	"github.com/KaramelBytes/autolysis/internal/ai/aitest"
	"github.com/KaramelBytes/autolysis/internal/analysis"
	"github.com/KaramelBytes/autolysis/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture() (*dataset.Dataset, *analysis.Profile) {
	ds := dataset.New("cars.csv",
		[]string{"A", "B", "C", "D", "E", "F", "name"},
		[][]string{
			{"1", "2.5", "3", "4", "5", "6", "x"},
			{"2", "3.5", "4", "5", "6", "7", "y"},
			{"3", "4.5", "5", "6", "7", "8", "z"},
		})
	return ds, analysis.NewProfile(ds, analysis.DefaultOptions())
}

func TestParseColumnList(t *testing.T) {
	assert.Equal(t, []string{"A", "B"}, ParseColumnList(" A , B "))
	assert.Equal(t, []string{"A"}, ParseColumnList("A"))
	assert.Equal(t, []string{"A", "B"}, ParseColumnList("A,,B,"))
	assert.Empty(t, ParseColumnList(""))
	assert.Empty(t, ParseColumnList(" , "))
}

func TestScatterColumns(t *testing.T) {
	ds, p := fixture()
	cases := []struct {
		name  string
		reply string
		want  []string
	}{
		{"two numeric", " A , B ", []string{"A", "B"}},
		{"single", "A", nil},
		{"three", "A,B,C", nil},
		{"empty", "", nil},
		{"absent", "A,Z", nil},
		{"non numeric", "A,name", nil},
		{"case sensitive", "a,b", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rt := aitest.Text(tc.reply)
			got, err := New(rt, "gpt-4o-mini", nil).ScatterColumns(context.Background(), p, ds)
			if tc.want == nil {
				assert.ErrorIs(t, err, ErrNoSuggestion)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestScatterRequestShape(t *testing.T) {
	ds, p := fixture()
	rt := aitest.Text("A,B")
	_, err := New(rt, "gpt-4o-mini", nil).ScatterColumns(context.Background(), p, ds)
	require.NoError(t, err)

	require.Len(t, rt.Calls, 1)
	req := rt.Calls[0]
	assert.Equal(t, "gpt-4o-mini", req.Model)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "interesting scatterplot")
	assert.Equal(t, "user", req.Messages[1].Role)
	assert.Equal(t, p.Text(), req.Messages[1].Content)
}

func TestClusterColumns(t *testing.T) {
	ds, p := fixture()
	cases := []struct {
		name  string
		reply string
		want  []string
	}{
		{"two", "A, B", []string{"A", "B"}},
		{"five", "A,B,C,D,E", []string{"A", "B", "C", "D", "E"}},
		{"drops absent", "A,Q,B", []string{"A", "B"}},
		{"six", "A,B,C,D,E,F", nil},
		{"one", "A", nil},
		{"one after drop", "A,Q", nil},
		{"non numeric", "A,B,name", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := New(aitest.Text(tc.reply), "gpt-4o-mini", nil).ClusterColumns(context.Background(), p, ds)
			if tc.want == nil {
				assert.ErrorIs(t, err, ErrNoSuggestion)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFailuresAreSkippable(t *testing.T) {
	ds, p := fixture()
	failures := []*aitest.Runtime{
		aitest.Fail(&ai.UnreachableError{Host: "proxy", Err: errors.New("dial tcp: refused")}),
		aitest.Fail(&ai.AuthError{APIError: &ai.APIError{StatusCode: 401, Message: "bad token"}}),
		aitest.Fail(ai.ErrMalformedResponse),
		{Respond: func(ai.GenerateRequest) aitest.Reply { return aitest.Reply{Text: "   "} }},
	}
	for _, rt := range failures {
		a := New(rt, "gpt-4o-mini", nil)
		_, err := a.ScatterColumns(context.Background(), p, ds)
		assert.ErrorIs(t, err, ErrNoSuggestion)
		_, err = a.ClusterColumns(context.Background(), p, ds)
		assert.ErrorIs(t, err, ErrNoSuggestion)
	}
}

func TestContextTruncatedToModelWindow(t *testing.T) {
	ds, p := fixture()
	rt := aitest.Text("A,B")
	// unknown models fall back to a small window; the fixture fits either way
	_, err := New(rt, "some-unknown-model", nil).ScatterColumns(context.Background(), p, ds)
	require.NoError(t, err)
	assert.LessOrEqual(t, len([]rune(rt.Calls[0].Messages[1].Content)), ai.ContextTokens("some-unknown-model")/2*4)
}
