package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/KaramelBytes/autolysis/internal/ai"
	cfgpkg "github.com/KaramelBytes/autolysis/internal/config"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCmd executes the root command with args and returns its stdout.
func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	// Flag values and Changed state stick across invocations
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	rootCmd.PersistentFlags().VisitAll(reset)
	rootCmd.Flags().VisitAll(reset)
	profileCmd.Flags().VisitAll(reset)
	cfgFile = ""
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("AIPROXY_TOKEN", "")
	t.Setenv("AUTOLYSIS_API_KEY", "")
	return home
}

func writeCSV(t *testing.T, dir string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("id,height,weight,age,city\n")
	for i := 0; i < 12; i++ {
		fmt.Fprintf(&b, "%d,%d,%d,%d,c%d\n", i, 150+i*3, 50+(i%4)*7, 20+(i*5)%30, i%3)
	}
	p := filepath.Join(dir, "people.csv")
	require.NoError(t, os.WriteFile(p, []byte(b.String()), 0o644))
	return p
}

func TestRootMissingArgument(t *testing.T) {
	isolate(t)
	_, err := runCmd(t)
	assert.ErrorIs(t, err, errUsage)
}

func TestRootMissingCredential(t *testing.T) {
	home := isolate(t)
	_, err := runCmd(t, writeCSV(t, home))
	assert.ErrorIs(t, err, cfgpkg.ErrMissingCredential)
}

func TestRootUnreadableDataset(t *testing.T) {
	home := isolate(t)
	t.Setenv("AIPROXY_TOKEN", "tok")
	_, err := runCmd(t, filepath.Join(home, "absent.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error loading dataset")
}

func TestRootRunsPipeline(t *testing.T) {
	home := isolate(t)
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		reply := "height,weight,age"
		switch {
		case bytes.Contains(body, []byte("image_url")):
			reply = "A chart story."
		case bytes.Contains(body, []byte("scatterplot")):
			reply = "height, weight"
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ai.GenerateResponse{Choices: []ai.Choice{{Message: ai.Message{Role: "assistant", Content: reply}}}})
	}))
	defer srv.Close()
	t.Setenv("AIPROXY_TOKEN", "tok")
	t.Setenv("AUTOLYSIS_BASE_URL", srv.URL)

	out := filepath.Join(home, "report")
	stdout, err := runCmd(t, writeCSV(t, home), "--output", out)
	require.NoError(t, err)

	assert.EqualValues(t, 5, calls.Load())
	assert.Contains(t, stdout, "✓ Wrote "+filepath.Join(out, "clustering_plot.png"))
	assert.Contains(t, stdout, "(3 narratives)")
	assert.NotContains(t, stdout, "⚠")
	assert.FileExists(t, filepath.Join(out, "README.md"))
}

func TestProfileFormats(t *testing.T) {
	home := isolate(t)
	path := writeCSV(t, home)

	text, err := runCmd(t, "profile", path)
	require.NoError(t, err)
	assert.Contains(t, text, "[DATASET SUMMARY]")
	assert.Contains(t, text, "Shape: (12, 5)")

	js, err := runCmd(t, "profile", path, "--format", "json", "--sample-rows", "2")
	require.NoError(t, err)
	var got struct {
		Rows   int        `json:"rows"`
		Cols   int        `json:"cols"`
		Sample [][]string `json:"sample"`
	}
	require.NoError(t, json.Unmarshal([]byte(js), &got))
	assert.Equal(t, 12, got.Rows)
	assert.Equal(t, 5, got.Cols)
	assert.Len(t, got.Sample, 2)

	y, err := runCmd(t, "profile", path, "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, y, "rows: 12")

	_, err = runCmd(t, "profile", path, "--format", "xml")
	assert.Error(t, err)
}

func TestProfileDelimiter(t *testing.T) {
	home := isolate(t)
	p := filepath.Join(home, "semi.csv")
	require.NoError(t, os.WriteFile(p, []byte("a;b\n1;2\n3;4\n"), 0o644))

	text, err := runCmd(t, "profile", p, "--delimiter", ";")
	require.NoError(t, err)
	assert.Contains(t, text, "Shape: (2, 2)")

	_, err = runCmd(t, "profile", p, "--delimiter", ";;")
	assert.Error(t, err)
}

func TestConfigSetAndShow(t *testing.T) {
	home := isolate(t)

	_, err := runCmd(t, "config", "set", "api_key", "sk-abcdef123456")
	require.NoError(t, err)
	_, err = runCmd(t, "config", "set", "vision_model", "gpt-4o")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(home, ".autolysis", "config.yaml"))

	out, err := runCmd(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "api_key: sk-****456")
	assert.Contains(t, out, "vision_model: gpt-4o")
	assert.NotContains(t, out, "abcdef")

	_, err = runCmd(t, "config", "set", "provider", "openrouter")
	assert.Error(t, err)
}

func TestMask(t *testing.T) {
	assert.Equal(t, "", mask(""))
	assert.Equal(t, "******", mask("short"))
	assert.Equal(t, "abc****xyz", mask("abc123xyz"))
}
