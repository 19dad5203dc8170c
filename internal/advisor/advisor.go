// Package advisor asks a chat model which columns are worth plotting.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/KaramelBytes/autolysis/internal/ai"
	"github.com/KaramelBytes/autolysis/internal/analysis"
	"github.com/KaramelBytes/autolysis/internal/dataset"
	"github.com/KaramelBytes/autolysis/internal/logging"
	"github.com/KaramelBytes/autolysis/internal/utils"
)

// ErrNoSuggestion marks a reply that yields no usable column selection.
// The dependent chart is skipped.
var ErrNoSuggestion = errors.New("no usable column suggestion")

const (
	scatterInstruction = "Given the following dataset analysis, suggest two numeric columns from the dataset that would make an interesting scatterplot. Return only the column names, separated by a comma. No explanation needed. If there is not enough numeric columns, return empty string only."

	clusterInstruction = `Given the following dataset summary, which numeric columns are suitable for clustering?
Exclude any IDs or non-informative columns. Please provide a maximum of 5 columns.
Return only the column names, separated by a comma. No explanation needed
also if the dataset is not suitable for clustering, return empty string only`

	// MaxClusterColumns bounds the clustering selection.
	MaxClusterColumns = 5
)

// Advisor selects chart columns through a chat completion.
type Advisor struct {
	rt    ai.Runtime
	model string
	log   *slog.Logger
}

// New returns an Advisor using rt and model. A nil logger discards output.
func New(rt ai.Runtime, model string, log *slog.Logger) *Advisor {
	if log == nil {
		log = logging.Discard()
	}
	return &Advisor{rt: rt, model: model, log: log.With("component", "advisor")}
}

// ParseColumnList splits a comma separated reply, trimming tokens and
// dropping empty ones.
func ParseColumnList(s string) []string {
	var out []string
	for _, tok := range strings.Split(s, ",") {
		if tok = strings.TrimSpace(tok); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// ScatterColumns returns exactly two numeric columns present in ds.
func (a *Advisor) ScatterColumns(ctx context.Context, p *analysis.Profile, ds *dataset.Dataset) ([]string, error) {
	reply, err := a.ask(ctx, scatterInstruction, p)
	if err != nil {
		return nil, err
	}
	cols := ParseColumnList(reply)
	if len(cols) != 2 {
		return nil, fmt.Errorf("%w: expected 2 columns, got %d", ErrNoSuggestion, len(cols))
	}
	for _, name := range cols {
		if err := requireNumeric(ds, name); err != nil {
			return nil, err
		}
	}
	return cols, nil
}

// ClusterColumns returns two to five numeric columns present in ds. Names
// not found in ds are dropped before validation.
func (a *Advisor) ClusterColumns(ctx context.Context, p *analysis.Profile, ds *dataset.Dataset) ([]string, error) {
	reply, err := a.ask(ctx, clusterInstruction, p)
	if err != nil {
		return nil, err
	}
	cols := ParseColumnList(reply)
	if len(cols) < 2 || len(cols) > MaxClusterColumns {
		return nil, fmt.Errorf("%w: expected 2 to %d columns, got %d", ErrNoSuggestion, MaxClusterColumns, len(cols))
	}
	var present []string
	for _, name := range cols {
		if _, ok := ds.Column(name); ok {
			present = append(present, name)
		} else {
			a.log.DebugContext(ctx, "dropping unknown column", "column", name)
		}
	}
	if len(present) < 2 {
		return nil, fmt.Errorf("%w: only %d known columns", ErrNoSuggestion, len(present))
	}
	for _, name := range present {
		if err := requireNumeric(ds, name); err != nil {
			return nil, err
		}
	}
	return present, nil
}

func requireNumeric(ds *dataset.Dataset, name string) error {
	c, ok := ds.Column(name)
	if !ok {
		return fmt.Errorf("%w: column %q not found", ErrNoSuggestion, name)
	}
	if !c.IsNumeric() {
		return fmt.Errorf("%w: column %q is %s", ErrNoSuggestion, name, c.Type)
	}
	return nil
}

// ask sends the instruction with the profile as context and returns the
// reply text. Every failure is reported as ErrNoSuggestion.
func (a *Advisor) ask(ctx context.Context, instruction string, p *analysis.Profile) (string, error) {
	prompt := utils.TruncateToTokenLimit(p.Text(), ai.ContextTokens(a.model)/2)
	req := ai.GenerateRequest{
		Model: a.model,
		Messages: []ai.Message{
			{Role: "system", Content: instruction},
			{Role: "user", Content: prompt},
		},
	}
	a.log.DebugContext(ctx, "requesting columns", "model", a.model, "context_tokens", utils.CountTokens(prompt))
	resp, err := a.rt.Generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoSuggestion, err)
	}
	text, err := resp.Text()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoSuggestion, err)
	}
	a.log.DebugContext(ctx, "model replied", "reply", text)
	return text, nil
}
