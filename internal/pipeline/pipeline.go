// Package pipeline runs the analysis steps in order: load, profile, advise,
// chart, narrate.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/autolysis/internal/advisor"
	"github.com/KaramelBytes/autolysis/internal/ai"
	"github.com/KaramelBytes/autolysis/internal/analysis"
	"github.com/KaramelBytes/autolysis/internal/charts"
	"github.com/KaramelBytes/autolysis/internal/dataset"
	"github.com/KaramelBytes/autolysis/internal/logging"
	"github.com/KaramelBytes/autolysis/internal/narrator"
	"github.com/KaramelBytes/autolysis/internal/utils"
)

// Options configures a run.
type Options struct {
	// OutputDir overrides the default output directory, the input path
	// without its extension.
	OutputDir   string
	Model       string
	VisionModel string
	Load        dataset.Options
	Profile     analysis.Options
}

// Result summarises a completed run.
type Result struct {
	RunID     string
	OutputDir string
	Profile   *analysis.Profile
	Charts    []charts.Artifact
	Report    *narrator.Report
	Skipped   []string // steps that produced nothing, with the reason
}

// Pipeline holds the collaborators of a run.
type Pipeline struct {
	rt   ai.Runtime
	opts Options
	log  *slog.Logger
}

// New returns a Pipeline using rt for every model call.
func New(rt ai.Runtime, opts Options, log *slog.Logger) *Pipeline {
	if log == nil {
		log = logging.Discard()
	}
	if opts.Model == "" {
		opts.Model = "gpt-4o-mini"
	}
	if opts.VisionModel == "" {
		opts.VisionModel = opts.Model
	}
	return &Pipeline{rt: rt, opts: opts, log: log}
}

// OutputDir returns the directory charts and the report are written to.
func OutputDir(path, override string) string {
	if override != "" {
		return override
	}
	return strings.TrimSuffix(path, filepath.Ext(path))
}

// Run executes every step on the dataset at path. Only a failure to create
// the output directory or to load the dataset is returned as an error;
// the remaining steps are skipped individually.
func (p *Pipeline) Run(ctx context.Context, path string) (*Result, error) {
	res := &Result{RunID: logging.NewRunID(), OutputDir: OutputDir(path, p.opts.OutputDir)}
	ctx = logging.WithRunID(ctx, res.RunID)
	log := p.log

	if err := utils.EnsureDir(res.OutputDir); err != nil {
		return nil, err
	}
	ds, err := dataset.Load(path, p.opts.Load)
	if err != nil {
		return nil, fmt.Errorf("error loading dataset: %w", err)
	}
	log.InfoContext(ctx, "dataset loaded", "file", ds.Name, "rows", ds.Rows(), "cols", len(ds.Columns))

	res.Profile = analysis.NewProfile(ds, p.opts.Profile)
	headers := res.Profile.HeadersJSON()

	adv := advisor.New(p.rt, p.opts.Model, log)

	// scatter
	if cols, err := adv.ScatterColumns(ctx, res.Profile, ds); err != nil {
		p.skip(ctx, res, "scatterplot", err)
	} else {
		p.chart(ctx, res, "scatterplot", func() (charts.Artifact, error) {
			return charts.Scatter(ds, cols[0], cols[1], res.OutputDir)
		})
	}

	p.chart(ctx, res, "correlation heatmap", func() (charts.Artifact, error) {
		return charts.Heatmap(ds, res.OutputDir)
	})

	if cols, err := adv.ClusterColumns(ctx, res.Profile, ds); err != nil {
		p.skip(ctx, res, "cluster plot", err)
	} else {
		p.chart(ctx, res, "cluster plot", func() (charts.Artifact, error) {
			return charts.Cluster(ds, cols, res.OutputDir)
		})
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rep, err := narrator.New(p.rt, p.opts.VisionModel, log).Narrate(ctx, res.OutputDir, headers)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.skip(ctx, res, "narration", err)
		return res, nil
	}
	res.Report = rep
	return res, nil
}

func (p *Pipeline) chart(ctx context.Context, res *Result, step string, render func() (charts.Artifact, error)) {
	art, err := render()
	if err != nil {
		p.skip(ctx, res, step, err)
		return
	}
	p.log.InfoContext(ctx, "chart written", "step", step, "file", art.Name())
	res.Charts = append(res.Charts, art)
}

// skip records a step that produced nothing. Expected skips log at info,
// anything else at warn.
func (p *Pipeline) skip(ctx context.Context, res *Result, step string, err error) {
	res.Skipped = append(res.Skipped, fmt.Sprintf("%s: %v", step, err))
	if errors.Is(err, advisor.ErrNoSuggestion) || errors.Is(err, charts.ErrSkipped) || errors.Is(err, narrator.ErrNoImages) {
		p.log.InfoContext(ctx, "step skipped", "step", step, "reason", err)
		return
	}
	p.log.WarnContext(ctx, "step failed", "step", step, "error", err)
}
