package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	cfgpkg "github.com/KaramelBytes/autolysis/internal/config"
	"github.com/KaramelBytes/autolysis/internal/dataset"
	"github.com/KaramelBytes/autolysis/internal/logging"
	"github.com/KaramelBytes/autolysis/internal/narrator"
	"github.com/KaramelBytes/autolysis/internal/pipeline"
	"github.com/spf13/cobra"
)

const usage = "Usage: autolysis <dataset.csv>"

var errUsage = errors.New("missing dataset argument")

var (
	cfgFile string
	debug   bool
	// Retry/HTTP flags (override config if set)
	flagHTTPTimeoutSec   int
	flagRetryMaxAttempts int
	flagRetryBaseDelayMs int
	flagRetryMaxDelayMs  int
	flagLogLevel         string
	flagLogFormat        string

	// Run flags
	runOutputDir   string
	runModel       string
	runVisionModel string
	runDelimiter   string
	runSheet       string
	runSampleRows  int

	// Loaded configuration
	cfg    *cfgpkg.Global
	cfgErr error
)

var rootCmd = &cobra.Command{
	Use:   "autolysis <dataset.csv>",
	Short: "Automated exploratory analysis of a tabular dataset",
	Long: `autolysis profiles a CSV (or XLSX) dataset, asks a language model which columns
are worth plotting, renders a scatterplot, a correlation heatmap and a k-means
cluster plot, and writes a narrated README.md next to the charts.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return errUsage
		}
		if cfg == nil {
			return cfgErr
		}
		if err := applyRunFlags(cmd); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		rt, err := cfg.Runtime()
		if err != nil {
			return err
		}
		log := logging.New(logging.Config{
			Level:  cfg.LogLevel,
			Format: cfg.LogFormat,
			Debug:  debug,
			Output: cmd.ErrOrStderr(),
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		p := pipeline.New(rt, pipeline.Options{
			OutputDir:   runOutputDir,
			Model:       cfg.Model,
			VisionModel: cfg.VisionModel,
			Load:        dataset.Options{Delimiter: cfg.DelimiterRune(), SheetName: cfg.SheetName},
			Profile:     profileOptions(),
		}, log)
		res, err := p.Run(ctx, args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, a := range res.Charts {
			fmt.Fprintf(out, "✓ Wrote %s\n", a.Path)
		}
		for _, s := range res.Skipped {
			fmt.Fprintf(out, "⚠ Skipped %s\n", s)
		}
		if res.Report != nil {
			fmt.Fprintf(out, "✓ Wrote %s (%d narratives)\n", filepath.Join(res.OutputDir, narrator.ReportFile), len(res.Report.Entries))
		}
		return nil
	},
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, usage)
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)

	// Persistent global flags available to all subcommands
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ~/.autolysis/config.yaml)")
	pf.BoolVar(&debug, "debug", false, "enable debug output")
	pf.IntVar(&flagHTTPTimeoutSec, "http-timeout", 0, "HTTP client timeout in seconds (overrides config)")
	pf.IntVar(&flagRetryMaxAttempts, "retry-max", 0, "max attempts on 429/5xx (overrides config)")
	pf.IntVar(&flagRetryBaseDelayMs, "retry-base-ms", 0, "base retry backoff in ms (overrides config)")
	pf.IntVar(&flagRetryMaxDelayMs, "retry-max-ms", 0, "max retry backoff cap in ms (overrides config)")
	pf.StringVar(&flagLogLevel, "log-level", "", "debug|info|warn|error (overrides config)")
	pf.StringVar(&flagLogFormat, "log-format", "", "text|json (overrides config)")

	f := rootCmd.Flags()
	f.StringVarP(&runOutputDir, "output", "o", "", "output directory (default: dataset path without extension)")
	f.StringVar(&runModel, "model", "", "model used to pick chart columns")
	f.StringVar(&runVisionModel, "vision-model", "", "vision model used to narrate charts")
	f.StringVar(&runDelimiter, "delimiter", "", "field delimiter: ',', ';', '|' or 'tab'")
	f.StringVar(&runSheet, "sheet", "", "worksheet name for .xlsx input")
	f.IntVar(&runSampleRows, "sample-rows", 0, "number of sample rows in the profile")
}

func loadConfig() {
	cfg, cfgErr = nil, nil
	if err := cfgpkg.LoadDotEnv(""); err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: %v\n", err)
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal here: subcommands that don't need config still run
		cfgErr = fmt.Errorf("failed to load config: %w", err)
		return
	}
	cfg = c

	// Apply CLI overrides if provided
	f := rootCmd.PersistentFlags()
	if f.Changed("http-timeout") && flagHTTPTimeoutSec > 0 {
		cfg.HTTPTimeoutSec = flagHTTPTimeoutSec
	}
	if f.Changed("retry-max") && flagRetryMaxAttempts > 0 {
		cfg.RetryMaxAttempts = flagRetryMaxAttempts
	}
	if f.Changed("retry-base-ms") && flagRetryBaseDelayMs > 0 {
		cfg.RetryBaseDelayMs = flagRetryBaseDelayMs
	}
	if f.Changed("retry-max-ms") && flagRetryMaxDelayMs > 0 {
		cfg.RetryMaxDelayMs = flagRetryMaxDelayMs
	}
	if f.Changed("log-level") && flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if f.Changed("log-format") && flagLogFormat != "" {
		cfg.LogFormat = flagLogFormat
	}
}

// applyRunFlags copies the run flags that were set onto cfg.
func applyRunFlags(cmd *cobra.Command) error {
	f := cmd.Flags()
	if f.Changed("model") && runModel != "" {
		cfg.Model = runModel
	}
	if f.Changed("vision-model") && runVisionModel != "" {
		cfg.VisionModel = runVisionModel
	}
	if f.Changed("delimiter") && runDelimiter != "" {
		if _, err := parseDelimiter(runDelimiter); err != nil {
			return err
		}
		cfg.Delimiter = runDelimiter
	}
	if f.Changed("sheet") {
		cfg.SheetName = runSheet
	}
	if f.Changed("sample-rows") && runSampleRows > 0 {
		cfg.SampleRows = runSampleRows
	}
	return nil
}
