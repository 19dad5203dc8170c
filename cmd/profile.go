package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/KaramelBytes/autolysis/internal/analysis"
	cfgpkg "github.com/KaramelBytes/autolysis/internal/config"
	"github.com/KaramelBytes/autolysis/internal/dataset"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	profFormat    string
	profDelimiter string
	profSheet     string
	profSample    int
)

var profileCmd = &cobra.Command{
	Use:   "profile <file>",
	Short: "Print the dataset profile without contacting the model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opt := dataset.Options{SheetName: profSheet}
		if profDelimiter != "" {
			d, err := parseDelimiter(profDelimiter)
			if err != nil {
				return err
			}
			opt.Delimiter = d
		} else if cfg != nil {
			opt.Delimiter = cfg.DelimiterRune()
			if opt.SheetName == "" {
				opt.SheetName = cfg.SheetName
			}
		}
		ds, err := dataset.Load(args[0], opt)
		if err != nil {
			return fmt.Errorf("error loading dataset: %w", err)
		}
		popt := profileOptions()
		if profSample > 0 {
			popt.SampleRows = profSample
		}
		p := analysis.NewProfile(ds, popt)

		out := cmd.OutOrStdout()
		switch strings.ToLower(profFormat) {
		case "", "text":
			fmt.Fprint(out, p.Text())
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(p)
		case "yaml", "yml":
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			if err := enc.Encode(p); err != nil {
				return err
			}
			return enc.Close()
		default:
			return fmt.Errorf("unsupported --format: %s (use text, json or yaml)", profFormat)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.Flags().StringVar(&profFormat, "format", "text", "output format: text|json|yaml")
	profileCmd.Flags().StringVar(&profDelimiter, "delimiter", "", "field delimiter: ',', ';', '|' or 'tab'")
	profileCmd.Flags().StringVar(&profSheet, "sheet", "", "worksheet name for .xlsx input")
	profileCmd.Flags().IntVar(&profSample, "sample-rows", 0, "number of sample rows (default from config)")
}

// profileOptions returns the profiling options from the loaded config.
func profileOptions() analysis.Options {
	opt := analysis.DefaultOptions()
	if cfg != nil && cfg.SampleRows > 0 {
		opt.SampleRows = cfg.SampleRows
	}
	return opt
}

func parseDelimiter(s string) (rune, error) {
	c := &cfgpkg.Global{Delimiter: s}
	d := c.DelimiterRune()
	if len([]rune(s)) != 1 && d != '\t' {
		return 0, fmt.Errorf("unsupported --delimiter: %s", s)
	}
	return d, nil
}
