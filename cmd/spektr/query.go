package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	spektr "github.com/spektr-org/spektr-retail"
	"github.com/spektr-org/spektr-retail/config"
)

type queryFlags struct {
	file   string
	plan   string
	format string
	out    string
}

func newQueryCmd(flags *rootFlags) *cobra.Command {
	qf := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "query [question]",
		Short: "Answer one question and print the result",
		Example: `  spektr query --file sales.csv "top 5 items in B1" --format table
  spektr query --file sales.csv --plan plan.json --format csv --out results.csv
  spektr query "July vs August revenue by branch" --format pretty`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && qf.plan == "" {
				return fmt.Errorf("a question or --plan is required")
			}
			if !validFormat(qf.format) {
				return fmt.Errorf("unknown format %q (json, pretty, csv, table, text)", qf.format)
			}

			cfg, err := cliConfig(flags, qf.file)
			if err != nil {
				return err
			}
			logger := newLogger(cmd.ErrOrStderr(), cfg, false)
			logWarnings(logger, cfg)

			a, err := buildApp(cmd.Context(), cfg, logger, false)
			if err != nil {
				return err
			}
			defer a.Close()

			question := ""
			if len(args) > 0 {
				question = args[0]
			}

			var answer *spektr.Answer
			if qf.plan != "" {
				raw, err := readPlan(qf.plan)
				if err != nil {
					return err
				}
				answer, err = a.analyst.RunRaw(cmd.Context(), "cli", question, raw)
				if err != nil {
					return err
				}
			} else {
				answer, err = a.analyst.Ask(cmd.Context(), "cli", question)
				if err != nil {
					return err
				}
			}

			w, useColor, done, err := openOutput(cmd.OutOrStdout(), qf.out)
			if err != nil {
				return err
			}
			defer done()
			color.NoColor = !useColor
			return writeAnswer(w, answer, qf.format)
		},
	}
	cmd.Flags().StringVar(&qf.file, "file", "", "Local CSV or Parquet file (overrides the configured dataset)")
	cmd.Flags().StringVar(&qf.plan, "plan", "", "Plan JSON (inline or @file) to run without the translator")
	cmd.Flags().StringVar(&qf.format, "format", "json", "Output format: json, pretty, csv, table, text")
	cmd.Flags().StringVar(&qf.out, "out", "", "Write output to file instead of stdout")
	return cmd
}

func newSummaryCmd(flags *rootFlags) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the dataset summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cliConfig(flags, file)
			if err != nil {
				return err
			}
			logger := newLogger(cmd.ErrOrStderr(), cfg, false)

			a, err := buildApp(cmd.Context(), cfg, logger, false)
			if err != nil {
				return err
			}
			defer a.Close()

			snap, err := a.store.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			out := struct {
				Summary any `json:"summary"`
				Load    any `json:"load"`
			}{snap.Summary(), snap.Report}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Local CSV or Parquet file (overrides the configured dataset)")
	return cmd
}

// cliConfig loads config and points the dataset at file when given.
func cliConfig(flags *rootFlags, file string) (*config.Config, error) {
	if file != "" {
		os.Setenv("SPEKTR_DATASET_SOURCE", config.SourceFile)
		os.Setenv("SPEKTR_DATASET_PATH", file)
	}
	return loadConfig(flags)
}

func readPlan(arg string) (json.RawMessage, error) {
	if len(arg) > 1 && arg[0] == '@' {
		data, err := os.ReadFile(arg[1:])
		if err != nil {
			return nil, fmt.Errorf("read plan: %w", err)
		}
		return data, nil
	}
	return json.RawMessage(arg), nil
}

// openOutput returns the destination writer and whether it is a color
// terminal.
func openOutput(stdout io.Writer, path string) (io.Writer, bool, func(), error) {
	if path == "" {
		f, ok := stdout.(*os.File)
		return stdout, ok && term.IsTerminal(int(f.Fd())), func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, false, nil, fmt.Errorf("create output file: %w", err)
	}
	return f, false, func() { f.Close() }, nil
}
