package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nconklindev/sift/internal/config"
	"github.com/nconklindev/sift/internal/converter"
	"github.com/nconklindev/sift/internal/logger"
	"github.com/nconklindev/sift/internal/session"
)

type cleanOptions struct {
	dedupe  bool
	fill    bool
	columns []string
	format  string
	output  string
}

func newCleanCmd(v *viper.Viper) *cobra.Command {
	var opts cleanOptions

	cmd := &cobra.Command{
		Use:   "clean <file>",
		Short: "Clean and convert a file without the UI",
		Long: `Clean runs the same steps as the interactive UI in a fixed order:
remove duplicates, fill missing values, keep columns, then export.

The result is written to output_dir under the input name with the
extension of the chosen format, unless --output is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			initCLILogging(cmd, cfg)

			if !cmd.Flags().Changed("columns") {
				opts.columns = nil
			} else if opts.columns == nil {
				opts.columns = []string{}
			}
			return runClean(cmd, cfg, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.dedupe, "dedupe", false, "remove duplicate rows")
	cmd.Flags().BoolVar(&opts.fill, "fill", false, "fill missing numeric values with the column mean")
	cmd.Flags().StringSliceVar(&opts.columns, "columns", nil, "columns to keep, in order")
	cmd.Flags().StringVarP(&opts.format, "format", "f", string(converter.FormatCSV), "export format: csv or xlsx")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file path")

	return cmd
}

func runClean(cmd *cobra.Command, cfg *config.Config, input string, opts cleanOptions) error {
	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("read %s: %w", input, err)
	}

	fs := session.NewFileState(session.Upload{Name: filepath.Base(input), Data: data})
	if fs.Failed() {
		return fs.Err
	}

	var events []session.Event
	if opts.dedupe {
		events = append(events, session.ToggleDedupe{Enabled: true})
	}
	if opts.fill {
		events = append(events, session.ToggleFill{Enabled: true})
	}
	if opts.columns != nil {
		events = append(events, session.SelectColumns{Columns: opts.columns})
	}
	events = append(events, session.ChooseFormat{Format: converter.Format(opts.format)})

	log := logger.With("file", fs.Name)
	for _, ev := range events {
		if err := fs.Apply(ev); err != nil {
			return fmt.Errorf("%s: %w", ev.Name(), err)
		}
		if fs.Message != "" {
			log.Info(fs.Message)
		}
	}

	art, err := fs.Export()
	if err != nil {
		return err
	}

	out := opts.output
	if out == "" {
		out = filepath.Join(cfg.OutputDir, art.Name)
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(out, art.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%s, %d rows, %d columns)\n",
		input, out, humanize.Bytes(uint64(len(art.Data))), art.Result.Rows, len(art.Result.Columns))
	return err
}
