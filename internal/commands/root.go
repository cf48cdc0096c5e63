// Package commands implements the CLI commands for sift.
package commands

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nconklindev/sift/internal/config"
	"github.com/nconklindev/sift/internal/logger"
	"github.com/nconklindev/sift/internal/ui"
)

// debugLogFile is where the terminal UI logs when --debug is given without
// log.file.
const debugLogFile = "sift.log"

// BuildInfo is stamped into the binary at release time.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

func (b BuildInfo) String() string {
	return fmt.Sprintf("sift %s\ncommit: %s\nbuilt: %s\n", b.Version, b.Commit, b.Date)
}

// Execute runs the root command.
func Execute(info BuildInfo) error {
	return NewRootCmd(viper.New(), info).Execute()
}

// NewRootCmd builds the command tree around v.
func NewRootCmd(v *viper.Viper, info BuildInfo) *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "sift [files...]",
		Short: "Clean and convert CSV and Excel files",
		Long: `Sift loads CSV and Excel files, previews them, removes duplicate rows,
fills missing numbers with column means, keeps the columns you pick and
converts the result between CSV and Excel.

Examples:
  # Open the terminal UI with a file picker
  sift

  # Open two files straight away
  sift data.csv sales.xlsx

  # Serve the browser UI
  sift serve --address :8080

  # Clean a file without the UI
  sift clean data.csv --dedupe --fill --format xlsx`,
		Version:       info.Version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.Init(v, cfgFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(v, args)
		},
	}
	root.SetVersionTemplate(info.String())

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.sift.yaml)")
	root.PersistentFlags().Bool("debug", false, "enable debug logging")
	root.PersistentFlags().BoolP("quiet", "q", false, "only log errors")
	root.PersistentFlags().Bool("log-json", false, "log as JSON")
	root.Flags().String("output-dir", "", "directory exports are written to (default: working directory)")

	_ = v.BindPFlag("log.debug", root.PersistentFlags().Lookup("debug"))
	_ = v.BindPFlag("log.quiet", root.PersistentFlags().Lookup("quiet"))
	_ = v.BindPFlag("log.json", root.PersistentFlags().Lookup("log-json"))
	_ = v.BindPFlag("output_dir", root.Flags().Lookup("output-dir"))

	root.AddCommand(
		newServeCmd(v),
		newCleanCmd(v),
		newVersionCmd(info),
	)

	return root
}

func runTUI(v *viper.Viper, files []string) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	closeLog, err := initTUILogging(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	for _, path := range files {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("file not found: %s", path)
		}
	}

	model := ui.InitialModel(ui.Options{
		Files:        files,
		OutputDir:    cfg.OutputDir,
		PreviewRows:  cfg.PreviewRows,
		ChartMaxRows: cfg.Chart.MaxRows,
	})

	logger.Info("starting terminal UI", "files", len(files))

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run terminal UI: %w", err)
	}
	return nil
}

// initTUILogging keeps logs off the terminal while the UI owns it.
func initTUILogging(cfg *config.Config) (func(), error) {
	path := cfg.Log.File
	if path == "" && cfg.Log.Debug {
		path = debugLogFile
	}

	if path == "" {
		logger.Init(logger.Options{Output: io.Discard})
		return func() {}, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	logger.Init(logger.Options{Debug: cfg.Log.Debug, JSON: cfg.Log.JSON, Output: f})
	return func() { _ = f.Close() }, nil
}

// initCLILogging logs to stderr for the non-interactive commands.
func initCLILogging(cmd *cobra.Command, cfg *config.Config) {
	logger.Init(logger.Options{
		Debug:  cfg.Log.Debug,
		Quiet:  cfg.Log.Quiet,
		JSON:   cfg.Log.JSON,
		Output: cmd.ErrOrStderr(),
	})
}

func newVersionCmd(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprint(cmd.OutOrStdout(), info.String())
			return err
		},
	}
}
