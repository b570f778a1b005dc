package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cmaloney/bindery/internal/config"
	"github.com/cmaloney/bindery/internal/pipeline"
	"github.com/cmaloney/bindery/version"
)

var (
	cfgFile  string
	logLevel string
	logFile  string
)

var rootCmd = &cobra.Command{
	Use:   "bindery [dir]",
	Short: "Merge PDFs from a directory, manifest, or URLs into size-bounded outputs",
	Long: `Bindery concatenates PDF documents into one or more output files.

Inputs come from a directory scan (default: the current directory), or from a
manifest file listing local paths and remote URLs, one per line. When a size
ceiling is configured the merged output is split into sequentially numbered
files; a failed source is recorded and skipped, never aborting the batch.
With -m the output is a Markdown transcript of the extracted text instead of
a merged PDF.`,
	Version:       version.GitRelease,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runMerge,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./bindery.yaml or ~/.bindery/bindery.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "info", "log level: debug, info, warn, or error",
	)
	rootCmd.PersistentFlags().StringVar(
		&logFile, "log-file", "", "also append logs to this file",
	)

	rootCmd.Flags().StringP("output", "o", "merged.pdf", "output base filename")
	rootCmd.Flags().StringP("output-dir", "f", ".", "output directory (created if absent)")
	rootCmd.Flags().StringP("list", "l", "", "manifest file of paths/URLs instead of a directory scan")
	rootCmd.Flags().Float64P("size", "s", 0, "size ceiling in MB; splits output into sequential files")
	rootCmd.Flags().BoolP("markdown", "m", false, "emit a Markdown transcript instead of a merged PDF")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
}

// runMerge loads config, builds the logger, and executes the pipeline. It
// returns an error only for the fatal conditions, so partial success still
// exits zero.
func runMerge(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	log, closeLog, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	result, runErr := pipeline.New(cfg, log).Run(cmd.Context())

	// The summary is always surfaced, fatal abort or not.
	if result != nil && result.Report != nil {
		result.Report.Log(log)
		fmt.Fprint(cmd.OutOrStdout(), result.Report.Summary())
	}
	if runErr != nil {
		log.Error("merge aborted", "error", runErr)
		return runErr
	}

	for _, unit := range result.Units {
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d pages, %d bytes)\n", unit.Path, unit.Pages, unit.Size)
	}
	return nil
}

// loadConfig merges defaults, config file, environment, and flags into one
// Config. A fresh viper instance keeps the process free of ambient state.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	v := viper.New()
	for flag, key := range map[string]string{
		"output":     "output",
		"output-dir": "output_dir",
		"list":       "manifest",
		"size":       "max_size_mb",
		"markdown":   "markdown",
		"log-level":  "log_level",
		"log-file":   "log_file",
	} {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			f = cmd.Root().PersistentFlags().Lookup(flag)
		}
		if err := v.BindPFlag(key, f); err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return nil, err
	}
	if len(args) == 1 {
		cfg.InputDir = args[0]
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// buildLogger constructs the run logger: stderr always, plus the configured
// log file when set. The returned func closes the file handle.
func buildLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var w io.Writer = os.Stderr
	closeLog := func() {}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file %s: %w", cfg.LogFile, err)
		}
		w = io.MultiWriter(os.Stderr, f)
		closeLog = func() { f.Close() }
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), closeLog, nil
}
