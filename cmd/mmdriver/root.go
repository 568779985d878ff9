package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/segalloc/internal/logger"
)

var (
	// Global flags
	verbose  bool
	quiet    bool
	jsonOut  bool
	noColor  bool
	logLevel string
	logJSON  bool
	logDir   string

	closeLog = func() error { return nil }
)

var rootCmd = &cobra.Command{
	Use:   "mmdriver",
	Short: "Replay allocation traces against the segregated-fit allocator",
	Long: `mmdriver replays malloc-lab style allocation traces against the
segregated-fit allocator, validating every block it hands out, and reports
space utilisation and throughput per trace.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		lvl, enabled, err := logger.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		if verbose && !enabled {
			lvl, enabled = slog.LevelInfo, true
		}
		closeLog, err = logger.Init(logger.Options{
			Enabled: enabled,
			Level:   lvl,
			JSON:    logJSON,
			Output:  cmd.ErrOrStderr(),
			LogDir:  logDir,
		})
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeLog()
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output (implies --log-level=info)")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "off", "Log level: debug, info, warn, error or off")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Emit log records as JSON")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Write logs to a dated file in this directory instead of stderr")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
