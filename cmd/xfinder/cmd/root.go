// Package cmd provides the CLI commands for xfinder.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/xfinder/xfinder/internal/config"
	"github.com/xfinder/xfinder/internal/coordinator"
	"github.com/xfinder/xfinder/internal/logging"
	"github.com/xfinder/xfinder/pkg/version"
)

var (
	indexDir       string
	logLevel       string
	configPath     string
	loggingCleanup func()
)

// NewRootCmd creates the root command for the xfinder CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "xfinder",
		Short: "Local file search engine",
		Long: `xfinder indexes a local directory tree and answers fast
filename and path queries over it.

It runs entirely locally with no network dependency for search.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("xfinder version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&indexDir, "index-dir", config.DefaultStateDir(), "xfinder state directory (index, metadata, config, logs)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to an explicit config.toml, overrides the one under --index-dir")

	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRunE = teardownLogging

	cmd.AddCommand(newScanCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func setupLogging(_ *cobra.Command, _ []string) error {
	logCfg := logging.DefaultConfig()
	logCfg.Level = logLevel
	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	return nil
}

func teardownLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// openCoordinator opens the coordinator over the configured index directory,
// applying an explicit --config override if one was given.
func openCoordinator() (*coordinator.Coordinator, error) {
	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}

	c, err := coordinator.Open(indexDir)
	if err != nil {
		return nil, err
	}

	if configPath != "" {
		cfg, err := config.LoadTOML(configPath)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("load %s: %w", configPath, err)
		}
		if err := cfg.Validate(); err != nil {
			c.Close()
			return nil, fmt.Errorf("validate %s: %w", configPath, err)
		}
		c.Config = cfg
	}

	return c, nil
}

// isTTY reports whether w is a terminal, for deciding between live,
// overwriting progress output and plain line-at-a-time output (piped,
// redirected to a file, or running in CI).
func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
