package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/adestefa/ccmem/internal/config"
	"github.com/adestefa/ccmem/internal/logging"
	"github.com/adestefa/ccmem/internal/store"
)

// RootOptions holds the global flags.
type RootOptions struct {
	ConfigFile string
	DataDir    string
	LogLevel   string
}

// NewRootCommand creates the ccmem command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "ccmem",
		Short:         "Project memory for AI coding agents",
		Long:          "ccmem records stories, tasks, defects and landmines, and serves them over MCP and HTTP.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "YAML config file (default $CCMEM_CONFIG)")
	cmd.PersistentFlags().StringVar(&opts.DataDir, "data-dir", "", "directory holding the database (default ~/.ccmem)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "debug, info, warn or error")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewDashboardCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

// loadConfig reads .env, the config file and the environment, then lets
// the flags win.
func (o *RootOptions) loadConfig() (config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.Logger().Warn(".env file not loaded", "error", err)
	}
	cfg, err := config.Load(o.ConfigFile)
	if err != nil {
		return config.Config{}, err
	}
	cfg = cfg.Merge(config.Config{DataDir: o.DataDir, LogLevel: o.LogLevel})
	logging.Setup(cfg.LogLevel)
	return cfg, nil
}

// openStore loads the configuration and opens the database it names.
func (o *RootOptions) openStore() (config.Config, *store.Store, *slog.Logger, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	log := logging.For("cli")
	s, err := store.Open(cfg.DBPath(), store.Options{
		BusyTimeout:  cfg.BusyTimeout,
		MaxOpenConns: cfg.MaxOpenConns,
	})
	if err != nil {
		return config.Config{}, nil, nil, fmt.Errorf("opening store: %w", err)
	}
	log.Info("store opened", "path", s.Path())
	return cfg, s, log, nil
}
