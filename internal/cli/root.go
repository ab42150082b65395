// Package cli provides the command-line interface for the simulator.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"plumsim/internal/config"
	"plumsim/internal/logging"
	"plumsim/internal/store"
)

// Version information
const Version = "0.1.0"

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Store  store.DataStore
	Loader *store.Loader
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// The SQLite cache is optional; CSV files still work without it.
	dataStore, err := store.NewSQLiteStore(cfg.Data.DBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to initialize bar cache, using CSV files only")
	} else {
		app.Store = dataStore
	}
	app.Loader = store.NewLoader(cfg.Data.Dir, app.Store, logger)

	rootCmd := &cobra.Command{
		Use:   "plumsim",
		Short: "plumsim - rule-based strategy backtester",
		Long: `plumsim backtests rule-based trading strategies against historical
daily and intraday price series, producing fills, round-trip trades and
portfolio statistics.

Strategies are described in a hierarchical descriptor file; see the
strategy command to inspect one.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app.Store != nil {
				app.Store.Close()
			}
		},
	}

	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("strategy-file", cfg.Sim.StrategyFile, "strategy descriptor file")

	rootCmd.AddCommand(newSimulateCmd(app))
	rootCmd.AddCommand(newStrategyCmd(app))
	rootCmd.AddCommand(newDataCmd(app))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("plumsim %s\n", Version)
		},
	}
}
