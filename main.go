package main

import (
	"fmt"
	"os"

	"plumsim/internal/cli"
	"plumsim/internal/config"
	"plumsim/internal/logging"
)

func main() {
	cfg, err := config.Load(os.Getenv("PLUMSIM_CONFIG_DIR"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logCfg := logging.DefaultLogConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.Console = cfg.Logging.Console
	logCfg.File = cfg.Logging.File
	logCfg.FilePath = cfg.Logging.FilePath
	logger := logging.NewLoggerWithConfig(logCfg)

	rootCmd := cli.NewRootCmd(cfg, logger)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
