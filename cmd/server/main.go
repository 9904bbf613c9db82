package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	_ "dbmeta/internal/db/extractors"
	"dbmeta/internal/logger"
	"dbmeta/pkg/config"
)

var (
	// Version information, set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	cfgPath   string
	logLevel  string
	logFormat string

	appCfg config.AppConfig
)

func defaultConfigPath() string {
	p := filepath.Join(".", "configs", "example.yaml")
	if config.Exists(p) {
		return p
	}
	return ""
}

// loadConfig reads the configuration and sets up logging before any
// subcommand runs.
func loadConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if err := logger.Configure(cfg.Log.Level, cfg.Log.Format); err != nil {
		return err
	}
	appCfg = cfg
	if cfgPath != "" {
		logger.Debug("config file %s", cfgPath)
	}
	return nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "dbmeta",
		Short: "Database metadata browser and DDL generator",
		Long: `dbmeta browses the catalog of a relational database as a tree of nodes
and generates DDL scripts for them, over HTTP or from the command line.`,
		SilenceUsage:      true,
		PersistentPreRunE: loadConfig,
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultConfigPath(), "path to config YAML")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (console, json)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(ddlCmd)
	rootCmd.AddCommand(nodesCmd)
	rootCmd.AddCommand(dialectsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)

	err := rootCmd.Execute()
	logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
