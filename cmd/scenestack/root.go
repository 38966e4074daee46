package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/scenestack/internal/config"
	"github.com/aretw0/scenestack/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "scenestack",
	Short: "scenestack drives scene stack scenarios",
	Long: `scenestack runs scripted scene scenarios against the scene stack orchestrator
and serves an HTTP debug surface over a live director.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a YAML configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json")
}

// loadConfig reads --config and applies flag overrides on top of it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level, _ = cmd.Flags().GetString("log-level")
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Log.Format, _ = cmd.Flags().GetString("log-format")
	}
	if cmd.Flags().Changed("addr") {
		cfg.HTTP.Addr, _ = cmd.Flags().GetString("addr")
	}
	if cmd.Flags().Changed("masterdata") {
		cfg.MasterData.Source = config.SourceFile
		cfg.MasterData.Path, _ = cmd.Flags().GetString("masterdata")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	level, _ := logging.ParseLevel(cfg.Log.Level)
	return logging.NewWithFormat(os.Stderr, level, cfg.Log.Format)
}
