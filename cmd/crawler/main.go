// Package main implements the election results crawler CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"election_crawler/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "crawler",
	Short: "Downloads and parses Korean election result reports",
	Long:  "Crawls per-location election result documents from the National Election Commission reporting endpoint and converts them into CSV records.",
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return setup()
	},
	SilenceUsage: true,
}

var (
	flagConfig string
	flagDebug  bool

	logger *zap.Logger
	cfg    *config.Config
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to yaml config file (defaults are compiled in)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
}

func setup() error {
	zapCfg := zap.NewProductionConfig()
	if flagDebug {
		zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	var err error
	logger, err = zapCfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	if flagConfig != "" {
		cfg, err = config.LoadConfig(flagConfig)
		if err != nil {
			return fmt.Errorf("failed to load config %s: %w", flagConfig, err)
		}
	} else {
		cfg = config.Default()
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
