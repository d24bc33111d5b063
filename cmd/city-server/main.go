// Package main is the entry point for the DeFi City game server.
// It only handles dependency injection and command wiring.
// NO business logic belongs here.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MRamiBalles/DefiCity/server/internal/engine"
	"github.com/MRamiBalles/DefiCity/server/internal/platform/config"
	"github.com/MRamiBalles/DefiCity/server/internal/platform/logger"
)

// rootFlags are shared by every subcommand.
type rootFlags struct {
	configPath string
	profile    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:          "city-server",
		Short:        "DeFi City simulation server",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "TOML config file")
	rootCmd.PersistentFlags().StringVar(&flags.profile, "profile", "", "preset to use without a config file (default, classic)")

	rootCmd.AddCommand(serveCmd(flags))
	rootCmd.AddCommand(simulateCmd(flags))
	rootCmd.AddCommand(catalogCmd(flags))
	rootCmd.AddCommand(ledgerCmd(flags))
	return rootCmd
}

// load resolves the configuration: a file when given, otherwise a preset.
func (f *rootFlags) load() (*config.Config, error) {
	if f.configPath != "" {
		return config.Load(f.configPath)
	}
	cfg, err := config.ForProfile(f.profile)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("profile %s: %w", cfg.Game.Profile, err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *logger.Logger {
	return logger.New(logger.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
}

// settingsFrom maps the [game] section onto engine settings.
func settingsFrom(cfg *config.Config) engine.Settings {
	return engine.Settings{
		GridSize:       cfg.Game.GridSize,
		StartingTokens: cfg.Game.StartingTokens,
		TickInterval:   cfg.Game.TickInterval.Duration,
		EventInterval:  cfg.Game.EventInterval.Duration,
		HistorySize:    cfg.Game.HistorySize,
		WeightedEvents: cfg.Game.WeightedEvents,
	}
}
