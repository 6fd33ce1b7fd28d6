package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spaghettifunk/mapviewer/engine"
	"github.com/spaghettifunk/mapviewer/engine/core"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a TOML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Overrides log.level of the configuration")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(loadCmd)
}

var rootCmd = &cobra.Command{
	Use:           "mapviewer",
	Short:         "Loads game maps from an asset mirror and renders them",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// loadConfig reads --config, or the defaults when it is not set.
func loadConfig() (*engine.ApplicationConfig, error) {
	config := engine.DefaultConfig()
	if configPath != "" {
		c, err := engine.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		config = c
	}
	if logLevel != "" {
		config.Log.Level = logLevel
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	core.SetLogLevel(config.Log.Level)
	return config, nil
}

// Execute runs the root command. Cancelling ctx aborts a running load.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
