package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/jordanhubbard/weft/internal/config"
)

const version = "0.3.0"

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "weft",
		Short: "Weft - adaptive UI personalization pipeline",
		Long: `weft runs the adaptive personalization pipeline: it turns raw
interaction events into a behavioral identity, selects a content variant
for it, and validates the selection against the guardrail policy. The
score subcommand runs the independent A/B scoring loop that decides when
losing content should be regenerated.`,
		Version: version,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")

	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newScoreCommand())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the weft version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("weft %s\n", version)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the configured file, or falls back to defaults when no
// file was given.
func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log.Printf("[Weft] Loaded config from %s", configPath)
	return cfg, nil
}
