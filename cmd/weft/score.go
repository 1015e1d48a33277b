package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/jordanhubbard/weft/internal/bus"
	"github.com/jordanhubbard/weft/internal/config"
	"github.com/jordanhubbard/weft/internal/regen"
	"github.com/jordanhubbard/weft/internal/scoring"
	"github.com/jordanhubbard/weft/internal/variants"
	"github.com/jordanhubbard/weft/pkg/types"
)

func newScoreCommand() *cobra.Command {
	var weightsPath string
	var withWorker bool

	cmd := &cobra.Command{
		Use:   "score [interactions.json]",
		Short: "Run the A/B interaction scoring loop over an interaction file",
		Long: `Reads a JSON array of variant interactions, applies the weighted
scoring model to each, and prints the resulting score updates. Crossing
the score-gap threshold triggers a regeneration job for the losing
variant; with --worker a local regeneration worker consumes those jobs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			interactions, err := readInteractions(args[0])
			if err != nil {
				return err
			}

			source := config.NewWeightSource(cfg.Scoring)
			if weightsPath != "" {
				stop, err := config.WatchScoring(weightsPath, source)
				if err != nil {
					return fmt.Errorf("watch weights: %w", err)
				}
				defer stop()
			}

			store, err := buildScoreStore(cfg)
			if err != nil {
				return err
			}

			b, err := buildBus(cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			slots := variants.NewMemorySlotStore()
			if withWorker {
				worker := regen.NewWorker(buildProvider(cfg.Provider), slots, b, cfg.Provider.RegenTimeout)
				if err := worker.Start(); err != nil {
					return fmt.Errorf("start regeneration worker: %w", err)
				}
			}

			engine := scoring.NewEngine(store, source, slots, b)
			for _, in := range interactions {
				update, err := engine.Score(ctx, in)
				if err != nil {
					log.Printf("[Weft] Skipping interaction for %s/%s: %v", in.UserID, in.ComponentID, err)
					continue
				}
				out, err := json.Marshal(update)
				if err != nil {
					return err
				}
				fmt.Println(string(out))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&weightsPath, "weights", "", "Scoring weights YAML file to hot-reload on change")
	cmd.Flags().BoolVar(&withWorker, "worker", false, "Consume regeneration jobs with a local worker")
	return cmd
}

func readInteractions(path string) ([]types.Interaction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read interactions file: %w", err)
	}
	var interactions []types.Interaction
	if err := json.Unmarshal(data, &interactions); err != nil {
		return nil, fmt.Errorf("parse interactions file: %w", err)
	}
	return interactions, nil
}

func buildScoreStore(cfg *config.Config) (scoring.Store, error) {
	if cfg.Database.Enabled {
		log.Printf("[Weft] Using Postgres score store")
		return scoring.NewPostgresStore(cfg.Database.DSN)
	}
	return scoring.NewMemoryStore(), nil
}

func buildBus(cfg *config.Config) (bus.Bus, error) {
	if cfg.Nats.Enabled {
		log.Printf("[Weft] Using NATS bus at %s", cfg.Nats.URL)
		return bus.NewNatsBus(bus.NatsConfig{URL: cfg.Nats.URL, Timeout: cfg.Nats.Timeout})
	}
	return bus.NewMemoryBus(), nil
}
