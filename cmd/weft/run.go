package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/jordanhubbard/weft/internal/analytics"
	"github.com/jordanhubbard/weft/internal/audit"
	"github.com/jordanhubbard/weft/internal/config"
	"github.com/jordanhubbard/weft/internal/decision"
	"github.com/jordanhubbard/weft/internal/guardrail"
	"github.com/jordanhubbard/weft/internal/identity"
	"github.com/jordanhubbard/weft/internal/pipeline"
	"github.com/jordanhubbard/weft/internal/provider"
	"github.com/jordanhubbard/weft/internal/session"
	"github.com/jordanhubbard/weft/internal/telemetry"
	"github.com/jordanhubbard/weft/internal/variants"
	"github.com/jordanhubbard/weft/pkg/types"
)

func newRunCommand() *cobra.Command {
	var sessionID, userID string

	cmd := &cobra.Command{
		Use:   "run [events.json]",
		Short: "Run the personalization pipeline over an event file",
		Long: `Reads a JSON array of interaction events, runs the four pipeline
stages over the session, and prints the audit trail plus the selected
variant decision.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if cfg.Telemetry.Enabled {
				shutdown, err := telemetry.InitTelemetry(ctx, "weft", cfg.Telemetry.OTLPEndpoint)
				if err != nil {
					log.Printf("[Weft] Telemetry disabled: %v", err)
				} else {
					defer shutdown(context.Background())
				}
			}

			events, err := readEvents(args[0])
			if err != nil {
				return err
			}

			p, err := buildPipeline(cfg)
			if err != nil {
				return err
			}

			store := buildSessionStore(cfg)

			err = store.WithSession(ctx, sessionID, func(s *types.Session) error {
				s.UserID = userID
				for _, ev := range events {
					s.AddEvent(ev)
				}
				p.Process(ctx, s)
				return nil
			})
			if err != nil {
				return fmt.Errorf("pipeline run: %w", err)
			}

			final, err := store.Load(ctx, sessionID)
			if err != nil {
				return fmt.Errorf("load session: %w", err)
			}

			fmt.Println("=== Audit trail ===")
			for _, line := range final.AuditLog {
				fmt.Println(line)
			}

			fmt.Println("\n=== Decision ===")
			out, err := json.MarshalIndent(map[string]interface{}{
				"identity_state":      final.IdentityState,
				"identity_confidence": final.IdentityConfidence,
				"behavioral_vector":   final.BehavioralVector,
				"last_variant_shown":  final.LastVariantShown,
				"variant_decision":    final.OutcomeMetrics["variant_decision"],
				"guardrail_check":     final.OutcomeMetrics["guardrail_check"],
			}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "cli_session", "Session ID to run under")
	cmd.Flags().StringVar(&userID, "user", "", "User ID attached to the session")
	return cmd
}

func readEvents(path string) ([]types.Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read events file: %w", err)
	}
	var events []types.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("parse events file: %w", err)
	}
	return events, nil
}

func buildPipeline(cfg *config.Config) (*pipeline.Pipeline, error) {
	var db *sql.DB
	if cfg.Database.Enabled {
		var err error
		db, err = sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
	}
	trail := audit.NewManager(db)

	p := pipeline.New(
		analytics.NewExtractor(),
		buildClassifier(cfg),
		decision.NewSelector(rand.NewSource(time.Now().UnixNano())),
		guardrail.NewValidator(cfg.Guardrail),
		variants.NewDemoCatalog(),
		cfg.Pipeline.TargetComponent,
		trail,
	)
	return p, nil
}

func buildClassifier(cfg *config.Config) identity.Classifier {
	if !cfg.Pipeline.UseLLMClassifier {
		return identity.NewRuleClassifier()
	}
	return identity.NewLLMClassifier(buildProvider(cfg.Provider), cfg.Provider.ClassifyTimeout)
}

func buildProvider(cfg config.ProviderConfig) provider.Protocol {
	if cfg.Type == "openai" {
		return provider.NewOpenAIProvider(cfg.Endpoint, cfg.APIKey, cfg.Model)
	}
	return provider.NewOllamaProvider(cfg.Endpoint, cfg.Model)
}

func buildSessionStore(cfg *config.Config) session.Store {
	if cfg.Redis.Enabled {
		log.Printf("[Weft] Using Redis session store at %s", cfg.Redis.Addr)
		return session.NewRedisStore(cfg.Redis.Addr, cfg.Redis.SessionTTL)
	}
	return session.NewMemoryStore()
}
