package scoring

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "github.com/lib/pq"

	"github.com/jordanhubbard/weft/pkg/types"
)

// PostgresStore persists score pairs in PostgreSQL. The variant scores
// are stored as JSONB documents; the identifying columns stay relational
// so pairs can be queried per tenant or user.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection, verifies it, and ensures the
// schema exists.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// rebind converts ? placeholders to $1, $2, ... for PostgreSQL.
func rebind(query string) string {
	n := 1
	out := strings.Builder{}
	for _, ch := range query {
		if ch == '?' {
			out.WriteString(fmt.Sprintf("$%d", n))
			n++
		} else {
			out.WriteRune(ch)
		}
	}
	return out.String()
}

func (s *PostgresStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS score_pairs (
		tenant TEXT NOT NULL DEFAULT '',
		user_id TEXT NOT NULL,
		component_id TEXT NOT NULL,
		variant_a JSONB NOT NULL,
		variant_b JSONB NOT NULL,
		active_variant TEXT NOT NULL,
		regeneration_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (tenant, user_id, component_id)
	);

	CREATE INDEX IF NOT EXISTS idx_score_pairs_tenant ON score_pairs(tenant);
	CREATE INDEX IF NOT EXISTS idx_score_pairs_updated ON score_pairs(updated_at DESC);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create score_pairs table: %w", err)
	}
	return nil
}

// GetPair loads one score pair. Missing pairs return ErrNotFound.
func (s *PostgresStore) GetPair(ctx context.Context, tenant, userID, componentID string) (*types.ScorePair, error) {
	row := s.db.QueryRowContext(ctx, rebind(`
		SELECT variant_a, variant_b, active_variant, regeneration_count, created_at, updated_at
		FROM score_pairs
		WHERE tenant = ? AND user_id = ? AND component_id = ?
	`), tenant, userID, componentID)

	pair := &types.ScorePair{
		Tenant:      tenant,
		UserID:      userID,
		ComponentID: componentID,
	}
	var rawA, rawB []byte
	err := row.Scan(&rawA, &rawB, &pair.ActiveVariant, &pair.RegenerationCount, &pair.CreatedAt, &pair.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pair %s/%s/%s: %w", tenant, userID, componentID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load score pair: %w", err)
	}

	if err := json.Unmarshal(rawA, &pair.VariantA); err != nil {
		return nil, fmt.Errorf("failed to decode variant A: %w", err)
	}
	if err := json.Unmarshal(rawB, &pair.VariantB); err != nil {
		return nil, fmt.Errorf("failed to decode variant B: %w", err)
	}
	return pair, nil
}

// SavePair upserts the pair.
func (s *PostgresStore) SavePair(ctx context.Context, pair *types.ScorePair) error {
	if pair == nil || pair.UserID == "" || pair.ComponentID == "" {
		return fmt.Errorf("save: user and component required")
	}

	rawA, err := json.Marshal(pair.VariantA)
	if err != nil {
		return fmt.Errorf("failed to encode variant A: %w", err)
	}
	rawB, err := json.Marshal(pair.VariantB)
	if err != nil {
		return fmt.Errorf("failed to encode variant B: %w", err)
	}

	_, err = s.db.ExecContext(ctx, rebind(`
		INSERT INTO score_pairs (tenant, user_id, component_id, variant_a, variant_b,
			active_variant, regeneration_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant, user_id, component_id) DO UPDATE SET
			variant_a = EXCLUDED.variant_a,
			variant_b = EXCLUDED.variant_b,
			active_variant = EXCLUDED.active_variant,
			regeneration_count = EXCLUDED.regeneration_count,
			updated_at = EXCLUDED.updated_at
	`), pair.Tenant, pair.UserID, pair.ComponentID, rawA, rawB,
		pair.ActiveVariant, pair.RegenerationCount, pair.CreatedAt, pair.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save score pair: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
