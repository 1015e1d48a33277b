package scoring

import (
	"context"
	"fmt"
	"sync"

	"github.com/jordanhubbard/weft/pkg/types"
)

// ErrNotFound is returned when a score pair does not exist yet.
var ErrNotFound = fmt.Errorf("score pair not found")

// PairKey identifies one (tenant, user, component) score pair.
func PairKey(tenant, userID, componentID string) string {
	return fmt.Sprintf("%s|%s|%s", tenant, userID, componentID)
}

// Store persists score pairs.
type Store interface {
	GetPair(ctx context.Context, tenant, userID, componentID string) (*types.ScorePair, error)
	SavePair(ctx context.Context, pair *types.ScorePair) error
}

// MemoryStore is the in-memory score store.
type MemoryStore struct {
	mu    sync.RWMutex
	pairs map[string]*types.ScorePair
}

// NewMemoryStore creates an empty score store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{pairs: make(map[string]*types.ScorePair)}
}

// GetPair returns a copy of the stored pair.
func (s *MemoryStore) GetPair(_ context.Context, tenant, userID, componentID string) (*types.ScorePair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pair, ok := s.pairs[PairKey(tenant, userID, componentID)]
	if !ok {
		return nil, fmt.Errorf("pair %s/%s/%s: %w", tenant, userID, componentID, ErrNotFound)
	}
	cp := copyPair(pair)
	return cp, nil
}

// SavePair stores a copy of the pair.
func (s *MemoryStore) SavePair(_ context.Context, pair *types.ScorePair) error {
	if pair == nil || pair.UserID == "" || pair.ComponentID == "" {
		return fmt.Errorf("save: user and component required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pairs[PairKey(pair.Tenant, pair.UserID, pair.ComponentID)] = copyPair(pair)
	return nil
}

func copyPair(in *types.ScorePair) *types.ScorePair {
	out := *in
	out.VariantA.History = append([]types.ScoreSample(nil), in.VariantA.History...)
	out.VariantB.History = append([]types.ScoreSample(nil), in.VariantB.History...)
	return &out
}
