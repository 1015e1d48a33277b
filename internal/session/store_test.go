package session

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanhubbard/weft/pkg/types"
)

func TestMemoryStore_LoadMissing(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_SaveLoadRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	sess := types.NewSession("sess-1")
	sess.AddEvent(types.Event{Name: types.EventClick, SessionID: "sess-1"})
	sess.IdentityState = types.IdentityCautious

	require.NoError(t, s.Save(context.Background(), sess))

	loaded, err := s.Load(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, types.IdentityCautious, loaded.IdentityState)
	assert.Len(t, loaded.EventHistory, 1)
}

func TestMemoryStore_LoadReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Save(context.Background(), types.NewSession("sess-1")))

	first, err := s.Load(context.Background(), "sess-1")
	require.NoError(t, err)
	first.IdentityState = types.IdentityImpulseBuyer
	first.AddAudit("tampered")

	second, err := s.Load(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Empty(t, second.IdentityState)
	assert.Empty(t, second.AuditLog)
}

func TestMemoryStore_WithSessionCreates(t *testing.T) {
	s := NewMemoryStore()

	err := s.WithSession(context.Background(), "fresh", func(sess *types.Session) error {
		sess.AddEvent(types.Event{Name: types.EventPageViewed, SessionID: "fresh"})
		return nil
	})
	require.NoError(t, err)

	loaded, err := s.Load(context.Background(), "fresh")
	require.NoError(t, err)
	assert.Len(t, loaded.EventHistory, 1)
}

func TestMemoryStore_WithSessionSerializesWriters(t *testing.T) {
	s := NewMemoryStore()

	const writers = 50
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			_ = s.WithSession(context.Background(), "contended", func(sess *types.Session) error {
				sess.OutcomeMetrics["count"] = intMetric(sess, "count") + 1
				return nil
			})
		}()
	}
	wg.Wait()

	loaded, err := s.Load(context.Background(), "contended")
	require.NoError(t, err)
	assert.Equal(t, writers, intMetric(loaded, "count"))
}

func TestMemoryStore_WithSessionErrorSkipsSave(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Save(context.Background(), types.NewSession("keep")))

	err := s.WithSession(context.Background(), "keep", func(sess *types.Session) error {
		sess.IdentityState = types.IdentityConfident
		return assert.AnError
	})
	require.Error(t, err)

	loaded, err := s.Load(context.Background(), "keep")
	require.NoError(t, err)
	assert.Empty(t, loaded.IdentityState)
}

func intMetric(sess *types.Session, key string) int {
	if v, ok := sess.OutcomeMetrics[key].(int); ok {
		return v
	}
	return 0
}
