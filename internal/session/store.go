// Package session provides the session store abstraction. The core never
// owns global session state: a store is injected, and runs for the same
// session are serialized through it (single-writer per session).
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jordanhubbard/weft/internal/metrics"
	"github.com/jordanhubbard/weft/pkg/types"
)

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = fmt.Errorf("session not found")

// Store persists session records between pipeline runs.
type Store interface {
	Load(ctx context.Context, sessionID string) (*types.Session, error)
	Save(ctx context.Context, session *types.Session) error

	// WithSession runs fn under the store's per-session serialization:
	// the session is loaded (or created), passed to fn, and saved after
	// fn returns nil. Concurrent calls for the same session ID do not
	// interleave their read-modify-write cycles.
	WithSession(ctx context.Context, sessionID string, fn func(*types.Session) error) error
}

// MemoryStore keeps sessions in process memory with a mutex per session.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*types.Session
	locks    map[string]*sync.Mutex
	metrics  *metrics.Metrics
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*types.Session),
		locks:    make(map[string]*sync.Mutex),
		metrics:  metrics.NewMetrics(),
	}
}

// Load returns a copy of the stored session.
func (s *MemoryStore) Load(_ context.Context, sessionID string) (*types.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.sessions[sessionID]
	if !ok {
		s.metrics.SessionLoads.WithLabelValues("miss").Inc()
		return nil, fmt.Errorf("load %s: %w", sessionID, ErrNotFound)
	}
	s.metrics.SessionLoads.WithLabelValues("hit").Inc()
	return copySession(stored), nil
}

// Save stores a copy of the session.
func (s *MemoryStore) Save(_ context.Context, session *types.Session) error {
	if session == nil || session.SessionID == "" {
		return fmt.Errorf("save: session ID required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.SessionID] = copySession(session)
	s.metrics.SessionSaves.WithLabelValues("ok").Inc()
	return nil
}

// WithSession serializes read-modify-write cycles per session ID.
func (s *MemoryStore) WithSession(ctx context.Context, sessionID string, fn func(*types.Session) error) error {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := s.Load(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		sess = types.NewSession(sessionID)
	} else if err != nil {
		return err
	}

	if err := fn(sess); err != nil {
		return err
	}
	return s.Save(ctx, sess)
}

func (s *MemoryStore) sessionLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[sessionID] = lock
	}
	return lock
}

func copySession(in *types.Session) *types.Session {
	out := *in
	out.EventHistory = append([]types.Event(nil), in.EventHistory...)
	out.AuditLog = append([]string(nil), in.AuditLog...)
	if in.BehavioralVector != nil {
		v := *in.BehavioralVector
		out.BehavioralVector = &v
	}
	if in.OutcomeMetrics != nil {
		out.OutcomeMetrics = make(map[string]interface{}, len(in.OutcomeMetrics))
		for k, v := range in.OutcomeMetrics {
			out.OutcomeMetrics[k] = v
		}
	}
	return &out
}
