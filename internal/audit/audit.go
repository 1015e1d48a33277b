// Package audit collects the explainability trail the pipeline and scoring
// loop emit: one entry per agent action, buffered in memory and optionally
// persisted to Postgres so operators can reconstruct why a visitor saw a
// given variant.
package audit

import (
	"container/ring"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

// MaxBufferSize is the maximum number of audit entries kept in memory.
const MaxBufferSize = 10000

// Entry is a single audit record.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id"`
	Agent     string    `json:"agent"`
	Message   string    `json:"message"`
}

// Manager handles audit collection, buffering, and persistence.
type Manager struct {
	mu       sync.RWMutex
	buffer   *ring.Ring
	db       *sql.DB
	handlers []func(Entry)
}

// NewManager creates an audit manager. db may be nil for in-memory-only
// buffering.
func NewManager(db *sql.DB) *Manager {
	m := &Manager{
		buffer: ring.New(MaxBufferSize),
		db:     db,
	}

	if err := m.initSchema(); err != nil {
		log.Printf("Warning: Failed to initialize audit schema: %v", err)
	}

	return m
}

// rebindQuery converts ? placeholders to $N for PostgreSQL.
func rebindQuery(query string) string {
	n := 1
	var out strings.Builder
	for _, ch := range query {
		if ch == '?' {
			fmt.Fprintf(&out, "$%d", n)
			n++
		} else {
			out.WriteRune(ch)
		}
	}
	return out.String()
}

func (m *Manager) initSchema() error {
	if m.db == nil {
		return nil
	}

	_, err := m.db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_entries (
			id TEXT PRIMARY KEY,
			timestamp TIMESTAMP NOT NULL,
			session_id TEXT NOT NULL,
			agent TEXT NOT NULL,
			message TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create audit_entries table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_entries(timestamp DESC)",
		"CREATE INDEX IF NOT EXISTS idx_audit_session ON audit_entries(session_id)",
	}
	for _, indexSQL := range indexes {
		if _, err := m.db.Exec(indexSQL); err != nil {
			log.Printf("Warning: Failed to create index: %v", err)
		}
	}

	return nil
}

// Record adds an audit entry to the buffer and persists it asynchronously.
func (m *Manager) Record(sessionID, agent, message string) {
	entry := Entry{
		ID:        fmt.Sprintf("audit-%d", time.Now().UnixNano()),
		Timestamp: time.Now().UTC(),
		SessionID: sessionID,
		Agent:     agent,
		Message:   message,
	}

	m.mu.Lock()
	m.buffer.Value = entry
	m.buffer = m.buffer.Next()
	handlers := m.handlers
	m.mu.Unlock()

	for _, handler := range handlers {
		go handler(entry)
	}

	go m.persist(entry)
}

func (m *Manager) persist(entry Entry) {
	if m.db == nil {
		return
	}

	_, err := m.db.Exec(rebindQuery(`
		INSERT INTO audit_entries (id, timestamp, session_id, agent, message)
		VALUES (?, ?, ?, ?, ?)
	`), entry.ID, entry.Timestamp, entry.SessionID, entry.Agent, entry.Message)

	if err != nil {
		log.Printf("Failed to persist audit entry: %v", err)
	}
}

// Subscribe registers a handler notified for every recorded entry.
func (m *Manager) Subscribe(handler func(Entry)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, handler)
}

// Recent returns up to limit buffered entries, optionally filtered by
// session ID, newest last.
func (m *Manager) Recent(limit int, sessionID string) []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 || limit > MaxBufferSize {
		limit = 100
	}

	entries := make([]Entry, 0, limit)
	m.buffer.Do(func(v interface{}) {
		if v == nil {
			return
		}
		entry, ok := v.(Entry)
		if !ok {
			return
		}
		if sessionID != "" && entry.SessionID != sessionID {
			return
		}
		entries = append(entries, entry)
	})

	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries
}
