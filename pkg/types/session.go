package types

import (
	"fmt"
	"time"
)

// MaxEventHistory bounds a session's retained event history.
const MaxEventHistory = 50

// Session is the shared record one pipeline run reads and mutates.
// The pipeline owns it for the duration of a run: each stage mutates its
// own fields and hands the record on, single-writer, no concurrent access
// within a run. Serialization across runs for the same session is the
// session store's responsibility.
type Session struct {
	SessionID          string                 `json:"session_id"`
	UserID             string                 `json:"user_id,omitempty"`
	Language           string                 `json:"language,omitempty"`
	EventHistory       []Event                `json:"event_history"`
	BehavioralVector   *BehavioralVector      `json:"behavioral_vector,omitempty"`
	IdentityState      IdentityState          `json:"identity_state,omitempty"`
	IdentityConfidence float64                `json:"identity_confidence"`
	LastVariantShown   string                 `json:"last_variant_shown,omitempty"`
	OutcomeMetrics     map[string]interface{} `json:"outcome_metrics,omitempty"`
	AuditLog           []string               `json:"audit_log,omitempty"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
}

// NewSession creates an empty session record.
func NewSession(sessionID string) *Session {
	now := time.Now().UTC()
	return &Session{
		SessionID:      sessionID,
		Language:       "en",
		OutcomeMetrics: make(map[string]interface{}),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// AddEvent appends an event, keeping only the most recent MaxEventHistory.
func (s *Session) AddEvent(ev Event) {
	s.EventHistory = append(s.EventHistory, ev)
	if len(s.EventHistory) > MaxEventHistory {
		s.EventHistory = s.EventHistory[len(s.EventHistory)-MaxEventHistory:]
	}
	s.UpdatedAt = time.Now().UTC()
}

// AddAudit appends a timestamped entry to the session's audit trail.
func (s *Session) AddAudit(format string, args ...interface{}) {
	entry := fmt.Sprintf("[%s] %s", time.Now().UTC().Format(time.RFC3339), fmt.Sprintf(format, args...))
	s.AuditLog = append(s.AuditLog, entry)
}
