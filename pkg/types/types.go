package types

import (
	"fmt"
	"time"
)

// EventType identifies a client-side behavioral event.
type EventType string

const (
	EventPageViewed       EventType = "page_viewed"
	EventComponentViewed  EventType = "component_viewed"
	EventScrollDepth      EventType = "scroll_depth_reached"
	EventTimeOnComponent  EventType = "time_on_component"
	EventClick            EventType = "click"
	EventBacktrack        EventType = "backtrack"
	EventAddToCart        EventType = "add_to_cart"
	EventConversion       EventType = "conversion_completed"
	EventVariantShown     EventType = "variant_shown"
	EventMouseHesitation  EventType = "mouse_hesitation"
	EventScrollDirChange  EventType = "scroll_direction_change"
	EventScrollFast       EventType = "scroll_fast"
	EventRageClick        EventType = "rage_click"
	EventDeadClick        EventType = "dead_click"
	EventHover            EventType = "hover"
	EventTabHidden        EventType = "tab_hidden"
	EventExitIntent       EventType = "page_exit_intent"
	EventFirstInteraction EventType = "first_interaction"
	EventProductClick     EventType = "product_click"
)

// Event is a single immutable behavioral event recorded by client
// instrumentation and appended to a session's history.
type Event struct {
	Name        EventType              `json:"event_name"`
	Timestamp   time.Time              `json:"timestamp"`
	SessionID   string                 `json:"session_id"`
	UserID      string                 `json:"user_id,omitempty"`
	ComponentID string                 `json:"component_id,omitempty"`
	Properties  map[string]interface{} `json:"properties,omitempty"`
}

// TimeSeconds returns the "time_seconds" property of a time_on_component
// event, tolerating the numeric types JSON decoding produces.
func (e *Event) TimeSeconds() float64 {
	switch v := e.Properties["time_seconds"].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// BehavioralVector is the five-dimensional normalized summary of a user's
// recent interaction pattern. Every component is in [0,1].
type BehavioralVector struct {
	Exploration      float64 `json:"exploration_score"`
	Hesitation       float64 `json:"hesitation_score"`
	EngagementDepth  float64 `json:"engagement_depth"`
	DecisionVelocity float64 `json:"decision_velocity"`
	ContentFocus     float64 `json:"content_focus_ratio"`
}

// NeutralVector is the cold-start prior used when no events carry signal.
func NeutralVector() BehavioralVector {
	return BehavioralVector{
		Exploration:      0.5,
		Hesitation:       0.5,
		EngagementDepth:  0.5,
		DecisionVelocity: 0.5,
		ContentFocus:     0.5,
	}
}

// IdentityState is a discrete label approximating user intent, inferred
// from the behavioral vector.
type IdentityState string

const (
	IdentityExploratory       IdentityState = "exploratory"
	IdentityOverwhelmed       IdentityState = "overwhelmed"
	IdentityComparisonFocused IdentityState = "comparison_focused"
	IdentityConfident         IdentityState = "confident"
	IdentityReadyToDecide     IdentityState = "ready_to_decide"
	IdentityCautious          IdentityState = "cautious"
	IdentityImpulseBuyer      IdentityState = "impulse_buyer"
)

// AllIdentityStates lists every valid identity state, in prompt order.
var AllIdentityStates = []IdentityState{
	IdentityExploratory,
	IdentityOverwhelmed,
	IdentityComparisonFocused,
	IdentityConfident,
	IdentityReadyToDecide,
	IdentityCautious,
	IdentityImpulseBuyer,
}

// ParseIdentityState validates a raw string against the closed enumeration.
func ParseIdentityState(s string) (IdentityState, error) {
	for _, state := range AllIdentityStates {
		if string(state) == s {
			return state, nil
		}
	}
	return "", fmt.Errorf("unknown identity state %q", s)
}

// Variant is one alternative version of a UI component's content.
// Variants are read-mostly reference data; performance metrics are
// updated out-of-band by the scoring subsystem.
type Variant struct {
	VariantID          string                 `json:"variant_id"`
	ComponentID        string                 `json:"component_id"`
	VariantType        string                 `json:"variant_type"`
	Content            map[string]interface{} `json:"content"`
	TargetIdentity     IdentityState          `json:"target_identity,omitempty"` // empty = wildcard
	PerformanceMetrics map[string]float64     `json:"performance_metrics,omitempty"`
	CreatedAt          time.Time              `json:"created_at,omitempty"`
}

// ConversionRate returns the variant's observed conversion rate, or 0 when
// no performance data exists yet.
func (v *Variant) ConversionRate() float64 {
	return v.PerformanceMetrics["conversion_rate"]
}

// Decision is the variant selector's output for one pipeline run.
type Decision struct {
	SelectedVariant   *Variant `json:"selected_variant"`
	Rationale         string   `json:"rationale"`
	Confidence        float64  `json:"confidence"`
	ExplorationFactor float64  `json:"exploration_factor"` // 1.0 explore, 0.0 exploit
}

// GuardrailResult is the validator's verdict on a (session, decision) pair.
// A rejected decision is returned to the caller, never silently shipped;
// overriding a rejection is the caller's explicit choice.
type GuardrailResult struct {
	Approved      bool     `json:"approved"`
	Reason        string   `json:"reason"`
	ViolatedRules []string `json:"violated_rules,omitempty"`
}
