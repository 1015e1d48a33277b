package types

import "time"

// VariantSlot names one side of an A/B comparison.
type VariantSlot string

const (
	SlotA VariantSlot = "A"
	SlotB VariantSlot = "B"
)

// Other returns the opposite slot.
func (s VariantSlot) Other() VariantSlot {
	if s == SlotA {
		return SlotB
	}
	return SlotA
}

// Interaction is one reward signal attributed to a variant slot.
type Interaction struct {
	UserID          string                 `json:"user_id"`
	Tenant          string                 `json:"tenant,omitempty"`
	ComponentID     string                 `json:"component_id"`
	InteractionType string                 `json:"interaction_type"`
	Variant         VariantSlot            `json:"variant"`
	Properties      map[string]interface{} `json:"properties,omitempty"`
	Timestamp       time.Time              `json:"timestamp"`
}

// VariantScore tracks the additive score for one slot of a pair.
type VariantScore struct {
	VariantID        VariantSlot   `json:"variant_id"`
	CurrentScore     float64       `json:"current_score"`
	InteractionCount int           `json:"interaction_count"`
	LastInteraction  *time.Time    `json:"last_interaction,omitempty"`
	History          []ScoreSample `json:"score_history,omitempty"`
}

// ScoreSample is one point in a slot's score history. Archived content is
// attached when a regeneration replaces the slot's content.
type ScoreSample struct {
	Score           float64                `json:"score"`
	Timestamp       time.Time              `json:"timestamp"`
	ArchivedContent map[string]interface{} `json:"archived_content,omitempty"`
}

// ScorePair holds both slots' scores for one (user, component) pair.
// Created lazily on first interaction; reset to the midpoint whenever
// regeneration fires.
type ScorePair struct {
	UserID            string       `json:"user_id"`
	Tenant            string       `json:"tenant,omitempty"`
	ComponentID       string       `json:"component_id"`
	VariantA          VariantScore `json:"variant_a"`
	VariantB          VariantScore `json:"variant_b"`
	ActiveVariant     VariantSlot  `json:"active_variant"`
	RegenerationCount int          `json:"regeneration_count"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// NewScorePair initializes an empty pair with slot A active.
func NewScorePair(userID, tenant, componentID string) *ScorePair {
	now := time.Now().UTC()
	return &ScorePair{
		UserID:        userID,
		Tenant:        tenant,
		ComponentID:   componentID,
		VariantA:      VariantScore{VariantID: SlotA},
		VariantB:      VariantScore{VariantID: SlotB},
		ActiveVariant: SlotA,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Slot returns the score record for the named slot.
func (p *ScorePair) Slot(s VariantSlot) *VariantScore {
	if s == SlotA {
		return &p.VariantA
	}
	return &p.VariantB
}

// ScoreUpdate reports the outcome of scoring one interaction.
type ScoreUpdate struct {
	UserID            string      `json:"user_id"`
	ComponentID       string      `json:"component_id"`
	Variant           VariantSlot `json:"variant"`
	InteractionType   string      `json:"interaction_type"`
	WeightApplied     float64     `json:"weight_applied"`
	NewScore          float64     `json:"new_score"`
	ScoreA            float64     `json:"variant_a_score"`
	ScoreB            float64     `json:"variant_b_score"`
	ScoreDifference   float64     `json:"score_difference"`
	Threshold         float64     `json:"threshold"`
	Regenerated       bool        `json:"should_regenerate"`
	RegenerateVariant VariantSlot `json:"regenerate_variant,omitempty"`
}

// RegenJob asks the regeneration worker to replace a losing slot's content.
type RegenJob struct {
	JobID          string                 `json:"job_id"`
	Tenant         string                 `json:"tenant,omitempty"`
	UserID         string                 `json:"user_id"`
	ComponentID    string                 `json:"component_id"`
	LosingVariant  VariantSlot            `json:"losing_variant"`
	LosingContent  map[string]interface{} `json:"losing_content,omitempty"`
	WinningContent map[string]interface{} `json:"winning_content,omitempty"`
	PageContext    string                 `json:"page_context,omitempty"`
	ScoreAtTrigger float64                `json:"score_at_trigger"`
	RequestedAt    time.Time              `json:"requested_at"`
}
