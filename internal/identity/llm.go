package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jordanhubbard/weft/internal/provider"
	"github.com/jordanhubbard/weft/pkg/types"
)

// DefaultClassifyTimeout bounds the external classifier call.
const DefaultClassifyTimeout = 5 * time.Second

const classifySystemPrompt = `You are an identity interpretation agent that analyzes user behavior patterns.

Given a behavioral vector with these dimensions (all 0.0 to 1.0):
- exploration_score: How much the user is exploring vs focused (high = exploring many items)
- hesitation_score: Degree of indecision/backtracking (high = uncertain/hesitant)
- engagement_depth: Time spent vs content consumed (high = deep engagement)
- decision_velocity: Speed of progression through funnel (high = moving fast)
- content_focus_ratio: Focused vs scattered attention (high = focused on specific content)

Interpret the user's current identity state. Choose ONE from:
- exploratory: Browsing many options, high exploration
- overwhelmed: High exploration + high hesitation, struggling to choose
- comparison_focused: High engagement + moderate exploration, researching carefully
- confident: Low hesitation + high velocity, knows what they want
- ready_to_decide: High engagement + high velocity + low hesitation
- cautious: Low velocity + high engagement, being very careful
- impulse_buyer: High velocity + low engagement, quick decisions

Return ONLY a JSON object with:
{
  "identity_state": "one_of_the_states_above",
  "confidence": 0.0-1.0,
  "reasoning": "brief explanation"
}`

// LLMClassifier is the external strategy: it serializes the vector, asks
// the language-model collaborator, and parses a strict JSON answer. Any
// timeout, transport error, malformed response, or out-of-enum state
// degrades to the rule chain rather than surfacing an error.
type LLMClassifier struct {
	provider provider.Protocol
	fallback *RuleClassifier
	timeout  time.Duration
}

// NewLLMClassifier creates the external-classifier strategy. A zero
// timeout selects DefaultClassifyTimeout.
func NewLLMClassifier(p provider.Protocol, timeout time.Duration) *LLMClassifier {
	if timeout <= 0 {
		timeout = DefaultClassifyTimeout
	}
	return &LLMClassifier{
		provider: p,
		fallback: NewRuleClassifier(),
		timeout:  timeout,
	}
}

type classifyResponse struct {
	IdentityState string  `json:"identity_state"`
	Confidence    float64 `json:"confidence"`
	Reasoning     string  `json:"reasoning"`
}

// Classify asks the collaborator, falling back to the rule chain on any
// failure.
func (c *LLMClassifier) Classify(ctx context.Context, v types.BehavioralVector) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	vectorJSON, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return c.degrade(ctx, v, fmt.Sprintf("serialize vector: %v", err))
	}

	raw, err := c.provider.Complete(ctx, classifySystemPrompt, "Behavioral vector:\n"+string(vectorJSON))
	if err != nil {
		return c.degrade(ctx, v, fmt.Sprintf("provider call: %v", err))
	}

	var parsed classifyResponse
	if err := json.Unmarshal([]byte(extractJSON(raw)), &parsed); err != nil {
		return c.degrade(ctx, v, fmt.Sprintf("parse response: %v", err))
	}

	state, err := types.ParseIdentityState(parsed.IdentityState)
	if err != nil {
		return c.degrade(ctx, v, err.Error())
	}
	if parsed.Confidence < 0 || parsed.Confidence > 1 {
		return c.degrade(ctx, v, fmt.Sprintf("confidence %v out of range", parsed.Confidence))
	}

	return Result{
		State:      state,
		Confidence: parsed.Confidence,
		Reasoning:  parsed.Reasoning,
	}
}

func (c *LLMClassifier) degrade(ctx context.Context, v types.BehavioralVector, reason string) Result {
	log.Printf("[Identity] external classifier unavailable, using rule fallback: %s", reason)
	res := c.fallback.Classify(ctx, v)
	res.Fallback = true
	res.FallbackReason = reason
	return res
}

// extractJSON trims markdown code fences and surrounding prose that chat
// models wrap around JSON answers.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if start := strings.Index(s, "{"); start >= 0 {
		if end := strings.LastIndex(s, "}"); end > start {
			return s[start : end+1]
		}
	}
	return s
}
