package identity

import (
	"context"
	"fmt"

	"github.com/jordanhubbard/weft/pkg/types"
)

// RuleConfidence is the fixed confidence attached to rule-chain results,
// signaling a heuristic rather than model-derived classification.
const RuleConfidence = 0.6

// RuleClassifier is the deterministic strategy: an ordered predicate chain,
// first match wins. It doubles as the offline/test oracle and as the
// fallback for the external strategy.
type RuleClassifier struct{}

// NewRuleClassifier creates the rule-based strategy.
func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{}
}

// Classify evaluates the predicate chain. Pure: identical vectors always
// yield identical results.
func (c *RuleClassifier) Classify(_ context.Context, v types.BehavioralVector) Result {
	state, reason := ruleMatch(v)
	return Result{
		State:      state,
		Confidence: RuleConfidence,
		Reasoning:  reason,
	}
}

func ruleMatch(v types.BehavioralVector) (types.IdentityState, string) {
	switch {
	case v.Hesitation > 0.7 && v.Exploration > 0.6:
		return types.IdentityOverwhelmed,
			fmt.Sprintf("high hesitation (%.2f) with high exploration (%.2f)", v.Hesitation, v.Exploration)
	case v.DecisionVelocity > 0.7 && v.Hesitation < 0.3:
		return types.IdentityConfident,
			fmt.Sprintf("high velocity (%.2f) with low hesitation (%.2f)", v.DecisionVelocity, v.Hesitation)
	case v.EngagementDepth > 0.7 && v.ContentFocus > 0.6:
		return types.IdentityComparisonFocused,
			fmt.Sprintf("deep engagement (%.2f) with focused attention (%.2f)", v.EngagementDepth, v.ContentFocus)
	case v.DecisionVelocity > 0.7 && v.EngagementDepth < 0.4:
		return types.IdentityImpulseBuyer,
			fmt.Sprintf("high velocity (%.2f) with shallow engagement (%.2f)", v.DecisionVelocity, v.EngagementDepth)
	case v.Exploration > 0.6:
		return types.IdentityExploratory,
			fmt.Sprintf("high exploration (%.2f)", v.Exploration)
	default:
		return types.IdentityCautious, "no dominant signal"
	}
}
