// Package guardrail runs deterministic policy checks over a personalization
// decision. Checks are independent booleans; every violation is collected,
// nothing short-circuits, and the validator never mutates its inputs.
// Enforcement of a rejection belongs to the caller.
package guardrail

import (
	"fmt"
	"strings"

	"github.com/jordanhubbard/weft/pkg/types"
)

// Policy holds the fixed allow-lists the validator checks against.
type Policy struct {
	// AllowedComponents are the page components personalization may touch.
	AllowedComponents []string `yaml:"allowed_components"`
	// AllowedVariantTypes are the permitted content kinds.
	AllowedVariantTypes []string `yaml:"allowed_variant_types"`
}

// DefaultPolicy returns the stock allow-lists.
func DefaultPolicy() Policy {
	return Policy{
		AllowedComponents:   []string{"hero", "product_card", "cta_banner", "testimonials"},
		AllowedVariantTypes: []string{"headline", "cta", "image", "layout"},
	}
}

// pricingKeys in variant content indicate dynamic pricing, which is never
// allowed.
var pricingKeys = []string{"price", "discount"}

// Validator evaluates a (session, decision) pair against the policy.
type Validator struct {
	policy            Policy
	allowedComponents map[string]bool
	allowedTypes      map[string]bool
}

// NewValidator creates a validator for the policy. An empty policy list
// falls back to the corresponding default allow-list.
func NewValidator(policy Policy) *Validator {
	defaults := DefaultPolicy()
	if len(policy.AllowedComponents) == 0 {
		policy.AllowedComponents = defaults.AllowedComponents
	}
	if len(policy.AllowedVariantTypes) == 0 {
		policy.AllowedVariantTypes = defaults.AllowedVariantTypes
	}

	v := &Validator{
		policy:            policy,
		allowedComponents: make(map[string]bool, len(policy.AllowedComponents)),
		allowedTypes:      make(map[string]bool, len(policy.AllowedVariantTypes)),
	}
	for _, c := range policy.AllowedComponents {
		v.allowedComponents[c] = true
	}
	for _, vt := range policy.AllowedVariantTypes {
		v.allowedTypes[vt] = true
	}
	return v
}

// Validate runs every check and collects violations. Pure and idempotent:
// identical inputs always produce the identical result.
func (g *Validator) Validate(session *types.Session, decision *types.Decision) types.GuardrailResult {
	var violations []string

	if g.checkProtectedTraits(session) {
		violations = append(violations, "Protected trait inference detected")
	}
	if g.checkPricing(decision) {
		violations = append(violations, "Price manipulation detected")
	}
	if g.checkSessionScope(session) {
		violations = append(violations, "Session scope violation")
	}
	if g.checkLanguageConsistency(session, decision) {
		violations = append(violations, "Language inconsistency detected")
	}
	if g.checkComponentScope(decision) {
		violations = append(violations, "Unauthorized component modification")
	}

	if len(violations) == 0 {
		return types.GuardrailResult{Approved: true, Reason: "All checks passed"}
	}
	return types.GuardrailResult{
		Approved:      false,
		Reason:        fmt.Sprintf("Violations: %s", strings.Join(violations, ", ")),
		ViolatedRules: violations,
	}
}

// checkProtectedTraits flags sessions that carry demographic or other
// protected-trait data; only behavioral signals may feed classification.
func (g *Validator) checkProtectedTraits(session *types.Session) bool {
	if session == nil {
		return false
	}
	_, ok := session.OutcomeMetrics["demographics"]
	return ok
}

// checkPricing flags variant content bearing price or discount fields.
func (g *Validator) checkPricing(decision *types.Decision) bool {
	if decision == nil || decision.SelectedVariant == nil {
		return false
	}
	for _, key := range pricingKeys {
		if _, ok := decision.SelectedVariant.Content[key]; ok {
			return true
		}
	}
	return false
}

// checkSessionScope ensures the inferred identity stays session-scoped.
// Always passes today; kept structurally so the rule set stays extensible.
func (g *Validator) checkSessionScope(_ *types.Session) bool {
	return false
}

// checkLanguageConsistency ensures the variant matches the session locale.
// Always passes today; kept structurally so the rule set stays extensible.
func (g *Validator) checkLanguageConsistency(_ *types.Session, _ *types.Decision) bool {
	return false
}

// checkComponentScope flags decisions touching components or content kinds
// outside the allow-lists.
func (g *Validator) checkComponentScope(decision *types.Decision) bool {
	if decision == nil || decision.SelectedVariant == nil {
		return false
	}
	if !g.allowedComponents[decision.SelectedVariant.ComponentID] {
		return true
	}
	return !g.allowedTypes[decision.SelectedVariant.VariantType]
}
