// Package decision selects a content variant for a component via a
// contextual epsilon-greedy policy: identity state and classifier
// confidence steer exploitation, a fixed epsilon keeps exploring.
package decision

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"github.com/jordanhubbard/weft/pkg/types"
)

// DefaultEpsilon is the exploration rate.
const DefaultEpsilon = 0.2

// noiseScale shrinks injected Gaussian noise as classifier confidence
// grows: well-understood users get a near-deterministic pick, uncertain
// users keep extra randomness even in exploit mode.
const noiseScale = 0.1

// Selector implements the epsilon-greedy contextual bandit.
type Selector struct {
	epsilon float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector creates a selector with the default epsilon and the given
// random source. Tests pass a fixed seed.
func NewSelector(src rand.Source) *Selector {
	return &Selector{
		epsilon: DefaultEpsilon,
		rng:     rand.New(src),
	}
}

// NewSelectorWithEpsilon overrides the exploration rate.
func NewSelectorWithEpsilon(src rand.Source, epsilon float64) *Selector {
	s := NewSelector(src)
	s.epsilon = epsilon
	return s
}

// Select picks one variant for the identity. A nil decision means no
// candidates were available: a recoverable no-op the caller records in
// the audit trail.
func (s *Selector) Select(identity types.IdentityState, confidence float64, candidates []*types.Variant) *types.Decision {
	if len(candidates) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rng.Float64() < s.epsilon {
		selected := candidates[s.rng.Intn(len(candidates))]
		return &types.Decision{
			SelectedVariant:   selected,
			Rationale:         fmt.Sprintf("Exploration mode: randomly selected %s", selected.VariantID),
			Confidence:        confidence,
			ExplorationFactor: 1.0,
		}
	}

	selected, rationale := s.exploit(identity, confidence, candidates)
	return &types.Decision{
		SelectedVariant:   selected,
		Rationale:         rationale,
		Confidence:        confidence,
		ExplorationFactor: 0.0,
	}
}

// exploit filters to variants targeting the identity (or wildcard),
// falling back to the full set, then picks the highest noisy score.
func (s *Selector) exploit(identity types.IdentityState, confidence float64, candidates []*types.Variant) (*types.Variant, string) {
	matching := make([]*types.Variant, 0, len(candidates))
	for _, v := range candidates {
		if v.TargetIdentity == identity || v.TargetIdentity == "" {
			matching = append(matching, v)
		}
	}
	if len(matching) == 0 {
		matching = candidates
	}

	type scored struct {
		variant *types.Variant
		sample  float64
	}
	samples := make([]scored, 0, len(matching))
	for _, v := range matching {
		sample := v.ConversionRate() + s.rng.NormFloat64()*noiseScale*(1-confidence)
		samples = append(samples, scored{variant: v, sample: sample})
	}

	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].sample > samples[j].sample
	})
	best := samples[0].variant

	rationale := fmt.Sprintf(
		"Exploitation mode: selected %s (target_identity=%s, conversion_rate=%.2f%%)",
		best.VariantID, targetLabel(best), best.ConversionRate()*100,
	)
	return best, rationale
}

func targetLabel(v *types.Variant) string {
	if v.TargetIdentity == "" {
		return "any"
	}
	return string(v.TargetIdentity)
}
