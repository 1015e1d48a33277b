package config

import (
	"fmt"
	"sync"
)

// DefaultThreshold is the score gap that triggers regeneration.
const DefaultThreshold = 5.0

// DefaultWeights maps interaction types to score deltas. Positive weights
// reward desired behavior, negative weights capture friction, near-zero
// weights keep noisy signals from dominating.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		// Positive interactions
		"click":            1.0,
		"cta_click":        3.0,
		"add_to_cart":      5.0,
		"purchase":         10.0,
		"form_submit":      4.0,
		"signup":           6.0,
		"share":            2.0,
		"save":             2.5,
		"hover_long":       0.5,
		"scroll_to_bottom": 1.5,
		"video_play":       1.0,
		"video_complete":   3.0,

		// Negative interactions
		"bounce":      -2.0,
		"rage_click":  -1.5,
		"dead_click":  -0.5,
		"scroll_fast": -0.3,
		"exit_intent": -1.0,
		"tab_switch":  -0.2,

		// Neutral / contextual
		"page_view":      0.1,
		"component_view": 0.2,
		"scroll":         0.05,
		"mouse_move":     0.0, // too noisy to score
	}
}

// TenantScoring overrides weights and threshold for one tenant.
type TenantScoring struct {
	Weights   map[string]float64 `yaml:"weights"`
	Threshold *float64           `yaml:"threshold"`
}

// ScoringConfig holds the default weight table plus per-tenant overrides.
type ScoringConfig struct {
	Weights   map[string]float64       `yaml:"weights"`
	Threshold float64                  `yaml:"threshold"`
	Tenants   map[string]TenantScoring `yaml:"tenants"`
}

// DefaultScoringConfig returns the stock weight table and threshold.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		Weights:   DefaultWeights(),
		Threshold: DefaultThreshold,
	}
}

// Validate rejects configurations the scorer cannot run with.
func (c ScoringConfig) Validate() error {
	if c.Threshold <= 0 {
		return fmt.Errorf("threshold must be positive, got %v", c.Threshold)
	}
	for tenant, t := range c.Tenants {
		if t.Threshold != nil && *t.Threshold <= 0 {
			return fmt.Errorf("tenant %s: threshold must be positive, got %v", tenant, *t.Threshold)
		}
	}
	return nil
}

// WeightSource is the live, reloadable view of the scoring configuration
// the engine reads on every interaction. Replace swaps the table without
// disturbing readers holding the source.
type WeightSource struct {
	mu  sync.RWMutex
	cfg ScoringConfig
}

// NewWeightSource wraps a scoring configuration.
func NewWeightSource(cfg ScoringConfig) *WeightSource {
	return &WeightSource{cfg: cfg}
}

// GetWeights returns the weight table for a tenant: tenant overrides
// layered on the defaults. Unknown tenants get the defaults.
func (s *WeightSource) GetWeights(tenant string) map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]float64, len(s.cfg.Weights))
	for k, v := range s.cfg.Weights {
		out[k] = v
	}
	if t, ok := s.cfg.Tenants[tenant]; ok {
		for k, v := range t.Weights {
			out[k] = v
		}
	}
	return out
}

// GetThreshold returns the regeneration threshold for a tenant.
func (s *WeightSource) GetThreshold(tenant string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, ok := s.cfg.Tenants[tenant]; ok && t.Threshold != nil {
		return *t.Threshold
	}
	return s.cfg.Threshold
}

// Replace validates and swaps in a new configuration.
func (s *WeightSource) Replace(cfg ScoringConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	return nil
}
