package analytics

import (
	"math"
	"time"

	"github.com/jordanhubbard/weft/pkg/types"
)

const (
	// RecencyWindow is the decay constant for event recency weighting.
	// Events older than several windows contribute negligibly but are
	// never explicitly discarded.
	RecencyWindow = 300 * time.Second

	// maxExploredComponents normalizes the exploration feature: touching
	// this many distinct components counts as full exploration.
	maxExploredComponents = 5.0

	// fullEngagementSeconds of weighted dwell time counts as full
	// engagement depth.
	fullEngagementSeconds = 60.0
)

// funnelEvents mark forward progress through the conversion funnel.
var funnelEvents = map[types.EventType]bool{
	types.EventPageViewed:      true,
	types.EventComponentViewed: true,
	types.EventAddToCart:       true,
	types.EventConversion:      true,
}

// Extractor turns an ordered event list into a behavioral vector.
// It is stateless; the vector is recomputed from the full event window on
// every pipeline run.
type Extractor struct {
	now func() time.Time
}

// NewExtractor creates an extractor using the wall clock.
func NewExtractor() *Extractor {
	return &Extractor{now: time.Now}
}

// NewExtractorAt creates an extractor with an injected clock for tests.
func NewExtractorAt(now func() time.Time) *Extractor {
	return &Extractor{now: now}
}

type weightedEvent struct {
	event  types.Event
	weight float64
}

// Vector computes the behavioral vector for an event history. An empty
// history yields the neutral 0.5 prior on every feature so a cold session
// never produces a false-confident classification.
func (x *Extractor) Vector(events []types.Event) types.BehavioralVector {
	if len(events) == 0 {
		return types.NeutralVector()
	}

	now := x.now().UTC()
	weighted := make([]weightedEvent, 0, len(events))
	for _, ev := range events {
		age := now.Sub(ev.Timestamp).Seconds()
		if age < 0 {
			// Clock skew from delayed client batches; treat as fresh.
			age = 0
		}
		weighted = append(weighted, weightedEvent{
			event:  ev,
			weight: math.Exp(-age / RecencyWindow.Seconds()),
		})
	}

	return types.BehavioralVector{
		Exploration:      exploration(weighted),
		Hesitation:       hesitation(weighted),
		EngagementDepth:  engagement(weighted),
		DecisionVelocity: velocity(weighted),
		ContentFocus:     focus(weighted),
	}
}

// exploration: share of distinct components touched, capped at
// maxExploredComponents.
func exploration(weighted []weightedEvent) float64 {
	components := make(map[string]bool)
	totalWeight := 0.0
	for _, we := range weighted {
		if we.event.ComponentID != "" {
			components[we.event.ComponentID] = true
		}
		totalWeight += we.weight
	}
	if totalWeight == 0 {
		return 0.5
	}
	return math.Min(float64(len(components))/maxExploredComponents, 1.0)
}

// hesitation: weighted backtrack count over total weight.
func hesitation(weighted []weightedEvent) float64 {
	backtracks := 0.0
	totalWeight := 0.0
	for _, we := range weighted {
		if we.event.Name == types.EventBacktrack {
			backtracks += we.weight
		}
		totalWeight += we.weight
	}
	if totalWeight == 0 {
		return 0.5
	}
	return math.Min(backtracks/totalWeight, 1.0)
}

// engagement: weighted dwell time normalized against fullEngagementSeconds.
func engagement(weighted []weightedEvent) float64 {
	totalTime := 0.0
	totalWeight := 0.0
	for _, we := range weighted {
		if we.event.Name == types.EventTimeOnComponent {
			totalTime += we.event.TimeSeconds() * we.weight
		}
		totalWeight += we.weight
	}
	if totalWeight == 0 {
		return 0.5
	}
	return math.Min(totalTime/fullEngagementSeconds, 1.0)
}

// velocity: weighted funnel-event count over total weight.
func velocity(weighted []weightedEvent) float64 {
	progression := 0.0
	totalWeight := 0.0
	for _, we := range weighted {
		if funnelEvents[we.event.Name] {
			progression += we.weight
		}
		totalWeight += we.weight
	}
	if totalWeight == 0 {
		return 0.5
	}
	return math.Min(progression/totalWeight, 1.0)
}

// focus: weighted dwell time on the single most-visited component as a
// share of all weighted dwell time. Measures concentration, not diversity.
func focus(weighted []weightedEvent) float64 {
	componentTimes := make(map[string]float64)
	for _, we := range weighted {
		if we.event.Name == types.EventTimeOnComponent && we.event.ComponentID != "" {
			componentTimes[we.event.ComponentID] += we.event.TimeSeconds() * we.weight
		}
	}
	if len(componentTimes) == 0 {
		return 0.5
	}

	total := 0.0
	top := 0.0
	for _, t := range componentTimes {
		total += t
		if t > top {
			top = t
		}
	}
	if total == 0 {
		return 0.5
	}
	return top / total
}
