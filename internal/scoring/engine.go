// Package scoring accumulates weighted interaction scores per
// (user, component) pair and triggers variant regeneration when the A/B
// score gap crosses the tenant's threshold. It runs independently of the
// identity pipeline: the pipeline decides which variant an identity sees,
// this loop decides whether content itself should evolve.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jordanhubbard/weft/internal/bus"
	"github.com/jordanhubbard/weft/internal/metrics"
	"github.com/jordanhubbard/weft/internal/variants"
	"github.com/jordanhubbard/weft/pkg/types"
)

// WeightSource supplies per-tenant interaction weights and the
// regeneration threshold. *config.WeightSource satisfies it.
type WeightSource interface {
	GetWeights(tenant string) map[string]float64
	GetThreshold(tenant string) float64
}

// Engine scores interactions and fires regeneration jobs.
type Engine struct {
	store   Store
	weights WeightSource
	slots   variants.SlotStore // may be nil; jobs then carry no content
	bus     bus.Bus            // may be nil; triggers are then audit-only
	metrics *metrics.Metrics

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEngine wires a scoring engine.
func NewEngine(store Store, weights WeightSource, slots variants.SlotStore, b bus.Bus) *Engine {
	return &Engine{
		store:   store,
		weights: weights,
		slots:   slots,
		bus:     b,
		metrics: metrics.NewMetrics(),
		locks:   make(map[string]*sync.Mutex),
	}
}

// Score applies one interaction to its (user, component) pair and runs
// the regeneration check. Updates for the same pair are serialized so the
// read-decide-mutate sequence cannot double-trigger or lose increments
// under concurrent interactions.
func (e *Engine) Score(ctx context.Context, interaction types.Interaction) (*types.ScoreUpdate, error) {
	if interaction.UserID == "" || interaction.ComponentID == "" {
		return nil, fmt.Errorf("score: user and component required")
	}
	if interaction.Variant != types.SlotA && interaction.Variant != types.SlotB {
		return nil, fmt.Errorf("score: unknown variant slot %q", interaction.Variant)
	}

	lock := e.pairLock(PairKey(interaction.Tenant, interaction.UserID, interaction.ComponentID))
	lock.Lock()
	defer lock.Unlock()

	pair, err := e.store.GetPair(ctx, interaction.Tenant, interaction.UserID, interaction.ComponentID)
	if errors.Is(err, ErrNotFound) {
		// First interaction for this pair.
		pair = types.NewScorePair(interaction.UserID, interaction.Tenant, interaction.ComponentID)
	} else if err != nil {
		// A store failure must not masquerade as a fresh pair: saving a
		// zeroed pair over the real one would wipe the accumulator.
		return nil, fmt.Errorf("load pair: %w", err)
	}

	weight := e.weights.GetWeights(interaction.Tenant)[interaction.InteractionType]
	now := interaction.Timestamp
	if now.IsZero() {
		now = time.Now().UTC()
	}

	slot := pair.Slot(interaction.Variant)
	slot.CurrentScore += weight
	slot.InteractionCount++
	slot.LastInteraction = &now
	slot.History = append(slot.History, types.ScoreSample{Score: slot.CurrentScore, Timestamp: now})
	pair.ActiveVariant = interaction.Variant
	pair.UpdatedAt = now

	threshold := e.weights.GetThreshold(interaction.Tenant)
	update := &types.ScoreUpdate{
		UserID:          interaction.UserID,
		ComponentID:     interaction.ComponentID,
		Variant:         interaction.Variant,
		InteractionType: interaction.InteractionType,
		WeightApplied:   weight,
		NewScore:        slot.CurrentScore,
		ScoreA:          pair.VariantA.CurrentScore,
		ScoreB:          pair.VariantB.CurrentScore,
		Threshold:       threshold,
	}
	update.ScoreDifference = math.Abs(update.ScoreA - update.ScoreB)

	e.metrics.ScoreUpdates.WithLabelValues(interaction.InteractionType).Inc()
	e.metrics.ScoreGap.Observe(update.ScoreDifference)

	if update.ScoreDifference >= threshold {
		update.Regenerated = true
		update.RegenerateVariant = losingSlot(pair)
		e.triggerRegeneration(ctx, pair, update.RegenerateVariant, now)
		update.ScoreA = pair.VariantA.CurrentScore
		update.ScoreB = pair.VariantB.CurrentScore
	}

	if err := e.store.SavePair(ctx, pair); err != nil {
		return nil, fmt.Errorf("save pair: %w", err)
	}
	return update, nil
}

// losingSlot picks the slot with the lower score; B loses ties, matching
// the "regenerate the challenger" convention.
func losingSlot(pair *types.ScorePair) types.VariantSlot {
	if pair.VariantA.CurrentScore >= pair.VariantB.CurrentScore {
		return types.SlotB
	}
	return types.SlotA
}

// triggerRegeneration archives the loser, publishes the job, and resets
// both slots to their midpoint with zeroed interaction counts so a
// runaway gap cannot re-trigger before the new content has a fair
// comparison window. The reset is deliberately decoupled from generation:
// generation runs out-of-band and may fail independently.
func (e *Engine) triggerRegeneration(ctx context.Context, pair *types.ScorePair, loser types.VariantSlot, now time.Time) {
	winner := loser.Other()
	losingScore := pair.Slot(loser).CurrentScore

	job := types.RegenJob{
		JobID:          uuid.NewString(),
		Tenant:         pair.Tenant,
		UserID:         pair.UserID,
		ComponentID:    pair.ComponentID,
		LosingVariant:  loser,
		ScoreAtTrigger: losingScore,
		RequestedAt:    now,
	}

	if e.slots != nil {
		if content, err := e.slots.GetSlotContent(ctx, pair.Tenant, pair.ComponentID, loser); err == nil {
			job.LosingContent = content
		}
		if content, err := e.slots.GetSlotContent(ctx, pair.Tenant, pair.ComponentID, winner); err == nil {
			job.WinningContent = content
		}
	}

	// Archive the loser's content and score before anything changes.
	pair.Slot(loser).History = append(pair.Slot(loser).History, types.ScoreSample{
		Score:           losingScore,
		Timestamp:       now,
		ArchivedContent: job.LosingContent,
	})

	midpoint := (pair.VariantA.CurrentScore + pair.VariantB.CurrentScore) / 2
	pair.VariantA.CurrentScore = midpoint
	pair.VariantB.CurrentScore = midpoint
	pair.VariantA.InteractionCount = 0
	pair.VariantB.InteractionCount = 0
	pair.RegenerationCount++

	e.metrics.RegenTriggers.Inc()

	if e.bus == nil {
		return
	}
	if err := e.bus.Publish(ctx, job); err != nil {
		log.Printf("[Scoring] Failed to publish regeneration job %s: %v", job.JobID, err)
	}
}

func (e *Engine) pairLock(key string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	lock, ok := e.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[key] = lock
	}
	return lock
}
