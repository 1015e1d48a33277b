// Package regen consumes regeneration jobs from the bus and replaces the
// losing slot's content with freshly generated copy. Scores were already
// reset when the job was published, so a failed generation leaves the
// previous content serving and costs nothing beyond a retry on the next
// trigger.
package regen

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jordanhubbard/weft/internal/bus"
	"github.com/jordanhubbard/weft/internal/metrics"
	"github.com/jordanhubbard/weft/internal/provider"
	"github.com/jordanhubbard/weft/internal/variants"
	"github.com/jordanhubbard/weft/pkg/types"
)

// DefaultGenerateTimeout bounds a single content generation call.
const DefaultGenerateTimeout = 30 * time.Second

const generateSystemPrompt = `You are a conversion copywriter for web UI components.
You will receive the content of a winning variant, the content of a losing
variant, and the page context they appear on. Produce replacement content
for the losing variant: keep the same JSON keys as the losing variant, but
rewrite the values to compete with the winning variant rather than imitate it.

Respond with ONLY a JSON object containing the replacement content. No
explanations, no markdown fences.`

// Worker subscribes to regeneration jobs and writes replacement content
// into the slot store.
type Worker struct {
	provider provider.Protocol
	slots    variants.SlotStore
	bus      bus.Bus
	metrics  *metrics.Metrics
	timeout  time.Duration
}

// NewWorker wires a regeneration worker. A zero timeout falls back to
// DefaultGenerateTimeout.
func NewWorker(p provider.Protocol, slots variants.SlotStore, b bus.Bus, timeout time.Duration) *Worker {
	if timeout <= 0 {
		timeout = DefaultGenerateTimeout
	}
	return &Worker{
		provider: p,
		slots:    slots,
		bus:      b,
		metrics:  metrics.NewMetrics(),
		timeout:  timeout,
	}
}

// Start registers the worker on the bus. Jobs are handled on the bus's
// dispatch goroutine; handle errors are logged and counted, never fatal.
func (w *Worker) Start() error {
	return w.bus.Subscribe(func(ctx context.Context, job types.RegenJob) {
		if err := w.Handle(ctx, job); err != nil {
			log.Printf("[Regen] job %s failed: %v", job.JobID, err)
		}
	})
}

// Handle generates replacement content for one job and installs it in the
// losing slot. The slot is only written on a fully successful generation.
func (w *Worker) Handle(ctx context.Context, job types.RegenJob) error {
	if job.ComponentID == "" {
		w.metrics.RegenFailed.Inc()
		return fmt.Errorf("regen: job %s has no component", job.JobID)
	}

	log.Printf("[Regen] generating replacement for %s/%s slot %s (gap %.1f at trigger)",
		job.Tenant, job.ComponentID, job.LosingVariant, job.ScoreAtTrigger)

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	raw, err := w.provider.Complete(ctx, generateSystemPrompt, buildUserPrompt(job))
	if err != nil {
		w.metrics.RegenFailed.Inc()
		return fmt.Errorf("generate content: %w", err)
	}

	content, err := parseContent(raw)
	if err != nil {
		w.metrics.RegenFailed.Inc()
		return fmt.Errorf("parse generated content: %w", err)
	}

	if err := w.slots.SetSlotContent(ctx, job.Tenant, job.ComponentID, job.LosingVariant, content); err != nil {
		w.metrics.RegenFailed.Inc()
		return fmt.Errorf("install content: %w", err)
	}

	w.metrics.RegenCompleted.Inc()
	log.Printf("[Regen] job %s installed new content for %s slot %s", job.JobID, job.ComponentID, job.LosingVariant)
	return nil
}

func buildUserPrompt(job types.RegenJob) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Component: %s\n", job.ComponentID)
	if job.PageContext != "" {
		fmt.Fprintf(&b, "Page context: %s\n", job.PageContext)
	}
	b.WriteString("Winning variant content:\n")
	b.WriteString(jsonBlock(job.WinningContent))
	b.WriteString("\nLosing variant content (rewrite this):\n")
	b.WriteString(jsonBlock(job.LosingContent))
	return b.String()
}

func jsonBlock(content map[string]interface{}) string {
	if len(content) == 0 {
		return "{}"
	}
	data, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

// parseContent pulls the JSON object out of a model response, tolerating
// surrounding prose and markdown fences.
func parseContent(raw string) (map[string]interface{}, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var content map[string]interface{}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &content); err != nil {
		return nil, err
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("generated content is empty")
	}
	return content, nil
}
