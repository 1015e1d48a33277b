// Package pipeline sequences the four personalization stages over one
// shared session record: extract behavioral features, classify identity,
// select a variant, validate it against the guardrails. The pipeline is
// strictly linear and terminal: no retries, no branching, and it always
// returns a session, degraded if a stage failed. Availability outranks
// accuracy here; this runs in the live personalization path.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jordanhubbard/weft/internal/analytics"
	"github.com/jordanhubbard/weft/internal/audit"
	"github.com/jordanhubbard/weft/internal/decision"
	"github.com/jordanhubbard/weft/internal/guardrail"
	"github.com/jordanhubbard/weft/internal/identity"
	"github.com/jordanhubbard/weft/internal/metrics"
	"github.com/jordanhubbard/weft/internal/telemetry"
	"github.com/jordanhubbard/weft/internal/variants"
	"github.com/jordanhubbard/weft/pkg/types"
)

// Stage agent names, kept in the audit trail for explainability.
const (
	agentAnalytics = "Analytics Agent"
	agentIdentity  = "Identity Interpretation Agent"
	agentDecision  = "Decision Agent"
	agentGuardrail = "Guardrail Agent"
)

// Pipeline runs the extract → classify → select → validate sequence.
type Pipeline struct {
	extractor  *analytics.Extractor
	classifier identity.Classifier
	selector   *decision.Selector
	guard      *guardrail.Validator
	catalog    variants.Catalog
	component  string
	trail      *audit.Manager // optional; mirrors session audit lines
	metrics    *metrics.Metrics
}

// New wires a pipeline. component names the UI component being
// personalized; trail may be nil when no central audit sink is wanted.
func New(
	extractor *analytics.Extractor,
	classifier identity.Classifier,
	selector *decision.Selector,
	guard *guardrail.Validator,
	catalog variants.Catalog,
	component string,
	trail *audit.Manager,
) *Pipeline {
	return &Pipeline{
		extractor:  extractor,
		classifier: classifier,
		selector:   selector,
		guard:      guard,
		catalog:    catalog,
		component:  component,
		trail:      trail,
		metrics:    metrics.NewMetrics(),
	}
}

// Process runs all four stages over the session and returns it. Stage
// errors and panics are captured as audit annotations, never propagated:
// the caller always gets a complete session back. The caller owns
// serialization of concurrent runs for the same session (session.Store
// provides it).
func (p *Pipeline) Process(ctx context.Context, session *types.Session) *types.Session {
	ctx, span := telemetry.Tracer.Start(ctx, "pipeline.process")
	defer span.End()

	degraded := false
	degraded = !p.runStage(ctx, session, "extract", agentAnalytics, p.extract) || degraded
	degraded = !p.runStage(ctx, session, "classify", agentIdentity, p.classify) || degraded
	degraded = !p.runStage(ctx, session, "select", agentDecision, p.selectVariant) || degraded
	degraded = !p.runStage(ctx, session, "validate", agentGuardrail, p.validate) || degraded

	outcome := "ok"
	if degraded {
		outcome = "degraded"
	}
	p.metrics.PipelineRuns.WithLabelValues(outcome).Inc()
	return session
}

// runStage executes one stage with a span, a duration observation, and
// panic containment. Returns false when the stage panicked.
func (p *Pipeline) runStage(ctx context.Context, session *types.Session, stage, agent string, fn func(context.Context, *types.Session)) (ok bool) {
	ctx, span := telemetry.Tracer.Start(ctx, "pipeline."+stage)
	defer span.End()

	start := time.Now()
	defer func() {
		p.metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
		if r := recover(); r != nil {
			ok = false
			p.metrics.StageErrors.WithLabelValues(stage).Inc()
			p.audit(session, agent, "Stage failed, continuing degraded: %v", r)
			log.Printf("[Pipeline] %s stage failed for session %s: %v", stage, session.SessionID, r)
		}
	}()

	fn(ctx, session)
	return true
}

func (p *Pipeline) extract(_ context.Context, session *types.Session) {
	p.audit(session, agentAnalytics, "Computing behavioral vector from %d events", len(session.EventHistory))

	vector := p.extractor.Vector(session.EventHistory)
	session.BehavioralVector = &vector

	p.audit(session, agentAnalytics, "Vector computed - exploration=%.2f, hesitation=%.2f, engagement=%.2f",
		vector.Exploration, vector.Hesitation, vector.EngagementDepth)
}

func (p *Pipeline) classify(ctx context.Context, session *types.Session) {
	p.audit(session, agentIdentity, "Interpreting behavioral vector")

	if session.BehavioralVector == nil {
		// Cold session: nothing to interpret yet.
		session.IdentityState = types.IdentityExploratory
		session.IdentityConfidence = 0.5
		p.audit(session, agentIdentity, "No vector available, defaulting to %s", types.IdentityExploratory)
		p.metrics.IdentityInferred.WithLabelValues(string(session.IdentityState)).Inc()
		return
	}

	res := p.classifier.Classify(ctx, *session.BehavioralVector)
	session.IdentityState = res.State
	session.IdentityConfidence = res.Confidence

	if res.Fallback {
		p.metrics.ClassifierFallbacks.Inc()
		p.audit(session, agentIdentity, "Classifier error, using rule-based fallback: %s", res.FallbackReason)
	}
	p.audit(session, agentIdentity, "Identified as %s (confidence=%.2f) - %s", res.State, res.Confidence, res.Reasoning)
	p.metrics.IdentityInferred.WithLabelValues(string(res.State)).Inc()
}

func (p *Pipeline) selectVariant(ctx context.Context, session *types.Session) {
	p.audit(session, agentDecision, "Selecting variant for identity=%s", session.IdentityState)

	candidates, err := p.catalog.GetVariants(ctx, p.component)
	if err != nil {
		panic(err) // contained by runStage
	}

	d := p.selector.Select(session.IdentityState, session.IdentityConfidence, candidates)
	if d == nil {
		p.metrics.EmptyCandidates.Inc()
		p.audit(session, agentDecision, "No variants available for %s", p.component)
		return
	}

	session.LastVariantShown = d.SelectedVariant.VariantID
	session.OutcomeMetrics["variant_decision"] = d

	mode := "exploit"
	if d.ExplorationFactor > 0 {
		mode = "explore"
	}
	p.metrics.SelectorDecisions.WithLabelValues(mode).Inc()
	p.audit(session, agentDecision, "Selected '%s' - %s", d.SelectedVariant.VariantID, d.Rationale)
}

func (p *Pipeline) validate(_ context.Context, session *types.Session) {
	p.audit(session, agentGuardrail, "Validating decision against guardrails")

	var d *types.Decision
	if stored, ok := session.OutcomeMetrics["variant_decision"].(*types.Decision); ok {
		d = stored
	}

	res := p.guard.Validate(session, d)
	session.OutcomeMetrics["guardrail_check"] = res

	if res.Approved {
		p.metrics.GuardrailChecks.WithLabelValues("approved").Inc()
		p.audit(session, agentGuardrail, "✓ All guardrails passed")
		return
	}

	p.metrics.GuardrailChecks.WithLabelValues("rejected").Inc()
	for _, rule := range res.ViolatedRules {
		p.metrics.GuardrailViolations.WithLabelValues(rule).Inc()
	}
	p.audit(session, agentGuardrail, "✗ Guardrail violations: %s", res.Reason)
}

// audit appends to the session's audit trail and mirrors the entry to the
// central sink when one is wired.
func (p *Pipeline) audit(session *types.Session, agent, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	session.AddAudit("%s: %s", agent, msg)
	if p.trail != nil {
		p.trail.Record(session.SessionID, agent, msg)
	}
}
