package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanhubbard/weft/pkg/types"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func setupExtractor(t *testing.T) *Extractor {
	t.Helper()
	return NewExtractorAt(func() time.Time { return testNow })
}

func event(name types.EventType, component string, age time.Duration, props map[string]interface{}) types.Event {
	return types.Event{
		Name:        name,
		Timestamp:   testNow.Add(-age),
		SessionID:   "sess-1",
		ComponentID: component,
		Properties:  props,
	}
}

func TestVector_EmptyHistory(t *testing.T) {
	x := setupExtractor(t)

	v := x.Vector(nil)

	assert.Equal(t, types.NeutralVector(), v)
}

func TestVector_AllFeaturesClamped(t *testing.T) {
	x := setupExtractor(t)

	// Pile on extreme signal: many components, heavy dwell, constant
	// backtracking. Every feature must stay inside [0,1].
	var events []types.Event
	for i := 0; i < 20; i++ {
		component := string(rune('a' + i%8))
		events = append(events,
			event(types.EventComponentViewed, component, time.Duration(i)*time.Second, nil),
			event(types.EventBacktrack, "", time.Duration(i)*time.Second, nil),
			event(types.EventTimeOnComponent, component, time.Duration(i)*time.Second,
				map[string]interface{}{"time_seconds": 500.0}),
		)
	}

	v := x.Vector(events)

	for name, f := range map[string]float64{
		"exploration": v.Exploration,
		"hesitation":  v.Hesitation,
		"engagement":  v.EngagementDepth,
		"velocity":    v.DecisionVelocity,
		"focus":       v.ContentFocus,
	} {
		assert.GreaterOrEqual(t, f, 0.0, name)
		assert.LessOrEqual(t, f, 1.0, name)
	}
	assert.Equal(t, 1.0, v.EngagementDepth)
}

func TestVector_Exploration(t *testing.T) {
	x := setupExtractor(t)

	events := []types.Event{
		event(types.EventComponentViewed, "hero", 0, nil),
		event(types.EventComponentViewed, "product_card", time.Second, nil),
		event(types.EventComponentViewed, "hero", 2*time.Second, nil),
	}

	v := x.Vector(events)

	// Two distinct components out of the five-component cap.
	assert.InDelta(t, 0.4, v.Exploration, 1e-9)
}

func TestVector_HesitationDominatedByBacktracks(t *testing.T) {
	x := setupExtractor(t)

	events := []types.Event{
		event(types.EventBacktrack, "", 0, nil),
		event(types.EventBacktrack, "", time.Second, nil),
		event(types.EventClick, "hero", 2*time.Second, nil),
	}

	v := x.Vector(events)

	assert.Greater(t, v.Hesitation, 0.6)
	assert.LessOrEqual(t, v.Hesitation, 1.0)
}

func TestVector_RecencyDecay(t *testing.T) {
	x := setupExtractor(t)

	recent := x.Vector([]types.Event{
		event(types.EventTimeOnComponent, "hero", 0,
			map[string]interface{}{"time_seconds": 30.0}),
	})
	stale := x.Vector([]types.Event{
		event(types.EventTimeOnComponent, "hero", 30*time.Minute,
			map[string]interface{}{"time_seconds": 30.0}),
	})

	// A half-hour-old dwell event is several decay windows out and should
	// contribute almost nothing.
	assert.InDelta(t, 0.5, recent.EngagementDepth, 1e-9)
	assert.Less(t, stale.EngagementDepth, 0.01)
}

func TestVector_FutureTimestampTreatedAsFresh(t *testing.T) {
	x := setupExtractor(t)

	events := []types.Event{
		event(types.EventTimeOnComponent, "hero", -10*time.Second,
			map[string]interface{}{"time_seconds": 60.0}),
	}

	v := x.Vector(events)

	require.Equal(t, 1.0, v.EngagementDepth)
}

func TestVector_FocusConcentration(t *testing.T) {
	x := setupExtractor(t)

	focused := x.Vector([]types.Event{
		event(types.EventTimeOnComponent, "hero", 0,
			map[string]interface{}{"time_seconds": 45.0}),
		event(types.EventTimeOnComponent, "product_card", 0,
			map[string]interface{}{"time_seconds": 5.0}),
	})
	scattered := x.Vector([]types.Event{
		event(types.EventTimeOnComponent, "hero", 0,
			map[string]interface{}{"time_seconds": 25.0}),
		event(types.EventTimeOnComponent, "product_card", 0,
			map[string]interface{}{"time_seconds": 25.0}),
	})

	assert.InDelta(t, 0.9, focused.ContentFocus, 1e-9)
	assert.InDelta(t, 0.5, scattered.ContentFocus, 1e-9)
	assert.Greater(t, focused.ContentFocus, scattered.ContentFocus)
}

func TestVector_VelocityCountsFunnelEventsOnly(t *testing.T) {
	x := setupExtractor(t)

	events := []types.Event{
		event(types.EventPageViewed, "", 0, nil),
		event(types.EventAddToCart, "cart", 0, nil),
		event(types.EventHover, "hero", 0, nil),
		event(types.EventTabHidden, "", 0, nil),
	}

	v := x.Vector(events)

	// Two funnel events out of four equally weighted events.
	assert.InDelta(t, 0.5, v.DecisionVelocity, 1e-9)
}

func TestVector_IntTimeSecondsProperty(t *testing.T) {
	x := setupExtractor(t)

	events := []types.Event{
		event(types.EventTimeOnComponent, "hero", 0,
			map[string]interface{}{"time_seconds": 30}),
	}

	v := x.Vector(events)

	assert.InDelta(t, 0.5, v.EngagementDepth, 1e-9)
}
