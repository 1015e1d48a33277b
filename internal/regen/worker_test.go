package regen

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanhubbard/weft/internal/bus"
	"github.com/jordanhubbard/weft/internal/variants"
	"github.com/jordanhubbard/weft/pkg/types"
)

type stubProvider struct {
	response string
	err      error
	calls    int
	lastUser string
}

func (p *stubProvider) Complete(_ context.Context, _ string, user string) (string, error) {
	p.calls++
	p.lastUser = user
	if p.err != nil {
		return "", p.err
	}
	return p.response, nil
}

func testJob() types.RegenJob {
	return types.RegenJob{
		JobID:          "job-1",
		Tenant:         "acme",
		UserID:         "u1",
		ComponentID:    "hero",
		LosingVariant:  types.SlotB,
		LosingContent:  map[string]interface{}{"headline": "Old headline"},
		WinningContent: map[string]interface{}{"headline": "Winning headline"},
		PageContext:    "product landing page",
		ScoreAtTrigger: 6.0,
		RequestedAt:    time.Now().UTC(),
	}
}

func TestHandle_InstallsGeneratedContent(t *testing.T) {
	p := &stubProvider{response: `{"headline": "Fresh headline", "cta": "Try it"}`}
	slots := variants.NewMemorySlotStore()
	w := NewWorker(p, slots, bus.NewMemoryBus(), 0)

	require.NoError(t, w.Handle(context.Background(), testJob()))

	content, err := slots.GetSlotContent(context.Background(), "acme", "hero", types.SlotB)
	require.NoError(t, err)
	assert.Equal(t, "Fresh headline", content["headline"])
	assert.Equal(t, "Try it", content["cta"])
}

func TestHandle_PromptCarriesBothVariants(t *testing.T) {
	p := &stubProvider{response: `{"headline": "x"}`}
	w := NewWorker(p, variants.NewMemorySlotStore(), bus.NewMemoryBus(), 0)

	require.NoError(t, w.Handle(context.Background(), testJob()))

	assert.Contains(t, p.lastUser, "Winning headline")
	assert.Contains(t, p.lastUser, "Old headline")
	assert.Contains(t, p.lastUser, "product landing page")
}

func TestHandle_ProviderErrorLeavesSlotUntouched(t *testing.T) {
	slots := variants.NewMemorySlotStore()
	require.NoError(t, slots.SetSlotContent(context.Background(), "acme", "hero", types.SlotB,
		map[string]interface{}{"headline": "Old headline"}))

	p := &stubProvider{err: errors.New("model unavailable")}
	w := NewWorker(p, slots, bus.NewMemoryBus(), 0)

	err := w.Handle(context.Background(), testJob())
	require.Error(t, err)

	content, err := slots.GetSlotContent(context.Background(), "acme", "hero", types.SlotB)
	require.NoError(t, err)
	assert.Equal(t, "Old headline", content["headline"])
}

func TestHandle_MalformedResponseLeavesSlotUntouched(t *testing.T) {
	slots := variants.NewMemorySlotStore()
	require.NoError(t, slots.SetSlotContent(context.Background(), "acme", "hero", types.SlotB,
		map[string]interface{}{"headline": "Old headline"}))

	p := &stubProvider{response: "Sure! Here is some better copy for you."}
	w := NewWorker(p, slots, bus.NewMemoryBus(), 0)

	require.Error(t, w.Handle(context.Background(), testJob()))

	content, err := slots.GetSlotContent(context.Background(), "acme", "hero", types.SlotB)
	require.NoError(t, err)
	assert.Equal(t, "Old headline", content["headline"])
}

func TestHandle_FencedResponse(t *testing.T) {
	p := &stubProvider{response: "```json\n{\"headline\": \"Fenced\"}\n```"}
	slots := variants.NewMemorySlotStore()
	w := NewWorker(p, slots, bus.NewMemoryBus(), 0)

	require.NoError(t, w.Handle(context.Background(), testJob()))

	content, err := slots.GetSlotContent(context.Background(), "acme", "hero", types.SlotB)
	require.NoError(t, err)
	assert.Equal(t, "Fenced", content["headline"])
}

func TestStart_ConsumesJobsFromBus(t *testing.T) {
	p := &stubProvider{response: `{"headline": "Via bus"}`}
	slots := variants.NewMemorySlotStore()
	b := bus.NewMemoryBus()
	defer b.Close()

	w := NewWorker(p, slots, b, 0)
	require.NoError(t, w.Start())

	require.NoError(t, b.Publish(context.Background(), testJob()))

	require.Eventually(t, func() bool {
		content, err := slots.GetSlotContent(context.Background(), "acme", "hero", types.SlotB)
		return err == nil && content["headline"] == "Via bus"
	}, 2*time.Second, 10*time.Millisecond)
}
