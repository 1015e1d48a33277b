package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanhubbard/weft/pkg/types"
)

func TestMemoryBus_DeliversJobs(t *testing.T) {
	b := NewMemoryBus()
	defer b.Close()

	var mu sync.Mutex
	var got []types.RegenJob
	done := make(chan struct{}, 1)
	require.NoError(t, b.Subscribe(func(_ context.Context, job types.RegenJob) {
		mu.Lock()
		got = append(got, job)
		mu.Unlock()
		done <- struct{}{}
	}))

	job := types.RegenJob{JobID: "job-1", ComponentID: "hero", LosingVariant: types.SlotB}
	require.NoError(t, b.Publish(context.Background(), job))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job not delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, "job-1", got[0].JobID)
	assert.Equal(t, types.SlotB, got[0].LosingVariant)
}

func TestMemoryBus_PublishAfterClose(t *testing.T) {
	b := NewMemoryBus()
	require.NoError(t, b.Close())

	err := b.Publish(context.Background(), types.RegenJob{JobID: "late"})
	assert.Error(t, err)
}

func TestMemoryBus_PublishDoesNotBlock(t *testing.T) {
	b := NewMemoryBus()
	defer b.Close()

	// No subscriber drains fast enough; publishing must either accept or
	// return a queue-full error, never block.
	doneCh := make(chan struct{})
	go func() {
		for i := 0; i < memoryBusBuffer*2; i++ {
			_ = b.Publish(context.Background(), types.RegenJob{JobID: "j"})
		}
		close(doneCh)
	}()

	select {
	case <-doneCh:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked")
	}
}
