package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kamar-Folarin/ticket-sync/internal/models"
)

func progressEvent(runID string, processed int) models.ProgressEvent {
	return models.ProgressEvent{
		Event:    models.EventProgress,
		RunID:    runID,
		Status:   models.RunStatusRunning,
		Progress: models.SyncProgress{ProcessedTickets: processed},
	}
}

func TestBroker_DeliversToRunSubscribersOnly(t *testing.T) {
	b := NewBroker()
	a := b.Subscribe(context.Background(), "run-a")
	defer a.Close()
	other := b.Subscribe(context.Background(), "run-b")
	defer other.Close()

	b.Publish(progressEvent("run-a", 1))

	select {
	case ev := <-a.Events():
		assert.Equal(t, 1, ev.Progress.ProcessedTickets)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	select {
	case ev := <-other.Events():
		t.Fatalf("unexpected event %+v", ev)
	default:
	}
}

func TestBroker_SlowSubscriberKeepsLatest(t *testing.T) {
	b := NewBroker()
	sub := b.Subscribe(context.Background(), "run")
	defer sub.Close()

	for i := 1; i <= 5; i++ {
		b.Publish(progressEvent("run", i))
	}
	b.Publish(models.ProgressEvent{Event: models.EventCompleted, RunID: "run", Status: models.RunStatusCompleted})

	ev := <-sub.Events()
	assert.Equal(t, models.EventCompleted, ev.Event)

	select {
	case ev := <-sub.Events():
		t.Fatalf("unexpected event %+v", ev)
	default:
	}
}

func TestBroker_CloseIsIdempotent(t *testing.T) {
	b := NewBroker()
	sub := b.Subscribe(context.Background(), "run")
	require.Equal(t, 1, b.SubscriberCount("run"))

	sub.Close()
	sub.Close()
	assert.Equal(t, 0, b.SubscriberCount("run"))

	_, ok := <-sub.Events()
	assert.False(t, ok)

	// Publishing after close is a no-op.
	b.Publish(progressEvent("run", 1))
}

func TestBroker_ContextEndsSubscription(t *testing.T) {
	b := NewBroker()
	ctx, cancel := context.WithCancel(context.Background())
	sub := b.Subscribe(ctx, "run")

	cancel()

	require.Eventually(t, func() bool {
		return b.SubscriberCount("run") == 0
	}, time.Second, 5*time.Millisecond)

	select {
	case _, ok := <-sub.Events():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
}
