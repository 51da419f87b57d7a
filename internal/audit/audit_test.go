package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPublisherStampsTimestamp(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)

	require.NoError(t, pub.Emit(context.Background(), Event{Action: ActionCarDeleted, CarID: "C25"}))

	events, err := pub.List(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, ActionCarDeleted, events[0].Action)
	require.Equal(t, "C25", events[0].CarID)
	require.False(t, events[0].Timestamp.IsZero())
}

func TestPublisherKeepsExplicitTimestamp(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)
	ts := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, pub.Emit(context.Background(), Event{Action: ActionNoCarAvailable, Timestamp: ts}))

	events, err := store.List(context.Background())
	require.NoError(t, err)
	require.Equal(t, ts, events[0].Timestamp)
}

func TestWorkerPersistsFromInbox(t *testing.T) {
	store := NewInMemoryStore()
	inbox := make(chan Event, 1)
	worker := NewWorker(store, inbox)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	inbox <- Event{Action: ActionReservationFailed, Candidates: ">11"}

	require.Eventually(t, func() bool {
		events, err := store.List(context.Background())
		return err == nil && len(events) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	events, err := store.List(context.Background())
	require.NoError(t, err)
	require.Equal(t, ">11", events[0].Candidates)
}
