package publisher

import (
	"context"
	"sync"
	"testing"
	"time"

	audit "creditrisk/pkg/platform/audit"
	"creditrisk/pkg/platform/audit/store/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	requestID := uuid.NewString()
	event := audit.Event{
		RequestID: requestID,
		Action:    string(audit.EventAssessmentCompleted),
	}

	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)

	events, err := pub.List(context.Background(), requestID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventAssessmentCompleted), events[0].Action)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
	assert.NotEqual(t, uuid.Nil, events[0].ID)
}

func TestPublisher_AsyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(10))
	defer pub.Close()

	requestID := uuid.NewString()
	event := audit.Event{
		RequestID: requestID,
		Action:    string(audit.EventNoticeIssued),
	}

	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		events, err := pub.List(context.Background(), requestID)
		return err == nil && len(events) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	requestID := uuid.NewString()

	for range 10 {
		event := audit.Event{
			RequestID: requestID,
			Action:    string(audit.EventAssessmentCompleted),
		}
		err := pub.Emit(context.Background(), event)
		require.NoError(t, err)
	}

	// Close should drain all events
	pub.Close()

	events, err := store.ListByRequest(context.Background(), requestID)
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

func TestPublisher_EmitAfterClose(t *testing.T) {
	pub := NewPublisher(memory.NewInMemoryStore(), WithAsyncBuffer(4))
	pub.Close()
	pub.Close()

	err := pub.Emit(context.Background(), audit.Event{Action: string(audit.EventAssessmentCompleted)})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPublisher_BufferFull_DropsEvent(t *testing.T) {
	store := memory.NewInMemoryStore()
	var mu sync.Mutex
	hooked := 0
	pub := NewPublisher(store, WithAsyncBuffer(1), WithDropHook(func(audit.Event) {
		mu.Lock()
		hooked++
		mu.Unlock()
	}))

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pub.Emit(context.Background(), audit.Event{
				RequestID: "burst",
				Action:    string(audit.EventAssessmentCompleted),
			})
		}()
	}
	wg.Wait()
	pub.Close()

	events, err := store.ListByRequest(context.Background(), "burst")
	require.NoError(t, err)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, uint64(hooked), pub.Dropped())
	assert.Equal(t, 50, len(events)+hooked, "every event is either stored or counted as dropped")
}

func TestPublisher_SetsTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	requestID := uuid.NewString()
	before := time.Now()
	err := pub.Emit(context.Background(), audit.Event{
		RequestID: requestID,
		Action:    string(audit.EventAssessmentCompleted),
	})
	require.NoError(t, err)
	after := time.Now()

	events, err := pub.List(context.Background(), requestID)
	require.NoError(t, err)
	require.Len(t, events, 1)

	assert.False(t, events[0].Timestamp.Before(before), "timestamp should be >= before")
	assert.False(t, events[0].Timestamp.After(after), "timestamp should be <= after")
}

func TestPublisher_PreservesExistingTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	requestID := uuid.NewString()
	customTime := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	err := pub.Emit(context.Background(), audit.Event{
		RequestID: requestID,
		Action:    string(audit.EventAssessmentCompleted),
		Timestamp: customTime,
	})
	require.NoError(t, err)

	events, err := pub.List(context.Background(), requestID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, customTime, events[0].Timestamp)
}

func TestPublisher_ContextCancellation(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(1))
	defer pub.Close()

	_ = pub.Emit(context.Background(), audit.Event{Action: string(audit.EventAssessmentCompleted)})
	_ = pub.Emit(context.Background(), audit.Event{Action: string(audit.EventAssessmentCompleted)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := pub.Emit(ctx, audit.Event{Action: string(audit.EventAssessmentCompleted)})

	// Either the buffer had room or the cancelled context is reported.
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestPublisher_RecentOrdering(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	actions := []audit.AuditEvent{
		audit.EventAssessmentCompleted,
		audit.EventNoticeIssued,
		audit.EventExplanationServed,
	}
	for _, a := range actions {
		require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: string(a)}))
	}

	recent, err := pub.Recent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, string(audit.EventExplanationServed), recent[0].Action)
	assert.Equal(t, string(audit.EventNoticeIssued), recent[1].Action)
	assert.Equal(t, audit.CategoryOperations, recent[0].Category)
}
