package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "bloodlink/pkg/domain"
	audit "bloodlink/pkg/platform/audit"
	"bloodlink/pkg/platform/audit/store/memory"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	requestID := id.NewRequestID()
	err := pub.Emit(context.Background(), audit.Event{
		BloodRequestID: requestID,
		Action:         string(audit.EventRequestCreated),
	})
	require.NoError(t, err)

	events, err := pub.List(context.Background(), requestID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventRequestCreated), events[0].Action)
	assert.Equal(t, audit.CategoryOperations, events[0].Category)
}

func TestPublisher_DerivesCategory(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	requestID := id.NewRequestID()
	require.NoError(t, pub.Emit(context.Background(), audit.Event{
		BloodRequestID: requestID,
		Action:         string(audit.EventDonorAccepted),
	}))

	events, err := pub.List(context.Background(), requestID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	requestID := id.NewRequestID()
	for range 10 {
		err := pub.Emit(context.Background(), audit.Event{
			BloodRequestID: requestID,
			Action:         string(audit.EventRequestEscalated),
		})
		require.NoError(t, err)
	}

	pub.Close()

	events, err := store.ListByRequest(context.Background(), requestID)
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

func TestPublisher_BufferFull_DropsEvent(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(1))
	defer pub.Close()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pub.Emit(context.Background(), audit.Event{
				BloodRequestID: id.NewRequestID(),
				Action:         string(audit.EventDonorDeclined),
			})
			if err != nil {
				assert.True(t, errors.Is(err, ErrBufferFull))
			}
		}()
	}
	wg.Wait()
}

func TestPublisher_SetsTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	requestID := id.NewRequestID()
	before := time.Now()
	require.NoError(t, pub.Emit(context.Background(), audit.Event{
		BloodRequestID: requestID,
		Action:         string(audit.EventRequestCreated),
	}))
	after := time.Now()

	events, err := pub.List(context.Background(), requestID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.False(t, events[0].Timestamp.Before(before))
	assert.False(t, events[0].Timestamp.After(after))
}

func TestPublisher_PreservesExistingTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	requestID := id.NewRequestID()
	customTime := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, pub.Emit(context.Background(), audit.Event{
		BloodRequestID: requestID,
		Action:         string(audit.EventRequestFulfilled),
		Timestamp:      customTime,
	}))

	events, err := pub.List(context.Background(), requestID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, customTime, events[0].Timestamp)
}

func TestPublisher_MultipleEventsKeepOrder(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	requestID := id.NewRequestID()
	actions := []audit.AuditEvent{audit.EventRequestCreated, audit.EventDonorAccepted, audit.EventRequestFulfilled}
	for _, action := range actions {
		require.NoError(t, pub.Emit(context.Background(), audit.Event{
			BloodRequestID: requestID,
			Action:         string(action),
		}))
	}

	result, err := pub.List(context.Background(), requestID)
	require.NoError(t, err)
	require.Len(t, result, 3)
	for i, action := range actions {
		assert.Equal(t, string(action), result[i].Action)
	}
}

func TestPublisher_SeparatesRequests(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	first, second := id.NewRequestID(), id.NewRequestID()
	require.NoError(t, pub.Emit(context.Background(), audit.Event{BloodRequestID: first, Action: string(audit.EventRequestCreated)}))
	require.NoError(t, pub.Emit(context.Background(), audit.Event{BloodRequestID: second, Action: string(audit.EventRequestCancelled)}))

	events, err := pub.List(context.Background(), first)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventRequestCreated), events[0].Action)
}
