package publisher

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "pymegate/pkg/platform/audit"
	"pymegate/pkg/platform/audit/store/memory"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	accountID := uuid.NewString()
	err := pub.Emit(context.Background(), audit.Event{
		AccountID: accountID,
		Action:    string(audit.EventAccountCreated),
	})
	require.NoError(t, err)

	events, err := pub.List(context.Background(), accountID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventAccountCreated), events[0].Action)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	accountID := uuid.NewString()
	for i := 0; i < 10; i++ {
		err := pub.Emit(context.Background(), audit.Event{
			AccountID: accountID,
			Action:    string(audit.EventLoginSucceeded),
		})
		require.NoError(t, err)
	}

	pub.Close()

	events, err := store.ListByAccount(context.Background(), accountID)
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

func TestPublisher_AsyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(10))
	defer pub.Close()

	accountID := uuid.NewString()
	err := pub.Emit(context.Background(), audit.Event{
		AccountID: accountID,
		Action:    string(audit.EventLoginFailed),
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		events, err := store.ListByAccount(context.Background(), accountID)
		return err == nil && len(events) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestPublisher_UnknownActionDefaultsToOperations(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	accountID := uuid.NewString()
	require.NoError(t, pub.Emit(context.Background(), audit.Event{
		AccountID: accountID,
		Action:    "something_new",
	}))

	events, err := pub.List(context.Background(), accountID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.CategoryOperations, events[0].Category)
}
