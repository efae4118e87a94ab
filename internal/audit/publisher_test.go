package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vouch/pkg/requestcontext"
)

func TestPublisher_EnrichesFromContext(t *testing.T) {
	store := NewMemoryStore()
	p := NewPublisher(store)

	ctx := requestcontext.WithRequestID(context.Background(), "req-1")
	ctx = requestcontext.WithClientIP(ctx, "1.2.3.4")

	id := uuid.New()
	require.NoError(t, p.Emit(ctx, Event{
		RegistrantID: id,
		Action:       string(EventStatusChanged),
		Decision:     "verified",
		Trigger:      "webhook",
	}))

	events := store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "req-1", events[0].RequestID)
	assert.Equal(t, "1.2.3.4", events[0].ClientIP)
	assert.Equal(t, id, events[0].RegistrantID)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestPublisher_ExplicitFieldsWin(t *testing.T) {
	store := NewMemoryStore()
	p := NewPublisher(store)

	stamp := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithRequestID(context.Background(), "req-ctx")

	require.NoError(t, p.Emit(ctx, Event{
		Action:    string(EventTokenIssued),
		Timestamp: stamp,
		RequestID: "req-explicit",
	}))

	events := store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, stamp, events[0].Timestamp)
	assert.Equal(t, "req-explicit", events[0].RequestID)
}

func TestMemoryStore_ByRegistrant(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	a, b := uuid.New(), uuid.New()
	require.NoError(t, store.Append(ctx, Event{RegistrantID: a, Action: string(EventRegistrantCreated)}))
	require.NoError(t, store.Append(ctx, Event{RegistrantID: b, Action: string(EventRegistrantCreated)}))
	require.NoError(t, store.Append(ctx, Event{RegistrantID: a, Action: string(EventStatusChanged)}))

	assert.Len(t, store.ByRegistrant(a), 2)
	assert.Len(t, store.ByRegistrant(b), 1)
}

func TestEventCategories(t *testing.T) {
	assert.Equal(t, CategoryCompliance, EventStatusChanged.Category())
	assert.Equal(t, CategorySecurity, EventWebhookRejected.Category())
	assert.Equal(t, CategoryOperations, EventTokenIssued.Category())
}

func TestChannelStore_DropsWhenFull(t *testing.T) {
	store, inbox := NewChannelStore(1)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, Event{Action: "a"}))
	assert.Error(t, store.Append(ctx, Event{Action: "b"}), "full inbox must not block")

	got := <-inbox
	assert.Equal(t, "a", got.Action)
}
