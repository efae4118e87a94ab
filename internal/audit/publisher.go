package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"vouch/pkg/requestcontext"
)

// Store is the audit sink. It is append-only so implementations can be a
// memory buffer, a database table, or a Kafka topic.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Publisher captures structured audit events. It enriches events with
// request-scoped metadata so call sites only fill the domain fields.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

func (p *Publisher) Emit(ctx context.Context, base Event) error {
	if base.Timestamp.IsZero() {
		base.Timestamp = time.Now()
	}
	if base.RequestID == "" {
		base.RequestID = requestcontext.RequestID(ctx)
	}
	if base.ClientIP == "" {
		base.ClientIP = requestcontext.ClientIP(ctx)
	}
	return p.store.Append(ctx, base)
}

// NopPublisher discards events. Useful in tests that don't assert on audit.
type NopPublisher struct{}

func (NopPublisher) Emit(context.Context, Event) error { return nil }

// MemoryStore buffers events in process. Default sink when Kafka is not
// configured; tests use it to assert on emitted events.
type MemoryStore struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a snapshot of everything appended so far.
func (s *MemoryStore) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// ByRegistrant filters buffered events for one registrant.
func (s *MemoryStore) ByRegistrant(id uuid.UUID) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, e := range s.events {
		if e.RegistrantID == id {
			out = append(out, e)
		}
	}
	return out
}
