package audit

import (
	"context"
	"errors"
	"log/slog"
)

// ChannelStore feeds a Worker's inbox. Append never blocks the request
// path: a full inbox returns an error for the caller to log.
type ChannelStore struct {
	inbox chan<- Event
}

func NewChannelStore(buffer int) (*ChannelStore, <-chan Event) {
	ch := make(chan Event, buffer)
	return &ChannelStore{inbox: ch}, ch
}

func (s *ChannelStore) Append(_ context.Context, event Event) error {
	select {
	case s.inbox <- event:
		return nil
	default:
		return errors.New("audit inbox full, event dropped")
	}
}

// Worker consumes audit events from a channel and persists them, decoupling
// request latency from the sink. A full inbox drops operations events
// rather than blocking the request path; Emit call sites that must not lose
// events use the Publisher directly.
type Worker struct {
	store  Store
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(store Store, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "audit append failed",
					"action", event.Action,
					"error", err,
				)
			}
		}
	}
}
