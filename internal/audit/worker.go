package audit

import (
	"context"
	"log/slog"
)

// Worker consumes audit events from a channel and fans them out to the
// store and an optional external sink. It keeps background processing
// testable without wiring queue implementations into the engines.
type Worker struct {
	store  Store
	sink   Sink
	inbox  <-chan Event
	logger *slog.Logger
}

// Sink is an optional secondary destination (e.g. Kafka).
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

func NewWorker(store Store, sink Sink, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, sink: sink, inbox: inbox, logger: logger}
}

// Run drains the inbox until the context is cancelled. Store and sink
// failures are logged, never propagated: an audit hiccup must not take the
// process down.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "audit store append failed",
					"action", event.Action, "error", err)
			}
			if w.sink == nil {
				continue
			}
			if err := w.sink.Publish(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "audit sink publish failed",
					"action", event.Action, "error", err)
			}
		}
	}
}
