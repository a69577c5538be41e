package audit

import (
	"context"
	"log/slog"
	"time"

	id "staffops/pkg/domain"
	"staffops/pkg/requestcontext"
)

// Publisher is the emit side handed to the engines. An audit failure must
// never fail the business operation, so Emit enqueues into a buffered inbox
// drained by the Worker and only logs when the buffer is full.
type Publisher struct {
	inbox  chan Event
	logger *slog.Logger
}

// NewPublisher creates a publisher with its inbox. Wire the returned channel
// into a Worker.
func NewPublisher(buffer int, logger *slog.Logger) *Publisher {
	return &Publisher{
		inbox:  make(chan Event, buffer),
		logger: logger,
	}
}

// Inbox exposes the event channel for the draining worker.
func (p *Publisher) Inbox() <-chan Event { return p.inbox }

// Emit records an audit event, enriching it from the request context.
func (p *Publisher) Emit(ctx context.Context, action Action, userID id.UserID, subject, reason string) {
	event := Event{
		Timestamp: requestcontext.Now(ctx),
		Action:    action,
		Category:  CategoryOf(action),
		UserID:    userID,
		Subject:   subject,
		Reason:    reason,
		Device:    requestcontext.DeviceName(ctx),
		RequestID: requestcontext.RequestID(ctx),
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case p.inbox <- event:
	default:
		p.logger.WarnContext(ctx, "audit inbox full, dropping event",
			"action", action, "subject", subject)
	}
}
