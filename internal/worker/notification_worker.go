package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-desk/internal/events"
	"github.com/spec-kit/ticket-desk/internal/service"
)

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// Queue is a Dispatcher that hands events to a background loop, so request
// handlers do not wait on notification delivery. Events published while the
// buffer is full are dropped and logged.
type Queue struct {
	next   events.Dispatcher
	events chan events.Event
	logger *zap.Logger
}

// NewQueue buffers up to size events in front of next.
func NewQueue(next events.Dispatcher, size int, logger *zap.Logger) *Queue {
	if size <= 0 {
		size = 64
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{next: next, events: make(chan events.Event, size), logger: logger}
}

// Publish enqueues event without blocking.
func (q *Queue) Publish(_ context.Context, event events.Event) error {
	select {
	case q.events <- event:
	default:
		q.logger.Warn("notification queue full; dropping event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Int64("ticket_id", event.TicketID))
	}
	return nil
}

// Subscribe registers handler on the underlying dispatcher.
func (q *Queue) Subscribe(eventType events.EventType, handler events.EventHandler) {
	q.next.Subscribe(eventType, handler)
}

// Run delivers queued events until ctx is done, then drains what is left.
func (q *Queue) Run(ctx context.Context) error {
	for {
		select {
		case event := <-q.events:
			q.deliver(ctx, event)
		case <-ctx.Done():
			q.drain()
			return nil
		}
	}
}

func (q *Queue) drain() {
	ctx := context.Background()
	for {
		select {
		case event := <-q.events:
			q.deliver(ctx, event)
		default:
			return
		}
	}
}

func (q *Queue) deliver(ctx context.Context, event events.Event) {
	if err := q.next.Publish(ctx, event); err != nil {
		q.logger.Warn("notification delivery failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Int64("ticket_id", event.TicketID),
			zap.Error(err))
	}
}
