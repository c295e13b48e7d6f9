package event

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var notificationsDropped = promauto.NewCounter(prometheus.CounterOpts{
	Name: "cart_notifications_dropped_total",
	Help: "Cart notifications dropped because the dispatch queue was full or closed.",
})

// Notifier delivers a notification. Implementations must not return errors;
// delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

type queued struct {
	ctx context.Context
	n   Notification
}

// Dispatcher queues notifications and delivers them to next from a single
// goroutine, so callers never wait on the broker. When the queue is full the
// notification is dropped and counted.
type Dispatcher struct {
	next   Notifier
	queue  chan queued
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher creates a dispatcher with room for size pending notifications.
func NewDispatcher(next Notifier, size int, logger *slog.Logger) *Dispatcher {
	if size < 1 {
		size = 1
	}
	return &Dispatcher{
		next:   next,
		queue:  make(chan queued, size),
		logger: logger,
	}
}

// Notify enqueues n without blocking.
func (d *Dispatcher) Notify(ctx context.Context, n Notification) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		notificationsDropped.Inc()
		return
	}
	select {
	case d.queue <- queued{ctx: context.WithoutCancel(ctx), n: n}:
	default:
		notificationsDropped.Inc()
		d.logger.WarnContext(ctx, "notification queue full, dropping",
			slog.String("kind", string(n.Kind)),
			slog.String("session_id", n.SessionID),
		)
	}
}

// Run delivers queued notifications until ctx is done, then stops accepting
// new ones and delivers what is left.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case q := <-d.queue:
			d.next.Notify(q.ctx, q.n)
		case <-ctx.Done():
			d.mu.Lock()
			d.closed = true
			close(d.queue)
			d.mu.Unlock()

			for q := range d.queue {
				d.next.Notify(q.ctx, q.n)
			}
			return
		}
	}
}
