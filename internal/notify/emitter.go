// Package notify creates notifications for users and serves them back with read tracking.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/veridate/veridate/internal/ids"
	"github.com/veridate/veridate/internal/logger"
	"github.com/veridate/veridate/internal/metrics"
	"github.com/veridate/veridate/internal/types"
)

// DefaultQueueSize is the emitter queue capacity when none is configured.
const DefaultQueueSize = 256

const storeTimeout = 5 * time.Second

// Store persists notifications and their read state.
type Store interface {
	InsertNotification(ctx context.Context, n *types.Notification) error
	ListNotifications(ctx context.Context, recipientID string, offset, limit int) (*types.NotificationPage, error)
	GetNotification(ctx context.Context, id string) (*types.Notification, error)
	MarkNotificationRead(ctx context.Context, recipientID, id string) (*types.Notification, error)
	MarkAllNotificationsRead(ctx context.Context, recipientID string) (int64, error)
}

// Publisher pushes a stored notification to live subscribers.
type Publisher interface {
	Publish(ctx context.Context, n types.Notification) error
}

// Emitter records notifications in the background. Emit never blocks on the store and never
// reports failure to its caller: invalid payloads, a full queue, store errors and publish
// errors are logged and counted.
type Emitter struct {
	store Store
	pub   Publisher
	log   *logger.Logger
	now   func() time.Time

	mu     sync.RWMutex
	closed bool
	queue  chan types.Notification
	done   chan struct{}
}

// NewEmitter starts an emitter with one worker. pub may be nil.
func NewEmitter(store Store, pub Publisher, log *logger.Logger, queueSize int) *Emitter {
	if log == nil {
		log = logger.Nop()
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	e := &Emitter{
		store: store,
		pub:   pub,
		log:   log.With("component", "notify.emitter"),
		now:   time.Now,
		queue: make(chan types.Notification, queueSize),
		done:  make(chan struct{}),
	}
	go e.run()
	return e
}

// Emit queues a notification for recipientID.
func (e *Emitter) Emit(_ context.Context, recipientID string, typ types.NotificationType, message string, metadata map[string]any) {
	if !ids.Valid(recipientID) {
		e.reject(typ, "invalid", "invalid recipient id", "recipient_id", recipientID)
		return
	}
	if err := ValidateMetadata(typ, metadata); err != nil {
		e.reject(typ, "invalid", "invalid notification metadata", "error", err)
		return
	}

	n := types.Notification{
		ID:          ids.New(),
		RecipientID: recipientID,
		Type:        typ,
		Message:     message,
		Metadata:    metadata,
		CreatedAt:   e.now().UTC(),
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		e.reject(typ, "dropped", "emitter closed, notification dropped", "recipient_id", recipientID)
		return
	}
	select {
	case e.queue <- n:
		metrics.NotificationQueueDepth.Inc()
	default:
		e.reject(typ, "dropped", "notification queue full, notification dropped", "recipient_id", recipientID)
	}
}

// Close stops accepting notifications and waits until queued ones are written.
func (e *Emitter) Close() {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.queue)
	}
	e.mu.Unlock()
	<-e.done
}

func (e *Emitter) run() {
	defer close(e.done)
	for n := range e.queue {
		metrics.NotificationQueueDepth.Dec()
		e.deliver(n)
	}
}

// deliver runs detached from the request that emitted n, which has usually finished.
func (e *Emitter) deliver(n types.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if err := e.store.InsertNotification(ctx, &n); err != nil {
		e.reject(n.Type, "store_error", "failed to store notification",
			"recipient_id", n.RecipientID, "error", err)
		return
	}
	metrics.NotificationsEmittedTotal.WithLabelValues(string(n.Type), "stored").Inc()

	if e.pub == nil {
		return
	}
	n.Route = ResolveRoute(n)
	if err := e.pub.Publish(ctx, n); err != nil {
		e.log.Warn("failed to publish notification", "notification_id", n.ID, "error", err)
	}
}

func (e *Emitter) reject(typ types.NotificationType, result, msg string, kv ...interface{}) {
	metrics.NotificationsEmittedTotal.WithLabelValues(string(typ), result).Inc()
	e.log.Warn(msg, append([]interface{}{"type", typ}, kv...)...)
}
