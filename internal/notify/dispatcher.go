package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"shopmaster/internal/metrics"
)

const defaultQueueSize = 100

// Dispatcher delivers messages on a background worker so callers never wait on the backend.
// Delivery is best effort: a full queue drops the message and failures are only logged.
type Dispatcher struct {
	notifier Notifier
	timeout  time.Duration
	logger   *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan Message
	done   chan struct{}
}

func NewDispatcher(n Notifier, queueSize int, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		notifier: n,
		timeout:  timeout,
		logger:   logger,
		queue:    make(chan Message, queueSize),
		done:     make(chan struct{}),
	}
}

// Start runs the delivery worker until Close drains the queue.
func (d *Dispatcher) Start() {
	go func() {
		defer close(d.done)
		for msg := range d.queue {
			d.deliver(msg)
		}
	}()
}

func (d *Dispatcher) deliver(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.notifier.NotifyAdmin(ctx, msg); err != nil {
		metrics.RecordNotification(metrics.NotifyFailed)
		d.logger.Warn("admin notification failed", "request_id", msg.RequestID, "error", err)
		return
	}
	metrics.RecordNotification(metrics.NotifySent)
}

// Enqueue never blocks. It reports whether the message was queued.
func (d *Dispatcher) Enqueue(msg Message) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		metrics.RecordNotification(metrics.NotifyDropped)
		return false
	}
	select {
	case d.queue <- msg:
		return true
	default:
		metrics.RecordNotification(metrics.NotifyDropped)
		d.logger.Warn("admin notification queue full, dropping", "request_id", msg.RequestID)
		return false
	}
}

// Close stops accepting messages and waits for queued ones to be delivered or ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
