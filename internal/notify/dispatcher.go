// Package notify delivers order confirmations after an order is committed.
// Delivery is asynchronous and best-effort: failures are logged and never
// reach the caller that placed the order.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"krishighor/internal/domain"
	applog "krishighor/internal/log"
)

// Confirmation carries a committed order and its lines.
type Confirmation struct {
	Order domain.Order       `json:"order"`
	Items []domain.OrderItem `json:"items"`
}

type Notifier interface {
	Name() string
	Notify(ctx context.Context, c Confirmation) error
}

// Dispatcher fans confirmations out to notifiers on a fixed pool of workers
// fed by a bounded queue. Dispatch never blocks.
type Dispatcher struct {
	notifiers []Notifier
	timeout   time.Duration
	queue     chan Confirmation
	wg        sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(workers, queueSize int, timeout time.Duration, notifiers ...Notifier) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	d := &Dispatcher{
		notifiers: notifiers,
		timeout:   timeout,
		queue:     make(chan Confirmation, queueSize),
	}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.work()
	}
	return d
}

// Dispatch queues c and reports whether it was accepted.
func (d *Dispatcher) Dispatch(c Confirmation) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		applog.Warn(nil, "notify.closed", map[string]any{"order_id": c.Order.ID})
		return false
	}
	select {
	case d.queue <- c:
		return true
	default:
		applog.Warn(nil, "notify.queue.full", map[string]any{"order_id": c.Order.ID})
		return false
	}
}

// Close stops accepting work and waits for queued confirmations to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for c := range d.queue {
		for _, n := range d.notifiers {
			if err := d.deliver(n, c); err != nil {
				applog.Error(nil, "notify.fail", err, map[string]any{"notifier": n.Name(), "order_id": c.Order.ID})
			}
		}
	}
}

func (d *Dispatcher) deliver(n Notifier, c Confirmation) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("notifier panic: %v", p)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	return n.Notify(ctx, c)
}

// LogNotifier records the confirmation as an audit line.
type LogNotifier struct{}

func (LogNotifier) Name() string { return "log" }

func (LogNotifier) Notify(ctx context.Context, c Confirmation) error {
	applog.Audit(nil, "order.confirmed", map[string]any{
		"order_id":       c.Order.ID,
		"user_id":        c.Order.UserID,
		"total_amount":   c.Order.TotalAmount.StringFixed(2),
		"payment_method": c.Order.PaymentMethod,
		"payment_status": c.Order.PaymentStatus,
		"items":          len(c.Items),
	})
	return nil
}
