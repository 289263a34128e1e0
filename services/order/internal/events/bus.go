// Package events fans pipeline state changes out to notification
// subscribers. Delivery is fire-and-forget: a failing or panicking
// subscriber is logged and never reaches the publisher.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Skotchmaster/marketplace/services/order/internal/models"
	"github.com/google/uuid"
)

type Type string

const (
	OrderConfirmed     Type = "order.confirmed"
	OrderCreated       Type = "order.created"
	OrderStatusChanged Type = "order.status_changed"
	RefundRequested    Type = "refund.requested"
	RefundProcessed    Type = "refund.processed"
)

type Event struct {
	Type           Type
	Order          *models.Order
	Refund         *models.RefundRequest
	PreviousStatus models.OrderStatus
	Email          string
	UserID         *uuid.UUID
	OccurredAt     time.Time
}

// Recipient is the address a customer-facing message goes to.
func (e Event) Recipient() string {
	if e.Email != "" {
		return e.Email
	}
	if e.Order != nil {
		return e.Order.ShippingAddress.Email
	}
	return ""
}

type Subscriber interface {
	Name() string
	Handle(ctx context.Context, e Event) error
}

type Bus struct {
	log     *slog.Logger
	timeout time.Duration

	mu   sync.RWMutex
	subs []Subscriber
	wg   sync.WaitGroup
}

func NewBus(log *slog.Logger, subs ...Subscriber) *Bus {
	if log == nil {
		log = slog.Default()
	}
	return &Bus{log: log, timeout: 10 * time.Second, subs: subs}
}

func (b *Bus) Subscribe(s Subscriber) {
	b.mu.Lock()
	b.subs = append(b.subs, s)
	b.mu.Unlock()
}

// Publish hands e to every subscriber in its own goroutine and returns at
// once. The request context's values are kept but its cancellation is not.
func (b *Bus) Publish(ctx context.Context, e Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	base := context.WithoutCancel(ctx)

	b.mu.RLock()
	subs := append([]Subscriber(nil), b.subs...)
	b.mu.RUnlock()

	for _, s := range subs {
		b.wg.Add(1)
		go b.deliver(base, s, e)
	}
}

func (b *Bus) deliver(ctx context.Context, s Subscriber, e Event) {
	defer b.wg.Done()
	l := b.log.With("subscriber", s.Name(), "event", string(e.Type))
	defer func() {
		if r := recover(); r != nil {
			l.Error("notification_panic", "error", fmt.Sprint(r))
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	if err := s.Handle(ctx, e); err != nil {
		l.Error("notification_error", "error", err)
		return
	}
	l.Debug("notification_sent")
}

// Wait blocks until every delivery started so far has finished.
func (b *Bus) Wait() {
	b.wg.Wait()
}
