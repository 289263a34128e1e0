package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

// RealtimeSubscriber forwards every event to a kafka topic consumed by the
// socket gateway.
type RealtimeSubscriber struct {
	Producer EventPublisher
	Topic    string
}

type realtimeMessage struct {
	Type         Type       `json:"type"`
	UserID       *uuid.UUID `json:"user_id,omitempty"`
	OrderID      *uuid.UUID `json:"order_id,omitempty"`
	Status       string     `json:"status,omitempty"`
	Previous     string     `json:"previous_status,omitempty"`
	Tracking     string     `json:"tracking_number,omitempty"`
	RefundID     *uuid.UUID `json:"refund_id,omitempty"`
	RefundStatus string     `json:"refund_status,omitempty"`
	OccurredAt   time.Time  `json:"occurred_at"`
}

func (RealtimeSubscriber) Name() string { return "realtime" }

func (s RealtimeSubscriber) Handle(ctx context.Context, e Event) error {
	msg := realtimeMessage{Type: e.Type, UserID: e.UserID, Previous: string(e.PreviousStatus), OccurredAt: e.OccurredAt}
	if e.Order != nil {
		id := e.Order.ID
		msg.OrderID = &id
		msg.Status = string(e.Order.Status)
		msg.Tracking = e.Order.TrackingNumber
		if msg.UserID == nil {
			msg.UserID = e.Order.UserID
		}
	}
	if e.Refund != nil {
		rid, oid := e.Refund.ID, e.Refund.OrderID
		msg.RefundID = &rid
		msg.RefundStatus = string(e.Refund.Status)
		if msg.OrderID == nil {
			msg.OrderID = &oid
		}
		if msg.UserID == nil {
			uid := e.Refund.UserID
			msg.UserID = &uid
		}
	}

	key := "guest"
	switch {
	case msg.UserID != nil:
		key = msg.UserID.String()
	case msg.OrderID != nil:
		key = msg.OrderID.String()
	}
	return s.Producer.PublishEvent(ctx, s.Topic, key, msg)
}
