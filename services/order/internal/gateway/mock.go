package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76/webhook"
)

// Mock is an in-memory gateway. Its webhook payloads are signed with the
// same scheme Stripe uses, so the webhook handler runs unchanged against it.
type Mock struct {
	mu       sync.Mutex
	secret   string
	autoPay  bool
	sessions map[string]*Session
	refunds  map[string]int

	// RefundErr makes every Refund call fail when set.
	RefundErr error
}

// NewMock returns a gateway whose sessions stay unpaid until MarkPaid, or
// are paid right away when autoPay is set.
func NewMock(webhookSecret string, autoPay bool) *Mock {
	return &Mock{
		secret:   webhookSecret,
		autoPay:  autoPay,
		sessions: make(map[string]*Session),
		refunds:  make(map[string]int),
	}
}

func (m *Mock) CreateSession(_ context.Context, req SessionRequest) (*Session, error) {
	var total int64
	for _, li := range req.LineItems {
		total += li.UnitAmount * li.Quantity
	}
	total -= req.DiscountAmount
	if total < 0 {
		total = 0
	}

	id := "cs_mock_" + uuid.NewString()
	s := &Session{
		ID:            id,
		URL:           withSessionID(req.SuccessURL, id),
		AmountTotal:   total,
		CustomerEmail: req.CustomerEmail,
		Metadata:      make(map[string]string, len(req.Metadata)),
	}
	for k, v := range req.Metadata {
		s.Metadata[k] = v
	}
	if m.autoPay {
		s.Paid = true
		s.PaymentRef = "pi_mock_" + uuid.NewString()
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	out := *s
	return &out, nil
}

func (m *Mock) GetSession(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	out := *s
	return &out, nil
}

// MarkPaid completes a session as the hosted payment page would.
func (m *Mock) MarkPaid(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if !s.Paid {
		s.Paid = true
		s.PaymentRef = "pi_mock_" + uuid.NewString()
	}
	return nil
}

type mockEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID     string `json:"id"`
			Object string `json:"object"`
		} `json:"object"`
	} `json:"data"`
}

// SignedEvent builds a webhook body for a session and its signature header.
func (m *Mock) SignedEvent(eventType, sessionID string) ([]byte, string) {
	var ev mockEvent
	ev.ID = "evt_mock_" + uuid.NewString()
	ev.Type = eventType
	ev.Data.Object.ID = sessionID
	ev.Data.Object.Object = "checkout.session"
	payload, _ := json.Marshal(ev)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    m.secret,
		Timestamp: time.Now(),
	})
	return signed.Payload, signed.Header
}

func (m *Mock) VerifyEvent(payload []byte, signature string) (*Event, error) {
	if err := webhook.ValidatePayload(payload, signature, m.secret); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	var ev mockEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	return &Event{ID: ev.ID, Type: ev.Type, SessionID: ev.Data.Object.ID}, nil
}

func (m *Mock) Refund(_ context.Context, paymentRef string, amount int64) (*Refund, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RefundErr != nil {
		return nil, m.RefundErr
	}
	if paymentRef == "" {
		return nil, errors.New("mock: payment reference required")
	}
	m.refunds[paymentRef]++
	return &Refund{ID: "re_mock_" + uuid.NewString(), Status: "succeeded"}, nil
}

// Refunds returns how many refunds were issued for paymentRef.
func (m *Mock) Refunds(paymentRef string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refunds[paymentRef]
}

func withSessionID(raw, id string) string {
	u, err := url.Parse(raw)
	if err != nil || raw == "" {
		return "/checkout/mock?session_id=" + url.QueryEscape(id)
	}
	q := u.Query()
	q.Set("session_id", id)
	u.RawQuery = q.Encode()
	return u.String()
}
