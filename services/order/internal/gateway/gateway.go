// Package gateway is the payment-gateway capability used by checkout,
// confirmation and refunds. Stripe backs it in production; Mock backs it in
// development and tests.
package gateway

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrSignatureInvalid = errors.New("webhook signature invalid")
	ErrSessionNotFound  = errors.New("checkout session not found")
)

const (
	EventCheckoutCompleted     = "checkout.session.completed"
	EventAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
)

// LineItem amounts are in minor currency units.
type LineItem struct {
	Name       string
	UnitAmount int64
	Quantity   int64
	Image      string
}

type SessionRequest struct {
	LineItems      []LineItem
	DiscountAmount int64
	Currency       string
	CustomerEmail  string
	Metadata       map[string]string
	SuccessURL     string
	CancelURL      string
}

type Session struct {
	ID            string
	URL           string
	Paid          bool
	PaymentRef    string
	AmountTotal   int64
	CustomerEmail string
	Metadata      map[string]string
}

// Event is a verified webhook notification about a checkout session.
type Event struct {
	ID        string
	Type      string
	SessionID string
}

// Completes reports whether the event means the session was paid.
func (e *Event) Completes() bool {
	return e.Type == EventCheckoutCompleted || e.Type == EventAsyncPaymentSucceeded
}

type Refund struct {
	ID     string
	Status string
}

type Gateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
	VerifyEvent(payload []byte, signature string) (*Event, error)
	// Refund reverses a payment; amount 0 means the full amount.
	Refund(ctx context.Context, paymentRef string, amount int64) (*Refund, error)
}

var minorUnits = decimal.NewFromInt(100)

func ToMinor(d decimal.Decimal) int64 {
	return d.Mul(minorUnits).Round(0).IntPart()
}

func FromMinor(v int64) decimal.Decimal {
	return decimal.New(v, -2)
}
