package events

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
)

type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer delivers plain-text mail through an SMTP relay. STARTTLS is
// used when the server offers it.
type SMTPMailer struct {
	client *mail.Client
	from   string
}

// NewSMTPMailer authenticates with PLAIN when a user is given. addr is
// host:port.
func NewSMTPMailer(addr, user, password, from string) (*SMTPMailer, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("smtp addr %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("smtp port %q: %w", portStr, err)
	}

	opts := []mail.Option{
		mail.WithPort(port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(10 * time.Second),
	}
	if user != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(user),
			mail.WithPassword(password),
		)
	}
	c, err := mail.NewClient(host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPMailer{client: c, from: from}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	msg, err := newMessage(m.from, to, subject, body)
	if err != nil {
		return err
	}
	return m.client.DialAndSendWithContext(ctx, msg)
}

// newMessage rejects malformed addresses; the subject is header-encoded by
// the library.
func newMessage(from, to, subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("from %q: %w", from, err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("to %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetDate()
	msg.SetMessageID()
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	Log *slog.Logger
}

func (m LogMailer) Send(_ context.Context, to, subject, _ string) error {
	l := m.Log
	if l == nil {
		l = slog.Default()
	}
	l.Info("email_logged", "to", to, "subject", subject)
	return nil
}

type EmailSubscriber struct {
	Mailer Mailer
}

func (EmailSubscriber) Name() string { return "email" }

func (s EmailSubscriber) Handle(ctx context.Context, e Event) error {
	to := e.Recipient()
	if to == "" {
		return nil
	}
	subject, body, ok := render(e)
	if !ok {
		return nil
	}
	if err := s.Mailer.Send(ctx, to, subject, body); err != nil {
		return fmt.Errorf("email to %s: %w", to, err)
	}
	return nil
}

func render(e Event) (string, string, bool) {
	switch e.Type {
	case OrderConfirmed, OrderCreated:
		if e.Order == nil {
			return "", "", false
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Thank you for your order %s.\n\n", e.Order.ID)
		for _, it := range e.Order.Items {
			fmt.Fprintf(&b, "%d x %s  %s\n", it.Quantity, it.Name, it.Price.StringFixed(2))
		}
		if e.Order.DiscountAmount.IsPositive() {
			fmt.Fprintf(&b, "Discount: -%s\n", e.Order.DiscountAmount.StringFixed(2))
		}
		fmt.Fprintf(&b, "Shipping: %s\nTotal: %s (incl. tax %s)\n",
			e.Order.ShippingFee.StringFixed(2), e.Order.TotalAmount.StringFixed(2), e.Order.Tax.StringFixed(2))
		return "Order confirmation " + e.Order.ID.String(), b.String(), true
	case OrderStatusChanged:
		if e.Order == nil {
			return "", "", false
		}
		body := fmt.Sprintf("Your order %s is now %s.", e.Order.ID, e.Order.Status)
		if e.Order.TrackingNumber != "" {
			body += "\nTracking number: " + e.Order.TrackingNumber
		}
		return "Order " + e.Order.ID.String() + " update", body, true
	case RefundRequested:
		if e.Order == nil || e.Refund == nil {
			return "", "", false
		}
		body := fmt.Sprintf("We received your refund request for order %s.\nYour order is now %s.\nReason: %s",
			e.Order.ID, e.Order.Status, e.Refund.Reason)
		return "Refund request received for order " + e.Order.ID.String(), body, true
	case RefundProcessed:
		if e.Refund == nil {
			return "", "", false
		}
		body := fmt.Sprintf("Your refund request for order %s was %s.", e.Refund.OrderID, e.Refund.Status)
		if e.Refund.RefundAmount != nil {
			body += "\nRefund amount: " + e.Refund.RefundAmount.StringFixed(2)
		}
		if e.Refund.AdminComments != "" {
			body += "\nComments: " + e.Refund.AdminComments
		}
		return "Refund request " + string(e.Refund.Status), body, true
	}
	return "", "", false
}
