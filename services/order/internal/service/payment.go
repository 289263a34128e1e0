package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Skotchmaster/marketplace/pkg/logging"
	"github.com/Skotchmaster/marketplace/services/order/internal/events"
	"github.com/Skotchmaster/marketplace/services/order/internal/gateway"
	"github.com/Skotchmaster/marketplace/services/order/internal/models"
	"github.com/Skotchmaster/marketplace/services/order/internal/repo"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const noteUnfulfillable = "insufficient stock at fulfilment"

var errAlreadyFulfilled = errors.New("already fulfilled")

// PaymentService turns confirmed gateway sessions into orders. The client
// poll and the webhook both end in fulfil, and the unique payment id makes
// the second arrival a no-op.
type PaymentService struct {
	d       Deps
	ledger  *Ledger
	coupons *CouponEngine
	now     func() time.Time
}

func NewPaymentService(d Deps) *PaymentService {
	return &PaymentService{
		d:       d,
		ledger:  NewLedger(d.Catalog),
		coupons: NewCouponEngine(d.Repo),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ConfirmSession is the client-side poll after the hosted payment page.
func (p *PaymentService) ConfirmSession(ctx context.Context, sessionID string) (*models.Order, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session_id required", ErrValidation)
	}
	sess, err := p.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Paid {
		return nil, fmt.Errorf("%w: session %s", ErrPaymentNotCompleted, sessionID)
	}
	return p.fulfil(ctx, sess)
}

// HandleWebhook verifies and applies a gateway event. It returns a nil order
// for events that do not complete a payment.
func (p *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*models.Order, error) {
	l := logging.FromContext(ctx)

	ev, err := p.d.Gateway.VerifyEvent(payload, signature)
	if err != nil {
		return nil, err
	}
	if !ev.Completes() || ev.SessionID == "" {
		l.Info("webhook_ignored", "event_id", ev.ID, "type", ev.Type)
		return nil, nil
	}

	sess, err := p.session(ctx, ev.SessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Paid {
		l.Info("webhook_ignored", "event_id", ev.ID, "type", ev.Type, "reason", "session not paid")
		return nil, nil
	}
	return p.fulfil(ctx, sess)
}

func (p *PaymentService) session(ctx context.Context, id string) (*gateway.Session, error) {
	sess, err := p.d.Gateway.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, gateway.ErrSessionNotFound) {
			return nil, fmt.Errorf("%w: checkout session %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	return sess, nil
}

func (p *PaymentService) fulfil(ctx context.Context, sess *gateway.Session) (*models.Order, error) {
	ctx, l := logging.With(ctx, "session_id", sess.ID, "payment_id", sess.PaymentRef)

	if existing, err := p.d.Repo.GetOrderByPaymentID(ctx, sess.PaymentRef); err == nil {
		l.Info("payment_already_fulfilled", "order_id", existing.ID)
		return existing, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	pc, err := p.handOff(ctx, sess)
	if err != nil {
		return nil, err
	}

	order := p.newOrder(pc, sess.PaymentRef)
	err = p.d.Repo.Tx(ctx, func(tx *repo.GormRepo) error {
		inserted, err := tx.InsertOrderOnce(ctx, order)
		if err != nil {
			return err
		}
		if !inserted {
			return errAlreadyFulfilled
		}

		if order.UserID != nil {
			if err := tx.CreateTransaction(ctx, &models.Transaction{
				UserID:        *order.UserID,
				OrderID:       order.ID,
				Amount:        order.TotalAmount,
				Status:        models.TransactionStatusCompleted,
				PaymentMethod: order.PaymentMethod,
				PaymentID:     sess.PaymentRef,
				Description:   "Payment for order " + order.ID.String(),
			}); err != nil {
				return err
			}
		}

		if err := p.ledger.Deduct(ctx, tx, order.Items); err != nil {
			return err
		}

		if order.CouponCode != "" {
			if err := p.coupons.Redeem(ctx, tx, order.CouponCode); err != nil {
				if !errors.Is(err, ErrCouponLimitReached) {
					return err
				}
				// already paid with the discount; the counter stays at its limit
				l.Warn("coupon_redeem_skipped", "coupon_code", order.CouponCode, "error", err)
			}
		}

		return tx.ConsumePendingCheckout(ctx, sess.ID, p.now())
	})

	switch {
	case err == nil:
	case errors.Is(err, errAlreadyFulfilled):
		l.Info("payment_already_fulfilled")
		return p.existing(ctx, sess.PaymentRef)
	case errors.Is(err, ErrInsufficientStock), errors.Is(err, ErrNotFound):
		return p.unfulfillable(ctx, pc, sess, err)
	default:
		l.Error("fulfilment_failed", "error", err)
		return nil, err
	}

	l.Info("payment_fulfilled", "order_id", order.ID, "total", order.TotalAmount.StringFixed(2))
	p.d.publisher().Publish(ctx, events.Event{
		Type:   events.OrderConfirmed,
		Order:  order,
		Email:  pc.Email,
		UserID: order.UserID,
	})
	return order, nil
}

// handOff prefers the pending checkout record and falls back to metadata.
func (p *PaymentService) handOff(ctx context.Context, sess *gateway.Session) (*models.PendingCheckout, error) {
	pc, err := p.d.Repo.GetPendingCheckout(ctx, sess.ID)
	if err == nil {
		return pc, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	logging.FromContext(ctx).Warn("pending_checkout_missing", "fallback", "metadata")
	pc, err = DecodeMetadata(sess.Metadata)
	if err != nil {
		return nil, err
	}
	pc.SessionID = sess.ID
	if pc.Email == "" {
		pc.Email = sess.CustomerEmail
	}
	return pc, nil
}

func (p *PaymentService) newOrder(pc *models.PendingCheckout, paymentRef string) *models.Order {
	now := p.now()
	ref := paymentRef
	snap := pc.Snapshot

	addr := snap.Address
	if addr.Email == "" {
		addr.Email = pc.Email
	}

	return &models.Order{
		UserID:          pc.UserID,
		Items:           orderItems(snap.Items),
		TotalAmount:     snap.Total,
		Tax:             snap.Tax,
		ShippingFee:     snap.ShippingFee,
		DiscountAmount:  snap.Discount,
		CouponCode:      snap.CouponCode,
		ShippingAddress: addr,
		PaymentMethod:   models.PaymentMethodCard,
		PaymentStatus:   models.PaymentStatusPaid,
		PaymentID:       &ref,
		Status:          models.OrderStatusProcessing,
		IsPaid:          true,
		PaidAt:          &now,
		StatusHistory: []models.StatusHistory{
			{Status: models.OrderStatusProcessing, Note: "payment confirmed", CreatedAt: now},
		},
	}
}

func (p *PaymentService) existing(ctx context.Context, paymentRef string) (*models.Order, error) {
	o, err := p.d.Repo.GetOrderByPaymentID(ctx, paymentRef)
	if err != nil {
		return nil, notFound(err, "order for payment "+paymentRef)
	}
	return o, nil
}

// unfulfillable records a paid order that cannot ship because stock ran out
// after checkout, then attempts to refund it.
func (p *PaymentService) unfulfillable(ctx context.Context, pc *models.PendingCheckout, sess *gateway.Session, cause error) (*models.Order, error) {
	l := logging.FromContext(ctx)
	l.Warn("fulfilment_out_of_stock", "error", cause)

	order := p.newOrder(pc, sess.PaymentRef)
	order.Status = models.OrderStatusCancelled
	order.StatusHistory = append(order.StatusHistory, models.StatusHistory{
		Status: models.OrderStatusCancelled, Note: noteUnfulfillable, CreatedAt: p.now(),
	})

	var inserted bool
	err := p.d.Repo.Tx(ctx, func(tx *repo.GormRepo) error {
		var err error
		if inserted, err = tx.InsertOrderOnce(ctx, order); err != nil || !inserted {
			return err
		}
		return tx.ConsumePendingCheckout(ctx, sess.ID, p.now())
	})
	if err != nil {
		return nil, err
	}
	if !inserted {
		return p.existing(ctx, sess.PaymentRef)
	}

	if _, err := p.d.Gateway.Refund(ctx, sess.PaymentRef, 0); err != nil {
		l.Error("auto_refund_failed", "order_id", order.ID, "error", err)
	} else {
		l.Info("auto_refund_issued", "order_id", order.ID)
	}

	p.d.publisher().Publish(ctx, events.Event{
		Type:           events.OrderStatusChanged,
		Order:          order,
		PreviousStatus: models.OrderStatusProcessing,
		Email:          pc.Email,
		UserID:         order.UserID,
	})
	return order, nil
}

// RefundPayment is the admin's direct reversal by payment reference, used to
// retry a refund whose automatic reversal failed. A zero amount refunds in full.
func (p *PaymentService) RefundPayment(ctx context.Context, paymentRef string, amount decimal.Decimal) (*gateway.Refund, error) {
	l := logging.FromContext(ctx).With("payment_id", paymentRef)
	if paymentRef == "" {
		return nil, fmt.Errorf("%w: payment_id required", ErrValidation)
	}
	if amount.IsNegative() {
		return nil, fmt.Errorf("%w: amount must be >= 0", ErrValidation)
	}

	refund, err := p.d.Gateway.Refund(ctx, paymentRef, gateway.ToMinor(amount))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	// settle requests still waiting on their reversal, including approvals
	// interrupted after the claim
	if order, err := p.d.Repo.GetOrderByPaymentID(ctx, paymentRef); err == nil {
		reqs, err := p.d.Repo.ListRefundsByOrder(ctx, order.ID)
		if err != nil {
			l.Warn("refund_settle_error", "error", err)
		}
		for _, r := range reqs {
			p.settleRefund(ctx, order, r, refund.ID)
		}
	}

	l.Info("payment_refunded", "refund_id", refund.ID)
	return refund, nil
}

func (p *PaymentService) settleRefund(ctx context.Context, order *models.Order, r models.RefundRequest, gatewayRefundID string) {
	l := logging.FromContext(ctx).With("refund_id", r.ID)

	fields := map[string]any{"reversal_error": ""}
	if r.GatewayRefundID == "" {
		fields["gateway_refund_id"] = gatewayRefundID
	}
	switch {
	case r.Status == models.RefundStatusApproved && r.GatewayRefundID == "":
	case r.Status == models.RefundStatusProcessing:
		fields["status"] = string(models.RefundStatusApproved)
		fields["refund_amount"] = order.TotalAmount
	default:
		return
	}

	ok, err := p.d.Repo.UpdateRefundIf(ctx, r.ID, r.Status, fields)
	if err != nil {
		l.Warn("refund_settle_error", "error", err)
		return
	}
	if !ok || r.Status != models.RefundStatusProcessing {
		return
	}

	settled, err := p.d.Repo.GetRefund(ctx, r.ID)
	if err != nil {
		l.Warn("refund_settle_error", "error", err)
		return
	}
	l.Info("refund_settled", "status", settled.Status)
	p.d.publisher().Publish(ctx, events.Event{
		Type:   events.RefundProcessed,
		Order:  order,
		Refund: settled,
		UserID: &settled.UserID,
	})
}
