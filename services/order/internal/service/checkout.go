package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Skotchmaster/marketplace/pkg/logging"
	"github.com/Skotchmaster/marketplace/services/order/internal/gateway"
	"github.com/Skotchmaster/marketplace/services/order/internal/models"
	"github.com/shopspring/decimal"
)

type CheckoutRequest struct {
	Items       []CartLine
	Address     models.ShippingAddress
	Email       string
	CouponCode  string
	ShippingFee *decimal.Decimal
}

type CheckoutResult struct {
	SessionID string
	URL       string
	Quote     Quote
}

// CheckoutService builds gateway sessions. It never touches stock or coupon
// usage; those change only when the payment is confirmed.
type CheckoutService struct {
	d         Deps
	validator *CartValidator
	coupons   *CouponEngine
}

func NewCheckoutService(d Deps) *CheckoutService {
	return &CheckoutService{
		d:         d,
		validator: NewCartValidator(d.Repo, d.Catalog),
		coupons:   NewCouponEngine(d.Repo),
	}
}

// CreateSession prices the cart server side and opens a hosted payment
// session. actor is nil for guest checkout.
func (s *CheckoutService) CreateSession(ctx context.Context, actor *Actor, req CheckoutRequest) (*CheckoutResult, error) {
	l := logging.FromContext(ctx)

	snap, err := prepareOrder(ctx, s.validator, s.coupons, s.d.Pricing, req.Items, req.CouponCode, req.ShippingFee)
	if err != nil {
		return nil, err
	}

	email := strings.TrimSpace(req.Email)
	if email == "" && actor != nil {
		email = actor.Email
	}
	if email == "" {
		email = req.Address.Email
	}
	if email == "" {
		return nil, fmt.Errorf("%w: email required", ErrValidation)
	}
	snap.Address = req.Address
	if snap.Address.Email == "" {
		snap.Address.Email = email
	}

	pc := &models.PendingCheckout{Email: email, Snapshot: *snap}
	if actor != nil {
		uid := actor.UserID
		pc.UserID = &uid
	}

	md, err := EncodeMetadata(pc.UserID, email, *snap)
	if err != nil {
		return nil, err
	}

	sreq := gateway.SessionRequest{
		DiscountAmount: gateway.ToMinor(snap.Discount),
		Currency:       s.d.Checkout.Currency,
		CustomerEmail:  email,
		Metadata:       md,
		SuccessURL:     s.d.Checkout.SuccessURL,
		CancelURL:      s.d.Checkout.CancelURL,
	}
	for _, it := range snap.Items {
		sreq.LineItems = append(sreq.LineItems, gateway.LineItem{
			Name:       it.Name,
			UnitAmount: gateway.ToMinor(it.Price),
			Quantity:   int64(it.Quantity),
			Image:      it.Image,
		})
	}
	if snap.ShippingFee.IsPositive() {
		sreq.LineItems = append(sreq.LineItems, gateway.LineItem{
			Name:       "Shipping",
			UnitAmount: gateway.ToMinor(snap.ShippingFee),
			Quantity:   1,
		})
	}

	sess, err := s.d.Gateway.CreateSession(ctx, sreq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	pc.SessionID = sess.ID
	if err := s.d.Repo.SavePendingCheckout(ctx, pc); err != nil {
		return nil, err
	}

	l.Info("checkout_session_created", "session_id", sess.ID, "total", snap.Total.StringFixed(2), "guest", actor == nil)
	return &CheckoutResult{
		SessionID: sess.ID,
		URL:       sess.URL,
		Quote: Quote{
			Subtotal:    snap.Subtotal,
			ShippingFee: snap.ShippingFee,
			Tax:         snap.Tax,
			Discount:    snap.Discount,
			Total:       snap.Total,
		},
	}, nil
}

// prepareOrder validates the cart and coupon and prices the result.
func prepareOrder(ctx context.Context, v *CartValidator, coupons *CouponEngine, p Pricing,
	items []CartLine, couponCode string, shippingOverride *decimal.Decimal) (*models.CheckoutSnapshot, error) {
	if shippingOverride != nil && shippingOverride.IsNegative() {
		return nil, fmt.Errorf("%w: shipping fee must be >= 0", ErrValidation)
	}

	lines, subtotal, err := v.Validate(ctx, items)
	if err != nil {
		return nil, err
	}

	discount := decimal.Zero
	code := ""
	if strings.TrimSpace(couponCode) != "" {
		q, err := coupons.Validate(ctx, couponCode, subtotal)
		if err != nil {
			return nil, err
		}
		discount, code = q.Discount, q.Code
	}

	quote := p.Quote(subtotal, discount, shippingOverride)
	return &models.CheckoutSnapshot{
		Items:       lines,
		Subtotal:    quote.Subtotal,
		ShippingFee: quote.ShippingFee,
		Tax:         quote.Tax,
		Discount:    quote.Discount,
		Total:       quote.Total,
		CouponCode:  code,
	}, nil
}
