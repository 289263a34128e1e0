package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Skotchmaster/marketplace/pkg/logging"
	"github.com/Skotchmaster/marketplace/services/order/internal/events"
	"github.com/Skotchmaster/marketplace/services/order/internal/models"
	"github.com/Skotchmaster/marketplace/services/order/internal/repo"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	selfCancellable = []models.OrderStatus{models.OrderStatusPending, models.OrderStatusProcessing}
	notCancelled    = []models.OrderStatus{
		models.OrderStatusPending, models.OrderStatusProcessing, models.OrderStatusShipped,
		models.OrderStatusDelivered, models.OrderStatusReturnRequested,
	}
)

type DirectOrderRequest struct {
	Items         []CartLine
	Address       models.ShippingAddress
	CouponCode    string
	PaymentMethod string
	ShippingFee   *decimal.Decimal
}

type StatusUpdate struct {
	Status         models.OrderStatus
	TrackingNumber string
	Note           string
}

type OrderService struct {
	d         Deps
	validator *CartValidator
	coupons   *CouponEngine
	ledger    *Ledger
	now       func() time.Time
}

func NewOrderService(d Deps) *OrderService {
	return &OrderService{
		d:         d,
		validator: NewCartValidator(d.Repo, d.Catalog),
		coupons:   NewCouponEngine(d.Repo),
		ledger:    NewLedger(d.Catalog),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *OrderService) ApplyCoupon(ctx context.Context, code string, cartTotal decimal.Decimal) (*CouponQuote, error) {
	if cartTotal.IsNegative() {
		return nil, fmt.Errorf("%w: cart total must be >= 0", ErrValidation)
	}
	return s.coupons.Validate(ctx, code, cartTotal)
}

// CreateOrder places an unpaid order outside the gateway flow. Stock and
// coupon usage are taken in the same transaction as the order insert.
func (s *OrderService) CreateOrder(ctx context.Context, actor Actor, req DirectOrderRequest) (*models.Order, error) {
	snap, err := prepareOrder(ctx, s.validator, s.coupons, s.d.Pricing, req.Items, req.CouponCode, req.ShippingFee)
	if err != nil {
		return nil, err
	}

	method := req.PaymentMethod
	if method == "" {
		method = models.PaymentMethodCashOnDelivery
	}
	addr := req.Address
	if addr.Email == "" {
		addr.Email = actor.Email
	}

	uid := actor.UserID
	order := &models.Order{
		UserID:          &uid,
		Items:           orderItems(snap.Items),
		TotalAmount:     snap.Total,
		Tax:             snap.Tax,
		ShippingFee:     snap.ShippingFee,
		DiscountAmount:  snap.Discount,
		CouponCode:      snap.CouponCode,
		ShippingAddress: addr,
		PaymentMethod:   method,
		PaymentStatus:   models.PaymentStatusUnpaid,
		Status:          models.OrderStatusPending,
		StatusHistory:   []models.StatusHistory{{Status: models.OrderStatusPending, CreatedAt: s.now()}},
	}

	err = s.d.Repo.Tx(ctx, func(tx *repo.GormRepo) error {
		if _, err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}
		if err := s.ledger.Deduct(ctx, tx, order.Items); err != nil {
			return err
		}
		if order.CouponCode != "" {
			return s.coupons.Redeem(ctx, tx, order.CouponCode)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("order_created", "order_id", order.ID, "total", order.TotalAmount.StringFixed(2))
	s.d.publisher().Publish(ctx, events.Event{Type: events.OrderCreated, Order: order, UserID: order.UserID})
	return order, nil
}

// ListOrders returns the caller's orders, or every order for admins. The
// status filter applies to admins only.
func (s *OrderService) ListOrders(ctx context.Context, actor Actor, status models.OrderStatus, limit, offset int) ([]models.Order, int64, error) {
	var f repo.OrderFilter
	if actor.IsAdmin() {
		if status != "" && !status.Valid() {
			return nil, 0, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
		}
		f.Status = status
	} else {
		uid := actor.UserID
		f.UserID = &uid
	}
	return s.d.Repo.ListOrders(ctx, f, limit, offset)
}

func (s *OrderService) GetOrder(ctx context.Context, actor Actor, id uuid.UUID) (*models.Order, error) {
	order, err := s.d.Repo.GetOrder(ctx, id)
	if err != nil {
		return nil, notFound(err, "order "+id.String())
	}
	if !actor.IsAdmin() && !order.OwnedBy(actor.UserID) {
		return nil, fmt.Errorf("%w: order %s", ErrForbidden, id)
	}
	return order, nil
}

// CancelOrder is the customer's cancellation; it works only while the order
// is pending or processing and puts the stock back once.
func (s *OrderService) CancelOrder(ctx context.Context, actor Actor, id uuid.UUID) (*models.Order, error) {
	order, err := s.GetOrder(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.cancel(ctx, order, selfCancellable, "cancelled by customer", nil)
}

func (s *OrderService) cancel(ctx context.Context, order *models.Order, from []models.OrderStatus, note string, extra map[string]any) (*models.Order, error) {
	fields := map[string]any{"status": string(models.OrderStatusCancelled)}
	for k, v := range extra {
		fields[k] = v
	}

	prev := order.Status
	err := s.d.Repo.Tx(ctx, func(tx *repo.GormRepo) error {
		ok, err := tx.UpdateOrderIf(ctx, order.ID, from, fields)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: order %s cannot be cancelled", ErrInvalidTransition, order.ID)
		}
		if err := tx.AppendHistory(ctx, &models.StatusHistory{
			OrderID: order.ID, Status: models.OrderStatusCancelled, Note: note, CreatedAt: s.now(),
		}); err != nil {
			return err
		}
		return s.ledger.Restore(ctx, tx, order.Items)
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.d.Repo.GetOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info("order_cancelled", "order_id", order.ID, "previous_status", prev)
	s.notifyStatus(ctx, updated, prev)
	return updated, nil
}

// UpdateStatus is the admin update of status, tracking number and note.
// Admins may cancel from any state except cancelled; a cancelled order is
// final.
func (s *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, upd StatusUpdate) (*models.Order, error) {
	upd.TrackingNumber = strings.TrimSpace(upd.TrackingNumber)
	upd.Note = strings.TrimSpace(upd.Note)
	if upd.Status == "" && upd.TrackingNumber == "" && upd.Note == "" {
		return nil, fmt.Errorf("%w: nothing to update", ErrValidation)
	}
	if upd.Status != "" && !upd.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, upd.Status)
	}
	if upd.TrackingNumber != "" && !models.ValidTrackingNumber(upd.TrackingNumber) {
		return nil, fmt.Errorf("%w: tracking number must be 8-20 uppercase letters or digits", ErrValidation)
	}

	order, err := s.d.Repo.GetOrder(ctx, id)
	if err != nil {
		return nil, notFound(err, "order "+id.String())
	}

	next := order.Status
	if upd.Status != "" {
		next = upd.Status
	}
	changed := next != order.Status
	fields := map[string]any{}
	if upd.TrackingNumber != "" {
		fields["tracking_number"] = upd.TrackingNumber
	}
	if changed && order.Status == models.OrderStatusCancelled {
		return nil, fmt.Errorf("%w: order %s is cancelled", ErrInvalidTransition, id)
	}
	if changed && next == models.OrderStatusCancelled {
		note := upd.Note
		if note == "" {
			note = "cancelled by admin"
		}
		return s.cancel(ctx, order, notCancelled, note, fields)
	}

	fields["status"] = string(next)
	if changed && next == models.OrderStatusDelivered {
		fields["is_delivered"] = true
		fields["delivered_at"] = s.now()
	}

	err = s.d.Repo.Tx(ctx, func(tx *repo.GormRepo) error {
		ok, err := tx.UpdateOrderIf(ctx, id, []models.OrderStatus{order.Status}, fields)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: order %s changed concurrently", ErrConflict, id)
		}
		if changed {
			return tx.AppendHistory(ctx, &models.StatusHistory{OrderID: id, Status: next, Note: upd.Note, CreatedAt: s.now()})
		}
		if upd.Note != "" {
			return tx.AnnotateLatestHistory(ctx, id, upd.Note)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.d.Repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if changed {
		logging.FromContext(ctx).Info("order_status_changed", "order_id", id, "from", order.Status, "to", next)
		s.notifyStatus(ctx, updated, order.Status)
	}
	return updated, nil
}

func (s *OrderService) notifyStatus(ctx context.Context, order *models.Order, prev models.OrderStatus) {
	s.d.publisher().Publish(ctx, events.Event{
		Type:           events.OrderStatusChanged,
		Order:          order,
		PreviousStatus: prev,
		UserID:         order.UserID,
	})
}
