package service

import (
	"context"
	"sync"
	"testing"

	"github.com/Skotchmaster/marketplace/services/order/internal/catalog"
	"github.com/Skotchmaster/marketplace/services/order/internal/events"
	"github.com/Skotchmaster/marketplace/services/order/internal/gateway"
	"github.com/Skotchmaster/marketplace/services/order/internal/models"
	"github.com/Skotchmaster/marketplace/services/order/internal/repo"
	"github.com/Skotchmaster/marketplace/services/order/internal/testdb"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const webhookSecret = "whsec_test"

type recordedEvents struct {
	mu  sync.Mutex
	got []events.Event
}

func (r *recordedEvents) Publish(_ context.Context, e events.Event) {
	r.mu.Lock()
	r.got = append(r.got, e)
	r.mu.Unlock()
}

func (r *recordedEvents) ofType(t events.Type) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.got {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	repo     *repo.GormRepo
	gw       *gateway.Mock
	events   *recordedEvents
	deps     Deps
	checkout *CheckoutService
	payments *PaymentService
	orders   *OrderService
	refunds  *RefundService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	r := &repo.GormRepo{DB: testdb.New(t)}
	gw := gateway.NewMock(webhookSecret, false)
	rec := &recordedEvents{}
	d := Deps{
		Repo:     r,
		Catalog:  catalog.NewRegistry(),
		Gateway:  gw,
		Events:   rec,
		Pricing:  DefaultPricing(),
		Checkout: CheckoutURLs{Currency: "eur", SuccessURL: "https://shop.test/success", CancelURL: "https://shop.test/cart"},
	}
	return &fixture{
		repo:     r,
		gw:       gw,
		events:   rec,
		deps:     d,
		checkout: NewCheckoutService(d),
		payments: NewPaymentService(d),
		orders:   NewOrderService(d),
		refunds:  NewRefundService(d),
	}
}

func (f *fixture) seedCoupon(t *testing.T, c models.Coupon) {
	t.Helper()
	require.NoError(t, f.repo.CreateCoupon(context.Background(), &c))
}

func (f *fixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.repo.DB.Model(model).Count(&n).Error)
	return n
}

func (f *fixture) couponUses(t *testing.T, code string) int {
	t.Helper()
	c, err := f.repo.GetCouponByCode(context.Background(), code)
	require.NoError(t, err)
	return c.UsedCount
}

func address() models.ShippingAddress {
	return models.ShippingAddress{FullName: "Ann Lee", Street: "Main 1", City: "Berlin", PostalCode: "10115", Country: "DE"}
}

func user() Actor {
	return Actor{UserID: uuid.New(), Role: "user", Email: "ann@shop.test"}
}

func admin() Actor {
	return Actor{UserID: uuid.New(), Role: "admin", Email: "admin@shop.test"}
}

// paidSession runs checkout for one line and completes the payment.
func (f *fixture) paidSession(t *testing.T, actor *Actor, line CartLine, coupon string) string {
	t.Helper()
	res, err := f.checkout.CreateSession(context.Background(), actor, CheckoutRequest{
		Items: []CartLine{line}, Address: address(), Email: "ann@shop.test", CouponCode: coupon,
	})
	require.NoError(t, err)
	require.NoError(t, f.gw.MarkPaid(res.SessionID))
	return res.SessionID
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
