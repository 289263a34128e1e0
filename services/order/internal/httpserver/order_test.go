package httpserver

import (
	"net/http"
	"testing"

	"github.com/Skotchmaster/marketplace/services/order/internal/models"
	"github.com/Skotchmaster/marketplace/services/order/internal/testdb"
	"github.com/Skotchmaster/marketplace/services/order/internal/transport"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (env *testEnv) placeOrder(t *testing.T, who caller, productID uuid.UUID, qty int) models.Order {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/orders", map[string]any{
		"items":            itemBody(productID, qty),
		"shipping_address": addressBody(),
	}, who)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[models.Order](t, rec)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health/live", nil, guest).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health/ready", nil, guest).Code)
}

func TestOrders_RequireAuth(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/orders", nil, guest).Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/orders", nil, caller{token: "garbage"}).Code)
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodGet, "/orders/admin/search?q=x", nil, login(t, "user")).Code)
}

func TestApplyCoupon(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.db.Create(&models.Coupon{
		Code: "SAVE10", DiscountType: models.DiscountPercentage, Amount: decimal.NewFromInt(10), MinOrderAmount: decimal.NewFromInt(50),
	}).Error)
	u := login(t, "user")

	rec := env.do(t, http.MethodPost, "/orders/apply-coupon", map[string]any{"code": "save10", "cart_total": "80.00"}, u)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	q := decode[transport.ApplyCouponResponse](t, rec)
	assert.Equal(t, "SAVE10", q.Code)
	assert.Equal(t, "8", q.Discount.String())

	rec = env.do(t, http.MethodPost, "/orders/apply-coupon", map[string]any{"code": "SAVE10", "cart_total": "20"}, u)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/orders/apply-coupon", map[string]any{"code": "UNKNOWN", "cart_total": "80"}, u)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrderLifecycle(t *testing.T) {
	env := newTestEnv(t)
	p := testdb.SeedProduct(t, env.db, "chair", "40.00", 5)
	owner := login(t, "user")
	stranger := login(t, "user")
	admin := login(t, "admin")

	order := env.placeOrder(t, owner, p.ID, 2)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.PaymentStatusUnpaid, order.PaymentStatus)
	assert.Equal(t, 3, testdb.ProductStock(t, env.db, p.ID))

	path := "/orders/" + order.ID.String()
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, path, nil, owner).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, path, nil, admin).Code)
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodGet, path, nil, stranger).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/orders/"+uuid.NewString(), nil, admin).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/orders/not-a-uuid", nil, owner).Code)

	status := "/orders/admin/" + order.ID.String() + "/status"
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodPut, status, map[string]any{"status": "shipped"}, owner).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPut, status, map[string]any{"tracking_number": "abc"}, admin).Code)

	rec := env.do(t, http.MethodPut, status, map[string]any{"status": "shipped", "tracking_number": "DHL12345678", "note": "left the warehouse"}, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	shipped := decode[models.Order](t, rec)
	assert.Equal(t, models.OrderStatusShipped, shipped.Status)
	assert.Equal(t, "DHL12345678", shipped.TrackingNumber)
	require.NotEmpty(t, shipped.StatusHistory)
	assert.Equal(t, "left the warehouse", shipped.StatusHistory[len(shipped.StatusHistory)-1].Note)

	rec = env.do(t, http.MethodPut, path+"/cancel", nil, owner)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 3, testdb.ProductStock(t, env.db, p.ID))

	rec = env.do(t, http.MethodPut, status, map[string]any{"status": "cancelled"}, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, testdb.ProductStock(t, env.db, p.ID))

	rec = env.do(t, http.MethodPut, status, map[string]any{"status": "processing"}, admin)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCancelOrder_RestoresStockOnce(t *testing.T) {
	env := newTestEnv(t)
	p := testdb.SeedProduct(t, env.db, "chair", "40.00", 5)
	owner := login(t, "user")
	order := env.placeOrder(t, owner, p.ID, 2)

	path := "/orders/" + order.ID.String() + "/cancel"
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodPut, path, nil, login(t, "user")).Code)

	rec := env.do(t, http.MethodPut, path, nil, owner)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.OrderStatusCancelled, decode[models.Order](t, rec).Status)
	assert.Equal(t, 5, testdb.ProductStock(t, env.db, p.ID))

	assert.Equal(t, http.StatusConflict, env.do(t, http.MethodPut, path, nil, owner).Code)
	assert.Equal(t, 5, testdb.ProductStock(t, env.db, p.ID))
}

func TestListOrders_AdminFilter(t *testing.T) {
	env := newTestEnv(t)
	p := testdb.SeedProduct(t, env.db, "chair", "40.00", 10)
	a, b := login(t, "user"), login(t, "user")
	env.placeOrder(t, a, p.ID, 1)
	env.placeOrder(t, a, p.ID, 1)
	toCancel := env.placeOrder(t, b, p.ID, 1)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPut, "/orders/"+toCancel.ID.String()+"/cancel", nil, b).Code)

	type page struct {
		Data []models.Order `json:"data"`
		Meta map[string]any `json:"meta"`
	}

	mine := decode[page](t, env.do(t, http.MethodGet, "/orders", nil, a))
	assert.Len(t, mine.Data, 2)
	assert.EqualValues(t, 2, mine.Meta["total"])

	all := decode[page](t, env.do(t, http.MethodGet, "/orders?size=2", nil, login(t, "admin")))
	assert.Len(t, all.Data, 2)
	assert.EqualValues(t, 3, all.Meta["total"])
	assert.Equal(t, true, all.Meta["has_next"])

	cancelled := decode[page](t, env.do(t, http.MethodGet, "/orders?status=cancelled", nil, login(t, "admin")))
	require.Len(t, cancelled.Data, 1)
	assert.Equal(t, toCancel.ID, cancelled.Data[0].ID)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/orders?status=lost", nil, login(t, "admin")).Code)
}

func TestRefundFlow(t *testing.T) {
	env := newTestEnv(t)
	p := testdb.SeedProduct(t, env.db, "chair", "40.00", 5)
	owner := login(t, "user")
	admin := login(t, "admin")
	order := env.placeOrder(t, owner, p.ID, 1)

	refundPath := "/orders/" + order.ID.String() + "/refund"
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, refundPath, map[string]any{}, owner).Code)
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodPost, refundPath, map[string]any{"reason": "broken"}, login(t, "user")).Code)

	rec := env.do(t, http.MethodPost, refundPath, map[string]any{
		"reason":   "broken leg",
		"evidence": map[string]any{"images": []string{"https://img.shop.test/1.png"}},
	}, owner)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	refund := decode[models.RefundRequest](t, rec)
	assert.Equal(t, models.RefundStatusPending, refund.Status)

	assert.Equal(t, http.StatusConflict, env.do(t, http.MethodPost, refundPath, map[string]any{"reason": "again"}, owner).Code)

	got := decode[models.Order](t, env.do(t, http.MethodGet, "/orders/"+order.ID.String(), nil, owner))
	assert.Equal(t, models.OrderStatusReturnRequested, got.Status)

	processPath := "/orders/refund/" + refund.ID.String()
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodPut, processPath, map[string]any{"status": "approved"}, owner).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPut, processPath, map[string]any{"status": "processing"}, admin).Code)

	rec = env.do(t, http.MethodPut, processPath, map[string]any{"status": "approved", "admin_comments": "ok"}, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	done := decode[models.RefundRequest](t, rec)
	assert.Equal(t, models.RefundStatusApproved, done.Status)
	require.NotNil(t, done.RefundAmount)
	assert.True(t, order.TotalAmount.Equal(*done.RefundAmount))

	assert.Equal(t, http.StatusConflict, env.do(t, http.MethodPut, processPath, map[string]any{"status": "rejected"}, admin).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPut, "/orders/refund/"+uuid.NewString(), map[string]any{"status": "approved"}, admin).Code)
}

func TestSearchOrders_NotConfigured(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/orders/admin/search?q=berlin", nil, login(t, "admin"))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
