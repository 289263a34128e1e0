package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Skotchmaster/marketplace/pkg/tokens"
	"github.com/Skotchmaster/marketplace/services/order/internal/catalog"
	"github.com/Skotchmaster/marketplace/services/order/internal/gateway"
	"github.com/Skotchmaster/marketplace/services/order/internal/repo"
	"github.com/Skotchmaster/marketplace/services/order/internal/service"
	"github.com/Skotchmaster/marketplace/services/order/internal/testdb"
	"github.com/Skotchmaster/marketplace/services/order/internal/transport"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var jwtSecret = []byte("test-secret")

type testEnv struct {
	e  *echo.Echo
	db *gorm.DB
	gw *gateway.Mock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testdb.New(t)
	gw := gateway.NewMock("whsec_test", false)
	d := service.Deps{
		Repo:     &repo.GormRepo{DB: db},
		Catalog:  catalog.NewRegistry(),
		Gateway:  gw,
		Pricing:  service.DefaultPricing(),
		Checkout: service.CheckoutURLs{Currency: "eur", SuccessURL: "https://shop.test/success", CancelURL: "https://shop.test/cart"},
	}

	e := echo.New()
	e.Validator = transport.NewValidator()
	Register(e, &Deps{
		OrderHandler: &OrderHTTP{
			Orders:  service.NewOrderService(d),
			Refunds: service.NewRefundService(d),
		},
		PaymentHandler: &PaymentHTTP{
			Checkout: service.NewCheckoutService(d),
			Payments: service.NewPaymentService(d),
		},
		JWTSecret: jwtSecret,
	})
	return &testEnv{e: e, db: db, gw: gw}
}

type caller struct {
	id    uuid.UUID
	token string
}

func login(t *testing.T, role string) caller {
	t.Helper()
	id := uuid.New()
	tok, err := tokens.NewAccessToken(jwtSecret, id.String(), role, role+"@shop.test", time.Now().Add(time.Hour))
	require.NoError(t, err)
	return caller{id: id, token: tok}
}

var guest = caller{}

func (env *testEnv) do(t *testing.T, method, path string, body any, who caller) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if who.token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+who.token)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func addressBody() map[string]any {
	return map[string]any{
		"full_name":   "Ann Lee",
		"street":      "Main 1",
		"city":        "Berlin",
		"postal_code": "10115",
		"country":     "DE",
	}
}

func itemBody(id uuid.UUID, qty int) []map[string]any {
	return []map[string]any{{"product_id": id, "product_type": "Product", "quantity": qty}}
}
