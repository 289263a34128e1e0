package httpserver

import (
	"net/http"

	"github.com/Skotchmaster/marketplace/pkg/authclient"
	middleware "github.com/Skotchmaster/marketplace/pkg/middleware/auth"
	"github.com/labstack/echo/v4"
)

type Deps struct {
	OrderHandler   *OrderHTTP
	PaymentHandler *PaymentHTTP
	JWTSecret      []byte
	AuthClient     *authclient.Client
	// Ready reports whether the service can take traffic; nil means always.
	Ready func() error
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(); err != nil {
				return c.NoContent(http.StatusServiceUnavailable)
			}
		}
		return c.NoContent(http.StatusOK)
	})

	authMW := middleware.NewAutoRefreshMiddleware(d.JWTSecret, d.AuthClient)

	orders := e.Group("/orders", authMW.RequireAuth)
	orders.POST("/apply-coupon", d.OrderHandler.ApplyCoupon)
	orders.POST("", d.OrderHandler.CreateOrder)
	orders.GET("", d.OrderHandler.ListOrders)
	orders.GET("/:id", d.OrderHandler.GetOrder)
	orders.PUT("/:id/cancel", d.OrderHandler.CancelOrder)
	orders.POST("/:id/refund", d.OrderHandler.RequestRefund)

	admin := e.Group("/orders", authMW.RequireAdmin)
	admin.GET("/admin/search", d.OrderHandler.SearchOrders)
	admin.PUT("/admin/:id/status", d.OrderHandler.UpdateStatus)
	admin.PUT("/refund/:id", d.OrderHandler.ProcessRefund)

	payment := e.Group("/payment")
	payment.POST("/create-checkout-session", d.PaymentHandler.CreateCheckoutSession, authMW.OptionalAuth)
	payment.POST("/success", d.PaymentHandler.Success)
	payment.POST("/webhook", d.PaymentHandler.Webhook)
	payment.POST("/refund", d.PaymentHandler.Refund, authMW.RequireAdmin)
}
