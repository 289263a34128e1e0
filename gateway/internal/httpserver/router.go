package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Skotchmaster/marketplace/gateway/internal/middleware"
	"github.com/Skotchmaster/marketplace/pkg/tokens"
	"github.com/labstack/echo/v4"
)

type Deps struct {
	OrderURL  string
	JWTSecret []byte
	Logger    *slog.Logger
}

func Register(e *echo.Echo, d *Deps) error {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if err := probe(c.Request().Context(), d.OrderURL); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
		}
		return c.NoContent(http.StatusOK)
	})

	for _, m := range middleware.Common(d.Logger) {
		e.Use(m)
	}

	orderProxy, err := newProxy(d.OrderURL, "/api/v1")
	if err != nil {
		return err
	}

	auth := middleware.Middleware(d.JWTSecret)

	// guests may check out; the webhook is authenticated by its signature
	e.POST("/api/v1/payment/create-checkout-session", orderProxy)
	e.POST("/api/v1/payment/success", orderProxy)
	e.POST("/api/v1/payment/webhook", orderProxy)
	e.POST("/api/v1/payment/refund", orderProxy, auth, middleware.RequireRole([]string{tokens.RoleAdmin}))

	api := e.Group("/api/v1", auth)
	api.Any("/orders", orderProxy)
	api.Any("/orders/*", orderProxy)

	return nil
}

// probe reports whether the order service answers its own readiness check.
func probe(ctx context.Context, base string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/health/ready", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("order upstream: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("order upstream: status %d", resp.StatusCode)
	}
	return nil
}
