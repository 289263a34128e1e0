package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Skotchmaster/marketplace/services/order/internal/gateway"
	"github.com/Skotchmaster/marketplace/services/order/internal/service"
	"github.com/Skotchmaster/marketplace/services/order/internal/transport"
	"github.com/labstack/echo/v4"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrInvalidCoupon),
		errors.Is(err, service.ErrCouponExpired),
		errors.Is(err, service.ErrCouponLimitReached),
		errors.Is(err, service.ErrMinimumNotMet),
		errors.Is(err, gateway.ErrSignatureInvalid):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict), errors.Is(err, service.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, service.ErrGateway):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// fail logs err under op and converts it into an echo HTTP error.
func fail(l *slog.Logger, op string, err error) error {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		l.Error(op+"_error", "status", status, "error", err)
		return echo.NewHTTPError(status, "internal error")
	}
	l.Warn(op+"_error", "status", status, "reason", err.Error(), "error", err)
	return echo.NewHTTPError(status, err.Error())
}

// bind decodes and validates the request body into req.
func bind(c echo.Context, l *slog.Logger, op string, req any) error {
	if err := c.Bind(req); err != nil {
		l.Warn(op+"_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	return validate(c, l, op, req)
}

func validate(c echo.Context, l *slog.Logger, op string, req any) error {
	if err := c.Validate(req); err != nil {
		l.Warn(op+"_error", "status", 400, "reason", "validation failed", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": transport.FieldErrors(err),
		})
	}
	return nil
}
