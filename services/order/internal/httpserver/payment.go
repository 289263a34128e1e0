package httpserver

import (
	"errors"
	"io"
	"net/http"

	"github.com/Skotchmaster/marketplace/pkg/logging"
	"github.com/Skotchmaster/marketplace/services/order/internal/gateway"
	"github.com/Skotchmaster/marketplace/services/order/internal/service"
	"github.com/Skotchmaster/marketplace/services/order/internal/transport"
	"github.com/labstack/echo/v4"
)

const signatureHeader = "Stripe-Signature"

// maxWebhookBody caps the raw webhook payload read for verification, well
// above the largest event the gateway sends.
const maxWebhookBody = 1 << 20

type PaymentHTTP struct {
	Checkout *service.CheckoutService
	Payments *service.PaymentService
}

func (h *PaymentHTTP) CreateCheckoutSession(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.create_checkout_session")

	var req transport.CheckoutSessionRequest
	if err := bind(c, l, "create_checkout_session", &req); err != nil {
		return err
	}

	res, err := h.Checkout.CreateSession(ctx, optionalActor(c), service.CheckoutRequest{
		Items:       cartLines(req.Items),
		Address:     shippingAddress(req.ShippingAddress),
		Email:       req.Email,
		CouponCode:  req.CouponCode,
		ShippingFee: req.ShippingFee,
	})
	if err != nil {
		return fail(l, "create_checkout_session", err)
	}

	l.Info("create_checkout_session_success", "session_id", res.SessionID)
	return c.JSON(http.StatusOK, transport.CheckoutSessionResponse{
		SessionID:   res.SessionID,
		URL:         res.URL,
		Subtotal:    res.Quote.Subtotal,
		ShippingFee: res.Quote.ShippingFee,
		Tax:         res.Quote.Tax,
		Discount:    res.Quote.Discount,
		Total:       res.Quote.Total,
	})
}

// Success confirms a session after the redirect from the hosted payment page.
// The session id comes from the body or the session_id query parameter.
func (h *PaymentHTTP) Success(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.success")

	var req transport.ConfirmPaymentRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("payment_success_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.SessionID == "" {
		req.SessionID = c.QueryParam("session_id")
	}
	if err := validate(c, l, "payment_success", &req); err != nil {
		return err
	}

	order, err := h.Payments.ConfirmSession(ctx, req.SessionID)
	if errors.Is(err, service.ErrPaymentNotCompleted) {
		l.Info("payment_success_pending", "session_id", req.SessionID)
		return c.JSON(http.StatusAccepted, map[string]string{"status": "pending"})
	}
	if err != nil {
		return fail(l, "payment_success", err)
	}

	l.Info("payment_success_success", "order_id", order.ID)
	return c.JSON(http.StatusOK, order)
}

// Webhook must see the body exactly as sent: the signature covers the raw bytes.
func (h *PaymentHTTP) Webhook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.webhook")

	payload, err := io.ReadAll(http.MaxBytesReader(c.Response(), c.Request().Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			l.Error("webhook_error", "status", 413, "reason", "body too large", "limit", tooLarge.Limit)
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "body too large")
		}
		l.Warn("webhook_error", "status", 400, "reason", "cannot read body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read body")
	}

	order, err := h.Payments.HandleWebhook(ctx, payload, c.Request().Header.Get(signatureHeader))
	if err != nil {
		if errors.Is(err, gateway.ErrSignatureInvalid) {
			l.Warn("webhook_error", "status", 400, "reason", "invalid signature", "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, "invalid signature")
		}
		// anything but 2xx makes the gateway redeliver
		l.Error("webhook_error", "status", 500, "reason", "fulfilment failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "fulfilment failed")
	}

	if order == nil {
		return c.JSON(http.StatusOK, map[string]any{"received": true})
	}
	l.Info("webhook_success", "order_id", order.ID)
	return c.JSON(http.StatusOK, map[string]any{"received": true, "order_id": order.ID})
}

func (h *PaymentHTTP) Refund(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.refund")

	var req transport.PaymentRefundRequest
	if err := bind(c, l, "payment_refund", &req); err != nil {
		return err
	}

	refund, err := h.Payments.RefundPayment(ctx, req.PaymentID, req.Amount)
	if err != nil {
		return fail(l, "payment_refund", err)
	}

	l.Info("payment_refund_success", "refund_id", refund.ID)
	return c.JSON(http.StatusOK, transport.PaymentRefundResponse{RefundID: refund.ID, Status: refund.Status})
}
