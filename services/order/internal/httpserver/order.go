package httpserver

import (
	"net/http"

	"github.com/Skotchmaster/marketplace/pkg/logging"
	"github.com/Skotchmaster/marketplace/pkg/util"
	"github.com/Skotchmaster/marketplace/services/order/internal/models"
	"github.com/Skotchmaster/marketplace/services/order/internal/search"
	"github.com/Skotchmaster/marketplace/services/order/internal/service"
	"github.com/Skotchmaster/marketplace/services/order/internal/transport"
	"github.com/labstack/echo/v4"
)

type OrderHTTP struct {
	Orders  *service.OrderService
	Refunds *service.RefundService
	Search  *search.Index
}

func (h *OrderHTTP) ApplyCoupon(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.apply_coupon")

	var req transport.ApplyCouponRequest
	if err := bind(c, l, "apply_coupon", &req); err != nil {
		return err
	}

	q, err := h.Orders.ApplyCoupon(ctx, req.Code, req.CartTotal)
	if err != nil {
		return fail(l, "apply_coupon", err)
	}

	l.Info("apply_coupon_success", "code", q.Code)
	return c.JSON(http.StatusOK, transport.ApplyCouponResponse{Code: q.Code, Discount: q.Discount})
}

func (h *OrderHTTP) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create")

	actor, err := actorFrom(c)
	if err != nil {
		l.Warn("create_order_error", "status", 401, "error", err)
		return unauthorized()
	}

	var req transport.CreateOrderRequest
	if err := bind(c, l, "create_order", &req); err != nil {
		return err
	}

	order, err := h.Orders.CreateOrder(ctx, actor, service.DirectOrderRequest{
		Items:         cartLines(req.Items),
		Address:       shippingAddress(req.ShippingAddress),
		CouponCode:    req.CouponCode,
		PaymentMethod: req.PaymentMethod,
		ShippingFee:   req.ShippingFee,
	})
	if err != nil {
		return fail(l, "create_order", err)
	}

	l.Info("create_order_success", "order_id", order.ID)
	return c.JSON(http.StatusCreated, order)
}

func (h *OrderHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list")

	actor, err := actorFrom(c)
	if err != nil {
		l.Warn("list_orders_error", "status", 401, "error", err)
		return unauthorized()
	}

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	orders, total, err := h.Orders.ListOrders(ctx, actor, models.OrderStatus(c.QueryParam("status")), limit, offset)
	if err != nil {
		return fail(l, "list_orders", err)
	}

	l.Info("list_orders_success")
	return c.JSON(http.StatusOK, map[string]any{
		"data": orders,
		"meta": util.Meta(page, limit, offset, total),
	})
}

func (h *OrderHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get")

	actor, err := actorFrom(c)
	if err != nil {
		l.Warn("get_order_error", "status", 401, "error", err)
		return unauthorized()
	}
	id, err := pathID(c, "id")
	if err != nil {
		l.Warn("get_order_error", "status", 400, "reason", "id is not a uuid", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id is not a uuid")
	}

	order, err := h.Orders.GetOrder(ctx, actor, id)
	if err != nil {
		return fail(l, "get_order", err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) CancelOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.cancel")

	actor, err := actorFrom(c)
	if err != nil {
		l.Warn("cancel_order_error", "status", 401, "error", err)
		return unauthorized()
	}
	id, err := pathID(c, "id")
	if err != nil {
		l.Warn("cancel_order_error", "status", 400, "reason", "id is not a uuid", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id is not a uuid")
	}

	order, err := h.Orders.CancelOrder(ctx, actor, id)
	if err != nil {
		return fail(l, "cancel_order", err)
	}

	l.Info("cancel_order_success", "order_id", order.ID)
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.update_status")

	id, err := pathID(c, "id")
	if err != nil {
		l.Warn("update_status_error", "status", 400, "reason", "id is not a uuid", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id is not a uuid")
	}

	var req transport.StatusUpdateRequest
	if err := bind(c, l, "update_status", &req); err != nil {
		return err
	}

	order, err := h.Orders.UpdateStatus(ctx, id, service.StatusUpdate{
		Status:         models.OrderStatus(req.Status),
		TrackingNumber: req.TrackingNumber,
		Note:           req.Note,
	})
	if err != nil {
		return fail(l, "update_status", err)
	}

	l.Info("update_status_success", "order_id", order.ID, "order_status", order.Status)
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) RequestRefund(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.request_refund")

	actor, err := actorFrom(c)
	if err != nil {
		l.Warn("request_refund_error", "status", 401, "error", err)
		return unauthorized()
	}
	id, err := pathID(c, "id")
	if err != nil {
		l.Warn("request_refund_error", "status", 400, "reason", "id is not a uuid", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id is not a uuid")
	}

	var req transport.RefundCreateRequest
	if err := bind(c, l, "request_refund", &req); err != nil {
		return err
	}

	refund, err := h.Refunds.RequestRefund(ctx, actor, id, req.Reason, models.RefundEvidence{
		Items:  req.Evidence.Items,
		Images: req.Evidence.Images,
	})
	if err != nil {
		return fail(l, "request_refund", err)
	}

	l.Info("request_refund_success", "refund_id", refund.ID)
	return c.JSON(http.StatusCreated, refund)
}

func (h *OrderHTTP) ProcessRefund(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.process_refund")

	id, err := pathID(c, "id")
	if err != nil {
		l.Warn("process_refund_error", "status", 400, "reason", "id is not a uuid", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id is not a uuid")
	}

	var req transport.RefundProcessRequest
	if err := bind(c, l, "process_refund", &req); err != nil {
		return err
	}

	refund, err := h.Refunds.ProcessRefund(ctx, id, models.RefundStatus(req.Status), req.AdminComments)
	if err != nil {
		return fail(l, "process_refund", err)
	}
	if refund.ReversalError != "" {
		l.Warn("process_refund_reversal_failed", "refund_id", refund.ID, "reason", refund.ReversalError)
	}

	l.Info("process_refund_success", "refund_id", refund.ID, "refund_status", refund.Status)
	return c.JSON(http.StatusOK, refund)
}

func (h *OrderHTTP) SearchOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.search")

	if h.Search == nil {
		l.Warn("search_orders_error", "status", 503, "reason", "search is not configured")
		return echo.NewHTTPError(http.StatusServiceUnavailable, "search is not configured")
	}
	q := c.QueryParam("q")
	if q == "" {
		l.Warn("search_orders_error", "status", 400, "reason", "q is required")
		return echo.NewHTTPError(http.StatusBadRequest, "q is required")
	}

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, docs, err := h.Search.Search(ctx, q, offset, limit)
	if err != nil {
		l.Error("search_orders_error", "status", 500, "reason", "search failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "search failed")
	}

	l.Info("search_orders_success", "total", total)
	return c.JSON(http.StatusOK, map[string]any{
		"data": docs,
		"meta": util.Meta(page, limit, offset, total),
	})
}
