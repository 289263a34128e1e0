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
)

type RefundService struct {
	d   Deps
	now func() time.Time
}

func NewRefundService(d Deps) *RefundService {
	return &RefundService{d: d, now: func() time.Time { return time.Now().UTC() }}
}

// RequestRefund opens a refund request and moves the order to
// return_requested. An order has at most one active request.
func (s *RefundService) RequestRefund(ctx context.Context, actor Actor, orderID uuid.UUID, reason string, evidence models.RefundEvidence) (*models.RefundRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: reason required", ErrValidation)
	}

	order, err := s.d.Repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, notFound(err, "order "+orderID.String())
	}
	if !order.OwnedBy(actor.UserID) {
		return nil, fmt.Errorf("%w: order %s", ErrForbidden, orderID)
	}
	if order.Status == models.OrderStatusCancelled {
		return nil, fmt.Errorf("%w: order %s is cancelled", ErrInvalidTransition, orderID)
	}
	if err := checkEvidence(order, evidence); err != nil {
		return nil, err
	}
	existing, err := s.d.Repo.ListRefundsByOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	for _, r := range existing {
		if r.Status.Active() {
			return nil, fmt.Errorf("%w: order %s already has an open refund request", ErrConflict, orderID)
		}
	}

	active := order.ID
	req := &models.RefundRequest{
		UserID:        actor.UserID,
		OrderID:       order.ID,
		ActiveOrderID: &active,
		Reason:        reason,
		Evidence:      evidence,
		Status:        models.RefundStatusPending,
	}

	prev := order.Status
	err = s.d.Repo.Tx(ctx, func(tx *repo.GormRepo) error {
		ok, err := tx.CreateRefundOnce(ctx, req)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: order %s already has an open refund request", ErrConflict, orderID)
		}
		ok, err = tx.UpdateOrderIf(ctx, order.ID, notCancelled, map[string]any{"status": string(models.OrderStatusReturnRequested)})
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: order %s is cancelled", ErrInvalidTransition, orderID)
		}
		if prev == models.OrderStatusReturnRequested {
			return nil
		}
		return tx.AppendHistory(ctx, &models.StatusHistory{
			OrderID: order.ID, Status: models.OrderStatusReturnRequested, Note: "refund requested", CreatedAt: s.now(),
		})
	})
	if err != nil {
		return nil, err
	}

	order.Status = models.OrderStatusReturnRequested
	logging.FromContext(ctx).Info("refund_requested", "refund_id", req.ID, "order_id", order.ID)
	s.d.publisher().Publish(ctx, events.Event{
		Type:           events.RefundRequested,
		Order:          order,
		Refund:         req,
		PreviousStatus: prev,
		UserID:         order.UserID,
	})
	return req, nil
}

func checkEvidence(order *models.Order, ev models.RefundEvidence) error {
	if len(ev.Items) == 0 {
		return nil
	}
	owned := make(map[uuid.UUID]bool, len(order.Items))
	for _, it := range order.Items {
		owned[it.ProductID] = true
	}
	for _, id := range ev.Items {
		if !owned[id] {
			return fmt.Errorf("%w: item %s is not part of the order", ErrValidation, id)
		}
	}
	return nil
}

// ProcessRefund applies the admin decision on a pending request. Approval
// refunds the full order total; a failed gateway reversal is kept on the
// request for a manual retry and does not undo the approval. A request left
// in processing by an interrupted approval can only be approved again, which
// finishes it without reversing a second time.
func (s *RefundService) ProcessRefund(ctx context.Context, refundID uuid.UUID, decision models.RefundStatus, comments string) (*models.RefundRequest, error) {
	l := logging.FromContext(ctx).With("refund_id", refundID)
	if decision != models.RefundStatusApproved && decision != models.RefundStatusRejected {
		return nil, fmt.Errorf("%w: status must be approved or rejected", ErrValidation)
	}

	req, err := s.d.Repo.GetRefund(ctx, refundID)
	if err != nil {
		return nil, notFound(err, "refund request "+refundID.String())
	}
	switch req.Status {
	case models.RefundStatusPending:
	case models.RefundStatusProcessing:
		if decision != models.RefundStatusApproved {
			return nil, fmt.Errorf("%w: refund request is processing and can only be approved", ErrInvalidTransition)
		}
		l.Info("refund_approval_resumed")
	default:
		return nil, fmt.Errorf("%w: refund request is %s", ErrInvalidTransition, req.Status)
	}
	order, err := s.d.Repo.GetOrder(ctx, req.OrderID)
	if err != nil {
		return nil, notFound(err, "order "+req.OrderID.String())
	}

	if decision == models.RefundStatusRejected {
		if err := s.transition(ctx, req.ID, models.RefundStatusPending, map[string]any{
			"status":          string(models.RefundStatusRejected),
			"admin_comments":  comments,
			"active_order_id": nil,
		}); err != nil {
			return nil, err
		}
		return s.finish(ctx, order, req.ID)
	}

	// claim the request so a concurrent approval cannot reverse twice
	if req.Status == models.RefundStatusPending {
		if err := s.transition(ctx, req.ID, models.RefundStatusPending, map[string]any{
			"status":         string(models.RefundStatusProcessing),
			"admin_comments": comments,
		}); err != nil {
			return nil, err
		}
	}

	fields := map[string]any{
		"status":        string(models.RefundStatusApproved),
		"refund_amount": order.TotalAmount,
	}
	if req.Status == models.RefundStatusProcessing && comments != "" {
		fields["admin_comments"] = comments
	}
	if req.GatewayRefundID == "" && order.IsPaid && order.PaymentID != nil {
		refund, err := s.d.Gateway.Refund(ctx, *order.PaymentID, 0)
		if err != nil {
			l.Error("refund_reversal_failed", "order_id", order.ID, "error", err)
			fields["reversal_error"] = err.Error()
		} else {
			fields["gateway_refund_id"] = refund.ID
			fields["reversal_error"] = ""
			// record the reversal first so a resumed approval never repeats it
			if err := s.transition(ctx, req.ID, models.RefundStatusProcessing, map[string]any{
				"gateway_refund_id": refund.ID,
			}); err != nil {
				return nil, err
			}
		}
	}
	if err := s.transition(ctx, req.ID, models.RefundStatusProcessing, fields); err != nil {
		return nil, err
	}
	return s.finish(ctx, order, req.ID)
}

func (s *RefundService) transition(ctx context.Context, id uuid.UUID, from models.RefundStatus, fields map[string]any) error {
	ok, err := s.d.Repo.UpdateRefundIf(ctx, id, from, fields)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: refund request is no longer %s", ErrInvalidTransition, from)
	}
	return nil
}

func (s *RefundService) finish(ctx context.Context, order *models.Order, id uuid.UUID) (*models.RefundRequest, error) {
	req, err := s.d.Repo.GetRefund(ctx, id)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info("refund_processed", "refund_id", id, "status", req.Status)
	s.d.publisher().Publish(ctx, events.Event{
		Type:   events.RefundProcessed,
		Order:  order,
		Refund: req,
		UserID: &req.UserID,
	})
	return req, nil
}
