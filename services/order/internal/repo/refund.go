package repo

import (
	"context"

	"github.com/Skotchmaster/marketplace/services/order/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

// CreateRefundOnce stores req unless the order already has an active request.
func (r *GormRepo) CreateRefundOnce(ctx context.Context, req *models.RefundRequest) (bool, error) {
	res := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "active_order_id"}}, DoNothing: true}).
		Create(req)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormRepo) GetRefund(ctx context.Context, id uuid.UUID) (*models.RefundRequest, error) {
	var req models.RefundRequest
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *GormRepo) ListRefundsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.RefundRequest, error) {
	var out []models.RefundRequest
	if err := r.DB.WithContext(ctx).Where("order_id = ?", orderID).Order("created_at").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormRepo) UpdateRefundIf(ctx context.Context, id uuid.UUID, from models.RefundStatus, fields map[string]any) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.RefundRequest{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
