package repo

import (
	"context"
	"time"

	"github.com/Skotchmaster/marketplace/services/order/internal/models"
)

func (r *GormRepo) SavePendingCheckout(ctx context.Context, pc *models.PendingCheckout) error {
	return r.DB.WithContext(ctx).Create(pc).Error
}

func (r *GormRepo) GetPendingCheckout(ctx context.Context, sessionID string) (*models.PendingCheckout, error) {
	var pc models.PendingCheckout
	if err := r.DB.WithContext(ctx).Where("session_id = ?", sessionID).First(&pc).Error; err != nil {
		return nil, err
	}
	return &pc, nil
}

func (r *GormRepo) ConsumePendingCheckout(ctx context.Context, sessionID string, at time.Time) error {
	return r.DB.WithContext(ctx).Model(&models.PendingCheckout{}).
		Where("session_id = ? AND consumed_at IS NULL", sessionID).
		UpdateColumn("consumed_at", at).Error
}
