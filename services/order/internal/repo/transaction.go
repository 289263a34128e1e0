package repo

import (
	"context"

	"github.com/Skotchmaster/marketplace/services/order/internal/models"
	"github.com/google/uuid"
)

func (r *GormRepo) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	return r.DB.WithContext(ctx).Create(t).Error
}

func (r *GormRepo) GetTransactionByOrder(ctx context.Context, orderID uuid.UUID) (*models.Transaction, error) {
	var t models.Transaction
	if err := r.DB.WithContext(ctx).Where("order_id = ?", orderID).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}
