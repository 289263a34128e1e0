package repo

import (
	"context"

	"github.com/Skotchmaster/marketplace/services/order/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderFilter struct {
	UserID *uuid.UUID
	Status models.OrderStatus
}

func (r *GormRepo) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.DB.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

// InsertOrderOnce inserts order unless another order already carries its
// payment id. It reports false when the insert was skipped.
func (r *GormRepo) InsertOrderOnce(ctx context.Context, order *models.Order) (bool, error) {
	res := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "payment_id"}}, DoNothing: true}).
		Omit(clause.Associations).
		Create(order)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}
	for i := range order.StatusHistory {
		order.StatusHistory[i].OrderID = order.ID
	}
	if len(order.Items) > 0 {
		if err := r.DB.WithContext(ctx).Create(&order.Items).Error; err != nil {
			return false, err
		}
	}
	if len(order.StatusHistory) > 0 {
		if err := r.DB.WithContext(ctx).Create(&order.StatusHistory).Error; err != nil {
			return false, err
		}
	}
	return true, nil
}

func (r *GormRepo) withDetails(ctx context.Context) *gorm.DB {
	return r.DB.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("id") })
}

func (r *GormRepo) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.withDetails(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) GetOrderByPaymentID(ctx context.Context, paymentID string) (*models.Order, error) {
	var order models.Order
	if err := r.withDetails(ctx).Where("payment_id = ?", paymentID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) ListOrders(ctx context.Context, f OrderFilter, limit, offset int) ([]models.Order, int64, error) {
	q := r.DB.WithContext(ctx).Model(&models.Order{})
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	if err := q.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Order("created_at DESC").Limit(limit).Offset(offset).Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// UpdateOrderIf applies fields only while the order is in one of from.
// It reports false when the order was not in an expected state.
func (r *GormRepo) UpdateOrderIf(ctx context.Context, id uuid.UUID, from []models.OrderStatus, fields map[string]any) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status IN ?", id, statuses(from)).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormRepo) AppendHistory(ctx context.Context, entry *models.StatusHistory) error {
	return r.DB.WithContext(ctx).Create(entry).Error
}

// AnnotateLatestHistory sets the note of the newest history entry.
func (r *GormRepo) AnnotateLatestHistory(ctx context.Context, orderID uuid.UUID, note string) error {
	var latest models.StatusHistory
	if err := r.DB.WithContext(ctx).Where("order_id = ?", orderID).Order("id DESC").First(&latest).Error; err != nil {
		return err
	}
	return r.DB.WithContext(ctx).Model(&latest).UpdateColumn("note", note).Error
}
