package repo

import (
	"context"

	"github.com/Skotchmaster/marketplace/services/order/internal/models"
	"gorm.io/gorm"
)

func (r *GormRepo) CreateCoupon(ctx context.Context, c *models.Coupon) error {
	return r.DB.WithContext(ctx).Create(c).Error
}

func (r *GormRepo) GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var c models.Coupon
	if err := r.DB.WithContext(ctx).Where("code = ?", code).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// RedeemCoupon bumps used_count while the usage limit allows it.
func (r *GormRepo) RedeemCoupon(ctx context.Context, code string) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.Coupon{}).
		Where("code = ? AND (usage_limit = 0 OR used_count < usage_limit)", code).
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
