package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Skotchmaster/marketplace/services/order/internal/models"
	"github.com/Skotchmaster/marketplace/services/order/internal/repo"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

type CouponEngine struct {
	repo *repo.GormRepo
	now  func() time.Time
}

func NewCouponEngine(r *repo.GormRepo) *CouponEngine {
	return &CouponEngine{repo: r, now: time.Now}
}

type CouponQuote struct {
	Code     string
	Discount decimal.Decimal
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (e *CouponEngine) Validate(ctx context.Context, code string, cartTotal decimal.Decimal) (*CouponQuote, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, fmt.Errorf("%w: code required", ErrInvalidCoupon)
	}

	c, err := e.repo.GetCouponByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidCoupon, code)
		}
		return nil, err
	}

	if c.ValidUntil != nil && c.ValidUntil.Before(e.now()) {
		return nil, fmt.Errorf("%w: %s", ErrCouponExpired, code)
	}
	if c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit {
		return nil, fmt.Errorf("%w: %s", ErrCouponLimitReached, code)
	}
	if cartTotal.LessThan(c.MinOrderAmount) {
		return nil, fmt.Errorf("%w: minimum is %s", ErrMinimumNotMet, c.MinOrderAmount.StringFixed(2))
	}

	return &CouponQuote{Code: c.Code, Discount: Discount(c, cartTotal)}, nil
}

// Discount never exceeds cartTotal.
func Discount(c *models.Coupon, cartTotal decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal
	switch c.DiscountType {
	case models.DiscountPercentage:
		d = cartTotal.Mul(c.Amount).Div(hundred).Round(2)
	default:
		d = c.Amount
	}
	if d.IsNegative() {
		return decimal.Zero
	}
	if d.GreaterThan(cartTotal) {
		return cartTotal
	}
	return d
}

// Redeem counts one use of code within tx. It returns ErrCouponLimitReached
// when the usage limit was hit concurrently or the coupon no longer exists.
func (e *CouponEngine) Redeem(ctx context.Context, tx *repo.GormRepo, code string) error {
	ok, err := tx.RedeemCoupon(ctx, NormalizeCode(code))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrCouponLimitReached, code)
	}
	return nil
}
