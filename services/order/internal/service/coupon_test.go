package service

import (
	"context"
	"testing"
	"time"

	"github.com/Skotchmaster/marketplace/services/order/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCouponEngine_Validate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	f.seedCoupon(t, models.Coupon{Code: "SAVE10", DiscountType: models.DiscountPercentage, Amount: dec("10")})
	f.seedCoupon(t, models.Coupon{Code: "FIVER", DiscountType: models.DiscountFixed, Amount: dec("5"), ValidUntil: &future})
	f.seedCoupon(t, models.Coupon{Code: "BIG", DiscountType: models.DiscountFixed, Amount: dec("1000")})
	f.seedCoupon(t, models.Coupon{Code: "OLD", DiscountType: models.DiscountFixed, Amount: dec("5"), ValidUntil: &past})
	f.seedCoupon(t, models.Coupon{Code: "USED", DiscountType: models.DiscountFixed, Amount: dec("5"), UsageLimit: 2, UsedCount: 2})
	f.seedCoupon(t, models.Coupon{Code: "MIN50", DiscountType: models.DiscountFixed, Amount: dec("5"), MinOrderAmount: dec("50")})

	e := f.checkout.coupons

	q, err := e.Validate(ctx, " save10 ", dec("500"))
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", q.Code)
	assert.True(t, q.Discount.Equal(dec("50")), q.Discount.String())

	q, err = e.Validate(ctx, "FIVER", dec("20"))
	require.NoError(t, err)
	assert.True(t, q.Discount.Equal(dec("5")))

	q, err = e.Validate(ctx, "BIG", dec("20"))
	require.NoError(t, err)
	assert.True(t, q.Discount.Equal(dec("20")), "discount capped at cart total")

	_, err = e.Validate(ctx, "NOPE", dec("20"))
	assert.ErrorIs(t, err, ErrInvalidCoupon)
	_, err = e.Validate(ctx, "OLD", dec("20"))
	assert.ErrorIs(t, err, ErrCouponExpired)
	_, err = e.Validate(ctx, "USED", dec("20"))
	assert.ErrorIs(t, err, ErrCouponLimitReached)
	_, err = e.Validate(ctx, "MIN50", dec("49.99"))
	assert.ErrorIs(t, err, ErrMinimumNotMet)
}

func TestDiscount_RoundsToCents(t *testing.T) {
	c := &models.Coupon{DiscountType: models.DiscountPercentage, Amount: dec("15")}
	assert.Equal(t, "3.00", Discount(c, dec("19.99")).StringFixed(2))
}
