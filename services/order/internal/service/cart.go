package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Skotchmaster/marketplace/services/order/internal/catalog"
	"github.com/Skotchmaster/marketplace/services/order/internal/models"
	"github.com/Skotchmaster/marketplace/services/order/internal/repo"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CartLine struct {
	ProductID   uuid.UUID
	ProductType models.ProductType
	Quantity    int
}

// CartValidator resolves cart lines against the catalog. It never mutates
// stock and ignores any client-side price.
type CartValidator struct {
	repo    *repo.GormRepo
	catalog *catalog.Registry
}

func NewCartValidator(r *repo.GormRepo, reg *catalog.Registry) *CartValidator {
	return &CartValidator{repo: r, catalog: reg}
}

func (v *CartValidator) Validate(ctx context.Context, lines []CartLine) ([]models.CheckoutLine, decimal.Decimal, error) {
	if len(lines) == 0 {
		return nil, decimal.Zero, fmt.Errorf("%w: items required", ErrValidation)
	}

	merged := make([]CartLine, 0, len(lines))
	seen := make(map[string]int, len(lines))
	for _, l := range lines {
		if l.ProductID == uuid.Nil {
			return nil, decimal.Zero, fmt.Errorf("%w: product_id required", ErrValidation)
		}
		if l.Quantity <= 0 {
			return nil, decimal.Zero, fmt.Errorf("%w: quantity must be > 0", ErrValidation)
		}
		key := string(l.ProductType) + ":" + l.ProductID.String()
		if i, ok := seen[key]; ok {
			merged[i].Quantity += l.Quantity
			continue
		}
		seen[key] = len(merged)
		merged = append(merged, l)
	}

	out := make([]models.CheckoutLine, 0, len(merged))
	subtotal := decimal.Zero
	for _, l := range merged {
		res, err := v.catalog.For(l.ProductType)
		if err != nil {
			return nil, decimal.Zero, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		item, err := res.FindByID(ctx, v.repo.DB, l.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return nil, decimal.Zero, fmt.Errorf("%w: %s %s", ErrNotFound, l.ProductType, l.ProductID)
			}
			return nil, decimal.Zero, err
		}
		if l.Quantity > item.Stock {
			return nil, decimal.Zero, fmt.Errorf("%w: %s has %d left", ErrInsufficientStock, item.Name, item.Stock)
		}

		out = append(out, models.CheckoutLine{
			ProductID:   item.ID,
			ProductType: item.Kind,
			Name:        item.Name,
			Price:       item.Price,
			Quantity:    l.Quantity,
			Image:       item.Image,
		})
		subtotal = subtotal.Add(item.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return out, subtotal, nil
}

func orderItems(lines []models.CheckoutLine) []models.OrderItem {
	items := make([]models.OrderItem, len(lines))
	for i, l := range lines {
		items[i] = models.OrderItem{
			ProductID:   l.ProductID,
			ProductType: l.ProductType,
			Name:        l.Name,
			Price:       l.Price,
			Quantity:    l.Quantity,
			Image:       l.Image,
		}
	}
	return items
}
