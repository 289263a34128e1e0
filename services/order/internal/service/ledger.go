package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Skotchmaster/marketplace/pkg/logging"
	"github.com/Skotchmaster/marketplace/services/order/internal/catalog"
	"github.com/Skotchmaster/marketplace/services/order/internal/models"
	"github.com/Skotchmaster/marketplace/services/order/internal/repo"
)

// Ledger is the only writer of catalog stock counters.
type Ledger struct {
	catalog *catalog.Registry
}

func NewLedger(reg *catalog.Registry) *Ledger {
	return &Ledger{catalog: reg}
}

// Deduct takes every item out of stock or fails; callers run it inside a
// transaction so a partial deduction is rolled back.
func (l *Ledger) Deduct(ctx context.Context, tx *repo.GormRepo, items []models.OrderItem) error {
	for _, it := range items {
		res, err := l.catalog.For(it.ProductType)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		if err := res.AdjustStock(ctx, tx.DB, it.ProductID, -it.Quantity); err != nil {
			switch {
			case errors.Is(err, catalog.ErrInsufficientStock):
				return fmt.Errorf("%w: %s", ErrInsufficientStock, it.Name)
			case errors.Is(err, catalog.ErrNotFound):
				return fmt.Errorf("%w: %s %s", ErrNotFound, it.ProductType, it.ProductID)
			}
			return err
		}
	}
	return nil
}

// Restore puts every item back. Items since removed from the catalog are
// skipped.
func (l *Ledger) Restore(ctx context.Context, tx *repo.GormRepo, items []models.OrderItem) error {
	log := logging.FromContext(ctx)
	for _, it := range items {
		res, err := l.catalog.For(it.ProductType)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		if err := res.AdjustStock(ctx, tx.DB, it.ProductID, it.Quantity); err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				log.Warn("restock_skipped", "product_id", it.ProductID, "product_type", it.ProductType, "reason", "not in catalog")
				continue
			}
			return err
		}
	}
	return nil
}
