package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/Skotchmaster/marketplace/services/order/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrNotFound          = errors.New("catalog item not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrUnknownKind       = errors.New("unknown product type")
)

// Item is the shape shared by every sellable catalog kind.
type Item struct {
	ID    uuid.UUID
	Kind  models.ProductType
	Name  string
	Price decimal.Decimal
	Image string
	Stock int
}

// Resolver reads and adjusts one catalog kind. db may be a transaction.
type Resolver interface {
	FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*Item, error)
	AdjustStock(ctx context.Context, db *gorm.DB, id uuid.UUID, delta int) error
}

type Registry struct {
	resolvers map[models.ProductType]Resolver
}

func NewRegistry() *Registry {
	return &Registry{resolvers: map[models.ProductType]Resolver{
		models.ProductTypeProduct:   tableResolver[models.Product]{kind: models.ProductTypeProduct},
		models.ProductTypeAccessory: tableResolver[models.Accessory]{kind: models.ProductTypeAccessory},
	}}
}

// Register replaces the resolver of a kind.
func (r *Registry) Register(kind models.ProductType, res Resolver) {
	r.resolvers[kind] = res
}

func (r *Registry) For(kind models.ProductType) (Resolver, error) {
	res, ok := r.resolvers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return res, nil
}

type stockRow interface {
	models.Product | models.Accessory
}

type tableResolver[T stockRow] struct {
	kind models.ProductType
}

func (t tableResolver[T]) FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*Item, error) {
	var row T
	if err := db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s %s", ErrNotFound, t.kind, id)
		}
		return nil, err
	}
	return toItem(t.kind, &row), nil
}

// AdjustStock applies a signed delta. A decrement only succeeds while the
// counter stays non-negative.
func (t tableResolver[T]) AdjustStock(ctx context.Context, db *gorm.DB, id uuid.UUID, delta int) error {
	if delta == 0 {
		return nil
	}
	q := db.WithContext(ctx).Model(new(T)).Where("id = ?", id)
	if delta < 0 {
		q = q.Where("stock >= ?", -delta)
	}
	res := q.UpdateColumn("stock", gorm.Expr("stock + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	if delta < 0 {
		var n int64
		if err := db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: %s %s", ErrInsufficientStock, t.kind, id)
		}
	}
	return fmt.Errorf("%w: %s %s", ErrNotFound, t.kind, id)
}

func toItem(kind models.ProductType, row any) *Item {
	switch v := row.(type) {
	case *models.Product:
		return &Item{ID: v.ID, Kind: kind, Name: v.Name, Price: v.Price, Image: v.Image, Stock: v.Stock}
	case *models.Accessory:
		return &Item{ID: v.ID, Kind: kind, Name: v.Name, Price: v.Price, Image: v.Image, Stock: v.Stock}
	}
	return nil
}
