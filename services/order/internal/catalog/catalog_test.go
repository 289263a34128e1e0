package catalog

import (
	"context"
	"testing"

	"github.com/Skotchmaster/marketplace/services/order/internal/models"
	"github.com/Skotchmaster/marketplace/services/order/internal/testdb"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_FindByID(t *testing.T) {
	db := testdb.New(t)
	p := testdb.SeedProduct(t, db, "iPhone13", "500", 3)
	a := testdb.SeedAccessory(t, db, "Case", "19.90", 7)
	reg := NewRegistry()
	ctx := context.Background()

	res, err := reg.For(models.ProductTypeProduct)
	require.NoError(t, err)
	item, err := res.FindByID(ctx, db, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "iPhone13", item.Name)
	assert.Equal(t, models.ProductTypeProduct, item.Kind)
	assert.Equal(t, 3, item.Stock)

	res, err = reg.For(models.ProductTypeAccessory)
	require.NoError(t, err)
	item, err = res.FindByID(ctx, db, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "19.9", item.Price.String())

	// an accessory id is not a product
	res, _ = reg.For(models.ProductTypeProduct)
	_, err = res.FindByID(ctx, db, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = reg.For("Gadget")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestAdjustStock_BoundedDecrement(t *testing.T) {
	db := testdb.New(t)
	p := testdb.SeedProduct(t, db, "iPhone13", "500", 1)
	res, _ := NewRegistry().For(models.ProductTypeProduct)
	ctx := context.Background()

	require.NoError(t, res.AdjustStock(ctx, db, p.ID, -1))
	assert.Equal(t, 0, testdb.ProductStock(t, db, p.ID))

	err := res.AdjustStock(ctx, db, p.ID, -1)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 0, testdb.ProductStock(t, db, p.ID))

	require.NoError(t, res.AdjustStock(ctx, db, p.ID, 2))
	assert.Equal(t, 2, testdb.ProductStock(t, db, p.ID))

	assert.ErrorIs(t, res.AdjustStock(ctx, db, uuid.New(), 1), ErrNotFound)
	assert.ErrorIs(t, res.AdjustStock(ctx, db, uuid.New(), -1), ErrNotFound)
	assert.NoError(t, res.AdjustStock(ctx, db, p.ID, 0))
}
