// Package testdb opens throwaway SQLite databases for package tests.
package testdb

import (
	"testing"

	"github.com/Skotchmaster/marketplace/services/order/internal/models"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func New(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	// one connection keeps the in-memory database alive and serializes writers
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func SeedProduct(t *testing.T, db *gorm.DB, name, price string, stock int) models.Product {
	t.Helper()
	p := models.Product{ID: uuid.New(), Name: name, Price: decimal.RequireFromString(price), Stock: stock, Image: name + ".png"}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}

func SeedAccessory(t *testing.T, db *gorm.DB, name, price string, stock int) models.Accessory {
	t.Helper()
	a := models.Accessory{ID: uuid.New(), Name: name, Price: decimal.RequireFromString(price), Stock: stock}
	if err := db.Create(&a).Error; err != nil {
		t.Fatalf("seed accessory: %v", err)
	}
	return a
}

func ProductStock(t *testing.T, db *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var p models.Product
	if err := db.First(&p, "id = ?", id).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	return p.Stock
}

func AccessoryStock(t *testing.T, db *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var a models.Accessory
	if err := db.First(&a, "id = ?", id).Error; err != nil {
		t.Fatalf("load accessory: %v", err)
	}
	return a.Stock
}
