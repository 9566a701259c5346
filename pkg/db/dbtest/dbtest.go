// Package dbtest opens isolated SQLite databases carrying the store schema for package tests.
package dbtest

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/angelmondragon/rvstore-backend/pkg/db"
	"github.com/angelmondragon/rvstore-backend/pkg/db/models"
	"github.com/angelmondragon/rvstore-backend/pkg/enums"
	"github.com/angelmondragon/rvstore-backend/pkg/migrate"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open returns a migrated and seeded in-memory database unique to the test.
func Open(t testing.TB) *db.Client {
	t.Helper()

	dsn := "file:rvstore_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := migrate.AutoMigrate(context.Background(), conn); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return db.FromGorm(conn)
}

// CreateUser inserts a user with the given balance.
func CreateUser(t testing.TB, conn *gorm.DB, username string, balance int64, role enums.UserRole) *models.User {
	t.Helper()
	user := &models.User{
		Username:     username,
		FullName:     username + " Tester",
		Email:        username + "@example.com",
		Role:         role,
		Balance:      balance,
		PasswordHash: "hash",
	}
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

// CreateCategory inserts a live category.
func CreateCategory(t testing.TB, conn *gorm.DB, description string) *models.Category {
	t.Helper()
	category := &models.Category{Description: description}
	if err := conn.Create(category).Error; err != nil {
		t.Fatalf("create category %s: %v", description, err)
	}
	return category
}

// ProductSeed describes a product and its first price version.
type ProductSeed struct {
	Barcode    string
	Name       string
	CategoryID int64
	Weight     int64
	BuyPrice   int64
	SellPrice  int64
	Stock      int64
	ActorID    int64
}

// CreateProduct inserts a product together with its open price version.
func CreateProduct(t testing.TB, conn *gorm.DB, seed ProductSeed) (*models.Product, *models.PriceVersion) {
	t.Helper()
	if seed.CategoryID == 0 {
		seed.CategoryID = migrate.DefaultCategoryID
	}
	if seed.Name == "" {
		seed.Name = "Product " + seed.Barcode
	}
	product := &models.Product{
		Barcode:    seed.Barcode,
		Name:       seed.Name,
		CategoryID: seed.CategoryID,
		Weight:     seed.Weight,
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("create product %s: %v", seed.Barcode, err)
	}
	price := &models.PriceVersion{
		ProductID: product.ID,
		BuyPrice:  seed.BuyPrice,
		SellPrice: seed.SellPrice,
		Stock:     seed.Stock,
		StartTime: time.Now().UTC().Add(-time.Hour),
		UserID:    seed.ActorID,
	}
	if err := conn.Create(price).Error; err != nil {
		t.Fatalf("create price for %s: %v", seed.Barcode, err)
	}
	return product, price
}

// Count returns the number of rows of model.
func Count(t testing.TB, conn *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	if err := conn.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

// FailNthCreate makes the nth insert (1-based) into table fail with err.
// Inserts before and after the nth one go through.
func FailNthCreate(t testing.TB, conn *gorm.DB, table string, nth int64, err error) {
	t.Helper()
	var seen atomic.Int64
	name := fmt.Sprintf("dbtest:fail_%s_%d", table, nth)
	cbErr := conn.Callback().Create().Before("gorm:create").Register(name, func(tx *gorm.DB) {
		if tx.Statement.Table != table {
			return
		}
		if seen.Add(1) == nth {
			_ = tx.AddError(err)
		}
	})
	if cbErr != nil {
		t.Fatalf("register create callback: %v", cbErr)
	}
	t.Cleanup(func() { _ = conn.Callback().Create().Remove(name) })
}
