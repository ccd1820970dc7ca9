// Package testutil opens throwaway sqlite databases and seeds tenants for tests.
package testutil

import (
	"strings"
	"testing"
	"time"

	"go-store-pos/internal/database"
	"go-store-pos/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB returns a migrated in-memory database unique to the test.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := "file:" + name + "_" + uuid.NewString()[:8] + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// One connection keeps a transaction and the shared cache from locking each other.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// Tenant is a seeded store with an admin and a cashier.
type Tenant struct {
	Store   models.Store
	Admin   models.User
	Cashier models.User
}

// SeedTenant creates a store and two users with profiles.
func SeedTenant(t testing.TB, db *gorm.DB, name string) Tenant {
	t.Helper()
	tn := Tenant{Store: models.Store{Name: name, Address: "Main St 1", Phone: "555-0100", AdministratorName: "Owner"}}
	if err := db.Create(&tn.Store).Error; err != nil {
		t.Fatalf("seed store: %v", err)
	}
	tn.Admin = seedUser(t, db, tn.Store, strings.ToLower(name)+"-admin", true)
	tn.Cashier = seedUser(t, db, tn.Store, strings.ToLower(name)+"-cashier", false)
	return tn
}

func seedUser(t testing.TB, db *gorm.DB, store models.Store, username string, admin bool) models.User {
	t.Helper()
	u := models.User{StoreID: store.ID, Username: username, PasswordHash: "x", IsAdmin: admin, Active: true}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	info := models.UserInfo{UserID: u.ID, Name: username, Email: username + "@shop.test", NationalID: "11.111.111-1", BirthDate: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)}
	if err := db.Create(&info).Error; err != nil {
		t.Fatalf("seed user info: %v", err)
	}
	u.Info = &info
	return u
}

// SeedProduct creates an active product in the store.
func SeedProduct(t testing.TB, db *gorm.DB, store models.Store, name string, stock int64, priceSale, priceBuy int64) models.Product {
	t.Helper()
	p := models.Product{
		StoreID:     store.ID,
		Name:        name,
		PriceSale:   priceSale,
		PriceBuy:    priceBuy,
		Stock:       decimal.NewFromInt(stock),
		Category:    "General",
		Description: name,
		Active:      true,
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}

// Stock reads a product's current stock.
func Stock(t testing.TB, db *gorm.DB, p models.Product) decimal.Decimal {
	t.Helper()
	var got models.Product
	if err := db.First(&got, "id = ?", p.ID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	return got.Stock
}

// Count returns the number of rows of a model.
func Count(t testing.TB, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
