// Package dbtest opens throwaway sqlite databases with the full schema for tests.
package dbtest

import (
	"io"
	"log"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// AllModels lists every persisted model in dependency order.
func AllModels() []any {
	return models.All()
}

// Open returns an isolated in-memory database with every table migrated.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:storefront_" + uuid.NewString() + "?mode=memory&cache=shared&_busy_timeout=5000"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger: gormlogger.New(
			log.New(io.Discard, "", log.LstdFlags),
			gormlogger.Config{LogLevel: gormlogger.Silent},
		),
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(AllModels()...))

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	// one connection keeps shared-cache table locks from failing fast
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

// SeedUser inserts an active user with the given role.
func SeedUser(t *testing.T, conn *gorm.DB, role enums.UserRole) models.User {
	t.Helper()
	user := models.User{
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "hash",
		FirstName:    "Test",
		LastName:     "User",
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, conn.Create(&user).Error)
	return user
}

// VariantSpec describes a variant to seed.
type VariantSpec struct {
	Color        string
	Size         string
	Price        string
	Qty          int
	ReorderPoint int
}

// SeedProduct inserts an active product with the provided variants.
func SeedProduct(t *testing.T, conn *gorm.DB, title string, variants ...VariantSpec) models.Product {
	t.Helper()
	product := models.Product{
		Title:      title,
		Slug:       "p-" + uuid.NewString(),
		IsActive:   true,
		Images:     []string{},
		Attributes: map[string]string{},
	}
	require.NoError(t, conn.Create(&product).Error)
	for _, spec := range variants {
		variant := models.ProductVariant{
			ProductID:    product.ID,
			Color:        spec.Color,
			Size:         spec.Size,
			Price:        decimal.RequireFromString(spec.Price),
			QtyAvailable: spec.Qty,
			ReorderPoint: spec.ReorderPoint,
		}
		require.NoError(t, conn.Create(&variant).Error)
		product.Variants = append(product.Variants, variant)
	}
	return product
}

// VariantQty reads the live stock of a variant.
func VariantQty(t *testing.T, conn *gorm.DB, variantID uuid.UUID) int {
	t.Helper()
	var variant models.ProductVariant
	require.NoError(t, conn.First(&variant, "id = ?", variantID).Error)
	return variant.QtyAvailable
}
