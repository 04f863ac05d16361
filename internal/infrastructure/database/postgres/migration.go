// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/payment"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db *gorm.DB
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{db: db}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	logrus.Info("running database auto-migrations")

	// Dependency order: owners before owned rows
	models := []interface{}{
		&user.User{},
		&user.Address{},

		&product.Category{},
		&product.Product{},
		&product.ProductImage{},
		&product.ProductReview{},

		&cart.Cart{},
		&cart.CartItem{},

		&order.Order{},
		&order.OrderItem{},
		&order.StatusHistory{},

		&payment.Transaction{},
	}

	for _, model := range models {
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}

	logrus.Info("database auto-migrations completed")
	return nil
}

// CreateIndexes creates indexes AutoMigrate does not cover
func (m *Migration) CreateIndexes() error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_orders_user_status ON orders (user_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders (created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_products_category_active ON products (category_id, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_reviews_product_approved ON product_reviews (product_id, is_approved)",
	}

	for _, idx := range indexes {
		if err := m.db.Exec(idx).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// SeedInitialData inserts a development admin account and a starter catalog.
// Existing rows are left alone, so reseeding is safe.
func (m *Migration) SeedInitialData() error {
	var userCount int64
	if err := m.db.Model(&user.User{}).Count(&userCount).Error; err != nil {
		return err
	}

	if userCount == 0 {
		hash, err := bcrypt.GenerateFromPassword([]byte("Admin1234!"), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash seed password: %w", err)
		}

		admin := user.User{
			Email:     "admin@storefront.local",
			Password:  string(hash),
			FirstName: "Store",
			LastName:  "Admin",
			IsActive:  true,
			IsAdmin:   true,
		}
		if err := m.db.Create(&admin).Error; err != nil {
			return fmt.Errorf("failed to seed admin user: %w", err)
		}
		logrus.WithField("email", admin.Email).Info("seeded admin user")
	}

	var categoryCount int64
	if err := m.db.Model(&product.Category{}).Count(&categoryCount).Error; err != nil {
		return err
	}

	if categoryCount == 0 {
		categories := []product.Category{
			{Name: "Electronics", Slug: "electronics", Description: "Gadgets and devices", IsActive: true},
			{Name: "Apparel", Slug: "apparel", Description: "Clothing and accessories", IsActive: true},
			{Name: "Home", Slug: "home", Description: "Home and living", IsActive: true},
		}
		if err := m.db.Create(&categories).Error; err != nil {
			return fmt.Errorf("failed to seed categories: %w", err)
		}
		logrus.WithField("count", len(categories)).Info("seeded categories")
	}

	return nil
}
