// internal/domain/product/service_test.go
package product

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/pkg/apperrors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupProductTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&Category{},
		&Product{},
		&ProductImage{},
		&ProductReview{},
	))

	return db
}

func seedTestCategory(t *testing.T, db *gorm.DB) *Category {
	t.Helper()

	var category Category
	err := db.Where("slug = ?", "test-category").First(&category).Error
	if err != nil {
		require.ErrorIs(t, err, gorm.ErrRecordNotFound)
		category = Category{Name: "Test Category", Slug: "test-category", IsActive: true}
		require.NoError(t, db.Create(&category).Error)
	}
	return &category
}

func seedTestProduct(t *testing.T, db *gorm.DB, sku string, price int64) *Product {
	t.Helper()

	category := seedTestCategory(t, db)
	p := Product{
		SKU:           sku,
		Name:          "Product " + sku,
		Slug:          "product-" + sku,
		Price:         price,
		CategoryID:    category.ID,
		IsActive:      true,
		TrackQuantity: true,
		Quantity:      10,
	}
	require.NoError(t, db.Create(&p).Error)
	return &p
}

func TestCreateProductDerivesSlugFromName(t *testing.T) {
	db := setupProductTestDB(t)
	svc := NewService(db, nil)
	category := seedTestCategory(t, db)

	p, err := svc.CreateProduct(context.Background(), &ProductCreateRequest{
		SKU:        "SKU-1",
		Name:       "Fancy  Wireless Headphones!",
		Price:      4999,
		CategoryID: category.ID,
		IsActive:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, "fancy-wireless-headphones", p.Slug)
}

func TestCreateProductDuplicateSlug(t *testing.T) {
	db := setupProductTestDB(t)
	svc := NewService(db, nil)
	category := seedTestCategory(t, db)

	req := &ProductCreateRequest{
		SKU:        "SKU-1",
		Name:       "Same Name",
		Price:      1000,
		CategoryID: category.ID,
	}
	_, err := svc.CreateProduct(context.Background(), req)
	require.NoError(t, err)

	req.SKU = "SKU-2"
	_, err = svc.CreateProduct(context.Background(), req)
	require.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestGetProductBySlugIgnoresInactive(t *testing.T) {
	db := setupProductTestDB(t)
	svc := NewService(db, nil)
	p := seedTestProduct(t, db, "SKU-1", 1000)

	found, err := svc.GetProductBySlug(context.Background(), p.Slug)
	require.NoError(t, err)
	assert.Equal(t, p.ID, found.ID)

	require.NoError(t, db.Model(p).Update("is_active", false).Error)

	_, err = svc.GetProductBySlug(context.Background(), p.Slug)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUpdateProductKeepsSlugUnlessProvided(t *testing.T) {
	db := setupProductTestDB(t)
	svc := NewService(db, nil)
	p := seedTestProduct(t, db, "SKU-1", 1000)

	name := "Renamed Product"
	updated, err := svc.UpdateProduct(context.Background(), p.ID, &ProductUpdateRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed Product", updated.Name)
	assert.Equal(t, p.Slug, updated.Slug)

	slug := "Explicit Slug"
	updated, err = svc.UpdateProduct(context.Background(), p.ID, &ProductUpdateRequest{Slug: &slug})
	require.NoError(t, err)
	assert.Equal(t, "explicit-slug", updated.Slug)
}

func TestUpdateProductRejectsNonPositivePrice(t *testing.T) {
	db := setupProductTestDB(t)
	svc := NewService(db, nil)
	p := seedTestProduct(t, db, "SKU-1", 1000)

	price := int64(0)
	_, err := svc.UpdateProduct(context.Background(), p.ID, &ProductUpdateRequest{Price: &price})
	require.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestAddImageFirstBecomesPrimary(t *testing.T) {
	db := setupProductTestDB(t)
	svc := NewService(db, nil)
	p := seedTestProduct(t, db, "SKU-1", 1000)

	// First image is primary no matter what the request says
	first, err := svc.AddImage(context.Background(), p.ID, &AddImageRequest{URL: "https://img/1.jpg", IsPrimary: false})
	require.NoError(t, err)
	assert.True(t, first.IsPrimary)

	second, err := svc.AddImage(context.Background(), p.ID, &AddImageRequest{URL: "https://img/2.jpg", IsPrimary: true})
	require.NoError(t, err)
	assert.True(t, second.IsPrimary)

	var primaryCount int64
	require.NoError(t, db.Model(&ProductImage{}).Where("product_id = ? AND is_primary = ?", p.ID, true).Count(&primaryCount).Error)
	assert.Equal(t, int64(1), primaryCount)
}

func TestSetPrimaryImageDemotesCurrent(t *testing.T) {
	db := setupProductTestDB(t)
	svc := NewService(db, nil)
	p := seedTestProduct(t, db, "SKU-1", 1000)

	first, err := svc.AddImage(context.Background(), p.ID, &AddImageRequest{URL: "https://img/1.jpg"})
	require.NoError(t, err)
	second, err := svc.AddImage(context.Background(), p.ID, &AddImageRequest{URL: "https://img/2.jpg"})
	require.NoError(t, err)

	require.NoError(t, svc.SetPrimaryImage(context.Background(), p.ID, second.ID))

	var demoted, promoted ProductImage
	require.NoError(t, db.First(&demoted, first.ID).Error)
	require.NoError(t, db.First(&promoted, second.ID).Error)
	assert.False(t, demoted.IsPrimary)
	assert.True(t, promoted.IsPrimary)
}

func TestSetPrimaryImageUnknownImage(t *testing.T) {
	db := setupProductTestDB(t)
	svc := NewService(db, nil)
	p := seedTestProduct(t, db, "SKU-1", 1000)

	require.ErrorIs(t, svc.SetPrimaryImage(context.Background(), p.ID, 999), apperrors.ErrNotFound)
}

func TestAdjustStock(t *testing.T) {
	db := setupProductTestDB(t)
	p := seedTestProduct(t, db, "SKU-1", 1000)

	require.NoError(t, AdjustStock(db, p.ID, -4))
	require.NoError(t, AdjustStock(db, p.ID, 1))

	var fresh Product
	require.NoError(t, db.First(&fresh, p.ID).Error)
	assert.Equal(t, 7, fresh.Quantity)

	require.ErrorIs(t, AdjustStock(db, 999, 1), apperrors.ErrNotFound)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "plain-name", Slugify("Plain Name"))
	assert.Equal(t, "under-scored", Slugify("under_scored"))
	assert.Equal(t, "trimmed", Slugify("  trimmed!  "))
	assert.Equal(t, "no-runs", Slugify("no --- runs"))
	assert.Equal(t, "", Slugify("!!!"))
}
