// internal/domain/cart/service_test.go
package cart

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/pkg/apperrors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupCartTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	// A single pooled connection keeps the in-memory database alive across
	// queries.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&product.Category{},
		&product.Product{},
		&product.ProductImage{},
		&Cart{},
		&CartItem{},
	))

	return db
}

func seedProduct(t *testing.T, db *gorm.DB, sku string, price int64, quantity int) *product.Product {
	t.Helper()

	var category product.Category
	err := db.Where("slug = ?", "test-category").First(&category).Error
	if err != nil {
		require.ErrorIs(t, err, gorm.ErrRecordNotFound)
		category = product.Category{Name: "Test Category", Slug: "test-category", IsActive: true}
		require.NoError(t, db.Create(&category).Error)
	}

	p := product.Product{
		SKU:           sku,
		Name:          "Product " + sku,
		Slug:          "product-" + sku,
		Price:         price,
		CategoryID:    category.ID,
		IsActive:      true,
		TrackQuantity: true,
		Quantity:      quantity,
	}
	require.NoError(t, db.Create(&p).Error)
	return &p
}

type stubLocker struct {
	acquired   bool
	acquireErr error
	releases   []string
}

func (l *stubLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.acquired, l.acquireErr
}

func (l *stubLocker) Release(ctx context.Context, key string) error {
	l.releases = append(l.releases, key)
	return nil
}

func newTestCartService(db *gorm.DB) (*Service, *stubLocker) {
	locker := &stubLocker{acquired: true}
	return NewService(db, locker, nil), locker
}

func TestGetCartMissingReturnsEmptyResponse(t *testing.T) {
	db := setupCartTestDB(t)
	svc, _ := newTestCartService(db)

	resp, err := svc.GetCart(context.Background(), SessionOwner("no-such-session"))
	require.NoError(t, err)

	assert.Empty(t, resp.Items)
	assert.Equal(t, 0, resp.Totals.ItemCount)
	assert.Equal(t, int64(0), resp.Totals.SubTotal)
	assert.Equal(t, "no-such-session", resp.SessionToken)
}

func TestAddToCartCoalescesDuplicateLines(t *testing.T) {
	db := setupCartTestDB(t)
	svc, _ := newTestCartService(db)
	p := seedProduct(t, db, "SKU-1", 1500, 20)
	owner := SessionOwner("session-a")

	_, err := svc.AddToCart(context.Background(), owner, &AddToCartRequest{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)

	resp, err := svc.AddToCart(context.Background(), owner, &AddToCartRequest{ProductID: p.ID, Quantity: 3})
	require.NoError(t, err)

	require.Len(t, resp.Items, 1)
	assert.Equal(t, 5, resp.Items[0].Quantity)
	assert.Equal(t, 1, resp.Totals.ItemCount)
	assert.Equal(t, 5, resp.Totals.TotalQuantity)
	assert.Equal(t, int64(7500), resp.Totals.SubTotal)

	var lineCount int64
	require.NoError(t, db.Model(&CartItem{}).Count(&lineCount).Error)
	assert.Equal(t, int64(1), lineCount)
}

func TestAddToCartUnknownProduct(t *testing.T) {
	db := setupCartTestDB(t)
	svc, _ := newTestCartService(db)

	_, err := svc.AddToCart(context.Background(), SessionOwner("session-a"), &AddToCartRequest{ProductID: 999, Quantity: 1})
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAddToCartInactiveProduct(t *testing.T) {
	db := setupCartTestDB(t)
	svc, _ := newTestCartService(db)
	p := seedProduct(t, db, "SKU-1", 1000, 10)
	require.NoError(t, db.Model(p).Update("is_active", false).Error)

	_, err := svc.AddToCart(context.Background(), SessionOwner("session-a"), &AddToCartRequest{ProductID: p.ID, Quantity: 1})
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAddToCartInsufficientStock(t *testing.T) {
	db := setupCartTestDB(t)
	svc, _ := newTestCartService(db)
	p := seedProduct(t, db, "SKU-1", 1000, 3)
	owner := SessionOwner("session-a")

	_, err := svc.AddToCart(context.Background(), owner, &AddToCartRequest{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)

	// 2 already in the cart, 2 more exceeds the 3 on hand
	_, err = svc.AddToCart(context.Background(), owner, &AddToCartRequest{ProductID: p.ID, Quantity: 2})
	require.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestUpdateCartItemZeroRemovesLine(t *testing.T) {
	db := setupCartTestDB(t)
	svc, _ := newTestCartService(db)
	p := seedProduct(t, db, "SKU-1", 1000, 10)
	owner := SessionOwner("session-a")

	_, err := svc.AddToCart(context.Background(), owner, &AddToCartRequest{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)

	resp, err := svc.UpdateCartItem(context.Background(), owner, p.ID, &UpdateCartItemRequest{Quantity: 0})
	require.NoError(t, err)
	assert.Empty(t, resp.Items)

	var lineCount int64
	require.NoError(t, db.Model(&CartItem{}).Count(&lineCount).Error)
	assert.Equal(t, int64(0), lineCount)
}

func TestUpdateCartItemMissingLine(t *testing.T) {
	db := setupCartTestDB(t)
	svc, _ := newTestCartService(db)
	p := seedProduct(t, db, "SKU-1", 1000, 10)
	other := seedProduct(t, db, "SKU-2", 2000, 10)
	owner := SessionOwner("session-a")

	_, err := svc.AddToCart(context.Background(), owner, &AddToCartRequest{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)

	_, err = svc.UpdateCartItem(context.Background(), owner, other.ID, &UpdateCartItemRequest{Quantity: 2})
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUpdateCartItemNegativeQuantity(t *testing.T) {
	db := setupCartTestDB(t)
	svc, _ := newTestCartService(db)

	_, err := svc.UpdateCartItem(context.Background(), SessionOwner("session-a"), 1, &UpdateCartItemRequest{Quantity: -1})
	require.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestCartUsesCurrentCatalogPrice(t *testing.T) {
	db := setupCartTestDB(t)
	svc, _ := newTestCartService(db)
	p := seedProduct(t, db, "SKU-1", 1000, 10)
	owner := SessionOwner("session-a")

	_, err := svc.AddToCart(context.Background(), owner, &AddToCartRequest{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)

	require.NoError(t, db.Model(p).Update("price", int64(1250)).Error)

	resp, err := svc.GetCart(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, int64(1250), resp.Items[0].UnitPrice)
	assert.Equal(t, int64(2500), resp.Totals.SubTotal)
}

func TestClearCartIsIdempotent(t *testing.T) {
	db := setupCartTestDB(t)
	svc, _ := newTestCartService(db)
	p := seedProduct(t, db, "SKU-1", 1000, 10)
	owner := SessionOwner("session-a")

	_, err := svc.AddToCart(context.Background(), owner, &AddToCartRequest{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)

	require.NoError(t, svc.ClearCart(context.Background(), owner))
	require.NoError(t, svc.ClearCart(context.Background(), owner))

	var cartCount int64
	require.NoError(t, db.Model(&Cart{}).Count(&cartCount).Error)
	assert.Equal(t, int64(0), cartCount)
}

func TestGetCartItemCountSumsQuantities(t *testing.T) {
	db := setupCartTestDB(t)
	svc, _ := newTestCartService(db)
	first := seedProduct(t, db, "SKU-1", 1000, 10)
	second := seedProduct(t, db, "SKU-2", 2000, 10)
	owner := SessionOwner("session-a")

	_, err := svc.AddToCart(context.Background(), owner, &AddToCartRequest{ProductID: first.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = svc.AddToCart(context.Background(), owner, &AddToCartRequest{ProductID: second.ID, Quantity: 3})
	require.NoError(t, err)

	count, err := svc.GetCartItemCount(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestOwnerValidity(t *testing.T) {
	assert.True(t, UserOwner(1).Valid())
	assert.True(t, SessionOwner("token").Valid())
	assert.False(t, Owner{}.Valid())

	assert.True(t, UserOwner(7).IsUser())
	assert.Equal(t, uint(7), UserOwner(7).UserID())
	assert.False(t, SessionOwner("token").IsUser())
	assert.Equal(t, "token", SessionOwner("token").SessionToken())
}
