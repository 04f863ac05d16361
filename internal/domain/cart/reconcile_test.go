// internal/domain/cart/reconcile_test.go
package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/pkg/apperrors"
)

func TestReconcileMergesGuestIntoUserCart(t *testing.T) {
	db := setupCartTestDB(t)
	svc, locker := newTestCartService(db)
	shared := seedProduct(t, db, "SKU-1", 1000, 50)
	guestOnly := seedProduct(t, db, "SKU-2", 2000, 50)

	userOwner := UserOwner(1)
	guestOwner := SessionOwner("guest-session")

	_, err := svc.AddToCart(context.Background(), userOwner, &AddToCartRequest{ProductID: shared.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = svc.AddToCart(context.Background(), guestOwner, &AddToCartRequest{ProductID: shared.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = svc.AddToCart(context.Background(), guestOwner, &AddToCartRequest{ProductID: guestOnly.ID, Quantity: 3})
	require.NoError(t, err)

	resp, err := svc.Reconcile(context.Background(), "guest-session", 1)
	require.NoError(t, err)

	require.Len(t, resp.Items, 2)
	quantities := map[uint]int{}
	for _, item := range resp.Items {
		quantities[item.ProductID] = item.Quantity
	}
	assert.Equal(t, 3, quantities[shared.ID])
	assert.Equal(t, 3, quantities[guestOnly.ID])

	// The guest cart is gone, only the user cart remains
	var cartCount int64
	require.NoError(t, db.Model(&Cart{}).Count(&cartCount).Error)
	assert.Equal(t, int64(1), cartCount)

	guestResp, err := svc.GetCart(context.Background(), guestOwner)
	require.NoError(t, err)
	assert.Empty(t, guestResp.Items)

	require.NotEmpty(t, locker.releases)
}

func TestReconcileRetagsGuestCartWhenUserHasNone(t *testing.T) {
	db := setupCartTestDB(t)
	svc, _ := newTestCartService(db)
	p := seedProduct(t, db, "SKU-1", 1000, 50)
	guestOwner := SessionOwner("guest-session")

	_, err := svc.AddToCart(context.Background(), guestOwner, &AddToCartRequest{ProductID: p.ID, Quantity: 4})
	require.NoError(t, err)

	resp, err := svc.Reconcile(context.Background(), "guest-session", 9)
	require.NoError(t, err)

	require.Len(t, resp.Items, 1)
	assert.Equal(t, 4, resp.Items[0].Quantity)
	require.NotNil(t, resp.UserID)
	assert.Equal(t, uint(9), *resp.UserID)

	// Still one cart row: re-owned in place, not copied
	var c Cart
	require.NoError(t, db.First(&c).Error)
	require.NotNil(t, c.UserID)
	assert.Equal(t, uint(9), *c.UserID)
	assert.Nil(t, c.SessionToken)
}

func TestReconcileWithoutGuestCartIsNoop(t *testing.T) {
	db := setupCartTestDB(t)
	svc, _ := newTestCartService(db)
	p := seedProduct(t, db, "SKU-1", 1000, 50)
	userOwner := UserOwner(1)

	_, err := svc.AddToCart(context.Background(), userOwner, &AddToCartRequest{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)

	resp, err := svc.Reconcile(context.Background(), "never-seen-session", 1)
	require.NoError(t, err)

	require.Len(t, resp.Items, 1)
	assert.Equal(t, 2, resp.Items[0].Quantity)
}

func TestReconcileIsIdempotent(t *testing.T) {
	db := setupCartTestDB(t)
	svc, _ := newTestCartService(db)
	p := seedProduct(t, db, "SKU-1", 1000, 50)
	guestOwner := SessionOwner("guest-session")

	_, err := svc.AddToCart(context.Background(), guestOwner, &AddToCartRequest{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)

	first, err := svc.Reconcile(context.Background(), "guest-session", 1)
	require.NoError(t, err)

	// The session token was consumed by the first call, so replaying the
	// login must not double quantities.
	second, err := svc.Reconcile(context.Background(), "guest-session", 1)
	require.NoError(t, err)

	assert.Equal(t, first.Totals.TotalQuantity, second.Totals.TotalQuantity)
	assert.Equal(t, 2, second.Totals.TotalQuantity)
}

func TestReconcileLockAlreadyHeld(t *testing.T) {
	db := setupCartTestDB(t)
	locker := &stubLocker{acquired: false}
	svc := NewService(db, locker, nil)

	_, err := svc.Reconcile(context.Background(), "guest-session", 1)
	require.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Empty(t, locker.releases)
}

func TestReconcileLockerFailure(t *testing.T) {
	db := setupCartTestDB(t)
	locker := &stubLocker{acquireErr: errors.New("redis down")}
	svc := NewService(db, locker, nil)

	_, err := svc.Reconcile(context.Background(), "guest-session", 1)
	require.ErrorIs(t, err, apperrors.ErrStorage)
}

func TestReconcileRequiresUserID(t *testing.T) {
	db := setupCartTestDB(t)
	svc, _ := newTestCartService(db)

	_, err := svc.Reconcile(context.Background(), "guest-session", 0)
	require.ErrorIs(t, err, apperrors.ErrValidation)
}
