// internal/domain/user/address_service_test.go
package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

func seedTestUser(t *testing.T, db *gorm.DB, email string) *User {
	t.Helper()

	u := User{Email: email, Password: "irrelevant", IsActive: true}
	require.NoError(t, db.Create(&u).Error)
	return &u
}

func addressRequest(line1 string, isDefault bool) *AddressRequest {
	return &AddressRequest{
		FirstName:    "Test",
		LastName:     "User",
		AddressLine1: line1,
		City:         "Springfield",
		PostalCode:   "62701",
		Country:      "US",
		IsDefault:    isDefault,
	}
}

func TestCreateAddressFirstBecomesDefault(t *testing.T) {
	db := setupUserTestDB(t)
	svc := NewAddressService(db)
	u := seedTestUser(t, db, "buyer@example.com")

	// The first address is the default even when not flagged
	first, err := svc.CreateAddress(context.Background(), u.ID, addressRequest("1 Main St", false))
	require.NoError(t, err)
	assert.True(t, first.IsDefault)

	second, err := svc.CreateAddress(context.Background(), u.ID, addressRequest("2 Elm St", false))
	require.NoError(t, err)
	assert.False(t, second.IsDefault)
}

func TestCreateAddressDefaultFlagDemotesPrevious(t *testing.T) {
	db := setupUserTestDB(t)
	svc := NewAddressService(db)
	u := seedTestUser(t, db, "buyer@example.com")

	first, err := svc.CreateAddress(context.Background(), u.ID, addressRequest("1 Main St", false))
	require.NoError(t, err)

	second, err := svc.CreateAddress(context.Background(), u.ID, addressRequest("2 Elm St", true))
	require.NoError(t, err)
	assert.True(t, second.IsDefault)

	var previous Address
	require.NoError(t, db.First(&previous, first.ID).Error)
	assert.False(t, previous.IsDefault)

	var defaultCount int64
	require.NoError(t, db.Model(&Address{}).Where("user_id = ? AND is_default = ?", u.ID, true).Count(&defaultCount).Error)
	assert.Equal(t, int64(1), defaultCount)
}

func TestSetDefaultAddress(t *testing.T) {
	db := setupUserTestDB(t)
	svc := NewAddressService(db)
	u := seedTestUser(t, db, "buyer@example.com")

	first, err := svc.CreateAddress(context.Background(), u.ID, addressRequest("1 Main St", false))
	require.NoError(t, err)
	second, err := svc.CreateAddress(context.Background(), u.ID, addressRequest("2 Elm St", false))
	require.NoError(t, err)

	require.NoError(t, svc.SetDefaultAddress(context.Background(), u.ID, second.ID))

	addresses, err := svc.GetAddresses(context.Background(), u.ID)
	require.NoError(t, err)
	require.Len(t, addresses, 2)

	// Default sorts first
	assert.Equal(t, second.ID, addresses[0].ID)
	assert.True(t, addresses[0].IsDefault)
	assert.Equal(t, first.ID, addresses[1].ID)
	assert.False(t, addresses[1].IsDefault)
}

func TestAddressOwnershipEnforced(t *testing.T) {
	db := setupUserTestDB(t)
	svc := NewAddressService(db)
	owner := seedTestUser(t, db, "owner@example.com")
	other := seedTestUser(t, db, "other@example.com")

	address, err := svc.CreateAddress(context.Background(), owner.ID, addressRequest("1 Main St", true))
	require.NoError(t, err)

	_, err = svc.GetAddress(context.Background(), other.ID, address.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	err = svc.DeleteAddress(context.Background(), other.ID, address.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	// Still there for the rightful owner
	_, err = svc.GetAddress(context.Background(), owner.ID, address.ID)
	require.NoError(t, err)
}

func TestDeleteAddress(t *testing.T) {
	db := setupUserTestDB(t)
	svc := NewAddressService(db)
	u := seedTestUser(t, db, "buyer@example.com")

	address, err := svc.CreateAddress(context.Background(), u.ID, addressRequest("1 Main St", true))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAddress(context.Background(), u.ID, address.ID))
	require.ErrorIs(t, svc.DeleteAddress(context.Background(), u.ID, address.ID), apperrors.ErrNotFound)
}
