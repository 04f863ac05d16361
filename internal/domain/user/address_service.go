// internal/domain/user/address_service.go
package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/your-org/storefront-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// AddressService handles address-book management
type AddressService struct {
	db *gorm.DB
}

// NewAddressService creates a new address service
func NewAddressService(db *gorm.DB) *AddressService {
	return &AddressService{db: db}
}

// AddressRequest represents address creation/update data
type AddressRequest struct {
	FirstName    string `json:"first_name" binding:"required"`
	LastName     string `json:"last_name" binding:"required"`
	AddressLine1 string `json:"address_line1" binding:"required"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city" binding:"required"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code" binding:"required"`
	Country      string `json:"country" binding:"required,len=2"`
	Phone        string `json:"phone"`
	IsDefault    bool   `json:"is_default"`
}

// GetAddresses lists the user's addresses, default first
func (s *AddressService) GetAddresses(ctx context.Context, userID uint) ([]Address, error) {
	var addresses []Address
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC, created_at DESC").
		Find(&addresses).Error
	if err != nil {
		return nil, apperrors.Storagef("failed to retrieve addresses: %v", err)
	}
	return addresses, nil
}

// GetAddress retrieves one address owned by the user
func (s *AddressService) GetAddress(ctx context.Context, userID, addressID uint) (*Address, error) {
	var address Address
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", addressID, userID).
		First(&address).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("address %d: %w", addressID, apperrors.ErrNotFound)
		}
		return nil, apperrors.Storagef("failed to retrieve address: %v", err)
	}
	return &address, nil
}

// CreateAddress adds an address to the user's book. The first address, or
// one flagged default, becomes the default and demotes any previous one.
func (s *AddressService) CreateAddress(ctx context.Context, userID uint, req *AddressRequest) (*Address, error) {
	address := Address{
		UserID:       userID,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		AddressLine1: req.AddressLine1,
		AddressLine2: req.AddressLine2,
		City:         req.City,
		State:        req.State,
		PostalCode:   req.PostalCode,
		Country:      req.Country,
		Phone:        req.Phone,
		IsDefault:    req.IsDefault,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&Address{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			address.IsDefault = true
		} else if address.IsDefault {
			if err := clearDefault(tx, userID); err != nil {
				return err
			}
		}
		return tx.Create(&address).Error
	})
	if err != nil {
		return nil, apperrors.Storagef("failed to create address: %v", err)
	}

	return &address, nil
}

// UpdateAddress updates an address owned by the user
func (s *AddressService) UpdateAddress(ctx context.Context, userID, addressID uint, req *AddressRequest) (*Address, error) {
	address, err := s.GetAddress(ctx, userID, addressID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if req.IsDefault && !address.IsDefault {
			if err := clearDefault(tx, userID); err != nil {
				return err
			}
		}
		return tx.Model(address).Updates(map[string]interface{}{
			"first_name":    req.FirstName,
			"last_name":     req.LastName,
			"address_line1": req.AddressLine1,
			"address_line2": req.AddressLine2,
			"city":          req.City,
			"state":         req.State,
			"postal_code":   req.PostalCode,
			"country":       req.Country,
			"phone":         req.Phone,
			"is_default":    req.IsDefault || address.IsDefault,
		}).Error
	})
	if err != nil {
		return nil, apperrors.Storagef("failed to update address: %v", err)
	}

	return s.GetAddress(ctx, userID, addressID)
}

// DeleteAddress removes an address from the user's book. Past orders keep
// their snapshot copies regardless.
func (s *AddressService) DeleteAddress(ctx context.Context, userID, addressID uint) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", addressID, userID).
		Delete(&Address{})
	if result.Error != nil {
		return apperrors.Storagef("failed to delete address: %v", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("address %d: %w", addressID, apperrors.ErrNotFound)
	}
	return nil
}

// SetDefaultAddress marks one address as the checkout default
func (s *AddressService) SetDefaultAddress(ctx context.Context, userID, addressID uint) error {
	address, err := s.GetAddress(ctx, userID, addressID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := clearDefault(tx, userID); err != nil {
			return err
		}
		return tx.Model(address).Update("is_default", true).Error
	})
	if err != nil {
		return apperrors.Storagef("failed to set default address: %v", err)
	}
	return nil
}

func clearDefault(tx *gorm.DB, userID uint) error {
	return tx.Model(&Address{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		Update("is_default", false).Error
}
