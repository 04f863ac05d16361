// internal/domain/cart/service.go
package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// Service handles cart business logic. Guest and user carts live in the same
// table and differ only in their owner reference.
type Service struct {
	db     *gorm.DB
	locker Locker
	config *config.Config
}

// NewService creates a new cart service
func NewService(db *gorm.DB, locker Locker, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		locker: locker,
		config: cfg,
	}
}

// GetCart retrieves the owner's cart. A missing cart is not an error; an
// empty response is returned instead.
func (s *Service) GetCart(ctx context.Context, owner Owner) (*CartResponse, error) {
	if !owner.Valid() {
		return nil, apperrors.Validationf("cart owner required")
	}

	c, err := s.findCart(s.db.WithContext(ctx), owner)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			now := time.Now().UTC()
			return &CartResponse{
				UserID:       ownerUserID(owner),
				SessionToken: owner.SessionToken(),
				Items:        []CartItemResponse{},
				CreatedAt:    now,
				UpdatedAt:    now,
			}, nil
		}
		return nil, apperrors.Storagef("failed to retrieve cart: %v", err)
	}

	return s.buildResponse(ctx, c)
}

// AddToCart adds an item to the owner's cart, creating the cart on first use.
// Adding a product already in the cart sums quantities rather than creating a
// duplicate line.
func (s *Service) AddToCart(ctx context.Context, owner Owner, req *AddToCartRequest) (*CartResponse, error) {
	if !owner.Valid() {
		return nil, apperrors.Validationf("cart owner required")
	}

	// Validate product exists and is active
	var prod product.Product
	err := s.db.WithContext(ctx).Where("id = ? AND is_active = ?", req.ProductID, true).First(&prod).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product %d: %w", req.ProductID, apperrors.ErrNotFound)
		}
		return nil, apperrors.Storagef("failed to load product: %v", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.getOrCreateCart(tx, owner)
		if err != nil {
			return err
		}

		var line CartItem
		err = tx.Where("cart_id = ? AND product_id = ?", c.ID, req.ProductID).First(&line).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			line = CartItem{CartID: c.ID, ProductID: req.ProductID, Quantity: req.Quantity}
			if err := checkStock(&prod, line.Quantity); err != nil {
				return err
			}
			return tx.Create(&line).Error
		case err != nil:
			return err
		default:
			newQuantity := line.Quantity + req.Quantity
			if err := checkStock(&prod, newQuantity); err != nil {
				return err
			}
			return tx.Model(&line).Update("quantity", newQuantity).Error
		}
	})
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, apperrors.Storagef("failed to add to cart: %v", err)
	}

	return s.GetCart(ctx, owner)
}

// UpdateCartItem sets the quantity of a cart line. Quantity zero removes the
// line.
func (s *Service) UpdateCartItem(ctx context.Context, owner Owner, productID uint, req *UpdateCartItemRequest) (*CartResponse, error) {
	if req.Quantity < 0 {
		return nil, apperrors.Validationf("quantity cannot be negative")
	}

	if req.Quantity > 0 {
		var prod product.Product
		if err := s.db.WithContext(ctx).First(&prod, productID).Error; err == nil {
			if err := checkStock(&prod, req.Quantity); err != nil {
				return nil, err
			}
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.findCart(tx, owner)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("cart: %w", apperrors.ErrNotFound)
			}
			return err
		}

		query := tx.Where("cart_id = ? AND product_id = ?", c.ID, productID)
		if req.Quantity == 0 {
			result := query.Delete(&CartItem{})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("cart item: %w", apperrors.ErrNotFound)
			}
			return nil
		}

		result := tx.Model(&CartItem{}).
			Where("cart_id = ? AND product_id = ?", c.ID, productID).
			Update("quantity", req.Quantity)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("cart item: %w", apperrors.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, apperrors.Storagef("failed to update cart item: %v", err)
	}

	return s.GetCart(ctx, owner)
}

// RemoveFromCart removes a product line from the cart
func (s *Service) RemoveFromCart(ctx context.Context, owner Owner, productID uint) (*CartResponse, error) {
	return s.UpdateCartItem(ctx, owner, productID, &UpdateCartItemRequest{Quantity: 0})
}

// ClearCart removes the owner's cart and all of its lines
func (s *Service) ClearCart(ctx context.Context, owner Owner) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.findCart(tx, owner)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		return deleteCart(tx, c.ID)
	})
	if err != nil {
		return apperrors.Storagef("failed to clear cart: %v", err)
	}
	return nil
}

// GetCartItemCount returns the total quantity across all lines
func (s *Service) GetCartItemCount(ctx context.Context, owner Owner) (int, error) {
	cartResponse, err := s.GetCart(ctx, owner)
	if err != nil {
		return 0, err
	}
	return cartResponse.Totals.TotalQuantity, nil
}

// Private helper methods

func (s *Service) findCart(tx *gorm.DB, owner Owner) (*Cart, error) {
	var c Cart
	query := tx.Preload("Items")
	if owner.IsUser() {
		query = query.Where("user_id = ?", owner.UserID())
	} else {
		query = query.Where("session_token = ?", owner.SessionToken())
	}
	if err := query.First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Service) getOrCreateCart(tx *gorm.DB, owner Owner) (*Cart, error) {
	c, err := s.findCart(tx, owner)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	fresh := Cart{}
	owner.apply(&fresh)
	if err := tx.Create(&fresh).Error; err != nil {
		return nil, err
	}
	return &fresh, nil
}

// deleteCart hard-deletes a cart row and its lines.
func deleteCart(tx *gorm.DB, cartID uint) error {
	if err := tx.Where("cart_id = ?", cartID).Delete(&CartItem{}).Error; err != nil {
		return err
	}
	return tx.Delete(&Cart{}, cartID).Error
}

func (s *Service) buildResponse(ctx context.Context, c *Cart) (*CartResponse, error) {
	items := make([]CartItemResponse, 0, len(c.Items))
	var totals CartTotals

	for _, line := range c.Items {
		item := CartItemResponse{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			AddedAt:   line.CreatedAt,
		}

		// Prices come from the catalog at read time
		var prod product.Product
		err := s.db.WithContext(ctx).Preload("Category").Preload("Images").
			First(&prod, line.ProductID).Error
		if err == nil {
			item.Product = &prod
			item.UnitPrice = prod.Price
		}

		totals.ItemCount++
		totals.TotalQuantity += line.Quantity
		totals.SubTotal += item.UnitPrice * int64(line.Quantity)
		items = append(items, item)
	}

	return &CartResponse{
		UserID:       c.UserID,
		SessionToken: tokenOrEmpty(c.SessionToken),
		Items:        items,
		Totals:       totals,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}, nil
}

func checkStock(prod *product.Product, requested int) error {
	if prod.TrackQuantity && prod.Quantity < requested {
		return apperrors.Validationf("insufficient inventory for %q, available: %d", prod.Name, prod.Quantity)
	}
	return nil
}

func isDomainError(err error) bool {
	return errors.Is(err, apperrors.ErrNotFound) ||
		errors.Is(err, apperrors.ErrValidation) ||
		errors.Is(err, apperrors.ErrConflict)
}

func ownerUserID(owner Owner) *uint {
	if !owner.IsUser() {
		return nil
	}
	id := owner.UserID()
	return &id
}

func tokenOrEmpty(token *string) string {
	if token == nil {
		return ""
	}
	return *token
}
