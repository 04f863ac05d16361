// internal/domain/checkout/service.go
package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"github.com/your-org/storefront-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// Service turns a user's cart into an order. Prices are read fresh from the
// catalog here, never from the cart, and the shipping address is copied into
// the order so later address-book edits leave past orders alone.
type Service struct {
	db          *gorm.DB
	config      *config.Config
	cartService *cart.Service
}

// NewService creates a new checkout service
func NewService(db *gorm.DB, cfg *config.Config, cartService *cart.Service) *Service {
	return &Service{
		db:          db,
		config:      cfg,
		cartService: cartService,
	}
}

// CheckoutRequest represents checkout data
type CheckoutRequest struct {
	AddressID      uint   `json:"address_id" binding:"required"`
	ShippingMethod string `json:"shipping_method" binding:"required"`
	Notes          string `json:"notes,omitempty"`
}

// Checkout creates an order from the user's cart in a single transaction:
// validate items, snapshot prices and address, reserve stock, clear the
// cart. The new order starts pending and unpaid.
func (s *Service) Checkout(ctx context.Context, userID uint, req *CheckoutRequest) (*order.Order, error) {
	var created order.Order

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c cart.Cart
		err := tx.Preload("Items").Where("user_id = ?", userID).First(&c).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.Validationf("cart is empty")
			}
			return err
		}
		if len(c.Items) == 0 {
			return apperrors.Validationf("cart is empty")
		}

		var u user.User
		if err := tx.First(&u, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("user %d: %w", userID, apperrors.ErrNotFound)
			}
			return err
		}

		var addr user.Address
		err = tx.Where("id = ? AND user_id = ?", req.AddressID, userID).First(&addr).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("address %d: %w", req.AddressID, apperrors.ErrNotFound)
			}
			return err
		}

		items, subtotal, err := buildOrderItems(tx, c.Items)
		if err != nil {
			return err
		}

		shippingCost := shippingCost(req.ShippingMethod)
		created = order.Order{
			UserID:          userID,
			Email:           u.Email,
			Status:          order.StatusPending,
			PaymentStatus:   order.PaymentStatusUnpaid,
			SubtotalAmount:  subtotal,
			ShippingAmount:  shippingCost,
			TotalAmount:     subtotal + shippingCost,
			Currency:        "USD",
			ShippingAddress: snapshotAddress(&addr),
			ShippingMethod:  req.ShippingMethod,
			Notes:           req.Notes,
		}

		if err := tx.Create(&created).Error; err != nil {
			return err
		}

		created.OrderNumber = order.GenerateOrderNumber(created.ID)
		if err := tx.Model(&created).Update("order_number", created.OrderNumber).Error; err != nil {
			return err
		}

		for i := range items {
			items[i].OrderID = created.ID
			if err := tx.Create(&items[i]).Error; err != nil {
				return err
			}
		}

		if err := reserveStock(tx, items); err != nil {
			return err
		}

		if err := tx.Create(&order.StatusHistory{
			OrderID:   created.ID,
			Status:    order.StatusPending,
			Axis:      order.AxisFulfillment,
			Comment:   "Order created",
			CreatedBy: userID,
		}).Error; err != nil {
			return err
		}

		// The cart is spent once the order exists
		if err := tx.Where("cart_id = ?", c.ID).Delete(&cart.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&cart.Cart{}, c.ID).Error
	})
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, apperrors.Storagef("checkout failed: %v", err)
	}

	var full order.Order
	if err := s.db.WithContext(ctx).Preload("Items").Preload("StatusHistory").First(&full, created.ID).Error; err != nil {
		return nil, apperrors.Storagef("failed to load created order: %v", err)
	}
	return &full, nil
}

// buildOrderItems snapshots name, SKU and the current selling price for each
// cart line and totals them up.
func buildOrderItems(tx *gorm.DB, lines []cart.CartItem) ([]order.OrderItem, int64, error) {
	items := make([]order.OrderItem, 0, len(lines))
	var subtotal int64

	for _, line := range lines {
		var prod product.Product
		if err := tx.First(&prod, line.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, 0, apperrors.Validationf("product %d is no longer available", line.ProductID)
			}
			return nil, 0, err
		}

		if !prod.IsActive {
			return nil, 0, apperrors.Validationf("product %q is no longer available", prod.Name)
		}
		if prod.TrackQuantity && prod.Quantity < line.Quantity {
			return nil, 0, apperrors.Validationf("insufficient inventory for %q, available: %d, requested: %d",
				prod.Name, prod.Quantity, line.Quantity)
		}

		total := prod.Price * int64(line.Quantity)
		items = append(items, order.OrderItem{
			ProductID:  prod.ID,
			SKU:        prod.SKU,
			Name:       prod.Name,
			Quantity:   line.Quantity,
			UnitPrice:  prod.Price, // Selling price right now, not at add-to-cart time
			TotalPrice: total,
		})
		subtotal += total
	}

	return items, subtotal, nil
}

func reserveStock(tx *gorm.DB, items []order.OrderItem) error {
	for _, item := range items {
		var prod product.Product
		if err := tx.First(&prod, item.ProductID).Error; err != nil {
			return err
		}
		if !prod.TrackQuantity {
			continue
		}
		if err := product.AdjustStock(tx, item.ProductID, -item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func snapshotAddress(addr *user.Address) order.Address {
	return order.Address{
		FirstName:    addr.FirstName,
		LastName:     addr.LastName,
		AddressLine1: addr.AddressLine1,
		AddressLine2: addr.AddressLine2,
		City:         addr.City,
		State:        addr.State,
		PostalCode:   addr.PostalCode,
		Country:      addr.Country,
		Phone:        addr.Phone,
	}
}

func shippingCost(method string) int64 {
	switch method {
	case "standard":
		return 999
	case "express":
		return 1999
	case "overnight":
		return 2999
	default:
		return 999
	}
}

func isDomainError(err error) bool {
	return errors.Is(err, apperrors.ErrNotFound) ||
		errors.Is(err, apperrors.ErrValidation) ||
		errors.Is(err, apperrors.ErrConflict)
}
