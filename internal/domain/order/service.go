// internal/domain/order/service.go
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// Service owns the order lifecycle. All fulfillment and payment status
// writes go through here; nothing else in the codebase touches those
// columns.
type Service struct {
	db       *gorm.DB
	config   *config.Config
	gateway  PaymentGateway
	notifier Notifier
}

// NewService creates a new order service
func NewService(db *gorm.DB, cfg *config.Config, gateway PaymentGateway, notifier Notifier) *Service {
	return &Service{
		db:       db,
		config:   cfg,
		gateway:  gateway,
		notifier: notifier,
	}
}

// OrderListRequest represents order list query parameters
type OrderListRequest struct {
	Page      int    `form:"page,default=1"`
	Limit     int    `form:"limit,default=20"`
	Status    Status `form:"status"`
	UserID    uint   `form:"user_id"`
	SortBy    string `form:"sort_by,default=created_at"`
	SortOrder string `form:"sort_order,default=desc"`
}

// OrderListResponse represents orders with pagination
type OrderListResponse struct {
	Orders     []Order    `json:"orders"`
	Pagination Pagination `json:"pagination"`
}

// Pagination represents pagination information
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// GetOrder retrieves a single order by ID
func (s *Service) GetOrder(ctx context.Context, id uint) (*Order, error) {
	var o Order
	result := s.db.WithContext(ctx).
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC, id DESC")
		}).
		First(&o, id)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order %d: %w", id, apperrors.ErrNotFound)
		}
		return nil, apperrors.Storagef("failed to retrieve order: %v", result.Error)
	}

	return &o, nil
}

// GetOrderForUser retrieves an order only if it belongs to the user
func (s *Service) GetOrderForUser(ctx context.Context, userID, orderID uint) (*Order, error) {
	o, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, fmt.Errorf("order %d: %w", orderID, apperrors.ErrNotFound)
	}
	return o, nil
}

// GetOrders retrieves orders with filtering and pagination
func (s *Service) GetOrders(ctx context.Context, req *OrderListRequest) (*OrderListResponse, error) {
	var orders []Order
	var total int64

	query := s.db.WithContext(ctx).Model(&Order{}).Preload("Items")

	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.UserID > 0 {
		query = query.Where("user_id = ?", req.UserID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, apperrors.Storagef("failed to count orders: %v", err)
	}

	query = query.Order(buildOrderClause(req.SortBy, req.SortOrder))

	offset := (req.Page - 1) * req.Limit
	if err := query.Offset(offset).Limit(req.Limit).Find(&orders).Error; err != nil {
		return nil, apperrors.Storagef("failed to retrieve orders: %v", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &OrderListResponse{
		Orders: orders,
		Pagination: Pagination{
			Page:       req.Page,
			Limit:      req.Limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    req.Page < totalPages,
			HasPrev:    req.Page > 1,
		},
	}, nil
}

// GetUserOrders retrieves orders for a specific user
func (s *Service) GetUserOrders(ctx context.Context, userID uint, page, limit int) (*OrderListResponse, error) {
	return s.GetOrders(ctx, &OrderListRequest{
		Page:   page,
		Limit:  limit,
		UserID: userID,
	})
}

// Advance moves an order one step along the forward fulfillment chain.
// Anything other than the immediate successor is rejected. Entering
// confirmed notifies the customer.
func (s *Service) Advance(ctx context.Context, orderID uint, next Status, actorID uint) (*Order, error) {
	o, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !o.Status.CanAdvanceTo(next) {
		return nil, fmt.Errorf("%w: %s -> %s", apperrors.ErrInvalidTransition, o.Status, next)
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{"status": next}
	switch next {
	case StatusConfirmed:
		updates["confirmed_at"] = now
	case StatusShipped:
		updates["shipped_at"] = now
	case StatusDelivered:
		updates["delivered_at"] = now
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Guard on the status we read so a concurrent transition loses
		// cleanly instead of overwriting it.
		result := tx.Model(&Order{}).
			Where("id = ? AND status = ?", orderID, o.Status).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("order %d changed concurrently: %w", orderID, apperrors.ErrConflict)
		}

		return tx.Create(&StatusHistory{
			OrderID:   orderID,
			Status:    next,
			Axis:      AxisFulfillment,
			Comment:   fmt.Sprintf("Advanced from %s to %s", o.Status, next),
			CreatedBy: actorID,
			CreatedAt: now,
		}).Error
	})
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, apperrors.Storagef("failed to advance order: %v", err)
	}

	if next == StatusConfirmed {
		s.notify(ctx, o, EventOrderConfirmed, next, "")
	}

	return s.GetOrder(ctx, orderID)
}

// ReportIssue resolves an admin-reported problem with an order. Paid orders
// are refunded through the payment gateway before the status changes; unpaid
// orders are cancelled outright. A failed reversal leaves the order exactly
// as it was, so the operation can be retried.
func (s *Service) ReportIssue(ctx context.Context, orderID uint, reasonCode string, actorID uint) (*Order, error) {
	// Payment status must be fresh, never a cached copy.
	o, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if o.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: order %d is %s", apperrors.ErrAlreadyTerminal, orderID, o.Status)
	}

	var target Status
	var axis StatusAxis
	var event EventKind

	if o.IsPaid() {
		// Reverse the charge first. The status only becomes refunded once
		// the money is actually on its way back.
		if err := s.gateway.ReverseCharge(ctx, orderID); err != nil {
			return nil, fmt.Errorf("%w: order %d: %v", apperrors.ErrRefundFailed, orderID, err)
		}
		target = StatusRefunded
		axis = AxisPayment
		event = EventOrderRefunded
	} else {
		target = StatusCancelled
		axis = AxisFulfillment
		event = EventOrderCancelled
	}

	now := time.Now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&Order{}).
			Where("id = ? AND status = ?", orderID, o.Status).
			Updates(map[string]interface{}{
				"status":    target,
				"closed_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("order %d changed concurrently: %w", orderID, apperrors.ErrConflict)
		}

		if target == StatusCancelled {
			if err := restock(tx, o.Items); err != nil {
				return err
			}
		}

		return tx.Create(&StatusHistory{
			OrderID:   orderID,
			Status:    target,
			Axis:      axis,
			Comment:   fmt.Sprintf("Issue reported: %s", reasonCode),
			CreatedBy: actorID,
			CreatedAt: now,
		}).Error
	})
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, apperrors.Storagef("failed to close order: %v", err)
	}

	s.notify(ctx, o, event, target, reasonCode)

	return s.GetOrder(ctx, orderID)
}

// MarkPaid flips the payment axis to paid once the gateway confirms capture.
func (s *Service) MarkPaid(ctx context.Context, orderID uint, actorID uint) error {
	o, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if o.IsPaid() {
		return nil
	}

	now := time.Now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&Order{}).
			Where("id = ? AND payment_status = ?", orderID, PaymentStatusUnpaid).
			Update("payment_status", PaymentStatusPaid)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// Another caller already marked it paid
			return nil
		}

		return tx.Create(&StatusHistory{
			OrderID:   orderID,
			Status:    o.Status,
			Axis:      AxisPayment,
			Comment:   "Payment captured",
			CreatedBy: actorID,
			CreatedAt: now,
		}).Error
	})
	if err != nil {
		return apperrors.Storagef("failed to mark order paid: %v", err)
	}
	return nil
}

// notify sends one order event to the customer. Delivery problems are logged
// and swallowed: the status change is already committed and stays committed.
func (s *Service) notify(ctx context.Context, o *Order, kind EventKind, status Status, reasonCode string) {
	if s.notifier == nil {
		return
	}

	event := Event{
		Kind:        kind,
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		Status:      status,
		ReasonCode:  reasonCode,
		TotalAmount: o.TotalAmount,
		Currency:    o.Currency,
	}

	if err := s.notifier.SendOrderEvent(ctx, o.Email, event); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"order_id": o.ID,
			"event":    kind,
		}).Warn("failed to send order event notification")
	}
}

// restock returns cancelled quantities to the catalog.
func restock(tx *gorm.DB, items []OrderItem) error {
	for _, item := range items {
		if err := product.AdjustStock(tx, item.ProductID, item.Quantity); err != nil {
			// A product deleted since the order was placed cannot be
			// restocked; that is not a reason to keep the order open.
			if errors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			return err
		}
	}
	return nil
}

func buildOrderClause(sortBy, sortOrder string) string {
	validSortFields := map[string]bool{
		"created_at":   true,
		"updated_at":   true,
		"total_amount": true,
		"status":       true,
		"order_number": true,
	}

	if !validSortFields[sortBy] {
		sortBy = "created_at"
	}

	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}

	return fmt.Sprintf("%s %s", sortBy, sortOrder)
}

func isDomainError(err error) bool {
	return errors.Is(err, apperrors.ErrNotFound) ||
		errors.Is(err, apperrors.ErrConflict) ||
		errors.Is(err, apperrors.ErrInvalidTransition) ||
		errors.Is(err, apperrors.ErrAlreadyTerminal) ||
		errors.Is(err, apperrors.ErrRefundFailed)
}
