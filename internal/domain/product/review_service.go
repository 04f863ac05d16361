// internal/domain/product/review_service.go
package product

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/your-org/storefront-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// ReviewService handles review business logic. Orders are queried through
// raw SQL to keep this package from depending on the order package.
type ReviewService struct {
	db *gorm.DB
}

// NewReviewService creates a new review service
func NewReviewService(db *gorm.DB) *ReviewService {
	return &ReviewService{db: db}
}

// CreateReviewRequest represents review creation data
type CreateReviewRequest struct {
	ProductID uint   `json:"product_id" binding:"required"`
	OrderID   uint   `json:"order_id" binding:"required"`
	Rating    int    `json:"rating" binding:"required,min=1,max=5"`
	Title     string `json:"title" binding:"max=255"`
	Content   string `json:"content"`
}

// ReviewListRequest represents review list query parameters
type ReviewListRequest struct {
	Page         int  `form:"page,default=1"`
	Limit        int  `form:"limit,default=20"`
	ApprovedOnly bool `form:"-"`
}

// ReviewListResponse represents reviews with pagination
type ReviewListResponse struct {
	Reviews    []ProductReview `json:"reviews"`
	Pagination Pagination      `json:"pagination"`
}

// CanReview reports whether the user may review products from the given
// order: the order must belong to the user and be delivered. It has no side
// effects.
func (s *ReviewService) CanReview(ctx context.Context, userID, orderID uint) (bool, error) {
	var eligible bool
	err := s.db.WithContext(ctx).Raw(`
		SELECT EXISTS(
			SELECT 1 FROM orders
			WHERE id = ? AND user_id = ? AND status = 'delivered'
		)
	`, orderID, userID).Scan(&eligible).Error
	if err != nil {
		return false, apperrors.Storagef("failed to check review eligibility: %v", err)
	}
	return eligible, nil
}

// CreateReview creates a review for a delivered order. The review starts out
// unapproved and stays invisible to shoppers until an administrator approves
// it.
func (s *ReviewService) CreateReview(ctx context.Context, userID uint, req *CreateReviewRequest) (*ProductReview, error) {
	eligible, err := s.CanReview(ctx, userID, req.OrderID)
	if err != nil {
		return nil, err
	}
	if !eligible {
		return nil, fmt.Errorf("order %d is not reviewable by user %d: %w", req.OrderID, userID, apperrors.ErrNotEligible)
	}

	// The reviewed product must actually appear in the order
	var purchased bool
	err = s.db.WithContext(ctx).Raw(`
		SELECT EXISTS(
			SELECT 1 FROM order_items
			WHERE order_id = ? AND product_id = ?
		)
	`, req.OrderID, req.ProductID).Scan(&purchased).Error
	if err != nil {
		return nil, apperrors.Storagef("failed to check purchased products: %v", err)
	}
	if !purchased {
		return nil, fmt.Errorf("product %d was not part of order %d: %w", req.ProductID, req.OrderID, apperrors.ErrNotEligible)
	}

	var existing ProductReview
	err = s.db.WithContext(ctx).
		Where("user_id = ? AND order_id = ? AND product_id = ?", userID, req.OrderID, req.ProductID).
		First(&existing).Error
	if err == nil {
		return nil, fmt.Errorf("product already reviewed for this order: %w", apperrors.ErrConflict)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Storagef("failed to check existing review: %v", err)
	}

	review := ProductReview{
		ProductID:  req.ProductID,
		UserID:     userID,
		OrderID:    req.OrderID,
		Rating:     req.Rating,
		Title:      strings.TrimSpace(req.Title),
		Content:    strings.TrimSpace(req.Content),
		IsApproved: false, // Requires admin approval
	}

	if err := s.db.WithContext(ctx).Create(&review).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("product already reviewed for this order: %w", apperrors.ErrConflict)
		}
		return nil, apperrors.Storagef("failed to create review: %v", err)
	}

	return &review, nil
}

// GetProductReviews lists reviews for a product. Shopper-facing callers set
// ApprovedOnly; admin listings see everything.
func (s *ReviewService) GetProductReviews(ctx context.Context, productID uint, req *ReviewListRequest) (*ReviewListResponse, error) {
	var reviews []ProductReview
	var total int64

	query := s.db.WithContext(ctx).Model(&ProductReview{}).Where("product_id = ?", productID)
	if req.ApprovedOnly {
		query = query.Where("is_approved = ?", true)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, apperrors.Storagef("failed to count reviews: %v", err)
	}

	offset := (req.Page - 1) * req.Limit
	if err := query.Order("created_at DESC").Offset(offset).Limit(req.Limit).Find(&reviews).Error; err != nil {
		return nil, apperrors.Storagef("failed to retrieve reviews: %v", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &ReviewListResponse{
		Reviews: reviews,
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

// ApproveReview makes a review publicly visible. Admin only; there is no
// automatic approval path.
func (s *ReviewService) ApproveReview(ctx context.Context, reviewID uint) error {
	now := time.Now().UTC()
	result := s.db.WithContext(ctx).Model(&ProductReview{}).
		Where("id = ?", reviewID).
		Updates(map[string]interface{}{
			"is_approved": true,
			"approved_at": now,
		})
	if result.Error != nil {
		return apperrors.Storagef("failed to approve review: %v", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("review %d: %w", reviewID, apperrors.ErrNotFound)
	}
	return nil
}

// RejectReview deletes a review that should not be published
func (s *ReviewService) RejectReview(ctx context.Context, reviewID uint) error {
	result := s.db.WithContext(ctx).Delete(&ProductReview{}, reviewID)
	if result.Error != nil {
		return apperrors.Storagef("failed to reject review: %v", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("review %d: %w", reviewID, apperrors.ErrNotFound)
	}
	return nil
}
