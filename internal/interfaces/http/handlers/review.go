// internal/interfaces/http/handlers/review.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
)

// ReviewHandler handles product review endpoints
type ReviewHandler struct {
	reviewService *product.ReviewService
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(reviewService *product.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService}
}

// GetProductReviews handles GET /products/:id/reviews. Public callers only
// see approved reviews.
func (h *ReviewHandler) GetProductReviews(c *gin.Context) {
	productID, err := parseIDParam(c, "id")
	if err != nil {
		return
	}

	var req product.ReviewListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}
	req.ApprovedOnly = !middleware.IsAdminFromContext(c)

	resp, err := h.reviewService.GetProductReviews(c.Request.Context(), productID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Reviews retrieved successfully", resp)
}

// CreateReview handles POST /reviews. Only customers whose order containing
// the product has been delivered may review it.
func (h *ReviewHandler) CreateReview(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req product.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	review, err := h.reviewService.CreateReview(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondCreated(c, "Review submitted for approval", review)
}

// CanReview handles GET /orders/:id/can-review
func (h *ReviewHandler) CanReview(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	orderID, err := parseIDParam(c, "id")
	if err != nil {
		return
	}

	eligible, err := h.reviewService.CanReview(c.Request.Context(), userID, orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Review eligibility checked", gin.H{"can_review": eligible})
}

// ApproveReview handles POST /admin/reviews/:id/approve
func (h *ReviewHandler) ApproveReview(c *gin.Context) {
	reviewID, err := parseIDParam(c, "id")
	if err != nil {
		return
	}

	if err := h.reviewService.ApproveReview(c.Request.Context(), reviewID); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Review approved", nil)
}

// RejectReview handles POST /admin/reviews/:id/reject
func (h *ReviewHandler) RejectReview(c *gin.Context) {
	reviewID, err := parseIDParam(c, "id")
	if err != nil {
		return
	}

	if err := h.reviewService.RejectReview(c.Request.Context(), reviewID); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Review rejected", nil)
}
