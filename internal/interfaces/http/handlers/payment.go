// internal/interfaces/http/handlers/payment.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/payment"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
)

// PaymentHandler handles payment endpoints
type PaymentHandler struct {
	paymentService *payment.RazorpayService
	orderService   *order.Service
	config         *config.Config
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(paymentService *payment.RazorpayService, orderService *order.Service, cfg *config.Config) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		orderService:   orderService,
		config:         cfg,
	}
}

// InitiatePayment handles POST /payments/initiate
func (h *PaymentHandler) InitiatePayment(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req struct {
		OrderID uint `json:"order_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.paymentService.InitiatePayment(c.Request.Context(), userID, req.OrderID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Payment initiated", resp)
}

// VerifyPayment handles POST /payments/verify. A valid gateway signature
// marks the order paid.
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req payment.VerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.paymentService.VerifyPayment(c.Request.Context(), &req); err != nil {
		respondError(c, err)
		return
	}

	if err := h.orderService.MarkPaid(c.Request.Context(), req.OrderID, userID); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Payment verified", nil)
}

// PaymentFailed handles POST /payments/failed
func (h *PaymentHandler) PaymentFailed(c *gin.Context) {
	var req struct {
		OrderID uint   `json:"order_id" binding:"required"`
		Reason  string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.paymentService.HandlePaymentFailure(c.Request.Context(), req.OrderID, req.Reason); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Payment failure recorded", nil)
}

// GetTransactions handles GET /admin/orders/:id/transactions
func (h *PaymentHandler) GetTransactions(c *gin.Context) {
	orderID, err := parseIDParam(c, "id")
	if err != nil {
		return
	}

	txns, err := h.paymentService.GetTransactions(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Transactions retrieved successfully", txns)
}
