// internal/interfaces/http/handlers/order.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
)

// OrderHandler handles order endpoints
type OrderHandler struct {
	orderService *order.Service
	config       *config.Config
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService *order.Service, cfg *config.Config) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		config:       cfg,
	}
}

// GetMyOrders handles GET /orders
func (h *OrderHandler) GetMyOrders(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	resp, err := h.orderService.GetUserOrders(c.Request.Context(), userID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Orders retrieved successfully", resp)
}

// GetMyOrder handles GET /orders/:id
func (h *OrderHandler) GetMyOrder(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	orderID, err := parseIDParam(c, "id")
	if err != nil {
		return
	}

	o, err := h.orderService.GetOrderForUser(c.Request.Context(), userID, orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Order retrieved successfully", o)
}

// ListOrders handles GET /admin/orders
func (h *OrderHandler) ListOrders(c *gin.Context) {
	var req order.OrderListRequest
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

	resp, err := h.orderService.GetOrders(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Orders retrieved successfully", resp)
}

// GetOrder handles GET /admin/orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID, err := parseIDParam(c, "id")
	if err != nil {
		return
	}

	o, err := h.orderService.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Order retrieved successfully", o)
}

// AdvanceOrder handles POST /admin/orders/:id/advance. The target must be
// the immediate successor on the fulfillment chain.
func (h *OrderHandler) AdvanceOrder(c *gin.Context) {
	orderID, err := parseIDParam(c, "id")
	if err != nil {
		return
	}

	var req struct {
		Status order.Status `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	actorID, _ := middleware.GetUserIDFromContext(c)
	o, err := h.orderService.Advance(c.Request.Context(), orderID, req.Status, actorID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Order advanced successfully", o)
}

// ReportIssue handles POST /admin/orders/:id/report-issue. Paid orders are
// refunded, unpaid ones cancelled.
func (h *OrderHandler) ReportIssue(c *gin.Context) {
	orderID, err := parseIDParam(c, "id")
	if err != nil {
		return
	}

	var req struct {
		ReasonCode string `json:"reason_code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	actorID, _ := middleware.GetUserIDFromContext(c)
	o, err := h.orderService.ReportIssue(c.Request.Context(), orderID, req.ReasonCode, actorID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Order issue resolved", o)
}
