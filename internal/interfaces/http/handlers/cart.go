// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
)

// CartHandler handles cart endpoints. Authenticated requests address the
// user's cart; anonymous ones address a guest cart keyed by a session token
// the client carries in the X-Session-Token header.
type CartHandler struct {
	cartService *cart.Service
	config      *config.Config
}

// NewCartHandler creates a new cart handler
func NewCartHandler(cartService *cart.Service, cfg *config.Config) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		config:      cfg,
	}
}

// GetCart handles GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	owner := h.cartOwner(c)

	cartResponse, err := h.cartService.GetCart(c.Request.Context(), owner)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Cart retrieved successfully", cartResponse)
}

// AddToCart handles POST /cart/items
func (h *CartHandler) AddToCart(c *gin.Context) {
	owner := h.cartOwner(c)

	var req cart.AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	cartResponse, err := h.cartService.AddToCart(c.Request.Context(), owner, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Item added to cart successfully", cartResponse)
}

// UpdateCartItem handles PUT /cart/items/:id
func (h *CartHandler) UpdateCartItem(c *gin.Context) {
	owner := h.cartOwner(c)

	productID, err := parseIDParam(c, "id")
	if err != nil {
		return
	}

	var req cart.UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	cartResponse, err := h.cartService.UpdateCartItem(c.Request.Context(), owner, productID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Cart item updated successfully", cartResponse)
}

// RemoveFromCart handles DELETE /cart/items/:id
func (h *CartHandler) RemoveFromCart(c *gin.Context) {
	owner := h.cartOwner(c)

	productID, err := parseIDParam(c, "id")
	if err != nil {
		return
	}

	cartResponse, err := h.cartService.RemoveFromCart(c.Request.Context(), owner, productID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Item removed from cart successfully", cartResponse)
}

// ClearCart handles DELETE /cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	owner := h.cartOwner(c)

	if err := h.cartService.ClearCart(c.Request.Context(), owner); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Cart cleared successfully", nil)
}

// GetCartCount handles GET /cart/count
func (h *CartHandler) GetCartCount(c *gin.Context) {
	owner := h.cartOwner(c)

	count, err := h.cartService.GetCartItemCount(c.Request.Context(), owner)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Cart count retrieved successfully", gin.H{"count": count})
}

// cartOwner resolves who the cart belongs to. A logged-in user always gets
// their user cart; anonymous requests get the session token from the header
// or a freshly minted one, echoed back so the client can keep it.
func (h *CartHandler) cartOwner(c *gin.Context) cart.Owner {
	if userID, ok := middleware.GetUserIDFromContext(c); ok {
		return cart.UserOwner(userID)
	}

	sessionToken := c.GetHeader("X-Session-Token")
	if sessionToken == "" {
		sessionToken = uuid.New().String()
	}
	c.Header("X-Session-Token", sessionToken)

	return cart.SessionOwner(sessionToken)
}

// parseIDParam parses a positive integer path parameter, replying 400 itself
// when the value is malformed.
func parseIDParam(c *gin.Context, name string) (uint, error) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name + " parameter"})
		if err == nil {
			err = strconv.ErrRange
		}
		return 0, err
	}
	return uint(id), nil
}
