// internal/interfaces/http/handlers/auth.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/user"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	userService *user.Service
	cartService *cart.Service
	config      *config.Config
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(userService *user.Service, cartService *cart.Service, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		cartService: cartService,
		config:      cfg,
	}
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req user.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.userService.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	h.reconcileGuestCart(c, resp.User.ID)

	respondCreated(c, "Registration successful", resp)
}

// Login handles POST /auth/login. A guest session token in the
// X-Session-Token header has its cart folded into the user's cart.
func (h *AuthHandler) Login(c *gin.Context) {
	var req user.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.userService.Login(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	h.reconcileGuestCart(c, resp.User.ID)

	respondOK(c, "Login successful", resp)
}

// RefreshToken handles POST /auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.userService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Token refreshed", resp)
}

// reconcileGuestCart folds the guest cart into the user's cart after a
// successful authentication. Login never fails because of the cart; problems
// are logged and the guest cart stays reconcilable on the next login.
func (h *AuthHandler) reconcileGuestCart(c *gin.Context, userID uint) {
	sessionToken := c.GetHeader("X-Session-Token")
	if sessionToken == "" {
		return
	}

	if _, err := h.cartService.Reconcile(c.Request.Context(), sessionToken, userID); err != nil {
		logrus.WithError(err).WithField("user_id", userID).Warn("guest cart reconciliation failed")
	}
}
