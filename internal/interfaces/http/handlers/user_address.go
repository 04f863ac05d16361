// internal/interfaces/http/handlers/user_address.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
)

// UserAddressHandler handles address-book endpoints
type UserAddressHandler struct {
	addressService *user.AddressService
}

// NewUserAddressHandler creates a new address handler
func NewUserAddressHandler(addressService *user.AddressService) *UserAddressHandler {
	return &UserAddressHandler{addressService: addressService}
}

func requireUser(c *gin.Context) (uint, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
	}
	return userID, ok
}

// ListAddresses handles GET /addresses
func (h *UserAddressHandler) ListAddresses(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	addresses, err := h.addressService.GetAddresses(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Addresses retrieved successfully", addresses)
}

// GetAddress handles GET /addresses/:id
func (h *UserAddressHandler) GetAddress(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	addressID, err := parseIDParam(c, "id")
	if err != nil {
		return
	}

	address, err := h.addressService.GetAddress(c.Request.Context(), userID, addressID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Address retrieved successfully", address)
}

// CreateAddress handles POST /addresses
func (h *UserAddressHandler) CreateAddress(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req user.AddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	address, err := h.addressService.CreateAddress(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondCreated(c, "Address created successfully", address)
}

// UpdateAddress handles PUT /addresses/:id
func (h *UserAddressHandler) UpdateAddress(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	addressID, err := parseIDParam(c, "id")
	if err != nil {
		return
	}

	var req user.AddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	address, err := h.addressService.UpdateAddress(c.Request.Context(), userID, addressID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Address updated successfully", address)
}

// DeleteAddress handles DELETE /addresses/:id
func (h *UserAddressHandler) DeleteAddress(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	addressID, err := parseIDParam(c, "id")
	if err != nil {
		return
	}

	if err := h.addressService.DeleteAddress(c.Request.Context(), userID, addressID); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Address deleted successfully", nil)
}

// SetDefaultAddress handles PUT /addresses/:id/default
func (h *UserAddressHandler) SetDefaultAddress(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	addressID, err := parseIDParam(c, "id")
	if err != nil {
		return
	}

	if err := h.addressService.SetDefaultAddress(c.Request.Context(), userID, addressID); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Default address updated successfully", nil)
}
