// internal/interfaces/http/handlers/product.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/product"
)

// ProductHandler handles product catalog endpoints
type ProductHandler struct {
	productService *product.Service
	config         *config.Config
}

// NewProductHandler creates a new product handler
func NewProductHandler(productService *product.Service, cfg *config.Config) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		config:         cfg,
	}
}

// ListProducts handles GET /products
func (h *ProductHandler) ListProducts(c *gin.Context) {
	var req product.ProductListRequest
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

	resp, err := h.productService.GetProducts(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Products retrieved successfully", resp)
}

// GetProduct handles GET /products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	productID, err := parseIDParam(c, "id")
	if err != nil {
		return
	}

	p, err := h.productService.GetProduct(c.Request.Context(), productID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Product retrieved successfully", p)
}

// GetProductBySlug handles GET /products/slug/:slug
func (h *ProductHandler) GetProductBySlug(c *gin.Context) {
	slug := c.Param("slug")

	p, err := h.productService.GetProductBySlug(c.Request.Context(), slug)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Product retrieved successfully", p)
}

// CreateProduct handles POST /admin/products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req product.ProductCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	p, err := h.productService.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondCreated(c, "Product created successfully", p)
}

// UpdateProduct handles PUT /admin/products/:id
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	productID, err := parseIDParam(c, "id")
	if err != nil {
		return
	}

	var req product.ProductUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	p, err := h.productService.UpdateProduct(c.Request.Context(), productID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Product updated successfully", p)
}

// DeleteProduct handles DELETE /admin/products/:id
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	productID, err := parseIDParam(c, "id")
	if err != nil {
		return
	}

	if err := h.productService.DeleteProduct(c.Request.Context(), productID); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Product deleted successfully", nil)
}

// AddProductImage handles POST /admin/products/:id/images
func (h *ProductHandler) AddProductImage(c *gin.Context) {
	productID, err := parseIDParam(c, "id")
	if err != nil {
		return
	}

	var req product.AddImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	img, err := h.productService.AddImage(c.Request.Context(), productID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondCreated(c, "Product image added successfully", img)
}

// SetPrimaryImage handles PUT /admin/products/:id/images/:imageId/primary
func (h *ProductHandler) SetPrimaryImage(c *gin.Context) {
	productID, err := parseIDParam(c, "id")
	if err != nil {
		return
	}
	imageID, err := parseIDParam(c, "imageId")
	if err != nil {
		return
	}

	if err := h.productService.SetPrimaryImage(c.Request.Context(), productID, imageID); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Primary image updated successfully", nil)
}
