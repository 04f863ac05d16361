// internal/domain/product/service.go
package product

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// Service handles catalog business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new product service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// ProductListRequest represents product list query parameters
type ProductListRequest struct {
	Page       int    `form:"page,default=1"`
	Limit      int    `form:"limit,default=20"`
	CategoryID uint   `form:"category_id"`
	Search     string `form:"search"`
	SortBy     string `form:"sort_by,default=created_at"`
	SortOrder  string `form:"sort_order,default=desc"`
	MinPrice   int64  `form:"min_price"`
	MaxPrice   int64  `form:"max_price"`
	IsActive   *bool  `form:"is_active"`
	IsFeatured *bool  `form:"is_featured"`
}

// ProductCreateRequest represents product creation data
type ProductCreateRequest struct {
	SKU               string `json:"sku" binding:"required"`
	Name              string `json:"name" binding:"required"`
	Slug              string `json:"slug"` // Derived from name when empty
	Description       string `json:"description"`
	ShortDesc         string `json:"short_description"`
	Price             int64  `json:"price" binding:"required,min=1"`
	CostPrice         int64  `json:"cost_price"`
	CategoryID        uint   `json:"category_id" binding:"required"`
	IsActive          bool   `json:"is_active"`
	IsFeatured        bool   `json:"is_featured"`
	TrackQuantity     bool   `json:"track_quantity"`
	Quantity          int    `json:"quantity"`
	LowStockThreshold int    `json:"low_stock_threshold"`
	Tags              string `json:"tags"`
}

// ProductUpdateRequest represents product update data
type ProductUpdateRequest struct {
	Name              *string `json:"name"`
	Slug              *string `json:"slug"`
	Description       *string `json:"description"`
	ShortDesc         *string `json:"short_description"`
	Price             *int64  `json:"price"`
	CostPrice         *int64  `json:"cost_price"`
	CategoryID        *uint   `json:"category_id"`
	IsActive          *bool   `json:"is_active"`
	IsFeatured        *bool   `json:"is_featured"`
	TrackQuantity     *bool   `json:"track_quantity"`
	Quantity          *int    `json:"quantity"`
	LowStockThreshold *int    `json:"low_stock_threshold"`
	Tags              *string `json:"tags"`
}

// AddImageRequest represents an image attachment request
type AddImageRequest struct {
	URL       string `json:"url" binding:"required"`
	AltText   string `json:"alt_text"`
	SortOrder int    `json:"sort_order"`
	IsPrimary bool   `json:"is_primary"`
}

// ProductResponse represents product response with pagination
type ProductResponse struct {
	Products   []Product  `json:"products"`
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

// GetProducts retrieves products with filtering and pagination
func (s *Service) GetProducts(ctx context.Context, req *ProductListRequest) (*ProductResponse, error) {
	var products []Product
	var total int64

	query := s.db.WithContext(ctx).Model(&Product{}).
		Preload("Category").
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("is_primary DESC, sort_order ASC, id ASC")
		})

	if req.CategoryID > 0 {
		query = query.Where("category_id = ?", req.CategoryID)
	}

	if req.Search != "" {
		search := "%" + strings.ToLower(req.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(tags) LIKE ?", search, search, search)
	}

	if req.MinPrice > 0 {
		query = query.Where("price >= ?", req.MinPrice)
	}

	if req.MaxPrice > 0 {
		query = query.Where("price <= ?", req.MaxPrice)
	}

	if req.IsActive != nil {
		query = query.Where("is_active = ?", *req.IsActive)
	}

	if req.IsFeatured != nil {
		query = query.Where("is_featured = ?", *req.IsFeatured)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, apperrors.Storagef("failed to count products: %v", err)
	}

	query = query.Order(buildOrderClause(req.SortBy, req.SortOrder))

	offset := (req.Page - 1) * req.Limit
	if err := query.Offset(offset).Limit(req.Limit).Find(&products).Error; err != nil {
		return nil, apperrors.Storagef("failed to retrieve products: %v", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	pagination := Pagination{
		Page:       req.Page,
		Limit:      req.Limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    req.Page < totalPages,
		HasPrev:    req.Page > 1,
	}

	return &ProductResponse{
		Products:   products,
		Pagination: pagination,
	}, nil
}

// GetProduct retrieves a single product by ID
func (s *Service) GetProduct(ctx context.Context, id uint) (*Product, error) {
	var prod Product
	result := s.db.WithContext(ctx).
		Preload("Category").
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("is_primary DESC, sort_order ASC, id ASC")
		}).
		First(&prod, id)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product %d: %w", id, apperrors.ErrNotFound)
		}
		return nil, apperrors.Storagef("failed to retrieve product: %v", result.Error)
	}

	return &prod, nil
}

// GetProductBySlug retrieves a single active product by slug
func (s *Service) GetProductBySlug(ctx context.Context, slug string) (*Product, error) {
	var prod Product
	result := s.db.WithContext(ctx).
		Preload("Category").
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("is_primary DESC, sort_order ASC, id ASC")
		}).
		Where("slug = ? AND is_active = ?", slug, true).
		First(&prod)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product %q: %w", slug, apperrors.ErrNotFound)
		}
		return nil, apperrors.Storagef("failed to retrieve product: %v", result.Error)
	}

	return &prod, nil
}

// CreateProduct creates a new product. The slug defaults to a slugified name
// but may be supplied explicitly; uniqueness is enforced by the database, not
// just here.
func (s *Service) CreateProduct(ctx context.Context, req *ProductCreateRequest) (*Product, error) {
	slug := strings.TrimSpace(req.Slug)
	if slug == "" {
		slug = Slugify(req.Name)
	}

	prod := Product{
		SKU:               req.SKU,
		Name:              req.Name,
		Slug:              slug,
		Description:       req.Description,
		ShortDesc:         req.ShortDesc,
		Price:             req.Price,
		CostPrice:         req.CostPrice,
		CategoryID:        req.CategoryID,
		IsActive:          req.IsActive,
		IsFeatured:        req.IsFeatured,
		TrackQuantity:     req.TrackQuantity,
		Quantity:          req.Quantity,
		LowStockThreshold: req.LowStockThreshold,
		Tags:              req.Tags,
	}

	if err := s.db.WithContext(ctx).Create(&prod).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("slug or SKU already in use: %w", apperrors.ErrConflict)
		}
		return nil, apperrors.Storagef("failed to create product: %v", err)
	}

	return s.GetProduct(ctx, prod.ID)
}

// UpdateProduct updates an existing product. Renaming a product does not
// touch its slug; the slug only changes when provided explicitly.
func (s *Service) UpdateProduct(ctx context.Context, id uint, req *ProductUpdateRequest) (*Product, error) {
	prod, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Slug != nil {
		updates["slug"] = Slugify(*req.Slug)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.ShortDesc != nil {
		updates["short_desc"] = *req.ShortDesc
	}
	if req.Price != nil {
		if *req.Price <= 0 {
			return nil, apperrors.Validationf("price must be positive")
		}
		updates["price"] = *req.Price
	}
	if req.CostPrice != nil {
		updates["cost_price"] = *req.CostPrice
	}
	if req.CategoryID != nil {
		updates["category_id"] = *req.CategoryID
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.IsFeatured != nil {
		updates["is_featured"] = *req.IsFeatured
	}
	if req.TrackQuantity != nil {
		updates["track_quantity"] = *req.TrackQuantity
	}
	if req.Quantity != nil {
		updates["quantity"] = *req.Quantity
	}
	if req.LowStockThreshold != nil {
		updates["low_stock_threshold"] = *req.LowStockThreshold
	}
	if req.Tags != nil {
		updates["tags"] = *req.Tags
	}

	if len(updates) == 0 {
		return prod, nil
	}

	if err := s.db.WithContext(ctx).Model(prod).Updates(updates).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("slug already in use: %w", apperrors.ErrConflict)
		}
		return nil, apperrors.Storagef("failed to update product: %v", err)
	}

	return s.GetProduct(ctx, id)
}

// DeleteProduct soft-deletes a product
func (s *Service) DeleteProduct(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&Product{}, id)
	if result.Error != nil {
		return apperrors.Storagef("failed to delete product: %v", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("product %d: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

// AddImage attaches an image to a product. The first image always becomes
// primary; a later image flagged primary demotes the previous one so exactly
// one primary image remains.
func (s *Service) AddImage(ctx context.Context, productID uint, req *AddImageRequest) (*ProductImage, error) {
	if _, err := s.GetProduct(ctx, productID); err != nil {
		return nil, err
	}

	image := ProductImage{
		ProductID: productID,
		URL:       req.URL,
		AltText:   req.AltText,
		SortOrder: req.SortOrder,
		IsPrimary: req.IsPrimary,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&ProductImage{}).Where("product_id = ?", productID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			image.IsPrimary = true
		} else if image.IsPrimary {
			if err := tx.Model(&ProductImage{}).
				Where("product_id = ? AND is_primary = ?", productID, true).
				Update("is_primary", false).Error; err != nil {
				return err
			}
		}
		return tx.Create(&image).Error
	})
	if err != nil {
		return nil, apperrors.Storagef("failed to add product image: %v", err)
	}

	return &image, nil
}

// SetPrimaryImage promotes an image to primary, demoting the current one
func (s *Service) SetPrimaryImage(ctx context.Context, productID, imageID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var image ProductImage
		if err := tx.Where("id = ? AND product_id = ?", imageID, productID).First(&image).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("product image %d: %w", imageID, apperrors.ErrNotFound)
			}
			return err
		}

		if err := tx.Model(&ProductImage{}).
			Where("product_id = ? AND is_primary = ?", productID, true).
			Update("is_primary", false).Error; err != nil {
			return err
		}
		return tx.Model(&image).Update("is_primary", true).Error
	})
	if err != nil {
		if isDomainError(err) {
			return err
		}
		return apperrors.Storagef("failed to set primary image: %v", err)
	}
	return nil
}

// AdjustStock changes a product's on-hand quantity by delta (negative to
// consume). Used by checkout reservations and order cancellations.
func AdjustStock(tx *gorm.DB, productID uint, delta int) error {
	result := tx.Model(&Product{}).
		Where("id = ?", productID).
		UpdateColumn("quantity", gorm.Expr("quantity + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("product %d: %w", productID, apperrors.ErrNotFound)
	}
	return nil
}

var slugInvalidChars = regexp.MustCompile(`[^a-z0-9-]+`)
var slugDashRuns = regexp.MustCompile(`-{2,}`)

// Slugify derives a URL-friendly slug from a name.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = strings.ReplaceAll(slug, "_", "-")
	slug = slugInvalidChars.ReplaceAllString(slug, "")
	slug = slugDashRuns.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

func buildOrderClause(sortBy, sortOrder string) string {
	validSortFields := map[string]bool{
		"created_at": true,
		"updated_at": true,
		"price":      true,
		"name":       true,
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
		errors.Is(err, apperrors.ErrValidation) ||
		errors.Is(err, apperrors.ErrConflict) ||
		errors.Is(err, apperrors.ErrNotEligible)
}
