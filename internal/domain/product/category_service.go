// internal/domain/product/category_service.go
package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/your-org/storefront-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// CategoryService handles category management
type CategoryService struct {
	db *gorm.DB
}

// NewCategoryService creates a new category service
func NewCategoryService(db *gorm.DB) *CategoryService {
	return &CategoryService{db: db}
}

// CategoryCreateRequest represents category creation data
type CategoryCreateRequest struct {
	Name        string `json:"name" binding:"required"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	ParentID    *uint  `json:"parent_id"`
	SortOrder   int    `json:"sort_order"`
	IsActive    bool   `json:"is_active"`
}

// GetCategories lists active categories ordered for display
func (s *CategoryService) GetCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order ASC, name ASC").
		Find(&categories).Error
	if err != nil {
		return nil, apperrors.Storagef("failed to retrieve categories: %v", err)
	}
	return categories, nil
}

// GetCategory retrieves a category with its children
func (s *CategoryService) GetCategory(ctx context.Context, id uint) (*Category, error) {
	var category Category
	err := s.db.WithContext(ctx).Preload("Children").First(&category, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("category %d: %w", id, apperrors.ErrNotFound)
		}
		return nil, apperrors.Storagef("failed to retrieve category: %v", err)
	}
	return &category, nil
}

// CreateCategory creates a category
func (s *CategoryService) CreateCategory(ctx context.Context, req *CategoryCreateRequest) (*Category, error) {
	slug := strings.TrimSpace(req.Slug)
	if slug == "" {
		slug = Slugify(req.Name)
	}

	category := Category{
		Name:        req.Name,
		Slug:        slug,
		Description: req.Description,
		ParentID:    req.ParentID,
		SortOrder:   req.SortOrder,
		IsActive:    req.IsActive,
	}

	if err := s.db.WithContext(ctx).Create(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("category slug already in use: %w", apperrors.ErrConflict)
		}
		return nil, apperrors.Storagef("failed to create category: %v", err)
	}

	return &category, nil
}

// DeleteCategory soft-deletes a category without products
func (s *CategoryService) DeleteCategory(ctx context.Context, id uint) error {
	var productCount int64
	if err := s.db.WithContext(ctx).Model(&Product{}).Where("category_id = ?", id).Count(&productCount).Error; err != nil {
		return apperrors.Storagef("failed to count category products: %v", err)
	}
	if productCount > 0 {
		return apperrors.Validationf("category still has %d products", productCount)
	}

	result := s.db.WithContext(ctx).Delete(&Category{}, id)
	if result.Error != nil {
		return apperrors.Storagef("failed to delete category: %v", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("category %d: %w", id, apperrors.ErrNotFound)
	}
	return nil
}
