// internal/domain/user/admin_service.go
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// AdminService handles admin user management operations
type AdminService struct {
	db     *gorm.DB
	config *config.Config
}

// NewAdminService creates a new admin user service
func NewAdminService(db *gorm.DB, cfg *config.Config) *AdminService {
	return &AdminService{
		db:     db,
		config: cfg,
	}
}

// UserListRequest represents user list query parameters
type UserListRequest struct {
	Page      int    `form:"page,default=1"`
	Limit     int    `form:"limit,default=20"`
	Search    string `form:"search"`
	Status    string `form:"status"` // active, inactive, all
	Role      string `form:"role"`   // admin, user, all
	SortBy    string `form:"sort_by,default=created_at"`
	SortOrder string `form:"sort_order,default=desc"`
}

// UserListResponse represents user list with pagination
type UserListResponse struct {
	Users      []User `json:"users"`
	Total      int64  `json:"total"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	TotalPages int    `json:"total_pages"`
}

// UserStatusUpdateRequest represents user status update data
type UserStatusUpdateRequest struct {
	IsActive bool   `json:"is_active"`
	Reason   string `json:"reason,omitempty"`
}

// GetUsers retrieves users with filtering and pagination
func (s *AdminService) GetUsers(ctx context.Context, req *UserListRequest) (*UserListResponse, error) {
	var users []User
	var total int64

	query := s.db.WithContext(ctx).Model(&User{})

	if req.Search != "" {
		searchTerm := "%" + strings.ToLower(req.Search) + "%"
		query = query.Where(
			"LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?",
			searchTerm, searchTerm, searchTerm,
		)
	}

	switch req.Status {
	case "active":
		query = query.Where("is_active = ?", true)
	case "inactive":
		query = query.Where("is_active = ?", false)
	}

	switch req.Role {
	case "admin":
		query = query.Where("is_admin = ?", true)
	case "user":
		query = query.Where("is_admin = ?", false)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, apperrors.Storagef("failed to count users: %v", err)
	}

	sortBy := req.SortBy
	switch sortBy {
	case "created_at", "email", "last_login_at":
	default:
		sortBy = "created_at"
	}
	sortOrder := req.SortOrder
	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}

	offset := (req.Page - 1) * req.Limit
	err := query.
		Order(fmt.Sprintf("%s %s", sortBy, sortOrder)).
		Offset(offset).
		Limit(req.Limit).
		Find(&users).Error
	if err != nil {
		return nil, apperrors.Storagef("failed to retrieve users: %v", err)
	}

	for i := range users {
		users[i].Password = ""
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &UserListResponse{
		Users:      users,
		Total:      total,
		Page:       req.Page,
		Limit:      req.Limit,
		TotalPages: totalPages,
	}, nil
}

// GetUser retrieves a single user by ID for admin views
func (s *AdminService) GetUser(ctx context.Context, userID uint) (*User, error) {
	var u User
	err := s.db.WithContext(ctx).Preload("Addresses").First(&u, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %d: %w", userID, apperrors.ErrNotFound)
		}
		return nil, apperrors.Storagef("failed to retrieve user: %v", err)
	}
	u.Password = ""
	return &u, nil
}

// UpdateUserStatus activates or deactivates a user account. Deactivated
// accounts cannot log in; their orders and reviews are untouched.
func (s *AdminService) UpdateUserStatus(ctx context.Context, userID uint, req *UserStatusUpdateRequest) (*User, error) {
	result := s.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", userID).
		Update("is_active", req.IsActive)
	if result.Error != nil {
		return nil, apperrors.Storagef("failed to update user status: %v", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("user %d: %w", userID, apperrors.ErrNotFound)
	}
	return s.GetUser(ctx, userID)
}

// SetAdmin grants or revokes the admin flag
func (s *AdminService) SetAdmin(ctx context.Context, userID uint, isAdmin bool) (*User, error) {
	result := s.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", userID).
		Update("is_admin", isAdmin)
	if result.Error != nil {
		return nil, apperrors.Storagef("failed to update admin flag: %v", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("user %d: %w", userID, apperrors.ErrNotFound)
	}
	return s.GetUser(ctx, userID)
}
