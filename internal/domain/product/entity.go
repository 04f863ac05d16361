// internal/domain/product/entity.go
package product

import (
	"time"

	"gorm.io/gorm"
)

// Product represents the product entity. Price is the external selling price
// and the only price ever used in customer-facing totals; CostPrice is the
// supplier price and is excluded from JSON.
type Product struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	SKU               string         `gorm:"uniqueIndex;not null;size:100" json:"sku"`
	Name              string         `gorm:"not null;size:255" json:"name"`
	Slug              string         `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	Description       string         `gorm:"type:text" json:"description"`
	ShortDesc         string         `gorm:"size:500" json:"short_description"`
	Price             int64          `gorm:"not null" json:"price"` // Selling price in cents
	CostPrice         int64          `json:"-"`                     // Supplier price, internal only
	CategoryID        uint           `gorm:"not null;index" json:"category_id"`
	IsActive          bool           `gorm:"default:true" json:"is_active"`
	IsFeatured        bool           `gorm:"default:false" json:"is_featured"`
	TrackQuantity     bool           `gorm:"default:true" json:"track_quantity"`
	Quantity          int            `gorm:"default:0" json:"quantity"`
	LowStockThreshold int            `gorm:"default:5" json:"low_stock_threshold"`
	Tags              string         `gorm:"size:500" json:"tags"` // Comma-separated tags
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Category Category        `gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"category"`
	Images   []ProductImage  `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"images,omitempty"`
	Reviews  []ProductReview `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"reviews,omitempty"`
}

// Category represents product categories
type Category struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"not null;size:255" json:"name"`
	Slug        string         `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	Description string         `gorm:"size:500" json:"description"`
	ParentID    *uint          `gorm:"index" json:"parent_id"`
	SortOrder   int            `gorm:"default:0" json:"sort_order"`
	IsActive    bool           `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Parent   *Category  `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
	Children []Category `gorm:"foreignKey:ParentID" json:"children,omitempty"`
	Products []Product  `gorm:"foreignKey:CategoryID" json:"products,omitempty"`
}

// ProductImage represents product images. Exactly one image per product
// carries the primary flag; the service keeps that invariant when images are
// added or promoted.
type ProductImage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProductID uint      `gorm:"not null;index" json:"product_id"`
	URL       string    `gorm:"not null;size:500" json:"url"`
	AltText   string    `gorm:"size:255" json:"alt_text"`
	SortOrder int       `gorm:"default:0" json:"sort_order"`
	IsPrimary bool      `gorm:"default:false" json:"is_primary"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProductReview represents a customer review tied to a (user, order, product)
// purchase. Reviews stay hidden until an administrator approves them.
type ProductReview struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	ProductID  uint           `gorm:"not null;index;uniqueIndex:idx_review_triple,priority:3" json:"product_id"`
	UserID     uint           `gorm:"not null;index;uniqueIndex:idx_review_triple,priority:1" json:"user_id"`
	OrderID    uint           `gorm:"not null;index;uniqueIndex:idx_review_triple,priority:2" json:"order_id"`
	Rating     int            `gorm:"not null" json:"rating"` // 1-5
	Title      string         `gorm:"size:255" json:"title"`
	Content    string         `gorm:"type:text" json:"content"`
	IsApproved bool           `gorm:"default:false" json:"is_approved"`
	ApprovedAt *time.Time     `json:"approved_at,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides
func (Product) TableName() string       { return "products" }
func (Category) TableName() string      { return "categories" }
func (ProductImage) TableName() string  { return "product_images" }
func (ProductReview) TableName() string { return "product_reviews" }

// PrimaryImage returns the product's primary image, or nil if it has none.
func (p *Product) PrimaryImage() *ProductImage {
	for i := range p.Images {
		if p.Images[i].IsPrimary {
			return &p.Images[i]
		}
	}
	return nil
}

// IsInStock reports whether the product can currently be sold.
func (p *Product) IsInStock() bool {
	if !p.TrackQuantity {
		return true
	}
	return p.Quantity > 0
}

// IsLowStock reports whether quantity has dropped below the threshold.
func (p *Product) IsLowStock() bool {
	return p.TrackQuantity && p.Quantity <= p.LowStockThreshold
}
