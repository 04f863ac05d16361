// internal/domain/cart/entity.go
package cart

import (
	"time"

	"github.com/your-org/storefront-backend/internal/domain/product"
)

// Cart represents a shopping cart row. A cart belongs to exactly one owner:
// either an anonymous session token or an authenticated user, never both.
// Cart rows are hard-deleted so a merged guest cart is gone for good.
type Cart struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UserID       *uint      `gorm:"uniqueIndex" json:"user_id,omitempty"`
	SessionToken *string    `gorm:"uniqueIndex;size:64" json:"session_token,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Items        []CartItem `gorm:"foreignKey:CartID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
}

// CartItem represents one product line in a cart. Duplicate product lines are
// never stored; adding an existing product sums quantities instead. No price
// is stored here: prices are read fresh from the catalog at display and
// checkout time.
type CartItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CartID    uint      `gorm:"not null;index;uniqueIndex:idx_cart_product,priority:1" json:"cart_id"`
	ProductID uint      `gorm:"not null;index;uniqueIndex:idx_cart_product,priority:2" json:"product_id"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides
func (Cart) TableName() string     { return "carts" }
func (CartItem) TableName() string { return "cart_items" }

// Owner identifies who a cart belongs to. Use UserOwner or SessionOwner to
// construct one; the zero value is invalid. Exactly one of the two references
// is ever set, which keeps the session-XOR-user invariant out of reach of
// callers.
type Owner struct {
	userID       *uint
	sessionToken *string
}

// UserOwner returns the owner reference for an authenticated user.
func UserOwner(userID uint) Owner {
	return Owner{userID: &userID}
}

// SessionOwner returns the owner reference for an anonymous session.
func SessionOwner(token string) Owner {
	return Owner{sessionToken: &token}
}

// IsUser reports whether the owner is an authenticated user.
func (o Owner) IsUser() bool { return o.userID != nil }

// UserID returns the user id for user-owned carts, 0 otherwise.
func (o Owner) UserID() uint {
	if o.userID != nil {
		return *o.userID
	}
	return 0
}

// SessionToken returns the session token for session-owned carts, "" otherwise.
func (o Owner) SessionToken() string {
	if o.sessionToken != nil {
		return *o.sessionToken
	}
	return ""
}

// Valid reports whether the owner was built through a constructor.
func (o Owner) Valid() bool {
	return (o.userID != nil) != (o.sessionToken != nil)
}

// apply sets the owner columns on a cart row.
func (o Owner) apply(c *Cart) {
	c.UserID = o.userID
	c.SessionToken = o.sessionToken
}

// CartItemResponse represents a cart line with current catalog details. Price
// reflects the product's selling price at read time, not at add time.
type CartItemResponse struct {
	ProductID uint             `json:"product_id"`
	Quantity  int              `json:"quantity"`
	UnitPrice int64            `json:"unit_price"`
	Product   *product.Product `json:"product,omitempty"`
	AddedAt   time.Time        `json:"added_at"`
}

// CartResponse represents a shopping cart with items and summary
type CartResponse struct {
	UserID       *uint              `json:"user_id,omitempty"`
	SessionToken string             `json:"session_token,omitempty"`
	Items        []CartItemResponse `json:"items"`
	Totals       CartTotals         `json:"totals"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// CartTotals represents calculated cart totals
type CartTotals struct {
	ItemCount     int   `json:"item_count"`     // Number of unique lines
	TotalQuantity int   `json:"total_quantity"` // Sum of all quantities
	SubTotal      int64 `json:"sub_total"`
}

// AddToCartRequest represents add to cart request
type AddToCartRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,min=1"`
}

// UpdateCartItemRequest represents update cart item request
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"min=0"`
}
