// internal/domain/order/entity.go
package order

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Status represents the fulfillment status axis of an order. Forward
// transitions are strictly ordered and never skip a step; cancelled and
// refunded are terminal.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
)

// forwardSuccessor maps each fulfillment status to the only status an
// explicit fulfillment action may advance it to.
var forwardSuccessor = map[Status]Status{
	StatusPending:    StatusConfirmed,
	StatusConfirmed:  StatusProcessing,
	StatusProcessing: StatusShipped,
	StatusShipped:    StatusDelivered,
}

// IsTerminal reports whether no further lifecycle transition is permitted.
// Delivered is terminal for the forward path but issues can still be
// reported against it.
func (s Status) IsTerminal() bool {
	return s == StatusCancelled || s == StatusRefunded
}

// CanAdvanceTo reports whether next is the immediate forward successor.
func (s Status) CanAdvanceTo(next Status) bool {
	return forwardSuccessor[s] == next
}

// PaymentStatus represents the payment axis, independent of fulfillment.
type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	PaymentStatusPaid   PaymentStatus = "paid"
)

// StatusAxis records which axis triggered a status history entry.
type StatusAxis string

const (
	AxisFulfillment StatusAxis = "fulfillment"
	AxisPayment     StatusAxis = "payment"
)

// Order represents the order entity. The shipping address is a snapshot copy
// taken at checkout, so later address-book edits never change past orders.
type Order struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	OrderNumber   string        `gorm:"uniqueIndex;not null;size:50" json:"order_number"`
	UserID        uint          `gorm:"not null;index" json:"user_id"`
	Email         string        `gorm:"not null;size:255" json:"email"`
	Status        Status        `gorm:"not null;default:'pending'" json:"status"`
	PaymentStatus PaymentStatus `gorm:"not null;default:'unpaid'" json:"payment_status"`

	// Financial information, in cents
	SubtotalAmount int64 `gorm:"not null" json:"subtotal_amount"`
	ShippingAmount int64 `gorm:"default:0" json:"shipping_amount"`
	TotalAmount    int64 `gorm:"not null" json:"total_amount"`
	Currency       string `gorm:"size:3;default:'USD'" json:"currency"`

	// Shipping address snapshot
	ShippingAddress Address `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`
	ShippingMethod  string  `gorm:"size:100" json:"shipping_method"`

	Notes string `gorm:"type:text" json:"notes"`

	// Timestamps
	ConfirmedAt *time.Time     `json:"confirmed_at"`
	ShippedAt   *time.Time     `json:"shipped_at"`
	DeliveredAt *time.Time     `json:"delivered_at"`
	ClosedAt    *time.Time     `json:"closed_at"` // Set when cancelled or refunded
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Items         []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
	StatusHistory []StatusHistory `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"status_history,omitempty"`
}

// OrderItem snapshots product name, SKU and selling price at order time.
type OrderItem struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	OrderID    uint      `gorm:"not null;index" json:"order_id"`
	ProductID  uint      `gorm:"not null;index" json:"product_id"`
	SKU        string    `gorm:"not null;size:100" json:"sku"`
	Name       string    `gorm:"not null;size:255" json:"name"`
	Quantity   int       `gorm:"not null" json:"quantity"`
	UnitPrice  int64     `gorm:"not null" json:"unit_price"`
	TotalPrice int64     `gorm:"not null" json:"total_price"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// StatusHistory tracks order status changes, recording which axis triggered
// each one.
type StatusHistory struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	OrderID   uint       `gorm:"not null;index" json:"order_id"`
	Status    Status     `gorm:"not null" json:"status"`
	Axis      StatusAxis `gorm:"not null;size:20" json:"axis"`
	Comment   string     `gorm:"type:text" json:"comment"`
	CreatedBy uint       `gorm:"index" json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
}

// Address represents the shipping address snapshot embedded in an order
type Address struct {
	FirstName    string `gorm:"size:100" json:"first_name"`
	LastName     string `gorm:"size:100" json:"last_name"`
	AddressLine1 string `gorm:"size:255" json:"address_line1"`
	AddressLine2 string `gorm:"size:255" json:"address_line2"`
	City         string `gorm:"size:100" json:"city"`
	State        string `gorm:"size:100" json:"state"`
	PostalCode   string `gorm:"size:20" json:"postal_code"`
	Country      string `gorm:"size:2" json:"country"`
	Phone        string `gorm:"size:20" json:"phone"`
}

// TableName overrides
func (Order) TableName() string         { return "orders" }
func (OrderItem) TableName() string     { return "order_items" }
func (StatusHistory) TableName() string { return "order_status_history" }

// GenerateOrderNumber formats the public order number from the row id
func GenerateOrderNumber(orderID uint) string {
	// Format: ORD-YYYYMMDD-XXXXX
	return fmt.Sprintf("ORD-%s-%05d", time.Now().UTC().Format("20060102"), orderID)
}

// IsPaid reports whether the order's charge has been captured.
func (o *Order) IsPaid() bool {
	return o.PaymentStatus == PaymentStatusPaid
}

// ReviewEligible reports whether reviews may be written against this order.
func (o *Order) ReviewEligible() bool {
	return o.Status == StatusDelivered
}
