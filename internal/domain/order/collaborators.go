// internal/domain/order/collaborators.go
package order

import "context"

// PaymentGateway reverses captured charges. Implementations must be
// idempotent under retry: reversing an already-reversed charge succeeds as a
// no-op. A timeout or context cancellation is treated by callers as failure.
type PaymentGateway interface {
	ReverseCharge(ctx context.Context, orderID uint) error
}

// EventKind identifies a customer-facing order event.
type EventKind string

const (
	EventOrderConfirmed EventKind = "order_confirmed"
	EventOrderShipped   EventKind = "order_shipped"
	EventOrderDelivered EventKind = "order_delivered"
	EventOrderCancelled EventKind = "order_cancelled"
	EventOrderRefunded  EventKind = "order_refunded"
)

// Event carries the details a notification needs about an order change.
type Event struct {
	Kind        EventKind `json:"kind"`
	OrderID     uint      `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Status      Status    `json:"status"`
	ReasonCode  string    `json:"reason_code,omitempty"`
	TotalAmount int64     `json:"total_amount"`
	Currency    string    `json:"currency"`
}

// Notifier delivers order events to the customer. Delivery failures are the
// notifier's problem (retry, dead-letter, logging); the lifecycle controller
// never rolls back a committed status change because a notification failed.
type Notifier interface {
	SendOrderEvent(ctx context.Context, customerEmail string, event Event) error
}
