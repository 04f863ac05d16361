// internal/pkg/email/notifier.go
package email

import (
	"context"
	"fmt"

	"github.com/your-org/storefront-backend/internal/domain/order"
)

// OrderNotifier turns order events into customer emails
type OrderNotifier struct {
	service *EmailService
}

// NewOrderNotifier creates a notifier backed by the email service
func NewOrderNotifier(service *EmailService) *OrderNotifier {
	return &OrderNotifier{service: service}
}

// SendOrderEvent delivers one order event as an email
func (n *OrderNotifier) SendOrderEvent(ctx context.Context, customerEmail string, event order.Event) error {
	headline, detail := describeEvent(event)
	return n.service.SendOrderUpdateEmail(ctx, customerEmail, OrderUpdateData{
		OrderNumber: event.OrderNumber,
		Headline:    headline,
		Detail:      detail,
		Total:       formatAmount(event.TotalAmount, event.Currency),
	})
}

func describeEvent(event order.Event) (headline, detail string) {
	switch event.Kind {
	case order.EventOrderConfirmed:
		return "Order confirmed", "Your order has been confirmed and is being prepared."
	case order.EventOrderShipped:
		return "Order shipped", "Your order is on its way."
	case order.EventOrderDelivered:
		return "Order delivered", "Your order has been delivered. Enjoy!"
	case order.EventOrderCancelled:
		detail = "Your order has been cancelled."
		if event.ReasonCode != "" {
			detail = fmt.Sprintf("Your order has been cancelled (%s).", event.ReasonCode)
		}
		return "Order cancelled", detail
	case order.EventOrderRefunded:
		detail = "Your order has been refunded. The amount will be returned to your original payment method."
		if event.ReasonCode != "" {
			detail = fmt.Sprintf("Your order has been refunded (%s). The amount will be returned to your original payment method.", event.ReasonCode)
		}
		return "Order refunded", detail
	default:
		return "Order update", fmt.Sprintf("Your order status is now %s.", event.Status)
	}
}

func formatAmount(cents int64, currency string) string {
	return fmt.Sprintf("%.2f %s", float64(cents)/100, currency)
}
