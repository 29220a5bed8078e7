package enums

import "fmt"

// OrderStatus tracks an order through its lifecycle. The wire values are the
// Portuguese labels the storefront and historical data use.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pendente"
	OrderStatusConfirmed OrderStatus = "confirmado"
	OrderStatusShipped   OrderStatus = "enviado"
	OrderStatusDelivered OrderStatus = "entregue"
	OrderStatusCanceled  OrderStatus = "cancelado"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCanceled,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

// CanCancel reports whether an order in this status may still be cancelled.
func (o OrderStatus) CanCancel() bool {
	return o == OrderStatusPending || o == OrderStatusConfirmed
}

// CanTransitionTo reports whether the supplier-driven transition is legal.
func (o OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch o {
	case OrderStatusPending:
		return next == OrderStatusConfirmed || next == OrderStatusCanceled
	case OrderStatusConfirmed:
		return next == OrderStatusShipped || next == OrderStatusCanceled
	case OrderStatusShipped:
		return next == OrderStatusDelivered
	default:
		return false
	}
}
