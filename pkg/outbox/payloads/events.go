// Package payloads defines the versioned event bodies published from the
// outbox. Monetary fields are decimal strings, matching the API surface.
package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/feirahub/marketplace-backend/pkg/enums"
)

// OrderItemSnapshot mirrors one frozen order line inside an event payload.
type OrderItemSnapshot struct {
	ProductID   *uuid.UUID        `json:"product_id,omitempty"`
	ProductName string            `json:"product_name"`
	Quantity    int               `json:"quantity"`
	UnitPrice   string            `json:"unit_price"`
	LineTotal   string            `json:"line_total"`
	PriceSource enums.PriceSource `json:"price_source"`
}

// OrderCreatedEvent signals a committed order.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID           `json:"order_id"`
	OrderNumber string              `json:"order_number"`
	ClientID    *uuid.UUID          `json:"client_id,omitempty"`
	SupplierID  uuid.UUID           `json:"supplier_id"`
	Status      enums.OrderStatus   `json:"status"`
	Subtotal    string              `json:"subtotal"`
	Discount    string              `json:"discount"`
	Freight     string              `json:"freight"`
	Total       string              `json:"total"`
	Items       []OrderItemSnapshot `json:"items"`
	CommittedAt time.Time           `json:"committed_at"`
}

// OrderCanceledEvent signals a cancellation with restored stock.
type OrderCanceledEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	ClientID    *uuid.UUID        `json:"client_id,omitempty"`
	SupplierID  uuid.UUID         `json:"supplier_id"`
	FromStatus  enums.OrderStatus `json:"from_status"`
	CanceledAt  time.Time         `json:"canceled_at"`
}

// OrderStateChangedEvent signals a supplier-driven status transition.
type OrderStateChangedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	ClientID    *uuid.UUID        `json:"client_id,omitempty"`
	SupplierID  uuid.UUID         `json:"supplier_id"`
	FromStatus  enums.OrderStatus `json:"from_status"`
	ToStatus    enums.OrderStatus `json:"to_status"`
	ChangedAt   time.Time         `json:"changed_at"`
}
