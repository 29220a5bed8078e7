package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/feirahub/marketplace-backend/pkg/enums"
	"github.com/feirahub/marketplace-backend/pkg/money"
)

// OrderItem captures the frozen snapshot of each line within an order,
// including which rung of the pricing hierarchy produced the unit price.
type OrderItem struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID   *uuid.UUID        `gorm:"column:product_id;type:uuid"`
	ProductName string            `gorm:"column:product_name;not null"`
	Quantity    int               `gorm:"column:quantity;not null"`
	UnitPrice   money.Money       `gorm:"column:unit_price;type:numeric(12,2);not null"`
	LineTotal   money.Money       `gorm:"column:line_total;type:numeric(12,2);not null"`
	PriceSource enums.PriceSource `gorm:"column:price_source;type:price_source;not null"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
}
