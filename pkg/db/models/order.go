package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/feirahub/marketplace-backend/pkg/enums"
	"github.com/feirahub/marketplace-backend/pkg/money"
)

// Order is the persisted snapshot of a committed cart. Prices and totals are
// frozen at creation and never re-derived.
type Order struct {
	ID            uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Number        string               `gorm:"column:number;not null;uniqueIndex"`
	ClientID      *uuid.UUID           `gorm:"column:client_id;type:uuid;index"`
	SupplierID    uuid.UUID            `gorm:"column:supplier_id;type:uuid;not null;index"`
	Status        enums.OrderStatus    `gorm:"column:status;type:order_status;not null;default:'pendente'"`
	Subtotal      money.Money          `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Discount      money.Money          `gorm:"column:discount;type:numeric(12,2);not null"`
	Freight       money.Money          `gorm:"column:freight;type:numeric(12,2);not null"`
	Total         money.Money          `gorm:"column:total;type:numeric(12,2);not null"`
	Items         []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	StatusHistory []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
