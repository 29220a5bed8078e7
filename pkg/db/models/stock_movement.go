package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/feirahub/marketplace-backend/pkg/enums"
)

// StockMovement is one entry in the append-only stock ledger. Order commits
// write `saida` rows; cancellations and replenishments write `entrada` rows
// referencing the order number when one applies.
type StockMovement struct {
	ID          uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID   uuid.UUID               `gorm:"column:product_id;type:uuid;not null;index"`
	Type        enums.StockMovementType `gorm:"column:type;type:stock_movement_type;not null"`
	Quantity    int                     `gorm:"column:quantity;not null"`
	OrderNumber *string                 `gorm:"column:order_number;index"`
	Note        *string                 `gorm:"column:note"`
	CreatedAt   time.Time               `gorm:"column:created_at;autoCreateTime"`
}
