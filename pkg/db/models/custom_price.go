package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/feirahub/marketplace-backend/pkg/money"
)

// CustomPrice pins an explicit price for one (buyer, product) pair. It sits
// above every price list rule in the resolution order.
type CustomPrice struct {
	ID        uuid.UUID   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ClientID  uuid.UUID   `gorm:"column:client_id;type:uuid;not null;uniqueIndex:ux_client_product"`
	ProductID uuid.UUID   `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_client_product"`
	Price     money.Money `gorm:"column:price;type:numeric(12,2);not null"`
	CreatedAt time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}
