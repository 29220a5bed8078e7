package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/feirahub/marketplace-backend/pkg/money"
)

// PriceListItem is a per-product override inside a price list. When
// SpecialPrice is set it replaces the list's blanket discount for that
// product only.
type PriceListItem struct {
	ID           uuid.UUID    `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PriceListID  uuid.UUID    `gorm:"column:price_list_id;type:uuid;not null;uniqueIndex:ux_list_product"`
	ProductID    uuid.UUID    `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_list_product"`
	SpecialPrice *money.Money `gorm:"column:special_price;type:numeric(12,2)"`
	CreatedAt    time.Time    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time    `gorm:"column:updated_at;autoUpdateTime"`
}
