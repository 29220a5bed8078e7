package models

import (
	"time"

	"github.com/google/uuid"
)

// ClientSupplierLink relates one buyer to one supplier and optionally pins
// the price list that supplier assigned to the buyer. Unique per pair.
type ClientSupplierLink struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ClientID    uuid.UUID  `gorm:"column:client_id;type:uuid;not null;uniqueIndex:ux_client_supplier"`
	SupplierID  uuid.UUID  `gorm:"column:supplier_id;type:uuid;not null;uniqueIndex:ux_client_supplier"`
	PriceListID *uuid.UUID `gorm:"column:price_list_id;type:uuid"`
	PriceList   *PriceList `gorm:"foreignKey:PriceListID"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
