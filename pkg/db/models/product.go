package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/feirahub/marketplace-backend/pkg/money"
)

// Product is a supplier listing. BasePrice is the supplier-set fallback price
// for any buyer; overrides layer on top of it at resolution time.
type Product struct {
	ID          uuid.UUID   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SupplierID  uuid.UUID   `gorm:"column:supplier_id;type:uuid;not null;index"`
	SKU         string      `gorm:"column:sku;not null"`
	Name        string      `gorm:"column:name;not null"`
	Description *string     `gorm:"column:description"`
	BasePrice   money.Money `gorm:"column:base_price;type:numeric(12,2);not null"`
	Stock       int         `gorm:"column:stock;not null;default:0"`
	MinStock    int         `gorm:"column:min_stock;not null;default:0"`
	MaxStock    int         `gorm:"column:max_stock;not null;default:0"`
	IsActive    bool        `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}
