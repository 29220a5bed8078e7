package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/feirahub/marketplace-backend/pkg/enums"
)

// PriceList is a supplier-owned discount scheme assignable to buyers.
// DiscountValue is a percentage (0..100) or a fixed currency amount
// depending on DiscountKind.
type PriceList struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SupplierID    uuid.UUID          `gorm:"column:supplier_id;type:uuid;not null;index"`
	Name          string             `gorm:"column:name;not null"`
	DiscountKind  enums.DiscountKind `gorm:"column:discount_kind;type:discount_kind;not null"`
	DiscountValue decimal.Decimal    `gorm:"column:discount_value;type:numeric(12,2);not null"`
	IsActive      bool               `gorm:"column:is_active;not null;default:true"`
	Items         []PriceListItem    `gorm:"foreignKey:PriceListID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
