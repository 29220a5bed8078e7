package models

import (
	"time"

	"github.com/google/uuid"
)

// Supplier owns products and price lists. Verification gates storefront
// visibility only; it has no bearing on price resolution.
type Supplier struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CompanyName string    `gorm:"column:company_name;not null"`
	Email       string    `gorm:"column:email;not null;uniqueIndex"`
	Verified    bool      `gorm:"column:verified;not null;default:false"`
	IsActive    bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
