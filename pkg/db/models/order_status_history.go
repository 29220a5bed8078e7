package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/feirahub/marketplace-backend/pkg/enums"
)

// OrderStatusHistory is the append-only trail of status transitions.
type OrderStatusHistory struct {
	ID         uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	FromStatus *enums.OrderStatus `gorm:"column:from_status;type:order_status"`
	ToStatus   enums.OrderStatus  `gorm:"column:to_status;type:order_status;not null"`
	ActorID    *uuid.UUID         `gorm:"column:actor_id;type:uuid"`
	Note       *string            `gorm:"column:note"`
	CreatedAt  time.Time          `gorm:"column:created_at;autoCreateTime"`
}
