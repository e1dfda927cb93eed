package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/printmitra/printmitra-backend/pkg/enums"
)

// OrderStatusHistory is the append-only transition log for an order. Rows are
// never updated or deleted.
type OrderStatusHistory struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID         `gorm:"column:order_id;type:uuid;not null"`
	FromStatus enums.OrderStatus `gorm:"column:from_status;type:order_status;not null"`
	ToStatus   enums.OrderStatus `gorm:"column:to_status;type:order_status;not null"`
	Note       *string           `gorm:"column:note"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
}
