package domain

import (
	"time"

	"github.com/supplydropp/provisioning/pkg/common"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

// Order is a placed order. Items is a snapshot taken at creation time and
// lives in the order row itself, so it is written together with the order.
type Order struct {
	ID            string                         `gorm:"primaryKey;size:64" json:"id"`
	UserID        string                         `gorm:"size:64;index" json:"user_id"`
	PackID        *string                        `gorm:"size:64;index" json:"pack_id"`
	Status        OrderStatus                    `gorm:"size:16;index" json:"status"`
	ScheduledTime time.Time                      `json:"scheduled_time"`
	DeliveryType  string                         `gorm:"size:16" json:"delivery_type"`
	TotalPrice    float64                        `json:"total_price"`
	DeliveryFee   float64                        `json:"delivery_fee"`
	Items         datatypes.JSONSlice[OrderItem] `json:"items"`
	Notes         string                         `gorm:"type:text" json:"notes"`
	CreatedAt     time.Time                      `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time                      `json:"updated_at"`
}

// TableName Specify table name
func (Order) TableName() string {
	return "orders"
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = common.UUID()
	}
	return nil
}
