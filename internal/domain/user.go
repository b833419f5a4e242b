package domain

import (
	"time"

	"github.com/supplydropp/provisioning/pkg/common"
	"gorm.io/gorm"
)

const (
	RoleGuest = "guest"
	RoleHost  = "host"
	RoleAdmin = "admin"
)

var Roles = []string{RoleGuest, RoleHost, RoleAdmin}

// User profile document; account/session handling lives outside this service
type User struct {
	ID                string    `gorm:"primaryKey;size:64" json:"id"`
	AccountID         string    `gorm:"size:64;index" json:"account_id"`
	Name              string    `gorm:"size:200;index" json:"name"`
	Email             string    `gorm:"size:200;index" json:"email"`
	Avatar            string    `gorm:"size:1024" json:"avatar"`
	Role              string    `gorm:"size:16;index" json:"role"`
	HotelID           *string   `gorm:"size:64" json:"hotel_id"`
	CurrentPropertyID *string   `gorm:"size:64;index" json:"current_property_id"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName Specify table name
func (User) TableName() string {
	return "app_user"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = common.UUID()
	}
	return nil
}

// Property is a hotel or rental the supplies are delivered to
type Property struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Name      string    `gorm:"size:200;index" json:"name"`
	Code      string    `gorm:"size:64;index" json:"code"`
	Address   string    `gorm:"size:500" json:"address"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Property) TableName() string {
	return "property"
}

func (p *Property) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = common.UUID()
	}
	return nil
}
