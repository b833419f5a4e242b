package domain

import (
	"time"

	"github.com/supplydropp/provisioning/pkg/common"
	"gorm.io/gorm"
)

const (
	PackTypeGuest = "guest"
	PackTypeHost  = "host"
)

// Pack is a fixed-price bundle of products.
// Price is stored independently; the margin fields only drive the suggested price.
type Pack struct {
	ID             string    `gorm:"primaryKey;size:64" json:"id"`
	Name           string    `gorm:"index;size:200" json:"name"`
	Description    string    `gorm:"type:text" json:"description"`
	Price          float64   `json:"price"`
	Type           string    `gorm:"size:16;index" json:"type"`
	TargetMargin   *float64  `json:"target_margin"`
	OverrideMargin *float64  `json:"override_margin"`
	Active         bool      `gorm:"index" json:"active"`
	ImageUrl       string    `gorm:"size:1024" json:"image_url"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Pack) TableName() string {
	return "pack"
}

func (p *Pack) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = common.UUID()
	}
	return nil
}

// PackItem is the catalog-time composition of a pack.
// ProductID is a plain reference; the product may no longer exist.
type PackItem struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	PackID    string    `gorm:"size:64;index" json:"pack_id"`
	ProductID string    `gorm:"size:64;index" json:"product_id"`
	Quantity  int       `json:"quantity"`
	Sort      int       `json:"sort"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (PackItem) TableName() string {
	return "pack_item"
}

func (p *PackItem) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = common.UUID()
	}
	return nil
}

// Ref returns the product/quantity pair of the item
func (p PackItem) Ref() OrderItem {
	return OrderItem{ProductID: p.ProductID, Quantity: p.Quantity}
}

// OrderItem is a product id with a quantity
type OrderItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// PackItemRefs maps pack items to their product/quantity pairs
func PackItemRefs(items []PackItem) []OrderItem {
	refs := make([]OrderItem, 0, len(items))
	for _, it := range items {
		refs = append(refs, it.Ref())
	}
	return refs
}

// UnknownItemLabel is shown for product ids that no longer resolve
const UnknownItemLabel = "Unknown item"
