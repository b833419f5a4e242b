package domain

import (
	"time"

	"github.com/supplydropp/provisioning/pkg/common"
	"gorm.io/gorm"
)

const (
	SupplierMercadona = "Mercadona"
	SupplierCarrefour = "Carrefour"
)

// Suppliers lists the known supplier names
var Suppliers = []string{SupplierMercadona, SupplierCarrefour}

const DefaultMarkup = 0.3

// Product is a catalog item bought from a supplier at CostPrice
type Product struct {
	ID            string    `gorm:"primaryKey;size:64" json:"id"`
	Name          string    `gorm:"index;size:200" json:"name"`
	Description   string    `gorm:"type:text" json:"description"`
	Supplier      string    `gorm:"size:32;index" json:"supplier"`
	CostPrice     float64   `json:"cost_price"`     // euros
	DefaultMarkup float64   `json:"default_markup"` // fraction, e.g. 0.3
	Active        bool      `gorm:"index" json:"active"`
	ImageUrl      string    `gorm:"size:1024" json:"image_url"`
	ImageThumb    string    `gorm:"size:1024" json:"image_thumb"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Product) TableName() string {
	return "product"
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = common.UUID()
	}
	return nil
}
