package app

import (
	"context"

	"github.com/supplydropp/provisioning/internal/domain"
	"go.uber.org/zap"
)

type seedItem struct {
	product  string
	quantity int
}

type seedPack struct {
	pack  domain.Pack
	items []seedItem
}

func margin(v float64) *float64 { return &v }

var defaultProducts = []domain.Product{
	{Name: "Fresh Milk 1L", Supplier: domain.SupplierMercadona, CostPrice: 1.2, DefaultMarkup: 0.25, Active: true},
	{Name: "White Bread Loaf", Supplier: domain.SupplierMercadona, CostPrice: 1.0, DefaultMarkup: 0.25, Active: true},
	{Name: "Red Wine Bottle 750ml", Supplier: domain.SupplierCarrefour, CostPrice: 5.0, DefaultMarkup: 0.4, Active: true},
	{Name: "Queso Manchego 200g", Supplier: domain.SupplierMercadona, CostPrice: 3.5, DefaultMarkup: 0.3, Active: true},
	{Name: "All-purpose Cleaner 1L", Supplier: domain.SupplierMercadona, CostPrice: 2.5, DefaultMarkup: 0.3, Active: true},
	{Name: "Toilet Paper (12 pack)", Supplier: domain.SupplierCarrefour, CostPrice: 4.0, DefaultMarkup: 0.25, Active: true},
	{Name: "Shampoo 500ml", Supplier: domain.SupplierMercadona, CostPrice: 3.0, DefaultMarkup: 0.3, Active: true},
}

var defaultPacks = []seedPack{
	{
		pack: domain.Pack{Name: "Breakfast Starter", Price: 19.99, Type: domain.PackTypeGuest, Active: true,
			Description: "Milk and bread essentials to start your day.", TargetMargin: margin(0.35)},
		items: []seedItem{{"Fresh Milk 1L", 1}, {"White Bread Loaf", 1}},
	},
	{
		pack: domain.Pack{Name: "Tapas Night", Price: 29.99, Type: domain.PackTypeGuest, Active: true,
			Description: "Manchego and wine, fridge-ready tapas pack.", TargetMargin: margin(0.4)},
		items: []seedItem{{"Red Wine Bottle 750ml", 1}, {"Queso Manchego 200g", 1}},
	},
	{
		pack: domain.Pack{Name: "Cleaning Essentials", Price: 15.99, Type: domain.PackTypeHost, Active: true,
			Description: "Turnover cleaning pack with cleaner, toilet paper and shampoo.", TargetMargin: margin(0.3)},
		items: []seedItem{{"All-purpose Cleaner 1L", 1}, {"Toilet Paper (12 pack)", 1}, {"Shampoo 500ml", 1}},
	},
	{
		pack: domain.Pack{Name: "Turnover Kit", Price: 25.99, Type: domain.PackTypeHost, Active: true,
			Description: "Full turnover kit with essentials for hosts.", TargetMargin: margin(0.35)},
		items: []seedItem{
			{"All-purpose Cleaner 1L", 1}, {"Toilet Paper (12 pack)", 1}, {"Shampoo 500ml", 1},
			{"Fresh Milk 1L", 1}, {"White Bread Loaf", 1},
		},
	},
}

var defaultProperties = []domain.Property{
	{Name: "Hotel Mirador", Code: "HMIR", Address: "Calle Mayor 1, Madrid", Active: true},
}

// Seed inserts the demo catalog where it is missing
func (a *Application) Seed() {
	a.checkProducts()
	a.checkPacks()
	a.checkProperties()
}

// checkProducts initializes the default catalog products
func (a *Application) checkProducts() {
	for _, p := range defaultProducts {
		var count int64
		a.gormDB.Model(&domain.Product{}).Where("name = ?", p.Name).Count(&count)
		if count > 0 {
			continue
		}
		if err := a.gormDB.Create(&p).Error; err != nil {
			zap.L().Error("failed to create default product", zap.String("name", p.Name), zap.Error(err))
		} else {
			zap.L().Info("initialized default product", zap.String("name", p.Name))
		}
	}
}

// checkPacks initializes the default packs; items point at the seeded products by name
func (a *Application) checkPacks() {
	for _, sp := range defaultPacks {
		var count int64
		a.gormDB.Model(&domain.Pack{}).Where("name = ?", sp.pack.Name).Count(&count)
		if count > 0 {
			continue
		}
		items := make([]domain.PackItem, 0, len(sp.items))
		for _, si := range sp.items {
			var p domain.Product
			if err := a.gormDB.Where("name = ?", si.product).First(&p).Error; err != nil {
				zap.L().Warn("default pack product missing", zap.String("pack", sp.pack.Name), zap.String("product", si.product))
				continue
			}
			items = append(items, domain.PackItem{ProductID: p.ID, Quantity: si.quantity})
		}
		pack := sp.pack
		if err := a.catalog.SavePack(context.Background(), &pack, items); err != nil {
			zap.L().Error("failed to create default pack", zap.String("name", pack.Name), zap.Error(err))
		} else {
			zap.L().Info("initialized default pack", zap.String("name", pack.Name), zap.Int("items", len(items)))
		}
	}
}

// checkProperties initializes a demo property
func (a *Application) checkProperties() {
	for _, p := range defaultProperties {
		var count int64
		a.gormDB.Model(&domain.Property{}).Where("code = ?", p.Code).Count(&count)
		if count > 0 {
			continue
		}
		if err := a.gormDB.Create(&p).Error; err != nil {
			zap.L().Error("failed to create default property", zap.String("code", p.Code), zap.Error(err))
		}
	}
}
