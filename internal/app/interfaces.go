package app

import (
	EventBus "github.com/asaskevich/EventBus"
	"github.com/robfig/cron/v3"
	"github.com/supplydropp/provisioning/config"
	"github.com/supplydropp/provisioning/internal/cart"
	"github.com/supplydropp/provisioning/internal/catalog"
	"github.com/supplydropp/provisioning/internal/notify"
	"github.com/supplydropp/provisioning/internal/order"
	"github.com/supplydropp/provisioning/internal/pricing"
	"gorm.io/gorm"
)

// DBProvider provides database access
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
	Jobs() []JobInfo
	RunJobNow(name string) error
}

// CatalogProvider provides the document repositories
type CatalogProvider interface {
	Catalog() *catalog.Catalog
}

// CartProvider provides the per-session cart registry
type CartProvider interface {
	Carts() *cart.Store
}

// OrderProvider provides order placement and lifecycle
type OrderProvider interface {
	Orders() *order.Service
}

// EventProvider provides the event bus and the audit writer
type EventProvider interface {
	Bus() EventBus.Bus
	Auditor() *notify.Auditor
}

// AppContext combines all provider interfaces for full application context
// Services should depend on specific providers or this combined interface
type AppContext interface {
	DBProvider
	ConfigProvider
	SchedulerProvider
	CatalogProvider
	CartProvider
	OrderProvider
	EventProvider

	PricingPolicy() pricing.Policy

	// Application lifecycle methods
	MigrateDB(track bool) error
	InitDb()
	DropAll()
}
