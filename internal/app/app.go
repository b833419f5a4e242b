package app

import (
	"os"
	"runtime/debug"
	"time"
	_ "time/tzdata"

	EventBus "github.com/asaskevich/EventBus"
	"github.com/robfig/cron/v3"
	"github.com/supplydropp/provisioning/config"
	"github.com/supplydropp/provisioning/internal/cart"
	"github.com/supplydropp/provisioning/internal/catalog"
	"github.com/supplydropp/provisioning/internal/domain"
	"github.com/supplydropp/provisioning/internal/notify"
	"github.com/supplydropp/provisioning/internal/order"
	"github.com/supplydropp/provisioning/internal/pricing"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"
)

type Application struct {
	appConfig *config.AppConfig
	gormDB    *gorm.DB
	sched     *cron.Cron
	jobIDs    map[string]cron.EntryID
	catalog   *catalog.Catalog
	carts     *cart.Store
	orders    *order.Service
	bus       EventBus.Bus
	auditor   *notify.Auditor
	mailer    *notify.Mailer
}

// Ensure Application implements all interfaces
var (
	_ DBProvider        = (*Application)(nil)
	_ ConfigProvider    = (*Application)(nil)
	_ SchedulerProvider = (*Application)(nil)
	_ CatalogProvider   = (*Application)(nil)
	_ CartProvider      = (*Application)(nil)
	_ OrderProvider     = (*Application)(nil)
	_ EventProvider     = (*Application)(nil)
	_ AppContext        = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) DB() *gorm.DB {
	return a.gormDB
}

// OverrideDB replaces the application's database handle and rebuilds the services on top of it (used in tests).
func (a *Application) OverrideDB(db *gorm.DB) {
	a.gormDB = db
	a.initServices()
}

func (a *Application) Catalog() *catalog.Catalog {
	return a.catalog
}

func (a *Application) Carts() *cart.Store {
	return a.carts
}

func (a *Application) Orders() *order.Service {
	return a.orders
}

func (a *Application) Bus() EventBus.Bus {
	return a.bus
}

func (a *Application) Auditor() *notify.Auditor {
	return a.auditor
}

// Scheduler returns the cron scheduler
func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

func (a *Application) PricingPolicy() pricing.Policy {
	return pricing.Policy{
		DefaultMargin: a.appConfig.Pricing.DefaultMargin,
		MarginalFloor: a.appConfig.Pricing.MarginalFloor,
	}
}

func (a *Application) Init(cfg *config.AppConfig) {
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	initLogger(cfg)

	if cfg.Database.Type == "" {
		cfg.Database.Type = "postgres"
	}
	a.gormDB = getDatabase(cfg.Database, cfg.GetDataDir())
	zap.S().Infof("Database connection successful, type: %s", cfg.Database.Type)

	if err := a.MigrateDB(false); err != nil {
		zap.S().Errorf("database migration failed: %v", err)
	}

	a.initServices()
	a.initJob()
}

func initLogger(cfg *config.AppConfig) {
	var zapConfig zap.Config
	if cfg.Logger.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.OutputPaths = []string{"stdout"}

	var logger *zap.Logger
	if cfg.Logger.FileEnable {
		lumberJackLogger := &lumberjack.Logger{
			Filename:   cfg.Logger.Filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   false,
		}
		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(lumberJackLogger),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller())
	} else {
		var err error
		logger, err = zapConfig.Build(zap.AddCaller())
		if err != nil {
			panic(err)
		}
	}
	zap.ReplaceGlobals(logger)
}

// initServices wires the domain services on top of the current database handle
func (a *Application) initServices() {
	a.catalog = catalog.New(a.gormDB)
	if a.carts == nil {
		a.carts = cart.NewStore()
	}
	a.bus = EventBus.New()
	a.auditor = notify.NewAuditor(a.gormDB)

	if a.mailer != nil {
		a.mailer.Release()
		a.mailer = nil
	}
	if a.appConfig.Notify.Enabled {
		mailer, err := notify.NewMailer(a.appConfig.Notify)
		if err != nil {
			zap.L().Error("init mailer failed", zap.Error(err))
		} else {
			a.mailer = mailer
		}
	}
	if err := notify.Subscribe(a.bus, a.auditor, a.mailer); err != nil {
		zap.L().Error("subscribe order events failed", zap.Error(err))
	}

	a.orders = order.NewService(a.catalog.Orders, a.catalog, a.bus, order.Policy{
		DeliveryFee: a.appConfig.Order.DeliveryFee,
	})
}

func (a *Application) MigrateDB(track bool) (err error) {
	defer func() {
		if err1 := recover(); err1 != nil {
			if os.Getenv("GO_DEGUB_TRACE") != "" {
				debug.PrintStack()
			}
			err2, ok := err1.(error)
			if ok {
				err = err2
				zap.S().Error(err2.Error())
			}
		}
	}()
	db := a.gormDB
	if track {
		db = db.Debug()
	}
	return db.Migrator().AutoMigrate(domain.Tables...)
}

func (a *Application) DropAll() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
}

func (a *Application) InitDb() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
	err := a.gormDB.Migrator().AutoMigrate(domain.Tables...)
	if err != nil {
		zap.S().Error(err)
	}
}

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		a.sched.Stop()
	}
	if a.bus != nil {
		a.bus.WaitAsync()
	}
	if a.mailer != nil {
		a.mailer.Release()
	}
	_ = zap.L().Sync()
}
