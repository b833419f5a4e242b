package config

import (
	"os"
	"path"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// SysConfig system configuration
type SysConfig struct {
	Appid    string `yaml:"appid" json:"appid"`
	Location string `yaml:"location" json:"location"`
	Workdir  string `yaml:"workdir" json:"workdir"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

// WebConfig web server configuration
type WebConfig struct {
	Host          string `yaml:"host" json:"host"`
	Port          int    `yaml:"port" json:"port"`
	SessionSecret string `yaml:"session_secret" json:"session_secret"`
}

// DBConfig database configuration
type DBConfig struct {
	Type     string `yaml:"type" json:"type"` // postgres or sqlite
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Name     string `yaml:"name" json:"name"`
	User     string `yaml:"user" json:"user"`
	Passwd   string `yaml:"passwd" json:"passwd"`
	MaxConn  int    `yaml:"max_conn" json:"max_conn"`
	IdleConn int    `yaml:"idle_conn" json:"idle_conn"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

// LogConfig logger configuration
type LogConfig struct {
	Mode       string `yaml:"mode" json:"mode"` // development or production
	FileEnable bool   `yaml:"file_enable" json:"file_enable"`
	Filename   string `yaml:"filename" json:"filename"`
}

// PricingConfig drives suggested prices and margin bands.
// DefaultMargin applies when a pack has neither an override nor a target margin.
type PricingConfig struct {
	DefaultMargin float64 `yaml:"default_margin" json:"default_margin"`
	MarginalFloor float64 `yaml:"marginal_floor" json:"marginal_floor"`
}

// OrderConfig order placement settings
type OrderConfig struct {
	DeliveryFee float64 `yaml:"delivery_fee" json:"delivery_fee"`
	CartIdleTTL int     `yaml:"cart_idle_ttl" json:"cart_idle_ttl"` // seconds, also the session cookie max age; 0 disables eviction
}

// NotifyConfig SMTP settings for order notifications
type NotifyConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	SmtpHost string `yaml:"smtp_host" json:"smtp_host"`
	SmtpPort int    `yaml:"smtp_port" json:"smtp_port"`
	SmtpUser string `yaml:"smtp_user" json:"smtp_user"`
	SmtpPwd  string `yaml:"smtp_pwd" json:"smtp_pwd"`
	From     string `yaml:"from" json:"from"`
	To       string `yaml:"to" json:"to"`
	Workers  int    `yaml:"workers" json:"workers"`
}

type AppConfig struct {
	System   SysConfig     `yaml:"system" json:"system"`
	Web      WebConfig     `yaml:"web" json:"web"`
	Database DBConfig      `yaml:"database" json:"database"`
	Logger   LogConfig     `yaml:"logger" json:"logger"`
	Pricing  PricingConfig `yaml:"pricing" json:"pricing"`
	Order    OrderConfig   `yaml:"order" json:"order"`
	Notify   NotifyConfig  `yaml:"notify" json:"notify"`
}

func (c *AppConfig) GetLogDir() string {
	return path.Join(c.System.Workdir, "logs")
}

func (c *AppConfig) GetDataDir() string {
	return path.Join(c.System.Workdir, "data")
}

func (c *AppConfig) initDirs() {
	_ = os.MkdirAll(c.GetLogDir(), 0o755)
	_ = os.MkdirAll(c.GetDataDir(), 0o755)
}

// DefaultAppConfig returns the built-in configuration
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		System: SysConfig{
			Appid:    "SupplyDrop",
			Location: "Europe/Madrid",
			Workdir:  "/var/supplydrop",
		},
		Web: WebConfig{
			Host:          "0.0.0.0",
			Port:          1816,
			SessionSecret: "change-me",
		},
		Database: DBConfig{
			Type:     "postgres",
			Host:     "127.0.0.1",
			Port:     5432,
			Name:     "supplydrop",
			User:     "postgres",
			Passwd:   "postgres",
			MaxConn:  100,
			IdleConn: 10,
		},
		Logger: LogConfig{
			Mode:     "development",
			Filename: "/var/supplydrop/logs/supplydrop.log",
		},
		Pricing: PricingConfig{
			DefaultMargin: 0.35,
			MarginalFloor: 0.20,
		},
		Order: OrderConfig{
			DeliveryFee: 5.0,
			CartIdleTTL: 86400,
		},
		Notify: NotifyConfig{
			SmtpPort: 587,
			Workers:  4,
		},
	}
}

// LoadConfig reads the YAML file when present, then applies SUPPLYDROP_* environment overrides.
func LoadConfig(cfile string) *AppConfig {
	cfg := DefaultAppConfig()
	if cfile != "" {
		if data, err := os.ReadFile(cfile); err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				panic(err)
			}
		} else if !os.IsNotExist(err) {
			panic(err)
		}
	}
	applyEnv(cfg)
	if cfg.System.Workdir != "" {
		cfg.initDirs()
	}
	return cfg
}

func applyEnv(cfg *AppConfig) {
	setString("SUPPLYDROP_WORKDIR", &cfg.System.Workdir)
	setString("SUPPLYDROP_LOCATION", &cfg.System.Location)
	setBool("SUPPLYDROP_DEBUG", &cfg.System.Debug)

	setString("SUPPLYDROP_WEB_HOST", &cfg.Web.Host)
	setInt("SUPPLYDROP_WEB_PORT", &cfg.Web.Port)
	setString("SUPPLYDROP_SESSION_SECRET", &cfg.Web.SessionSecret)

	setString("SUPPLYDROP_DB_TYPE", &cfg.Database.Type)
	setString("SUPPLYDROP_DB_HOST", &cfg.Database.Host)
	setInt("SUPPLYDROP_DB_PORT", &cfg.Database.Port)
	setString("SUPPLYDROP_DB_NAME", &cfg.Database.Name)
	setString("SUPPLYDROP_DB_USER", &cfg.Database.User)
	setString("SUPPLYDROP_DB_PWD", &cfg.Database.Passwd)
	setBool("SUPPLYDROP_DB_DEBUG", &cfg.Database.Debug)

	setString("SUPPLYDROP_LOGGER_MODE", &cfg.Logger.Mode)
	setBool("SUPPLYDROP_LOGGER_FILE_ENABLE", &cfg.Logger.FileEnable)

	setFloat("SUPPLYDROP_DEFAULT_MARGIN", &cfg.Pricing.DefaultMargin)
	setFloat("SUPPLYDROP_MARGINAL_FLOOR", &cfg.Pricing.MarginalFloor)
	setFloat("SUPPLYDROP_DELIVERY_FEE", &cfg.Order.DeliveryFee)
	setInt("SUPPLYDROP_CART_IDLE_TTL", &cfg.Order.CartIdleTTL)

	setBool("SUPPLYDROP_NOTIFY_ENABLED", &cfg.Notify.Enabled)
	setString("SUPPLYDROP_SMTP_HOST", &cfg.Notify.SmtpHost)
	setInt("SUPPLYDROP_SMTP_PORT", &cfg.Notify.SmtpPort)
	setString("SUPPLYDROP_SMTP_USER", &cfg.Notify.SmtpUser)
	setString("SUPPLYDROP_SMTP_PWD", &cfg.Notify.SmtpPwd)
	setString("SUPPLYDROP_NOTIFY_FROM", &cfg.Notify.From)
	setString("SUPPLYDROP_NOTIFY_TO", &cfg.Notify.To)
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(name)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func setString(name string, dst *string) {
	if v, ok := lookup(name); ok {
		*dst = v
	}
}

func setInt(name string, dst *int) {
	if v, ok := lookup(name); ok {
		if n, err := cast.ToIntE(v); err == nil {
			*dst = n
		}
	}
}

func setBool(name string, dst *bool) {
	if v, ok := lookup(name); ok {
		if b, err := cast.ToBoolE(v); err == nil {
			*dst = b
		}
	}
}

func setFloat(name string, dst *float64) {
	if v, ok := lookup(name); ok {
		if f, err := cast.ToFloat64E(v); err == nil {
			*dst = f
		}
	}
}
