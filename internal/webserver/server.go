package webserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/sessions"
	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/supplydropp/provisioning/config"
	"go.uber.org/zap"
)

const (
	ApiPrefix     = "/api/v1"
	AppContextKey = "appCtx"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type jsonSerializer struct{}

func (jsonSerializer) Serialize(c echo.Context, i interface{}, indent string) error {
	enc := json.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (jsonSerializer) Deserialize(c echo.Context, i interface{}) error {
	err := json.NewDecoder(c.Request().Body).Decode(i)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}
	return nil
}

type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// Server is the HTTP front of the service
type Server struct {
	root *echo.Echo
	cfg  *config.AppConfig
}

// NewServer builds the echo instance and mounts every registered route.
// appCtx is made available to handlers under AppContextKey.
func NewServer(cfg *config.AppConfig, appCtx interface{}) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(log.OFF)
	e.JSONSerializer = jsonSerializer{}
	e.Validator = &requestValidator{validate: validator.New()}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				zap.L().Warn("request failed", append(fields, zap.Error(v.Error))...)
				return nil
			}
			zap.L().Debug("request", fields...)
			return nil
		},
	}))
	e.Use(session.Middleware(sessions.NewCookieStore([]byte(cfg.Web.SessionSecret))))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(AppContextKey, appCtx)
			return next(c)
		}
	})

	api := e.Group(ApiPrefix)
	for _, r := range Routes() {
		api.Add(r.Method, r.Path, r.Handler)
	}
	return &Server{root: e, cfg: cfg}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.root
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Web.Host, s.cfg.Web.Port)
	zap.S().Infof("Starting web server at %s", addr)
	err := s.root.Start(addr)
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.root.Shutdown(ctx)
}
