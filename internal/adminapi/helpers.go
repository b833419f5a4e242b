package adminapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/supplydropp/provisioning/internal/app"
	"github.com/supplydropp/provisioning/internal/catalog"
	"github.com/supplydropp/provisioning/internal/order"
	"github.com/supplydropp/provisioning/internal/webserver"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func ok(c echo.Context, data interface{}) error {
	return webserver.OK(c, data)
}

func paged(c echo.Context, data interface{}, total int64, page, pageSize int) error {
	return webserver.Paged(c, data, total, page, pageSize)
}

func fail(c echo.Context, status int, code, message string, details interface{}) error {
	return webserver.Fail(c, status, code, message, details)
}

func handleValidationError(c echo.Context, err error) error {
	return webserver.ValidationFailed(c, err)
}

func parsePagination(c echo.Context) (int, int) {
	return webserver.ParsePagination(c)
}

// parseIDParam returns a trimmed, non-empty document id path parameter
func parseIDParam(c echo.Context, name string) (string, error) {
	id := strings.TrimSpace(c.Param(name))
	if id == "" {
		return "", errors.New("empty id")
	}
	return id, nil
}

// GetAppContext returns the application context stored by the web server
func GetAppContext(c echo.Context) app.AppContext {
	return c.Get(webserver.AppContextKey).(app.AppContext)
}

func GetDB(c echo.Context) *gorm.DB {
	return GetAppContext(c).DB()
}

func GetCatalog(c echo.Context) *catalog.Catalog {
	return GetAppContext(c).Catalog()
}

// failErr maps repository and lifecycle errors to an HTTP response
func failErr(c echo.Context, err error, what string) error {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return fail(c, http.StatusNotFound, "NOT_FOUND", what+" not found", nil)
	case errors.Is(err, catalog.ErrUnknownField):
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unknown field", err.Error())
	case errors.Is(err, order.ErrInvalidTransition), errors.Is(err, order.ErrTerminalState):
		return fail(c, http.StatusConflict, "INVALID_TRANSITION", "Order status cannot change", err.Error())
	case errors.Is(err, order.ErrUnknownStatus):
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unknown order status", err.Error())
	}
	zap.L().Error("admin request failed", zap.String("path", c.Path()), zap.Error(err))
	return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to process "+strings.ToLower(what), err.Error())
}
