package storeapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/supplydropp/provisioning/internal/app"
	"github.com/supplydropp/provisioning/internal/catalog"
	"github.com/supplydropp/provisioning/internal/order"
	"github.com/supplydropp/provisioning/internal/webserver"
	"github.com/supplydropp/provisioning/pkg/common"
	"go.uber.org/zap"
)

const (
	sessionName = "supplydrop"
	sessionKey  = "sid"
)

var errNoSession = errors.New("no cart session")

func ok(c echo.Context, data interface{}) error {
	return webserver.OK(c, data)
}

func fail(c echo.Context, status int, code, message string, details interface{}) error {
	return webserver.Fail(c, status, code, message, details)
}

func GetAppContext(c echo.Context) app.AppContext {
	return c.Get(webserver.AppContextKey).(app.AppContext)
}

func GetCatalog(c echo.Context) *catalog.Catalog {
	return GetAppContext(c).Catalog()
}

// cartSession returns the cart session id of the request, creating the cookie when asked to.
// Every call pushes the cookie expiry cart_idle_ttl seconds ahead, so the session
// outlives its cart by construction and idle eviction only reaps ended sessions.
func cartSession(c echo.Context, create bool) (string, error) {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return "", err
	}
	sid, _ := sess.Values[sessionKey].(string)
	if sid == "" {
		if !create {
			return "", errNoSession
		}
		sid = common.UUID()
		sess.Values[sessionKey] = sid
		GetAppContext(c).Carts().Open(sid)
	}
	sess.Options.Path = "/"
	sess.Options.HttpOnly = true
	sess.Options.MaxAge = sessionMaxAge(c)
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return "", err
	}
	return sid, nil
}

// sessionMaxAge is the cart idle ttl; zero keeps a browser session cookie
func sessionMaxAge(c echo.Context) int {
	ttl := GetAppContext(c).Config().Order.CartIdleTTL
	if ttl < 0 {
		return 0
	}
	return ttl
}

// parseScheduled accepts any common date layout; empty means now
func parseScheduled(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	return dateparse.ParseIn(s, time.Local)
}

// failErr maps order and repository errors to an HTTP response
func failErr(c echo.Context, err error, what string) error {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return fail(c, http.StatusNotFound, "NOT_FOUND", what+" not found", nil)
	case errors.Is(err, order.ErrSubmitInFlight):
		return fail(c, http.StatusTooManyRequests, "SUBMIT_IN_FLIGHT", "An order is already being submitted", nil)
	case errors.Is(err, order.ErrEmptyOrder):
		return fail(c, http.StatusBadRequest, "EMPTY_ORDER", "There is nothing to order", nil)
	case errors.Is(err, order.ErrPackUnavailable):
		return fail(c, http.StatusConflict, "PACK_UNAVAILABLE", "This pack is no longer available", nil)
	case errors.Is(err, order.ErrNotOwner):
		return fail(c, http.StatusForbidden, "FORBIDDEN", "Order belongs to another user", nil)
	case errors.Is(err, order.ErrInvalidTransition), errors.Is(err, order.ErrTerminalState):
		return fail(c, http.StatusConflict, "INVALID_TRANSITION", "Order status cannot change", err.Error())
	}
	zap.L().Error("store request failed", zap.String("path", c.Path()), zap.Error(err))
	return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to process "+strings.ToLower(what), err.Error())
}
