package storeapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/supplydropp/provisioning/internal/catalog"
	"github.com/supplydropp/provisioning/internal/domain"
	"github.com/supplydropp/provisioning/internal/webserver"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type newPropertyPayload struct {
	UserID  string `json:"user_id" validate:"required"`
	Name    string `json:"name" validate:"required,min=1,max=200"`
	Code    string `json:"code" validate:"required,min=1,max=64"`
	Address string `json:"address" validate:"max=500"`
}

type joinPayload struct {
	UserID string `json:"user_id" validate:"required"`
	Code   string `json:"code" validate:"required,min=1,max=64"`
}

func registerPropertyRoutes() {
	webserver.ApiPOST("/properties", createMyProperty)
	webserver.ApiPOST("/properties/join", joinProperty)
}

// property codes are shared out loud, so they match case-insensitively
func normalizeCode(s string) string {
	return cases.Upper(language.Und).String(strings.TrimSpace(s))
}

func setCurrentProperty(c echo.Context, userID, propertyID string) error {
	return GetCatalog(c).Users.Update(c.Request().Context(), userID,
		map[string]interface{}{"current_property_id": propertyID})
}

// createMyProperty registers a property for a host and makes it their current one
func createMyProperty(c echo.Context) error {
	var payload newPropertyPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse property", err.Error())
	}
	payload.UserID = strings.TrimSpace(payload.UserID)
	payload.Name = strings.TrimSpace(payload.Name)
	payload.Code = normalizeCode(payload.Code)
	payload.Address = strings.TrimSpace(payload.Address)
	if err := c.Validate(&payload); err != nil {
		return webserver.ValidationFailed(c, err)
	}

	ctx := c.Request().Context()
	cat := GetCatalog(c)
	user, err := cat.Users.Get(ctx, payload.UserID)
	if err != nil {
		return failErr(c, err, "User")
	}
	if user.Role != domain.RoleHost && user.Role != domain.RoleAdmin {
		return fail(c, http.StatusForbidden, "FORBIDDEN", "Only hosts can register a property", nil)
	}
	n, err := cat.Properties.Count(ctx, catalog.Eq("code", payload.Code))
	if err != nil {
		return failErr(c, err, "Property")
	}
	if n > 0 {
		return fail(c, http.StatusConflict, "PROPERTY_EXISTS", "Property code already exists", nil)
	}

	p := domain.Property{Name: payload.Name, Code: payload.Code, Address: payload.Address, Active: true}
	if err := cat.Properties.Create(ctx, &p); err != nil {
		return failErr(c, err, "Property")
	}
	if err := setCurrentProperty(c, user.ID, p.ID); err != nil {
		return failErr(c, err, "User")
	}
	return c.JSON(http.StatusCreated, webserver.Response{Data: p})
}

// joinProperty points the user at the active property with the given code
func joinProperty(c echo.Context) error {
	var payload joinPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", err.Error())
	}
	payload.UserID = strings.TrimSpace(payload.UserID)
	payload.Code = normalizeCode(payload.Code)
	if err := c.Validate(&payload); err != nil {
		return webserver.ValidationFailed(c, err)
	}

	ctx := c.Request().Context()
	cat := GetCatalog(c)
	user, err := cat.Users.Get(ctx, payload.UserID)
	if err != nil {
		return failErr(c, err, "User")
	}
	rows, err := cat.Properties.List(ctx, catalog.Eq("code", payload.Code), catalog.Eq("active", true))
	if err != nil {
		return failErr(c, err, "Property")
	}
	if len(rows) == 0 {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "No active property with this code", nil)
	}
	if err := setCurrentProperty(c, user.ID, rows[0].ID); err != nil {
		return failErr(c, err, "User")
	}
	return ok(c, rows[0])
}
