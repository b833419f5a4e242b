package adminapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/supplydropp/provisioning/internal/catalog"
	"github.com/supplydropp/provisioning/internal/domain"
	"github.com/supplydropp/provisioning/internal/webserver"
)

type userUpdatePayload struct {
	Role              *string `json:"role" validate:"omitempty,oneof=guest host admin"`
	HotelID           *string `json:"hotel_id"`
	CurrentPropertyID *string `json:"current_property_id"`
}

func registerUserRoutes() {
	webserver.ApiGET("/admin/users", listUsers)
	webserver.ApiGET("/admin/users/:id", getUser)
	webserver.ApiPUT("/admin/users/:id", updateUser)
}

var userSorts = map[string]bool{
	"name":       true,
	"email":      true,
	"role":       true,
	"created_at": true,
}

func listUsers(c echo.Context) error {
	page, pageSize := parsePagination(c)

	filters := []catalog.Filter{
		catalog.Search("name", c.QueryParam("q")),
		catalog.Search("email", c.QueryParam("email")),
	}
	if role := strings.TrimSpace(c.QueryParam("role")); role != "" {
		filters = append(filters, catalog.Eq("role", role))
	}
	if pid := strings.TrimSpace(c.QueryParam("property_id")); pid != "" {
		filters = append(filters, catalog.Eq("current_property_id", pid))
	}

	repo := GetCatalog(c).Users
	total, err := repo.Count(c.Request().Context(), filters...)
	if err != nil {
		return failErr(c, err, "Users")
	}
	rows, err := repo.List(c.Request().Context(),
		append(filters, sortFilter(c, userSorts, "created_at"), catalog.Page(page, pageSize))...)
	if err != nil {
		return failErr(c, err, "Users")
	}
	return paged(c, rows, total, page, pageSize)
}

func getUser(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid user ID", nil)
	}
	u, err := GetCatalog(c).Users.Get(c.Request().Context(), id)
	if err != nil {
		return failErr(c, err, "User")
	}
	return ok(c, u)
}

// emptyToNil clears a reference when the client sends an empty string
func emptyToNil(s *string) interface{} {
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return v
}

func updateUser(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid user ID", nil)
	}
	var payload userUpdatePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse user", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	ctx := c.Request().Context()
	cat := GetCatalog(c)
	fields := map[string]interface{}{}
	if payload.Role != nil {
		fields["role"] = *payload.Role
	}
	if payload.HotelID != nil {
		fields["hotel_id"] = emptyToNil(payload.HotelID)
	}
	if payload.CurrentPropertyID != nil {
		pid := emptyToNil(payload.CurrentPropertyID)
		if pid != nil {
			if _, err := cat.Properties.Get(ctx, pid.(string)); err != nil {
				return failErr(c, err, "Property")
			}
		}
		fields["current_property_id"] = pid
	}

	if err := cat.Users.Update(ctx, id, fields); err != nil {
		return failErr(c, err, "User")
	}
	u, err := cat.Users.Get(ctx, id)
	if err != nil {
		return failErr(c, err, "User")
	}
	return ok(c, u)
}

// ownerOf picks the first host, then the first admin, then anyone attached to the property
func ownerOf(users []domain.User) *domain.User {
	for _, role := range []string{domain.RoleHost, domain.RoleAdmin} {
		for i := range users {
			if users[i].Role == role {
				return &users[i]
			}
		}
	}
	if len(users) > 0 {
		return &users[0]
	}
	return nil
}
