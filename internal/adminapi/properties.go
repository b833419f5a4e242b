package adminapi

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

type propertyPayload struct {
	Name    string `json:"name" validate:"required,min=1,max=200"`
	Code    string `json:"code" validate:"required,min=1,max=64"`
	Address string `json:"address" validate:"max=500"`
	Active  *bool  `json:"active"`
}

type propertyView struct {
	domain.Property
	OwnerName  string `json:"owner_name,omitempty"`
	OwnerEmail string `json:"owner_email,omitempty"`
}

// casers are stateful, so each call gets its own
func fold(s string) string {
	return cases.Fold().String(s)
}

func upperCode(s string) string {
	return cases.Upper(language.Und).String(s)
}

func registerPropertyRoutes() {
	webserver.ApiGET("/admin/properties", listProperties)
	webserver.ApiGET("/admin/properties/:id", getProperty)
	webserver.ApiPOST("/admin/properties", createProperty)
	webserver.ApiPUT("/admin/properties/:id", updateProperty)
}

// withOwners attaches the derived owner of every property
func withOwners(c echo.Context, props []domain.Property) ([]propertyView, error) {
	ids := make([]string, 0, len(props))
	for _, p := range props {
		ids = append(ids, p.ID)
	}
	users, err := GetCatalog(c).Users.List(c.Request().Context(),
		catalog.In("current_property_id", ids), catalog.OrderBy("created_at", false))
	if err != nil {
		return nil, err
	}
	byProperty := make(map[string][]domain.User)
	for _, u := range users {
		if u.CurrentPropertyID != nil {
			byProperty[*u.CurrentPropertyID] = append(byProperty[*u.CurrentPropertyID], u)
		}
	}
	views := make([]propertyView, 0, len(props))
	for _, p := range props {
		v := propertyView{Property: p}
		if owner := ownerOf(byProperty[p.ID]); owner != nil {
			v.OwnerName = owner.Name
			v.OwnerEmail = owner.Email
		}
		views = append(views, v)
	}
	return views, nil
}

func (v propertyView) matches(q string) bool {
	for _, s := range []string{v.Name, v.Code, v.Address, v.OwnerName, v.OwnerEmail} {
		if strings.Contains(fold(s), q) {
			return true
		}
	}
	return false
}

// listProperties searches name, code, address and owner. The owner is derived,
// so the search runs after the join.
func listProperties(c echo.Context) error {
	page, pageSize := parsePagination(c)
	props, err := GetCatalog(c).Properties.List(c.Request().Context(), catalog.OrderBy("name", false))
	if err != nil {
		return failErr(c, err, "Properties")
	}
	views, err := withOwners(c, props)
	if err != nil {
		return failErr(c, err, "Users")
	}

	if q := fold(strings.TrimSpace(c.QueryParam("q"))); q != "" {
		filtered := views[:0]
		for _, v := range views {
			if v.matches(q) {
				filtered = append(filtered, v)
			}
		}
		views = filtered
	}

	total := int64(len(views))
	start := (page - 1) * pageSize
	if start > len(views) {
		start = len(views)
	}
	end := start + pageSize
	if end > len(views) {
		end = len(views)
	}
	return paged(c, views[start:end], total, page, pageSize)
}

func getProperty(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid property ID", nil)
	}
	p, err := GetCatalog(c).Properties.Get(c.Request().Context(), id)
	if err != nil {
		return failErr(c, err, "Property")
	}
	views, err := withOwners(c, []domain.Property{*p})
	if err != nil {
		return failErr(c, err, "Users")
	}
	return ok(c, views[0])
}

func bindProperty(c echo.Context) (*propertyPayload, error) {
	var payload propertyPayload
	if err := c.Bind(&payload); err != nil {
		return nil, fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse property", err.Error())
	}
	payload.Name = strings.TrimSpace(payload.Name)
	payload.Code = upperCode(strings.TrimSpace(payload.Code))
	payload.Address = strings.TrimSpace(payload.Address)
	if err := c.Validate(&payload); err != nil {
		return nil, handleValidationError(c, err)
	}
	return &payload, nil
}

func codeTaken(c echo.Context, code, exceptID string) (bool, error) {
	rows, err := GetCatalog(c).Properties.List(c.Request().Context(), catalog.Eq("code", code))
	if err != nil {
		return false, err
	}
	for _, p := range rows {
		if p.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

func createProperty(c echo.Context) error {
	payload, err := bindProperty(c)
	if payload == nil {
		return err
	}
	taken, err := codeTaken(c, payload.Code, "")
	if err != nil {
		return failErr(c, err, "Property")
	}
	if taken {
		return fail(c, http.StatusConflict, "PROPERTY_EXISTS", "Property code already exists", nil)
	}
	p := domain.Property{Name: payload.Name, Code: payload.Code, Address: payload.Address, Active: true}
	if payload.Active != nil {
		p.Active = *payload.Active
	}
	if err := GetCatalog(c).Properties.Create(c.Request().Context(), &p); err != nil {
		return failErr(c, err, "Property")
	}
	return ok(c, p)
}

func updateProperty(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid property ID", nil)
	}
	payload, err := bindProperty(c)
	if payload == nil {
		return err
	}
	taken, err := codeTaken(c, payload.Code, id)
	if err != nil {
		return failErr(c, err, "Property")
	}
	if taken {
		return fail(c, http.StatusConflict, "PROPERTY_EXISTS", "Property code already exists", nil)
	}
	fields := map[string]interface{}{
		"name":    payload.Name,
		"code":    payload.Code,
		"address": payload.Address,
	}
	if payload.Active != nil {
		fields["active"] = *payload.Active
	}
	repo := GetCatalog(c).Properties
	if err := repo.Update(c.Request().Context(), id, fields); err != nil {
		return failErr(c, err, "Property")
	}
	p, err := repo.Get(c.Request().Context(), id)
	if err != nil {
		return failErr(c, err, "Property")
	}
	return ok(c, p)
}
