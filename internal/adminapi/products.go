package adminapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
	"github.com/supplydropp/provisioning/internal/catalog"
	"github.com/supplydropp/provisioning/internal/domain"
	"github.com/supplydropp/provisioning/internal/webserver"
)

type productPayload struct {
	Name          string   `json:"name" validate:"required,min=1,max=200"`
	Description   string   `json:"description" validate:"max=2000"`
	Supplier      string   `json:"supplier" validate:"required,oneof=Mercadona Carrefour"`
	CostPrice     float64  `json:"cost_price" validate:"gte=0"`
	DefaultMarkup *float64 `json:"default_markup" validate:"omitempty,gte=0"`
	Active        *bool    `json:"active"`
	ImageUrl      string   `json:"image_url" validate:"omitempty,url"`
	ImageThumb    string   `json:"image_thumb" validate:"omitempty,url"`
}

// registerProductRoutes registers product CRUD endpoints
func registerProductRoutes() {
	webserver.ApiGET("/admin/catalog/products", listProducts)
	webserver.ApiGET("/admin/catalog/products/:id", getProduct)
	webserver.ApiPOST("/admin/catalog/products", createProduct)
	webserver.ApiPUT("/admin/catalog/products/:id", updateProduct)
	webserver.ApiDELETE("/admin/catalog/products/:id", deleteProduct)
}

// productSorts whitelists the sortable columns
var productSorts = map[string]bool{
	"name":       true,
	"supplier":   true,
	"cost_price": true,
	"created_at": true,
	"updated_at": true,
}

func sortFilter(c echo.Context, allowed map[string]bool, fallback string) catalog.Filter {
	field := strings.TrimSpace(c.QueryParam("sort"))
	if !allowed[field] {
		field = fallback
	}
	desc := !strings.EqualFold(strings.TrimSpace(c.QueryParam("order")), "ASC")
	return catalog.OrderBy(field, desc)
}

func listProducts(c echo.Context) error {
	page, pageSize := parsePagination(c)

	filters := []catalog.Filter{catalog.Search("name", c.QueryParam("q"))}
	if supplier := strings.TrimSpace(c.QueryParam("supplier")); supplier != "" {
		filters = append(filters, catalog.Eq("supplier", supplier))
	}
	if active := strings.TrimSpace(c.QueryParam("active")); active != "" {
		b, err := cast.ToBoolE(active)
		if err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "active must be a boolean", active)
		}
		filters = append(filters, catalog.Eq("active", b))
	}

	repo := GetCatalog(c).Products
	total, err := repo.Count(c.Request().Context(), filters...)
	if err != nil {
		return failErr(c, err, "Products")
	}
	rows, err := repo.List(c.Request().Context(),
		append(filters, sortFilter(c, productSorts, "created_at"), catalog.Page(page, pageSize))...)
	if err != nil {
		return failErr(c, err, "Products")
	}
	return paged(c, rows, total, page, pageSize)
}

func getProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	p, err := GetCatalog(c).Products.Get(c.Request().Context(), id)
	if err != nil {
		return failErr(c, err, "Product")
	}
	return ok(c, p)
}

func bindProduct(c echo.Context) (*productPayload, error) {
	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return nil, fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", err.Error())
	}
	payload.Name = strings.TrimSpace(payload.Name)
	payload.Supplier = strings.TrimSpace(payload.Supplier)
	if err := c.Validate(&payload); err != nil {
		return nil, handleValidationError(c, err)
	}
	return &payload, nil
}

func createProduct(c echo.Context) error {
	payload, err := bindProduct(c)
	if payload == nil {
		return err
	}
	p := domain.Product{
		Name:          payload.Name,
		Description:   payload.Description,
		Supplier:      payload.Supplier,
		CostPrice:     payload.CostPrice,
		DefaultMarkup: domain.DefaultMarkup,
		Active:        true,
		ImageUrl:      strings.TrimSpace(payload.ImageUrl),
		ImageThumb:    strings.TrimSpace(payload.ImageThumb),
	}
	if payload.DefaultMarkup != nil {
		p.DefaultMarkup = *payload.DefaultMarkup
	}
	if payload.Active != nil {
		p.Active = *payload.Active
	}
	if err := GetCatalog(c).Products.Create(c.Request().Context(), &p); err != nil {
		return failErr(c, err, "Product")
	}
	return ok(c, p)
}

func updateProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	payload, err := bindProduct(c)
	if payload == nil {
		return err
	}

	fields := map[string]interface{}{
		"name":        payload.Name,
		"description": payload.Description,
		"supplier":    payload.Supplier,
		"cost_price":  payload.CostPrice,
		"image_url":   strings.TrimSpace(payload.ImageUrl),
		"image_thumb": strings.TrimSpace(payload.ImageThumb),
	}
	if payload.DefaultMarkup != nil {
		fields["default_markup"] = *payload.DefaultMarkup
	}
	if payload.Active != nil {
		fields["active"] = *payload.Active
	}

	repo := GetCatalog(c).Products
	if err := repo.Update(c.Request().Context(), id, fields); err != nil {
		return failErr(c, err, "Product")
	}
	p, err := repo.Get(c.Request().Context(), id)
	if err != nil {
		return failErr(c, err, "Product")
	}
	return ok(c, p)
}

// deleteProduct removes the product. Pack items and orders keep the id and render it as unknown.
func deleteProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	if err := GetCatalog(c).Products.Delete(c.Request().Context(), id); err != nil {
		return failErr(c, err, "Product")
	}
	return ok(c, map[string]interface{}{"id": id})
}
