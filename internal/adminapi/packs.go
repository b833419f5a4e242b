package adminapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
	"github.com/supplydropp/provisioning/internal/catalog"
	"github.com/supplydropp/provisioning/internal/domain"
	"github.com/supplydropp/provisioning/internal/pricing"
	"github.com/supplydropp/provisioning/internal/webserver"
)

type packItemPayload struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=1"`
}

type packPayload struct {
	Name           string            `json:"name" validate:"required,min=1,max=200"`
	Description    string            `json:"description" validate:"max=2000"`
	Price          float64           `json:"price" validate:"gte=0"`
	Type           string            `json:"type" validate:"required,oneof=guest host"`
	TargetMargin   *float64          `json:"target_margin" validate:"omitempty,gte=0,lt=1"`
	OverrideMargin *float64          `json:"override_margin" validate:"omitempty,gte=0,lt=1"`
	Active         *bool             `json:"active"`
	ImageUrl       string            `json:"image_url" validate:"omitempty,url"`
	Items          []packItemPayload `json:"items" validate:"dive"`
}

type previewPayload struct {
	Price          float64           `json:"price" validate:"gte=0"`
	TargetMargin   *float64          `json:"target_margin" validate:"omitempty,gte=0,lt=1"`
	OverrideMargin *float64          `json:"override_margin" validate:"omitempty,gte=0,lt=1"`
	Items          []packItemPayload `json:"items" validate:"dive"`
}

// packItemView is a pack item joined with its product
type packItemView struct {
	ID        string  `json:"id"`
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Name      string  `json:"name"`
	Supplier  string  `json:"supplier"`
	CostPrice float64 `json:"cost_price"`
	Resolved  bool    `json:"resolved"`
}

type packDetail struct {
	*domain.Pack
	Items   []packItemView  `json:"items"`
	Pricing pricing.Summary `json:"pricing"`
}

func registerPackRoutes() {
	webserver.ApiGET("/admin/catalog/packs", listPacks)
	webserver.ApiGET("/admin/catalog/packs/:id", getPack)
	webserver.ApiGET("/admin/catalog/packs/:id/pricing", getPackPricing)
	webserver.ApiPOST("/admin/catalog/packs", createPack)
	webserver.ApiPUT("/admin/catalog/packs/:id", updatePack)
	webserver.ApiDELETE("/admin/catalog/packs/:id", deletePack)
	webserver.ApiPOST("/admin/catalog/pricing/preview", previewPricing)
}

var packSorts = map[string]bool{
	"name":       true,
	"price":      true,
	"type":       true,
	"created_at": true,
	"updated_at": true,
}

func listPacks(c echo.Context) error {
	page, pageSize := parsePagination(c)

	filters := []catalog.Filter{catalog.Search("name", c.QueryParam("q"))}
	if typ := strings.TrimSpace(c.QueryParam("type")); typ != "" {
		filters = append(filters, catalog.Eq("type", typ))
	}
	if active := strings.TrimSpace(c.QueryParam("active")); active != "" {
		b, err := cast.ToBoolE(active)
		if err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "active must be a boolean", active)
		}
		filters = append(filters, catalog.Eq("active", b))
	}

	repo := GetCatalog(c).Packs
	total, err := repo.Count(c.Request().Context(), filters...)
	if err != nil {
		return failErr(c, err, "Packs")
	}
	rows, err := repo.List(c.Request().Context(),
		append(filters, sortFilter(c, packSorts, "created_at"), catalog.Page(page, pageSize))...)
	if err != nil {
		return failErr(c, err, "Packs")
	}
	return paged(c, rows, total, page, pageSize)
}

func itemViews(view *catalog.PackView) []packItemView {
	out := make([]packItemView, 0, len(view.Items))
	for _, it := range view.Items {
		v := packItemView{ID: it.ID, ProductID: it.ProductID, Quantity: it.Quantity, Name: domain.UnknownItemLabel}
		if p, found := pricing.ResolveProduct(view.Products, it.ProductID); found {
			v.Name = p.Name
			v.Supplier = p.Supplier
			v.CostPrice = p.CostPrice
			v.Resolved = true
		}
		out = append(out, v)
	}
	return out
}

func getPack(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid pack ID", nil)
	}
	view, err := GetCatalog(c).LoadPack(c.Request().Context(), id)
	if err != nil {
		return failErr(c, err, "Pack")
	}
	policy := GetAppContext(c).PricingPolicy()
	return ok(c, packDetail{
		Pack:    view.Pack,
		Items:   itemViews(view),
		Pricing: policy.Summarize(*view.Pack, pricing.LinesOf(view.Items), view.Products),
	})
}

func getPackPricing(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid pack ID", nil)
	}
	view, err := GetCatalog(c).LoadPack(c.Request().Context(), id)
	if err != nil {
		return failErr(c, err, "Pack")
	}
	policy := GetAppContext(c).PricingPolicy()
	return ok(c, policy.Summarize(*view.Pack, pricing.LinesOf(view.Items), view.Products))
}

func bindPack(c echo.Context) (*packPayload, error) {
	var payload packPayload
	if err := c.Bind(&payload); err != nil {
		return nil, fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse pack", err.Error())
	}
	payload.Name = strings.TrimSpace(payload.Name)
	if err := c.Validate(&payload); err != nil {
		return nil, handleValidationError(c, err)
	}
	return &payload, nil
}

func (p *packPayload) packItems() []domain.PackItem {
	items := make([]domain.PackItem, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, domain.PackItem{ProductID: strings.TrimSpace(it.ProductID), Quantity: it.Quantity})
	}
	return items
}

func (p *packPayload) apply(pack *domain.Pack) {
	pack.Name = p.Name
	pack.Description = p.Description
	pack.Price = p.Price
	pack.Type = p.Type
	pack.TargetMargin = p.TargetMargin
	pack.OverrideMargin = p.OverrideMargin
	pack.ImageUrl = strings.TrimSpace(p.ImageUrl)
	if p.Active != nil {
		pack.Active = *p.Active
	}
}

func createPack(c echo.Context) error {
	payload, err := bindPack(c)
	if payload == nil {
		return err
	}
	pack := &domain.Pack{Active: true}
	payload.apply(pack)
	return savePack(c, pack, payload.packItems())
}

// updatePack overwrites the pack fields and replaces its items as one set
func updatePack(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid pack ID", nil)
	}
	payload, err := bindPack(c)
	if payload == nil {
		return err
	}
	pack, err := GetCatalog(c).Packs.Get(c.Request().Context(), id)
	if err != nil {
		return failErr(c, err, "Pack")
	}
	payload.apply(pack)
	return savePack(c, pack, payload.packItems())
}

func savePack(c echo.Context, pack *domain.Pack, items []domain.PackItem) error {
	appCtx := GetAppContext(c)
	if err := appCtx.Catalog().SavePack(c.Request().Context(), pack, items); err != nil {
		return failErr(c, err, "Pack")
	}
	appCtx.Auditor().Record("admin", domain.ActionPackSaved,
		fmt.Sprintf("pack %s saved with %d items, price %.2f", pack.ID, len(items), pack.Price))

	view, err := appCtx.Catalog().LoadPack(c.Request().Context(), pack.ID)
	if err != nil {
		return failErr(c, err, "Pack")
	}
	return ok(c, packDetail{
		Pack:    view.Pack,
		Items:   itemViews(view),
		Pricing: appCtx.PricingPolicy().Summarize(*view.Pack, pricing.LinesOf(view.Items), view.Products),
	})
}

// deletePack removes the pack and its items; placed orders keep their snapshot
func deletePack(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid pack ID", nil)
	}
	appCtx := GetAppContext(c)
	if err := appCtx.Catalog().DeletePack(c.Request().Context(), id); err != nil {
		return failErr(c, err, "Pack")
	}
	appCtx.Auditor().Record("admin", domain.ActionPackDeleted, "pack "+id+" deleted")
	return ok(c, map[string]interface{}{"id": id})
}

// previewPricing computes the pricing summary of an unsaved composition
func previewPricing(c echo.Context) error {
	var payload previewPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse pricing preview", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	lines := make([]pricing.Line, 0, len(payload.Items))
	ids := make([]string, 0, len(payload.Items))
	for _, it := range payload.Items {
		lines = append(lines, pricing.Line{ProductID: it.ProductID, Quantity: it.Quantity})
		ids = append(ids, it.ProductID)
	}
	products, err := catalog.ProductsByID(c.Request().Context(), GetCatalog(c).Products, ids)
	if err != nil {
		return failErr(c, err, "Products")
	}
	pack := domain.Pack{Price: payload.Price, TargetMargin: payload.TargetMargin, OverrideMargin: payload.OverrideMargin}
	return ok(c, GetAppContext(c).PricingPolicy().Summarize(pack, lines, products))
}
