package storeapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/supplydropp/provisioning/internal/catalog"
	"github.com/supplydropp/provisioning/internal/domain"
	"github.com/supplydropp/provisioning/internal/pricing"
	"github.com/supplydropp/provisioning/internal/webserver"
)

type productView struct {
	domain.Product
	UnitPrice float64 `json:"unit_price"`
	PriceText string  `json:"price_text"`
}

type packItemView struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Name      string `json:"name"`
	ImageUrl  string `json:"image_url,omitempty"`
}

type packView struct {
	*domain.Pack
	PriceText string         `json:"price_text"`
	Items     []packItemView `json:"items"`
}

func registerCatalogRoutes() {
	webserver.ApiGET("/store/packs", listPacks)
	webserver.ApiGET("/store/packs/:id", getPack)
	webserver.ApiGET("/store/products", listProducts)
	webserver.ApiGET("/store/products/:id", getProduct)
}

func toProductView(p domain.Product) productView {
	price := pricing.UnitPrice(p)
	return productView{Product: p, UnitPrice: price, PriceText: pricing.FormatMoney(price)}
}

// listPacks lists the active packs, optionally of one type (guest or host)
func listPacks(c echo.Context) error {
	filters := []catalog.Filter{
		catalog.Eq("active", true),
		catalog.Search("name", c.QueryParam("q")),
		catalog.OrderBy("name", false),
	}
	if typ := strings.TrimSpace(c.QueryParam("type")); typ != "" {
		filters = append(filters, catalog.Eq("type", typ))
	}
	rows, err := GetCatalog(c).Packs.List(c.Request().Context(), filters...)
	if err != nil {
		return failErr(c, err, "Packs")
	}
	return ok(c, rows)
}

func getPack(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	view, err := GetCatalog(c).LoadPack(c.Request().Context(), id)
	if err != nil {
		return failErr(c, err, "Pack")
	}
	if !view.Pack.Active {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Pack not found", nil)
	}
	out := packView{
		Pack:      view.Pack,
		PriceText: pricing.FormatMoney(view.Pack.Price),
		Items:     make([]packItemView, 0, len(view.Items)),
	}
	for _, it := range view.Items {
		iv := packItemView{ProductID: it.ProductID, Quantity: it.Quantity, Name: domain.UnknownItemLabel}
		if p, found := pricing.ResolveProduct(view.Products, it.ProductID); found {
			iv.Name = p.Name
			iv.ImageUrl = p.ImageThumb
		}
		out.Items = append(out.Items, iv)
	}
	return ok(c, out)
}

func listProducts(c echo.Context) error {
	rows, err := GetCatalog(c).Products.List(c.Request().Context(),
		catalog.Eq("active", true),
		catalog.Search("name", c.QueryParam("q")),
		catalog.OrderBy("name", false))
	if err != nil {
		return failErr(c, err, "Products")
	}
	views := make([]productView, 0, len(rows))
	for _, p := range rows {
		views = append(views, toProductView(p))
	}
	return ok(c, views)
}

func getProduct(c echo.Context) error {
	p, err := GetCatalog(c).Products.Get(c.Request().Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		return failErr(c, err, "Product")
	}
	if !p.Active {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	}
	return ok(c, toProductView(*p))
}
