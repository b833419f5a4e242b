package adminapi

import (
	"github.com/labstack/echo/v4"
	"github.com/montanaflynn/stats"
	"github.com/supplydropp/provisioning/internal/catalog"
	"github.com/supplydropp/provisioning/internal/domain"
	"github.com/supplydropp/provisioning/internal/pricing"
	"github.com/supplydropp/provisioning/internal/webserver"
	"golang.org/x/sync/errgroup"
)

type dashboardCounts struct {
	Users         int64 `json:"users"`
	Packs         int64 `json:"packs"`
	Products      int64 `json:"products"`
	Orders        int64 `json:"orders"`
	PendingOrders int64 `json:"pending_orders"`
}

type packMargin struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Margin string       `json:"margin"`
	Band   pricing.Band `json:"band"`
}

type marginStats struct {
	Packs     int                  `json:"packs"`
	Undefined int                  `json:"undefined"`
	Mean      float64              `json:"mean"`
	Median    float64              `json:"median"`
	Min       float64              `json:"min"`
	Max       float64              `json:"max"`
	Bands     map[pricing.Band]int `json:"bands"`
	Items     []packMargin         `json:"items"`
}

func registerDashboardRoutes() {
	webserver.ApiGET("/admin/dashboard", getDashboard)
	webserver.ApiGET("/admin/dashboard/margins", getMarginStats)
}

// getDashboard reads the collection counts in parallel
func getDashboard(c echo.Context) error {
	cat := GetCatalog(c)
	var counts dashboardCounts
	g, ctx := errgroup.WithContext(c.Request().Context())
	g.Go(func() (err error) {
		counts.Users, err = cat.Users.Count(ctx)
		return err
	})
	g.Go(func() (err error) {
		counts.Packs, err = cat.Packs.Count(ctx)
		return err
	})
	g.Go(func() (err error) {
		counts.Products, err = cat.Products.Count(ctx)
		return err
	})
	g.Go(func() (err error) {
		counts.Orders, err = cat.Orders.Count(ctx)
		return err
	})
	g.Go(func() (err error) {
		counts.PendingOrders, err = cat.Orders.Count(ctx, catalog.Eq("status", string(domain.OrderPending)))
		return err
	})
	if err := g.Wait(); err != nil {
		return failErr(c, err, "Dashboard")
	}
	return ok(c, counts)
}

// getMarginStats summarizes the margins of the active packs
func getMarginStats(c echo.Context) error {
	ctx := c.Request().Context()
	cat := GetCatalog(c)

	packs, err := cat.Packs.List(ctx, catalog.Eq("active", true), catalog.OrderBy("name", false))
	if err != nil {
		return failErr(c, err, "Packs")
	}
	packIDs := make([]string, 0, len(packs))
	for _, p := range packs {
		packIDs = append(packIDs, p.ID)
	}
	items, err := cat.PackItems.List(ctx, catalog.In("pack_id", packIDs), catalog.OrderBy("sort", false))
	if err != nil {
		return failErr(c, err, "Pack items")
	}
	byPack := make(map[string][]domain.PackItem)
	productIDs := make([]string, 0, len(items))
	for _, it := range items {
		byPack[it.PackID] = append(byPack[it.PackID], it)
		productIDs = append(productIDs, it.ProductID)
	}
	products, err := catalog.ProductsByID(ctx, cat.Products, productIDs)
	if err != nil {
		return failErr(c, err, "Products")
	}

	policy := GetAppContext(c).PricingPolicy()
	result := marginStats{
		Packs: len(packs),
		Bands: map[pricing.Band]int{pricing.BandHealthy: 0, pricing.BandMarginal: 0, pricing.BandUnhealthy: 0},
		Items: make([]packMargin, 0, len(packs)),
	}
	var margins stats.Float64Data
	for _, p := range packs {
		s := policy.Summarize(p, pricing.LinesOf(byPack[p.ID]), products)
		result.Bands[s.Band]++
		result.Items = append(result.Items, packMargin{ID: p.ID, Name: p.Name, Margin: s.MarginLabel, Band: s.Band})
		if !s.MarginDefined {
			result.Undefined++
			continue
		}
		margins = append(margins, s.Margin)
	}
	if len(margins) > 0 {
		result.Mean, _ = margins.Mean()
		result.Median, _ = margins.Median()
		result.Min, _ = margins.Min()
		result.Max, _ = margins.Max()
	}
	return ok(c, result)
}
