package adminapi

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/gocarina/gocsv"
	"github.com/labstack/echo/v4"
	"github.com/supplydropp/provisioning/internal/catalog"
	"github.com/supplydropp/provisioning/internal/domain"
	"github.com/supplydropp/provisioning/internal/order"
	"github.com/supplydropp/provisioning/internal/webserver"
)

type statusPayload struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed delivered cancelled"`
}

// orderRow is one line of the order export
type orderRow struct {
	ID            string  `csv:"id"`
	UserID        string  `csv:"user_id"`
	PackID        string  `csv:"pack_id"`
	Status        string  `csv:"status"`
	DeliveryType  string  `csv:"delivery_type"`
	ScheduledTime string  `csv:"scheduled_time"`
	Items         string  `csv:"items"`
	TotalPrice    float64 `csv:"total_price"`
	DeliveryFee   float64 `csv:"delivery_fee"`
	Notes         string  `csv:"notes"`
	CreatedAt     string  `csv:"created_at"`
}

var orderSheetHeader = []string{
	"id", "user_id", "pack_id", "status", "delivery_type", "scheduled_time",
	"items", "total_price", "delivery_fee", "notes", "created_at",
}

func registerOrderRoutes() {
	webserver.ApiGET("/admin/orders", listOrders)
	webserver.ApiGET("/admin/orders/export", exportOrders)
	webserver.ApiGET("/admin/orders/:id", getOrder)
	webserver.ApiPUT("/admin/orders/:id/status", updateOrderStatus)
}

var orderSorts = map[string]bool{
	"created_at":     true,
	"scheduled_time": true,
	"total_price":    true,
	"status":         true,
}

func orderFilters(c echo.Context) ([]catalog.Filter, error) {
	var filters []catalog.Filter
	if status := strings.TrimSpace(c.QueryParam("status")); status != "" {
		st, err := order.ParseStatus(status)
		if err != nil {
			return nil, err
		}
		filters = append(filters, catalog.Eq("status", string(st)))
	}
	if userID := strings.TrimSpace(c.QueryParam("user_id")); userID != "" {
		filters = append(filters, catalog.Eq("user_id", userID))
	}
	if packID := strings.TrimSpace(c.QueryParam("pack_id")); packID != "" {
		filters = append(filters, catalog.Eq("pack_id", packID))
	}
	return filters, nil
}

func listOrders(c echo.Context) error {
	page, pageSize := parsePagination(c)
	filters, err := orderFilters(c)
	if err != nil {
		return failErr(c, err, "Orders")
	}

	repo := GetCatalog(c).Orders
	total, err := repo.Count(c.Request().Context(), filters...)
	if err != nil {
		return failErr(c, err, "Orders")
	}
	rows, err := repo.List(c.Request().Context(),
		append(filters, sortFilter(c, orderSorts, "created_at"), catalog.Page(page, pageSize))...)
	if err != nil {
		return failErr(c, err, "Orders")
	}
	views, err := hydrateOrders(c, rows)
	if err != nil {
		return failErr(c, err, "Products")
	}
	return paged(c, views, total, page, pageSize)
}

// hydrateOrders resolves product names of the snapshot items
func hydrateOrders(c echo.Context, rows []domain.Order) ([]order.View, error) {
	products, err := catalog.ProductsByID(c.Request().Context(), GetCatalog(c).Products, order.ProductIDs(rows))
	if err != nil {
		return nil, err
	}
	return order.Describe(rows, products), nil
}

func getOrder(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
	}
	o, err := GetCatalog(c).Orders.Get(c.Request().Context(), id)
	if err != nil {
		return failErr(c, err, "Order")
	}
	views, err := hydrateOrders(c, []domain.Order{*o})
	if err != nil {
		return failErr(c, err, "Products")
	}
	return ok(c, views[0])
}

func updateOrderStatus(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
	}
	var payload statusPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse status", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	o, err := GetAppContext(c).Orders().UpdateStatus(c.Request().Context(), id, domain.OrderStatus(payload.Status))
	if err != nil {
		return failErr(c, err, "Order")
	}
	return ok(c, o)
}

func exportRows(rows []domain.Order) []*orderRow {
	out := make([]*orderRow, 0, len(rows))
	for _, o := range rows {
		items := make([]string, 0, len(o.Items))
		for _, it := range o.Items {
			items = append(items, fmt.Sprintf("%s x%d", it.ProductID, it.Quantity))
		}
		r := &orderRow{
			ID:            o.ID,
			UserID:        o.UserID,
			Status:        string(o.Status),
			DeliveryType:  o.DeliveryType,
			ScheduledTime: o.ScheduledTime.Format(time.RFC3339),
			Items:         strings.Join(items, "; "),
			TotalPrice:    o.TotalPrice,
			DeliveryFee:   o.DeliveryFee,
			Notes:         o.Notes,
			CreatedAt:     o.CreatedAt.Format(time.RFC3339),
		}
		if o.PackID != nil {
			r.PackID = *o.PackID
		}
		out = append(out, r)
	}
	return out
}

// exportOrders downloads the filtered orders as csv (default) or xlsx
func exportOrders(c echo.Context) error {
	filters, err := orderFilters(c)
	if err != nil {
		return failErr(c, err, "Orders")
	}
	rows, err := GetCatalog(c).Orders.List(c.Request().Context(), append(filters, catalog.OrderBy("created_at", true))...)
	if err != nil {
		return failErr(c, err, "Orders")
	}
	records := exportRows(rows)
	stamp := time.Now().Format("20060102150405")

	if strings.EqualFold(c.QueryParam("format"), "xlsx") {
		var buf bytes.Buffer
		if err := writeOrderSheet(&buf, records); err != nil {
			return fail(c, http.StatusInternalServerError, "EXPORT_ERROR", "Failed to export orders", err.Error())
		}
		c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=orders-%s.xlsx", stamp))
		return c.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
	}

	data, err := gocsv.MarshalBytes(&records)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "EXPORT_ERROR", "Failed to export orders", err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=orders-%s.csv", stamp))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", data)
}

func cellName(col, row int) string {
	return fmt.Sprintf("%c%d", 'A'+col, row)
}

func writeOrderSheet(buf *bytes.Buffer, records []*orderRow) error {
	const sheet = "Sheet1"
	f := excelize.NewFile()
	for i, h := range orderSheetHeader {
		f.SetCellValue(sheet, cellName(i, 1), h)
	}
	for n, r := range records {
		row := n + 2
		values := []interface{}{
			r.ID, r.UserID, r.PackID, r.Status, r.DeliveryType, r.ScheduledTime,
			r.Items, r.TotalPrice, r.DeliveryFee, r.Notes, r.CreatedAt,
		}
		for i, v := range values {
			f.SetCellValue(sheet, cellName(i, row), v)
		}
	}
	return f.Write(buf)
}
