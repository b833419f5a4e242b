package adminapi

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supplydropp/provisioning/config"
	"github.com/supplydropp/provisioning/internal/app"
	"github.com/supplydropp/provisioning/internal/catalog"
	"github.com/supplydropp/provisioning/internal/domain"
	"github.com/supplydropp/provisioning/internal/order"
	"github.com/supplydropp/provisioning/internal/testdb"
	"github.com/supplydropp/provisioning/internal/webserver"
)

type harness struct {
	t   *testing.T
	app *app.Application
	h   http.Handler
}

func setup(t *testing.T) *harness {
	cfg := config.DefaultAppConfig()
	a := app.NewApplication(cfg)
	a.OverrideDB(testdb.Open(t))
	a.Seed()
	t.Cleanup(a.Release)

	Init()
	return &harness{t: t, app: a, h: webserver.NewServer(cfg, a).Handler()}
}

func (h *harness) raw(method, path string, body interface{}) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, webserver.ApiPrefix+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.h.ServeHTTP(rec, req)
	return rec
}

func (h *harness) do(method, path string, body interface{}) (int, map[string]interface{}) {
	h.t.Helper()
	rec := h.raw(method, path, body)
	out := map[string]interface{}{}
	require.NoError(h.t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func (h *harness) pack(name string) domain.Pack {
	rows, err := h.app.Catalog().Packs.List(context.Background(), catalog.Eq("name", name))
	require.NoError(h.t, err)
	require.Len(h.t, rows, 1)
	return rows[0]
}

func (h *harness) product(name string) domain.Product {
	rows, err := h.app.Catalog().Products.List(context.Background(), catalog.Eq("name", name))
	require.NoError(h.t, err)
	require.Len(h.t, rows, 1)
	return rows[0]
}

func data(body map[string]interface{}) map[string]interface{} {
	d, _ := body["data"].(map[string]interface{})
	return d
}

func TestProductCRUD(t *testing.T) {
	h := setup(t)

	code, body := h.do(http.MethodPost, "/admin/catalog/products", map[string]interface{}{
		"name": "Olive Oil", "supplier": "Lidl", "cost_price": 4.0,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "oneof", body["details"].(map[string]interface{})["Supplier"])

	code, body = h.do(http.MethodPost, "/admin/catalog/products", map[string]interface{}{
		"name": " Olive Oil ", "supplier": domain.SupplierMercadona, "cost_price": 4.0,
	})
	require.Equal(t, http.StatusOK, code)
	created := data(body)
	id := created["id"].(string)
	assert.Equal(t, "Olive Oil", created["name"])
	assert.InDelta(t, domain.DefaultMarkup, created["default_markup"], 1e-9)

	code, body = h.do(http.MethodPut, "/admin/catalog/products/"+id, map[string]interface{}{
		"name": "Olive Oil 1L", "supplier": domain.SupplierCarrefour, "cost_price": 4.5, "active": false,
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Olive Oil 1L", data(body)["name"])
	assert.Equal(t, false, data(body)["active"])

	code, body = h.do(http.MethodGet, "/admin/catalog/products?q=olive&active=false", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["meta"].(map[string]interface{})["total"])

	code, _ = h.do(http.MethodDelete, "/admin/catalog/products/"+id, nil)
	require.Equal(t, http.StatusOK, code)
	code, body = h.do(http.MethodGet, "/admin/catalog/products/"+id, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "NOT_FOUND", body["error"])
}

func TestProductListPaging(t *testing.T) {
	h := setup(t)
	code, body := h.do(http.MethodGet, "/admin/catalog/products?pageSize=2", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["data"], 2)
	assert.EqualValues(t, 7, body["meta"].(map[string]interface{})["total"])
}

func TestPackSaveReplacesItems(t *testing.T) {
	h := setup(t)
	milk := h.product("Fresh Milk 1L")
	bread := h.product("White Bread Loaf")

	code, body := h.do(http.MethodPost, "/admin/catalog/packs", map[string]interface{}{
		"name": "Quick Breakfast", "price": 10.0, "type": domain.PackTypeGuest, "target_margin": 0.5,
		"items": []map[string]interface{}{
			{"product_id": bread.ID, "quantity": 1},
			{"product_id": milk.ID, "quantity": 2},
		},
	})
	require.Equal(t, http.StatusOK, code)
	d := data(body)
	id := d["id"].(string)
	items := d["items"].([]interface{})
	require.Len(t, items, 2)
	assert.Equal(t, bread.ID, items[0].(map[string]interface{})["product_id"])
	pr := d["pricing"].(map[string]interface{})
	assert.InDelta(t, 3.4, pr["cost_base"], 1e-9)
	assert.Equal(t, "66.0%", pr["margin_label"])
	assert.Equal(t, "healthy", pr["band"])

	code, body = h.do(http.MethodPut, "/admin/catalog/packs/"+id, map[string]interface{}{
		"name": "Quick Breakfast", "price": 10.0, "type": domain.PackTypeGuest,
		"items": []map[string]interface{}{{"product_id": "gone", "quantity": 1}},
	})
	require.Equal(t, http.StatusOK, code)
	d = data(body)
	items = d["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, domain.UnknownItemLabel, items[0].(map[string]interface{})["name"])
	pr = d["pricing"].(map[string]interface{})
	assert.Equal(t, "—", pr["margin_label"])
	assert.Equal(t, "unhealthy", pr["band"])
	assert.Equal(t, []interface{}{"gone"}, pr["unresolved"])

	n, err := h.app.Catalog().PackItems.Count(context.Background(), catalog.Eq("pack_id", id))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	var logs []domain.SysOprLog
	require.NoError(t, h.app.DB().Where("opt_action = ?", domain.ActionPackSaved).Find(&logs).Error)
	assert.Len(t, logs, 2)

	code, _ = h.do(http.MethodDelete, "/admin/catalog/packs/"+id, nil)
	require.Equal(t, http.StatusOK, code)
	n, err = h.app.Catalog().PackItems.Count(context.Background(), catalog.Eq("pack_id", id))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPackPayloadValidation(t *testing.T) {
	h := setup(t)
	code, body := h.do(http.MethodPost, "/admin/catalog/packs", map[string]interface{}{
		"name": "Bad", "price": 1.0, "type": "vip",
		"items": []map[string]interface{}{{"product_id": "x", "quantity": 0}},
	})
	assert.Equal(t, http.StatusBadRequest, code)
	details := body["details"].(map[string]interface{})
	assert.Equal(t, "oneof", details["Type"])
	assert.Equal(t, "gte", details["Quantity"])
}

func TestPricingPreview(t *testing.T) {
	h := setup(t)
	wine := h.product("Red Wine Bottle 750ml")

	code, body := h.do(http.MethodPost, "/admin/catalog/pricing/preview", map[string]interface{}{
		"price": 13.0, "override_margin": 0.5,
		"items": []map[string]interface{}{{"product_id": wine.ID, "quantity": 2}},
	})
	require.Equal(t, http.StatusOK, code)
	d := data(body)
	assert.InDelta(t, 10.0, d["cost_base"], 1e-9)
	assert.InDelta(t, 15.0, d["suggested_price"], 1e-9)
	assert.InDelta(t, 0.35, d["target_margin"], 1e-9)
	// 23.1% is under the 35% default target but above the marginal floor
	assert.Equal(t, "marginal", d["band"])
}

func TestPackPricingEndpoint(t *testing.T) {
	h := setup(t)
	pack := h.pack("Breakfast Starter")
	code, body := h.do(http.MethodGet, "/admin/catalog/packs/"+pack.ID+"/pricing", nil)
	require.Equal(t, http.StatusOK, code)
	d := data(body)
	assert.InDelta(t, 19.99, d["price"], 1e-9)
	assert.Equal(t, true, d["margin_defined"])

	code, _ = h.do(http.MethodGet, "/admin/catalog/packs/missing/pricing", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func placeOrder(t *testing.T, h *harness, userID, packName string) *domain.Order {
	o, err := h.app.Orders().PlaceFromPack(context.Background(), userID, h.pack(packName).ID, order.Options{DeliveryType: domain.RoleGuest})
	require.NoError(t, err)
	return o
}

func TestOrderStatusLifecycle(t *testing.T) {
	h := setup(t)
	o := placeOrder(t, h, "u1", "Breakfast Starter")

	code, body := h.do(http.MethodPut, "/admin/orders/"+o.ID+"/status", map[string]interface{}{"status": "shipped"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "INVALID_REQUEST", body["error"])

	code, body = h.do(http.MethodPut, "/admin/orders/"+o.ID+"/status", map[string]interface{}{"status": "confirmed"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "confirmed", data(body)["status"])

	code, body = h.do(http.MethodPut, "/admin/orders/"+o.ID+"/status", map[string]interface{}{"status": "pending"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "INVALID_TRANSITION", body["error"])

	code, _ = h.do(http.MethodPut, "/admin/orders/"+o.ID+"/status", map[string]interface{}{"status": "delivered"})
	require.Equal(t, http.StatusOK, code)

	code, body = h.do(http.MethodGet, "/admin/orders/"+o.ID, nil)
	require.Equal(t, http.StatusOK, code)
	d := data(body)
	assert.Equal(t, "delivered", d["status"])
	assert.InDelta(t, 19.99, d["total_price"], 1e-9)

	code, _ = h.do(http.MethodPut, "/admin/orders/missing/status", map[string]interface{}{"status": "confirmed"})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestOrderListKeepsSnapshotAfterProductDelete(t *testing.T) {
	h := setup(t)
	o := placeOrder(t, h, "u1", "Tapas Night")
	placeOrder(t, h, "u2", "Breakfast Starter")

	gone := o.Items[0].ProductID
	require.NoError(t, h.app.Catalog().Products.Delete(context.Background(), gone))

	code, body := h.do(http.MethodGet, "/admin/orders?user_id=u1", nil)
	require.Equal(t, http.StatusOK, code)
	rows := body["data"].([]interface{})
	require.Len(t, rows, 1)
	items := rows[0].(map[string]interface{})["items"].([]interface{})
	require.Len(t, items, len(o.Items))
	first := items[0].(map[string]interface{})
	assert.Equal(t, gone, first["product_id"])
	assert.Equal(t, domain.UnknownItemLabel, first["name"])
	assert.Equal(t, false, first["resolved"])

	code, body = h.do(http.MethodGet, "/admin/orders?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "INVALID_REQUEST", body["error"])
}

func TestOrderExport(t *testing.T) {
	h := setup(t)
	placeOrder(t, h, "u1", "Breakfast Starter")
	placeOrder(t, h, "u2", "Tapas Night")

	rec := h.raw(http.MethodGet, "/admin/orders/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".csv")
	records, err := csv.NewReader(strings.NewReader(rec.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "id", records[0][0])

	rec = h.raw(http.MethodGet, "/admin/orders/export?format=xlsx&user_id=u2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	rows := f.GetRows("Sheet1")
	require.Len(t, rows, 2)
	assert.Equal(t, "u2", rows[1][1])
}

func TestUsersAndPropertyOwners(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	props, err := h.app.Catalog().Properties.List(ctx)
	require.NoError(t, err)
	require.Len(t, props, 1)
	prop := props[0]

	guest := domain.User{Name: "Gina Guest", Email: "gina@example.com", Role: domain.RoleGuest}
	host := domain.User{Name: "Hugo Host", Email: "hugo@example.com", Role: domain.RoleGuest}
	require.NoError(t, h.app.Catalog().Users.Create(ctx, &guest))
	require.NoError(t, h.app.Catalog().Users.Create(ctx, &host))

	for _, id := range []string{guest.ID, host.ID} {
		code, _ := h.do(http.MethodPut, "/admin/users/"+id, map[string]interface{}{"current_property_id": prop.ID})
		require.Equal(t, http.StatusOK, code)
	}
	code, body := h.do(http.MethodPut, "/admin/users/"+host.ID, map[string]interface{}{"role": "host"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "host", data(body)["role"])

	code, _ = h.do(http.MethodPut, "/admin/users/"+host.ID, map[string]interface{}{"current_property_id": "nowhere"})
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = h.do(http.MethodPut, "/admin/users/"+host.ID, map[string]interface{}{"role": "owner"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = h.do(http.MethodGet, "/admin/properties/"+prop.ID, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Hugo Host", data(body)["owner_name"])

	// owner fields are searchable
	code, body = h.do(http.MethodGet, "/admin/properties?q=HUGO@", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["data"], 1)
	code, body = h.do(http.MethodGet, "/admin/properties?q=gina", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["data"], 0)

	code, body = h.do(http.MethodGet, "/admin/users?property_id="+prop.ID, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 2, body["meta"].(map[string]interface{})["total"])
}

func TestPropertyCodeIsUnique(t *testing.T) {
	h := setup(t)
	code, body := h.do(http.MethodPost, "/admin/properties", map[string]interface{}{"name": "Costa Azul", "code": "cazul"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "CAZUL", data(body)["code"])
	id := data(body)["id"].(string)

	code, body = h.do(http.MethodPost, "/admin/properties", map[string]interface{}{"name": "Mirador Dos", "code": "hmir"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "PROPERTY_EXISTS", body["error"])

	code, _ = h.do(http.MethodPut, "/admin/properties/"+id, map[string]interface{}{"name": "Costa Azul", "code": "CAZUL", "address": "Playa 3"})
	assert.Equal(t, http.StatusOK, code)
}

func TestDashboard(t *testing.T) {
	h := setup(t)
	o := placeOrder(t, h, "u1", "Breakfast Starter")
	placeOrder(t, h, "u1", "Tapas Night")
	_, err := h.app.Orders().UpdateStatus(context.Background(), o.ID, domain.OrderConfirmed)
	require.NoError(t, err)

	code, body := h.do(http.MethodGet, "/admin/dashboard", nil)
	require.Equal(t, http.StatusOK, code)
	d := data(body)
	assert.EqualValues(t, 4, d["packs"])
	assert.EqualValues(t, 7, d["products"])
	assert.EqualValues(t, 2, d["orders"])
	assert.EqualValues(t, 1, d["pending_orders"])

	code, body = h.do(http.MethodGet, "/admin/dashboard/margins", nil)
	require.Equal(t, http.StatusOK, code)
	d = data(body)
	assert.EqualValues(t, 4, d["packs"])
	assert.Len(t, d["items"], 4)
	bands := d["bands"].(map[string]interface{})
	var total float64
	for _, n := range bands {
		total += n.(float64)
	}
	assert.EqualValues(t, 4, total)
	assert.LessOrEqual(t, d["min"].(float64), d["max"].(float64))
}

func TestJobsAndAuditLog(t *testing.T) {
	h := setup(t)
	code, body := h.do(http.MethodGet, "/admin/jobs", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["data"], 2)

	rec := h.raw(http.MethodPost, "/admin/jobs/"+app.JobEvictIdleCarts+"/run", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	code, _ = h.do(http.MethodPost, "/admin/jobs/reindex/run", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = h.do(http.MethodPost, "/admin/catalog/products", map[string]interface{}{
		"name": "Sparkling Water", "supplier": domain.SupplierCarrefour, "cost_price": 0.5,
	})
	require.Equal(t, http.StatusOK, code)
	pack := h.pack("Tapas Night")
	code, _ = h.do(http.MethodDelete, "/admin/catalog/packs/"+pack.ID, nil)
	require.Equal(t, http.StatusOK, code)

	code, body = h.do(http.MethodGet, "/admin/audit?action="+domain.ActionPackDeleted, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["meta"].(map[string]interface{})["total"])

	code, body = h.do(http.MethodGet, "/admin/audit?q="+pack.ID[:8], nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["meta"].(map[string]interface{})["total"])
}
