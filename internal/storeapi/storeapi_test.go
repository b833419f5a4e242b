package storeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supplydropp/provisioning/config"
	"github.com/supplydropp/provisioning/internal/app"
	"github.com/supplydropp/provisioning/internal/catalog"
	"github.com/supplydropp/provisioning/internal/domain"
	"github.com/supplydropp/provisioning/internal/testdb"
	"github.com/supplydropp/provisioning/internal/webserver"
)

// client keeps the session cookie between calls like a browser would
type client struct {
	t       *testing.T
	h       http.Handler
	cookies []*http.Cookie
}

func (c *client) do(method, path string, body interface{}) (int, map[string]interface{}) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, webserver.ApiPrefix+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c.h.ServeHTTP(rec, req)
	if cks := rec.Result().Cookies(); len(cks) > 0 {
		c.cookies = cks
	}
	out := map[string]interface{}{}
	if rec.Body.Len() > 0 {
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec.Code, out
}

func setup(t *testing.T) (*app.Application, *client) {
	cfg := config.DefaultAppConfig()
	a := app.NewApplication(cfg)
	a.OverrideDB(testdb.Open(t))
	a.Seed()
	t.Cleanup(a.Release)

	Init()
	srv := webserver.NewServer(cfg, a)
	return a, &client{t: t, h: srv.Handler()}
}

func productNamed(t *testing.T, a *app.Application, name string) domain.Product {
	rows, err := a.Catalog().Products.List(context.Background(), catalog.Eq("name", name))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	return rows[0]
}

func packNamed(t *testing.T, a *app.Application, name string) domain.Pack {
	rows, err := a.Catalog().Packs.List(context.Background(), catalog.Eq("name", name))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	return rows[0]
}

func newUser(t *testing.T, a *app.Application, role string) domain.User {
	u := domain.User{Name: "Test " + role, Role: role}
	require.NoError(t, a.Catalog().Users.Create(context.Background(), &u))
	return u
}

func data(body map[string]interface{}) map[string]interface{} {
	d, _ := body["data"].(map[string]interface{})
	return d
}

func TestListPacksFiltersByType(t *testing.T) {
	_, c := setup(t)

	code, body := c.do(http.MethodGet, "/store/packs?type=host", nil)
	require.Equal(t, http.StatusOK, code)
	rows := body["data"].([]interface{})
	assert.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, domain.PackTypeHost, r.(map[string]interface{})["type"])
	}
}

func TestGetPackShowsItemNames(t *testing.T) {
	a, c := setup(t)
	pack := packNamed(t, a, "Breakfast Starter")

	code, body := c.do(http.MethodGet, "/store/packs/"+pack.ID, nil)
	require.Equal(t, http.StatusOK, code)
	d := data(body)
	assert.Equal(t, "€19.99", d["price_text"])
	items := d["items"].([]interface{})
	require.NotEmpty(t, items)
	for _, it := range items {
		assert.NotEqual(t, domain.UnknownItemLabel, it.(map[string]interface{})["name"])
	}

	// inactive packs are hidden from buyers
	require.NoError(t, a.Catalog().Packs.Update(context.Background(), pack.ID, map[string]interface{}{"active": false}))
	code, _ = c.do(http.MethodGet, "/store/packs/"+pack.ID, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCartMergesCustomizations(t *testing.T) {
	a, c := setup(t)
	milk := productNamed(t, a, "Fresh Milk 1L")

	code, _ := c.do(http.MethodPost, "/cart/items", map[string]interface{}{
		"product_id": milk.ID, "quantity": 1, "customizations": []string{"cold", "no lactose"},
	})
	require.Equal(t, http.StatusOK, code)
	code, body := c.do(http.MethodPost, "/cart/items", map[string]interface{}{
		"product_id": milk.ID, "customizations": []string{"no lactose", "cold", "cold"},
	})
	require.Equal(t, http.StatusOK, code)

	d := data(body)
	assert.Len(t, d["items"], 1)
	assert.EqualValues(t, 2, d["total_items"])
	assert.InDelta(t, 3.0, d["total_price"], 1e-9)
	assert.Equal(t, "2 items · €3.00", d["label"])

	// a different customization set is a separate line
	_, body = c.do(http.MethodPost, "/cart/items", map[string]interface{}{"product_id": milk.ID})
	assert.Len(t, data(body)["items"], 2)
}

func TestCartLineOperations(t *testing.T) {
	a, c := setup(t)
	bread := productNamed(t, a, "White Bread Loaf")
	line := map[string]interface{}{"product_id": bread.ID}

	c.do(http.MethodPost, "/cart/items", line)
	_, body := c.do(http.MethodPost, "/cart/items/increase", line)
	assert.EqualValues(t, 2, data(body)["total_items"])

	c.do(http.MethodPost, "/cart/items/decrease", line)
	_, body = c.do(http.MethodPost, "/cart/items/decrease", line)
	assert.EqualValues(t, 1, data(body)["total_items"])

	_, body = c.do(http.MethodPost, "/cart/items/remove", line)
	assert.EqualValues(t, 0, data(body)["total_items"])
	assert.Equal(t, "Cart is empty", data(body)["label"])

	// lines that are not in the cart are ignored
	for _, op := range []string{"increase", "decrease", "remove"} {
		code, body := c.do(http.MethodPost, "/cart/items/"+op, map[string]interface{}{"product_id": "nope"})
		assert.Equal(t, http.StatusOK, code, op)
		assert.EqualValues(t, 0, data(body)["total_items"], op)
	}
}

func TestCartRejectsUnknownProduct(t *testing.T) {
	_, c := setup(t)
	code, _ := c.do(http.MethodPost, "/cart/items", map[string]interface{}{"product_id": "missing"})
	assert.Equal(t, http.StatusNotFound, code)

	code, body := c.do(http.MethodPost, "/cart/items", map[string]interface{}{"quantity": 1})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "INVALID_REQUEST", body["error"])
}

func TestCartsAreIsolatedPerSession(t *testing.T) {
	a, c := setup(t)
	milk := productNamed(t, a, "Fresh Milk 1L")
	c.do(http.MethodPost, "/cart/items", map[string]interface{}{"product_id": milk.ID})

	other := &client{t: t, h: c.h}
	_, body := other.do(http.MethodGet, "/cart", nil)
	assert.EqualValues(t, 0, data(body)["total_items"])

	code, _ := c.do(http.MethodPost, "/session/end", nil)
	assert.Equal(t, http.StatusNoContent, code)
	_, body = c.do(http.MethodGet, "/cart", nil)
	assert.EqualValues(t, 0, data(body)["total_items"])
}

func TestCheckoutSnapshotsAndClearsCart(t *testing.T) {
	a, c := setup(t)
	user := newUser(t, a, domain.RoleHost)
	wine := productNamed(t, a, "Red Wine Bottle 750ml")

	c.do(http.MethodPost, "/cart/items", map[string]interface{}{"product_id": wine.ID, "quantity": 2})
	code, body := c.do(http.MethodPost, "/cart/checkout", map[string]interface{}{
		"user_id": user.ID, "scheduled_time": "2026-11-02 10:30", "notes": "leave at reception",
	})
	require.Equal(t, http.StatusCreated, code)
	d := data(body)
	assert.Equal(t, string(domain.OrderPending), d["status"])
	assert.Equal(t, domain.RoleHost, d["delivery_type"])
	assert.Nil(t, d["pack_id"])
	assert.InDelta(t, 14.0, d["total_price"], 1e-9)
	items := d["items"].([]interface{})
	require.Len(t, items, 1)
	assert.EqualValues(t, 2, items[0].(map[string]interface{})["quantity"])

	_, body = c.do(http.MethodGet, "/cart", nil)
	assert.EqualValues(t, 0, data(body)["total_items"])

	code, body = c.do(http.MethodPost, "/cart/checkout", map[string]interface{}{"user_id": user.ID})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "EMPTY_ORDER", body["error"])
}

func TestCheckoutFailureKeepsCart(t *testing.T) {
	a, c := setup(t)
	milk := productNamed(t, a, "Fresh Milk 1L")
	c.do(http.MethodPost, "/cart/items", map[string]interface{}{"product_id": milk.ID})

	code, _ := c.do(http.MethodPost, "/cart/checkout", map[string]interface{}{"user_id": "nobody"})
	assert.Equal(t, http.StatusNotFound, code)

	user := newUser(t, a, domain.RoleGuest)
	code, body := c.do(http.MethodPost, "/cart/checkout", map[string]interface{}{
		"user_id": user.ID, "scheduled_time": "not a date",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "INVALID_SCHEDULE", body["error"])

	_, body = c.do(http.MethodGet, "/cart", nil)
	assert.EqualValues(t, 1, data(body)["total_items"])
}

func TestOrderPackListAndCancel(t *testing.T) {
	a, c := setup(t)
	guest := newUser(t, a, domain.RoleGuest)
	stranger := newUser(t, a, domain.RoleGuest)
	pack := packNamed(t, a, "Tapas Night")

	code, body := c.do(http.MethodPost, "/packs/"+pack.ID+"/order", map[string]interface{}{"user_id": guest.ID})
	require.Equal(t, http.StatusCreated, code)
	d := data(body)
	orderID := d["id"].(string)
	assert.Equal(t, pack.ID, d["pack_id"])
	assert.InDelta(t, 29.99, d["total_price"], 1e-9)
	assert.InDelta(t, 5.0, d["delivery_fee"], 1e-9)
	assert.Equal(t, domain.RoleGuest, d["delivery_type"])

	code, body = c.do(http.MethodGet, "/orders?user_id="+guest.ID, nil)
	require.Equal(t, http.StatusOK, code)
	rows := body["data"].([]interface{})
	require.Len(t, rows, 1)
	for _, it := range rows[0].(map[string]interface{})["items"].([]interface{}) {
		assert.Equal(t, true, it.(map[string]interface{})["resolved"])
	}

	code, _ = c.do(http.MethodPost, "/orders/"+orderID+"/cancel", map[string]interface{}{"user_id": stranger.ID})
	assert.Equal(t, http.StatusForbidden, code)

	code, body = c.do(http.MethodPost, "/orders/"+orderID+"/cancel", map[string]interface{}{"user_id": guest.ID})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, string(domain.OrderCancelled), data(body)["status"])

	code, body = c.do(http.MethodPost, "/orders/"+orderID+"/cancel", map[string]interface{}{"user_id": guest.ID})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "INVALID_TRANSITION", body["error"])
}

func TestOrderInactivePack(t *testing.T) {
	a, c := setup(t)
	guest := newUser(t, a, domain.RoleGuest)
	pack := packNamed(t, a, "Breakfast Starter")
	require.NoError(t, a.Catalog().Packs.Update(context.Background(), pack.ID, map[string]interface{}{"active": false}))

	code, body := c.do(http.MethodPost, "/packs/"+pack.ID+"/order", map[string]interface{}{"user_id": guest.ID})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "PACK_UNAVAILABLE", body["error"])

	code, _ = c.do(http.MethodPost, "/packs/missing/order", map[string]interface{}{"user_id": guest.ID})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestLiveSessionKeepsCartThroughEviction(t *testing.T) {
	a, c := setup(t)
	a.Config().Order.CartIdleTTL = 3600
	milk := productNamed(t, a, "Fresh Milk 1L")

	c.do(http.MethodPost, "/cart/items", map[string]interface{}{"product_id": milk.ID})
	require.Len(t, c.cookies, 1)
	assert.Equal(t, 3600, c.cookies[0].MaxAge)

	require.NoError(t, a.RunJobNow(app.JobEvictIdleCarts))
	_, body := c.do(http.MethodGet, "/cart", nil)
	assert.EqualValues(t, 1, data(body)["total_items"])
	// each cart request slides the cookie expiry
	assert.Equal(t, 3600, c.cookies[0].MaxAge)
}

func TestHostCreatesProperty(t *testing.T) {
	a, c := setup(t)
	host := newUser(t, a, domain.RoleHost)
	guest := newUser(t, a, domain.RoleGuest)

	code, body := c.do(http.MethodPost, "/properties", map[string]interface{}{
		"user_id": host.ID, "name": "Casa Azul", "code": " azul-7 ", "address": "Rua 1",
	})
	require.Equal(t, http.StatusCreated, code)
	d := data(body)
	assert.Equal(t, "AZUL-7", d["code"])
	assert.Equal(t, true, d["active"])

	u, err := a.Catalog().Users.Get(context.Background(), host.ID)
	require.NoError(t, err)
	require.NotNil(t, u.CurrentPropertyID)
	assert.Equal(t, d["id"], *u.CurrentPropertyID)

	code, body = c.do(http.MethodPost, "/properties", map[string]interface{}{
		"user_id": host.ID, "name": "Other", "code": "Azul-7",
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "PROPERTY_EXISTS", body["error"])

	code, _ = c.do(http.MethodPost, "/properties", map[string]interface{}{
		"user_id": guest.ID, "name": "Guest place", "code": "G1",
	})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = c.do(http.MethodPost, "/properties", map[string]interface{}{"user_id": host.ID, "code": "NONAME"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestJoinPropertyByCode(t *testing.T) {
	a, c := setup(t)
	ctx := context.Background()
	guest := newUser(t, a, domain.RoleGuest)
	open := domain.Property{Name: "Open House", Code: "OPEN1", Active: true}
	closed := domain.Property{Name: "Closed House", Code: "SHUT1", Active: true}
	require.NoError(t, a.Catalog().Properties.Create(ctx, &open))
	require.NoError(t, a.Catalog().Properties.Create(ctx, &closed))
	require.NoError(t, a.Catalog().Properties.Update(ctx, closed.ID, map[string]interface{}{"active": false}))

	code, body := c.do(http.MethodPost, "/properties/join", map[string]interface{}{"user_id": guest.ID, "code": "open1"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, open.ID, data(body)["id"])
	u, err := a.Catalog().Users.Get(ctx, guest.ID)
	require.NoError(t, err)
	require.NotNil(t, u.CurrentPropertyID)
	assert.Equal(t, open.ID, *u.CurrentPropertyID)

	code, _ = c.do(http.MethodPost, "/properties/join", map[string]interface{}{"user_id": guest.ID, "code": "NOPE"})
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = c.do(http.MethodPost, "/properties/join", map[string]interface{}{"user_id": guest.ID, "code": "SHUT1"})
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = c.do(http.MethodPost, "/properties/join", map[string]interface{}{"user_id": "missing", "code": "OPEN1"})
	assert.Equal(t, http.StatusNotFound, code)

	// a failed join leaves the current property alone
	u, err = a.Catalog().Users.Get(ctx, guest.ID)
	require.NoError(t, err)
	assert.Equal(t, open.ID, *u.CurrentPropertyID)
}
