package storeapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/supplydropp/provisioning/internal/cart"
	"github.com/supplydropp/provisioning/internal/catalog"
	"github.com/supplydropp/provisioning/internal/domain"
	"github.com/supplydropp/provisioning/internal/order"
	"github.com/supplydropp/provisioning/internal/webserver"
)

type placePayload struct {
	UserID        string `json:"user_id" validate:"required"`
	ScheduledTime string `json:"scheduled_time"`
	Notes         string `json:"notes" validate:"max=1000"`
}

type cancelPayload struct {
	UserID string `json:"user_id" validate:"required"`
}

func registerOrderRoutes() {
	webserver.ApiPOST("/packs/:id/order", orderPack)
	webserver.ApiPOST("/cart/checkout", checkout)
	webserver.ApiGET("/orders", listMyOrders)
	webserver.ApiPOST("/orders/:id/cancel", cancelOrder)
}

// bindPlace parses the order request and resolves the buyer. The delivery type follows the buyer role.
func bindPlace(c echo.Context) (*domain.User, order.Options, error) {
	var payload placePayload
	if err := c.Bind(&payload); err != nil {
		return nil, order.Options{}, fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse order", err.Error())
	}
	payload.UserID = strings.TrimSpace(payload.UserID)
	if err := c.Validate(&payload); err != nil {
		return nil, order.Options{}, webserver.ValidationFailed(c, err)
	}
	when, err := parseScheduled(payload.ScheduledTime)
	if err != nil {
		return nil, order.Options{}, fail(c, http.StatusBadRequest, "INVALID_SCHEDULE", "Unable to parse scheduled_time", err.Error())
	}
	user, err := GetCatalog(c).Users.Get(c.Request().Context(), payload.UserID)
	if err != nil {
		return nil, order.Options{}, failErr(c, err, "User")
	}
	return user, order.Options{
		ScheduledTime: when,
		DeliveryType:  user.Role,
		Notes:         strings.TrimSpace(payload.Notes),
	}, nil
}

// orderPack places an order for the pack composition as it is right now
func orderPack(c echo.Context) error {
	packID := strings.TrimSpace(c.Param("id"))
	user, opts, err := bindPlace(c)
	if user == nil {
		return err
	}
	o, err := GetAppContext(c).Orders().PlaceFromPack(c.Request().Context(), user.ID, packID, opts)
	if err != nil {
		return failErr(c, err, "Pack")
	}
	return c.JSON(http.StatusCreated, webserver.Response{Data: o})
}

// checkout turns the session cart into a custom order. The cart is cleared only once the order is stored.
func checkout(c echo.Context) error {
	user, opts, err := bindPlace(c)
	if user == nil {
		return err
	}
	sid, err := cartSession(c, false)
	if err != nil {
		return failErr(c, order.ErrEmptyOrder, "Cart")
	}
	carts := GetAppContext(c).Carts()
	lines := carts.Snapshot(sid)
	o, err := GetAppContext(c).Orders().PlaceFromCart(c.Request().Context(), user.ID, lines, opts)
	if err != nil {
		return failErr(c, err, "Order")
	}
	// lines added while the order was being stored stay in the cart
	_ = carts.With(sid, func(ct *cart.Cart) error {
		for _, l := range lines {
			ct.Take(l.ProductID, l.Customizations, l.Quantity)
		}
		return nil
	})
	return c.JSON(http.StatusCreated, webserver.Response{Data: o})
}

// listMyOrders lists the orders of one buyer, newest first
func listMyOrders(c echo.Context) error {
	userID := strings.TrimSpace(c.QueryParam("user_id"))
	if userID == "" {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "user_id is required", nil)
	}
	ctx := c.Request().Context()
	rows, err := GetCatalog(c).Orders.List(ctx,
		catalog.Eq("user_id", userID),
		catalog.OrderBy("created_at", true))
	if err != nil {
		return failErr(c, err, "Orders")
	}
	products, err := catalog.ProductsByID(ctx, GetCatalog(c).Products, order.ProductIDs(rows))
	if err != nil {
		return failErr(c, err, "Products")
	}
	return ok(c, order.Describe(rows, products))
}

func cancelOrder(c echo.Context) error {
	var payload cancelPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", err.Error())
	}
	payload.UserID = strings.TrimSpace(payload.UserID)
	if err := c.Validate(&payload); err != nil {
		return webserver.ValidationFailed(c, err)
	}
	o, err := GetAppContext(c).Orders().Cancel(c.Request().Context(), strings.TrimSpace(c.Param("id")), payload.UserID)
	if err != nil {
		return failErr(c, err, "Order")
	}
	return ok(c, o)
}
