package storeapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/supplydropp/provisioning/internal/cart"
	"github.com/supplydropp/provisioning/internal/pricing"
	"github.com/supplydropp/provisioning/internal/webserver"
	"go.uber.org/zap"
)

type addItemPayload struct {
	ProductID      string   `json:"product_id" validate:"required"`
	Quantity       int      `json:"quantity" validate:"lte=999"`
	Customizations []string `json:"customizations" validate:"dive,max=100"`
}

type linePayload struct {
	ProductID      string   `json:"product_id" validate:"required"`
	Customizations []string `json:"customizations"`
}

type cartView struct {
	Items      []cart.Item `json:"items"`
	TotalItems int         `json:"total_items"`
	TotalPrice float64     `json:"total_price"`
	Label      string      `json:"label"`
}

func registerCartRoutes() {
	webserver.ApiGET("/cart", getCart)
	webserver.ApiPOST("/cart/items", addCartItem)
	webserver.ApiPOST("/cart/items/increase", increaseCartItem)
	webserver.ApiPOST("/cart/items/decrease", decreaseCartItem)
	webserver.ApiPOST("/cart/items/remove", removeCartItem)
	webserver.ApiDELETE("/cart", clearCart)
	webserver.ApiPOST("/session/end", endSession)
}

func viewOf(c *cart.Cart) cartView {
	total := c.TotalPrice()
	n := c.TotalItems()
	label := "Cart is empty"
	if n > 0 {
		label = fmt.Sprintf("%d items · %s", n, pricing.FormatMoney(total))
	}
	return cartView{Items: c.Items(), TotalItems: n, TotalPrice: total, Label: label}
}

// withCart runs fn on the session cart and renders the result
func withCart(c echo.Context, fn func(*cart.Cart) error) error {
	sid, err := cartSession(c, true)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "SESSION_ERROR", "Unable to open cart session", err.Error())
	}
	var view cartView
	err = GetAppContext(c).Carts().With(sid, func(ct *cart.Cart) error {
		if err := fn(ct); err != nil {
			return err
		}
		view = viewOf(ct)
		return nil
	})
	if err != nil {
		return err
	}
	return ok(c, view)
}

func getCart(c echo.Context) error {
	return withCart(c, func(*cart.Cart) error { return nil })
}

// addCartItem prices the line from the current catalog and merges it into the cart
func addCartItem(c echo.Context) error {
	var payload addItemPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse cart item", err.Error())
	}
	payload.ProductID = strings.TrimSpace(payload.ProductID)
	if err := c.Validate(&payload); err != nil {
		return webserver.ValidationFailed(c, err)
	}
	p, err := GetCatalog(c).Products.Get(c.Request().Context(), payload.ProductID)
	if err != nil {
		return failErr(c, err, "Product")
	}
	if !p.Active {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	}
	return withCart(c, func(ct *cart.Cart) error {
		ct.AddItem(cart.Item{
			ProductID:      p.ID,
			Name:           p.Name,
			UnitPrice:      pricing.UnitPrice(*p),
			ImageUrl:       p.ImageThumb,
			Customizations: payload.Customizations,
			Quantity:       payload.Quantity,
		})
		return nil
	})
}

func bindLine(c echo.Context) (*linePayload, error) {
	var payload linePayload
	if err := c.Bind(&payload); err != nil {
		return nil, fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse cart line", err.Error())
	}
	payload.ProductID = strings.TrimSpace(payload.ProductID)
	if err := c.Validate(&payload); err != nil {
		return nil, webserver.ValidationFailed(c, err)
	}
	return &payload, nil
}

// lineOp applies op to the addressed line and renders the cart.
// A line that is not in the cart leaves it unchanged.
func lineOp(c echo.Context, op func(ct *cart.Cart, productID string, customizations []string) bool) error {
	payload, err := bindLine(c)
	if payload == nil {
		return err
	}
	return withCart(c, func(ct *cart.Cart) error {
		if !op(ct, payload.ProductID, payload.Customizations) {
			zap.L().Debug("cart line not found", zap.String("product_id", payload.ProductID))
		}
		return nil
	})
}

func increaseCartItem(c echo.Context) error {
	return lineOp(c, (*cart.Cart).IncreaseQty)
}

func decreaseCartItem(c echo.Context) error {
	return lineOp(c, (*cart.Cart).DecreaseQty)
}

func removeCartItem(c echo.Context) error {
	return lineOp(c, (*cart.Cart).RemoveItem)
}

func clearCart(c echo.Context) error {
	return withCart(c, func(ct *cart.Cart) error {
		ct.Clear()
		return nil
	})
}

// endSession drops the session cart
func endSession(c echo.Context) error {
	sid, err := cartSession(c, false)
	if err == nil {
		GetAppContext(c).Carts().Discard(sid)
	}
	return c.NoContent(http.StatusNoContent)
}
