package order

import (
	"github.com/supplydropp/provisioning/internal/domain"
)

// ItemView is a snapshot item with its product name, when the product still exists
type ItemView struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Name      string `json:"name"`
	Resolved  bool   `json:"resolved"`
}

// View is an order with described items
type View struct {
	domain.Order
	Items []ItemView `json:"items"`
}

// ProductIDs lists every product referenced by the orders
func ProductIDs(orders []domain.Order) []string {
	var ids []string
	for _, o := range orders {
		for _, it := range o.Items {
			ids = append(ids, it.ProductID)
		}
	}
	return ids
}

// Describe joins the orders with the products; missing products get a placeholder name
func Describe(orders []domain.Order, products map[string]domain.Product) []View {
	views := make([]View, 0, len(orders))
	for _, o := range orders {
		v := View{Order: o, Items: make([]ItemView, 0, len(o.Items))}
		for _, it := range o.Items {
			iv := ItemView{ProductID: it.ProductID, Quantity: it.Quantity, Name: domain.UnknownItemLabel}
			if p, ok := products[it.ProductID]; ok {
				iv.Name = p.Name
				iv.Resolved = true
			}
			v.Items = append(v.Items, iv)
		}
		views = append(views, v)
	}
	return views
}
