package pricing

import (
	"fmt"
	"math"

	"github.com/supplydropp/provisioning/internal/domain"
)

type Band string

const (
	BandHealthy   Band = "healthy"
	BandMarginal  Band = "marginal"
	BandUnhealthy Band = "unhealthy"
)

// Policy margin settings shared by every pack
type Policy struct {
	DefaultMargin float64 // used when a pack has neither override nor target
	MarginalFloor float64 // lower bound of the marginal band
}

func DefaultPolicy() Policy {
	return Policy{DefaultMargin: 0.35, MarginalFloor: 0.20}
}

// Line is a product reference with a quantity
type Line struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=1"`
}

// LinesOf converts pack items into pricing lines
func LinesOf(items []domain.PackItem) []Line {
	lines := make([]Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, Line{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return lines
}

// ResolveProduct looks a product up; false means a dangling reference
func ResolveProduct(productsByID map[string]domain.Product, id string) (domain.Product, bool) {
	p, ok := productsByID[id]
	return p, ok
}

// CostBase sums cost_price * quantity. Unresolved products count as 0.
func CostBase(items []Line, productsByID map[string]domain.Product) float64 {
	var total float64
	for _, it := range items {
		p, ok := ResolveProduct(productsByID, it.ProductID)
		if !ok {
			continue
		}
		total += p.CostPrice * float64(it.Quantity)
	}
	return total
}

// Margin is (price - cost) / price. It is undefined when there is no cost
// or no price to divide by.
func Margin(price, costBase float64) (float64, bool) {
	if costBase <= 0 || price == 0 {
		return 0, false
	}
	return (price - costBase) / price, true
}

func SuggestedPrice(costBase, marginFraction float64) float64 {
	return costBase * (1 + marginFraction)
}

// UnitPrice is the sale price of a single product: cost plus its default markup, in cents
func UnitPrice(p domain.Product) float64 {
	return math.Round(SuggestedPrice(p.CostPrice, p.DefaultMarkup)*100) / 100
}

// EffectiveMargin picks override, then target, then fallback
func EffectiveMargin(override, target *float64, fallback float64) float64 {
	if override != nil {
		return *override
	}
	if target != nil {
		return *target
	}
	return fallback
}

// BandOf classifies a margin; lower bounds are inclusive
func (p Policy) BandOf(margin float64, ok bool, target float64) Band {
	if !ok {
		return BandUnhealthy
	}
	if margin >= target {
		return BandHealthy
	}
	if margin >= p.MarginalFloor {
		return BandMarginal
	}
	return BandUnhealthy
}

// BandOf classifies with the default marginal floor
func BandOf(margin float64, ok bool, target float64) Band {
	return DefaultPolicy().BandOf(margin, ok, target)
}

func FormatMoney(v float64) string {
	return fmt.Sprintf("€%.2f", v)
}

func FormatMargin(m float64, ok bool) string {
	if !ok {
		return "—"
	}
	return fmt.Sprintf("%.1f%%", m*100)
}

// Summary is the derived pricing view of a pack composition
type Summary struct {
	CostBase        float64  `json:"cost_base"`
	Price           float64  `json:"price"`
	Margin          float64  `json:"margin"`
	MarginDefined   bool     `json:"margin_defined"`
	MarginLabel     string   `json:"margin_label"`
	TargetMargin    float64  `json:"target_margin"`
	EffectiveMargin float64  `json:"effective_margin"`
	SuggestedPrice  float64  `json:"suggested_price"`
	Band            Band     `json:"band"`
	Unresolved      []string `json:"unresolved"`
}

// Summarize computes the pricing view of a pack with the given composition.
// The band is judged against the target margin, the suggested price against the effective one.
func (p Policy) Summarize(pack domain.Pack, items []Line, productsByID map[string]domain.Product) Summary {
	cost := CostBase(items, productsByID)
	margin, ok := Margin(pack.Price, cost)
	target := EffectiveMargin(nil, pack.TargetMargin, p.DefaultMargin)
	effective := EffectiveMargin(pack.OverrideMargin, pack.TargetMargin, p.DefaultMargin)
	s := Summary{
		CostBase:        cost,
		Price:           pack.Price,
		Margin:          margin,
		MarginDefined:   ok,
		MarginLabel:     FormatMargin(margin, ok),
		TargetMargin:    target,
		EffectiveMargin: effective,
		SuggestedPrice:  SuggestedPrice(cost, effective),
		Band:            p.BandOf(margin, ok, target),
		Unresolved:      []string{},
	}
	for _, it := range items {
		if _, found := ResolveProduct(productsByID, it.ProductID); !found {
			s.Unresolved = append(s.Unresolved, it.ProductID)
		}
	}
	return s
}
