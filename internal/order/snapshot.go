package order

import (
	"time"

	"github.com/supplydropp/provisioning/internal/cart"
	"github.com/supplydropp/provisioning/internal/domain"
)

// Options carries the caller supplied part of a new order
type Options struct {
	ScheduledTime time.Time
	DeliveryType  string
	DeliveryFee   float64
	Notes         string
}

// Snapshot copies the pack composition into fresh order items.
// Nothing in the result refers back to items.
func Snapshot(items []domain.PackItem) []domain.OrderItem {
	return domain.PackItemRefs(items)
}

// SnapshotCart copies cart lines into order items. Lines that only differ
// by customization stay separate.
func SnapshotCart(lines []cart.Item) []domain.OrderItem {
	out := make([]domain.OrderItem, 0, len(lines))
	for _, l := range lines {
		out = append(out, domain.OrderItem{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return out
}

// NewFromPack builds a pending order for the pack as it is now.
// TotalPrice is the pack price at this moment and is never recomputed.
func NewFromPack(pack domain.Pack, items []domain.PackItem, userID string, opts Options) *domain.Order {
	packID := pack.ID
	return newOrder(userID, &packID, pack.Price, Snapshot(items), opts)
}

// NewFromCart builds a pending custom order from the cart lines
func NewFromCart(lines []cart.Item, userID string, opts Options) *domain.Order {
	var total float64
	for _, l := range lines {
		total += l.Subtotal()
	}
	return newOrder(userID, nil, total, SnapshotCart(lines), opts)
}

func newOrder(userID string, packID *string, total float64, items []domain.OrderItem, opts Options) *domain.Order {
	scheduled := opts.ScheduledTime
	if scheduled.IsZero() {
		scheduled = time.Now()
	}
	return &domain.Order{
		UserID:        userID,
		PackID:        packID,
		Status:        domain.OrderPending,
		ScheduledTime: scheduled,
		DeliveryType:  opts.DeliveryType,
		TotalPrice:    total,
		DeliveryFee:   opts.DeliveryFee,
		Items:         items,
		Notes:         opts.Notes,
	}
}
