package order

import (
	"context"

	"github.com/pkg/errors"
	"github.com/supplydropp/provisioning/internal/cart"
	"github.com/supplydropp/provisioning/internal/catalog"
	"github.com/supplydropp/provisioning/internal/domain"
	"go.uber.org/zap"
)

const (
	TopicOrderCreated = "order:created"
	TopicOrderStatus  = "order:status"
)

var (
	ErrSubmitInFlight  = errors.New("an order submission is already in progress")
	ErrEmptyOrder      = errors.New("order has no items")
	ErrPackUnavailable = errors.New("pack is not available")
	ErrNotOwner        = errors.New("order belongs to another user")
)

// Store persists order documents
type Store interface {
	Create(ctx context.Context, o *domain.Order) error
	Get(ctx context.Context, id string) (*domain.Order, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) error
}

// PackSource resolves a pack with its current composition
type PackSource interface {
	LoadPack(ctx context.Context, id string) (*catalog.PackView, error)
}

// Publisher is satisfied by EventBus.Bus
type Publisher interface {
	Publish(topic string, args ...interface{})
}

// StatusChange is published on TopicOrderStatus
type StatusChange struct {
	Order domain.Order
	From  domain.OrderStatus
}

type Policy struct {
	DeliveryFee float64
}

// Service places orders and moves them through their lifecycle
type Service struct {
	orders   Store
	packs    PackSource
	bus      Publisher
	inflight *InFlight
	policy   Policy
}

func NewService(orders Store, packs PackSource, bus Publisher, policy Policy) *Service {
	return &Service{
		orders:   orders,
		packs:    packs,
		bus:      bus,
		inflight: NewInFlight(),
		policy:   policy,
	}
}

// Submitting reports whether the user has an order submission outstanding
func (s *Service) Submitting(userID string) bool {
	return s.inflight.Busy(userID)
}

// PlaceFromPack snapshots the pack composition into a new pending order
func (s *Service) PlaceFromPack(ctx context.Context, userID, packID string, opts Options) (*domain.Order, error) {
	release, ok := s.inflight.TryAcquire(userID)
	if !ok {
		return nil, ErrSubmitInFlight
	}
	defer release()

	view, err := s.packs.LoadPack(ctx, packID)
	if err != nil {
		return nil, err
	}
	if !view.Pack.Active {
		return nil, errors.Wrapf(ErrPackUnavailable, "pack %s", packID)
	}
	if len(view.Items) == 0 {
		return nil, errors.Wrapf(ErrEmptyOrder, "pack %s", packID)
	}
	opts.DeliveryFee = s.policy.DeliveryFee
	return s.create(ctx, NewFromPack(*view.Pack, view.Items, userID, opts))
}

// PlaceFromCart creates a custom order from cart lines.
// The caller clears the cart only after a nil error.
func (s *Service) PlaceFromCart(ctx context.Context, userID string, lines []cart.Item, opts Options) (*domain.Order, error) {
	release, ok := s.inflight.TryAcquire(userID)
	if !ok {
		return nil, ErrSubmitInFlight
	}
	defer release()

	if len(lines) == 0 {
		return nil, ErrEmptyOrder
	}
	opts.DeliveryFee = s.policy.DeliveryFee
	return s.create(ctx, NewFromCart(lines, userID, opts))
}

func (s *Service) create(ctx context.Context, o *domain.Order) (*domain.Order, error) {
	if err := s.orders.Create(ctx, o); err != nil {
		zap.L().Error("create order failed", zap.String("user_id", o.UserID), zap.Error(err))
		return nil, err
	}
	zap.L().Info("order created",
		zap.String("order_id", o.ID),
		zap.String("user_id", o.UserID),
		zap.Float64("total_price", o.TotalPrice),
		zap.Int("items", len(o.Items)))
	s.publish(TopicOrderCreated, *o)
	return o, nil
}

// UpdateStatus validates and applies a status change, writing only the status field
func (s *Service) UpdateStatus(ctx context.Context, id string, to domain.OrderStatus) (*domain.Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, o, to)
}

// Cancel lets a buyer cancel one of their own orders
func (s *Service) Cancel(ctx context.Context, id, userID string) (*domain.Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, errors.Wrapf(ErrNotOwner, "order %s", id)
	}
	return s.transition(ctx, o, domain.OrderCancelled)
}

func (s *Service) transition(ctx context.Context, o *domain.Order, to domain.OrderStatus) (*domain.Order, error) {
	from := o.Status
	if err := Transition(o, to); err != nil {
		return nil, err
	}
	if err := s.orders.Update(ctx, o.ID, map[string]interface{}{"status": string(o.Status)}); err != nil {
		return nil, err
	}
	s.publish(TopicOrderStatus, StatusChange{Order: *o, From: from})
	return o, nil
}

func (s *Service) publish(topic string, arg interface{}) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(topic, arg)
}
