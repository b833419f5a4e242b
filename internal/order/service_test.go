package order

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supplydropp/provisioning/internal/cart"
	"github.com/supplydropp/provisioning/internal/catalog"
	"github.com/supplydropp/provisioning/internal/domain"
)

type memStore struct {
	mu      sync.Mutex
	orders  map[string]domain.Order
	created chan struct{}
	block   chan struct{}
	failErr error
}

func newMemStore() *memStore {
	return &memStore{orders: make(map[string]domain.Order)}
}

func (m *memStore) Create(ctx context.Context, o *domain.Order) error {
	if m.created != nil {
		m.created <- struct{}{}
	}
	if m.block != nil {
		<-m.block
	}
	if m.failErr != nil {
		return m.failErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.ID == "" {
		o.ID = "o" + string(rune('0'+len(m.orders)))
	}
	m.orders[o.ID] = *o
	return nil
}

func (m *memStore) Get(ctx context.Context, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &o, nil
}

func (m *memStore) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return catalog.ErrNotFound
	}
	if st, ok := fields["status"].(string); ok {
		o.Status = domain.OrderStatus(st)
	}
	m.orders[id] = o
	return nil
}

type staticPacks map[string]*catalog.PackView

func (s staticPacks) LoadPack(ctx context.Context, id string) (*catalog.PackView, error) {
	v, ok := s[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return v, nil
}

type recordingBus struct {
	mu     sync.Mutex
	topics []string
	args   []interface{}
}

func (b *recordingBus) Publish(topic string, args ...interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.topics = append(b.topics, topic)
	b.args = append(b.args, args...)
}

func testPacks() staticPacks {
	return staticPacks{
		"welcome": {
			Pack:  &domain.Pack{ID: "welcome", Price: 20, Active: true},
			Items: []domain.PackItem{{ProductID: "x", Quantity: 2}},
		},
		"retired": {
			Pack:  &domain.Pack{ID: "retired", Price: 20, Active: false},
			Items: []domain.PackItem{{ProductID: "x", Quantity: 2}},
		},
		"empty": {
			Pack: &domain.Pack{ID: "empty", Price: 20, Active: true},
		},
	}
}

func TestPlaceFromPackPublishes(t *testing.T) {
	store, bus := newMemStore(), &recordingBus{}
	svc := NewService(store, testPacks(), bus, Policy{DeliveryFee: 5})

	o, err := svc.PlaceFromPack(context.Background(), "u1", "welcome", Options{DeliveryFee: 99})
	require.NoError(t, err)
	assert.Equal(t, 5.0, o.DeliveryFee)
	assert.Equal(t, 20.0, o.TotalPrice)
	assert.Equal(t, []string{TopicOrderCreated}, bus.topics)
	assert.False(t, svc.Submitting("u1"))
}

func TestPlaceFromPackRejects(t *testing.T) {
	svc := NewService(newMemStore(), testPacks(), nil, Policy{DeliveryFee: 5})
	ctx := context.Background()

	_, err := svc.PlaceFromPack(ctx, "u1", "retired", Options{})
	assert.True(t, errors.Is(err, ErrPackUnavailable))
	_, err = svc.PlaceFromPack(ctx, "u1", "empty", Options{})
	assert.True(t, errors.Is(err, ErrEmptyOrder))
	_, err = svc.PlaceFromPack(ctx, "u1", "missing", Options{})
	assert.True(t, errors.Is(err, catalog.ErrNotFound))
	_, err = svc.PlaceFromCart(ctx, "u1", nil, Options{})
	assert.True(t, errors.Is(err, ErrEmptyOrder))
}

func TestDuplicateSubmitRejected(t *testing.T) {
	store := newMemStore()
	store.created = make(chan struct{})
	store.block = make(chan struct{})
	svc := NewService(store, testPacks(), nil, Policy{DeliveryFee: 5})
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := svc.PlaceFromPack(ctx, "u1", "welcome", Options{})
		done <- err
	}()
	<-store.created

	_, err := svc.PlaceFromCart(ctx, "u1", []cart.Item{{ProductID: "x", UnitPrice: 1, Quantity: 1}}, Options{})
	assert.True(t, errors.Is(err, ErrSubmitInFlight))
	assert.True(t, svc.Submitting("u1"))

	close(store.block)
	require.NoError(t, <-done)
	assert.False(t, svc.Submitting("u1"))
}

func TestFailedSubmitReleasesGuard(t *testing.T) {
	store := newMemStore()
	store.failErr = errors.New("connection refused")
	svc := NewService(store, testPacks(), nil, Policy{DeliveryFee: 5})
	ctx := context.Background()
	lines := []cart.Item{{ProductID: "x", UnitPrice: 1, Quantity: 1}}

	_, err := svc.PlaceFromCart(ctx, "u1", lines, Options{})
	require.Error(t, err)
	assert.Empty(t, store.orders)
	assert.False(t, svc.Submitting("u1"))

	store.failErr = nil
	o, err := svc.PlaceFromCart(ctx, "u1", lines, Options{})
	require.NoError(t, err)
	assert.Nil(t, o.PackID)
}

func TestUpdateStatusAndCancel(t *testing.T) {
	store, bus := newMemStore(), &recordingBus{}
	svc := NewService(store, testPacks(), bus, Policy{DeliveryFee: 5})
	ctx := context.Background()

	o, err := svc.PlaceFromPack(ctx, "u1", "welcome", Options{})
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, o.ID, "someone-else")
	assert.True(t, errors.Is(err, ErrNotOwner))

	updated, err := svc.UpdateStatus(ctx, o.ID, domain.OrderConfirmed)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderConfirmed, updated.Status)

	_, err = svc.Cancel(ctx, o.ID, "u1")
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, o.ID, domain.OrderDelivered)
	assert.True(t, errors.Is(err, ErrTerminalState))

	stored, _ := store.Get(ctx, o.ID)
	assert.Equal(t, domain.OrderCancelled, stored.Status)
	assert.Equal(t, []string{TopicOrderCreated, TopicOrderStatus, TopicOrderStatus}, bus.topics)
	change, ok := bus.args[1].(StatusChange)
	require.True(t, ok)
	assert.Equal(t, domain.OrderPending, change.From)
}
