package order

import (
	"github.com/pkg/errors"
	"github.com/supplydropp/provisioning/internal/domain"
	"go.uber.org/zap"
)

var (
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrTerminalState     = errors.New("order is in a terminal state")
	ErrUnknownStatus     = errors.New("unknown order status")
)

var transitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderPending:   {domain.OrderConfirmed, domain.OrderDelivered, domain.OrderCancelled},
	domain.OrderConfirmed: {domain.OrderDelivered, domain.OrderCancelled},
}

// ParseStatus validates a status name
func ParseStatus(s string) (domain.OrderStatus, error) {
	st := domain.OrderStatus(s)
	switch st {
	case domain.OrderPending, domain.OrderConfirmed, domain.OrderDelivered, domain.OrderCancelled:
		return st, nil
	}
	return "", errors.Wrapf(ErrUnknownStatus, "%q", s)
}

// IsTerminal delivered and cancelled orders never change again
func IsTerminal(s domain.OrderStatus) bool {
	return s == domain.OrderDelivered || s == domain.OrderCancelled
}

func CanTransition(from, to domain.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition moves the order to the next status or explains why it cannot
func Transition(o *domain.Order, to domain.OrderStatus) error {
	if IsTerminal(o.Status) {
		return errors.Wrapf(ErrTerminalState, "order %s is %s", o.ID, o.Status)
	}
	if !CanTransition(o.Status, to) {
		return errors.Wrapf(ErrInvalidTransition, "order %s: %s -> %s", o.ID, o.Status, to)
	}
	if o.Status == domain.OrderPending && to == domain.OrderDelivered {
		zap.L().Warn("order delivered without confirmation", zap.String("order_id", o.ID))
	}
	o.Status = to
	return nil
}
