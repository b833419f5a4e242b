// Package notify fans order events out to the audit log and e-mail
package notify

import (
	EventBus "github.com/asaskevich/EventBus"
	"github.com/pkg/errors"
	"github.com/supplydropp/provisioning/internal/order"
)

// Subscribe attaches the auditor and, when not nil, the mailer to the bus
func Subscribe(bus EventBus.Bus, auditor *Auditor, mailer *Mailer) error {
	if err := bus.SubscribeAsync(order.TopicOrderCreated, auditor.OrderCreated, false); err != nil {
		return errors.Wrap(err, "subscribe audit order:created")
	}
	if err := bus.SubscribeAsync(order.TopicOrderStatus, auditor.OrderStatus, false); err != nil {
		return errors.Wrap(err, "subscribe audit order:status")
	}
	if mailer == nil {
		return nil
	}
	if err := bus.SubscribeAsync(order.TopicOrderCreated, mailer.OrderCreated, false); err != nil {
		return errors.Wrap(err, "subscribe mail order:created")
	}
	if err := bus.SubscribeAsync(order.TopicOrderStatus, mailer.OrderStatus, false); err != nil {
		return errors.Wrap(err, "subscribe mail order:status")
	}
	return nil
}
