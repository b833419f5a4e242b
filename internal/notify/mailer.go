package notify

import (
	"fmt"
	"strings"

	"github.com/panjf2000/ants/v2"
	"github.com/supplydropp/provisioning/config"
	"github.com/supplydropp/provisioning/internal/domain"
	"github.com/supplydropp/provisioning/internal/order"
	"github.com/supplydropp/provisioning/internal/pricing"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// SendFunc delivers one message
type SendFunc func(m *gomail.Message) error

// Mailer sends order notifications from a bounded worker pool
type Mailer struct {
	cfg  config.NotifyConfig
	pool *ants.Pool
	send SendFunc
}

func NewMailer(cfg config.NotifyConfig) (*Mailer, error) {
	dialer := gomail.NewDialer(cfg.SmtpHost, cfg.SmtpPort, cfg.SmtpUser, cfg.SmtpPwd)
	return NewMailerWithSender(cfg, func(m *gomail.Message) error { return dialer.DialAndSend(m) })
}

func NewMailerWithSender(cfg config.NotifyConfig, send SendFunc) (*Mailer, error) {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, err
	}
	return &Mailer{cfg: cfg, pool: pool, send: send}, nil
}

func (m *Mailer) OrderCreated(o domain.Order) {
	subject := fmt.Sprintf("New order %s", o.ID)
	var body strings.Builder
	fmt.Fprintf(&body, "User: %s\n", o.UserID)
	fmt.Fprintf(&body, "Delivery: %s (%s)\n", o.ScheduledTime.Format("2006-01-02 15:04"), o.DeliveryType)
	for _, it := range o.Items {
		fmt.Fprintf(&body, "- %s x%d\n", it.ProductID, it.Quantity)
	}
	fmt.Fprintf(&body, "Total: %s + %s delivery\n", pricing.FormatMoney(o.TotalPrice), pricing.FormatMoney(o.DeliveryFee))
	if o.Notes != "" {
		fmt.Fprintf(&body, "Notes: %s\n", o.Notes)
	}
	m.enqueue(subject, body.String())
}

func (m *Mailer) OrderStatus(change order.StatusChange) {
	m.enqueue(fmt.Sprintf("Order %s is %s", change.Order.ID, change.Order.Status),
		fmt.Sprintf("Order %s moved from %s to %s.\n", change.Order.ID, change.From, change.Order.Status))
}

func (m *Mailer) enqueue(subject, body string) {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", strings.Split(m.cfg.To, ",")...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	err := m.pool.Submit(func() {
		if err := m.send(msg); err != nil {
			zap.L().Error("send notification failed", zap.String("subject", subject), zap.Error(err))
		}
	})
	if err != nil {
		zap.L().Warn("notification dropped", zap.String("subject", subject), zap.Error(err))
	}
}

// Release stops the worker pool
func (m *Mailer) Release() {
	m.pool.Release()
}
