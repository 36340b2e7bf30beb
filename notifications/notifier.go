package notifications

import (
	"context"
	"time"

	"github.com/chargeops/dispatch/logger"
	"github.com/chargeops/dispatch/mq"
)

// Routing keys on the notifications exchange.
const (
	KeyPush  = "notify.push"
	KeyEmail = "notify.email"
)

// Notification is a push message addressed to a requester or technician by
// their directory reference.
type Notification struct {
	RecipientRef string    `json:"recipient_ref"`
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	Channel      string    `json:"channel"`
	DeepLink     string    `json:"deep_link,omitempty"`
	SentAt       time.Time `json:"sent_at"`
}

// EmailMessage is a queued mail for the email worker.
type EmailMessage struct {
	Recipient  string    `json:"recipient"`
	Subject    string    `json:"subject"`
	HTML       string    `json:"html"`
	Attachment string    `json:"attachment,omitempty"`
	QueuedAt   time.Time `json:"queued_at"`
}

// Notifier dispatches notifications and emails. Delivery is best-effort:
// failures are logged and never propagated to the transition that emitted
// the notification.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
	EnqueueEmail(ctx context.Context, m EmailMessage)
}

// AMQPNotifier publishes notifications onto the message bus where the
// delivery workers consume them.
type AMQPNotifier struct {
	pub *mq.Publisher
}

func NewAMQPNotifier(pub *mq.Publisher) *AMQPNotifier {
	return &AMQPNotifier{pub: pub}
}

func (n *AMQPNotifier) Notify(ctx context.Context, notification Notification) {
	notification.SentAt = time.Now()
	if err := n.pub.PublishJSON(ctx, KeyPush, notification); err != nil {
		logger.ErrorLogger.Errorf("Failed to publish notification for %s: %v", notification.RecipientRef, err)
		return
	}
	logger.InfoLogger.Infof("Notification queued for %s: %s", notification.RecipientRef, notification.Title)
}

func (n *AMQPNotifier) EnqueueEmail(ctx context.Context, m EmailMessage) {
	m.QueuedAt = time.Now()
	if err := n.pub.PublishJSON(ctx, KeyEmail, m); err != nil {
		logger.ErrorLogger.Errorf("Failed to enqueue email for %s: %v", m.Recipient, err)
		return
	}
	logger.InfoLogger.Infof("Email queued for %s: %s", m.Recipient, m.Subject)
}

// NopNotifier drops everything. Used when the bus is not configured.
type NopNotifier struct{}

func (NopNotifier) Notify(_ context.Context, n Notification) {
	logger.WarnLogger.Warnf("Notification bus not configured, dropping notification for %s", n.RecipientRef)
}

func (NopNotifier) EnqueueEmail(_ context.Context, m EmailMessage) {
	logger.WarnLogger.Warnf("Notification bus not configured, dropping email for %s", m.Recipient)
}
