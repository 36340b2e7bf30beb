package notifications

import (
	"context"

	"github.com/chargeops/dispatch/logger"
	"github.com/chargeops/dispatch/utils/mail"
)

// MailNotifier delivers emails directly over SMTP when no message bus is
// configured. Push notifications have no direct channel and are dropped.
type MailNotifier struct{}

func NewMailNotifier() *MailNotifier {
	return &MailNotifier{}
}

func (MailNotifier) Notify(_ context.Context, n Notification) {
	logger.WarnLogger.Warnf("Notification bus not configured, dropping push notification for %s", n.RecipientRef)
}

func (MailNotifier) EnqueueEmail(_ context.Context, m EmailMessage) {
	if err := mail.SendHTML(m.Recipient, m.Subject, m.HTML, m.Attachment); err != nil {
		logger.ErrorLogger.Errorf("Direct email delivery to %s failed: %v", m.Recipient, err)
	}
}
