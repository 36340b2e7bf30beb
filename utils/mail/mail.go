package mail

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"strconv"
	"time"

	gomail "gopkg.in/gomail.v2"

	"github.com/chargeops/dispatch/config"
	"github.com/chargeops/dispatch/logger"
)

// Email template paths
const (
	bookingCancelledTemplate = "templates/email/booking_cancelled.html"
	invoiceReadyTemplate     = "templates/email/invoice_ready.html"
)

// templateFS serves email templates; main replaces it with the embedded
// copy via InitTemplates.
var templateFS fs.FS = os.DirFS(".")

func init() {
	config.LoadEnv()
}

// InitTemplates points the mailer at the embedded template filesystem.
func InitTemplates(fsys fs.FS) {
	templateFS = fsys
}

// renderTemplate executes an email template into HTML.
func renderTemplate(templatePath string, data interface{}) (string, error) {
	t, err := template.ParseFS(templateFS, templatePath)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to parse email template %s: %v", templatePath, err)
		return "", fmt.Errorf("failed to parse email template: %w", err)
	}

	var body bytes.Buffer
	if err := t.Execute(&body, data); err != nil {
		logger.ErrorLogger.Errorf("Failed to execute email template %s: %v", templatePath, err)
		return "", fmt.Errorf("failed to execute email template: %w", err)
	}
	return body.String(), nil
}

// sendEmail renders a template and delivers it over SMTP using gomail.
func sendEmail(toEmail, subject, templatePath string, data interface{}, attachments ...string) error {
	html, err := renderTemplate(templatePath, data)
	if err != nil {
		return err
	}
	return SendHTML(toEmail, subject, html, attachments...)
}

// SendHTML delivers a pre-rendered HTML body over SMTP.
func SendHTML(toEmail, subject, html string, attachments ...string) error {
	mailer := gomail.NewMessage()
	mailer.SetHeader("From", os.Getenv("FROM_EMAIL"))
	mailer.SetHeader("To", toEmail)
	mailer.SetHeader("Subject", subject)
	mailer.SetBody("text/html", html)
	for _, attachment := range attachments {
		if attachment != "" {
			mailer.Attach(attachment)
		}
	}

	port, err := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if err != nil {
		logger.ErrorLogger.Errorf("Invalid SMTP port: %v", err)
		return fmt.Errorf("invalid SMTP port: %w", err)
	}

	smtpHost := os.Getenv("SMTP_HOST")
	smtpUsername := os.Getenv("SMTP_USERNAME")
	smtpPassword := os.Getenv("SMTP_PASSWORD")

	dialer := gomail.NewDialer(smtpHost, port, smtpUsername, smtpPassword)
	dialer.TLSConfig = &tls.Config{
		InsecureSkipVerify: false,
		ServerName:         smtpHost,
	}

	if err := dialer.DialAndSend(mailer); err != nil {
		logger.ErrorLogger.Errorf("Failed to send email to %s: %v", toEmail, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	logger.InfoLogger.Printf("Email sent to %s: %s", toEmail, subject)
	return nil
}

// SendBookingCancelledEmail notifies the operations mailbox about a
// cancelled booking.
func SendBookingCancelledEmail(toEmail, bookingID, serviceType, cancelledBy, reason string) error {
	logger.InfoLogger.Infof("Sending cancellation email for booking %s to %s", bookingID, toEmail)
	data := struct {
		BookingID   string
		ServiceType string
		CancelledBy string
		Reason      string
		Year        int
	}{
		BookingID:   bookingID,
		ServiceType: serviceType,
		CancelledBy: cancelledBy,
		Reason:      reason,
		Year:        time.Now().Year(),
	}
	return sendEmail(toEmail, fmt.Sprintf("Booking %s cancelled", bookingID), bookingCancelledTemplate, data)
}

// RenderInvoiceReadyHTML renders the invoice-ready email body for delivery
// through the notification bus.
func RenderInvoiceReadyHTML(bookingID string, total float64, currency string) (string, error) {
	data := struct {
		BookingID string
		Total     string
		Year      int
	}{
		BookingID: bookingID,
		Total:     fmt.Sprintf("%.2f %s", total, currency),
		Year:      time.Now().Year(),
	}
	return renderTemplate(invoiceReadyTemplate, data)
}
