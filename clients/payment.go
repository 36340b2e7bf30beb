package clients

import (
	"fmt"

	"github.com/razorpay/razorpay-go"
)

// PaymentClientWrapper provides a read-only view of the payment gateway.
// The dispatch core never captures new payments; it only looks up the
// charge taken at booking time to enrich invoice data.
type PaymentClientWrapper interface {
	FetchCharge(paymentID string) (*ChargeDetails, error)
}

// ChargeDetails is the subset of gateway charge data used on invoices.
type ChargeDetails struct {
	PaymentID string
	Amount    float64
	Currency  string
	Method    string
	CardLast4 string
}

// PaymentClient implements PaymentClientWrapper using the Razorpay SDK.
type PaymentClient struct {
	Client *razorpay.Client
}

// NewPaymentClient creates and returns a new instance of PaymentClient.
func NewPaymentClient(keyID, keySecret string) *PaymentClient {
	return &PaymentClient{
		Client: razorpay.NewClient(keyID, keySecret),
	}
}

// FetchCharge looks up a prior payment by its gateway identifier.
func (p *PaymentClient) FetchCharge(paymentID string) (*ChargeDetails, error) {
	data, err := p.Client.Payment.Fetch(paymentID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payment %s: %w", paymentID, err)
	}

	details := &ChargeDetails{PaymentID: paymentID}
	// Razorpay reports amounts in the currency's smallest unit.
	if amount, ok := data["amount"].(float64); ok {
		details.Amount = amount / 100
	}
	if currency, ok := data["currency"].(string); ok {
		details.Currency = currency
	}
	if method, ok := data["method"].(string); ok {
		details.Method = method
	}
	if card, ok := data["card"].(map[string]interface{}); ok {
		if last4, ok := card["last4"].(string); ok {
			details.CardLast4 = last4
		}
	}

	return details, nil
}
