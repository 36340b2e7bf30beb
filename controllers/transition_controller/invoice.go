package transition_controller

import (
	"fmt"

	"github.com/chargeops/dispatch/clients"
	"github.com/chargeops/dispatch/logger"
	"github.com/chargeops/dispatch/models/booking_models"
	"github.com/chargeops/dispatch/models/shared_models"
)

// Billing conversion constants. Battery meter readings arrive as whole
// percentage points; the pack size fixes how much energy one point is.
const (
	KWhPerPercent     = 0.6
	DefaultRatePerKWh = 18.0
	DefaultCurrency   = "INR"
)

const invoiceTemplateKey = "service_invoice_v2"

// LineItem is one billable line on an invoice.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	UnitPrice   float64 `json:"unit_price"`
	Amount      float64 `json:"amount"`
}

// InvoiceRequest is the structured payload handed to the document service.
type InvoiceRequest struct {
	BookingID   string                    `json:"booking_id"`
	ServiceType shared_models.ServiceType `json:"service_type"`
	Currency    string                    `json:"currency"`
	LineItems   []LineItem                `json:"line_items"`
	Total       float64                   `json:"total"`
	EnergyKWh   float64                   `json:"energy_kwh,omitempty"`
	PaymentID   string                    `json:"payment_id,omitempty"`
	PaymentMode string                    `json:"payment_mode,omitempty"`
	CardLast4   string                    `json:"card_last4,omitempty"`
}

// BuildInvoiceRequest computes the billable amount for a completed booking.
// Consumption-based types bill the delivered energy from the captured meter
// delta; RoadsideAssistance bills the stored flat price.
func BuildInvoiceRequest(booking *booking_models.Booking, ratePerKWh float64, currency string) (*InvoiceRequest, error) {
	req := &InvoiceRequest{
		BookingID:   booking.ID,
		ServiceType: booking.ServiceType,
		Currency:    currency,
	}

	switch booking.ServiceType {
	case shared_models.ServiceValetCharging, shared_models.ServicePortableCharger:
		if booking.ChargeStartPercent == nil || booking.ChargeEndPercent == nil {
			return nil, fmt.Errorf("%w: missing charge meter readings", ErrMeterReadingRequired)
		}
		delta := *booking.ChargeEndPercent - *booking.ChargeStartPercent
		if delta < 0 {
			return nil, fmt.Errorf("invalid charge meter readings: start %d%% > end %d%%",
				*booking.ChargeStartPercent, *booking.ChargeEndPercent)
		}
		energy := float64(delta) * KWhPerPercent
		amount := energy * ratePerKWh
		req.EnergyKWh = energy
		req.LineItems = []LineItem{{
			Description: "Energy delivered",
			Quantity:    energy,
			Unit:        "kWh",
			UnitPrice:   ratePerKWh,
			Amount:      amount,
		}}
		req.Total = amount

	case shared_models.ServiceRoadsideAssistance:
		req.LineItems = []LineItem{{
			Description: "Roadside assistance service",
			Quantity:    1,
			Unit:        "service",
			UnitPrice:   booking.Price,
			Amount:      booking.Price,
		}}
		req.Total = booking.Price

	default:
		return nil, fmt.Errorf("unknown service type %s", booking.ServiceType)
	}

	return req, nil
}

// enrichFromGateway adds prior-charge metadata to the invoice. Lookup
// failure is tolerated: the invoice still issues without card details.
func enrichFromGateway(req *InvoiceRequest, payments clients.PaymentClientWrapper, paymentRef *string) {
	if payments == nil || paymentRef == nil || *paymentRef == "" {
		return
	}
	charge, err := payments.FetchCharge(*paymentRef)
	if err != nil {
		logger.WarnLogger.Warnf("Payment lookup failed for %s, issuing invoice without charge data: %v", *paymentRef, err)
		return
	}
	req.PaymentID = charge.PaymentID
	req.PaymentMode = charge.Method
	req.CardLast4 = charge.CardLast4
	if charge.Currency != "" {
		req.Currency = charge.Currency
	}
}

func invoiceRenderData(req *InvoiceRequest) map[string]interface{} {
	lines := make([]map[string]interface{}, 0, len(req.LineItems))
	for _, li := range req.LineItems {
		lines = append(lines, map[string]interface{}{
			"description": li.Description,
			"quantity":    li.Quantity,
			"unit":        li.Unit,
			"unit_price":  li.UnitPrice,
			"amount":      li.Amount,
		})
	}
	return map[string]interface{}{
		"booking_id":   req.BookingID,
		"service_type": string(req.ServiceType),
		"currency":     req.Currency,
		"line_items":   lines,
		"total":        req.Total,
		"energy_kwh":   req.EnergyKWh,
		"payment_id":   req.PaymentID,
		"payment_mode": req.PaymentMode,
		"card_last4":   req.CardLast4,
	}
}
