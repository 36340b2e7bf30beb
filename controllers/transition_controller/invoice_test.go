package transition_controller

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chargeops/dispatch/models/booking_models"
	"github.com/chargeops/dispatch/models/shared_models"
)

func intPtr(v int) *int { return &v }

func TestBuildInvoiceRequestConsumption(t *testing.T) {
	booking := &booking_models.Booking{
		ID:                 "PC-00003",
		ServiceType:        shared_models.ServicePortableCharger,
		RequesterID:        uuid.New(),
		Price:              499,
		ChargeStartPercent: intPtr(20),
		ChargeEndPercent:   intPtr(80),
	}

	req, err := BuildInvoiceRequest(booking, 18.0, "INR")
	require.NoError(t, err)

	// 60 points * 0.6 kWh/point = 36 kWh at 18/kWh.
	assert.InDelta(t, 36.0, req.EnergyKWh, 1e-9)
	require.Len(t, req.LineItems, 1)
	assert.Equal(t, "kWh", req.LineItems[0].Unit)
	assert.InDelta(t, 648.0, req.LineItems[0].Amount, 1e-9)
	assert.InDelta(t, 648.0, req.Total, 1e-9)
	assert.Equal(t, "INR", req.Currency)
	assert.Equal(t, "PC-00003", req.BookingID)
}

func TestBuildInvoiceRequestFlatFee(t *testing.T) {
	booking := &booking_models.Booking{
		ID:          "RSA-00011",
		ServiceType: shared_models.ServiceRoadsideAssistance,
		Price:       899,
	}

	req, err := BuildInvoiceRequest(booking, 18.0, "INR")
	require.NoError(t, err)

	require.Len(t, req.LineItems, 1)
	assert.InDelta(t, 899.0, req.Total, 1e-9)
	assert.Zero(t, req.EnergyKWh)
}

func TestBuildInvoiceRequestMissingMeter(t *testing.T) {
	booking := &booking_models.Booking{
		ID:                 "VC-00001",
		ServiceType:        shared_models.ServiceValetCharging,
		ChargeStartPercent: intPtr(30),
	}

	_, err := BuildInvoiceRequest(booking, 18.0, "INR")
	assert.ErrorIs(t, err, ErrMeterReadingRequired)
}

func TestBuildInvoiceRequestInvertedReadings(t *testing.T) {
	booking := &booking_models.Booking{
		ID:                 "VC-00002",
		ServiceType:        shared_models.ServiceValetCharging,
		ChargeStartPercent: intPtr(90),
		ChargeEndPercent:   intPtr(40),
	}

	_, err := BuildInvoiceRequest(booking, 18.0, "INR")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid charge meter readings")
}

func TestInvoiceRenderData(t *testing.T) {
	booking := &booking_models.Booking{
		ID:                 "PC-00004",
		ServiceType:        shared_models.ServicePortableCharger,
		ChargeStartPercent: intPtr(10),
		ChargeEndPercent:   intPtr(20),
	}
	req, err := BuildInvoiceRequest(booking, 20.0, "INR")
	require.NoError(t, err)

	data := invoiceRenderData(req)
	assert.Equal(t, "PC-00004", data["booking_id"])
	assert.Equal(t, "portable_charger", data["service_type"])
	lines, ok := data["line_items"].([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, lines, 1)
	assert.Equal(t, "Energy delivered", lines[0]["description"])
}
