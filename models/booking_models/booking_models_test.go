package booking_models

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chargeops/dispatch/models/shared_models"
)

func TestFormatBookingID(t *testing.T) {
	cases := []struct {
		serviceType shared_models.ServiceType
		seq         int64
		want        string
	}{
		{shared_models.ServiceValetCharging, 1, "VC-00001"},
		{shared_models.ServiceValetCharging, 42, "VC-00042"},
		{shared_models.ServicePortableCharger, 7, "PC-00007"},
		{shared_models.ServiceRoadsideAssistance, 12345, "RSA-12345"},
		{shared_models.ServiceRoadsideAssistance, 123456, "RSA-123456"},
	}
	for _, tt := range cases {
		assert.Equal(t, tt.want, FormatBookingID(tt.serviceType, tt.seq))
	}
}
