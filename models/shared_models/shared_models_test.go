package shared_models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateChains(t *testing.T) {
	require.NoError(t, ValidateChains())
}

func TestInitialAndTerminalStatus(t *testing.T) {
	cases := []struct {
		serviceType ServiceType
		initial     string
		terminal    string
	}{
		{ServiceValetCharging, StatusConfirmed, StatusWorkComplete},
		{ServicePortableCharger, StatusConfirmed, StatusPickedUp},
		{ServiceRoadsideAssistance, StatusBookingDone, StatusEndSummary},
	}
	for _, tt := range cases {
		assert.Equal(t, tt.initial, InitialStatus(tt.serviceType))
		assert.Equal(t, tt.terminal, TerminalStatus(tt.serviceType))
	}
}

func TestNextStatus(t *testing.T) {
	cases := []struct {
		serviceType ServiceType
		current     string
		next        string
		ok          bool
	}{
		{ServiceValetCharging, StatusConfirmed, StatusAccepted, true},
		{ServiceValetCharging, StatusAccepted, StatusEnroute, true},
		{ServiceValetCharging, StatusEnroute, StatusVehiclePickedUp, true},
		{ServiceValetCharging, StatusVehiclePickedUp, StatusReached, true},
		{ServiceValetCharging, StatusReached, StatusChargingComplete, true},
		{ServiceValetCharging, StatusChargingComplete, StatusDropoff, true},
		{ServiceValetCharging, StatusDropoff, StatusWorkComplete, true},
		{ServiceValetCharging, StatusWorkComplete, "", false},
		{ServicePortableCharger, StatusReachedLocation, StatusChargingStart, true},
		{ServicePortableCharger, StatusChargingComplete, StatusPickedUp, true},
		{ServicePortableCharger, StatusPickedUp, "", false},
		{ServiceRoadsideAssistance, StatusBookingDone, StatusAccepted, true},
		{ServiceRoadsideAssistance, StatusArrived, StatusWorkComplete, true},
		{ServiceRoadsideAssistance, StatusEndSummary, "", false},
		{ServiceValetCharging, StatusCancelled, "", false},
		{ServiceValetCharging, "bogus", "", false},
		{ServiceRoadsideAssistance, StatusVehiclePickedUp, "", false},
	}
	for _, tt := range cases {
		next, ok := NextStatus(tt.serviceType, tt.current)
		assert.Equal(t, tt.ok, ok, "NextStatus(%s, %s)", tt.serviceType, tt.current)
		assert.Equal(t, tt.next, next, "NextStatus(%s, %s)", tt.serviceType, tt.current)
	}
}

func TestSpecFor(t *testing.T) {
	spec, ok := SpecFor(ServiceValetCharging, StatusVehiclePickedUp)
	require.True(t, ok)
	assert.True(t, spec.RequiresEvidence)
	assert.False(t, spec.ReleasesTechnician)

	spec, ok = SpecFor(ServicePortableCharger, StatusPickedUp)
	require.True(t, ok)
	assert.True(t, spec.RequiresEvidence)
	assert.True(t, spec.ReleasesTechnician)
	assert.True(t, spec.TriggersInvoice)

	spec, ok = SpecFor(ServicePortableCharger, StatusChargingStart)
	require.True(t, ok)
	assert.True(t, spec.CaptureChargeStart)

	_, ok = SpecFor(ServiceRoadsideAssistance, StatusDropoff)
	assert.False(t, ok)
}

func TestOnlyTerminalTriggersInvoice(t *testing.T) {
	for _, serviceType := range []ServiceType{ServiceValetCharging, ServicePortableCharger, ServiceRoadsideAssistance} {
		chain := Chain(serviceType)
		for i, spec := range chain {
			if i == len(chain)-1 {
				assert.True(t, spec.TriggersInvoice, "%s terminal %s", serviceType, spec.Status)
				assert.True(t, spec.ReleasesTechnician, "%s terminal %s", serviceType, spec.Status)
			} else {
				assert.False(t, spec.TriggersInvoice, "%s %s", serviceType, spec.Status)
				assert.False(t, spec.ReleasesTechnician, "%s %s", serviceType, spec.Status)
			}
		}
	}
}

func TestIsCancellable(t *testing.T) {
	cases := []struct {
		serviceType ServiceType
		status      string
		cancellable bool
	}{
		{ServiceValetCharging, StatusConfirmed, true},
		{ServiceValetCharging, StatusEnroute, true},
		{ServiceValetCharging, StatusDropoff, true},
		{ServiceValetCharging, StatusWorkComplete, false},
		{ServiceValetCharging, StatusCancelled, false},
		{ServicePortableCharger, StatusChargingStart, true},
		{ServicePortableCharger, StatusPickedUp, false},
		{ServiceRoadsideAssistance, StatusArrived, true},
		{ServiceRoadsideAssistance, StatusEndSummary, false},
		{ServiceRoadsideAssistance, "bogus", false},
	}
	for _, tt := range cases {
		assert.Equal(t, tt.cancellable, IsCancellable(tt.serviceType, tt.status),
			"IsCancellable(%s, %s)", tt.serviceType, tt.status)
	}
}

func TestValidServiceType(t *testing.T) {
	assert.True(t, ValidServiceType(ServiceValetCharging))
	assert.True(t, ValidServiceType(ServicePortableCharger))
	assert.True(t, ValidServiceType(ServiceRoadsideAssistance))
	assert.False(t, ValidServiceType("car_wash"))
}
