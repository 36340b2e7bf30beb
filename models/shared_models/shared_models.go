package shared_models

import "fmt"

// ServiceType identifies one of the dispatchable field services.
type ServiceType string

const (
	ServiceValetCharging      ServiceType = "valet_charging"
	ServicePortableCharger    ServiceType = "portable_charger"
	ServiceRoadsideAssistance ServiceType = "roadside_assistance"
)

// Booking identifier prefixes, one per service type.
const (
	PrefixValetCharging      = "VC"
	PrefixPortableCharger    = "PC"
	PrefixRoadsideAssistance = "RSA"
)

// Booking status codes. Each service type walks a linear chain of these;
// "cancelled" is the only side branch.
const (
	StatusConfirmed        = "confirmed"
	StatusBookingDone      = "booking_done"
	StatusAccepted         = "accepted"
	StatusEnroute          = "enroute"
	StatusVehiclePickedUp  = "vehicle_picked_up"
	StatusReached          = "reached"
	StatusReachedLocation  = "reached_location"
	StatusChargingStart    = "charging_start"
	StatusChargingComplete = "charging_complete"
	StatusDropoff          = "dropoff"
	StatusWorkComplete     = "work_complete"
	StatusPickedUp         = "picked_up"
	StatusArrived          = "arrived"
	StatusEndSummary       = "end_summary"
	StatusCancelled        = "cancelled"
)

// CancelBy identifies who requested a cancellation.
type CancelBy string

const (
	CancelByRequester  CancelBy = "requester"
	CancelByAdmin      CancelBy = "admin"
	CancelByTechnician CancelBy = "technician"
)

// StatusSpec describes what the transition engine must do when a booking
// reaches a given status in its chain.
type StatusSpec struct {
	Status string
	// RequiresEvidence forces an evidence image id on the transition request.
	RequiresEvidence bool
	// CaptureChargeStart / CaptureChargeEnd record battery meter readings
	// used later for invoicing.
	CaptureChargeStart bool
	CaptureChargeEnd   bool
	// ReleasesTechnician deletes the assignment and decrements the
	// technician running-job counter.
	ReleasesTechnician bool
	// TriggersInvoice runs the invoice trigger inside the same transaction.
	TriggersInvoice bool
}

// statusChains holds the ordered per-type chains. The first entry is the
// initial status written by booking creation; the last is terminal.
var statusChains = map[ServiceType][]StatusSpec{
	ServiceValetCharging: {
		{Status: StatusConfirmed},
		{Status: StatusAccepted},
		{Status: StatusEnroute},
		{Status: StatusVehiclePickedUp, RequiresEvidence: true},
		{Status: StatusReached, CaptureChargeStart: true},
		{Status: StatusChargingComplete, CaptureChargeEnd: true},
		{Status: StatusDropoff},
		{Status: StatusWorkComplete, RequiresEvidence: true, ReleasesTechnician: true, TriggersInvoice: true},
	},
	ServicePortableCharger: {
		{Status: StatusConfirmed},
		{Status: StatusAccepted},
		{Status: StatusEnroute},
		{Status: StatusReachedLocation},
		{Status: StatusChargingStart, CaptureChargeStart: true},
		{Status: StatusChargingComplete, CaptureChargeEnd: true},
		{Status: StatusPickedUp, RequiresEvidence: true, ReleasesTechnician: true, TriggersInvoice: true},
	},
	ServiceRoadsideAssistance: {
		{Status: StatusBookingDone},
		{Status: StatusAccepted},
		{Status: StatusArrived},
		{Status: StatusWorkComplete, RequiresEvidence: true},
		{Status: StatusEndSummary, ReleasesTechnician: true, TriggersInvoice: true},
	},
}

var idPrefixes = map[ServiceType]string{
	ServiceValetCharging:      PrefixValetCharging,
	ServicePortableCharger:    PrefixPortableCharger,
	ServiceRoadsideAssistance: PrefixRoadsideAssistance,
}

// ValidServiceType reports whether t names a known service type.
func ValidServiceType(t ServiceType) bool {
	_, ok := statusChains[t]
	return ok
}

// IDPrefix returns the booking identifier prefix for t.
func IDPrefix(t ServiceType) string {
	return idPrefixes[t]
}

// Chain returns the ordered status chain for t.
func Chain(t ServiceType) []StatusSpec {
	return statusChains[t]
}

// InitialStatus returns the status a new booking of type t starts in.
func InitialStatus(t ServiceType) string {
	return statusChains[t][0].Status
}

// TerminalStatus returns the final chain status for t.
func TerminalStatus(t ServiceType) string {
	chain := statusChains[t]
	return chain[len(chain)-1].Status
}

// SpecFor returns the StatusSpec for status within t's chain.
// The second return is false when the status is not part of the chain.
func SpecFor(t ServiceType, status string) (StatusSpec, bool) {
	for _, s := range statusChains[t] {
		if s.Status == status {
			return s, true
		}
	}
	return StatusSpec{}, false
}

// NextStatus returns the status that must follow current in t's chain.
// ok is false when current is terminal or not part of the chain.
func NextStatus(t ServiceType, current string) (string, bool) {
	chain := statusChains[t]
	for i, s := range chain {
		if s.Status == current {
			if i+1 < len(chain) {
				return chain[i+1].Status, true
			}
			return "", false
		}
	}
	return "", false
}

// IsCancellable reports whether a booking of type t in the given status may
// still be cancelled. Terminal and already-cancelled bookings may not.
func IsCancellable(t ServiceType, status string) bool {
	if status == StatusCancelled {
		return false
	}
	spec, ok := SpecFor(t, status)
	if !ok {
		return false
	}
	return !spec.ReleasesTechnician
}

// ValidateChains sanity-checks the chain tables. Called once at startup so a
// malformed table fails fast rather than at transition time.
func ValidateChains() error {
	for t, chain := range statusChains {
		if len(chain) < 2 {
			return fmt.Errorf("service type %s: chain too short", t)
		}
		if idPrefixes[t] == "" {
			return fmt.Errorf("service type %s: missing id prefix", t)
		}
		seen := make(map[string]bool, len(chain))
		for i, s := range chain {
			if s.Status == "" || s.Status == StatusCancelled {
				return fmt.Errorf("service type %s: invalid status at position %d", t, i)
			}
			if seen[s.Status] {
				return fmt.Errorf("service type %s: duplicate status %s", t, s.Status)
			}
			seen[s.Status] = true
			terminal := i == len(chain)-1
			if s.TriggersInvoice != terminal {
				return fmt.Errorf("service type %s: status %s: invoice trigger must be terminal only", t, s.Status)
			}
			if s.ReleasesTechnician && !terminal {
				return fmt.Errorf("service type %s: status %s: technician release before terminal", t, s.Status)
			}
		}
	}
	return nil
}
