package assignment_controller

import "errors"

var (
	ErrAlreadyAssigned     = errors.New("technician is already assigned to this booking")
	ErrAssignmentAccepted  = errors.New("booking already has an accepted assignment")
	ErrTechnicianBusy      = errors.New("technician already has one booking")
	ErrServiceTypeMismatch = errors.New("technician does not serve this service type")
	ErrBookingInactive     = errors.New("booking is no longer active")
)
