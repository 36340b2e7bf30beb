package booking_controller

import "errors"

var (
	ErrValidation          = errors.New("validation failed")
	ErrCapacityExceeded    = errors.New("slot capacity exceeded, please choose another slot")
	ErrDailyLimitReached   = errors.New("daily booking limit reached for this requester")
	ErrDuplicateSubmission = errors.New("identical booking request already in progress")
	ErrSlotRequired        = errors.New("slot and scheduled date are required for this service type")
)
