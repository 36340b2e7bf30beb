package transition_controller

import "errors"

var (
	ErrInvalidStatus        = errors.New("invalid booking status")
	ErrAcceptanceRequired   = errors.New("assignment has not been accepted yet")
	ErrOutOfOrderStatus     = errors.New("status submitted out of order")
	ErrEvidenceRequired     = errors.New("evidence image is required for this status")
	ErrMeterReadingRequired = errors.New("charge meter reading is required for this status")
	ErrInvoiceFailed        = errors.New("invoice generation failed, booking left in prior status")
)
