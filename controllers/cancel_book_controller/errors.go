package cancel_book_controller

import "errors"

var (
	ErrBookingAlreadyCancelled = errors.New("booking is already cancelled")
	ErrBookingNotOwnedByUser   = errors.New("booking does not belong to this user")
	ErrBookingNotCancellable   = errors.New("booking can no longer be cancelled")
)
