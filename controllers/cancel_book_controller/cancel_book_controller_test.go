package cancel_book_controller

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/chargeops/dispatch/models/booking_models"
	"github.com/chargeops/dispatch/models/shared_models"
)

func TestAuthorize(t *testing.T) {
	svc := &CancelBookService{}
	requester := uuid.New()
	technician := uuid.New()
	stranger := uuid.New()

	booking := &booking_models.Booking{
		ID:           "VC-00001",
		RequesterID:  requester,
		TechnicianID: &technician,
	}

	tests := []struct {
		name     string
		cancelBy shared_models.CancelBy
		actorID  uuid.UUID
		wantErr  error
	}{
		{"requester cancels own booking", shared_models.CancelByRequester, requester, nil},
		{"stranger cannot cancel as requester", shared_models.CancelByRequester, stranger, ErrBookingNotOwnedByUser},
		{"assigned technician cancels", shared_models.CancelByTechnician, technician, nil},
		{"other technician cannot cancel", shared_models.CancelByTechnician, stranger, ErrBookingNotOwnedByUser},
		{"admin cancels anything", shared_models.CancelByAdmin, stranger, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.authorize(booking, CancelRequest{
				BookingID: booking.ID,
				CancelBy:  tt.cancelBy,
				ActorID:   tt.actorID,
			})
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestAuthorizeTechnicianWithoutAssignment(t *testing.T) {
	svc := &CancelBookService{}
	booking := &booking_models.Booking{
		ID:          "RSA-00003",
		RequesterID: uuid.New(),
	}

	err := svc.authorize(booking, CancelRequest{
		BookingID: booking.ID,
		CancelBy:  shared_models.CancelByTechnician,
		ActorID:   uuid.New(),
	})
	assert.ErrorIs(t, err, ErrBookingNotOwnedByUser)
}
