package cancel_book_controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chargeops/dispatch/config"
	"github.com/chargeops/dispatch/logger"
	"github.com/chargeops/dispatch/models/assignment_models"
	"github.com/chargeops/dispatch/models/booking_models"
	"github.com/chargeops/dispatch/models/history_models"
	"github.com/chargeops/dispatch/models/shared_models"
	"github.com/chargeops/dispatch/models/technician_models"
	"github.com/chargeops/dispatch/notifications"
	"github.com/chargeops/dispatch/utils"
	"github.com/chargeops/dispatch/utils/mail"
)

// CancelRequest carries one cancellation attempt.
type CancelRequest struct {
	BookingID string
	CancelBy  shared_models.CancelBy
	ActorID   uuid.UUID
	Reason    string
}

// CancelBookService cancels bookings that have not yet passed the point of
// no return on their status chain. Cancellation releases an assigned
// technician in the same transaction.
type CancelBookService struct {
	DB       *pgxpool.Pool
	Notifier notifications.Notifier
}

// NewCancelBookService creates a new CancelBookService.
func NewCancelBookService(pool *pgxpool.Pool, notifier notifications.Notifier) *CancelBookService {
	return &CancelBookService{DB: pool, Notifier: notifier}
}

// Cancel marks the booking cancelled, appends the audit event and frees the
// technician if one was holding the job.
func (s *CancelBookService) Cancel(ctx context.Context, req CancelRequest) (*booking_models.Booking, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to begin transaction for booking %s: %v", req.BookingID, err)
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	booking, err := booking_models.GetBookingByIDForUpdate(ctx, tx, req.BookingID)
	if err != nil {
		return nil, err
	}

	if booking.Status == shared_models.StatusCancelled {
		return nil, ErrBookingAlreadyCancelled
	}
	if err := s.authorize(booking, req); err != nil {
		return nil, err
	}
	if !shared_models.IsCancellable(booking.ServiceType, booking.Status) {
		return nil, ErrBookingNotCancellable
	}

	event := &history_models.HistoryEvent{
		BookingID: booking.ID,
		Status:    shared_models.StatusCancelled,
		Remark:    fmt.Sprintf("cancelled by %s: %s", req.CancelBy, req.Reason),
	}
	if req.CancelBy == shared_models.CancelByTechnician {
		event.TechnicianID = &req.ActorID
	}
	if err := history_models.InsertHistoryEvent(ctx, tx, event); err != nil {
		if errors.Is(err, history_models.ErrDuplicateStatus) {
			return nil, ErrBookingAlreadyCancelled
		}
		return nil, err
	}

	if err := booking_models.UpdateBookingStatus(ctx, tx, booking.ID, shared_models.StatusCancelled, false); err != nil {
		return nil, err
	}

	// Free the technician so the dispatcher can hand them the next job.
	// The booking keeps technician_id for the audit trail.
	if booking.TechnicianID != nil {
		if err := assignment_models.DeleteAssignment(ctx, tx, booking.ID); err != nil {
			return nil, err
		}
		if err := technician_models.DecrementRunningJobs(ctx, tx, *booking.TechnicianID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		logger.ErrorLogger.Errorf("Failed to commit cancellation for booking %s: %v", req.BookingID, err)
		return nil, fmt.Errorf("failed to commit cancellation: %w", err)
	}

	booking.Status = shared_models.StatusCancelled
	booking.IsActive = false

	logger.InfoLogger.Infof("Booking %s cancelled by %s", booking.ID, req.CancelBy)
	s.notifyCancellation(booking, req)
	return booking, nil
}

// authorize checks that the actor is allowed to cancel this booking.
// Admins may cancel anything.
func (s *CancelBookService) authorize(booking *booking_models.Booking, req CancelRequest) error {
	switch req.CancelBy {
	case shared_models.CancelByRequester:
		if booking.RequesterID != req.ActorID {
			return ErrBookingNotOwnedByUser
		}
	case shared_models.CancelByTechnician:
		if booking.TechnicianID == nil || *booking.TechnicianID != req.ActorID {
			return ErrBookingNotOwnedByUser
		}
	}
	return nil
}

// notifyCancellation emits push notifications to both parties and queues a
// mail for the operations mailbox. Best-effort, after commit.
func (s *CancelBookService) notifyCancellation(booking *booking_models.Booking, req CancelRequest) {
	if s.Notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		title := fmt.Sprintf("Booking %s cancelled", booking.ID)
		s.Notifier.Notify(ctx, notifications.Notification{
			RecipientRef: booking.RequesterID.String(),
			Title:        title,
			Body:         "Your booking has been cancelled",
			Channel:      "push",
			DeepLink:     "app://bookings/" + booking.ID,
		})
		if booking.TechnicianID != nil {
			s.Notifier.Notify(ctx, notifications.Notification{
				RecipientRef: booking.TechnicianID.String(),
				Title:        title,
				Body:         fmt.Sprintf("Booking %s was cancelled, you have been released", booking.ID),
				Channel:      "push",
			})
		}
		opsMailbox := config.GetEnv("OPS_MAILBOX_EMAIL", "ops@chargeops.in")
		if err := mail.SendBookingCancelledEmail(opsMailbox, booking.ID,
			string(booking.ServiceType), string(req.CancelBy), req.Reason); err != nil {
			logger.ErrorLogger.Errorf("Failed to mail ops about cancellation of %s: %v", booking.ID, err)
		}
	}()
}

// CancelBookController exposes the cancellation operation over HTTP.
type CancelBookController struct {
	Service *CancelBookService
}

// NewCancelBookController creates a new instance of CancelBookController.
func NewCancelBookController(service *CancelBookService) *CancelBookController {
	return &CancelBookController{Service: service}
}

type cancelBookingRequest struct {
	Reason   string `json:"reason,omitempty"`
	CancelBy string `json:"cancel_by,omitempty" binding:"omitempty,oneof=requester admin technician"`
}

// CancelBook handles POST /bookings/:booking_id/cancel.
func (cc *CancelBookController) CancelBook(c *gin.Context) {
	var req cancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	actorID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	cancelBy := shared_models.CancelBy(req.CancelBy)
	if cancelBy == "" {
		cancelBy = shared_models.CancelByRequester
	}

	booking, err := cc.Service.Cancel(c.Request.Context(), CancelRequest{
		BookingID: c.Param("booking_id"),
		CancelBy:  cancelBy,
		ActorID:   actorID,
		Reason:    req.Reason,
	})
	if err != nil {
		respondCancelError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Booking cancelled successfully",
		"booking": booking,
	})
}

func respondCancelError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, booking_models.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "No booking found with this id"})
	case errors.Is(err, ErrBookingAlreadyCancelled):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Booking is already cancelled"})
	case errors.Is(err, ErrBookingNotCancellable):
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": "Booking can no longer be cancelled"})
	case errors.Is(err, ErrBookingNotOwnedByUser):
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Booking does not belong to this user"})
	default:
		logger.ErrorLogger.Errorf("Cancellation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Something went wrong. Please try again."})
	}
}
