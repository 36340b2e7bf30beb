package assignment_controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chargeops/dispatch/config/db"
	"github.com/chargeops/dispatch/controllers/transition_controller"
	"github.com/chargeops/dispatch/logger"
	"github.com/chargeops/dispatch/models/assignment_models"
	"github.com/chargeops/dispatch/models/booking_models"
	"github.com/chargeops/dispatch/models/history_models"
	"github.com/chargeops/dispatch/models/shared_models"
	"github.com/chargeops/dispatch/models/technician_models"
	"github.com/chargeops/dispatch/notifications"
)

// AssignmentService routes bookings to technicians and runs the
// accept/reject protocol.
type AssignmentService struct {
	DB          *pgxpool.Pool
	Notifier    notifications.Notifier
	Transitions *transition_controller.TransitionService
}

// NewAssignmentService creates a new AssignmentService.
func NewAssignmentService(pool *pgxpool.Pool, notifier notifications.Notifier,
	transitions *transition_controller.TransitionService) *AssignmentService {
	return &AssignmentService{
		DB:          pool,
		Notifier:    notifier,
		Transitions: transitions,
	}
}

// Assign offers a booking to a technician, recording a pending assignment.
// A pending offer to a different technician is superseded in place; an
// accepted assignment must go through Reject before the booking can be
// re-routed.
func (s *AssignmentService) Assign(ctx context.Context, bookingID string, technicianID uuid.UUID) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	booking, err := booking_models.GetBookingByIDForUpdate(ctx, tx, bookingID)
	if err != nil {
		return err
	}
	if !booking.IsActive || booking.Status == shared_models.StatusCancelled {
		return ErrBookingInactive
	}

	// A pending offer may be superseded; an accepted one holds a
	// running-job slot and must be rejected before re-routing.
	existing, err := assignment_models.GetAssignmentByBooking(ctx, tx, bookingID)
	if err != nil && !errors.Is(err, assignment_models.ErrAssignmentNotFound) {
		return err
	}
	if existing != nil {
		if existing.TechnicianID == technicianID {
			return ErrAlreadyAssigned
		}
		if existing.Status == assignment_models.AssignmentAccepted {
			return ErrAssignmentAccepted
		}
	}

	tech, err := technician_models.GetTechnicianByID(ctx, tx, technicianID)
	if err != nil {
		return err
	}
	if tech.ServiceType != booking.ServiceType {
		return ErrServiceTypeMismatch
	}

	if err := assignment_models.UpsertAssignment(ctx, tx, bookingID, technicianID, booking.RequesterID); err != nil {
		return err
	}
	if err := booking_models.SetTechnician(ctx, tx, bookingID, technicianID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit assignment: %w", err)
	}

	s.notifyAssignment(booking, technicianID)
	return nil
}

// Accept flips the pending assignment to accepted, increments the
// technician's running-job counter and applies the Accepted transition, all
// in one transaction. A technician holding another accepted assignment is
// rejected as busy.
func (s *AssignmentService) Accept(ctx context.Context, bookingID string, technicianID uuid.UUID) (*booking_models.Booking, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	booking, err := s.acceptInTx(ctx, tx, bookingID, technicianID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit acceptance: %w", err)
	}

	logger.InfoLogger.Infof("Booking %s accepted by technician %s", bookingID, technicianID)
	s.notifyAcceptance(booking)
	return booking, nil
}

func (s *AssignmentService) acceptInTx(ctx context.Context, q db.Queryer, bookingID string, technicianID uuid.UUID) (*booking_models.Booking, error) {
	assignment, err := assignment_models.GetAssignmentForTechnician(ctx, q, bookingID, technicianID)
	if err != nil {
		if errors.Is(err, assignment_models.ErrAssignmentNotFound) {
			return nil, booking_models.ErrBookingNotFound
		}
		return nil, err
	}
	if assignment.Status == assignment_models.AssignmentAccepted {
		return nil, history_models.ErrDuplicateStatus
	}

	// The technician row lock keeps the busy check valid until commit. The
	// accepted-assignment count is the authoritative busy signal; the
	// running-job counter mirrors it.
	if _, err := technician_models.GetTechnicianForUpdate(ctx, q, technicianID); err != nil {
		return nil, err
	}
	held, err := assignment_models.CountAcceptedByTechnician(ctx, q, technicianID)
	if err != nil {
		return nil, err
	}
	if held >= 1 {
		return nil, ErrTechnicianBusy
	}

	if err := assignment_models.AcceptAssignment(ctx, q, bookingID, technicianID); err != nil {
		return nil, err
	}
	if err := technician_models.IncrementRunningJobs(ctx, q, technicianID); err != nil {
		return nil, err
	}

	booking, err := s.Transitions.Apply(ctx, q, transition_controller.TransitionRequest{
		BookingID:    bookingID,
		TechnicianID: technicianID,
		TargetStatus: shared_models.StatusAccepted,
	})
	if errors.Is(err, history_models.ErrDuplicateStatus) {
		// A previous technician already drove the booking to accepted and
		// then rejected. The history row stands; only the assignment and
		// counter bookkeeping above was missing for the new technician.
		booking, err = booking_models.GetBookingByIDForUpdate(ctx, q, bookingID)
	}
	if err != nil {
		return nil, err
	}

	return booking, nil
}

// Reject removes the assignment and records the rejection. The booking
// stays unassigned; re-routing to another technician is a manual operation.
func (s *AssignmentService) Reject(ctx context.Context, bookingID string, technicianID uuid.UUID, reason string) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	assignment, err := assignment_models.GetAssignmentForTechnician(ctx, tx, bookingID, technicianID)
	if err != nil {
		if errors.Is(err, assignment_models.ErrAssignmentNotFound) {
			return booking_models.ErrBookingNotFound
		}
		return err
	}

	if err := assignment_models.InsertRejection(ctx, tx, &assignment_models.Rejection{
		BookingID:    bookingID,
		TechnicianID: technicianID,
		RequesterID:  assignment.RequesterID,
		Reason:       reason,
	}); err != nil {
		return err
	}

	// Audit the rejection without occupying the cancelled status, which the
	// booking may still legitimately reach later. A second rejection of the
	// same booking skips the history row but is still recorded above.
	err = history_models.InsertHistoryEvent(ctx, tx, &history_models.HistoryEvent{
		BookingID:    bookingID,
		Status:       "technician_rejected",
		TechnicianID: &technicianID,
		Remark:       reason,
	})
	if err != nil && !errors.Is(err, history_models.ErrDuplicateStatus) {
		return err
	}

	if err := assignment_models.DeleteAssignment(ctx, tx, bookingID); err != nil {
		return err
	}
	if assignment.Status == assignment_models.AssignmentAccepted {
		if err := technician_models.DecrementRunningJobs(ctx, tx, technicianID); err != nil {
			return err
		}
	}
	if err := booking_models.ClearTechnician(ctx, tx, bookingID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit rejection: %w", err)
	}

	logger.InfoLogger.Infof("Booking %s rejected by technician %s: %s", bookingID, technicianID, reason)
	s.notifyRejection(assignment)
	return nil
}

func (s *AssignmentService) notifyAssignment(booking *booking_models.Booking, technicianID uuid.UUID) {
	if s.Notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		s.Notifier.Notify(ctx, notifications.Notification{
			RecipientRef: technicianID.String(),
			Title:        "New job assigned",
			Body:         fmt.Sprintf("Booking %s has been routed to you", booking.ID),
			Channel:      "push",
			DeepLink:     "app://jobs/" + booking.ID,
		})
		s.Notifier.Notify(ctx, notifications.Notification{
			RecipientRef: booking.RequesterID.String(),
			Title:        "Technician assigned",
			Body:         fmt.Sprintf("A technician has been assigned to booking %s", booking.ID),
			Channel:      "push",
		})
	}()
}

func (s *AssignmentService) notifyAcceptance(booking *booking_models.Booking) {
	if s.Notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		s.Notifier.Notify(ctx, notifications.Notification{
			RecipientRef: booking.RequesterID.String(),
			Title:        "Booking accepted",
			Body:         fmt.Sprintf("Your booking %s has been accepted by the technician", booking.ID),
			Channel:      "push",
			DeepLink:     "app://bookings/" + booking.ID,
		})
	}()
}

func (s *AssignmentService) notifyRejection(assignment *assignment_models.Assignment) {
	if s.Notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		s.Notifier.Notify(ctx, notifications.Notification{
			RecipientRef: assignment.RequesterID.String(),
			Title:        "Booking needs re-routing",
			Body:         fmt.Sprintf("The technician declined booking %s", assignment.BookingID),
			Channel:      "push",
		})
	}()
}

// AssignmentController exposes the assignment protocol over HTTP.
type AssignmentController struct {
	Service *AssignmentService
}

// NewAssignmentController creates a new instance of AssignmentController.
func NewAssignmentController(service *AssignmentService) *AssignmentController {
	return &AssignmentController{Service: service}
}

type assignRequest struct {
	TechnicianID string `json:"technician_id" binding:"required,uuid"`
}

type rejectRequest struct {
	TechnicianID string `json:"technician_id" binding:"required,uuid"`
	Reason       string `json:"reason" binding:"required"`
}

// AssignTechnician handles POST /bookings/:booking_id/assign.
func (ac *AssignmentController) AssignTechnician(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	technicianID, err := uuid.Parse(req.TechnicianID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid technician ID format"})
		return
	}

	if err := ac.Service.Assign(c.Request.Context(), c.Param("booking_id"), technicianID); err != nil {
		respondAssignmentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Technician assigned"})
}

// AcceptBooking handles POST /bookings/:booking_id/accept.
func (ac *AssignmentController) AcceptBooking(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	technicianID, err := uuid.Parse(req.TechnicianID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid technician ID format"})
		return
	}

	booking, err := ac.Service.Accept(c.Request.Context(), c.Param("booking_id"), technicianID)
	if err != nil {
		respondAssignmentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Booking accepted", "booking": booking})
}

// RejectBooking handles POST /bookings/:booking_id/reject.
func (ac *AssignmentController) RejectBooking(c *gin.Context) {
	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	technicianID, err := uuid.Parse(req.TechnicianID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid technician ID format"})
		return
	}

	if err := ac.Service.Reject(c.Request.Context(), c.Param("booking_id"), technicianID, req.Reason); err != nil {
		respondAssignmentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Booking rejected"})
}

func respondAssignmentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, history_models.ErrDuplicateStatus):
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "duplicate entry"})
	case errors.Is(err, booking_models.ErrBookingNotFound),
		errors.Is(err, technician_models.ErrTechnicianNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "No booking found with this id"})
	case errors.Is(err, ErrTechnicianBusy):
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": "Technician already has one booking"})
	case errors.Is(err, ErrAlreadyAssigned):
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": "Technician is already assigned to this booking"})
	case errors.Is(err, ErrAssignmentAccepted):
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": "Booking already has an accepted assignment"})
	case errors.Is(err, ErrServiceTypeMismatch), errors.Is(err, ErrBookingInactive):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
	default:
		logger.ErrorLogger.Errorf("Assignment operation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Something went wrong. Please try again."})
	}
}
