package transition_controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chargeops/dispatch/clients"
	"github.com/chargeops/dispatch/config/db"
	"github.com/chargeops/dispatch/logger"
	"github.com/chargeops/dispatch/models/assignment_models"
	"github.com/chargeops/dispatch/models/booking_models"
	"github.com/chargeops/dispatch/models/history_models"
	"github.com/chargeops/dispatch/models/shared_models"
	"github.com/chargeops/dispatch/models/technician_models"
	"github.com/chargeops/dispatch/notifications"
	"github.com/chargeops/dispatch/utils/mail"
)

// TransitionRequest carries one status submission from a technician.
type TransitionRequest struct {
	BookingID     string
	TechnicianID  uuid.UUID
	TargetStatus  string
	Latitude      *float64
	Longitude     *float64
	Remark        string
	ImageID       *uuid.UUID
	ChargePercent *int
}

// TransitionService validates and applies status transitions against the
// per-service-type chains, writing one audit row per transition.
type TransitionService struct {
	DB         *pgxpool.Pool
	Notifier   notifications.Notifier
	Invoices   clients.InvoiceClientWrapper
	Payments   clients.PaymentClientWrapper
	Directory  clients.DirectoryClientWrapper
	RatePerKWh float64
	Currency   string
}

// NewTransitionService creates a new TransitionService.
func NewTransitionService(pool *pgxpool.Pool, notifier notifications.Notifier,
	invoices clients.InvoiceClientWrapper, payments clients.PaymentClientWrapper,
	directory clients.DirectoryClientWrapper) *TransitionService {
	return &TransitionService{
		DB:         pool,
		Notifier:   notifier,
		Invoices:   invoices,
		Payments:   payments,
		Directory:  directory,
		RatePerKWh: DefaultRatePerKWh,
		Currency:   DefaultCurrency,
	}
}

// Transition applies one status transition in its own transaction. On the
// terminal status the invoice render runs inside the same transaction, so
// an invoice failure leaves the booking in its prior status.
func (s *TransitionService) Transition(ctx context.Context, req TransitionRequest) (*booking_models.Booking, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to begin transaction for booking %s: %v", req.BookingID, err)
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	booking, err := s.Apply(ctx, tx, req)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		logger.ErrorLogger.Errorf("Failed to commit transition for booking %s: %v", req.BookingID, err)
		return nil, fmt.Errorf("failed to commit transition: %w", err)
	}

	s.notifyTransition(booking, req.TargetStatus)
	return booking, nil
}

// Apply runs the transition inside the caller's transaction. The assignment
// engine uses this to fold acceptance and the Accepted transition into one
// atomic operation.
func (s *TransitionService) Apply(ctx context.Context, q db.Queryer, req TransitionRequest) (*booking_models.Booking, error) {
	// The active assignment scopes the operation to the technician who
	// actually holds the job.
	assignment, err := assignment_models.GetAssignmentForTechnician(ctx, q, req.BookingID, req.TechnicianID)
	if err != nil {
		if errors.Is(err, assignment_models.ErrAssignmentNotFound) {
			return nil, booking_models.ErrBookingNotFound
		}
		return nil, err
	}
	// A pending offer grants no transitions. Acceptance goes through the
	// assignment engine, which flips the assignment and the running-job
	// counter before applying the Accepted transition here.
	if assignment.Status != assignment_models.AssignmentAccepted {
		return nil, ErrAcceptanceRequired
	}

	booking, err := booking_models.GetBookingByIDForUpdate(ctx, q, req.BookingID)
	if err != nil {
		return nil, err
	}

	spec, ok := shared_models.SpecFor(booking.ServiceType, req.TargetStatus)
	if !ok {
		return nil, ErrInvalidStatus
	}

	// Duplicate check before the ordering check, so a replayed submission
	// of an already-recorded status is reported as the benign duplicate.
	exists, err := history_models.HistoryEventExists(ctx, q, req.BookingID, req.TargetStatus)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, history_models.ErrDuplicateStatus
	}

	// Only the immediate successor is accepted: no skipping, no undo.
	next, ok := shared_models.NextStatus(booking.ServiceType, booking.Status)
	if !ok || next != req.TargetStatus {
		return nil, ErrOutOfOrderStatus
	}

	if spec.RequiresEvidence && req.ImageID == nil {
		return nil, ErrEvidenceRequired
	}
	if (spec.CaptureChargeStart || spec.CaptureChargeEnd) && req.ChargePercent == nil {
		return nil, ErrMeterReadingRequired
	}

	if spec.CaptureChargeStart {
		if err := booking_models.SetChargeMeter(ctx, q, booking.ID, req.ChargePercent, nil); err != nil {
			return nil, err
		}
		booking.ChargeStartPercent = req.ChargePercent
	}
	if spec.CaptureChargeEnd {
		if err := booking_models.SetChargeMeter(ctx, q, booking.ID, nil, req.ChargePercent); err != nil {
			return nil, err
		}
		booking.ChargeEndPercent = req.ChargePercent
	}

	event := &history_models.HistoryEvent{
		BookingID:    booking.ID,
		Status:       req.TargetStatus,
		TechnicianID: &req.TechnicianID,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		Remark:       req.Remark,
		ImageID:      req.ImageID,
	}
	if err := history_models.InsertHistoryEvent(ctx, q, event); err != nil {
		return nil, err
	}

	active := !spec.ReleasesTechnician
	if err := booking_models.UpdateBookingStatus(ctx, q, booking.ID, req.TargetStatus, active); err != nil {
		return nil, err
	}
	booking.Status = req.TargetStatus
	booking.IsActive = active

	if spec.ReleasesTechnician {
		if err := assignment_models.DeleteAssignment(ctx, q, booking.ID); err != nil {
			return nil, err
		}
		if err := technician_models.DecrementRunningJobs(ctx, q, req.TechnicianID); err != nil {
			return nil, err
		}
	}

	if spec.TriggersInvoice {
		if err := s.triggerInvoice(booking); err != nil {
			logger.ErrorLogger.Errorf("Invoice generation failed for booking %s, rolling back transition: %v", booking.ID, err)
			return nil, fmt.Errorf("%w: %v", ErrInvoiceFailed, err)
		}
	}

	return booking, nil
}

func (s *TransitionService) triggerInvoice(booking *booking_models.Booking) error {
	req, err := BuildInvoiceRequest(booking, s.RatePerKWh, s.Currency)
	if err != nil {
		return err
	}
	enrichFromGateway(req, s.Payments, booking.PaymentRef)

	result, err := s.Invoices.Render(invoiceTemplateKey, invoiceRenderData(req))
	if err != nil {
		return err
	}

	logger.InfoLogger.Infof("Invoice rendered for booking %s at %s (total %.2f %s)",
		booking.ID, result.DocumentPath, req.Total, req.Currency)
	return nil
}

// notifyTransition emits push notifications after commit. Delivery is
// best-effort and never blocks or fails the transition.
func (s *TransitionService) notifyTransition(booking *booking_models.Booking, status string) {
	if s.Notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		title := fmt.Sprintf("Booking %s updated", booking.ID)
		body := fmt.Sprintf("Your booking is now %s", status)
		requester := s.resolveContact(booking.RequesterID.String())
		s.Notifier.Notify(ctx, notifications.Notification{
			RecipientRef: requester.PushToken,
			Title:        title,
			Body:         body,
			Channel:      "push",
			DeepLink:     "app://bookings/" + booking.ID,
		})
		if booking.TechnicianID != nil {
			technician := s.resolveContact(booking.TechnicianID.String())
			s.Notifier.Notify(ctx, notifications.Notification{
				RecipientRef: technician.PushToken,
				Title:        title,
				Body:         fmt.Sprintf("Booking %s moved to %s", booking.ID, status),
				Channel:      "push",
			})
		}

		// On the terminal status the invoice has been rendered, so tell the
		// requester to expect it.
		if spec, ok := shared_models.SpecFor(booking.ServiceType, status); ok && spec.TriggersInvoice && requester.Email != "" {
			html := fmt.Sprintf("<p>The service for booking <b>%s</b> is complete. Your invoice is on its way.</p>", booking.ID)
			if inv, err := BuildInvoiceRequest(booking, s.RatePerKWh, s.Currency); err == nil {
				if rendered, err := mail.RenderInvoiceReadyHTML(booking.ID, inv.Total, inv.Currency); err == nil {
					html = rendered
				}
			}
			s.Notifier.EnqueueEmail(ctx, notifications.EmailMessage{
				Recipient: requester.Email,
				Subject:   fmt.Sprintf("Your invoice for booking %s", booking.ID),
				HTML:      html,
			})
		}
	}()
}

// resolveContact looks the recipient up in the directory. When the lookup
// fails the raw reference is used so the bus worker can retry resolution.
func (s *TransitionService) resolveContact(ref string) *clients.Contact {
	if s.Directory == nil {
		return &clients.Contact{Ref: ref, PushToken: ref}
	}
	contact, err := s.Directory.GetContact(ref)
	if err != nil {
		logger.WarnLogger.Warnf("Directory lookup for %s failed: %v", ref, err)
		return &clients.Contact{Ref: ref, PushToken: ref}
	}
	if contact.PushToken == "" {
		contact.PushToken = ref
	}
	return contact
}

// TransitionController exposes the transition operation over HTTP.
type TransitionController struct {
	Service *TransitionService
}

// NewTransitionController creates a new instance of TransitionController.
func NewTransitionController(service *TransitionService) *TransitionController {
	return &TransitionController{Service: service}
}

type transitionStatusRequest struct {
	TechnicianID  string   `json:"technician_id" binding:"required,uuid"`
	Status        string   `json:"status" binding:"required"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
	Remark        string   `json:"remark,omitempty"`
	ImageID       string   `json:"image_id,omitempty"`
	ChargePercent *int     `json:"charge_percent,omitempty"`
}

// TransitionStatus handles POST /bookings/:booking_id/transition.
func (tc *TransitionController) TransitionStatus(c *gin.Context) {
	var req transitionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	technicianID, err := uuid.Parse(req.TechnicianID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid technician ID format"})
		return
	}

	transition := TransitionRequest{
		BookingID:     c.Param("booking_id"),
		TechnicianID:  technicianID,
		TargetStatus:  req.Status,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		Remark:        req.Remark,
		ChargePercent: req.ChargePercent,
	}
	if req.ImageID != "" {
		imageID, err := uuid.Parse(req.ImageID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image ID format"})
			return
		}
		transition.ImageID = &imageID
	}

	booking, err := tc.Service.Transition(c.Request.Context(), transition)
	if err != nil {
		respondTransitionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Booking status updated",
		"booking": booking,
	})
}

func respondTransitionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, history_models.ErrDuplicateStatus):
		// Duplicate submissions are a benign no-op for retrying clients.
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "duplicate entry"})
	case errors.Is(err, booking_models.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "No booking found with this id"})
	case errors.Is(err, ErrAcceptanceRequired):
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": "Booking must be accepted before status updates"})
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrOutOfOrderStatus):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid booking status"})
	case errors.Is(err, ErrEvidenceRequired):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Evidence image is required for this status"})
	case errors.Is(err, ErrMeterReadingRequired):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Charge meter reading is required for this status"})
	case errors.Is(err, ErrInvoiceFailed):
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "message": "Invoice generation failed. Please retry."})
	default:
		logger.ErrorLogger.Errorf("Transition failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Something went wrong. Please try again."})
	}
}
