package booking_controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chargeops/dispatch/cache"
	"github.com/chargeops/dispatch/config/db"
	"github.com/chargeops/dispatch/logger"
	"github.com/chargeops/dispatch/models/booking_models"
	"github.com/chargeops/dispatch/models/history_models"
	"github.com/chargeops/dispatch/models/shared_models"
	"github.com/chargeops/dispatch/models/slot_models"
	"github.com/chargeops/dispatch/notifications"
)

const (
	submissionGuardPrefix = "booking_submission:"
	submissionGuardTTL    = 2 * time.Minute

	// Slot-based service types allow one active booking per requester per day.
	dailyBookingLimit = 1
)

// CreateBookingRequest is the payload for creating a booking.
type CreateBookingRequest struct {
	ServiceType   string  `json:"service_type" binding:"required"`
	SlotID        string  `json:"slot_id,omitempty"`
	ScheduledDate string  `json:"scheduled_date,omitempty"`
	Price         float64 `json:"price" binding:"required,gt=0"`
	PaymentRef    string  `json:"payment_ref,omitempty"`
	CouponCode    string  `json:"coupon_code,omitempty"`
	Remark        string  `json:"remark,omitempty"`
}

// BookingService creates booking records. Capacity is checked against the
// locked slot row inside the same transaction that inserts the booking, so
// concurrent creations cannot overbook a slot.
type BookingService struct {
	DB       *pgxpool.Pool
	Guard    cache.Store
	Notifier notifications.Notifier
}

// NewBookingService creates a new BookingService.
func NewBookingService(pool *pgxpool.Pool, guard cache.Store, notifier notifications.Notifier) *BookingService {
	return &BookingService{DB: pool, Guard: guard, Notifier: notifier}
}

func submissionGuardKey(requesterID uuid.UUID, serviceType, slotID, date string) string {
	return fmt.Sprintf("%s%s:%s:%s:%s", submissionGuardPrefix, requesterID, serviceType, slotID, date)
}

// SlotBased reports whether the service type is scheduled against slots.
// Roadside assistance dispatches immediately and has no slot.
func SlotBased(t shared_models.ServiceType) bool {
	return t != shared_models.ServiceRoadsideAssistance
}

// CreateBooking verifies capacity, allocates the typed identifier and
// inserts the booking with its first history event, all in one transaction.
func (s *BookingService) CreateBooking(ctx context.Context, requesterID uuid.UUID, req *CreateBookingRequest) (*booking_models.Booking, error) {
	serviceType := shared_models.ServiceType(req.ServiceType)
	if !shared_models.ValidServiceType(serviceType) {
		return nil, fmt.Errorf("%w: unknown service type %q", ErrValidation, req.ServiceType)
	}

	var slotID *uuid.UUID
	var scheduledDate *time.Time
	if SlotBased(serviceType) {
		if req.SlotID == "" || req.ScheduledDate == "" {
			return nil, ErrSlotRequired
		}
		parsed, err := uuid.Parse(req.SlotID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid slot ID format", ErrValidation)
		}
		date, err := time.Parse("2006-01-02", req.ScheduledDate)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid scheduled date, expected YYYY-MM-DD", ErrValidation)
		}
		slotID = &parsed
		scheduledDate = &date
	}

	// Short-lived guard against double-submits from retrying clients. The
	// authoritative capacity check still happens inside the transaction.
	guardKey := submissionGuardKey(requesterID, req.ServiceType, req.SlotID, req.ScheduledDate)
	if s.Guard != nil {
		set, err := s.Guard.SetNX(ctx, guardKey, "1", submissionGuardTTL)
		if err != nil {
			logger.WarnLogger.Warnf("Submission guard unavailable, proceeding without it: %v", err)
		} else if !set {
			return nil, ErrDuplicateSubmission
		}
	}

	booking, err := s.createInTx(ctx, requesterID, serviceType, slotID, scheduledDate, req)
	if err != nil {
		s.releaseGuard(ctx, guardKey)
		return nil, err
	}

	s.notifyCreated(booking)
	return booking, nil
}

func (s *BookingService) createInTx(ctx context.Context, requesterID uuid.UUID,
	serviceType shared_models.ServiceType, slotID *uuid.UUID, scheduledDate *time.Time,
	req *CreateBookingRequest) (*booking_models.Booking, error) {

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if slotID != nil {
		if err := checkSlotCapacity(ctx, tx, requesterID, *slotID, *scheduledDate); err != nil {
			return nil, err
		}
	}

	bookingID, err := booking_models.NextBookingID(ctx, tx, serviceType)
	if err != nil {
		return nil, err
	}

	booking := &booking_models.Booking{
		ID:            bookingID,
		ServiceType:   serviceType,
		RequesterID:   requesterID,
		SlotID:        slotID,
		ScheduledDate: scheduledDate,
		Status:        shared_models.InitialStatus(serviceType),
		Price:         req.Price,
	}
	if req.PaymentRef != "" {
		booking.PaymentRef = &req.PaymentRef
	}

	if _, err := booking_models.CreateBooking(ctx, tx, booking); err != nil {
		return nil, err
	}

	if err := history_models.InsertHistoryEvent(ctx, tx, &history_models.HistoryEvent{
		BookingID: booking.ID,
		Status:    booking.Status,
		Remark:    req.Remark,
	}); err != nil {
		return nil, err
	}

	// Coupon usage is recorded in the same transaction so a rolled-back
	// booking never consumes the coupon.
	if req.CouponCode != "" {
		if err := booking_models.RecordCouponUsage(ctx, tx, booking.ID, requesterID, req.CouponCode); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit booking creation: %w", err)
	}

	logger.InfoLogger.Infof("Booking %s created for requester %s", booking.ID, requesterID)
	return booking, nil
}

// checkSlotCapacity enforces the slot capacity limit and the per-requester
// daily cap. The slot row lock keeps both counts valid until commit.
func checkSlotCapacity(ctx context.Context, q db.Queryer, requesterID, slotID uuid.UUID, scheduledDate time.Time) error {
	slot, err := slot_models.GetSlotByIDForUpdate(ctx, q, slotID)
	if err != nil {
		return err
	}
	active, err := slot_models.ActiveBookingCount(ctx, q, slot.ID, scheduledDate)
	if err != nil {
		return err
	}
	if active >= slot.BookingLimit {
		logger.WarnLogger.Warnf("Slot %s full on %s (%d/%d)", slot.ID,
			scheduledDate.Format("2006-01-02"), active, slot.BookingLimit)
		return ErrCapacityExceeded
	}

	requesterCount, err := booking_models.CountActiveForRequesterOnDate(ctx, q, requesterID, scheduledDate)
	if err != nil {
		return err
	}
	if requesterCount >= dailyBookingLimit {
		return ErrDailyLimitReached
	}
	return nil
}

func (s *BookingService) releaseGuard(ctx context.Context, key string) {
	if s.Guard == nil {
		return
	}
	if err := s.Guard.Del(ctx, key); err != nil {
		logger.WarnLogger.Warnf("Failed to release submission guard %s: %v", key, err)
	}
}

func (s *BookingService) notifyCreated(booking *booking_models.Booking) {
	if s.Notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		s.Notifier.Notify(ctx, notifications.Notification{
			RecipientRef: booking.RequesterID.String(),
			Title:        "Booking confirmed",
			Body:         fmt.Sprintf("Your booking %s has been created", booking.ID),
			Channel:      "push",
			DeepLink:     "app://bookings/" + booking.ID,
		})
	}()
}

// BookingController exposes booking creation and lookup over HTTP.
type BookingController struct {
	Service *BookingService
}

// NewBookingController creates a new instance of BookingController.
func NewBookingController(service *BookingService) *BookingController {
	return &BookingController{Service: service}
}

// CreateBooking handles POST /bookings.
func (bc *BookingController) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	requesterID, ok := requesterFromContext(c)
	if !ok {
		return
	}

	booking, err := bc.Service.CreateBooking(c.Request.Context(), requesterID, &req)
	if err != nil {
		respondBookingError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Booking created successfully",
		"booking": booking,
	})
}

// GetBooking handles GET /bookings/:booking_id, returning the booking with
// its full audit trail.
func (bc *BookingController) GetBooking(c *gin.Context) {
	bookingID := c.Param("booking_id")

	booking, err := booking_models.GetBookingByID(c.Request.Context(), bc.Service.DB, bookingID)
	if err != nil {
		respondBookingError(c, err)
		return
	}
	history, err := history_models.ListHistoryByBooking(c.Request.Context(), bc.Service.DB, bookingID)
	if err != nil {
		respondBookingError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"booking": booking,
		"history": history,
	})
}

func requesterFromContext(c *gin.Context) (uuid.UUID, bool) {
	userIDParam, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "User not authenticated"})
		return uuid.Nil, false
	}
	userID, ok := userIDParam.(uuid.UUID)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Invalid user ID format"})
		return uuid.Nil, false
	}
	return userID, true
}

func respondBookingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, booking_models.ErrBookingNotFound), errors.Is(err, slot_models.ErrSlotNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": err.Error()})
	case errors.Is(err, ErrCapacityExceeded), errors.Is(err, ErrDailyLimitReached):
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": err.Error()})
	case errors.Is(err, ErrDuplicateSubmission):
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": err.Error()})
	case errors.Is(err, ErrSlotRequired), errors.Is(err, ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
	default:
		logger.ErrorLogger.Errorf("Booking operation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Something went wrong. Please try again."})
	}
}
