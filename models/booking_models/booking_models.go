package booking_models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/chargeops/dispatch/config/db"
	"github.com/chargeops/dispatch/logger"
	"github.com/chargeops/dispatch/models/shared_models"
)

var ErrBookingNotFound = errors.New("no booking found with this id")

// Booking represents one instance of a requested field service. Rows are
// immutable apart from status, technician reference, charge meter readings
// and the active flag; they are never deleted.
type Booking struct {
	ID                 string                    `json:"id"`
	ServiceType        shared_models.ServiceType `json:"service_type"`
	RequesterID        uuid.UUID                 `json:"requester_id"`
	TechnicianID       *uuid.UUID                `json:"technician_id,omitempty"`
	SlotID             *uuid.UUID                `json:"slot_id,omitempty"`
	ScheduledDate      *time.Time                `json:"scheduled_date,omitempty"`
	Status             string                    `json:"status"`
	Price              float64                   `json:"price"`
	PaymentRef         *string                   `json:"payment_ref,omitempty"`
	ChargeStartPercent *int                      `json:"charge_start_percent,omitempty"`
	ChargeEndPercent   *int                      `json:"charge_end_percent,omitempty"`
	IsActive           bool                      `json:"is_active"`
	CreatedAt          time.Time                 `json:"created_at"`
	UpdatedAt          time.Time                 `json:"updated_at"`
}

// FormatBookingID renders a typed booking identifier, e.g. VC-00042.
func FormatBookingID(t shared_models.ServiceType, seq int64) string {
	return fmt.Sprintf("%s-%05d", shared_models.IDPrefix(t), seq)
}

// NextBookingID allocates the next identifier for the service type. The
// per-type counter row is incremented atomically, so concurrent creations
// can neither duplicate nor skip a sequence number. Must run inside the
// same transaction as the booking insert.
func NextBookingID(ctx context.Context, q db.Queryer, t shared_models.ServiceType) (string, error) {
	query := `
		INSERT INTO booking_sequences (service_type, last_seq)
		VALUES ($1, 1)
		ON CONFLICT (service_type)
		DO UPDATE SET last_seq = booking_sequences.last_seq + 1
		RETURNING last_seq`

	var seq int64
	if err := q.QueryRow(ctx, query, t).Scan(&seq); err != nil {
		logger.ErrorLogger.Errorf("Failed to allocate booking sequence for %s: %v", t, err)
		return "", fmt.Errorf("failed to allocate booking sequence: %w", err)
	}
	return FormatBookingID(t, seq), nil
}

// CreateBooking inserts a new booking row.
func CreateBooking(ctx context.Context, q db.Queryer, booking *Booking) (*Booking, error) {
	logger.InfoLogger.Infof("Creating %s booking %s for requester %s", booking.ServiceType, booking.ID, booking.RequesterID)

	now := time.Now()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
		booking.UpdatedAt = now
	}
	booking.IsActive = true

	query := `
		INSERT INTO bookings (
			id, service_type, requester_id, technician_id, slot_id, scheduled_date,
			status, price, payment_ref, is_active, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)`

	_, err := q.Exec(ctx, query,
		booking.ID, booking.ServiceType, booking.RequesterID, booking.TechnicianID,
		booking.SlotID, booking.ScheduledDate, booking.Status, booking.Price,
		booking.PaymentRef, booking.IsActive, booking.CreatedAt, booking.UpdatedAt,
	)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to insert booking %s: %v", booking.ID, err)
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	logger.InfoLogger.Infof("Booking %s created with status %s", booking.ID, booking.Status)
	return booking, nil
}

// GetBookingByID fetches a booking record by its identifier.
func GetBookingByID(ctx context.Context, q db.Queryer, bookingID string) (*Booking, error) {
	booking := &Booking{}
	query := `
		SELECT id, service_type, requester_id, technician_id, slot_id, scheduled_date,
		       status, price, payment_ref, charge_start_percent, charge_end_percent, is_active,
		       created_at, updated_at
		FROM bookings
		WHERE id = $1`

	err := q.QueryRow(ctx, query, bookingID).Scan(
		&booking.ID, &booking.ServiceType, &booking.RequesterID, &booking.TechnicianID,
		&booking.SlotID, &booking.ScheduledDate, &booking.Status, &booking.Price,
		&booking.PaymentRef, &booking.ChargeStartPercent, &booking.ChargeEndPercent, &booking.IsActive,
		&booking.CreatedAt, &booking.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			logger.WarnLogger.Warnf("Booking %s not found", bookingID)
			return nil, ErrBookingNotFound
		}
		logger.ErrorLogger.Errorf("Failed to fetch booking %s: %v", bookingID, err)
		return nil, fmt.Errorf("database error fetching booking: %w", err)
	}

	return booking, nil
}

// GetBookingByIDForUpdate fetches a booking row with a row lock, so the
// status read stays valid for the rest of the enclosing transaction.
func GetBookingByIDForUpdate(ctx context.Context, q db.Queryer, bookingID string) (*Booking, error) {
	booking := &Booking{}
	query := `
		SELECT id, service_type, requester_id, technician_id, slot_id, scheduled_date,
		       status, price, payment_ref, charge_start_percent, charge_end_percent, is_active,
		       created_at, updated_at
		FROM bookings
		WHERE id = $1
		FOR UPDATE`

	err := q.QueryRow(ctx, query, bookingID).Scan(
		&booking.ID, &booking.ServiceType, &booking.RequesterID, &booking.TechnicianID,
		&booking.SlotID, &booking.ScheduledDate, &booking.Status, &booking.Price,
		&booking.PaymentRef, &booking.ChargeStartPercent, &booking.ChargeEndPercent, &booking.IsActive,
		&booking.CreatedAt, &booking.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		logger.ErrorLogger.Errorf("Failed to lock booking %s: %v", bookingID, err)
		return nil, fmt.Errorf("database error fetching booking: %w", err)
	}

	return booking, nil
}

// UpdateBookingStatus updates the current-status field. The active flag is
// cleared when the status is terminal for the booking's chain or cancelled.
func UpdateBookingStatus(ctx context.Context, q db.Queryer, bookingID, status string, active bool) error {
	query := `
		UPDATE bookings
		SET status = $2, is_active = $3, updated_at = $4
		WHERE id = $1`

	cmdTag, err := q.Exec(ctx, query, bookingID, status, active, time.Now())
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to update booking %s status: %v", bookingID, err)
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrBookingNotFound
	}

	logger.InfoLogger.Infof("Booking %s status updated to %s", bookingID, status)
	return nil
}

// SetTechnician records the technician currently routed to the booking.
func SetTechnician(ctx context.Context, q db.Queryer, bookingID string, technicianID uuid.UUID) error {
	query := `
		UPDATE bookings
		SET technician_id = $2, updated_at = $3
		WHERE id = $1`

	cmdTag, err := q.Exec(ctx, query, bookingID, technicianID, time.Now())
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to set technician on booking %s: %v", bookingID, err)
		return fmt.Errorf("failed to set technician: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// ClearTechnician detaches the technician after a rejection, leaving the
// booking unassigned for manual re-routing.
func ClearTechnician(ctx context.Context, q db.Queryer, bookingID string) error {
	query := `
		UPDATE bookings
		SET technician_id = NULL, updated_at = $2
		WHERE id = $1`

	cmdTag, err := q.Exec(ctx, query, bookingID, time.Now())
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to clear technician on booking %s: %v", bookingID, err)
		return fmt.Errorf("failed to clear technician: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// SetChargeMeter stores a battery meter reading captured during a transition.
func SetChargeMeter(ctx context.Context, q db.Queryer, bookingID string, startPercent, endPercent *int) error {
	query := `
		UPDATE bookings
		SET charge_start_percent = COALESCE($2, charge_start_percent),
		    charge_end_percent   = COALESCE($3, charge_end_percent),
		    updated_at = $4
		WHERE id = $1`

	cmdTag, err := q.Exec(ctx, query, bookingID, startPercent, endPercent, time.Now())
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to store charge meter for booking %s: %v", bookingID, err)
		return fmt.Errorf("failed to store charge meter: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// CountActiveForRequesterOnDate counts the requester's active bookings
// scheduled on the given day, for the per-requester daily cap.
func CountActiveForRequesterOnDate(ctx context.Context, q db.Queryer, requesterID uuid.UUID, date time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM bookings
		WHERE requester_id = $1
		  AND scheduled_date = $2
		  AND is_active = TRUE`

	var count int
	if err := q.QueryRow(ctx, query, requesterID, date).Scan(&count); err != nil {
		logger.ErrorLogger.Errorf("Failed to count bookings for requester %s: %v", requesterID, err)
		return 0, fmt.Errorf("failed to count requester bookings: %w", err)
	}
	return count, nil
}

// RecordCouponUsage writes a coupon redemption against the booking. Runs in
// the booking-creation transaction so a rollback frees the coupon again.
func RecordCouponUsage(ctx context.Context, q db.Queryer, bookingID string, requesterID uuid.UUID, couponCode string) error {
	query := `
		INSERT INTO coupon_usages (booking_id, requester_id, coupon_code, used_at)
		VALUES ($1, $2, $3, $4)`

	if _, err := q.Exec(ctx, query, bookingID, requesterID, couponCode, time.Now()); err != nil {
		logger.ErrorLogger.Errorf("Failed to record coupon %s for booking %s: %v", couponCode, bookingID, err)
		return fmt.Errorf("failed to record coupon usage: %w", err)
	}
	return nil
}
