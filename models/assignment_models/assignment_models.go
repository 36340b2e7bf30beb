package assignment_models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/chargeops/dispatch/config/db"
	"github.com/chargeops/dispatch/logger"
)

var ErrAssignmentNotFound = errors.New("no assignment found for this booking")

// Assignment statuses. A technician holds at most one accepted assignment.
const (
	AssignmentPending  = 0
	AssignmentAccepted = 1
)

// Assignment is the offer of a booking to a technician. One row per booking;
// re-routing a booking to another technician replaces the row.
type Assignment struct {
	ID           int64     `json:"id"`
	BookingID    string    `json:"booking_id"`
	TechnicianID uuid.UUID `json:"technician_id"`
	RequesterID  uuid.UUID `json:"requester_id"`
	Status       int       `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Rejection records a technician declining an assignment.
type Rejection struct {
	ID           int64     `json:"id"`
	BookingID    string    `json:"booking_id"`
	TechnicianID uuid.UUID `json:"technician_id"`
	RequesterID  uuid.UUID `json:"requester_id"`
	Reason       string    `json:"reason"`
	CreatedAt    time.Time `json:"created_at"`
}

// GetAssignmentByBooking fetches the assignment row for a booking.
func GetAssignmentByBooking(ctx context.Context, q db.Queryer, bookingID string) (*Assignment, error) {
	a := &Assignment{}
	query := `
		SELECT id, booking_id, technician_id, requester_id, status, created_at, updated_at
		FROM assignments
		WHERE booking_id = $1`

	err := q.QueryRow(ctx, query, bookingID).Scan(
		&a.ID, &a.BookingID, &a.TechnicianID, &a.RequesterID, &a.Status, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAssignmentNotFound
		}
		logger.ErrorLogger.Errorf("Failed to fetch assignment for booking %s: %v", bookingID, err)
		return nil, fmt.Errorf("database error fetching assignment: %w", err)
	}
	return a, nil
}

// GetAssignmentForTechnician fetches the assignment row for (booking,
// technician), locking it for the rest of the enclosing transaction.
func GetAssignmentForTechnician(ctx context.Context, q db.Queryer, bookingID string, technicianID uuid.UUID) (*Assignment, error) {
	a := &Assignment{}
	query := `
		SELECT id, booking_id, technician_id, requester_id, status, created_at, updated_at
		FROM assignments
		WHERE booking_id = $1 AND technician_id = $2
		FOR UPDATE`

	err := q.QueryRow(ctx, query, bookingID, technicianID).Scan(
		&a.ID, &a.BookingID, &a.TechnicianID, &a.RequesterID, &a.Status, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAssignmentNotFound
		}
		logger.ErrorLogger.Errorf("Failed to fetch assignment (%s, %s): %v", bookingID, technicianID, err)
		return nil, fmt.Errorf("database error fetching assignment: %w", err)
	}
	return a, nil
}

// UpsertAssignment records a pending offer of the booking to the technician.
// An existing offer to a different technician is superseded in place.
func UpsertAssignment(ctx context.Context, q db.Queryer, bookingID string, technicianID, requesterID uuid.UUID) error {
	now := time.Now()
	query := `
		INSERT INTO assignments (booking_id, technician_id, requester_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (booking_id)
		DO UPDATE SET technician_id = $2, requester_id = $3, status = $4, updated_at = $5`

	_, err := q.Exec(ctx, query, bookingID, technicianID, requesterID, AssignmentPending, now)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to upsert assignment for booking %s: %v", bookingID, err)
		return fmt.Errorf("failed to record assignment: %w", err)
	}

	logger.InfoLogger.Infof("Booking %s offered to technician %s", bookingID, technicianID)
	return nil
}

// AcceptAssignment flips a pending assignment to accepted. The partial unique
// index on accepted assignments per technician backs the single-active-job
// invariant at the store level.
func AcceptAssignment(ctx context.Context, q db.Queryer, bookingID string, technicianID uuid.UUID) error {
	query := `
		UPDATE assignments
		SET status = $3, updated_at = $4
		WHERE booking_id = $1 AND technician_id = $2 AND status = $5`

	cmdTag, err := q.Exec(ctx, query, bookingID, technicianID, AssignmentAccepted, time.Now(), AssignmentPending)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to accept assignment (%s, %s): %v", bookingID, technicianID, err)
		return fmt.Errorf("failed to accept assignment: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrAssignmentNotFound
	}

	logger.InfoLogger.Infof("Assignment for booking %s accepted by technician %s", bookingID, technicianID)
	return nil
}

// CountAcceptedByTechnician counts accepted assignments held by a technician.
func CountAcceptedByTechnician(ctx context.Context, q db.Queryer, technicianID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM assignments
		WHERE technician_id = $1 AND status = $2`

	var count int
	if err := q.QueryRow(ctx, query, technicianID, AssignmentAccepted).Scan(&count); err != nil {
		logger.ErrorLogger.Errorf("Failed to count accepted assignments for technician %s: %v", technicianID, err)
		return 0, fmt.Errorf("failed to count assignments: %w", err)
	}
	return count, nil
}

// DeleteAssignment removes the assignment row for a booking.
func DeleteAssignment(ctx context.Context, q db.Queryer, bookingID string) error {
	cmdTag, err := q.Exec(ctx, `DELETE FROM assignments WHERE booking_id = $1`, bookingID)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to delete assignment for booking %s: %v", bookingID, err)
		return fmt.Errorf("failed to delete assignment: %w", err)
	}
	if cmdTag.RowsAffected() > 0 {
		logger.InfoLogger.Infof("Assignment for booking %s removed", bookingID)
	}
	return nil
}

// InsertRejection records a technician declining an offered booking.
func InsertRejection(ctx context.Context, q db.Queryer, r *Rejection) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO assignment_rejections (booking_id, technician_id, requester_id, reason, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := q.Exec(ctx, query, r.BookingID, r.TechnicianID, r.RequesterID, r.Reason, r.CreatedAt)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to record rejection for booking %s: %v", r.BookingID, err)
		return fmt.Errorf("failed to record rejection: %w", err)
	}

	logger.InfoLogger.Infof("Rejection recorded for booking %s by technician %s", r.BookingID, r.TechnicianID)
	return nil
}
