package history_models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chargeops/dispatch/config/db"
	"github.com/chargeops/dispatch/logger"
)

// ErrDuplicateStatus is returned when a status has already been recorded for
// a booking. Resubmissions are a benign no-op for the caller.
var ErrDuplicateStatus = errors.New("duplicate entry: status already recorded for this booking")

// HistoryEvent is one immutable audit record of a status change. The table
// is append-only with a unique constraint on (booking_id, status).
type HistoryEvent struct {
	ID           int64      `json:"id"`
	BookingID    string     `json:"booking_id"`
	Status       string     `json:"status"`
	TechnicianID *uuid.UUID `json:"technician_id,omitempty"`
	Latitude     *float64   `json:"latitude,omitempty"`
	Longitude    *float64   `json:"longitude,omitempty"`
	Remark       string     `json:"remark,omitempty"`
	ImageID      *uuid.UUID `json:"image_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// InsertHistoryEvent appends one audit row. The insert is conditional on the
// (booking_id, status) pair not existing yet, so two concurrent identical
// submissions cannot both write a row; the loser gets ErrDuplicateStatus.
func InsertHistoryEvent(ctx context.Context, q db.Queryer, event *HistoryEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO booking_history (
			booking_id, status, technician_id, latitude, longitude, remark, image_id, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
		ON CONFLICT (booking_id, status) DO NOTHING`

	cmdTag, err := q.Exec(ctx, query,
		event.BookingID, event.Status, event.TechnicianID,
		event.Latitude, event.Longitude, event.Remark, event.ImageID, event.CreatedAt,
	)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to insert history event (%s, %s): %v", event.BookingID, event.Status, err)
		return fmt.Errorf("failed to insert history event: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		logger.InfoLogger.Infof("Status %s already recorded for booking %s, skipping", event.Status, event.BookingID)
		return ErrDuplicateStatus
	}

	logger.InfoLogger.Infof("History event recorded for booking %s: %s", event.BookingID, event.Status)
	return nil
}

// HistoryEventExists reports whether a status has been recorded for a booking.
func HistoryEventExists(ctx context.Context, q db.Queryer, bookingID, status string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM booking_history
			WHERE booking_id = $1 AND status = $2
		)`

	var exists bool
	if err := q.QueryRow(ctx, query, bookingID, status).Scan(&exists); err != nil {
		logger.ErrorLogger.Errorf("Failed to check history for (%s, %s): %v", bookingID, status, err)
		return false, fmt.Errorf("failed to check history: %w", err)
	}
	return exists, nil
}

// ListHistoryByBooking returns the booking's audit trail in insertion order.
func ListHistoryByBooking(ctx context.Context, q db.Queryer, bookingID string) ([]HistoryEvent, error) {
	query := `
		SELECT id, booking_id, status, technician_id, latitude, longitude, remark, image_id, created_at
		FROM booking_history
		WHERE booking_id = $1
		ORDER BY id ASC`

	rows, err := q.Query(ctx, query, bookingID)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to fetch history for booking %s: %v", bookingID, err)
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}
	defer rows.Close()

	var events []HistoryEvent
	for rows.Next() {
		var ev HistoryEvent
		if err := rows.Scan(
			&ev.ID, &ev.BookingID, &ev.Status, &ev.TechnicianID,
			&ev.Latitude, &ev.Longitude, &ev.Remark, &ev.ImageID, &ev.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
