package slot_models

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

var ErrSlotNotFound = errors.New("slot not found")

// Slot is a bookable time window with a capacity limit.
type Slot struct {
	ID           uuid.UUID `json:"id"`
	SlotDate     time.Time `json:"slot_date"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	BookingLimit int       `json:"booking_limit"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// GetSlotByID fetches a slot record.
func GetSlotByID(ctx context.Context, q db.Queryer, slotID uuid.UUID) (*Slot, error) {
	return fetch(ctx, q, slotID, false)
}

// GetSlotByIDForUpdate fetches a slot record with a row lock. Booking
// creation locks the slot so the capacity count cannot be invalidated by a
// concurrent insert before the transaction commits.
func GetSlotByIDForUpdate(ctx context.Context, q db.Queryer, slotID uuid.UUID) (*Slot, error) {
	return fetch(ctx, q, slotID, true)
}

func fetch(ctx context.Context, q db.Queryer, slotID uuid.UUID, forUpdate bool) (*Slot, error) {
	query := `
		SELECT id, slot_date, start_time, end_time, booking_limit, created_at, updated_at
		FROM slots
		WHERE id = $1`
	if forUpdate {
		query += `
		FOR UPDATE`
	}

	slot := &Slot{}
	err := q.QueryRow(ctx, query, slotID).Scan(
		&slot.ID, &slot.SlotDate, &slot.StartTime, &slot.EndTime,
		&slot.BookingLimit, &slot.CreatedAt, &slot.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			logger.WarnLogger.Warnf("Slot %s not found", slotID)
			return nil, ErrSlotNotFound
		}
		logger.ErrorLogger.Errorf("Failed to fetch slot %s: %v", slotID, err)
		return nil, fmt.Errorf("database error fetching slot: %w", err)
	}
	return slot, nil
}

// ActiveBookingCount counts non-cancelled, non-terminal bookings against a
// slot on a date.
func ActiveBookingCount(ctx context.Context, q db.Queryer, slotID uuid.UUID, date time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM bookings
		WHERE slot_id = $1
		  AND scheduled_date = $2
		  AND is_active = TRUE`

	var count int
	if err := q.QueryRow(ctx, query, slotID, date).Scan(&count); err != nil {
		logger.ErrorLogger.Errorf("Failed to count active bookings for slot %s: %v", slotID, err)
		return 0, fmt.Errorf("failed to count slot bookings: %w", err)
	}
	return count, nil
}

// ListSlotsByDate returns the slots on a date together with how many active
// bookings each already holds.
func ListSlotsByDate(ctx context.Context, q db.Queryer, date time.Time) ([]SlotAvailability, error) {
	query := `
		SELECT s.id, s.slot_date, s.start_time, s.end_time, s.booking_limit, s.created_at, s.updated_at,
		       COUNT(b.id) FILTER (WHERE b.is_active) AS active_bookings
		FROM slots s
		LEFT JOIN bookings b ON b.slot_id = s.id AND b.scheduled_date = s.slot_date
		WHERE s.slot_date = $1
		GROUP BY s.id
		ORDER BY s.start_time ASC`

	rows, err := q.Query(ctx, query, date)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to list slots for %s: %v", date.Format("2006-01-02"), err)
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	defer rows.Close()

	var out []SlotAvailability
	for rows.Next() {
		var sa SlotAvailability
		if err := rows.Scan(
			&sa.ID, &sa.SlotDate, &sa.StartTime, &sa.EndTime,
			&sa.BookingLimit, &sa.CreatedAt, &sa.UpdatedAt, &sa.ActiveBookings,
		); err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		out = append(out, sa)
	}
	return out, rows.Err()
}

// SlotAvailability is a slot plus its current active-booking count.
type SlotAvailability struct {
	Slot
	ActiveBookings int `json:"active_bookings"`
}
