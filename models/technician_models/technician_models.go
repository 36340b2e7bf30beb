package technician_models

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

var ErrTechnicianNotFound = errors.New("technician not found")

// Technician is the mobile agent fulfilling bookings. RunningJobs mirrors
// the number of accepted assignments the technician holds.
type Technician struct {
	ID          uuid.UUID                 `json:"id"`
	Name        string                    `json:"name"`
	ServiceType shared_models.ServiceType `json:"service_type"`
	RunningJobs int                       `json:"running_jobs"`
	IsAvailable bool                      `json:"is_available"`
	CreatedAt   time.Time                 `json:"created_at"`
	UpdatedAt   time.Time                 `json:"updated_at"`
}

// GetTechnicianByID fetches a technician record.
func GetTechnicianByID(ctx context.Context, q db.Queryer, technicianID uuid.UUID) (*Technician, error) {
	return fetch(ctx, q, technicianID, false)
}

// GetTechnicianForUpdate fetches a technician record with a row lock, so the
// busy check stays valid while the enclosing transaction accepts a job.
func GetTechnicianForUpdate(ctx context.Context, q db.Queryer, technicianID uuid.UUID) (*Technician, error) {
	return fetch(ctx, q, technicianID, true)
}

func fetch(ctx context.Context, q db.Queryer, technicianID uuid.UUID, forUpdate bool) (*Technician, error) {
	query := `
		SELECT id, name, service_type, running_jobs, is_available, created_at, updated_at
		FROM technicians
		WHERE id = $1`
	if forUpdate {
		query += `
		FOR UPDATE`
	}

	tech := &Technician{}
	err := q.QueryRow(ctx, query, technicianID).Scan(
		&tech.ID, &tech.Name, &tech.ServiceType, &tech.RunningJobs,
		&tech.IsAvailable, &tech.CreatedAt, &tech.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			logger.WarnLogger.Warnf("Technician %s not found", technicianID)
			return nil, ErrTechnicianNotFound
		}
		logger.ErrorLogger.Errorf("Failed to fetch technician %s: %v", technicianID, err)
		return nil, fmt.Errorf("database error fetching technician: %w", err)
	}
	return tech, nil
}

// IncrementRunningJobs bumps the running-job counter after an acceptance.
func IncrementRunningJobs(ctx context.Context, q db.Queryer, technicianID uuid.UUID) error {
	query := `
		UPDATE technicians
		SET running_jobs = running_jobs + 1, updated_at = $2
		WHERE id = $1`

	cmdTag, err := q.Exec(ctx, query, technicianID, time.Now())
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to increment running jobs for technician %s: %v", technicianID, err)
		return fmt.Errorf("failed to increment running jobs: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrTechnicianNotFound
	}
	return nil
}

// DecrementRunningJobs releases one running job. The counter never goes
// below zero even if a release is replayed.
func DecrementRunningJobs(ctx context.Context, q db.Queryer, technicianID uuid.UUID) error {
	query := `
		UPDATE technicians
		SET running_jobs = GREATEST(running_jobs - 1, 0), updated_at = $2
		WHERE id = $1`

	cmdTag, err := q.Exec(ctx, query, technicianID, time.Now())
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to decrement running jobs for technician %s: %v", technicianID, err)
		return fmt.Errorf("failed to decrement running jobs: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrTechnicianNotFound
	}
	return nil
}
