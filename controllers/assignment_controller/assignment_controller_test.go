package assignment_controller

import (
	"context"
	"errors"
	"io"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chargeops/dispatch/controllers/transition_controller"
	"github.com/chargeops/dispatch/logger"
	"github.com/chargeops/dispatch/models/assignment_models"
	"github.com/chargeops/dispatch/models/shared_models"
)

func TestMain(m *testing.M) {
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)
	logger.InfoLogger = quiet
	logger.WarnLogger = quiet
	logger.ErrorLogger = quiet
	os.Exit(m.Run())
}

type fakeRow struct {
	vals []any
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		if i >= len(r.vals) || r.vals[i] == nil {
			continue
		}
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(r.vals[i]))
	}
	return nil
}

type fakeQueryer struct {
	rows  []fakeRow
	execs []string
}

func (f *fakeQueryer) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if len(f.rows) == 0 {
		return fakeRow{err: pgx.ErrNoRows}
	}
	row := f.rows[0]
	f.rows = f.rows[1:]
	return row
}

func (f *fakeQueryer) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, sql)
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (f *fakeQueryer) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("unexpected Query call")
}

func assignmentRow(bookingID string, technicianID, requesterID uuid.UUID, status int) fakeRow {
	now := time.Now()
	return fakeRow{vals: []any{int64(1), bookingID, technicianID, requesterID, status, now, now}}
}

func technicianRow(technicianID uuid.UUID, serviceType shared_models.ServiceType, runningJobs int) fakeRow {
	now := time.Now()
	return fakeRow{vals: []any{technicianID, "Asha", serviceType, runningJobs, true, now, now}}
}

func bookingRow(bookingID string, serviceType shared_models.ServiceType, requesterID uuid.UUID, technicianID *uuid.UUID, status string) fakeRow {
	now := time.Now()
	return fakeRow{vals: []any{
		bookingID, serviceType, requesterID, technicianID,
		(*uuid.UUID)(nil), (*time.Time)(nil), status, 499.0,
		(*string)(nil), (*int)(nil), (*int)(nil), true, now, now,
	}}
}

func TestAcceptRejectsBusyTechnician(t *testing.T) {
	technicianID := uuid.New()
	requesterID := uuid.New()

	q := &fakeQueryer{rows: []fakeRow{
		assignmentRow("VC-00007", technicianID, requesterID, assignment_models.AssignmentPending),
		technicianRow(technicianID, shared_models.ServiceValetCharging, 1),
		{vals: []any{1}}, // one accepted assignment held elsewhere
	}}
	svc := &AssignmentService{Transitions: &transition_controller.TransitionService{}}

	_, err := svc.acceptInTx(context.Background(), q, "VC-00007", technicianID)
	require.ErrorIs(t, err, ErrTechnicianBusy)
	assert.Empty(t, q.execs, "a busy technician must not flip anything")
}

// After a previously-accepted technician rejects, the booking keeps its
// accepted history row. The next technician's acceptance must still flip the
// assignment and the counter instead of rolling back on the duplicate.
func TestAcceptAfterRerouteToleratesDuplicateHistory(t *testing.T) {
	technicianID := uuid.New()
	requesterID := uuid.New()

	q := &fakeQueryer{rows: []fakeRow{
		assignmentRow("VC-00008", technicianID, requesterID, assignment_models.AssignmentPending),
		technicianRow(technicianID, shared_models.ServiceValetCharging, 0),
		{vals: []any{0}}, // no accepted assignments held
		assignmentRow("VC-00008", technicianID, requesterID, assignment_models.AssignmentAccepted),
		bookingRow("VC-00008", shared_models.ServiceValetCharging, requesterID, &technicianID, shared_models.StatusAccepted),
		{vals: []any{true}}, // accepted already in history
		bookingRow("VC-00008", shared_models.ServiceValetCharging, requesterID, &technicianID, shared_models.StatusAccepted),
	}}
	svc := &AssignmentService{Transitions: &transition_controller.TransitionService{}}

	booking, err := svc.acceptInTx(context.Background(), q, "VC-00008", technicianID)
	require.NoError(t, err)
	assert.Equal(t, shared_models.StatusAccepted, booking.Status)

	// Exactly two writes: the assignment flip and the counter increment.
	require.Len(t, q.execs, 2)
	assert.Contains(t, q.execs[0], "UPDATE assignments")
	assert.Contains(t, q.execs[1], "UPDATE technicians")
}
