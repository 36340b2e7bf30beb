package transition_controller

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chargeops/dispatch/logger"
	"github.com/chargeops/dispatch/models/assignment_models"
	"github.com/chargeops/dispatch/models/history_models"
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

// fakeQueryer serves scripted rows in order and records every write.
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

func bookingRow(bookingID string, serviceType shared_models.ServiceType, requesterID uuid.UUID, technicianID *uuid.UUID, status string) fakeRow {
	now := time.Now()
	return fakeRow{vals: []any{
		bookingID, serviceType, requesterID, technicianID,
		(*uuid.UUID)(nil), (*time.Time)(nil), status, 499.0,
		(*string)(nil), (*int)(nil), (*int)(nil), true, now, now,
	}}
}

func TestApplyRejectsPendingAssignment(t *testing.T) {
	technicianID := uuid.New()
	requesterID := uuid.New()

	for _, target := range []string{shared_models.StatusAccepted, shared_models.StatusEnroute} {
		t.Run(target, func(t *testing.T) {
			q := &fakeQueryer{rows: []fakeRow{
				assignmentRow("VC-00001", technicianID, requesterID, assignment_models.AssignmentPending),
			}}
			svc := &TransitionService{}

			_, err := svc.Apply(context.Background(), q, TransitionRequest{
				BookingID:    "VC-00001",
				TechnicianID: technicianID,
				TargetStatus: target,
			})
			require.ErrorIs(t, err, ErrAcceptanceRequired)
			// Nothing may be written while the offer is still pending.
			assert.Empty(t, q.execs)
			assert.Empty(t, q.rows, "booking must not be fetched for a pending offer")
		})
	}
}

func TestApplyDuplicateStatusIsNoOp(t *testing.T) {
	technicianID := uuid.New()
	requesterID := uuid.New()

	q := &fakeQueryer{rows: []fakeRow{
		assignmentRow("VC-00002", technicianID, requesterID, assignment_models.AssignmentAccepted),
		bookingRow("VC-00002", shared_models.ServiceValetCharging, requesterID, &technicianID, shared_models.StatusEnroute),
		{vals: []any{true}}, // enroute already recorded
	}}
	svc := &TransitionService{}

	_, err := svc.Apply(context.Background(), q, TransitionRequest{
		BookingID:    "VC-00002",
		TechnicianID: technicianID,
		TargetStatus: shared_models.StatusEnroute,
	})
	require.ErrorIs(t, err, history_models.ErrDuplicateStatus)
	assert.Empty(t, q.execs, "a replayed status must not write anything")
}

func TestRespondTransitionErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name string
		err  error
		code int
	}{
		{"duplicate is benign", history_models.ErrDuplicateStatus, http.StatusOK},
		{"pending assignment conflicts", ErrAcceptanceRequired, http.StatusConflict},
		{"out of order is rejected", ErrOutOfOrderStatus, http.StatusBadRequest},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			respondTransitionError(c, tt.err)
			assert.Equal(t, tt.code, w.Code)
		})
	}
}
