package booking_controller

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

	"github.com/chargeops/dispatch/logger"
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
	rows []fakeRow
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
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakeQueryer) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("unexpected Query call")
}

func slotRow(slotID uuid.UUID, limit int) fakeRow {
	now := time.Now()
	return fakeRow{vals: []any{slotID, now, now, now.Add(time.Hour), limit, now, now}}
}

func TestCheckSlotCapacity(t *testing.T) {
	requesterID := uuid.New()
	slotID := uuid.New()
	date := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)

	t.Run("slot full", func(t *testing.T) {
		q := &fakeQueryer{rows: []fakeRow{
			slotRow(slotID, 1),
			{vals: []any{1}}, // one active booking already
		}}
		err := checkSlotCapacity(context.Background(), q, requesterID, slotID, date)
		require.ErrorIs(t, err, ErrCapacityExceeded)
	})

	t.Run("requester over daily cap", func(t *testing.T) {
		q := &fakeQueryer{rows: []fakeRow{
			slotRow(slotID, 3),
			{vals: []any{1}}, // slot has room
			{vals: []any{1}}, // requester already booked today
		}}
		err := checkSlotCapacity(context.Background(), q, requesterID, slotID, date)
		require.ErrorIs(t, err, ErrDailyLimitReached)
	})

	t.Run("slot has room", func(t *testing.T) {
		q := &fakeQueryer{rows: []fakeRow{
			slotRow(slotID, 3),
			{vals: []any{0}},
			{vals: []any{0}},
		}}
		require.NoError(t, checkSlotCapacity(context.Background(), q, requesterID, slotID, date))
	})

	t.Run("unknown slot", func(t *testing.T) {
		q := &fakeQueryer{}
		err := checkSlotCapacity(context.Background(), q, requesterID, slotID, date)
		assert.Error(t, err)
	})
}
