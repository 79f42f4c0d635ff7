package store

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"calibration-tracker/internal/db/dbtest"
	"calibration-tracker/internal/model"
)

// Any matches any argument.
type Any struct{}

func (Any) Match(driver.Value) bool { return true }

// A helper function to create a mock database connection.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	return gormDB, mock
}

func TestGormStore_CheckOut_Guards(t *testing.T) {
	now := time.Date(2025, 1, 3, 9, 0, 0, 0, time.UTC)
	dateIn := now.Add(-48 * time.Hour)

	testCases := []struct {
		name             string
		mockExpectations func(mock sqlmock.Sqlmock)
	}{
		{
			name: "row already has date_out, nothing written",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`SELECT \* FROM "incoming_records" WHERE .* FOR UPDATE`).
					WillReturnRows(sqlmock.NewRows([]string{"id", "date_in", "date_out", "status"}).
						AddRow(5, dateIn, now.Add(-time.Hour), model.IncomingReleased))
				mock.ExpectRollback()
			},
		},
		{
			name: "guarded update loses the race, rolled back",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`SELECT \* FROM "incoming_records" WHERE .* FOR UPDATE`).
					WillReturnRows(sqlmock.NewRows([]string{"id", "date_in", "date_out", "status"}).
						AddRow(5, dateIn, nil, model.IncomingReceived))
				mock.ExpectExec(regexp.QuoteMeta(`UPDATE "incoming_records" SET`)).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectRollback()
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			s := NewGormStore(db)
			tc.mockExpectations(mock)

			res, err := s.CheckOut(context.Background(), CheckOutParams{
				IncomingID:    5,
				At:            now,
				EmployeeOutID: 2,
				CycleTime:     48,
				NextDueDate:   now.AddDate(0, 2, 0),
				NextRecall:    "NEXT123",
			})
			assert.ErrorIs(t, err, ErrAlreadyReleased)
			assert.Nil(t, res)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGormStore_CreateEquipment_UniqueIndexRace(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewGormStore(db)

	// The serial looks free, then the insert loses to a concurrent one.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "equipment" WHERE serial_number = \$1`).
		WithArgs("SN-RACE").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "equipment"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	err := s.CreateEquipment(context.Background(), &model.Equipment{SerialNumber: "SN-RACE", Description: "Gauge"})
	assert.ErrorIs(t, err, ErrDuplicateSerial)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_StartCalibration_Released(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewGormStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "incoming_records" SET "status"=$1,"updated_at"=$2 WHERE (id = $3 AND date_out IS NULL)`)).
		WithArgs(model.IncomingInCalibration, Any{}, 9).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := s.StartCalibration(context.Background(), 9)
	assert.ErrorIs(t, err, ErrAlreadyReleased)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_Sweeps(t *testing.T) {
	now := time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC)

	t.Run("due equipment", func(t *testing.T) {
		db, mock := newMockDB(t)
		s := NewGormStore(db)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "equipment" SET "status"=$1,"updated_at"=$2 WHERE (status = $3 AND next_calibration_date IS NOT NULL AND next_calibration_date <= $4)`)).
			WithArgs(model.EquipmentPendingCalibration, Any{}, model.EquipmentActive, now).
			WillReturnResult(sqlmock.NewResult(0, 3))
		mock.ExpectCommit()

		n, err := s.FlagDueEquipment(context.Background(), now)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("overdue pickups", func(t *testing.T) {
		db, mock := newMockDB(t)
		s := NewGormStore(db)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "outgoing_records" SET "overdue"=$1,"updated_at"=$2 WHERE (status = $3 AND overdue = $4 AND commit_etc IS NOT NULL AND commit_etc < $5)`)).
			WithArgs(true, Any{}, model.OutgoingForPickup, false, now).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		n, err := s.FlagOverdueOutgoing(context.Background(), now)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormStore_EquipmentLifecycle(t *testing.T) {
	s := NewGormStore(dbtest.Open(t))
	ctx := context.Background()

	wrench := &model.Equipment{SerialNumber: "TW-1", Description: "Torque Wrench", Manufacturer: "Norbar"}
	gauge := &model.Equipment{SerialNumber: "PG-1", Description: "Pressure Gauge", Manufacturer: "Wika", Status: model.EquipmentInactive}
	require.NoError(t, s.CreateEquipment(ctx, wrench))
	require.NoError(t, s.CreateEquipment(ctx, gauge))
	assert.Equal(t, model.EquipmentActive, wrench.Status)

	err := s.CreateEquipment(ctx, &model.Equipment{SerialNumber: "TW-1", Description: "dup"})
	assert.ErrorIs(t, err, ErrDuplicateSerial)

	items, total, err := s.ListEquipment(ctx, EquipmentQuery{Q: "norbar"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, "TW-1", items[0].SerialNumber)

	items, total, err = s.ListEquipment(ctx, EquipmentQuery{Status: model.EquipmentInactive})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "PG-1", items[0].SerialNumber)

	items, total, err = s.ListEquipment(ctx, EquipmentQuery{Size: 1, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, items, 1)

	updated, err := s.UpdateEquipment(ctx, wrench.ID, map[string]any{"status": model.EquipmentRetired, "process_req_range": "10 - 50"})
	require.NoError(t, err)
	assert.Equal(t, model.EquipmentRetired, updated.Status)
	assert.Equal(t, "10", updated.ProcessReqStart())
	assert.Equal(t, "50", updated.ProcessReqEnd())

	require.NoError(t, s.ArchiveEquipment(ctx, wrench.ID))
	_, err = s.FindEquipment(ctx, wrench.ID, false)
	assert.ErrorIs(t, err, ErrNotFound)
	archived, err := s.FindEquipment(ctx, wrench.ID, true)
	require.NoError(t, err)
	assert.True(t, archived.DeletedAt.Valid)
	assert.ErrorIs(t, s.ArchiveEquipment(ctx, wrench.ID), ErrNotFound)

	// archived serials stay reserved
	taken, err := s.SerialExists(ctx, "TW-1")
	require.NoError(t, err)
	assert.True(t, taken)

	_, total, err = s.ListEquipment(ctx, EquipmentQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	_, total, err = s.ListEquipment(ctx, EquipmentQuery{WithArchived: true})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	require.NoError(t, s.RestoreEquipment(ctx, wrench.ID))
	_, err = s.FindEquipment(ctx, wrench.ID, false)
	assert.NoError(t, err)
	assert.ErrorIs(t, s.RestoreEquipment(ctx, wrench.ID), ErrNotFound)

	_, err = s.UpdateEquipment(ctx, 999, map[string]any{"status": model.EquipmentActive})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_Loans(t *testing.T) {
	s := NewGormStore(dbtest.Open(t))
	ctx := context.Background()

	eq := &model.Equipment{SerialNumber: "MM-1", Description: "Multimeter"}
	require.NoError(t, s.CreateEquipment(ctx, eq))

	_, err := s.FindOpenLoan(ctx, eq.ID)
	assert.ErrorIs(t, err, ErrNoOpenLoan)

	out := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	employee := uint(4)
	first := &model.TrackingRecord{RecallNumber: "RCL-250101080000-00001", EquipmentID: eq.ID, EmployeeOutID: &employee, DateOut: &out}
	require.NoError(t, s.OpenLoan(ctx, first))

	err = s.OpenLoan(ctx, &model.TrackingRecord{RecallNumber: "RCL-250101080000-00002", EquipmentID: eq.ID, DateOut: &out})
	assert.ErrorIs(t, err, ErrOpenLoanExists)

	taken, err := s.TrackingRecallExists(ctx, first.RecallNumber)
	require.NoError(t, err)
	assert.True(t, taken)

	open, err := s.FindOpenLoan(ctx, eq.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, open.ID)

	closed, err := s.CloseLoan(ctx, CloseLoanParams{
		RecordID: open.ID, LocationID: 2, EmployeeInID: employee, At: out.Add(3 * time.Hour), CycleTime: 3,
	})
	require.NoError(t, err)
	assert.False(t, closed.Open())
	assert.Equal(t, 3, closed.CycleTime)

	_, err = s.CloseLoan(ctx, CloseLoanParams{RecordID: open.ID, At: out})
	assert.ErrorIs(t, err, ErrNoOpenLoan)

	err = s.OpenLoan(ctx, &model.TrackingRecord{RecallNumber: "RCL-X", EquipmentID: 777, DateOut: &out})
	assert.ErrorIs(t, err, ErrNotFound)
}
