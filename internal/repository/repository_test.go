package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"shopmaster/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestEditRequestRepository_FindByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEditRequestRepository(db)
	id := uuid.New()

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT \* FROM "edit_requests" WHERE id = \$1`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.FindByID(context.Background(), id)
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("locks the row", func(t *testing.T) {
		mock.ExpectQuery(`SELECT \* FROM "edit_requests" WHERE id = \$1 .*FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "entity_type", "field", "status"}).
				AddRow(id.String(), "SALE", "ledger_entry", "PENDING"))

		req, err := repo.FindByIDForUpdate(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, id, req.ID)
		assert.True(t, req.IsPending())
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEditRequestRepository_ListPending(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEditRequestRepository(db)

	first, second := uuid.New(), uuid.New()
	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT \* FROM "edit_requests" WHERE status = \$1 ORDER BY created_at ASC, id ASC`).
		WithArgs("PENDING").
		WillReturnRows(sqlmock.NewRows([]string{"id", "entity_type", "entity_id", "field", "old_value", "new_value", "reason", "requested_by", "status", "created_at"}).
			AddRow(first.String(), "CUSTOMER", uuid.NewString(), "mobile", []byte(`"017"`), []byte(`"018"`), "typo", "Karim", "PENDING", created).
			AddRow(second.String(), "SALE", uuid.NewString(), "ledger_entry", []byte(`{}`), []byte(`{"total_amount":"900"}`), "wrong total", "Karim", "PENDING", created.Add(time.Minute)))

	reqs, err := repo.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, first, reqs[0].ID)
	assert.Equal(t, second, reqs[1].ID)

	change, err := reqs[1].Change()
	require.NoError(t, err)
	ledger, ok := change.(model.LedgerChange)
	require.True(t, ok)
	assert.True(t, ledger.New.TotalAmount.Equal(decimal.NewFromInt(900)))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEditRequestRepository_Transition(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEditRequestRepository(db)
	now := time.Now()

	t.Run("pending row updated", func(t *testing.T) {
		mock.ExpectExec(`UPDATE "edit_requests" SET .* WHERE id = \$\d+ AND status = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Transition(context.Background(), uuid.New(), model.EditApproved, "Owner", now))
	})

	t.Run("already decided", func(t *testing.T) {
		mock.ExpectExec(`UPDATE "edit_requests" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Transition(context.Background(), uuid.New(), model.EditRejected, "Owner", now)
		assert.ErrorIs(t, err, ErrStatusChanged)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaleRepository_SumForShop(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSaleRepository(db)

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(total_amount\), 0\) AS total`).
		WillReturnRows(sqlmock.NewRows([]string{"total", "paid", "due"}).AddRow("1500.00", "1000.00", "500.00"))

	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	totals, err := repo.SumForShop(context.Background(), "1", day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.True(t, totals.Total.Equal(decimal.NewFromInt(1500)))
	assert.True(t, totals.Due.Equal(decimal.NewFromInt(500)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionManager(t *testing.T) {
	db, mock := newMockDB(t)
	tm := NewTransactionManager(db)

	t.Run("commits and nests", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectCommit()

		err := tm.RunInTx(context.Background(), func(txCtx context.Context) error {
			return tm.RunInTx(txCtx, func(inner context.Context) error {
				assert.Same(t, txCtx.Value(txCtxKey), inner.Value(txCtxKey))
				return nil
			})
		})
		assert.NoError(t, err)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectRollback()

		boom := errors.New("boom")
		err := tm.RunInTx(context.Background(), func(context.Context) error { return boom })
		assert.ErrorIs(t, err, boom)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
