package inventory

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"posservice/internal/platform/database"
)

func TestSQLTx_LockAndApply_Postgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewSQLStore(db, database.Postgres)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT current_quantity FROM inventory WHERE ingredient_id = $1 FOR UPDATE")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"current_quantity"}).AddRow("100.0000"))
	mock.ExpectExec(regexp.QuoteMeta("SET current_quantity = current_quantity + $1")).
		WithArgs("-4", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ctx := context.Background()
	tx, err := store.Begin(ctx)
	require.NoError(t, err)

	qty, err := tx.LockQuantity(ctx, 1)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(qty))

	require.NoError(t, tx.ApplyDelta(ctx, 1, decimal.NewFromInt(-4)))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLTx_ApplyDelta_MissingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewSQLStore(db, database.Postgres)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE inventory")).
		WithArgs("-1", int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	ctx := context.Background()
	tx, err := store.Begin(ctx)
	require.NoError(t, err)

	err = tx.ApplyDelta(ctx, 99, decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, ErrIngredientNotFound)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLTx_LockTimeoutIsClassified(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewSQLStore(db, database.Postgres)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(int64(2)).
		WillReturnError(&pq.Error{Code: "55P03", Message: "could not obtain lock on row"})
	mock.ExpectRollback()

	ctx := context.Background()
	tx, err := store.Begin(ctx)
	require.NoError(t, err)

	_, err = tx.LockQuantity(ctx, 2)
	assert.ErrorIs(t, err, database.ErrLockTimeout)
	var pqErr *pq.Error
	assert.True(t, errors.As(err, &pqErr))
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func openSQLite(t *testing.T) (*sql.DB, *SQLStore) {
	t.Helper()
	ctx := context.Background()
	db, dialect, err := database.Open(ctx, database.Options{URL: "sqlite://" + filepath.Join(t.TempDir(), "pos.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Migrate(ctx, db))
	seed, err := database.LoadSeedFile(filepath.Join("..", "platform", "database", "testdata", "seed.yaml"))
	require.NoError(t, err)
	require.NoError(t, seed.Apply(ctx, db, dialect))
	return db, NewSQLStore(db, dialect)
}

func TestSQLStore_SQLite_CommitAndRollback(t *testing.T) {
	ctx := context.Background()
	_, store := openSQLite(t)

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	qty, err := tx.LockQuantity(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "100", qty.String())
	require.NoError(t, tx.ApplyDelta(ctx, 1, decimal.RequireFromString("-4.5")))
	require.NoError(t, tx.Commit())

	rice, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "rice", rice.Name)
	assert.Equal(t, "95.5", rice.Quantity.String())

	tx, err = store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.ApplyDelta(ctx, 1, decimal.NewFromInt(-50)))
	require.NoError(t, tx.Rollback())

	rice, err = store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "95.5", rice.Quantity.String())

	tx, err = store.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.LockQuantity(ctx, 404)
	assert.ErrorIs(t, err, ErrIngredientNotFound)
	require.NoError(t, tx.Rollback())

	_, err = store.Get(ctx, 404)
	assert.ErrorIs(t, err, ErrIngredientNotFound)
}
