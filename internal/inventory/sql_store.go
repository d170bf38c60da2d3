package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"posservice/internal/platform/database"
)

// SQLStore keeps inventory in the inventory table.
type SQLStore struct {
	db      *sql.DB
	dialect database.Dialect
}

func NewSQLStore(db *sql.DB, dialect database.Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

func (s *SQLStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, s.dialect.TxOptions())
	if err != nil {
		return nil, fmt.Errorf("begin inventory tx: %w", database.Classify(err))
	}
	return &sqlTx{tx: tx, dialect: s.dialect}, nil
}

// Get reads one ingredient outside of any transaction.
func (s *SQLStore) Get(ctx context.Context, ingredientID int64) (Ingredient, error) {
	var ing Ingredient
	err := s.db.QueryRowContext(ctx, s.dialect.Rebind(`
		SELECT ingredient_id, name, unit, current_quantity
		FROM inventory
		WHERE ingredient_id = $1`), ingredientID).
		Scan(&ing.ID, &ing.Name, &ing.Unit, &ing.Quantity)
	if errors.Is(err, sql.ErrNoRows) {
		return Ingredient{}, fmt.Errorf("%w: %d", ErrIngredientNotFound, ingredientID)
	}
	if err != nil {
		return Ingredient{}, fmt.Errorf("get ingredient %d: %w", ingredientID, database.Classify(err))
	}
	return ing, nil
}

type sqlTx struct {
	tx      *sql.Tx
	dialect database.Dialect
}

func (t *sqlTx) LockQuantity(ctx context.Context, ingredientID int64) (decimal.Decimal, error) {
	var qty decimal.Decimal
	err := t.tx.QueryRowContext(ctx, t.dialect.Rebind(
		"SELECT current_quantity FROM inventory WHERE ingredient_id = $1"+t.dialect.ForUpdate()),
		ingredientID).Scan(&qty)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("%w: %d", ErrIngredientNotFound, ingredientID)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("lock ingredient %d: %w", ingredientID, database.Classify(err))
	}
	return qty, nil
}

func (t *sqlTx) ApplyDelta(ctx context.Context, ingredientID int64, delta decimal.Decimal) error {
	res, err := t.tx.ExecContext(ctx, t.dialect.Rebind(`
		UPDATE inventory
		SET current_quantity = current_quantity + $1
		WHERE ingredient_id = $2`), delta, ingredientID)
	if err != nil {
		return fmt.Errorf("update ingredient %d: %w", ingredientID, database.Classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update ingredient %d: %w", ingredientID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrIngredientNotFound, ingredientID)
	}
	return nil
}

func (t *sqlTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit inventory tx: %w", database.Classify(err))
	}
	return nil
}

func (t *sqlTx) Rollback() error {
	return t.tx.Rollback()
}
