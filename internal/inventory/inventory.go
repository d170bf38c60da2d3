package inventory

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrIngredientNotFound is returned when an ingredient row does not exist.
var ErrIngredientNotFound = errors.New("ingredient not found")

// Ingredient is one stocked ingredient and its on-hand quantity.
type Ingredient struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Unit     string          `json:"unit"`
	Quantity decimal.Decimal `json:"quantity"`
}

// Store is the shared, mutable ingredient inventory. All writes go through a
// transaction.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is a single inventory transaction. LockQuantity takes a row lock that is
// held until Commit or Rollback. Rollback after Commit is a no-op that returns
// an error.
type Tx interface {
	LockQuantity(ctx context.Context, ingredientID int64) (decimal.Decimal, error)
	ApplyDelta(ctx context.Context, ingredientID int64, delta decimal.Decimal) error
	Commit() error
	Rollback() error
}
