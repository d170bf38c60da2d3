package inventory

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// FaultFunc is consulted before every ApplyDelta on a MemoryStore. A non-nil
// error fails that update.
type FaultFunc func(ingredientID int64) error

// MemoryStore is an in-process inventory. Transactions are fully serialized:
// Begin blocks until the previous transaction has finished or ctx is done.
type MemoryStore struct {
	txSlot chan struct{}

	mu    sync.Mutex
	items map[int64]Ingredient
	fault FaultFunc
}

func NewMemoryStore(items ...Ingredient) *MemoryStore {
	s := &MemoryStore{
		txSlot: make(chan struct{}, 1),
		items:  make(map[int64]Ingredient, len(items)),
	}
	for _, ing := range items {
		s.items[ing.ID] = ing
	}
	return s
}

// SetFault installs f for subsequent transactions. Pass nil to clear it.
func (s *MemoryStore) SetFault(f FaultFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = f
}

// Get returns the committed state of one ingredient.
func (s *MemoryStore) Get(ingredientID int64) (Ingredient, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ing, ok := s.items[ingredientID]
	return ing, ok
}

// List returns every ingredient ordered by id.
func (s *MemoryStore) List() []Ingredient {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Ingredient, 0, len(s.items))
	for _, ing := range s.items {
		out = append(out, ing)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemoryStore) Begin(ctx context.Context) (Tx, error) {
	select {
	case s.txSlot <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("begin inventory tx: %w", ctx.Err())
	}
	s.mu.Lock()
	fault := s.fault
	s.mu.Unlock()
	return &memoryTx{store: s, fault: fault, pending: make(map[int64]decimal.Decimal)}, nil
}

type memoryTx struct {
	store   *MemoryStore
	fault   FaultFunc
	pending map[int64]decimal.Decimal
	done    bool
}

func (t *memoryTx) current(ingredientID int64) (decimal.Decimal, error) {
	if qty, ok := t.pending[ingredientID]; ok {
		return qty, nil
	}
	ing, ok := t.store.Get(ingredientID)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %d", ErrIngredientNotFound, ingredientID)
	}
	return ing.Quantity, nil
}

func (t *memoryTx) LockQuantity(_ context.Context, ingredientID int64) (decimal.Decimal, error) {
	if t.done {
		return decimal.Zero, sql.ErrTxDone
	}
	return t.current(ingredientID)
}

func (t *memoryTx) ApplyDelta(_ context.Context, ingredientID int64, delta decimal.Decimal) error {
	if t.done {
		return sql.ErrTxDone
	}
	if t.fault != nil {
		if err := t.fault(ingredientID); err != nil {
			return fmt.Errorf("update ingredient %d: %w", ingredientID, err)
		}
	}
	qty, err := t.current(ingredientID)
	if err != nil {
		return err
	}
	t.pending[ingredientID] = qty.Add(delta)
	return nil
}

func (t *memoryTx) Commit() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.store.mu.Lock()
	for id, qty := range t.pending {
		ing := t.store.items[id]
		ing.Quantity = qty
		t.store.items[id] = ing
	}
	t.store.mu.Unlock()
	t.finish()
	return nil
}

func (t *memoryTx) Rollback() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.finish()
	return nil
}

func (t *memoryTx) finish() {
	t.done = true
	t.pending = nil
	<-t.store.txSlot
}
