package settlement

import (
	"errors"
	"fmt"
)

var (
	// ErrUnresolvedComponent wraps catalog.ErrNotFound when the fail-fast
	// policy aborts on a component missing from the catalog.
	ErrUnresolvedComponent = errors.New("unresolved menu component")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrTransactionFailure  = errors.New("inventory transaction failed")
	ErrEmptyOrder          = errors.New("order has no lines")
)

// Failure is returned when a settlement attempt does not commit. The order
// ledger is never modified by a failed attempt.
type Failure struct {
	SettlementID string
	State        State
	Reason       error
}

func (f *Failure) Error() string {
	if f.SettlementID == "" {
		return fmt.Sprintf("settlement %s: %v", f.State, f.Reason)
	}
	return fmt.Sprintf("settlement %s %s: %v", f.SettlementID, f.State, f.Reason)
}

func (f *Failure) Unwrap() error { return f.Reason }
