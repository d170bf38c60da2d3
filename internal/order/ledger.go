package order

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Line is one row of an order: a selection, the price captured when it was
// first picked, and how many of it were ordered.
type Line struct {
	Selection Selection       `json:"-"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// DisplayName is the text shown for the line.
func (l Line) DisplayName() string { return l.Selection.DisplayName() }

// Subtotal is UnitPrice * Quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Snapshot is a copy of the ledger at one point in time.
type Snapshot struct {
	Lines []Line
	Total decimal.Decimal
}

// Empty reports whether the snapshot has no lines.
func (s Snapshot) Empty() bool { return len(s.Lines) == 0 }

// Ledger is the working set for a single customer order. It is owned by one
// terminal session and is not safe for concurrent use.
type Ledger struct {
	lines []Line
	total decimal.Decimal
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{total: decimal.Zero}
}

// Add records one more unit of sel. An existing line for the same selection
// has its quantity bumped; its original unit price is kept.
func (l *Ledger) Add(sel Selection, unitPrice decimal.Decimal) Line {
	if i := l.index(sel); i >= 0 {
		l.lines[i].Quantity++
		l.total = l.total.Add(l.lines[i].UnitPrice)
		return l.lines[i]
	}
	l.lines = append(l.lines, Line{Selection: sel, UnitPrice: unitPrice, Quantity: 1})
	l.total = l.total.Add(unitPrice)
	return l.lines[len(l.lines)-1]
}

// RemoveOne takes one unit of sel off the order. The line disappears when its
// quantity reaches zero. The returned line carries the remaining quantity.
func (l *Ledger) RemoveOne(sel Selection) (Line, error) {
	i := l.index(sel)
	if i < 0 {
		return Line{}, fmt.Errorf("%w: %q", ErrNotFound, sel.DisplayName())
	}
	line := &l.lines[i]
	l.total = l.total.Sub(line.UnitPrice)
	line.Quantity--
	out := *line
	if line.Quantity == 0 {
		l.lines = append(l.lines[:i], l.lines[i+1:]...)
	}
	return out, nil
}

// Clear empties the order.
func (l *Ledger) Clear() {
	l.lines = nil
	l.total = decimal.Zero
}

// Total is the running order total.
func (l *Ledger) Total() decimal.Decimal { return l.total }

// Len is the number of distinct lines.
func (l *Ledger) Len() int { return len(l.lines) }

// Snapshot copies the current lines and total.
func (l *Ledger) Snapshot() Snapshot {
	lines := make([]Line, len(l.lines))
	copy(lines, l.lines)
	return Snapshot{Lines: lines, Total: l.total}
}

func (l *Ledger) index(sel Selection) int {
	for i := range l.lines {
		if l.lines[i].Selection.Equal(sel) {
			return i
		}
	}
	return -1
}
