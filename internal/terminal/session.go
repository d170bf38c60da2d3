package terminal

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"go.uber.org/zap"

	"posservice/internal/catalog"
	"posservice/internal/order"
	"posservice/internal/settlement"
)

// Settler settles a snapshot of an order against the inventory.
type Settler interface {
	Settle(ctx context.Context, snap order.Snapshot) (*settlement.Report, error)
}

// Session is one cashier terminal and the order it is building. A Session is
// not safe for concurrent use; the Registry serializes access per terminal.
type Session struct {
	id      string
	catalog catalog.Store
	settler Settler
	ledger  *order.Ledger
	logger  *zap.Logger
}

func NewSession(id string, store catalog.Store, settler Settler, logger *zap.Logger) *Session {
	return &Session{
		id:      id,
		catalog: store,
		settler: settler,
		ledger:  order.NewLedger(),
		logger:  logger.With(zap.String("terminal.id", id)),
	}
}

func (s *Session) ID() string { return s.id }

// SelectMeal completes the meal wizard: it prices the meal from the meal
// kind's menu item and adds it to the order. The base and every entree must be
// active catalog items.
func (s *Session) SelectMeal(ctx context.Context, kind order.MealKind, base string, entrees []string) (order.Line, error) {
	sel, err := order.Meal(kind, base, entrees...)
	if err != nil {
		return order.Line{}, err
	}
	for _, name := range sel.Components() {
		if _, err := s.activeComponent(ctx, name); err != nil {
			return order.Line{}, err
		}
	}
	meal, err := s.activeComponent(ctx, kind.Label())
	if err != nil {
		return order.Line{}, err
	}

	line := s.ledger.Add(sel, meal.UnitPrice)
	s.logger.Info("🍱 Meal added",
		zap.String("item", line.DisplayName()),
		zap.Int("quantity", line.Quantity),
		zap.String("order.total", s.ledger.Total().StringFixed(2)),
	)
	return line, nil
}

// SelectSimpleItem adds one unit of a plain menu item. Unknown names fail with
// catalog.ErrNotFound, retired items with order.ErrInvalidSelection.
func (s *Session) SelectSimpleItem(ctx context.Context, name string) (order.Line, error) {
	if len(order.Decode(name)) > 1 {
		return order.Line{}, fmt.Errorf("%w: %q looks like a meal", order.ErrInvalidSelection, name)
	}
	c, err := s.catalog.FindMenuComponent(ctx, name)
	if err != nil {
		return order.Line{}, err
	}
	if !c.Active {
		return order.Line{}, fmt.Errorf("%w: %q is not available", order.ErrInvalidSelection, name)
	}

	line := s.ledger.Add(order.Simple(c.Name), c.UnitPrice)
	s.logger.Info("🥡 Item added",
		zap.String("item", line.DisplayName()),
		zap.Int("quantity", line.Quantity),
		zap.String("order.total", s.ledger.Total().StringFixed(2)),
	)
	return line, nil
}

// RemoveOneUnit takes one unit of the line shown as displayName off the order.
func (s *Session) RemoveOneUnit(displayName string) (order.Snapshot, error) {
	sel, err := order.ParseDisplayName(displayName)
	if err != nil {
		return s.ledger.Snapshot(), fmt.Errorf("%w: %q", order.ErrNotFound, displayName)
	}
	if _, err := s.ledger.RemoveOne(sel); err != nil {
		return s.ledger.Snapshot(), err
	}
	return s.ledger.Snapshot(), nil
}

// CancelOrder discards the order and returns what was discarded.
func (s *Session) CancelOrder() order.Snapshot {
	snap := s.ledger.Snapshot()
	s.ledger.Clear()
	s.logger.Info("🗑️ Order cancelled", zap.Int("order.lines", len(snap.Lines)))
	return snap
}

// Settle pays for the order. On success the order is cleared; on failure it
// is left as it was so the cashier can retry or cancel.
func (s *Session) Settle(ctx context.Context) (*settlement.Report, error) {
	report, err := s.settler.Settle(ctx, s.ledger.Snapshot())
	if err != nil {
		return nil, err
	}
	s.ledger.Clear()
	return report, nil
}

// Order returns the current order.
func (s *Session) Order() order.Snapshot { return s.ledger.Snapshot() }

func (s *Session) activeComponent(ctx context.Context, name string) (catalog.MenuComponent, error) {
	c, err := s.catalog.FindMenuComponent(ctx, name)
	if errors.Is(err, catalog.ErrNotFound) {
		return c, fmt.Errorf("%w: %w", order.ErrInvalidSelection, err)
	}
	if err != nil {
		return c, err
	}
	if !c.Active {
		return c, fmt.Errorf("%w: %q is not available", order.ErrInvalidSelection, name)
	}
	return c, nil
}

// ErrInvalidTerminal is returned for terminal ids the Registry will not track.
var ErrInvalidTerminal = errors.New("invalid terminal id")

var terminalIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:-]{0,63}$`)

// Registry hands out one Session per terminal id and serializes calls on
// each of them. A session whose order is empty is dropped once no call is
// using it, so idle terminals hold no memory.
type Registry struct {
	catalog catalog.Store
	settler Settler
	logger  *zap.Logger

	mu       sync.Mutex
	sessions map[string]*registryEntry
}

type registryEntry struct {
	mu      sync.Mutex
	refs    int
	session *Session
}

func NewRegistry(store catalog.Store, settler Settler, logger *zap.Logger) *Registry {
	return &Registry{
		catalog:  store,
		settler:  settler,
		logger:   logger,
		sessions: make(map[string]*registryEntry),
	}
}

// Do runs fn with exclusive access to the terminal's session, creating the
// session on first use.
func (r *Registry) Do(terminalID string, fn func(*Session) error) error {
	if !terminalIDPattern.MatchString(terminalID) {
		return fmt.Errorf("%w: %q", ErrInvalidTerminal, terminalID)
	}

	r.mu.Lock()
	e, ok := r.sessions[terminalID]
	if !ok {
		e = &registryEntry{session: NewSession(terminalID, r.catalog, r.settler, r.logger)}
		r.sessions[terminalID] = e
	}
	e.refs++
	r.mu.Unlock()

	e.mu.Lock()
	err := fn(e.session)
	idle := e.session.ledger.Len() == 0
	e.mu.Unlock()

	r.mu.Lock()
	e.refs--
	if e.refs == 0 && idle {
		delete(r.sessions, terminalID)
	}
	r.mu.Unlock()
	return err
}

// Len returns the number of terminals with a session in memory.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
