package settlement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"posservice/internal/catalog"
	"posservice/internal/inventory"
	"posservice/internal/order"
	"posservice/internal/platform/observability"
	"posservice/internal/recipe"
)

// State is the lifecycle of one settlement attempt.
type State int

const (
	Idle State = iota
	InProgress
	Committed
	RolledBack
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case InProgress:
		return "in_progress"
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled_back"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// UnresolvedPolicy decides what happens to a component that is not in the
// catalog.
type UnresolvedPolicy int

const (
	// FailFast aborts the settlement with ErrUnresolvedComponent.
	FailFast UnresolvedPolicy = iota
	// SkipAndWarn logs the component, lists it on the report and deducts
	// nothing for it.
	SkipAndWarn
)

func (p UnresolvedPolicy) String() string {
	if p == SkipAndWarn {
		return "skip-and-warn"
	}
	return "fail-fast"
}

// ParseUnresolvedPolicy accepts "fail-fast" or "skip-and-warn".
func ParseUnresolvedPolicy(s string) (UnresolvedPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fail-fast":
		return FailFast, nil
	case "skip-and-warn":
		return SkipAndWarn, nil
	default:
		return FailFast, fmt.Errorf("unknown unresolved component policy %q", s)
	}
}

// Options tunes a Coordinator.
type Options struct {
	UnresolvedPolicy UnresolvedPolicy
	// AllowNegativeStock disables the floor check so stock can go below zero.
	AllowNegativeStock bool
	// ResolveConcurrency bounds concurrent catalog lookups. Zero means no limit.
	ResolveConcurrency int
}

// Coordinator applies an order's ingredient consumption to the inventory as a
// single transaction.
type Coordinator struct {
	resolver  *recipe.Resolver
	inventory inventory.Store
	opts      Options
	logger    observability.Logger
	tracer    observability.Tracer
	now       func() time.Time
}

func NewCoordinator(resolver *recipe.Resolver, store inventory.Store, opts Options, logger observability.Logger, tracer observability.Tracer) *Coordinator {
	return &Coordinator{
		resolver:  resolver,
		inventory: store,
		opts:      opts,
		logger:    logger,
		tracer:    tracer,
		now:       time.Now,
	}
}

// attempt tracks one call to Settle.
type attempt struct {
	id     string
	state  State
	tx     inventory.Tx
	span   trace.Span
	logger *zap.Logger
}

func (a *attempt) moveTo(s State) {
	a.logger.Debug("Settlement state change", zap.Stringer("from", a.state), zap.Stringer("to", s))
	a.state = s
}

// fail rolls back if a transaction is open and returns a *Failure.
func (a *attempt) fail(reason error) error {
	if a.tx != nil {
		if err := a.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			a.logger.Error("❌ Rollback failed", zap.Error(err))
		}
		a.moveTo(RolledBack)
	}
	a.span.RecordError(reason)
	a.span.SetStatus(codes.Error, reason.Error())
	a.span.SetAttributes(attribute.String("settlement.state", a.state.String()))
	a.logger.Error("❌ Settlement failed", zap.Stringer("state", a.state), zap.Error(reason))
	return &Failure{SettlementID: a.id, State: a.state, Reason: reason}
}

// Settle deducts the ingredients consumed by snap from the inventory. Either
// every deduction commits or none does; on failure the returned error is a
// *Failure.
func (c *Coordinator) Settle(ctx context.Context, snap order.Snapshot) (*Report, error) {
	if snap.Empty() {
		return nil, &Failure{State: Idle, Reason: ErrEmptyOrder}
	}

	id := uuid.NewString()
	ctx, span := c.tracer.Start(ctx, "settle_order")
	defer span.End()

	span.SetAttributes(
		attribute.String("settlement.id", id),
		attribute.Int("order.lines", len(snap.Lines)),
		attribute.String("order.total", snap.Total.StringFixed(2)),
		attribute.String("settlement.unresolved_policy", c.opts.UnresolvedPolicy.String()),
	)

	a := &attempt{
		id:     id,
		state:  Idle,
		span:   span,
		logger: c.logger.With(zap.String("settlement.id", id)),
	}
	a.logger.Info("💳 Settling order",
		zap.Int("order.lines", len(snap.Lines)),
		zap.String("order.total", snap.Total.StringFixed(2)),
	)

	tx, err := c.inventory.Begin(ctx)
	if err != nil {
		return nil, a.fail(fmt.Errorf("%w: %w", ErrTransactionFailure, err))
	}
	a.tx = tx
	a.moveTo(InProgress)

	usage, skipped, err := c.aggregate(ctx, a, snap)
	if err != nil {
		return nil, a.fail(err)
	}

	lines := usage.Sorted()
	if err := c.apply(ctx, tx, lines); err != nil {
		return nil, a.fail(err)
	}

	if err := tx.Commit(); err != nil {
		// A failed commit leaves nothing applied; the driver has already
		// discarded the transaction.
		a.tx = nil
		a.moveTo(RolledBack)
		return nil, a.fail(fmt.Errorf("%w: %w", ErrTransactionFailure, err))
	}
	a.moveTo(Committed)

	span.SetAttributes(
		attribute.String("settlement.state", a.state.String()),
		attribute.Int("settlement.ingredients", len(lines)),
		attribute.Int("settlement.skipped", len(skipped)),
	)
	span.SetStatus(codes.Ok, "Settlement committed")
	a.logger.Info("✅ Settlement committed",
		zap.Int("ingredients", len(lines)),
		zap.Strings("skipped", skipped),
	)

	return &Report{
		SettlementID: id,
		Lines:        lines,
		Total:        snap.Total,
		Skipped:      skipped,
		SettledAt:    c.now(),
	}, nil
}

// aggregate resolves every component of every line and folds the recipes
// into a usage map.
func (c *Coordinator) aggregate(ctx context.Context, a *attempt, snap order.Snapshot) (recipe.UsageMap, []string, error) {
	ctx, span := c.tracer.Start(ctx, "resolve_components")
	defer span.End()

	var names []string
	for _, line := range snap.Lines {
		names = append(names, line.Selection.Components()...)
	}
	span.SetAttributes(attribute.Int("components", len(names)))

	outcomes, err := c.resolver.ResolveAll(ctx, names, c.opts.ResolveConcurrency)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, fmt.Errorf("%w: %w", ErrTransactionFailure, err)
	}

	usage := recipe.NewUsageMap()
	var skipped []string
	seenSkip := make(map[string]bool)
	for _, line := range snap.Lines {
		for _, name := range line.Selection.Components() {
			out := outcomes[name]
			if out.Err != nil {
				if !errors.Is(out.Err, catalog.ErrNotFound) {
					span.SetStatus(codes.Error, out.Err.Error())
					return nil, nil, fmt.Errorf("%w: %w", ErrTransactionFailure, out.Err)
				}
				if c.opts.UnresolvedPolicy == FailFast {
					span.SetStatus(codes.Error, out.Err.Error())
					return nil, nil, fmt.Errorf("%w %q: %w", ErrUnresolvedComponent, name, out.Err)
				}
				a.logger.Warn("⚠️ Component not in catalog, nothing deducted",
					zap.String("component", name),
					zap.String("line", line.DisplayName()),
				)
				if !seenSkip[name] {
					seenSkip[name] = true
					skipped = append(skipped, name)
				}
				continue
			}
			usage.Accumulate(out.Resolution.Entries, line.Quantity)
		}
	}
	span.SetStatus(codes.Ok, "Components resolved")
	return usage, skipped, nil
}

// apply locks and decrements each ingredient in ascending id order.
func (c *Coordinator) apply(ctx context.Context, tx inventory.Tx, lines []recipe.IngredientUsage) error {
	ctx, span := c.tracer.Start(ctx, "apply_deltas")
	defer span.End()
	span.SetAttributes(attribute.Int("ingredients", len(lines)))

	for _, u := range lines {
		if u.TotalQuantity.IsZero() {
			continue
		}
		current, err := tx.LockQuantity(ctx, u.IngredientID)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("%w: %w", ErrTransactionFailure, err)
		}
		if !c.opts.AllowNegativeStock && current.LessThan(u.TotalQuantity) {
			err := fmt.Errorf("%w: %s needs %s %s, %s on hand", ErrInsufficientStock,
				u.Name, u.TotalQuantity.String(), u.Unit, current.String())
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		if err := tx.ApplyDelta(ctx, u.IngredientID, u.TotalQuantity.Neg()); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("%w: %w", ErrTransactionFailure, err)
		}
		c.logger.Debug("Ingredient deducted",
			zap.Int64("ingredient.id", u.IngredientID),
			zap.String("quantity", u.TotalQuantity.String()),
		)
	}
	span.SetStatus(codes.Ok, "Deltas applied")
	return nil
}
