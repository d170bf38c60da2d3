package kiosk

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"posservice/internal/catalog"
	"posservice/internal/order"
	"posservice/internal/platform/observability"
	"posservice/internal/terminal"
)

// PaymentTolerance is the largest accepted difference between the paid
// amount and the server-side order total.
var PaymentTolerance = decimal.RequireFromString("0.01")

// MaxItemQuantity bounds the quantity of a single kiosk order item.
const MaxItemQuantity = 99

// Service defines the business operations for kiosk orders.
type Service interface {
	ProcessKioskOrder(ctx context.Context, event KioskOrderPlacedEvent) (*OrderSettledEvent, error)
}

// DefaultService prices a kiosk order from the catalog and settles it.
type DefaultService struct {
	catalog catalog.Store
	settler terminal.Settler
	taxRate decimal.Decimal
	logger  observability.Logger
	tracer  observability.Tracer
}

// NewService returns a kiosk service that charges taxRate (0.0825 for 8.25%)
// on top of the catalog subtotal.
func NewService(store catalog.Store, settler terminal.Settler, taxRate decimal.Decimal, logger observability.Logger, tracer observability.Tracer) Service {
	return &DefaultService{
		catalog: store,
		settler: settler,
		taxRate: taxRate,
		logger:  logger,
		tracer:  tracer,
	}
}

// Tax is the tax due on subtotal, rounded to cents.
func (s *DefaultService) Tax(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(s.taxRate).Round(2)
}

// ProcessKioskOrder rebuilds the order on a fresh terminal session, checks the
// payment and settles it. Business rejections come back as an event with
// StatusRejected; only a cancelled context is returned as an error.
func (s *DefaultService) ProcessKioskOrder(ctx context.Context, event KioskOrderPlacedEvent) (*OrderSettledEvent, error) {
	ctx, span := s.tracer.Start(ctx, "process_kiosk_order")
	defer span.End()

	span.SetAttributes(
		attribute.String("order.id", event.OrderID),
		attribute.String("terminal.id", event.TerminalID),
		attribute.Int("order.items", len(event.Items)),
		attribute.String("order.pay_amount", event.PayAmount.StringFixed(2)),
	)

	logger := s.logger.With(zap.String("order_id", event.OrderID), zap.String("terminal.id", event.TerminalID))
	session := terminal.NewSession("kiosk:"+event.TerminalID, s.catalog, s.settler, logger)

	reject := func(reason error) (*OrderSettledEvent, error) {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		span.SetAttributes(attribute.String("order.status", StatusRejected))
		span.SetStatus(codes.Error, reason.Error())
		logger.Warn("🚫 Kiosk order rejected", zap.Error(reason))
		subtotal := session.Order().Total
		tax := s.Tax(subtotal)
		return &OrderSettledEvent{
			OrderID:    event.OrderID,
			TerminalID: event.TerminalID,
			Status:     StatusRejected,
			Reason:     reason.Error(),
			Subtotal:   subtotal,
			Tax:        tax,
			Total:      subtotal.Add(tax),
		}, nil
	}

	if len(event.Items) == 0 {
		return reject(fmt.Errorf("%w: no items", order.ErrInvalidSelection))
	}
	for _, item := range event.Items {
		if err := addItem(ctx, session, item); err != nil {
			return reject(err)
		}
	}

	snap := session.Order()
	tax := s.Tax(snap.Total)
	total := snap.Total.Add(tax)
	if diff := total.Sub(event.PayAmount).Abs(); diff.GreaterThan(PaymentTolerance) {
		return reject(fmt.Errorf("payment mismatch: paid %s, order total %s",
			event.PayAmount.StringFixed(2), total.StringFixed(2)))
	}

	items := make([]string, len(snap.Lines))
	for i, l := range snap.Lines {
		items[i] = fmt.Sprintf("%d x %s", l.Quantity, l.DisplayName())
	}

	report, err := session.Settle(ctx)
	if err != nil {
		return reject(err)
	}

	span.SetAttributes(
		attribute.String("order.status", StatusSettled),
		attribute.String("settlement.id", report.SettlementID),
	)
	span.SetStatus(codes.Ok, "Kiosk order settled")
	logger.Info("✅ Kiosk order settled",
		zap.String("settlement.id", report.SettlementID),
		zap.String("order.subtotal", report.Total.StringFixed(2)),
		zap.String("order.total", total.StringFixed(2)),
	)

	return &OrderSettledEvent{
		OrderID:      event.OrderID,
		TerminalID:   event.TerminalID,
		Status:       StatusSettled,
		SettlementID: report.SettlementID,
		Subtotal:     report.Total,
		Tax:          tax,
		Total:        total,
		Items:        items,
		Usage:        report.Lines,
	}, nil
}

func addItem(ctx context.Context, session *terminal.Session, item KioskOrderItem) error {
	if item.Quantity < 1 || item.Quantity > MaxItemQuantity {
		return fmt.Errorf("%w: quantity %d outside 1..%d", order.ErrInvalidSelection, item.Quantity, MaxItemQuantity)
	}
	if item.Meal != "" && item.Name != "" {
		return fmt.Errorf("%w: item has both name and meal", order.ErrInvalidSelection)
	}

	var add func() error
	if item.Meal != "" {
		kind, err := order.ParseMealKind(item.Meal)
		if err != nil {
			return err
		}
		add = func() error {
			_, err := session.SelectMeal(ctx, kind, item.Base, item.Entrees)
			return err
		}
	} else {
		add = func() error {
			_, err := session.SelectSimpleItem(ctx, item.Name)
			return err
		}
	}

	for i := 0; i < item.Quantity; i++ {
		if err := add(); err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return fmt.Errorf("%w: %w", order.ErrInvalidSelection, err)
			}
			return err
		}
	}
	return nil
}
