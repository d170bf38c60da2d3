package kiosk

import (
	"github.com/shopspring/decimal"

	"posservice/internal/recipe"
)

const (
	StatusSettled  = "settled"
	StatusRejected = "rejected"
)

// KioskOrderItem is one line of a self-service order. Either Name is set for a
// plain item, or Meal, Base and Entrees describe a meal.
type KioskOrderItem struct {
	Name     string   `json:"name,omitempty"`
	Meal     string   `json:"meal,omitempty"`
	Base     string   `json:"base,omitempty"`
	Entrees  []string `json:"entrees,omitempty"`
	Quantity int      `json:"quantity"`
}

// KioskOrderPlacedEvent is a paid order submitted by a kiosk.
type KioskOrderPlacedEvent struct {
	OrderID    string           `json:"order_id"`
	TerminalID string           `json:"terminal_id"`
	Items      []KioskOrderItem `json:"items"`
	PayAmount  decimal.Decimal  `json:"pay_amount"`
}

// OrderSettledEvent reports the outcome of a kiosk order to the kitchen.
type OrderSettledEvent struct {
	OrderID      string                   `json:"order_id"`
	TerminalID   string                   `json:"terminal_id"`
	Status       string                   `json:"status"`
	Reason       string                   `json:"reason,omitempty"`
	SettlementID string                   `json:"settlement_id,omitempty"`
	Subtotal     decimal.Decimal          `json:"subtotal"`
	Tax          decimal.Decimal          `json:"tax"`
	Total        decimal.Decimal          `json:"total"`
	Items        []string                 `json:"items,omitempty"`
	Usage        []recipe.IngredientUsage `json:"usage,omitempty"`
}
