package settlement

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"posservice/internal/recipe"
)

// Report describes a committed settlement.
type Report struct {
	SettlementID string                   `json:"settlement_id"`
	Lines        []recipe.IngredientUsage `json:"lines"`
	Total        decimal.Decimal          `json:"total"`
	Skipped      []string                 `json:"skipped,omitempty"`
	SettledAt    time.Time                `json:"settled_at"`
}

// String renders the receipt shown to the cashier.
func (r *Report) String() string {
	var b strings.Builder
	b.WriteString("Inventory items used:\n")
	for _, l := range r.Lines {
		fmt.Fprintf(&b, "- %s: %s %s\n", l.Name, l.TotalQuantity.StringFixed(2), l.Unit)
	}
	if len(r.Skipped) > 0 {
		fmt.Fprintf(&b, "\nNot deducted (no recipe found): %s\n", strings.Join(r.Skipped, ", "))
	}
	fmt.Fprintf(&b, "\nTotal Paid: $%s", r.Total.StringFixed(2))
	return b.String()
}
