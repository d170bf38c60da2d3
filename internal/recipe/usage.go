package recipe

import (
	"sort"

	"github.com/shopspring/decimal"

	"posservice/internal/catalog"
)

// IngredientUsage is the total amount of one ingredient consumed by an order.
type IngredientUsage struct {
	IngredientID  int64           `json:"ingredient_id"`
	Name          string          `json:"name"`
	Unit          string          `json:"unit"`
	TotalQuantity decimal.Decimal `json:"total_quantity"`
}

// UsageMap aggregates ingredient consumption keyed by ingredient id. The zero
// value is not usable; call NewUsageMap.
type UsageMap map[int64]IngredientUsage

func NewUsageMap() UsageMap { return make(UsageMap) }

// Accumulate adds quantityPerUnit * lineQuantity for every entry. The first
// entry seen for an ingredient supplies its name and unit.
func (u UsageMap) Accumulate(entries []catalog.RecipeEntry, lineQuantity int) {
	qty := decimal.NewFromInt(int64(lineQuantity))
	for _, e := range entries {
		u.add(IngredientUsage{
			IngredientID:  e.IngredientID,
			Name:          e.IngredientName,
			Unit:          e.Unit,
			TotalQuantity: e.QuantityPerUnit.Mul(qty),
		})
	}
}

// Merge folds other into u.
func (u UsageMap) Merge(other UsageMap) {
	for _, usage := range other {
		u.add(usage)
	}
}

func (u UsageMap) add(usage IngredientUsage) {
	cur, ok := u[usage.IngredientID]
	if !ok {
		u[usage.IngredientID] = usage
		return
	}
	cur.TotalQuantity = cur.TotalQuantity.Add(usage.TotalQuantity)
	u[usage.IngredientID] = cur
}

// Sorted returns the usages in ascending ingredient id order.
func (u UsageMap) Sorted() []IngredientUsage {
	out := make([]IngredientUsage, 0, len(u))
	for _, usage := range u {
		out = append(out, usage)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IngredientID < out[j].IngredientID })
	return out
}
