package catalog

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when no menu component has the requested name.
var ErrNotFound = errors.New("menu component not found")

// MenuComponent is a sellable menu item: a simple item, a meal base, an entree
// or a meal kind such as "Bowl".
type MenuComponent struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	CategoryID int64           `json:"category_id"`
	Active     bool            `json:"active"`
}

// RecipeEntry says how much of one ingredient a single unit of a menu
// component consumes.
type RecipeEntry struct {
	MenuComponentID int64           `json:"menu_component_id"`
	IngredientID    int64           `json:"ingredient_id"`
	IngredientName  string          `json:"ingredient_name"`
	Unit            string          `json:"unit"`
	QuantityPerUnit decimal.Decimal `json:"quantity_per_unit"`
}

// Store is the read-only menu catalog.
type Store interface {
	FindMenuComponent(ctx context.Context, name string) (MenuComponent, error)
	ListEntrees(ctx context.Context) ([]MenuComponent, error)
	ListBases(ctx context.Context) ([]MenuComponent, error)
	RecipeFor(ctx context.Context, menuComponentID int64) ([]RecipeEntry, error)
}

// Categories identifies the menu categories used by the meal wizard.
type Categories struct {
	Entree int64
	Base   int64
}

// DefaultCategories matches the stock menu layout.
var DefaultCategories = Categories{Entree: 3, Base: 2}
