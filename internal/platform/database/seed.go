package database

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Seed is a fixture of inventory, menu items and recipes, loaded from YAML.
// Quantities and prices are strings so they stay exact.
type Seed struct {
	Inventory []SeedIngredient `yaml:"inventory"`
	MenuItems []SeedMenuItem   `yaml:"menu_items"`
	Recipes   []SeedRecipe     `yaml:"recipes"`
}

type SeedIngredient struct {
	ID       int64  `yaml:"id"`
	Name     string `yaml:"name"`
	Unit     string `yaml:"unit"`
	Quantity string `yaml:"quantity"`
}

type SeedMenuItem struct {
	ID         int64  `yaml:"id"`
	Name       string `yaml:"name"`
	Price      string `yaml:"price"`
	CategoryID int64  `yaml:"category_id"`
	Active     *bool  `yaml:"active"`
}

// SeedRecipe links a menu item to an ingredient, both by name.
type SeedRecipe struct {
	MenuItem   string `yaml:"menu_item"`
	Ingredient string `yaml:"ingredient"`
	QtyPerItem string `yaml:"qty_per_item"`
}

// LoadSeedFile reads a seed fixture from path.
func LoadSeedFile(path string) (*Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return DecodeSeed(f)
}

// DecodeSeed parses a YAML seed fixture.
func DecodeSeed(r io.Reader) (*Seed, error) {
	var s Seed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	return &s, nil
}

// Apply inserts the fixture in one transaction. Rows whose key already exists
// are left untouched.
func (s *Seed) Apply(ctx context.Context, db *sql.DB, d Dialect) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	ingredients := make(map[string]int64, len(s.Inventory))
	for _, ing := range s.Inventory {
		qty, err := decimal.NewFromString(ing.Quantity)
		if err != nil {
			return fmt.Errorf("ingredient %q quantity: %w", ing.Name, err)
		}
		_, err = tx.ExecContext(ctx, d.Rebind(`
			INSERT INTO inventory (ingredient_id, name, unit, current_quantity)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (ingredient_id) DO NOTHING`),
			ing.ID, ing.Name, ing.Unit, qty.String())
		if err != nil {
			return fmt.Errorf("seed ingredient %q: %w", ing.Name, err)
		}
		ingredients[ing.Name] = ing.ID
	}

	items := make(map[string]int64, len(s.MenuItems))
	for _, item := range s.MenuItems {
		price, err := decimal.NewFromString(item.Price)
		if err != nil {
			return fmt.Errorf("menu item %q price: %w", item.Name, err)
		}
		active := true
		if item.Active != nil {
			active = *item.Active
		}
		_, err = tx.ExecContext(ctx, d.Rebind(`
			INSERT INTO menu_item (menu_item_id, name, price, category_id, is_active)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (menu_item_id) DO NOTHING`),
			item.ID, item.Name, price.StringFixed(2), item.CategoryID, active)
		if err != nil {
			return fmt.Errorf("seed menu item %q: %w", item.Name, err)
		}
		items[item.Name] = item.ID
	}

	for _, r := range s.Recipes {
		itemID, ok := items[r.MenuItem]
		if !ok {
			return fmt.Errorf("recipe references unknown menu item %q", r.MenuItem)
		}
		ingID, ok := ingredients[r.Ingredient]
		if !ok {
			return fmt.Errorf("recipe references unknown ingredient %q", r.Ingredient)
		}
		qty, err := decimal.NewFromString(r.QtyPerItem)
		if err != nil {
			return fmt.Errorf("recipe %q/%q qty: %w", r.MenuItem, r.Ingredient, err)
		}
		_, err = tx.ExecContext(ctx, d.Rebind(`
			INSERT INTO recipe (menu_item_id, ingredient_id, qty_per_item)
			VALUES ($1, $2, $3)
			ON CONFLICT (menu_item_id, ingredient_id) DO NOTHING`),
			itemID, ingID, qty.String())
		if err != nil {
			return fmt.Errorf("seed recipe %q/%q: %w", r.MenuItem, r.Ingredient, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	return nil
}
