package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"posservice/internal/platform/database"
)

// SQLStore reads the catalog from the menu_item and recipe tables.
type SQLStore struct {
	db         *sql.DB
	dialect    database.Dialect
	categories Categories
}

func NewSQLStore(db *sql.DB, dialect database.Dialect, categories Categories) *SQLStore {
	return &SQLStore{db: db, dialect: dialect, categories: categories}
}

func (s *SQLStore) FindMenuComponent(ctx context.Context, name string) (MenuComponent, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.Rebind(`
		SELECT menu_item_id, name, price, category_id, is_active
		FROM menu_item
		WHERE name = $1`), name)

	c, err := scanComponent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return MenuComponent{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return MenuComponent{}, fmt.Errorf("find menu component %q: %w", name, database.Classify(err))
	}
	return c, nil
}

func (s *SQLStore) ListEntrees(ctx context.Context) ([]MenuComponent, error) {
	return s.listActive(ctx, s.categories.Entree)
}

func (s *SQLStore) ListBases(ctx context.Context) ([]MenuComponent, error) {
	return s.listActive(ctx, s.categories.Base)
}

func (s *SQLStore) listActive(ctx context.Context, categoryID int64) ([]MenuComponent, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(`
		SELECT menu_item_id, name, price, category_id, is_active
		FROM menu_item
		WHERE category_id = $1 AND is_active = TRUE
		ORDER BY name`), categoryID)
	if err != nil {
		return nil, fmt.Errorf("list category %d: %w", categoryID, database.Classify(err))
	}
	defer rows.Close()

	var out []MenuComponent
	for rows.Next() {
		c, err := scanComponent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLStore) RecipeFor(ctx context.Context, menuComponentID int64) ([]RecipeEntry, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(`
		SELECT r.ingredient_id, r.qty_per_item, i.name, i.unit
		FROM recipe r
		JOIN inventory i ON r.ingredient_id = i.ingredient_id
		WHERE r.menu_item_id = $1
		ORDER BY r.ingredient_id`), menuComponentID)
	if err != nil {
		return nil, fmt.Errorf("recipe for %d: %w", menuComponentID, database.Classify(err))
	}
	defer rows.Close()

	var out []RecipeEntry
	for rows.Next() {
		e := RecipeEntry{MenuComponentID: menuComponentID}
		var qty decimal.Decimal
		if err := rows.Scan(&e.IngredientID, &qty, &e.IngredientName, &e.Unit); err != nil {
			return nil, fmt.Errorf("scan recipe entry: %w", err)
		}
		e.QuantityPerUnit = qty
		out = append(out, e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanComponent(row scanner) (MenuComponent, error) {
	var c MenuComponent
	err := row.Scan(&c.ID, &c.Name, &c.UnitPrice, &c.CategoryID, &c.Active)
	return c, err
}
