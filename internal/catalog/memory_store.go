package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-process catalog, used by tests and demos.
type MemoryStore struct {
	mu         sync.RWMutex
	categories Categories
	byName     map[string]MenuComponent
	recipes    map[int64][]RecipeEntry
}

func NewMemoryStore(categories Categories) *MemoryStore {
	return &MemoryStore{
		categories: categories,
		byName:     make(map[string]MenuComponent),
		recipes:    make(map[int64][]RecipeEntry),
	}
}

// Put adds or replaces a menu component and its recipe.
func (m *MemoryStore) Put(c MenuComponent, recipe ...RecipeEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.byName[c.Name] = c
	entries := make([]RecipeEntry, len(recipe))
	for i, e := range recipe {
		e.MenuComponentID = c.ID
		entries[i] = e
	}
	m.recipes[c.ID] = entries
}

func (m *MemoryStore) FindMenuComponent(_ context.Context, name string) (MenuComponent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.byName[name]
	if !ok {
		return MenuComponent{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return c, nil
}

func (m *MemoryStore) ListEntrees(_ context.Context) ([]MenuComponent, error) {
	return m.listActive(m.categories.Entree), nil
}

func (m *MemoryStore) ListBases(_ context.Context) ([]MenuComponent, error) {
	return m.listActive(m.categories.Base), nil
}

func (m *MemoryStore) listActive(categoryID int64) []MenuComponent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []MenuComponent
	for _, c := range m.byName {
		if c.CategoryID == categoryID && c.Active {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (m *MemoryStore) RecipeFor(_ context.Context, menuComponentID int64) ([]RecipeEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := m.recipes[menuComponentID]
	out := make([]RecipeEntry, len(entries))
	copy(out, entries)
	return out, nil
}
