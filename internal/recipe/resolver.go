package recipe

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"posservice/internal/catalog"
)

// Resolution is a menu component together with its recipe.
type Resolution struct {
	Component catalog.MenuComponent
	Entries   []catalog.RecipeEntry
}

// Resolver turns component names into recipes. It only reads from the
// catalog and is safe for concurrent use.
type Resolver struct {
	catalog catalog.Store
}

func NewResolver(store catalog.Store) *Resolver {
	return &Resolver{catalog: store}
}

// Resolve looks name up exactly and loads its recipe. Unknown names return an
// error wrapping catalog.ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, name string) (Resolution, error) {
	c, err := r.catalog.FindMenuComponent(ctx, name)
	if err != nil {
		return Resolution{}, err
	}
	entries, err := r.catalog.RecipeFor(ctx, c.ID)
	if err != nil {
		return Resolution{}, fmt.Errorf("recipe for %q: %w", name, err)
	}
	return Resolution{Component: c, Entries: entries}, nil
}

// Outcome is the result of resolving one name in ResolveAll.
type Outcome struct {
	Resolution Resolution
	Err        error
}

// ResolveAll resolves every distinct name with at most limit lookups in
// flight. Per-name failures are reported in the returned map rather than
// aborting the batch; only context cancellation is returned as an error.
func (r *Resolver) ResolveAll(ctx context.Context, names []string, limit int) (map[string]Outcome, error) {
	distinct := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		distinct = append(distinct, n)
	}

	results := make([]Outcome, len(distinct))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, name := range distinct {
		i, name := i, name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := r.Resolve(gctx, name)
			results[i] = Outcome{Resolution: res, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]Outcome, len(distinct))
	for i, name := range distinct {
		out[name] = results[i]
	}
	return out, nil
}
