package services

import (
	"context"
	"log/slog"

	"spendwise/internal/core"
)

// CategoryResolver maps category ids to display names for one owner.
type CategoryResolver struct {
	store CategoryFinder
}

func NewCategoryResolver(store CategoryFinder) *CategoryResolver {
	return &CategoryResolver{store: store}
}

// Lookup fetches the owner's categories among ids in one batch. Ids that do
// not resolve are absent from the result.
func (r *CategoryResolver) Lookup(ctx context.Context, ownerID string, ids []int64) (map[int64]core.Category, error) {
	unique := dedupeIDs(ids)
	out := make(map[int64]core.Category, len(unique))
	if len(unique) == 0 {
		return out, nil
	}
	cats, err := r.store.CategoriesByID(ctx, ownerID, unique)
	if err != nil {
		return nil, core.Unavailable("resolve categories", err)
	}
	for _, c := range cats {
		out[c.ID] = c
	}
	if missing := len(unique) - len(out); missing > 0 {
		slog.DebugContext(ctx, "Unresolved category ids",
			"owner_id", ownerID,
			"missing", missing)
	}
	return out, nil
}

// Resolve returns a name for every id in ids. Missing or foreign categories
// map to core.UnknownCategoryName.
func (r *CategoryResolver) Resolve(ctx context.Context, ownerID string, ids []int64) (core.CategoryNames, error) {
	found, err := r.Lookup(ctx, ownerID, ids)
	if err != nil {
		return nil, err
	}
	names := make(core.CategoryNames, len(ids))
	for _, id := range ids {
		if c, ok := found[id]; ok {
			names[id] = c.Name
		} else {
			names[id] = core.UnknownCategoryName
		}
	}
	return names, nil
}

func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
