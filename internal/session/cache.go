package session

import (
	"context"
	"sync"

	"golang.org/x/exp/slices"
	"philcali.me/chefbot/internal/data"
)

// ResultCache holds one conversation's latest search results. A Replace
// discards the previous set entirely; Lookup never sees superseded entries.
type ResultCache interface {
	Replace(ctx context.Context, results []data.RecipeSummary) error
	Lookup(ctx context.Context, recipeID int64) (data.RecipeSummary, bool, error)
	// Results returns the current set in search order.
	Results(ctx context.Context) ([]data.RecipeSummary, error)
	Clear(ctx context.Context) error
}

type resultSet struct {
	ordered []data.RecipeSummary
	byId    map[int64]data.RecipeSummary
}

func newResultSet(results []data.RecipeSummary) *resultSet {
	set := &resultSet{
		ordered: make([]data.RecipeSummary, 0, len(results)),
		byId:    make(map[int64]data.RecipeSummary, len(results)),
	}
	for _, r := range results {
		if _, dup := set.byId[r.ID]; dup {
			continue
		}
		set.ordered = append(set.ordered, r)
		set.byId[r.ID] = r
	}
	return set
}

// MemoryCache is a process-local ResultCache. Safe for concurrent access.
type MemoryCache struct {
	mu      sync.RWMutex
	current *resultSet
}

var _ ResultCache = (*MemoryCache)(nil)

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

func (c *MemoryCache) Replace(ctx context.Context, results []data.RecipeSummary) error {
	next := newResultSet(results)
	c.mu.Lock()
	c.current = next
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Lookup(ctx context.Context, recipeID int64) (data.RecipeSummary, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return data.RecipeSummary{}, false, nil
	}
	summary, ok := c.current.byId[recipeID]
	return summary, ok, nil
}

func (c *MemoryCache) Results(ctx context.Context) ([]data.RecipeSummary, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return nil, nil
	}
	return slices.Clone(c.current.ordered), nil
}

func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
	return nil
}
