// Package lookup caches entity lookups in front of a store.
package lookup

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cognicore/nli/pkg/nli/entity"
	"github.com/cognicore/nli/pkg/nli/internalerr"
	"github.com/cognicore/nli/pkg/nli/store"
)

// DefaultSize is the number of entities kept when no size is given.
const DefaultSize = 4096

// Cached wraps a store.Lookup with a bounded LRU cache. Misses are fetched
// in one batch; unknown ids are remembered so repeated lookups stay local.
// Safe for concurrent use.
type Cached struct {
	next  store.Lookup
	cache *lru.Cache[string, entry]
}

type entry struct {
	entity entity.Entity
	found  bool
}

// New creates a cache of the given size over next.
func New(next store.Lookup, size int) (*Cached, error) {
	if size <= 0 {
		size = DefaultSize
	}
	c, err := lru.New[string, entry](size)
	if err != nil {
		return nil, fmt.Errorf("%w: lookup cache: %v", internalerr.ErrInvalidConfig, err)
	}
	return &Cached{next: next, cache: c}, nil
}

// Lookup implements store.Lookup. Results keep the order of ids.
func (c *Cached) Lookup(ctx context.Context, ids []string) ([]entity.Entity, error) {
	var missing []string
	for _, id := range ids {
		if !c.cache.Contains(id) {
			missing = append(missing, id)
		}
	}

	fetched := make(map[string]entry, len(missing))
	if len(missing) > 0 {
		got, err := c.next.Lookup(ctx, missing)
		if err != nil {
			return nil, err
		}
		for _, id := range missing {
			fetched[id] = entry{}
		}
		for _, e := range got {
			fetched[e.ID] = entry{entity: e, found: true}
		}
		for id, e := range fetched {
			c.cache.Add(id, e)
		}
	}

	out := make([]entity.Entity, 0, len(ids))
	for _, id := range ids {
		e, ok := fetched[id]
		if !ok {
			// May have been evicted since the Contains check.
			if e, ok = c.cache.Get(id); !ok {
				got, err := c.next.Lookup(ctx, []string{id})
				if err != nil {
					return nil, err
				}
				e = entry{}
				if len(got) > 0 {
					e = entry{entity: got[0], found: true}
				}
				c.cache.Add(id, e)
			}
		}
		if e.found {
			out = append(out, e.entity)
		}
	}
	return out, nil
}

// Purge drops every cached entity. Call it after the underlying graph changes.
func (c *Cached) Purge() {
	c.cache.Purge()
}

// Len returns the number of cached ids.
func (c *Cached) Len() int {
	return c.cache.Len()
}
