package archive

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/debstat/debstat/pkg/depgraph"
)

// DefaultConcurrency bounds parallel archive lookups during prefetch.
const DefaultConcurrency = 24

// Cache memoizes an Oracle per (name, version) key for the lifetime of the
// process. Concurrent lookups for the same key are collapsed to a single
// upstream call; later callers receive the first caller's result. Results
// are never persisted.
type Cache struct {
	oracle Oracle
	group  singleflight.Group

	mu      sync.RWMutex
	results map[string]Status
}

// NewCache wraps oracle with per-run memoization.
func NewCache(oracle Oracle) *Cache {
	return &Cache{
		oracle:  oracle,
		results: make(map[string]Status),
	}
}

// Lookup returns the cached status for (name, version), querying the
// wrapped oracle at most once per key.
func (c *Cache) Lookup(ctx context.Context, name, version string) Status {
	key := name + " " + version

	c.mu.RLock()
	st, ok := c.results[key]
	c.mu.RUnlock()
	if ok {
		return st
	}

	v, _, _ := c.group.Do(key, func() (any, error) {
		st := c.oracle.Lookup(ctx, name, version)
		// Failed lookups are cached too: one unreachable endpoint should
		// cost one round-trip per key, not one per tree occurrence.
		c.mu.Lock()
		c.results[key] = st
		c.mu.Unlock()
		return st, nil
	})
	return v.(Status)
}

// Len returns the number of cached keys.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.results)
}

// Prefetch warms the cache for all registry-sourced packages of a graph
// with a bounded worker pool. The subsequent synchronous traversal then
// reads every status from memory.
//
// Prefetch stops early when ctx is cancelled and returns ctx.Err(); individual
// lookup failures are cached as LookupFailed statuses, not returned.
func (c *Cache) Prefetch(ctx context.Context, g *depgraph.Graph, concurrency int) error {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	grp, ctx := errgroup.WithContext(ctx)
	grp.SetLimit(concurrency)

	for _, id := range g.RegistryIDs() {
		grp.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			c.Lookup(ctx, id.Name, id.Version)
			return nil
		})
	}
	return grp.Wait()
}

// Offline is an Oracle that never touches the network. Every lookup
// reports LookupFailed so offline runs still render the full tree with an
// honest "unknown" marker.
type Offline struct{}

func (Offline) Lookup(context.Context, string, string) Status {
	return Status{Kind: LookupFailed, Reason: "offline"}
}
