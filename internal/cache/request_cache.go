package cache

import (
	"context"
	"sync"
	"time"

	"github.com/Domenick1991/travelsync/internal/clock"
	"github.com/Domenick1991/travelsync/internal/logger"
	"github.com/Domenick1991/travelsync/internal/metrics"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

const DefaultTTL = 5 * time.Minute

// Loader fetches the value for a signature on a cache miss.
type Loader[V any] func(ctx context.Context) (V, error)

type entry[V any] struct {
	value     V
	createdAt time.Time
}

// RequestCache memoizes read-only queries by canonical signature for a fixed
// TTL. Expiry is checked on read; nothing runs in the background.
// Concurrent misses on the same signature share one loader call.
type RequestCache[V any] struct {
	ttl   time.Duration
	clock clock.Clock
	table *gocache.Cache
	group singleflight.Group

	// gen moves on Clear, versions[signature] on Invalidate. A load stores its
	// result only if neither moved while it ran.
	mu       sync.Mutex
	gen      uint64
	versions map[string]uint64
}

func New[V any](ttl time.Duration, clk clock.Clock) *RequestCache[V] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	return &RequestCache[V]{
		ttl:   ttl,
		clock: clk,
		// no janitor: entries are dropped lazily by lookup
		table:    gocache.New(gocache.NoExpiration, 0),
		versions: make(map[string]uint64),
	}
}

// Get returns the cached value for signature, or calls load and caches its
// result. Loader errors are returned as is and leave no entry behind.
//
// The loader runs detached from the caller's cancellation so that a caller
// giving up does not fail the others waiting on the same load; a caller whose
// ctx ends stops waiting and gets ctx.Err().
func (c *RequestCache[V]) Get(ctx context.Context, signature string, load Loader[V]) (V, error) {
	var zero V
	if v, ok := c.lookup(signature); ok {
		metrics.RecordCacheLookup("hit")
		return v, nil
	}

	gen, ver := c.version(signature)
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(flightKey(gen, ver, signature), func() (any, error) {
		if v, ok := c.lookup(signature); ok {
			return v, nil
		}
		metrics.RecordCacheLookup("miss")
		v, err := load(loadCtx)
		if err != nil {
			metrics.RecordCacheLookup("error")
			logger.Debug("request cache loader failed", "signature", signature, "error", err)
			return nil, err
		}
		c.store(signature, gen, ver, v)
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		if res.Shared {
			metrics.RecordCacheLookup("coalesced")
		}
		v, _ := res.Val.(V)
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Invalidate drops the entry for one signature. A load of that signature
// already in flight still answers its callers but is not stored.
func (c *RequestCache[V]) Invalidate(signature string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.versions[signature]++
	c.table.Delete(signature)
}

// Clear drops every entry. Loads already in flight finish for their callers
// but their results are not stored.
func (c *RequestCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.versions = make(map[string]uint64)
	c.table.Flush()
}

func (c *RequestCache[V]) version(signature string) (uint64, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen, c.versions[signature]
}

func (c *RequestCache[V]) store(signature string, gen, ver uint64, v V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen || c.versions[signature] != ver {
		return false
	}
	c.table.Set(signature, entry[V]{value: v, createdAt: c.clock.Now()}, gocache.NoExpiration)
	return true
}

// Len counts entries that are still within TTL.
func (c *RequestCache[V]) Len() int {
	now := c.clock.Now()
	n := 0
	for _, item := range c.table.Items() {
		if e, ok := item.Object.(entry[V]); ok && now.Sub(e.createdAt) < c.ttl {
			n++
		}
	}
	return n
}

func (c *RequestCache[V]) TTL() time.Duration { return c.ttl }

func (c *RequestCache[V]) lookup(signature string) (V, bool) {
	var zero V
	obj, found := c.table.Get(signature)
	if !found {
		return zero, false
	}
	e, ok := obj.(entry[V])
	if !ok {
		return zero, false
	}
	if c.clock.Now().Sub(e.createdAt) >= c.ttl {
		c.table.Delete(signature)
		return zero, false
	}
	return e.value, true
}
