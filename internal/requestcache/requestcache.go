// Package requestcache memoizes reads within a single request's resolution
// fan-out. Each request gets its own TTL-bounded cache; nothing is shared
// across requests.
package requestcache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Policy configures per-request memoization. It is passed in explicitly at
// construction; a zero policy disables caching entirely.
type Policy struct {
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
}

func (p Policy) Enabled() bool {
	return p.TTL > 0 && p.MaxEntries > 0
}

type Cache struct {
	lru *expirable.LRU[string, any]
}

// New returns a cache for one request, or nil if the policy disables caching.
func New(p Policy) *Cache {
	if !p.Enabled() {
		return nil
	}
	return &Cache{lru: expirable.NewLRU[string, any](p.MaxEntries, nil, p.TTL)}
}

func (c *Cache) Get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	return c.lru.Get(key)
}

func (c *Cache) Set(key string, v any) {
	if c == nil {
		return
	}
	c.lru.Add(key, v)
}

type cacheKey struct{}

// WithContext attaches a request-scoped cache to the context.
func WithContext(ctx context.Context, c *Cache) context.Context {
	if c == nil {
		return ctx
	}
	return context.WithValue(ctx, cacheKey{}, c)
}

// FromContext returns the request cache, or nil when the request carries none.
func FromContext(ctx context.Context) *Cache {
	c, _ := ctx.Value(cacheKey{}).(*Cache)
	return c
}

// Memo runs fetch through the request cache under key. Lookups outside a
// request context, or with caching disabled, fall through to fetch.
func Memo[T any](ctx context.Context, key string, fetch func() (T, error)) (T, error) {
	c := FromContext(ctx)
	if c == nil {
		return fetch()
	}
	if v, ok := c.Get(key); ok {
		if t, ok := v.(T); ok {
			return t, nil
		}
	}
	t, err := fetch()
	if err != nil {
		return t, err
	}
	c.Set(key, t)
	return t, nil
}
