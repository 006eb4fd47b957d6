package search

import (
	"github.com/rohmanhakim/wikisearch/internal/metadata"
	"github.com/rohmanhakim/wikisearch/internal/search/memo"
)

// Option configures a Cache created by NewCache.
type Option func(*Cache)

// WithMemo replaces the default weak memo table.
func WithMemo(m memo.Memo[ResultList]) Option {
	return func(c *Cache) {
		if m != nil {
			c.memo = m
		}
	}
}

// WithObserver attaches an Observer that receives lifecycle events
// for the lifetime of the cache.
func WithObserver(o Observer) Option {
	return func(c *Cache) {
		c.observer = o
	}
}

// WithMetadataSink sets where search events and fetch failures are recorded.
func WithMetadataSink(sink metadata.MetadataSink) Option {
	return func(c *Cache) {
		if sink != nil {
			c.metadataSink = sink
		}
	}
}
