package search

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rohmanhakim/wikisearch/internal/metadata"
	"github.com/rohmanhakim/wikisearch/internal/search/memo"
	"github.com/rohmanhakim/wikisearch/pkg/failure"
)

/*
Cache answers searches from a memo table and coalesces misses.

At most one fetch is outstanding at any time. A miss that arrives while a
fetch is running is parked in a single pending slot; a newer miss replaces
it and the replaced callback is never called. When the running fetch
completes, its result is memoized, the pending request (if any) is
dispatched, and then the completed request's callback is invoked.

A memo hit answers synchronously and drops both the running fetch's
callback and the pending request: the fetch still runs to completion and
its result is still memoized, but nobody is told about it.

Every callback is invoked at most once, always outside the cache lock.
*/
type Cache struct {
	ctx          context.Context
	fetcher      Fetcher
	memo         memo.Memo[ResultList]
	observer     Observer
	metadataSink metadata.MetadataSink

	mu      sync.Mutex
	active  *request
	pending *request
	// busy counts dispatched fetches whose callback has not returned yet.
	busy  int
	idle  chan struct{}
	stats Stats
}

// NewCache creates a cache that runs fetches with fetcher. ctx is handed to
// every fetch; the cache itself never cancels it.
func NewCache(ctx context.Context, fetcher Fetcher, opts ...Option) *Cache {
	if ctx == nil {
		ctx = context.Background()
	}
	idle := make(chan struct{})
	close(idle)

	c := &Cache{
		ctx:          ctx,
		fetcher:      fetcher,
		memo:         memo.NewWeakMemo[ResultList](memo.DefaultCapacity),
		metadataSink: &metadata.NoopSink{},
		idle:         idle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search looks up term and eventually reports it to cb, unless a later
// request supersedes or purges it. On a memo hit cb runs before Search
// returns. A nil cb is allowed.
func (c *Cache) Search(term string, cb Callback) {
	var events []EventData

	c.mu.Lock()
	c.stats.Searches++
	results, hit := c.memo.Get(term)
	if hit {
		c.stats.Hits++
		events = append(events, EventData{Event: EventHit, Term: term})
		if c.active != nil && !c.active.purged {
			c.active.purged = true
			c.active.cb = nil
			c.stats.Purged++
			events = append(events, EventData{Event: EventPurged, Term: c.active.term})
		}
		if c.pending != nil {
			c.stats.Purged++
			events = append(events, EventData{Event: EventPurged, Term: c.pending.term})
			c.pending = nil
		}
	} else {
		c.stats.Misses++
		events = append(events, EventData{Event: EventMiss, Term: term})
		events = c.submitLocked(&request{term: term, cb: cb}, events)
	}
	c.mu.Unlock()

	c.emit(events)
	if hit {
		c.deliver(cb, term, results)
	}
}

// submitLocked runs the miss branch for req. mu must be held.
func (c *Cache) submitLocked(req *request, events []EventData) []EventData {
	if c.active != nil {
		if c.pending != nil {
			c.stats.Superseded++
			events = append(events, EventData{Event: EventSuperseded, Term: c.pending.term})
		}
		c.pending = req
		c.stats.Coalesced++
		return append(events, EventData{Event: EventCoalesced, Term: req.term})
	}

	c.active = req
	c.stats.Fetches++
	if c.busy == 0 {
		c.idle = make(chan struct{})
	}
	c.busy++
	go c.run(req.term)
	return append(events, EventData{Event: EventDispatched, Term: req.term})
}

func (c *Cache) run(term string) {
	results, err := c.fetch(term)
	if err != nil {
		results = nil
		c.metadataSink.RecordError(
			time.Now(),
			"search",
			"Cache.fetch",
			metadata.CauseUnknown,
			err.Error(),
			[]metadata.Attribute{metadata.NewAttr(metadata.AttrTerm, term)},
		)
	}
	c.onFetchComplete(term, results)
}

func (c *Cache) fetch(term string) (results *ResultList, err failure.ClassifiedError) {
	defer func() {
		if r := recover(); r != nil {
			results = nil
			err = &SearchError{Cause: ErrCauseFetchPanic, Message: fmt.Sprint(r)}
		}
	}()

	results, err = c.fetcher.Fetch(c.ctx, term)
	if err == nil && results == nil {
		err = &SearchError{Cause: ErrCauseNoResults}
	}
	return results, err
}

// onFetchComplete finishes the active fetch for term. It is called exactly
// once per dispatched fetch.
func (c *Cache) onFetchComplete(term string, results *ResultList) {
	var events []EventData

	c.mu.Lock()
	if results != nil {
		c.memo.Put(term, results)
		c.stats.Completed++
		events = append(events, EventData{Event: EventCompleted, Term: term})
	} else {
		c.stats.Failures++
		events = append(events, EventData{Event: EventFailed, Term: term})
	}

	var cb Callback
	if c.active != nil {
		cb = c.active.cb
	}
	c.active = nil

	if next := c.pending; next != nil {
		c.pending = nil
		events = c.submitLocked(next, events)
	}
	c.mu.Unlock()

	c.emit(events)
	c.deliver(cb, term, results)

	c.mu.Lock()
	c.busy--
	if c.busy == 0 {
		close(c.idle)
	}
	c.mu.Unlock()
}

func (c *Cache) deliver(cb Callback, term string, results *ResultList) {
	if cb == nil {
		return
	}
	c.mu.Lock()
	c.stats.Delivered++
	c.mu.Unlock()
	cb(term, results)
}

func (c *Cache) emit(events []EventData) {
	for _, e := range events {
		c.metadataSink.RecordSearch(e.Event.String(), e.Term, nil)
		if c.observer != nil {
			c.observer.On(e)
		}
	}
}

// Stats returns a snapshot of the cache counters and state.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	if c.active != nil {
		s.Active = true
		s.ActiveTerm = c.active.term
	}
	if c.pending != nil {
		s.Pending = true
		s.PendingTerm = c.pending.term
	}
	return s
}

// WaitIdle blocks until no fetch is running and the callback of the last
// completed fetch has returned, or until ctx is done.
func (c *Cache) WaitIdle(ctx context.Context) error {
	c.mu.Lock()
	idle := c.idle
	c.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
