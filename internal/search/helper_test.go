package search_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rohmanhakim/wikisearch/internal/metadata"
	"github.com/rohmanhakim/wikisearch/internal/search"
	"github.com/rohmanhakim/wikisearch/internal/search/memo"
	"github.com/rohmanhakim/wikisearch/pkg/failure"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 2 * time.Second

// fetchCall is one blocked Fetch invocation waiting for a reply.
type fetchCall struct {
	term  string
	reply chan fetchReply
}

type fetchReply struct {
	results *search.ResultList
	err     failure.ClassifiedError
	panic   any
}

func (c *fetchCall) respond(results *search.ResultList) {
	c.reply <- fetchReply{results: results}
}

func (c *fetchCall) fail(err failure.ClassifiedError) {
	c.reply <- fetchReply{err: err}
}

// controlledFetcher blocks every Fetch until the test replies to it.
type controlledFetcher struct {
	calls chan *fetchCall
}

func newControlledFetcher() *controlledFetcher {
	return &controlledFetcher{calls: make(chan *fetchCall, 16)}
}

func (f *controlledFetcher) Fetch(ctx context.Context, term string) (*search.ResultList, failure.ClassifiedError) {
	call := &fetchCall{term: term, reply: make(chan fetchReply, 1)}
	f.calls <- call
	r := <-call.reply
	if r.panic != nil {
		panic(r.panic)
	}
	return r.results, r.err
}

func (f *controlledFetcher) next(t *testing.T) *fetchCall {
	t.Helper()
	select {
	case call := <-f.calls:
		return call
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for a fetch")
		return nil
	}
}

func (f *controlledFetcher) assertNoCall(t *testing.T) {
	t.Helper()
	select {
	case call := <-f.calls:
		t.Fatalf("unexpected fetch for %q", call.term)
	case <-time.After(50 * time.Millisecond):
	}
}

type delivery struct {
	term    string
	results *search.ResultList
}

// callbackRecorder collects deliveries per named callback.
type callbackRecorder struct {
	mu         sync.Mutex
	deliveries map[string][]delivery
	notify     chan string
}

func newCallbackRecorder() *callbackRecorder {
	return &callbackRecorder{
		deliveries: make(map[string][]delivery),
		notify:     make(chan string, 64),
	}
}

func (r *callbackRecorder) callback(name string) search.Callback {
	return func(term string, results *search.ResultList) {
		r.mu.Lock()
		r.deliveries[name] = append(r.deliveries[name], delivery{term: term, results: results})
		r.mu.Unlock()
		r.notify <- name
	}
}

func (r *callbackRecorder) get(name string) []delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]delivery(nil), r.deliveries[name]...)
}

func (r *callbackRecorder) waitFor(t *testing.T, name string) {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case got := <-r.notify:
			if got == name {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for callback %q", name)
		}
	}
}

// mapMemo never reclaims unless told to.
type mapMemo struct {
	*memo.MapMemo[search.ResultList]
}

func newMapMemo() *mapMemo {
	return &mapMemo{MapMemo: memo.NewMapMemo[search.ResultList]()}
}

func (m *mapMemo) has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// eventObserver records events in emission order.
type eventObserver struct {
	mu     sync.Mutex
	events []search.EventData
}

func (o *eventObserver) On(e search.EventData) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, e)
}

func (o *eventObserver) snapshot() []search.EventData {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]search.EventData(nil), o.events...)
}

// sinkMock is a testify mock for metadata.MetadataSink
type sinkMock struct {
	mock.Mock
}

func (s *sinkMock) RecordSearch(event string, term string, attrs []metadata.Attribute) {
	s.Called(event, term, attrs)
}

func (s *sinkMock) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause metadata.ErrorCause,
	details string,
	attrs []metadata.Attribute,
) {
	s.Called(observedAt, packageName, action, cause, details, attrs)
}

func (s *sinkMock) RecordFetch(fetchUrl string, httpStatus int, duration time.Duration, retryCount int) {
	s.Called(fetchUrl, httpStatus, duration, retryCount)
}

func (s *sinkMock) RecordArtifact(kind metadata.ArtifactKind, path string, attrs []metadata.Attribute) {
	s.Called(kind, path, attrs)
}

func pages(titles ...string) *search.ResultList {
	list := make([]search.Page, 0, len(titles))
	for i, title := range titles {
		list = append(list, search.Page{
			ID:    int64(i + 1),
			Title: title,
			URL:   "https://en.wikipedia.org/wiki/" + title,
		})
	}
	return search.NewResultList(list...)
}

func newTestCache(t *testing.T, opts ...search.Option) (*search.Cache, *controlledFetcher, *mapMemo) {
	t.Helper()
	fetcher := newControlledFetcher()
	m := newMapMemo()
	cache := search.NewCache(context.Background(), fetcher, append([]search.Option{search.WithMemo(m)}, opts...)...)
	return cache, fetcher, m
}

func waitIdle(t *testing.T, cache *search.Cache) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	require.NoError(t, cache.WaitIdle(ctx))
}
