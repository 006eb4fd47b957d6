package search

import (
	"context"

	"github.com/rohmanhakim/wikisearch/pkg/failure"
)

// Page is one search result.
type Page struct {
	// ID is the remote page id, 0 when unknown.
	ID    int64
	Title string
	// URL is the canonical URL of the page.
	URL string
	// ThumbnailURL is empty when the page has no thumbnail.
	ThumbnailURL string
}

func (p Page) HasThumbnail() bool {
	return p.ThumbnailURL != ""
}

// ResultList is the ordered result of one search.
// A nil *ResultList means the fetch failed; an empty list is a valid answer.
type ResultList struct {
	Pages []Page
}

func NewResultList(pages ...Page) *ResultList {
	if pages == nil {
		pages = []Page{}
	}
	return &ResultList{Pages: pages}
}

func (r *ResultList) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Pages)
}

// Callback receives the outcome of a search. results is nil when the fetch failed.
type Callback func(term string, results *ResultList)

// Fetcher runs the remote query for one term.
// The cache calls Fetch at most once per dispatch and never cancels or retries it.
type Fetcher interface {
	Fetch(ctx context.Context, term string) (*ResultList, failure.ClassifiedError)
}

// FetcherFunc adapts a plain function to Fetcher.
type FetcherFunc func(ctx context.Context, term string) (*ResultList, failure.ClassifiedError)

func (f FetcherFunc) Fetch(ctx context.Context, term string) (*ResultList, failure.ClassifiedError) {
	return f(ctx, term)
}

// request is a term together with the callback waiting for it.
type request struct {
	term   string
	cb     Callback
	purged bool
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Searches   int
	Hits       int
	Misses     int
	Fetches    int
	Coalesced  int
	Superseded int
	Purged     int
	Completed  int
	Failures   int
	Delivered  int

	Active      bool
	ActiveTerm  string
	Pending     bool
	PendingTerm string
}
