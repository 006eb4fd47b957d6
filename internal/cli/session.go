package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rohmanhakim/wikisearch/internal/config"
	"github.com/rohmanhakim/wikisearch/internal/metadata"
	"github.com/rohmanhakim/wikisearch/internal/search"
	"github.com/rohmanhakim/wikisearch/internal/search/memo"
	"github.com/rohmanhakim/wikisearch/internal/thumbnail"
	"github.com/rohmanhakim/wikisearch/internal/wiki"
	"github.com/rohmanhakim/wikisearch/pkg/limiter"
	"github.com/rohmanhakim/wikisearch/pkg/retry"
	"github.com/rohmanhakim/wikisearch/pkg/timeutil"
	"golang.org/x/time/rate"
)

// NewLogger builds the stderr logger for the given level and format.
func NewLogger(w io.Writer, level string, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
}

// Session replays a sequence of search-box updates against one cache.
type Session struct {
	Config config.Config
	// Interval is the pause between two updates, 0 submits them back to back.
	Interval time.Duration
	Out      io.Writer
	Logger   *slog.Logger
	// Finalizer receives the session summary; nil records it through the logger.
	Finalizer metadata.SessionFinalizer
}

// Run submits terms in order, skipping a term equal to the one right before
// it, waits until the cache is idle and prints its statistics. Thumbnails
// of every delivered page are fetched afterwards when enabled.
func (s Session) Run(ctx context.Context, terms []string) (search.Stats, error) {
	startedAt := time.Now()
	cfg := s.Config

	recorder := metadata.NewRecorder(s.Logger)
	finalizer := s.Finalizer
	if finalizer == nil {
		finalizer = recorder
	}
	httpClient := &http.Client{Timeout: cfg.Timeout()}

	backoffParam := timeutil.NewBackoffParam(
		cfg.BackoffInitialDuration(),
		cfg.BackoffMultiplier(),
		cfg.BackoffMaxDuration(),
	)
	rateLimiter := limiter.NewConcurrentRateLimiter()
	rateLimiter.SetBaseDelay(cfg.BaseDelay())
	rateLimiter.SetJitter(cfg.Jitter())
	rateLimiter.SetRandomSeed(cfg.RandomSeed())
	rateLimiter.SetBackoffParam(backoffParam)

	retryParam := retry.NewRetryParam(
		cfg.BaseDelay(),
		cfg.Jitter(),
		cfg.RandomSeed(),
		cfg.MaxAttempt(),
		backoffParam,
	)

	client := wiki.NewClient(
		recorder,
		httpClient,
		rateLimiter,
		wiki.NewQueryParam(cfg.Endpoint(), cfg.UserAgent(), cfg.ResultLimit(), cfg.ThumbSize()),
		retryParam,
	)

	out := newPrinter(s.Out)
	cache := search.NewCache(ctx, client,
		search.WithMemo(memo.NewWeakMemo[search.ResultList](cfg.MemoCapacity())),
		search.WithMetadataSink(recorder),
	)

	for i, term := range dedupeConsecutive(terms) {
		if i > 0 && s.Interval > 0 {
			select {
			case <-ctx.Done():
				return cache.Stats(), ctx.Err()
			case <-time.After(s.Interval):
			}
		}
		cache.Search(term, out.deliver)
	}

	if err := cache.WaitIdle(ctx); err != nil {
		return cache.Stats(), err
	}
	stats := cache.Stats()

	stored := 0
	if cfg.DownloadThumbnails() {
		downloader := thumbnail.NewDownloader(
			recorder,
			httpClient,
			thumbnail.NewDiskStore(cfg.CacheDir(), thumbnail.DefaultHashAlgo),
			rate.NewLimiter(rate.Limit(cfg.ThumbnailRate()), 1),
			thumbnail.NewDownloadParam(cfg.UserAgent(), cfg.MaxThumbnailSize(), cfg.ThumbnailConcurrency()),
			retryParam,
		)
		report := downloader.FetchAll(ctx, out.deliveredPages())
		stored = len(report.Thumbnails)
		out.thumbnails(report)
	}

	out.stats(stats)
	finalizer.RecordSessionStats(metadata.SessionStats{
		Searches:   stats.Searches,
		Hits:       stats.Hits,
		Fetches:    stats.Fetches,
		Coalesced:  stats.Coalesced,
		Superseded: stats.Superseded,
		Failures:   stats.Failures,
		Thumbnails: stored,
		Duration:   time.Since(startedAt),
	})

	return stats, nil
}

// dedupeConsecutive drops every term equal to its predecessor.
func dedupeConsecutive(terms []string) []string {
	deduped := make([]string, 0, len(terms))
	for i, term := range terms {
		if i > 0 && term == terms[i-1] {
			continue
		}
		deduped = append(deduped, term)
	}
	return deduped
}

// printer serializes output from callbacks, which run on fetch goroutines
// as well as on the submitting one.
type printer struct {
	mu        sync.Mutex
	w         io.Writer
	delivered []search.Page
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w}
}

func (p *printer) deliver(term string, results *search.ResultList) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if results == nil {
		fmt.Fprintf(p.w, "%s: no results (fetch failed)\n", term)
		return
	}
	fmt.Fprintf(p.w, "%s: %d %s\n", term, results.Len(), plural(results.Len(), "result", "results"))
	for _, page := range results.Pages {
		fmt.Fprintf(p.w, "  %s - %s\n", page.Title, page.URL)
	}
	p.delivered = append(p.delivered, results.Pages...)
}

func (p *printer) deliveredPages() []search.Page {
	p.mu.Lock()
	defer p.mu.Unlock()

	pages := make([]search.Page, len(p.delivered))
	copy(pages, p.delivered)
	return pages
}

func (p *printer) thumbnails(report thumbnail.Report) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.w, "thumbnails: %d stored (%d downloaded), %d missing\n",
		len(report.Thumbnails), report.Downloaded(), len(report.Missing))
}

func (p *printer) stats(s search.Stats) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fields := []string{
		fmt.Sprintf("searches=%d", s.Searches),
		fmt.Sprintf("hits=%d", s.Hits),
		fmt.Sprintf("fetches=%d", s.Fetches),
		fmt.Sprintf("coalesced=%d", s.Coalesced),
		fmt.Sprintf("superseded=%d", s.Superseded),
		fmt.Sprintf("purged=%d", s.Purged),
		fmt.Sprintf("failures=%d", s.Failures),
	}
	fmt.Fprintf(p.w, "stats: %s\n", strings.Join(fields, " "))
}

func plural(n int, one string, many string) string {
	if n == 1 {
		return one
	}
	return many
}
