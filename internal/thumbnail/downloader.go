package thumbnail

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/rohmanhakim/wikisearch/internal/metadata"
	"github.com/rohmanhakim/wikisearch/internal/search"
	"github.com/rohmanhakim/wikisearch/pkg/failure"
	"github.com/rohmanhakim/wikisearch/pkg/retry"
	"github.com/rohmanhakim/wikisearch/pkg/urlutil"
)

/*
Responsibilities
- Resolve thumbnail URLs (protocol-relative URLs default to https)
- Serve thumbnails from the disk store when present
- Download missing thumbnails, paced by a token bucket
- Share one download among concurrent callers for the same URL

Policies
- Preserve original formats
- Stable file names derived from the URL
- Missing thumbnails reported, not fatal
*/
type Downloader struct {
	metadataSink  metadata.MetadataSink
	httpClient    *http.Client
	store         Store
	limiter       *rate.Limiter
	downloadParam DownloadParam
	retryParam    retry.RetryParam
	group         singleflight.Group
}

// NewDownloader creates a Downloader. A nil limiter disables pacing.
func NewDownloader(
	metadataSink metadata.MetadataSink,
	httpClient *http.Client,
	store Store,
	limiter *rate.Limiter,
	downloadParam DownloadParam,
	retryParam retry.RetryParam,
) *Downloader {
	if metadataSink == nil {
		metadataSink = &metadata.NoopSink{}
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &Downloader{
		metadataSink:  metadataSink,
		httpClient:    httpClient,
		store:         store,
		limiter:       limiter,
		downloadParam: downloadParam,
		retryParam:    retryParam,
	}
}

// Fetch returns the thumbnail at rawURL, from disk when cached.
func (d *Downloader) Fetch(ctx context.Context, rawURL string) (Thumbnail, failure.ClassifiedError) {
	callerMethod := "Downloader.Fetch"

	canonical, err := urlutil.ResolveResource(rawURL, "https")
	if err != nil {
		thumbErr := &ThumbnailError{
			Message:   fmt.Sprintf("%q: %v", rawURL, err),
			Retryable: false,
			Cause:     ErrCauseInvalidURL,
		}
		d.recordError(callerMethod, rawURL, thumbErr)
		return Thumbnail{}, thumbErr
	}
	key := canonical.String()

	v, sfErr, _ := d.group.Do(key, func() (any, error) {
		thumb, fetchErr := d.fetch(ctx, canonical)
		if fetchErr != nil {
			return nil, fetchErr
		}
		return thumb, nil
	})
	if sfErr != nil {
		var classified failure.ClassifiedError
		if !errors.As(sfErr, &classified) {
			classified = &ThumbnailError{Message: sfErr.Error(), Cause: ErrCauseDownloadFailure}
		}
		d.recordError(callerMethod, key, classified)
		return Thumbnail{}, classified
	}
	return v.(Thumbnail), nil
}

func (d *Downloader) fetch(ctx context.Context, thumbURL url.URL) (Thumbnail, failure.ClassifiedError) {
	key := thumbURL.String()
	if data, path, ok := d.store.Load(key); ok {
		return NewThumbnail(key, path, data, true), nil
	}

	startTime := time.Now()
	result := retry.Retry(ctx, d.retryParam, func() (download, failure.ClassifiedError) {
		return d.performDownload(ctx, thumbURL)
	})
	retryCount := max(result.Attempts()-1, 0)

	if result.IsFailure() {
		d.metadataSink.RecordFetch(key, statusOf(result.Err()), time.Since(startTime), retryCount)
		return Thumbnail{}, result.Err()
	}
	dl := result.Value()
	d.metadataSink.RecordFetch(key, dl.statusCode, time.Since(startTime), retryCount)

	path, saveErr := d.store.Save(key, dl.body)
	if saveErr != nil {
		return Thumbnail{}, saveErr
	}
	d.metadataSink.RecordArtifact(
		metadata.ArtifactThumbnail,
		path,
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrAssetURL, key),
		},
	)
	return NewThumbnail(key, path, dl.body, false), nil
}

// FetchAll fetches the thumbnails of every page that has one, with at most
// Concurrency downloads running at once. Failures end up in Report.Missing.
func (d *Downloader) FetchAll(ctx context.Context, pages []search.Page) Report {
	report := Report{
		Thumbnails: make(map[string]Thumbnail),
		Missing:    make(map[string]ThumbnailErrorCause),
	}

	seen := make(map[string]bool)
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(d.downloadParam.Concurrency())

	for _, page := range pages {
		rawURL := page.ThumbnailURL
		if rawURL == "" || seen[rawURL] {
			continue
		}
		seen[rawURL] = true

		g.Go(func() error {
			thumb, err := d.Fetch(ctx, rawURL)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Missing[rawURL] = causeOf(err)
				return nil
			}
			report.Thumbnails[rawURL] = thumb
			return nil
		})
	}
	_ = g.Wait()

	return report
}

type download struct {
	statusCode int
	body       []byte
}

func (d *Downloader) performDownload(ctx context.Context, thumbURL url.URL) (download, failure.ClassifiedError) {
	if err := d.limiter.Wait(ctx); err != nil {
		return download{}, &ThumbnailError{
			Message:   fmt.Sprintf("waiting for download slot: %v", err),
			Retryable: false,
			Cause:     ErrCauseDownloadFailure,
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, thumbURL.String(), nil)
	if err != nil {
		return download{}, &ThumbnailError{
			Message:   fmt.Sprintf("failed to create request: %v", err),
			Retryable: false,
			Cause:     ErrCauseDownloadFailure,
		}
	}
	req.Header.Set("User-Agent", d.downloadParam.UserAgent())
	req.Header.Set("Accept", "image/*")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return download{}, &ThumbnailError{
			Message:   fmt.Sprintf("request failed: %v", err),
			Retryable: ctx.Err() == nil,
			Cause:     ErrCauseDownloadFailure,
		}
	}
	defer resp.Body.Close()

	maxSize := d.downloadParam.MaxSize()
	if maxSize > 0 && resp.ContentLength > maxSize {
		return download{}, &ThumbnailError{
			Message:    fmt.Sprintf("%d bytes (max %d)", resp.ContentLength, maxSize),
			Retryable:  false,
			Cause:      ErrCauseTooLarge,
			HTTPStatus: resp.StatusCode,
		}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return download{}, &ThumbnailError{
			Message:    fmt.Sprintf("status %d", resp.StatusCode),
			Retryable:  true,
			Cause:      ErrCauseDownloadFailure,
			HTTPStatus: resp.StatusCode,
		}
	case resp.StatusCode >= 300:
		return download{}, &ThumbnailError{
			Message:    fmt.Sprintf("status %d", resp.StatusCode),
			Retryable:  false,
			Cause:      ErrCauseDownloadFailure,
			HTTPStatus: resp.StatusCode,
		}
	}

	reader := io.Reader(resp.Body)
	if maxSize > 0 {
		reader = io.LimitReader(resp.Body, maxSize+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return download{}, &ThumbnailError{
			Message:    fmt.Sprintf("failed to read response body: %v", err),
			Retryable:  true,
			Cause:      ErrCauseDownloadFailure,
			HTTPStatus: resp.StatusCode,
		}
	}
	if maxSize > 0 && int64(len(body)) > maxSize {
		return download{}, &ThumbnailError{
			Message:    fmt.Sprintf("exceeded max %d bytes", maxSize),
			Retryable:  false,
			Cause:      ErrCauseTooLarge,
			HTTPStatus: resp.StatusCode,
		}
	}

	return download{statusCode: resp.StatusCode, body: body}, nil
}

func (d *Downloader) recordError(callerMethod string, thumbURL string, err failure.ClassifiedError) {
	cause := metadata.CauseUnknown
	var retryErr *retry.RetryError
	var thumbErr *ThumbnailError
	switch {
	case errors.As(err, &retryErr):
		cause = metadata.CauseRetryFailure
	case errors.As(err, &thumbErr):
		cause = mapThumbnailErrorToMetadataCause(thumbErr)
	}

	d.metadataSink.RecordError(
		time.Now(),
		"thumbnail",
		callerMethod,
		cause,
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrAssetURL, thumbURL),
		},
	)
}

func causeOf(err error) ThumbnailErrorCause {
	var thumbErr *ThumbnailError
	if errors.As(err, &thumbErr) {
		return thumbErr.Cause
	}
	return ErrCauseDownloadFailure
}

func statusOf(err error) int {
	var thumbErr *ThumbnailError
	if errors.As(err, &thumbErr) {
		return thumbErr.HTTPStatus
	}
	return 0
}
