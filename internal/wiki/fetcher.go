package wiki

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rohmanhakim/wikisearch/internal/metadata"
	"github.com/rohmanhakim/wikisearch/internal/search"
	"github.com/rohmanhakim/wikisearch/pkg/failure"
	"github.com/rohmanhakim/wikisearch/pkg/limiter"
	"github.com/rohmanhakim/wikisearch/pkg/retry"
)

/*
Responsibilities

- Build the prefix query for a term
- Perform HTTP requests politely (per-host delay, backoff, Retry-After)
- Retry transient failures
- Classify responses and parse result pages

Every request is recorded with RecordFetch; every failure with RecordError.
*/

// maxBodyBytes bounds how much of an API response is read.
const maxBodyBytes = 8 << 20

type Client struct {
	metadataSink metadata.MetadataSink
	httpClient   *http.Client
	rateLimiter  limiter.RateLimiter
	queryParam   QueryParam
	retryParam   retry.RetryParam
}

func NewClient(
	metadataSink metadata.MetadataSink,
	httpClient *http.Client,
	rateLimiter limiter.RateLimiter,
	queryParam QueryParam,
	retryParam retry.RetryParam,
) *Client {
	if metadataSink == nil {
		metadataSink = &metadata.NoopSink{}
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if rateLimiter == nil {
		rateLimiter = limiter.NewConcurrentRateLimiter()
	}
	return &Client{
		metadataSink: metadataSink,
		httpClient:   httpClient,
		rateLimiter:  rateLimiter,
		queryParam:   queryParam,
		retryParam:   retryParam,
	}
}

// Fetch runs the prefix query for term. The returned list is never nil
// when the error is nil.
func (c *Client) Fetch(ctx context.Context, term string) (*search.ResultList, failure.ClassifiedError) {
	callerMethod := "Client.Fetch"
	fetchUrl := c.queryParam.BuildURL(term)
	startTime := time.Now()

	result := retry.Retry(ctx, c.retryParam, func() (response, failure.ClassifiedError) {
		return c.performFetch(ctx, fetchUrl)
	})

	duration := time.Since(startTime)
	retryCount := max(result.Attempts()-1, 0)

	if result.IsFailure() {
		err := result.Err()
		c.metadataSink.RecordFetch(fetchUrl.String(), statusOf(err), duration, retryCount)
		c.recordError(callerMethod, term, fetchUrl, err)
		return nil, err
	}

	resp := result.Value()
	c.metadataSink.RecordFetch(fetchUrl.String(), resp.statusCode, duration, retryCount)

	results, skipped, parseErr := parseResults(resp.body)
	if parseErr != nil {
		parseErr.HTTPStatus = resp.statusCode
		c.recordError(callerMethod, term, fetchUrl, parseErr)
		return nil, parseErr
	}
	for _, s := range skipped {
		c.metadataSink.RecordError(
			time.Now(),
			"wiki",
			callerMethod,
			metadata.CauseContentInvalid,
			fmt.Sprintf("skipped page: %s", s.reason),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrTerm, term),
				metadata.NewAttr(metadata.AttrPageID, s.key),
			},
		)
	}

	return results, nil
}

func (c *Client) recordError(callerMethod string, term string, fetchUrl url.URL, err failure.ClassifiedError) {
	cause := metadata.CauseUnknown
	var retryErr *retry.RetryError
	var wikiErr *WikiError
	if errors.As(err, &retryErr) {
		cause = metadata.CauseRetryFailure
	} else if errors.As(err, &wikiErr) {
		cause = mapWikiErrorToMetadataCause(wikiErr)
	}

	attrs := []metadata.Attribute{
		metadata.NewAttr(metadata.AttrTerm, term),
		metadata.NewAttr(metadata.AttrURL, fetchUrl.String()),
	}
	if status := statusOf(err); status != 0 {
		attrs = append(attrs, metadata.NewAttr(metadata.AttrHTTPStatus, strconv.Itoa(status)))
	}

	c.metadataSink.RecordError(time.Now(), "wiki", callerMethod, cause, err.Error(), attrs)
}

func (c *Client) performFetch(ctx context.Context, fetchUrl url.URL) (response, failure.ClassifiedError) {
	host := fetchUrl.Host
	if err := c.rateLimiter.Wait(ctx, host); err != nil {
		return response{}, &WikiError{
			Message:   fmt.Sprintf("waiting for %s: %v", host, err),
			Retryable: false,
			Cause:     ErrCauseTransportFailure,
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchUrl.String(), nil)
	if err != nil {
		return response{}, &WikiError{
			Message:   fmt.Sprintf("failed to create request: %v", err),
			Retryable: false,
			Cause:     ErrCauseTransportFailure,
		}
	}
	req.Header.Set("User-Agent", c.queryParam.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	c.rateLimiter.MarkLastFetchAsNow(host)
	if err != nil {
		return response{}, &WikiError{
			Message:   fmt.Sprintf("request failed: %v", err),
			Retryable: ctx.Err() == nil,
			Cause:     ErrCauseTransportFailure,
		}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		c.applyRetryAfter(host, resp.Header.Get("Retry-After"))
		c.rateLimiter.Backoff(host)
		return response{}, &WikiError{
			Message:    "rate limited (429)",
			Retryable:  true,
			Cause:      ErrCauseRateLimited,
			HTTPStatus: resp.StatusCode,
		}

	case resp.StatusCode >= 500:
		c.applyRetryAfter(host, resp.Header.Get("Retry-After"))
		c.rateLimiter.Backoff(host)
		return response{}, &WikiError{
			Message:    fmt.Sprintf("server error: %d", resp.StatusCode),
			Retryable:  true,
			Cause:      ErrCauseServerError,
			HTTPStatus: resp.StatusCode,
		}

	case resp.StatusCode >= 400:
		return response{}, &WikiError{
			Message:    fmt.Sprintf("client error: %d", resp.StatusCode),
			Retryable:  false,
			Cause:      ErrCauseClientError,
			HTTPStatus: resp.StatusCode,
		}

	case resp.StatusCode >= 300:
		return response{}, &WikiError{
			Message:    fmt.Sprintf("unexpected redirect: %d", resp.StatusCode),
			Retryable:  false,
			Cause:      ErrCauseClientError,
			HTTPStatus: resp.StatusCode,
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return response{}, &WikiError{
			Message:    fmt.Sprintf("failed to read response body: %v", err),
			Retryable:  true,
			Cause:      ErrCauseTransportFailure,
			HTTPStatus: resp.StatusCode,
		}
	}

	c.rateLimiter.ResetBackoff(host)
	return response{statusCode: resp.StatusCode, body: body}, nil
}

func (c *Client) applyRetryAfter(host string, value string) {
	if delay, ok := parseRetryAfter(value, time.Now()); ok {
		c.rateLimiter.SetServerDelay(host, delay)
	}
}

// parseRetryAfter accepts both forms of the header: delay seconds and an HTTP date.
func parseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d, true
		}
		return 0, true
	}
	return 0, false
}

func statusOf(err error) int {
	var wikiErr *WikiError
	if errors.As(err, &wikiErr) {
		return wikiErr.HTTPStatus
	}
	return 0
}
