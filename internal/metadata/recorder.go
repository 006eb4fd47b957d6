package metadata

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

/*
Metadata Collected
- Search lifecycle events (hit, miss, coalesced, superseded, ...)
- Fetch URLs, HTTP status codes and durations
- Thumbnail artifacts written to disk
- Failures, classified by ErrorCause

Metadata is write-only.
No component may read metadata to influence search decisions.
*/

/*
Recorder writes structured events to a slog.Logger.
It must not:
- perform I/O decisions
- affect control flow
Every record carries the session id so that output from several runs
sharing one log stream can be told apart.
*/
type Recorder struct {
	logger    *slog.Logger
	sessionID string
}

// NewRecorder returns a Recorder bound to logger. A nil logger uses slog.Default().
func NewRecorder(logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	return &Recorder{
		logger:    logger.With(slog.String("session", id)),
		sessionID: id,
	}
}

func (r *Recorder) SessionID() string {
	return r.sessionID
}

func (r *Recorder) RecordSearch(event string, term string, attrs []Attribute) {
	args := append([]slog.Attr{
		slog.String("event", event),
		slog.String(string(AttrTerm), term),
	}, toSlogAttrs(attrs)...)
	r.logger.LogAttrs(context.Background(), slog.LevelDebug, "search", args...)
}

func (r *Recorder) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	errorString string,
	attrs []Attribute,
) {
	args := append([]slog.Attr{
		slog.Time(string(AttrTime), observedAt),
		slog.String("package", packageName),
		slog.String("action", action),
		slog.String("cause", cause.String()),
		slog.String("error", errorString),
	}, toSlogAttrs(attrs)...)
	r.logger.LogAttrs(context.Background(), slog.LevelWarn, "error", args...)
}

func (r *Recorder) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	retryCount int,
) {
	r.logger.LogAttrs(context.Background(), slog.LevelInfo, "fetch",
		slog.String(string(AttrURL), fetchUrl),
		slog.Int(string(AttrHTTPStatus), httpStatus),
		slog.Duration("duration", duration),
		slog.Int("retry_count", retryCount),
	)
}

func (r *Recorder) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {
	args := append([]slog.Attr{
		slog.String("kind", string(kind)),
		slog.String(string(AttrWritePath), path),
	}, toSlogAttrs(attrs)...)
	r.logger.LogAttrs(context.Background(), slog.LevelInfo, "artifact", args...)
}

/*
RecordSessionStats records a terminal, derived summary of a session.

Contract:
  - MUST be called at most once per session, after the cache went idle.
  - The provided stats MUST be derived from cache state,
    not accumulated incrementally via the recorder.
*/
func (r *Recorder) RecordSessionStats(stats SessionStats) {
	r.logger.LogAttrs(context.Background(), slog.LevelInfo, "session",
		slog.Int("searches", stats.Searches),
		slog.Int("hits", stats.Hits),
		slog.Int("fetches", stats.Fetches),
		slog.Int("coalesced", stats.Coalesced),
		slog.Int("superseded", stats.Superseded),
		slog.Int("failures", stats.Failures),
		slog.Int("thumbnails", stats.Thumbnails),
		slog.Int64("duration_ms", stats.Duration.Milliseconds()),
	)
}

func toSlogAttrs(attrs []Attribute) []slog.Attr {
	out := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, slog.String(string(a.Key), a.Value))
	}
	return out
}

type MetadataSink interface {
	RecordSearch(event string, term string, attrs []Attribute)

	RecordError(
		observedAt time.Time,
		packageName string,
		action string,
		cause ErrorCause,
		details string,
		attrs []Attribute,
	)

	RecordFetch(
		fetchUrl string,
		httpStatus int,
		duration time.Duration,
		retryCount int,
	)

	RecordArtifact(kind ArtifactKind, path string, attrs []Attribute)
}

type SessionFinalizer interface {
	RecordSessionStats(stats SessionStats)
}

// NoopSink implements MetadataSink and does nothing.
// Callers (or tests) decide whether to inject a Recorder or a NoopSink.

type NoopSink struct{}

func (n *NoopSink) RecordSearch(event string, term string, attrs []Attribute) {}

func (n *NoopSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	errorString string,
	attrs []Attribute,
) {
}

func (n *NoopSink) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	retryCount int,
) {
}

func (n *NoopSink) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {}

func (n *NoopSink) RecordSessionStats(stats SessionStats) {}
