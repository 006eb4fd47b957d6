package metadata

import (
	"time"
)

/*
SessionStats
  - Represents a terminal, derived summary of a search session
  - Contains only aggregate counts and durations
  - Is computed by the caller from cache statistics once the session is idle
  - Is recorded exactly once
  - Must not influence searching, fetching or thumbnail downloads
*/
type SessionStats struct {
	Searches   int
	Hits       int
	Fetches    int
	Coalesced  int
	Superseded int
	Failures   int
	Thumbnails int
	Duration   time.Duration
}

type ArtifactKind string

const (
	ArtifactThumbnail ArtifactKind = "thumbnail"
)

/*
	ErrorCause is a closed, canonical classification used exclusively for
	observability (logging, reporting).

	Rules:
	 - ErrorCause MUST NOT influence control flow.
	 - ErrorCause MUST NOT be used for retry or abort decisions.
	 - ErrorCause values have stable, package-agnostic semantics.
	 - Packages MAY map their local errors to ErrorCause,
	   but MUST NOT invent new meanings.
	Non-goals:
	 - ErrorCause does not encode severity.
	 - ErrorCause does not imply retryability.

If a failure does not clearly match a defined cause, CauseUnknown MUST be used.
*/
type ErrorCause int

/*
Canonical ErrorCause Table

# CauseUnknown

Meaning:
  - The failure does not map cleanly to any known category.

# CauseNetworkFailure

Meaning:
  - Failure caused by network transport or remote availability.

Examples:
  - TCP timeouts
  - DNS resolution failures
  - HTTP 5xx from the API

# CausePolicyDisallow

Meaning:
  - The remote service refused the request by policy.

Examples:
  - HTTP 429 rate limiting
  - HTTP 403 / 401

# CauseContentInvalid

Meaning:
  - A response was received but could not be used.

Examples:
  - Malformed JSON from the search API
  - A single result page with an unusable shape
  - Thumbnail larger than the configured limit

# CauseStorageFailure

Meaning:
  - Failure while persisting artifacts.

Examples:
  - Disk full
  - Write permission errors

# CauseRetryFailure

Meaning:
  - All retry attempts were spent without success.
*/
const (
	CauseUnknown ErrorCause = iota
	CauseNetworkFailure
	CausePolicyDisallow
	CauseContentInvalid
	CauseStorageFailure
	CauseRetryFailure
)

func (c ErrorCause) String() string {
	switch c {
	case CauseNetworkFailure:
		return "network_failure"
	case CausePolicyDisallow:
		return "policy_disallow"
	case CauseContentInvalid:
		return "content_invalid"
	case CauseStorageFailure:
		return "storage_failure"
	case CauseRetryFailure:
		return "retry_failure"
	default:
		return "unknown"
	}
}

type ErrorRecord struct {
	PackageName string
	Action      string
	Cause       ErrorCause
	ErrorString string
	ObservedAt  time.Time
	Attrs       []Attribute
}

type Attribute struct {
	Key   AttributeKey
	Value string
}

func NewAttr(key AttributeKey, val string) Attribute {
	return Attribute{
		Key:   key,
		Value: val,
	}
}

type AttributeKey string

const (
	AttrTime       AttributeKey = "time"
	AttrTerm       AttributeKey = "term"
	AttrURL        AttributeKey = "url"
	AttrHost       AttributeKey = "host"
	AttrPath       AttributeKey = "path"
	AttrField      AttributeKey = "field"
	AttrHTTPStatus AttributeKey = "http_status"
	AttrCount      AttributeKey = "count"
	AttrPageID     AttributeKey = "page_id"
	AttrAssetURL   AttributeKey = "asset_url"
	AttrWritePath  AttributeKey = "write_path"
	AttrError      AttributeKey = "error"
)
