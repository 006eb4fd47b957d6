package thumbnail

import (
	"fmt"

	"github.com/rohmanhakim/wikisearch/internal/metadata"
	"github.com/rohmanhakim/wikisearch/pkg/failure"
)

type ThumbnailErrorCause string

const (
	ErrCauseInvalidURL      ThumbnailErrorCause = "invalid thumbnail url"
	ErrCauseDownloadFailure ThumbnailErrorCause = "download failure"
	ErrCauseWriteFailure    ThumbnailErrorCause = "write failure"
	ErrCauseDiskFull        ThumbnailErrorCause = "disk full"
	ErrCauseHashFailure     ThumbnailErrorCause = "hash failure"
	ErrCauseTooLarge        ThumbnailErrorCause = "too large"
)

type ThumbnailError struct {
	Message    string
	Retryable  bool
	Cause      ThumbnailErrorCause
	HTTPStatus int
}

func (e *ThumbnailError) Error() string {
	return fmt.Sprintf("thumbnail error: %s: %s", e.Cause, e.Message)
}

func (e *ThumbnailError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *ThumbnailError) IsRetryable() bool {
	return e.Retryable
}

// mapThumbnailErrorToMetadataCause maps thumbnail-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapThumbnailErrorToMetadataCause(err *ThumbnailError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseDownloadFailure:
		if err.HTTPStatus == 429 || err.HTTPStatus == 403 {
			return metadata.CausePolicyDisallow
		}
		return metadata.CauseNetworkFailure
	case ErrCauseWriteFailure, ErrCauseDiskFull:
		return metadata.CauseStorageFailure
	case ErrCauseInvalidURL, ErrCauseTooLarge:
		return metadata.CauseContentInvalid
	default:
		return metadata.CauseUnknown
	}
}
