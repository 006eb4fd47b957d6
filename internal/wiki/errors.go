package wiki

import (
	"fmt"

	"github.com/rohmanhakim/wikisearch/internal/metadata"
	"github.com/rohmanhakim/wikisearch/pkg/failure"
)

type WikiErrorCause string

const (
	ErrCauseTransportFailure  WikiErrorCause = "transport failure"
	ErrCauseMalformedResponse WikiErrorCause = "malformed response"
	ErrCauseRateLimited       WikiErrorCause = "rate limited"
	ErrCauseServerError       WikiErrorCause = "server error"
	ErrCauseClientError       WikiErrorCause = "client error"
)

type WikiError struct {
	Message    string
	Retryable  bool
	Cause      WikiErrorCause
	HTTPStatus int
}

func (e *WikiError) Error() string {
	return fmt.Sprintf("wiki error: %s: %s", e.Cause, e.Message)
}

func (e *WikiError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *WikiError) IsRetryable() bool {
	return e.Retryable
}

// mapWikiErrorToMetadataCause maps wiki-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapWikiErrorToMetadataCause(err *WikiError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseTransportFailure, ErrCauseServerError:
		return metadata.CauseNetworkFailure
	case ErrCauseRateLimited:
		return metadata.CausePolicyDisallow
	case ErrCauseMalformedResponse:
		return metadata.CauseContentInvalid
	case ErrCauseClientError:
		if err.HTTPStatus == 401 || err.HTTPStatus == 403 {
			return metadata.CausePolicyDisallow
		}
		return metadata.CauseUnknown
	default:
		return metadata.CauseUnknown
	}
}
