package search

import (
	"fmt"

	"github.com/rohmanhakim/wikisearch/pkg/failure"
)

type SearchErrorCause string

const (
	ErrCauseFetchPanic SearchErrorCause = "fetch panicked"
	ErrCauseNoResults  SearchErrorCause = "fetch returned no result list"
)

type SearchError struct {
	Message string
	Cause   SearchErrorCause
}

func (e *SearchError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("search error: %s", e.Cause)
	}
	return fmt.Sprintf("search error: %s: %s", e.Cause, e.Message)
}

func (e *SearchError) Severity() failure.Severity {
	return failure.SeverityRecoverable
}
