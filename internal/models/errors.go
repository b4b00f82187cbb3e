package models

import (
	"errors"
	"fmt"
)

// ErrRateLimited signals a retriable rate-limit/server-busy response.
// The HTTP client retries on it; after attempts are exhausted it is
// wrapped in a FetchError.
var ErrRateLimited = errors.New("rate limited")

// UnknownEntityError indicates entity identity or jurisdiction could
// not be resolved. Terminal: aborts the whole orchestration call.
type UnknownEntityError struct {
	Ticker string
}

func (e *UnknownEntityError) Error() string {
	return fmt.Sprintf("unknown entity: %s (no registry entry and no jurisdiction hint)", e.Ticker)
}

// FetchError indicates an outbound provider call failed after retries
// were exhausted. Non-fatal at the component boundary.
type FetchError struct {
	URL        string
	StatusCode int
	Attempts   int
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed after %d attempts (status %d): %s: %v",
		e.Attempts, e.StatusCode, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NoDataError indicates the provider returned an empty result for a
// mandatory component. The component stays stale-unrefreshed.
type NoDataError struct {
	Ticker    string
	Component Component
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("no %s data found for %s", e.Component, e.Ticker)
}

// MalformedFilingError indicates fetched filing content failed a
// sanity/length check, typically a summary page captured instead of
// the full filing. The prior cached narrative remains in place.
type MalformedFilingError struct {
	URL       string
	Length    int
	MinLength int
}

func (e *MalformedFilingError) Error() string {
	return fmt.Sprintf("malformed filing at %s: %d chars, need at least %d",
		e.URL, e.Length, e.MinLength)
}

// IndexingError indicates embedding or vector-store failure during the
// indexing pipeline. The component's freshness record is not advanced
// so the next call retries it.
type IndexingError struct {
	Component Component
	Stage     string // "embed" or "upsert"
	Err       error
}

func (e *IndexingError) Error() string {
	return fmt.Sprintf("indexing %s failed at %s: %v", e.Component, e.Stage, e.Err)
}

func (e *IndexingError) Unwrap() error {
	return e.Err
}
