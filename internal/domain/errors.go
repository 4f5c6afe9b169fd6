package domain

import "errors"

// Sentinel errors for the ingestion and query pipelines. External failures
// (embedding provider, extraction, search transport) are wrapped with their
// cause instead and checked with errors.Is/As where needed.
var (
	// ErrInvalidInput marks caller input that is empty after trimming.
	// Never retried; the caller must fix the input.
	ErrInvalidInput = errors.New("input text is empty")

	// ErrInvalidQuery marks a missing or empty query string.
	ErrInvalidQuery = errors.New("query must be a non-empty string")

	// ErrIndexNotFound is returned by SearchStore.GetIndex when the named
	// index does not exist on the backend.
	ErrIndexNotFound = errors.New("index not found")

	// ErrIndexUnavailable means ingestion has not completed successfully;
	// surfaced to callers as a temporary service-unavailable condition.
	ErrIndexUnavailable = errors.New("search index is not available")

	// ErrDocumentNotFound is returned by an Extractor when the document
	// source cannot be located.
	ErrDocumentNotFound = errors.New("document not found")
)
