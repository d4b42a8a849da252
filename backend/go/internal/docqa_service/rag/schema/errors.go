package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat is returned when no loader handles a file's extension.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrIngestionFailed wraps any failure between loading and the vector write.
	ErrIngestionFailed = errors.New("ingestion failed")
	// ErrRetrievalFailed wraps query embedding or vector search failures.
	ErrRetrievalFailed = errors.New("retrieval failed")
	// ErrNotFound is returned when a document ID does not exist in the blob store.
	ErrNotFound = errors.New("document not found")
)

// UnsupportedFormatError names the extension that was rejected.
type UnsupportedFormatError struct {
	Extension string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Extension == "" {
		return "unsupported document format: file has no extension"
	}
	return fmt.Sprintf("unsupported document format %q", e.Extension)
}

func (e *UnsupportedFormatError) Unwrap() error { return ErrUnsupportedFormat }

// Ingestion stages.
const (
	StageLoad  = "load"
	StageSplit = "split"
	StageEmbed = "embed"
	StageWrite = "write"
)

// IngestionError is returned by the ingestion pipeline. Both ErrIngestionFailed and the
// underlying cause are reachable through errors.Is.
type IngestionError struct {
	DocumentID string
	Stage      string
	Err        error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingestion of document %s failed at %s: %v", e.DocumentID, e.Stage, e.Err)
}

func (e *IngestionError) Unwrap() []error { return []error{ErrIngestionFailed, e.Err} }

// RetrievalError is returned before an answer stream exists.
type RetrievalError struct {
	Stage string // "embed" or "search"
	Err   error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval failed at %s: %v", e.Stage, e.Err)
}

func (e *RetrievalError) Unwrap() []error { return []error{ErrRetrievalFailed, e.Err} }

// NotFoundError names the missing document.
type NotFoundError struct {
	DocumentID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("document %s not found", e.DocumentID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }
