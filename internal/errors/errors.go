package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a reader error code.
type ErrorCode string

const (
	ErrInvalidRequest   ErrorCode = "INVALID_REQUEST"    // 400
	ErrImportRejected   ErrorCode = "IMPORT_REJECTED"    // 400
	ErrNotFound         ErrorCode = "NOT_FOUND"          // 404
	ErrFeedNotFound     ErrorCode = "FEED_NOT_FOUND"     // 404
	ErrCancelled        ErrorCode = "CANCELLED"          // 499
	ErrInternal         ErrorCode = "INTERNAL"           // 500
	ErrStoreReadFailed  ErrorCode = "STORE_READ_FAILED"  // 500
	ErrStoreWriteFailed ErrorCode = "STORE_WRITE_FAILED" // 500
	ErrFetchFailed      ErrorCode = "FETCH_FAILED"       // 502
	ErrStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"  // 503
)

// ReaderError represents a structured error with code, status, and details.
type ReaderError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	cause   error
}

// Error implements the error interface.
func (e *ReaderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *ReaderError) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *ReaderError {
	return &ReaderError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewImportRejected creates a 400 error for an import payload that failed
// validation. Nothing has been mutated when this is returned.
func NewImportRejected(reason string) *ReaderError {
	return &ReaderError{
		Code:    ErrImportRejected,
		Status:  400,
		Message: fmt.Sprintf("import rejected: %s", reason),
		Details: map[string]any{"reason": reason},
	}
}

// NewNotFound creates a 404 error for an entity that does not exist.
func NewNotFound(kind, id string) *ReaderError {
	return &ReaderError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, id),
		Details: map[string]any{"kind": kind, "id": id},
	}
}

// NewFeedNotFound creates a 404 error for a refresh against an unknown feed.
func NewFeedNotFound(id string) *ReaderError {
	return &ReaderError{
		Code:    ErrFeedNotFound,
		Status:  404,
		Message: fmt.Sprintf("feed not found: %s", id),
		Details: map[string]any{"id": id},
	}
}

// NewCancelled creates a 499 error when an operation is cancelled by its context.
func NewCancelled(operation string) *ReaderError {
	return &ReaderError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", operation),
		Details: map[string]any{"operation": operation},
	}
}

// NewFetchFailed creates a 502 error for a network or parse failure in the
// feed fetch adapter.
func NewFetchFailed(url string, err error) *ReaderError {
	msg := "failed to fetch feed"
	if err != nil {
		msg = err.Error()
	}
	return &ReaderError{
		Code:    ErrFetchFailed,
		Status:  502,
		Message: msg,
		Details: map[string]any{"url": url},
		cause:   err,
	}
}

// NewStoreUnavailable creates a 503 error when durable storage cannot be opened.
func NewStoreUnavailable(err error) *ReaderError {
	return &ReaderError{
		Code:    ErrStoreUnavailable,
		Status:  503,
		Message: fmt.Sprintf("store unavailable: %v", err),
		cause:   err,
	}
}

// NewStoreReadFailed creates a 500 error for a failed read of a collection.
func NewStoreReadFailed(collection string, err error) *ReaderError {
	return &ReaderError{
		Code:    ErrStoreReadFailed,
		Status:  500,
		Message: fmt.Sprintf("read %s: %v", collection, err),
		Details: map[string]any{"collection": collection},
		cause:   err,
	}
}

// NewStoreWriteFailed creates a 500 error for a failed write of a collection.
func NewStoreWriteFailed(collection string, err error) *ReaderError {
	return &ReaderError{
		Code:    ErrStoreWriteFailed,
		Status:  500,
		Message: fmt.Sprintf("write %s: %v", collection, err),
		Details: map[string]any{"collection": collection},
		cause:   err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The message stays generic; the original error is kept in Details for logging.
func NewInternal(err error) *ReaderError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &ReaderError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
		cause:   err,
	}
}

// Is checks if err (or anything it wraps) is a ReaderError with the given code.
func Is(err error, code ErrorCode) bool {
	var rErr *ReaderError
	if stderrors.As(err, &rErr) {
		return rErr.Code == code
	}
	return false
}

// CodeOf returns the code of a ReaderError, or ErrInternal for any other error.
func CodeOf(err error) ErrorCode {
	var rErr *ReaderError
	if stderrors.As(err, &rErr) {
		return rErr.Code
	}
	return ErrInternal
}
