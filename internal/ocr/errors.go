package ocr

import (
	"errors"
	"fmt"
	"time"
)

// Common recognition errors. Providers classify their backend failures
// into these so the orchestrator and UI can tell a broken network from a
// bad credential without inspecting provider-specific messages.
var (
	// ErrTransport is returned for network failures and unclassified
	// non-success HTTP statuses.
	ErrTransport = errors.New("OCR provider transport failure")

	// ErrAuthentication is returned for invalid or missing credentials,
	// so callers can suggest reconfiguration instead of a retry.
	ErrAuthentication = errors.New("OCR provider rejected credentials")

	// ErrServiceUnavailable is returned while a remote model is still
	// loading. Usually wrapped in a RetryableError carrying the delay.
	ErrServiceUnavailable = errors.New("OCR service unavailable or warming up")

	// ErrEngineInit is returned when the local recognition engine fails
	// to initialize. Restart the provider before retrying.
	ErrEngineInit = errors.New("local OCR engine initialization failed")

	// ErrInitTimeout is returned when waiting on an in-flight engine
	// initialization exceeds the bounded wait.
	ErrInitTimeout = errors.New("timed out waiting for OCR engine initialization")

	// ErrNoImage is returned for an empty image payload. This is a
	// programming error and propagates to the caller.
	ErrNoImage = errors.New("no image data provided")

	// ErrInvalidImage is returned when the payload cannot be decoded as
	// an image.
	ErrInvalidImage = errors.New("invalid or unsupported image payload")
)

// OCRError wraps errors with context about which operation failed.
type OCRError struct {
	// Op is the operation that failed (e.g., "RecognizeText", "Initialize").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *OCRError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("ocr: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("ocr: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *OCRError) Unwrap() error {
	return e.Err
}

// Is implements error matching for errors.Is.
func (e *OCRError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewOCRError creates a new OCRError with the specified operation and underlying error.
func NewOCRError(op string, err error, details string) *OCRError {
	return &OCRError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// WrapOCRError wraps an error as an OCRError if it isn't already one.
func WrapOCRError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var ocrErr *OCRError
	if errors.As(err, &ocrErr) {
		return err // Already wrapped
	}

	return NewOCRError(op, err, details)
}

// RetryableError carries a suggested delay before the same provider is
// worth trying again, e.g. while a hosted model loads. The orchestrator
// does not block on it; it falls through and leaves the retry to the
// caller.
type RetryableError struct {
	Err        error
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RetryableError) Error() string {
	return fmt.Sprintf("%v (retry after %s)", e.Err, e.RetryAfter)
}

// Unwrap returns the underlying error.
func (e *RetryableError) Unwrap() error {
	return e.Err
}

// RetryAfterHint extracts the suggested retry delay from an error chain,
// returning zero when none is attached.
func RetryAfterHint(err error) time.Duration {
	var re *RetryableError
	if errors.As(err, &re) {
		return re.RetryAfter
	}
	return 0
}
