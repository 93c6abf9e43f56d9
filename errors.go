package doc2pdf

import (
	"errors"
	"fmt"
)

// Failure classes for conversion operations. Every error returned by the
// core wraps exactly one of these, so callers can classify with errors.Is
// without parsing messages.
var (
	// ErrValidation covers bad extensions, content/extension mismatches,
	// and unreadable or unstable input files.
	ErrValidation = errors.New("input validation failed")

	// ErrEngineUnavailable is returned when an engine binary is missing or
	// cannot be spawned.
	ErrEngineUnavailable = errors.New("conversion engine unavailable")

	// ErrEngineFailed is returned when an engine exits non-zero.
	ErrEngineFailed = errors.New("conversion engine failed")

	// ErrTimeout is returned when an engine exceeds its timeout.
	ErrTimeout = errors.New("conversion timed out")

	// ErrOutputMissing is returned when an engine exits cleanly but the
	// expected PDF is absent or empty.
	ErrOutputMissing = errors.New("conversion produced no output")

	// ErrScratch marks unrecoverable scratch-workspace faults, such as the
	// temp directory being unwritable. Distinct from per-document failures
	// because retrying with a different file will not help.
	ErrScratch = errors.New("scratch workspace failure")
)

// DefaultRemedy is the generic hint attached to errors that have no more
// specific suggestion.
const DefaultRemedy = "check the document and try again; if the problem persists, try a different file format"

// ConversionError is the single error type crossing the core boundary.
// Message describes what went wrong; Remedy is a human-actionable hint
// distinct from the raw failure detail. The wrapped error carries the
// failure class and, where available, the underlying cause.
type ConversionError struct {
	Message string
	Remedy  string
	Err     error
}

// Error implements the error interface.
func (e *ConversionError) Error() string { return e.Message }

// Unwrap exposes the failure class (and cause chain) for errors.Is/As.
func (e *ConversionError) Unwrap() error { return e.Err }

// convError builds a ConversionError of the given class. An empty remedy
// falls back to DefaultRemedy.
func convError(class error, remedy, format string, args ...any) *ConversionError {
	if remedy == "" {
		remedy = DefaultRemedy
	}
	return &ConversionError{
		Message: fmt.Sprintf(format, args...),
		Remedy:  remedy,
		Err:     class,
	}
}

// convErrorCause is convError with an underlying cause preserved in the
// wrap chain, after the class sentinel.
func convErrorCause(class, cause error, remedy, format string, args ...any) *ConversionError {
	ce := convError(class, remedy, format, args...)
	if cause != nil {
		ce.Err = fmt.Errorf("%w: %w", class, cause)
	}
	return ce
}

// asConversionError returns err as a *ConversionError, wrapping it into one
// when it is anything else. The validator and engines use this so no raw
// I/O error ever escapes the core.
func asConversionError(err error) *ConversionError {
	var ce *ConversionError
	if errors.As(err, &ce) {
		return ce
	}
	return convErrorCause(ErrValidation, err,
		"the file might be corrupted or in an unsupported format",
		"unexpected failure: %v", err)
}
