package leyning

import "errors"

// Common errors for the reading engine.
var (
	// Range and index errors
	ErrInvalidRange     = errors.New("invalid chapter/verse range")
	ErrInvalidWordIndex = errors.New("word index out of range")
	ErrUnknownAliyah    = errors.New("unknown aliyah for reading")

	// Content errors
	ErrContentUnavailable = errors.New("content unavailable")
	ErrUnsortedLabels     = errors.New("timing labels are not non-decreasing")
	ErrReadingNotFound    = errors.New("reading not found")

	// Audio errors
	ErrDecoderInit   = errors.New("audio decoder initialization failed")
	ErrNoSource      = errors.New("reading has no synchronized audio")
	ErrInvalidTrack  = errors.New("invalid track index")
	ErrTrackReleased = errors.New("track has been released")
	ErrInvalidRate   = errors.New("invalid playback rate")

	// Session errors
	ErrAbandonedSelection = errors.New("selection superseded")
	ErrSessionClosed      = errors.New("session has been closed")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")
)

// IsRecoverableError checks if an error is recoverable.
func IsRecoverableError(err error) bool {
	if err == nil {
		return true
	}

	switch {
	case errors.Is(err, ErrInvalidRange),
		errors.Is(err, ErrInvalidConfig),
		errors.Is(err, ErrUnsortedLabels):
		return false
	}

	return true
}

// IsAbandoned reports whether err only signals a superseded selection.
// Such errors are discarded silently.
func IsAbandoned(err error) bool {
	return errors.Is(err, ErrAbandonedSelection)
}

// ErrorSeverity represents the severity of an error.
type ErrorSeverity int

const (
	// SeverityInfo is for informational messages.
	SeverityInfo ErrorSeverity = iota
	// SeverityWarning is for degraded operation, e.g. missing translation.
	SeverityWarning
	// SeverityError is for errors that prevent normal operation.
	SeverityError
	// SeverityCritical is for invariant violations in source data.
	SeverityCritical
)

// String returns the severity name.
func (s ErrorSeverity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Error provides detailed error information.
type Error struct {
	Err       error                  // The underlying error
	Component string                 // Component that generated the error
	Action    string                 // Action being performed when error occurred
	Severity  ErrorSeverity          // Severity of the error
	Context   map[string]interface{} // Additional context
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return e.Component + ": " + e.Action + ": " + e.Err.Error()
	}
	return "unknown leyning error"
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsRecoverable checks if the error is recoverable.
func (e *Error) IsRecoverable() bool {
	return IsRecoverableError(e.Err)
}

// NewError creates a new error with context.
func NewError(err error, component, action string) *Error {
	return &Error{
		Err:       err,
		Component: component,
		Action:    action,
		Severity:  SeverityError,
		Context:   make(map[string]interface{}),
	}
}

// WithSeverity sets the error severity.
func (e *Error) WithSeverity(severity ErrorSeverity) *Error {
	e.Severity = severity
	return e
}

// WithContext adds context to the error.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// KeyVals flattens the error for structured logging.
func (e *Error) KeyVals() []interface{} {
	kv := []interface{}{"component", e.Component, "action", e.Action, "severity", e.Severity.String(), "err", e.Err}
	for k, v := range e.Context {
		kv = append(kv, k, v)
	}
	return kv
}
