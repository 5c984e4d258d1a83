// Package errors defines the typed error values the reasoner returns
// across its load-time and run-time boundaries (see spec §7).
package errors

import "fmt"

// Diagnostic describes a single problem found while merging a knowledge
// pack. Fatal diagnostics abort the load; non-fatal ones (warnings) are
// collected and returned alongside a graph that was still built.
type Diagnostic struct {
	// Document is the index of the offending document in the input list.
	Document int
	// Record names the kind of record ("node", "edge", "rule") and its id.
	Record string
	// Field is the offending field, when applicable.
	Field string
	// Message describes the problem.
	Message string
	// Fatal means the graph was not produced because of this diagnostic.
	Fatal bool
}

func (d Diagnostic) String() string {
	if d.Field != "" {
		return fmt.Sprintf("document[%d] %s field %q: %s", d.Document, d.Record, d.Field, d.Message)
	}
	return fmt.Sprintf("document[%d] %s: %s", d.Document, d.Record, d.Message)
}

// LoadError is returned when a knowledge pack fails to merge into a
// graph because of one or more fatal diagnostics. The previously
// loaded graph (if any) remains active; see spec §7.
type LoadError struct {
	Diagnostics []Diagnostic
}

func (e *LoadError) Error() string {
	if len(e.Diagnostics) == 0 {
		return "load failed"
	}
	return fmt.Sprintf("load failed: %s (and %d more)", e.Diagnostics[0].String(), len(e.Diagnostics)-1)
}

// NewLoadError builds a LoadError from the fatal subset of diagnostics.
func NewLoadError(diags []Diagnostic) *LoadError {
	fatal := make([]Diagnostic, 0, len(diags))
	for _, d := range diags {
		if d.Fatal {
			fatal = append(fatal, d)
		}
	}
	return &LoadError{Diagnostics: fatal}
}

// ValidationError represents a malformed or out-of-range request value.
// Surfaced as HTTP 400 by the REST layer.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// UnknownNodeError is returned when a perturbation or seed refers to a
// node id that does not exist in the loaded graph. Surfaced as HTTP 400.
type UnknownNodeError struct {
	NodeID string
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("unknown node: %s", e.NodeID)
}

// InternalError wraps an invariant violation inside the propagation
// engine. It carries an opaque token (never the underlying cause) so
// callers can correlate logs without leaking internals; see spec §7.
type InternalError struct {
	Token string
	Cause error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error [%s]", e.Token)
}

func (e *InternalError) Unwrap() error {
	return e.Cause
}

// NewInternalError creates a new InternalError with the given token.
func NewInternalError(token string, cause error) *InternalError {
	return &InternalError{Token: token, Cause: cause}
}
