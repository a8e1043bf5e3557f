package engine

import (
	"fmt"
	"strings"
)

// ============================================================================
// ERRORS — Typed failures surfaced to callers
// ============================================================================
// The filter → aggregate → format chain never recovers its own errors.
// Callers inspect them with errors.As and pick the user-visible response.
// ============================================================================

// InvalidPlanError reports translator output that is not a mapping.
type InvalidPlanError struct {
	Reason string
	Raw    string
	Err    error
}

func (e *InvalidPlanError) Error() string {
	msg := "invalid plan: " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvalidPlanError) Unwrap() error { return e.Err }

// UnknownAxisError reports a grouping column the filtered view does not have.
type UnknownAxisError struct {
	Axis      string
	Available []string
}

func (e *UnknownAxisError) Error() string {
	return fmt.Sprintf("unknown axis %q (available: %s)", e.Axis, strings.Join(e.Available, ", "))
}

// EmptyResultError reports a predicate chain that eliminated every row.
type EmptyResultError struct {
	Predicates   []Predicate
	OriginalRows int
}

func (e *EmptyResultError) Error() string {
	parts := make([]string, len(e.Predicates))
	for i, p := range e.Predicates {
		parts[i] = p.String()
	}
	return fmt.Sprintf("no data matched your filters: %d predicate(s) [%s] over %d row(s)",
		len(e.Predicates), strings.Join(parts, " AND "), e.OriginalRows)
}

// UpstreamServiceError wraps a translator or delivery failure.
// Status is the HTTP status code when one was received, 0 otherwise.
type UpstreamServiceError struct {
	Service string
	Status  int
	Message string
	Err     error
}

func (e *UpstreamServiceError) Error() string {
	var b strings.Builder
	b.WriteString(e.Service)
	b.WriteString(" failed")
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *UpstreamServiceError) Unwrap() error { return e.Err }
