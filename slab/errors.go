/*
errors.go - Error types for the slab engine

PURPOSE:
  Sentinel and structured errors shared by the planner and the inventory
  layer. Domain packages wrap these with additional context; callers branch
  with errors.Is / errors.As.

USAGE:
    if errors.Is(err, slab.ErrInsufficientStock) {
        // show shortfall to the user
    }
*/
package slab

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidRequest is returned for non-positive dimensions or counts.
	ErrInvalidRequest = errors.New("invalid slab request")

	// ErrInsufficientStock is returned when the candidate set cannot fulfill
	// a request, either on the fast-path area check or after a full plan.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrStorageConflict is returned when a concurrent mutation invalidated
	// the candidate snapshot at commit time. The caller must re-plan; the
	// engine never retries transparently because the candidate set is stale.
	ErrStorageConflict = errors.New("storage conflict: stock changed during planning")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid slab request: %s %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidRequest }

// InsufficientStockError carries the piece shortfall for user messaging.
type InsufficientStockError struct {
	Requested int
	Shortfall int
	Message   string
}

func (e *InsufficientStockError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("insufficient stock: %d of %d requested slab(s) cannot be fulfilled",
		e.Shortfall, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable reports whether re-planning against a fresh snapshot might
// succeed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorageConflict)
}

// IsClientError reports whether the error is due to the request rather than
// the system.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) || errors.Is(err, ErrInsufficientStock)
}
