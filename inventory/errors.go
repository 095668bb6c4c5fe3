/*
errors.go - Inventory-level error types

Wraps and extends the slab package's taxonomy with the failure modes that
only exist once storage is involved: unknown materials, inactive shades,
barcode mismatches, and illegal reservation transitions.
*/
package inventory

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMaterialNotFound is returned for an unknown material id.
	ErrMaterialNotFound = errors.New("material not found")

	// ErrShadeNotActive is returned when the requested shade has no variant
	// on the material.
	ErrShadeNotActive = errors.New("shade not active for material")

	// ErrBarcodeMismatch is returned when a supplied barcode does not match
	// the (material, shade) variant.
	ErrBarcodeMismatch = errors.New("barcode does not match material shade")

	// ErrNoSlabStock is returned when no geometry-bearing lot exists for the
	// (material, shade), so allocation planning cannot run at all.
	ErrNoSlabStock = errors.New("no slab stock with geometry for material shade")

	// ErrReservationNotFound is returned for an unknown reservation id.
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrIllegalTransition is returned when Release/Deliver/Cancel is
	// attempted on a reservation that is not in the Reserved state.
	ErrIllegalTransition = errors.New("illegal reservation state transition")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ShadeNotActiveError names the material and shade for user messaging.
type ShadeNotActiveError struct {
	MaterialID string
	Shade      Shade
}

func (e *ShadeNotActiveError) Error() string {
	return fmt.Sprintf("shade %q is not active for material %s", e.Shade, e.MaterialID)
}

func (e *ShadeNotActiveError) Unwrap() error { return ErrShadeNotActive }

// BarcodeMismatchError carries what was scanned vs what was expected.
type BarcodeMismatchError struct {
	MaterialID string
	Shade      Shade
	Supplied   string
}

func (e *BarcodeMismatchError) Error() string {
	return fmt.Sprintf("barcode %q does not match material %s shade %q",
		e.Supplied, e.MaterialID, e.Shade)
}

func (e *BarcodeMismatchError) Unwrap() error { return ErrBarcodeMismatch }

// IllegalTransitionError names the reservation's current state and the
// transition that was attempted.
type IllegalTransitionError struct {
	ReservationID string
	Current       ReservationStatus
	Attempted     string
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("reservation %s is %s: cannot %s (only reserved holds may transition)",
		e.ReservationID, e.Current, e.Attempted)
}

func (e *IllegalTransitionError) Unwrap() error { return ErrIllegalTransition }

// IsNotFound reports whether the error indicates a missing record or an
// inactive shade.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrMaterialNotFound) ||
		errors.Is(err, ErrShadeNotActive) ||
		errors.Is(err, ErrBarcodeMismatch) ||
		errors.Is(err, ErrReservationNotFound) ||
		errors.Is(err, ErrNoSlabStock)
}
