/*
Package inventory manages persistent slab stock: material types with priced
shade variants, stock lots, reservations, and the append-only stock ledger.

PURPOSE:
  The slab package plans; this package owns state. Its Service wires the
  planner's pure output to atomic storage mutations: reserving stock
  (shrinking, deleting, and creating lots), restoring stock on release, and
  finalizing on delivery, while keeping aggregate quantity and stock status
  consistent.

KEY CONCEPTS IN THIS FILE (types.go):
  - MaterialType: A stone type with shade variants (AA/A/B/B-), each priced
    and barcoded independently. A shade is orderable only if present in the
    Shades map - "not active" is a single lookup miss.
  - StockLot: A stored quantity of one (material, shade), optionally with
    slab geometry. Geometry is all-or-nothing; with geometry present,
    Quantity == Length x Width x SlabCount at all times.
  - Reservation: A client hold synthesized from one or more lots. It owns
    its own quantity/geometry snapshot so Release can restore stock without
    referencing any surviving lot.
  - LedgerEntry: Immutable audit record of every IN/OUT quantity movement.

SEE ALSO:
  - store.go: Persistence interface and atomic mutation sets
  - service.go: PlanAndReserve orchestration
  - transitions.go: Release / Deliver / Cancel state machine
*/
package inventory

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/slab-engine/slab"
)

// =============================================================================
// SHADES - Quality grades of a material
// =============================================================================

// Shade is a quality/grade variant of a material type.
type Shade string

const (
	ShadeAA     Shade = "AA"
	ShadeA      Shade = "A"
	ShadeB      Shade = "B"
	ShadeBMinus Shade = "B-"
)

// Shades lists every recognized grade, best first.
var Shades = []Shade{ShadeAA, ShadeA, ShadeB, ShadeBMinus}

// Valid reports whether s is a recognized grade.
func (s Shade) Valid() bool {
	for _, known := range Shades {
		if s == known {
			return true
		}
	}
	return false
}

// ShadeVariant carries the per-shade commercial attributes. A material's
// Shades map having a key for a grade is what makes that grade orderable.
type ShadeVariant struct {
	CostPrice decimal.Decimal
	SalePrice decimal.Decimal
	Barcode   string
}

// =============================================================================
// MATERIAL TYPE
// =============================================================================

// StockStatus is the aggregate availability flag for a material, derived
// from the total quantity across its surviving lots.
type StockStatus string

const (
	StatusInStock    StockStatus = "in_stock"
	StatusLowStock   StockStatus = "low_stock"
	StatusOutOfStock StockStatus = "out_of_stock"
)

// StatusFor derives the stock status from a remaining quantity and a
// low-stock threshold. A zero threshold disables the low-stock band.
func StatusFor(remaining, threshold decimal.Decimal) StockStatus {
	if remaining.LessThanOrEqual(slab.Epsilon) {
		return StatusOutOfStock
	}
	if threshold.IsPositive() && remaining.LessThan(threshold) {
		return StatusLowStock
	}
	return StatusInStock
}

// MaterialType identifies a stone type and owns its active shade variants.
type MaterialType struct {
	ID                string
	Name              string
	Shades            map[Shade]ShadeVariant
	LowStockThreshold decimal.Decimal
	Status            StockStatus
	CreatedAt         time.Time
}

// Variant looks up a shade's commercial attributes; ok=false means the shade
// is not active on this material.
func (m *MaterialType) Variant(s Shade) (ShadeVariant, bool) {
	v, ok := m.Shades[s]
	return v, ok
}

// =============================================================================
// STOCK LOT
// =============================================================================

// LotGeometry is a lot's slab geometry. Either the whole struct is present
// on a lot or the lot has no geometry at all.
type LotGeometry struct {
	Length    decimal.Decimal
	Width     decimal.Decimal
	SlabCount int
}

// Area returns Length x Width x SlabCount.
func (g LotGeometry) Area() decimal.Decimal {
	return g.Length.Mul(g.Width).Mul(decimal.NewFromInt(int64(g.SlabCount)))
}

// StockLot is a stored quantity of one (material, shade) pair.
//
// INVARIANTS:
//   - Quantity is non-negative.
//   - If Geometry is non-nil, Quantity == Geometry.Area() within epsilon.
//   - A lot without geometry never participates in allocation planning; it
//     only contributes to coarse area bookkeeping.
type StockLot struct {
	ID         string
	MaterialID string
	Shade      Shade
	Quantity   decimal.Decimal
	Geometry   *LotGeometry
	FromCut    bool // true when the lot is a remnant of a cut
	CreatedAt  time.Time
}

// Candidate projects the lot for the allocation planner. Lots without
// geometry return ok=false and are excluded from planning.
func (l *StockLot) Candidate() (slab.Candidate, bool) {
	if l.Geometry == nil {
		return slab.Candidate{}, false
	}
	return slab.Candidate{
		LotID:     l.ID,
		Length:    l.Geometry.Length,
		Width:     l.Geometry.Width,
		SlabCount: l.Geometry.SlabCount,
		Quantity:  l.Quantity,
	}, true
}

// =============================================================================
// RESERVATION
// =============================================================================

// ReservationStatus is the reservation lifecycle state. Released, Delivered
// and Cancelled are terminal; only Reserved may transition.
type ReservationStatus string

const (
	StatusReserved  ReservationStatus = "reserved"
	StatusReleased  ReservationStatus = "released"
	StatusDelivered ReservationStatus = "delivered"
	StatusCancelled ReservationStatus = "cancelled"
)

// Reservation is a client-facing hold against inventory. It snapshots the
// requested geometry and the committed quantity independently of any single
// lot, because the hold may have been synthesized from several lots.
type Reservation struct {
	ID          string
	MaterialID  string
	Shade       Shade
	Quantity    decimal.Decimal
	Length      decimal.Decimal
	Width       decimal.Decimal
	SlabCount   int
	ClientName  string
	Status      ReservationStatus
	ReservedAt  time.Time
	ReleasedAt  *time.Time
	DeliveredAt *time.Time
}

// =============================================================================
// LEDGER
// =============================================================================

// LedgerDirection is the sign of a stock movement.
type LedgerDirection string

const (
	DirectionIn  LedgerDirection = "IN"
	DirectionOut LedgerDirection = "OUT"
)

// LedgerEntry is an immutable, append-only record of a quantity movement
// against a material. Entries are never updated or deleted; the ledger is
// the audit trail, not the balance source (balances live on lots).
type LedgerEntry struct {
	ID          string
	MaterialID  string
	Shade       Shade
	Direction   LedgerDirection
	Quantity    decimal.Decimal
	Reason      string
	ReferenceID string // reservation or lot the movement belongs to
	CreatedAt   time.Time
}
