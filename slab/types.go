/*
Package slab provides the core slab allocation engine.

PURPOSE:
  This package contains the pure, side-effect-free algorithms for fulfilling
  slab orders from stock: deciding whether a requested slab size can be served
  from an available lot, how many requested pieces a larger slab can be cut
  into, and which lots a request should draw from to minimize waste.

KEY CONCEPTS IN THIS FILE (types.go):
  - SlabRequest: What the client wants (length x width x count)
  - Candidate: A projection of a stock lot eligible for allocation
  - PlanStep / Plan: The computed allocation across candidates

DESIGN PRINCIPLES:
  1. Purity: Nothing in this package touches storage. Planning is a pure
     computation over in-memory candidates; application happens elsewhere.
  2. Precision: Uses decimal.Decimal for all area arithmetic. Comparisons go
     through a small epsilon to tolerate geometry recorded from float inputs.
  3. Determinism: Candidate ranking is a pure comparator; the same candidate
     set always produces the same plan.

SEE ALSO:
  - fit.go: Geometry/fit calculator (Fits, CutsPerUnit)
  - planner.go: Ranking and greedy consumption
  - inventory package: Applies plans to persistent stock
*/
package slab

import (
	"github.com/shopspring/decimal"
)

// Epsilon tolerates drift from geometry that was originally recorded as
// floating point. All area and dimension comparisons go through it.
var Epsilon = decimal.NewFromFloat(0.01)

// =============================================================================
// REQUEST - What the client wants
// =============================================================================

// SlabRequest describes a client order: Count pieces of Length x Width.
type SlabRequest struct {
	Length decimal.Decimal
	Width  decimal.Decimal
	Count  int
}

// PieceArea returns the area of a single requested piece.
func (r SlabRequest) PieceArea() decimal.Decimal {
	return r.Length.Mul(r.Width)
}

// TotalArea returns the area of the full request.
func (r SlabRequest) TotalArea() decimal.Decimal {
	return r.PieceArea().Mul(decimal.NewFromInt(int64(r.Count)))
}

// Validate rejects non-positive dimensions or counts before any planning runs.
func (r SlabRequest) Validate() error {
	if !r.Length.IsPositive() {
		return &ValidationError{Field: "length", Message: "must be positive"}
	}
	if !r.Width.IsPositive() {
		return &ValidationError{Field: "width", Message: "must be positive"}
	}
	if r.Count <= 0 {
		return &ValidationError{Field: "count", Message: "must be at least 1"}
	}
	return nil
}

// =============================================================================
// CANDIDATE - Ephemeral projection of a stock lot
// =============================================================================

// Candidate is a planning-time view of a stock lot. It carries just enough
// geometry to rank and consume the lot; it is never persisted. SlabCount is
// the count observed when the candidate set was snapshotted and doubles as
// the optimistic-concurrency guard when the plan is applied.
type Candidate struct {
	LotID     string
	Length    decimal.Decimal
	Width     decimal.Decimal
	SlabCount int
	Quantity  decimal.Decimal // total area of the lot
}

// SlabArea returns the area of one physical slab in the lot.
func (c Candidate) SlabArea() decimal.Decimal {
	return c.Length.Mul(c.Width)
}

// =============================================================================
// PLAN - Ordered allocation across candidates
// =============================================================================

// Kind classifies how a plan step consumes its lot.
type Kind string

const (
	// KindExact consumes slabs whose dimensions match the request exactly.
	KindExact Kind = "exact"
	// KindCut consumes slabs by tiling requested pieces out of larger slabs,
	// using every piece the cut yields.
	KindCut Kind = "cut"
	// KindPartial is a cut where the request needed fewer pieces than the
	// consumed slabs could yield; the surplus pieces count as waste.
	KindPartial Kind = "partial"
)

// PlanStep records the planner's decision for one candidate lot.
type PlanStep struct {
	LotID          string
	Kind           Kind
	Orientation    Orientation
	SlabsUsed      int // physical slabs consumed from the lot
	PiecesProduced int // requested pieces produced by this step
	SlabsRemaining int // slabs left on the lot after the step
	SnapshotCount  int // lot slab count at planning time (concurrency guard)

	AreaAllocated decimal.Decimal // PiecesProduced x piece area
	Waste         decimal.Decimal // material lost, net of any remnant
	Remnant       *Remnant        // usable leftover, nil if below materiality
}

// Remnant is leftover material from a cut that is large enough to re-enter
// stock as a new lot.
type Remnant struct {
	Length decimal.Decimal
	Width  decimal.Decimal
	Count  int
}

// Area returns the total remnant area.
func (r Remnant) Area() decimal.Decimal {
	return r.Length.Mul(r.Width).Mul(decimal.NewFromInt(int64(r.Count)))
}

// Plan is the full allocation result: ordered steps plus totals.
//
// A plan is a pure computation. CanFulfill=false means the candidate set
// cannot serve the request; nothing is ever partially committed.
type Plan struct {
	Request SlabRequest
	Steps   []PlanStep

	TotalAllocated decimal.Decimal
	TotalWaste     decimal.Decimal
	CanFulfill     bool
	Shortfall      int    // requested pieces still missing when CanFulfill=false
	Message        string // human-readable failure summary
}

// =============================================================================
// COMPARISON HELPERS
// =============================================================================

// eq reports whether two decimals are equal within Epsilon.
func eq(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Epsilon)
}

// gte reports whether a >= b within Epsilon.
func gte(a, b decimal.Decimal) bool {
	return a.Sub(b).GreaterThanOrEqual(Epsilon.Neg())
}
