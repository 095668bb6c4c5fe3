/*
fit.go - Geometry/fit calculator

PURPOSE:
  Pure functions answering two questions about a single lot slab:
  1. Fits: could one requested piece come out of one lot slab at all?
  2. CutsPerUnit: how many requested pieces does one lot slab yield when cut,
     and how much material is lost?

AREA-ONLY FEASIBILITY:
  Fits compares areas, not shapes. It is a necessary condition for cutting,
  not a sufficient one: a 10x1 strip "fits" a 3x3 request by area but cannot
  yield a single piece. This is a deliberate, documented approximation - the
  planner always confirms with CutsPerUnit before consuming a lot, and
  CutsPerUnit returning 0 is the authoritative "does not fit for cutting"
  signal. Do not tighten Fits without a product-level decision.

TILING MODEL:
  Only axis-aligned, whole-piece tilings are considered, in two orientations:
  requested length parallel to lot length ("lengthwise") and requested length
  parallel to lot width ("crosswise"). The orientation yielding more pieces
  wins; ties go lengthwise.

SEE ALSO:
  - planner.go: Ranks candidates using CutsPerUnit
*/
package slab

import (
	"github.com/shopspring/decimal"
)

// Orientation names which way requested pieces are laid onto a lot slab.
type Orientation string

const (
	// OrientLengthwise lays the requested length parallel to the lot length.
	OrientLengthwise Orientation = "lengthwise"
	// OrientCrosswise lays the requested length parallel to the lot width.
	OrientCrosswise Orientation = "crosswise"
)

// Materiality thresholds for remnant recovery. Leftover material from a cut
// only re-enters stock when the waste per cut slab exceeds MinRemnantArea and
// the leftover strip measures at least MinRemnantEdge on both axes; anything
// smaller is scrap.
var (
	MinRemnantArea = decimal.NewFromInt(1)
	MinRemnantEdge = decimal.NewFromFloat(0.5)
)

// Fits reports whether a requested piece fits a lot slab by area.
// Necessary but not sufficient for cutting; see the package header.
func Fits(lotLen, lotWidth, reqLen, reqWidth decimal.Decimal) bool {
	return gte(lotLen.Mul(lotWidth), reqLen.Mul(reqWidth))
}

// CutResult describes the best axis-aligned tiling of requested pieces onto
// one lot slab.
type CutResult struct {
	Count       int             // pieces per slab; 0 means the slab cannot be cut
	Waste       decimal.Decimal // lot slab area minus Count x piece area
	Orientation Orientation

	// Grid shape in the chosen orientation: AlongLength pieces along the lot
	// length by AlongWidth pieces along the lot width.
	AlongLength int
	AlongWidth  int
}

// CutsPerUnit computes how many reqLen x reqWidth pieces one lotLen x lotWidth
// slab yields. Both orientations are tried; the one producing more pieces
// wins, with ties broken toward lengthwise. Count=0 signals that the slab
// cannot produce even one piece, which can happen even when Fits is true
// (aspect-ratio mismatch).
func CutsPerUnit(lotLen, lotWidth, reqLen, reqWidth decimal.Decimal) CutResult {
	lengthwise := tile(lotLen, lotWidth, reqLen, reqWidth)
	crosswise := tile(lotLen, lotWidth, reqWidth, reqLen)

	best := CutResult{
		Count:       lengthwise.count,
		Orientation: OrientLengthwise,
		AlongLength: lengthwise.alongLength,
		AlongWidth:  lengthwise.alongWidth,
	}
	if crosswise.count > lengthwise.count {
		best = CutResult{
			Count:       crosswise.count,
			Orientation: OrientCrosswise,
			AlongLength: crosswise.alongLength,
			AlongWidth:  crosswise.alongWidth,
		}
	}

	if best.Count == 0 {
		return best
	}
	lotArea := lotLen.Mul(lotWidth)
	reqArea := reqLen.Mul(reqWidth)
	best.Waste = lotArea.Sub(reqArea.Mul(decimal.NewFromInt(int64(best.Count))))
	return best
}

type tiling struct {
	count       int
	alongLength int
	alongWidth  int
}

// tile lays pieceLen along the lot length and pieceWidth along the lot width.
func tile(lotLen, lotWidth, pieceLen, pieceWidth decimal.Decimal) tiling {
	if !pieceLen.IsPositive() || !pieceWidth.IsPositive() {
		return tiling{}
	}
	nl := int(lotLen.Div(pieceLen).IntPart())
	nw := int(lotWidth.Div(pieceWidth).IntPart())
	if nl <= 0 || nw <= 0 {
		return tiling{}
	}
	return tiling{count: nl * nw, alongLength: nl, alongWidth: nw}
}

// remnantStrip returns the dimensions of the larger of the two leftover
// strips a grid cut leaves on one slab: the strip beyond the last column
// (full lot width) and the strip beyond the last row (spanning the used
// columns). The smaller strip is written off as scrap.
func remnantStrip(lotLen, lotWidth, reqLen, reqWidth decimal.Decimal, cut CutResult) (stripLen, stripWidth decimal.Decimal) {
	pieceAlongLen, pieceAlongWidth := reqLen, reqWidth
	if cut.Orientation == OrientCrosswise {
		pieceAlongLen, pieceAlongWidth = reqWidth, reqLen
	}

	usedLen := pieceAlongLen.Mul(decimal.NewFromInt(int64(cut.AlongLength)))
	usedWidth := pieceAlongWidth.Mul(decimal.NewFromInt(int64(cut.AlongWidth)))

	// Strip beyond the last column, running the full lot width.
	aLen, aWidth := lotLen.Sub(usedLen), lotWidth
	// Strip beyond the last row, spanning only the used columns.
	bLen, bWidth := usedLen, lotWidth.Sub(usedWidth)

	if aLen.Mul(aWidth).GreaterThanOrEqual(bLen.Mul(bWidth)) {
		return aLen, aWidth
	}
	return bLen, bWidth
}

// remnantFor decides whether a cut step's leftover is worth re-entering
// stock. slabWaste is the gross leftover area per cut slab. Returns nil when
// the leftover is below materiality.
func remnantFor(lotLen, lotWidth, reqLen, reqWidth decimal.Decimal, cut CutResult, slabsUsed int, slabWaste decimal.Decimal) *Remnant {
	if slabsUsed <= 0 || cut.Count == 0 {
		return nil
	}
	if !slabWaste.GreaterThan(MinRemnantArea) {
		return nil
	}
	stripLen, stripWidth := remnantStrip(lotLen, lotWidth, reqLen, reqWidth, cut)
	if stripLen.LessThan(MinRemnantEdge) || stripWidth.LessThan(MinRemnantEdge) {
		return nil
	}
	return &Remnant{Length: stripLen, Width: stripWidth, Count: slabsUsed}
}
