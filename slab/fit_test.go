package slab

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

// =============================================================================
// FITS - Area-based feasibility
// =============================================================================

func TestFits_AreaBased(t *testing.T) {
	assert.True(t, Fits(d(10), d(10), d(5), d(3)), "100 >= 15")
	assert.True(t, Fits(d(5), d(3), d(5), d(3)), "equal area fits")
	assert.False(t, Fits(d(2), d(2), d(5), d(3)), "4 < 15")
}

func TestFits_IsNecessaryNotSufficient(t *testing.T) {
	// GIVEN: A 10x1 strip and a 3x3 request
	// THEN: Fits passes on area (10 >= 9) but no actual cut exists.
	// This is the documented area-only approximation.
	assert.True(t, Fits(d(10), d(1), d(3), d(3)))

	cut := CutsPerUnit(d(10), d(1), d(3), d(3))
	assert.Equal(t, 0, cut.Count, "aspect mismatch: no cut possible")
}

// =============================================================================
// CUTS PER UNIT - Two-orientation tiling
// =============================================================================

func TestCutsPerUnit_TieBreaksLengthwise(t *testing.T) {
	// GIVEN: 10x10 lot, 4x2 request
	// WHEN: Both orientations yield 10 pieces (2*5 vs 5*2)
	// THEN: Lengthwise wins the tie; waste = 100 - 10*8 = 20
	cut := CutsPerUnit(d(10), d(10), d(4), d(2))

	assert.Equal(t, 10, cut.Count)
	assert.Equal(t, OrientLengthwise, cut.Orientation)
	assert.True(t, cut.Waste.Equal(d(20)), "waste = %s", cut.Waste)
	assert.Equal(t, 2, cut.AlongLength)
	assert.Equal(t, 5, cut.AlongWidth)
}

func TestCutsPerUnit_PrefersLargerCount(t *testing.T) {
	// 6x4 lot, 3x2 request: lengthwise 2*2=4 beats crosswise 3*1=3
	cut := CutsPerUnit(d(6), d(4), d(3), d(2))

	assert.Equal(t, 4, cut.Count)
	assert.Equal(t, OrientLengthwise, cut.Orientation)
	assert.True(t, cut.Waste.IsZero(), "perfect tiling, waste = %s", cut.Waste)
}

func TestCutsPerUnit_CrosswiseWins(t *testing.T) {
	// 9x2 lot, 2x3 request: lengthwise yields 0 (3 doesn't fit the 2-wide
	// axis), crosswise yields 3*1=3
	cut := CutsPerUnit(d(9), d(2), d(2), d(3))

	assert.Equal(t, 3, cut.Count)
	assert.Equal(t, OrientCrosswise, cut.Orientation)
	assert.True(t, cut.Waste.IsZero())
}

func TestCutsPerUnit_ZeroWhenNothingFits(t *testing.T) {
	cut := CutsPerUnit(d(3), d(3), d(5), d(5))
	assert.Equal(t, 0, cut.Count)
	assert.True(t, cut.Waste.IsZero())
}

// =============================================================================
// REMNANT MATERIALITY
// =============================================================================

func TestRemnantStrip_PicksLargerStrip(t *testing.T) {
	// 10x10 lot, 4x2 request, lengthwise 2x5 grid: used extent 8x10.
	// Column strip: 2x10 (area 20). Row strip: 8x0 (area 0).
	cut := CutsPerUnit(d(10), d(10), d(4), d(2))
	stripLen, stripWidth := remnantStrip(d(10), d(10), d(4), d(2), cut)

	assert.True(t, stripLen.Equal(d(2)), "strip length = %s", stripLen)
	assert.True(t, stripWidth.Equal(d(10)), "strip width = %s", stripWidth)
}

func TestRemnantFor_BelowAreaThresholdIsScrap(t *testing.T) {
	// 4x2 lot, 4x2 request leaves nothing; waste 0 is under threshold
	cut := CutsPerUnit(d(4), d(2), d(4), d(2))
	assert.Nil(t, remnantFor(d(4), d(2), d(4), d(2), cut, 1, cut.Waste))
}

func TestRemnantFor_ThinStripIsScrap(t *testing.T) {
	// 10x2.4 lot, 2x2 request: 5x1 grid, used 10x2, strip 10x0.4.
	// Waste per slab is 4 (> 1) but the strip is under the 0.5 edge minimum.
	cut := CutsPerUnit(d(10), d(2.4), d(2), d(2))
	assert.Equal(t, 5, cut.Count)
	assert.Nil(t, remnantFor(d(10), d(2.4), d(2), d(2), cut, 1, cut.Waste))
}

func TestRemnantFor_MaterialLeftoverIsRecovered(t *testing.T) {
	// 10x10 lot, 4x2 request: per-slab waste 20, strip 2x10 per slab
	cut := CutsPerUnit(d(10), d(10), d(4), d(2))
	rem := remnantFor(d(10), d(10), d(4), d(2), cut, 2, cut.Waste)

	assert.NotNil(t, rem)
	assert.True(t, rem.Length.Equal(d(2)))
	assert.True(t, rem.Width.Equal(d(10)))
	assert.Equal(t, 2, rem.Count)
	assert.True(t, rem.Area().Equal(d(40)))
}
