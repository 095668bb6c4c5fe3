package slab

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cand(id string, length, width float64, count int) Candidate {
	l, w := d(length), d(width)
	return Candidate{
		LotID:     id,
		Length:    l,
		Width:     w,
		SlabCount: count,
		Quantity:  l.Mul(w).Mul(decimal.NewFromInt(int64(count))),
	}
}

func req(length, width float64, count int) SlabRequest {
	return SlabRequest{Length: d(length), Width: d(width), Count: count}
}

// candidateArea sums the snapshot quantity, for conservation checks.
func candidateArea(cs []Candidate) decimal.Decimal {
	total := decimal.Zero
	for _, c := range cs {
		total = total.Add(c.Quantity)
	}
	return total
}

// planArea sums what the plan leaves on lots: surviving slabs plus remnants.
func planRemainingArea(p Plan, cs []Candidate) decimal.Decimal {
	byID := make(map[string]Candidate)
	for _, c := range cs {
		byID[c.LotID] = c
	}
	consumed := make(map[string]int)
	remnants := decimal.Zero
	for _, s := range p.Steps {
		consumed[s.LotID] += s.SlabsUsed
		if s.Remnant != nil {
			remnants = remnants.Add(s.Remnant.Area())
		}
	}
	total := remnants
	for id, c := range byID {
		left := c.SlabCount - consumed[id]
		total = total.Add(c.SlabArea().Mul(decimal.NewFromInt(int64(left))))
	}
	return total
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestBuildPlan_RejectsInvalidRequest(t *testing.T) {
	cases := []struct {
		name  string
		req   SlabRequest
		field string
	}{
		{"zero length", req(0, 3, 1), "length"},
		{"negative width", req(5, -1, 1), "width"},
		{"zero count", req(5, 3, 0), "count"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := BuildPlan(tc.req, nil)
			require.Error(t, err)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

// =============================================================================
// WORKED EXAMPLES
// =============================================================================

func TestBuildPlan_ExactMatch(t *testing.T) {
	// GIVEN: One lot of exactly 5x3x4 slabs
	// WHEN: Requesting 2 slabs of 5x3
	// THEN: 2 exact slabs, zero waste, 2 slabs left on the lot
	cs := []Candidate{cand("lot-1", 5, 3, 4)}

	plan, err := BuildPlan(req(5, 3, 2), cs)
	require.NoError(t, err)

	require.True(t, plan.CanFulfill)
	require.Len(t, plan.Steps, 1)
	step := plan.Steps[0]
	assert.Equal(t, KindExact, step.Kind)
	assert.Equal(t, 2, step.SlabsUsed)
	assert.Equal(t, 2, step.PiecesProduced)
	assert.Equal(t, 2, step.SlabsRemaining)
	assert.True(t, step.Waste.IsZero())
	assert.True(t, plan.TotalAllocated.Equal(d(30)))
}

func TestBuildPlan_PartialCutConsumesWholeLot(t *testing.T) {
	// GIVEN: One 10x10x1 lot, no exact match
	// WHEN: Requesting 3 slabs of 4x2 (area 24)
	// THEN: One slab yields 10 cuttable pieces, only 3 used (partial);
	//       waste = 100 - 3*8 = 76; lot fully consumed, no remnant
	cs := []Candidate{cand("lot-1", 10, 10, 1)}

	plan, err := BuildPlan(req(4, 2, 3), cs)
	require.NoError(t, err)

	require.True(t, plan.CanFulfill)
	require.Len(t, plan.Steps, 1)
	step := plan.Steps[0]
	assert.Equal(t, KindPartial, step.Kind)
	assert.Equal(t, 1, step.SlabsUsed)
	assert.Equal(t, 3, step.PiecesProduced)
	assert.Equal(t, 0, step.SlabsRemaining)
	assert.Nil(t, step.Remnant, "fully consumed lot leaves no remnant")
	assert.True(t, step.Waste.Equal(d(76)), "waste = %s", step.Waste)
	assert.True(t, plan.TotalAllocated.Equal(d(24)))
}

func TestBuildPlan_InsufficientStock(t *testing.T) {
	// GIVEN: 24 area units of stock
	// WHEN: Requesting 5 slabs of 4x2 (40 area units)
	// THEN: Fast path fails with the exact piece shortfall
	cs := []Candidate{cand("lot-1", 4, 2, 3)}

	plan, err := BuildPlan(req(4, 2, 5), cs)
	require.NoError(t, err)

	assert.False(t, plan.CanFulfill)
	assert.Equal(t, 2, plan.Shortfall)
	assert.Contains(t, plan.Message, "2 more slab")
	assert.Empty(t, plan.Steps, "no consumption on fast-path failure")
}

// =============================================================================
// RANKING POLICY
// =============================================================================

func TestBuildPlan_ExactMatchPreferred(t *testing.T) {
	// GIVEN: A big cuttable lot that would rank first on cut efficiency,
	//        and a modest exact-size lot
	// THEN: The exact lot is consumed first regardless of waste ranking
	cs := []Candidate{
		cand("big", 20, 20, 5), // 50 pieces per slab when cut
		cand("exact", 4, 2, 3),
	}

	plan, err := BuildPlan(req(4, 2, 2), cs)
	require.NoError(t, err)

	require.True(t, plan.CanFulfill)
	require.Len(t, plan.Steps, 1)
	assert.Equal(t, "exact", plan.Steps[0].LotID)
	assert.Equal(t, KindExact, plan.Steps[0].Kind)
}

func TestBuildPlan_RanksByCutEfficiencyThenWaste(t *testing.T) {
	// GIVEN: Two cuttable lots; "dense" yields more pieces per slab
	cs := []Candidate{
		cand("sparse", 5, 3, 10), // 1 piece of 4x2 per slab, waste 7
		cand("dense", 8, 4, 10),  // 4 pieces of 4x2 per slab, waste 0
	}

	plan, err := BuildPlan(req(4, 2, 6), cs)
	require.NoError(t, err)

	require.True(t, plan.CanFulfill)
	require.NotEmpty(t, plan.Steps)
	assert.Equal(t, "dense", plan.Steps[0].LotID)
	// 6 pieces need ceil(6/4)=2 slabs yielding 8, capped at 6: partial
	assert.Equal(t, KindPartial, plan.Steps[0].Kind)
	assert.Equal(t, 2, plan.Steps[0].SlabsUsed)
	assert.Equal(t, 6, plan.Steps[0].PiecesProduced)
}

func TestBuildPlan_TieBrokenByLargerLot(t *testing.T) {
	// Identical geometry, different counts: drain the larger lot first
	cs := []Candidate{
		cand("small", 8, 4, 1),
		cand("large", 8, 4, 5),
	}

	plan, err := BuildPlan(req(4, 2, 4), cs)
	require.NoError(t, err)

	require.True(t, plan.CanFulfill)
	assert.Equal(t, "large", plan.Steps[0].LotID)
}

// =============================================================================
// MULTI-LOT CONSUMPTION & REMNANTS
// =============================================================================

func TestBuildPlan_SpansMultipleLots(t *testing.T) {
	// GIVEN: An exact lot with too few slabs plus a cuttable lot
	// WHEN: Requesting more than the exact lot holds
	// THEN: Exact lot drained first, cut lot covers the rest
	cs := []Candidate{
		cand("exact", 4, 2, 2),
		cand("cut", 8, 2, 3), // 2 pieces per slab
	}

	plan, err := BuildPlan(req(4, 2, 5), cs)
	require.NoError(t, err)

	require.True(t, plan.CanFulfill)
	require.Len(t, plan.Steps, 2)

	assert.Equal(t, "exact", plan.Steps[0].LotID)
	assert.Equal(t, 2, plan.Steps[0].PiecesProduced)

	second := plan.Steps[1]
	assert.Equal(t, "cut", second.LotID)
	// 3 pieces left, 2 per slab: 2 slabs yield 4, capped at 3
	assert.Equal(t, 2, second.SlabsUsed)
	assert.Equal(t, 3, second.PiecesProduced)
	assert.Equal(t, KindPartial, second.Kind)
	assert.Equal(t, 1, second.SlabsRemaining)
}

func TestBuildPlan_RemnantWhenLotSurvives(t *testing.T) {
	// GIVEN: A 10x10x2 lot
	// WHEN: Requesting 3 slabs of 4x2 (one slab cut, one slab survives)
	// THEN: The cut slab's 2x10 offcut strip is recovered as a remnant and
	//       excluded from waste
	cs := []Candidate{cand("lot-1", 10, 10, 2)}

	plan, err := BuildPlan(req(4, 2, 3), cs)
	require.NoError(t, err)

	require.True(t, plan.CanFulfill)
	require.Len(t, plan.Steps, 1)
	step := plan.Steps[0]
	assert.Equal(t, 1, step.SlabsUsed)
	assert.Equal(t, 1, step.SlabsRemaining)

	require.NotNil(t, step.Remnant)
	assert.True(t, step.Remnant.Length.Equal(d(2)))
	assert.True(t, step.Remnant.Width.Equal(d(10)))
	assert.Equal(t, 1, step.Remnant.Count)

	// gross leftover 76, minus recovered 20
	assert.True(t, step.Waste.Equal(d(56)), "waste = %s", step.Waste)
}

// =============================================================================
// PROPERTIES
// =============================================================================

func TestBuildPlan_AreaConservation(t *testing.T) {
	// before == remaining + allocated + waste, for any successful plan
	cases := []struct {
		name string
		cs   []Candidate
		req  SlabRequest
	}{
		{"exact", []Candidate{cand("a", 5, 3, 4)}, req(5, 3, 2)},
		{"partial whole lot", []Candidate{cand("a", 10, 10, 1)}, req(4, 2, 3)},
		{"remnant", []Candidate{cand("a", 10, 10, 2)}, req(4, 2, 3)},
		{"multi-lot", []Candidate{cand("a", 4, 2, 2), cand("b", 8, 2, 3)}, req(4, 2, 5)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			plan, err := BuildPlan(tc.req, tc.cs)
			require.NoError(t, err)
			require.True(t, plan.CanFulfill)

			before := candidateArea(tc.cs)
			after := planRemainingArea(plan, tc.cs)
			balance := after.Add(plan.TotalAllocated).Add(plan.TotalWaste)
			assert.True(t, before.Sub(balance).Abs().LessThanOrEqual(Epsilon),
				"before %s != after %s + allocated %s + waste %s",
				before, after, plan.TotalAllocated, plan.TotalWaste)
		})
	}
}

func TestHasEnoughQuantity_AgreesWithPlanner(t *testing.T) {
	// false => plan must fail; true does not guarantee success
	thin := []Candidate{cand("strip", 10, 1, 1)} // area 10

	// Direction 1: fast path false implies plan failure
	tooBig := req(4, 3, 1) // area 12 > 10
	assert.False(t, HasEnoughQuantity(thin, tooBig))
	plan, err := BuildPlan(tooBig, thin)
	require.NoError(t, err)
	assert.False(t, plan.CanFulfill)

	// Direction 2: fast path true but geometry blocks fulfillment
	blocked := req(3, 3, 1) // area 9 <= 10 but a 3x3 can't come out of 10x1
	assert.True(t, HasEnoughQuantity(thin, blocked))
	plan, err = BuildPlan(blocked, thin)
	require.NoError(t, err)
	assert.False(t, plan.CanFulfill, "geometry mismatch must still block")
	assert.Equal(t, 1, plan.Shortfall)
}
