/*
planner.go - Allocation planner

PURPOSE:
  Turns a SlabRequest plus a snapshot of candidate lots into an ordered
  AllocationPlan: which lots to draw from, how many slabs each contributes,
  whether pieces come out exact or cut, and what waste results.

RANKING POLICY (deterministic):
  1. Exact-dimension matches first.
  2. Then by pieces-per-slab (CutsPerUnit) descending - more usable pieces
     per physical slab wins regardless of absolute waste.
  3. Ties by waste-per-slab ascending.
  4. Remaining ties by total lot area descending (drain the biggest lot).

  The ranking is a pure comparator over an immutable snapshot; consumption is
  a single greedy pass. No shared mutable ranking state exists, so ranking
  and consumption are independently testable.

GREEDY CONSUMPTION:
  Exact lots are consumed slab-for-piece. Cuttable lots consume
  ceil(remaining / piecesPerSlab) slabs (capped at the lot's count); if the
  consumed slabs could yield more pieces than remain needed, the step is
  "partial" and the surplus pieces count as waste.

SEE ALSO:
  - fit.go: CutsPerUnit, remnant materiality
  - inventory package: Applies the plan atomically to storage
*/
package slab

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// HasEnoughQuantity is the advisory fast path: it compares total candidate
// area against the requested area without running the full greedy pass.
// A false result guarantees planning would fail; true does not guarantee
// success, since geometry can still block fulfillment.
func HasEnoughQuantity(candidates []Candidate, req SlabRequest) bool {
	total := decimal.Zero
	for _, c := range candidates {
		total = total.Add(c.Quantity)
	}
	return gte(total, req.TotalArea())
}

// ranked pairs a candidate with its precomputed cut layout so the comparator
// never recomputes tilings mid-sort.
type ranked struct {
	cand  Candidate
	exact bool
	cut   CutResult
}

// rank orders candidates by the policy above. Pure: the input slice is not
// modified.
func rank(candidates []Candidate, req SlabRequest) []ranked {
	rs := make([]ranked, 0, len(candidates))
	for _, c := range candidates {
		r := ranked{
			cand:  c,
			exact: eq(c.Length, req.Length) && eq(c.Width, req.Width),
			cut:   CutsPerUnit(c.Length, c.Width, req.Length, req.Width),
		}
		if !r.exact && r.cut.Count == 0 {
			continue // cannot contribute even one piece
		}
		rs = append(rs, r)
	}

	sort.SliceStable(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		if a.exact != b.exact {
			return a.exact
		}
		if a.cut.Count != b.cut.Count {
			return a.cut.Count > b.cut.Count
		}
		if !a.cut.Waste.Equal(b.cut.Waste) {
			return a.cut.Waste.LessThan(b.cut.Waste)
		}
		return a.cand.Quantity.GreaterThan(b.cand.Quantity)
	})
	return rs
}

// BuildPlan computes the allocation for req over the candidate snapshot.
// Pure computation: no storage is touched, and a failed plan commits nothing.
func BuildPlan(req SlabRequest, candidates []Candidate) (Plan, error) {
	if err := req.Validate(); err != nil {
		return Plan{}, err
	}

	plan := Plan{
		Request:        req,
		TotalAllocated: decimal.Zero,
		TotalWaste:     decimal.Zero,
	}

	if !HasEnoughQuantity(candidates, req) {
		plan.Shortfall = req.Count - piecesCoveredBy(candidates, req)
		plan.Message = fmt.Sprintf("insufficient stock: %d more slab(s) of %s x %s needed",
			plan.Shortfall, req.Length, req.Width)
		return plan, nil
	}

	remaining := req.Count
	pieceArea := req.PieceArea()

	for _, r := range rank(candidates, req) {
		if remaining <= 0 {
			break
		}

		var step PlanStep
		if r.exact {
			use := remaining
			if use > r.cand.SlabCount {
				use = r.cand.SlabCount
			}
			step = PlanStep{
				LotID:          r.cand.LotID,
				Kind:           KindExact,
				Orientation:    OrientLengthwise,
				SlabsUsed:      use,
				PiecesProduced: use,
				SlabsRemaining: r.cand.SlabCount - use,
				SnapshotCount:  r.cand.SlabCount,
				AreaAllocated:  pieceArea.Mul(decimal.NewFromInt(int64(use))),
				Waste:          decimal.Zero,
			}
		} else {
			step = cutStep(r, req, remaining)
		}

		remaining -= step.PiecesProduced
		plan.TotalAllocated = plan.TotalAllocated.Add(step.AreaAllocated)
		plan.TotalWaste = plan.TotalWaste.Add(step.Waste)
		plan.Steps = append(plan.Steps, step)
	}

	if remaining > 0 {
		plan.Shortfall = remaining
		plan.Message = fmt.Sprintf("insufficient stock: %d more slab(s) of %s x %s needed",
			remaining, req.Length, req.Width)
		return plan, nil
	}

	plan.CanFulfill = true
	return plan, nil
}

// cutStep consumes a cuttable candidate for up to `remaining` pieces.
func cutStep(r ranked, req SlabRequest, remaining int) PlanStep {
	perSlab := r.cut.Count

	slabsNeeded := (remaining + perSlab - 1) / perSlab
	slabsUsed := slabsNeeded
	if slabsUsed > r.cand.SlabCount {
		slabsUsed = r.cand.SlabCount
	}

	possible := slabsUsed * perSlab
	produced := possible
	kind := KindCut
	if produced > remaining {
		produced = remaining
		kind = KindPartial // the cap binds: surplus pieces become waste
	}

	pieceArea := req.PieceArea()
	slabs := decimal.NewFromInt(int64(slabsUsed))
	allocated := pieceArea.Mul(decimal.NewFromInt(int64(produced)))
	gross := r.cand.SlabArea().Mul(slabs).Sub(allocated)

	step := PlanStep{
		LotID:          r.cand.LotID,
		Kind:           kind,
		Orientation:    r.cut.Orientation,
		SlabsUsed:      slabsUsed,
		PiecesProduced: produced,
		SlabsRemaining: r.cand.SlabCount - slabsUsed,
		SnapshotCount:  r.cand.SlabCount,
		AreaAllocated:  allocated,
		Waste:          gross,
	}

	// Remnants are only recovered when the source lot survives the step; a
	// fully consumed lot leaves nothing behind to restock.
	if step.SlabsRemaining > 0 {
		if rem := remnantFor(r.cand.Length, r.cand.Width, req.Length, req.Width, r.cut, slabsUsed, r.cut.Waste); rem != nil {
			step.Remnant = rem
			step.Waste = gross.Sub(rem.Area())
		}
	}
	return step
}

// piecesCoveredBy estimates how many whole requested pieces the candidate
// area could cover, for shortfall messaging on the fast path.
func piecesCoveredBy(candidates []Candidate, req SlabRequest) int {
	total := decimal.Zero
	for _, c := range candidates {
		total = total.Add(c.Quantity)
	}
	if !req.PieceArea().IsPositive() {
		return 0
	}
	n := int(total.Div(req.PieceArea()).IntPart())
	if n > req.Count {
		n = req.Count
	}
	return n
}
