/*
store.go - Persistence interface and atomic mutation sets

PURPOSE:
  Defines what the inventory Service needs from storage. InsertLot and the
  Apply* methods are the only writes that touch more than one record, and each MUST
  execute as a single all-or-nothing unit: a reservation that deletes a
  source lot but fails before writing the remnant lot or ledger entry would
  corrupt the area-conservation invariant, so partial application must be
  impossible to observe.

CONCURRENCY:
  Lot writes inside a ReservationMutation carry the slab count observed when
  the planning snapshot was taken (ExpectedCount). An implementation must
  refuse the whole mutation with slab.ErrStorageConflict when any guard
  misses - the caller then re-fetches candidates and re-plans. Reservation
  transitions are guarded on the Reserved status the same way, which is what
  makes terminal transitions idempotent-failing rather than double-applying.

IMPLEMENTATIONS:
  store/sqlite: Production store, one sql transaction per mutation set.
  inventory/store: In-memory store for unit tests.
*/
package inventory

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MUTATION SETS
// =============================================================================

// LotUpdate shrinks a surviving lot. ExpectedCount is the optimistic guard.
type LotUpdate struct {
	LotID         string
	ExpectedCount int
	NewCount      int
	NewQuantity   decimal.Decimal
}

// LotDelete removes a fully consumed lot, guarded the same way.
type LotDelete struct {
	LotID         string
	ExpectedCount int
}

// ReservationMutation is the full effect of one successful PlanAndReserve.
type ReservationMutation struct {
	MaterialID string
	Shade      Shade

	Updates  []LotUpdate
	Deletes  []LotDelete
	Remnants []StockLot

	Reservation Reservation
	Ledger      []LedgerEntry

	// LowStockThreshold is read inside the transaction so the post-mutation
	// status is derived from the same snapshot it mutates.
	LowStockThreshold decimal.Decimal
}

// TransitionMutation is the effect of a reservation state transition.
// RestoredLot is non-nil for Release/Cancel and nil for Deliver.
type TransitionMutation struct {
	ReservationID string
	FromStatus    ReservationStatus // guard: mutation fails unless current status matches
	ToStatus      ReservationStatus

	RestoredLot *StockLot
	Ledger      LedgerEntry

	LowStockThreshold decimal.Decimal
}

// ApplyResult reports the post-commit aggregate for the affected material.
type ApplyResult struct {
	RemainingQuantity decimal.Decimal
	Status            StockStatus
}

// =============================================================================
// STORE
// =============================================================================

// Store is the persistence boundary for the inventory engine.
type Store interface {
	// Materials
	SaveMaterial(ctx context.Context, m MaterialType) error
	GetMaterial(ctx context.Context, id string) (*MaterialType, error)
	ListMaterials(ctx context.Context) ([]MaterialType, error)

	// Lots. LotsForShade returns oldest-first so planning drains old stock
	// before new. InsertLot is the stock-in path and must append its ledger
	// entry in the same unit of work.
	InsertLot(ctx context.Context, lot StockLot, entry LedgerEntry) (ApplyResult, error)
	LotsForShade(ctx context.Context, materialID string, shade Shade) ([]StockLot, error)
	ListLots(ctx context.Context, materialID string) ([]StockLot, error)

	// Reservations
	GetReservation(ctx context.Context, id string) (*Reservation, error)
	ListReservations(ctx context.Context, materialID string) ([]Reservation, error)

	// Ledger (append-only; reads only here, writes ride the mutation sets)
	LedgerEntries(ctx context.Context, materialID string) ([]LedgerEntry, error)

	// Atomic mutation sets. All-or-nothing; see the file header.
	ApplyReservation(ctx context.Context, m ReservationMutation) (ApplyResult, error)
	ApplyTransition(ctx context.Context, m TransitionMutation) (ApplyResult, error)
}
