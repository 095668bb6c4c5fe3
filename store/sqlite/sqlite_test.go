package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/slab-engine/inventory"
	"github.com/warp/slab-engine/slab"
)

func d(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func newStore(t *testing.T) *Store {
	t.Helper()
	st, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func seedMaterial(t *testing.T, st *Store, id string, threshold float64) inventory.MaterialType {
	t.Helper()
	m := inventory.MaterialType{
		ID:   id,
		Name: "Carrara White",
		Shades: map[inventory.Shade]inventory.ShadeVariant{
			inventory.ShadeA: {CostPrice: d(40), SalePrice: d(65), Barcode: "BC-A"},
		},
		LowStockThreshold: d(threshold),
		Status:            inventory.StatusOutOfStock,
		CreatedAt:         time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
	}
	require.NoError(t, st.SaveMaterial(context.Background(), m))
	return m
}

func geometryLot(id, materialID string, length, width float64, count int, createdAt time.Time) inventory.StockLot {
	geo := &inventory.LotGeometry{Length: d(length), Width: d(width), SlabCount: count}
	return inventory.StockLot{
		ID:         id,
		MaterialID: materialID,
		Shade:      inventory.ShadeA,
		Quantity:   geo.Area(),
		Geometry:   geo,
		CreatedAt:  createdAt,
	}
}

func inEntry(id string, lot inventory.StockLot) inventory.LedgerEntry {
	return inventory.LedgerEntry{
		ID:          id,
		MaterialID:  lot.MaterialID,
		Shade:       lot.Shade,
		Direction:   inventory.DirectionIn,
		Quantity:    lot.Quantity,
		Reason:      "stock in",
		ReferenceID: lot.ID,
		CreatedAt:   lot.CreatedAt,
	}
}

func seedLot(t *testing.T, st *Store, lot inventory.StockLot) inventory.ApplyResult {
	t.Helper()
	result, err := st.InsertLot(context.Background(), lot, inEntry("led-"+lot.ID, lot))
	require.NoError(t, err)
	return result
}

// =============================================================================
// MATERIALS
// =============================================================================

func TestMaterialRoundTrip(t *testing.T) {
	st := newStore(t)
	saved := seedMaterial(t, st, "mat-1", 50)

	got, err := st.GetMaterial(context.Background(), "mat-1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, saved.Name, got.Name)
	assert.True(t, got.LowStockThreshold.Equal(d(50)))
	assert.Equal(t, inventory.StatusOutOfStock, got.Status)
	require.Contains(t, got.Shades, inventory.ShadeA)
	assert.True(t, got.Shades[inventory.ShadeA].SalePrice.Equal(d(65)))
	assert.Equal(t, "BC-A", got.Shades[inventory.ShadeA].Barcode)
}

func TestGetMaterial_Missing(t *testing.T) {
	st := newStore(t)
	got, err := st.GetMaterial(context.Background(), "mat-missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSaveMaterial_ReplacesShades(t *testing.T) {
	st := newStore(t)
	m := seedMaterial(t, st, "mat-1", 0)

	m.Shades = map[inventory.Shade]inventory.ShadeVariant{
		inventory.ShadeB: {CostPrice: d(25), SalePrice: d(40), Barcode: "BC-B"},
	}
	require.NoError(t, st.SaveMaterial(context.Background(), m))

	got, err := st.GetMaterial(context.Background(), "mat-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.NotContains(t, got.Shades, inventory.ShadeA)
	require.Contains(t, got.Shades, inventory.ShadeB)
}

// =============================================================================
// LOTS
// =============================================================================

func TestInsertLot_GeometryRoundTripAndStatus(t *testing.T) {
	st := newStore(t)
	seedMaterial(t, st, "mat-1", 0)

	result := seedLot(t, st, geometryLot("lot-1", "mat-1", 5, 3, 4,
		time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)))
	assert.True(t, result.RemainingQuantity.Equal(d(60)))
	assert.Equal(t, inventory.StatusInStock, result.Status)

	lots, err := st.ListLots(context.Background(), "mat-1")
	require.NoError(t, err)
	require.Len(t, lots, 1)
	require.NotNil(t, lots[0].Geometry)
	assert.True(t, lots[0].Geometry.Length.Equal(d(5)))
	assert.True(t, lots[0].Geometry.Width.Equal(d(3)))
	assert.Equal(t, 4, lots[0].Geometry.SlabCount)
	assert.True(t, lots[0].Quantity.Equal(d(60)))

	m, err := st.GetMaterial(context.Background(), "mat-1")
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusInStock, m.Status)

	entries, err := st.LedgerEntries(context.Background(), "mat-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, inventory.DirectionIn, entries[0].Direction)
	assert.Equal(t, "lot-1", entries[0].ReferenceID)
}

func TestInsertLot_NoGeometry(t *testing.T) {
	st := newStore(t)
	seedMaterial(t, st, "mat-1", 0)

	lot := inventory.StockLot{
		ID:         "lot-1",
		MaterialID: "mat-1",
		Shade:      inventory.ShadeA,
		Quantity:   d(120.5),
		CreatedAt:  time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC),
	}
	_, err := st.InsertLot(context.Background(), lot, inEntry("led-1", lot))
	require.NoError(t, err)

	lots, err := st.ListLots(context.Background(), "mat-1")
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Nil(t, lots[0].Geometry)
	assert.True(t, lots[0].Quantity.Equal(d(120.5)))
}

func TestInsertLot_UnknownMaterial(t *testing.T) {
	st := newStore(t)
	lot := geometryLot("lot-1", "mat-missing", 5, 3, 1, time.Now().UTC())
	_, err := st.InsertLot(context.Background(), lot, inEntry("led-1", lot))
	assert.ErrorIs(t, err, inventory.ErrMaterialNotFound)
}

func TestLotsForShade_OldestFirst(t *testing.T) {
	st := newStore(t)
	seedMaterial(t, st, "mat-1", 0)

	base := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	seedLot(t, st, geometryLot("lot-b", "mat-1", 5, 3, 1, base.Add(2*time.Hour)))
	seedLot(t, st, geometryLot("lot-a", "mat-1", 5, 3, 1, base))
	seedLot(t, st, geometryLot("lot-c", "mat-1", 5, 3, 1, base.Add(4*time.Hour)))

	lots, err := st.LotsForShade(context.Background(), "mat-1", inventory.ShadeA)
	require.NoError(t, err)
	require.Len(t, lots, 3)
	assert.Equal(t, "lot-a", lots[0].ID)
	assert.Equal(t, "lot-b", lots[1].ID)
	assert.Equal(t, "lot-c", lots[2].ID)
}

// =============================================================================
// APPLY RESERVATION
// =============================================================================

func reservation(id string) inventory.Reservation {
	return inventory.Reservation{
		ID:         id,
		MaterialID: "mat-1",
		Shade:      inventory.ShadeA,
		Quantity:   d(30),
		Length:     d(5),
		Width:      d(3),
		SlabCount:  2,
		ClientName: "Atlas Construction",
		Status:     inventory.StatusReserved,
		ReservedAt: time.Date(2024, 3, 3, 10, 0, 0, 0, time.UTC),
	}
}

func outEntry(id, referenceID string, quantity decimal.Decimal) inventory.LedgerEntry {
	return inventory.LedgerEntry{
		ID:          id,
		MaterialID:  "mat-1",
		Shade:       inventory.ShadeA,
		Direction:   inventory.DirectionOut,
		Quantity:    quantity,
		Reason:      "reserved",
		ReferenceID: referenceID,
		CreatedAt:   time.Date(2024, 3, 3, 10, 0, 0, 0, time.UTC),
	}
}

func TestApplyReservation_CommitsWholeSet(t *testing.T) {
	// GIVEN: Two lots of 4 and 1 slabs
	// WHEN: A mutation shrinks one, deletes the other, and adds a remnant
	// THEN: Every piece lands and the status reflects the new total
	st := newStore(t)
	seedMaterial(t, st, "mat-1", 0)
	base := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	seedLot(t, st, geometryLot("lot-1", "mat-1", 5, 3, 4, base))
	seedLot(t, st, geometryLot("lot-2", "mat-1", 10, 10, 1, base.Add(time.Hour)))

	remnant := geometryLot("lot-rem", "mat-1", 2, 10, 1, base.Add(2*time.Hour))
	remnant.FromCut = true

	result, err := st.ApplyReservation(context.Background(), inventory.ReservationMutation{
		MaterialID: "mat-1",
		Shade:      inventory.ShadeA,
		Updates: []inventory.LotUpdate{
			{LotID: "lot-1", ExpectedCount: 4, NewCount: 2, NewQuantity: d(30)},
		},
		Deletes: []inventory.LotDelete{
			{LotID: "lot-2", ExpectedCount: 1},
		},
		Remnants:    []inventory.StockLot{remnant},
		Reservation: reservation("res-1"),
		Ledger: []inventory.LedgerEntry{
			outEntry("led-out-1", "res-1", d(30)),
			outEntry("led-out-2", "res-1", d(100)),
		},
		LowStockThreshold: decimal.Zero,
	})
	require.NoError(t, err)

	// 30 surviving + 20 remnant
	assert.True(t, result.RemainingQuantity.Equal(d(50)))
	assert.Equal(t, inventory.StatusInStock, result.Status)

	lots, err := st.ListLots(context.Background(), "mat-1")
	require.NoError(t, err)
	require.Len(t, lots, 2)
	byID := map[string]inventory.StockLot{}
	for _, l := range lots {
		byID[l.ID] = l
	}
	assert.Equal(t, 2, byID["lot-1"].Geometry.SlabCount)
	assert.True(t, byID["lot-1"].Quantity.Equal(d(30)))
	assert.True(t, byID["lot-rem"].FromCut)
	assert.NotContains(t, byID, "lot-2")

	res, err := st.GetReservation(context.Background(), "res-1")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, inventory.StatusReserved, res.Status)
	assert.True(t, res.Quantity.Equal(d(30)))

	entries, err := st.LedgerEntries(context.Background(), "mat-1")
	require.NoError(t, err)
	assert.Len(t, entries, 4) // 2 stock-in + 2 reservation OUT
}

func TestApplyReservation_StaleGuardConflicts(t *testing.T) {
	st := newStore(t)
	seedMaterial(t, st, "mat-1", 0)
	seedLot(t, st, geometryLot("lot-1", "mat-1", 5, 3, 4,
		time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)))

	_, err := st.ApplyReservation(context.Background(), inventory.ReservationMutation{
		MaterialID: "mat-1",
		Shade:      inventory.ShadeA,
		Updates: []inventory.LotUpdate{
			{LotID: "lot-1", ExpectedCount: 3, NewCount: 1, NewQuantity: d(15)},
		},
		Reservation: reservation("res-1"),
	})
	assert.ErrorIs(t, err, slab.ErrStorageConflict)
}

func TestApplyReservation_ConflictRollsBackEverything(t *testing.T) {
	// GIVEN: A mutation whose first update succeeds and whose delete guard is stale
	// WHEN: ApplyReservation fails mid-sequence
	// THEN: The earlier update is rolled back and no reservation or ledger
	//       entry is visible
	st := newStore(t)
	seedMaterial(t, st, "mat-1", 0)
	base := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	seedLot(t, st, geometryLot("lot-1", "mat-1", 5, 3, 4, base))
	seedLot(t, st, geometryLot("lot-2", "mat-1", 10, 10, 1, base.Add(time.Hour)))

	_, err := st.ApplyReservation(context.Background(), inventory.ReservationMutation{
		MaterialID: "mat-1",
		Shade:      inventory.ShadeA,
		Updates: []inventory.LotUpdate{
			{LotID: "lot-1", ExpectedCount: 4, NewCount: 2, NewQuantity: d(30)}, // valid
		},
		Deletes: []inventory.LotDelete{
			{LotID: "lot-2", ExpectedCount: 5}, // stale snapshot
		},
		Reservation: reservation("res-1"),
		Ledger: []inventory.LedgerEntry{
			outEntry("led-out-1", "res-1", d(30)),
		},
	})
	require.ErrorIs(t, err, slab.ErrStorageConflict)

	lots, err := st.ListLots(context.Background(), "mat-1")
	require.NoError(t, err)
	require.Len(t, lots, 2)
	for _, l := range lots {
		switch l.ID {
		case "lot-1":
			assert.Equal(t, 4, l.Geometry.SlabCount, "partial update must not survive")
			assert.True(t, l.Quantity.Equal(d(60)))
		case "lot-2":
			assert.Equal(t, 1, l.Geometry.SlabCount)
		}
	}

	res, err := st.GetReservation(context.Background(), "res-1")
	require.NoError(t, err)
	assert.Nil(t, res)

	entries, err := st.LedgerEntries(context.Background(), "mat-1")
	require.NoError(t, err)
	assert.Len(t, entries, 2, "stock-in entries only")
}

func TestApplyReservation_LowStockStatus(t *testing.T) {
	st := newStore(t)
	seedMaterial(t, st, "mat-1", 50)
	seedLot(t, st, geometryLot("lot-1", "mat-1", 5, 3, 4,
		time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)))

	result, err := st.ApplyReservation(context.Background(), inventory.ReservationMutation{
		MaterialID: "mat-1",
		Shade:      inventory.ShadeA,
		Updates: []inventory.LotUpdate{
			{LotID: "lot-1", ExpectedCount: 4, NewCount: 2, NewQuantity: d(30)},
		},
		Reservation:       reservation("res-1"),
		LowStockThreshold: d(50),
	})
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusLowStock, result.Status)
	assert.True(t, result.RemainingQuantity.Equal(d(30)))
}

// =============================================================================
// APPLY TRANSITION
// =============================================================================

func seedReservation(t *testing.T, st *Store) {
	t.Helper()
	seedMaterial(t, st, "mat-1", 0)
	seedLot(t, st, geometryLot("lot-1", "mat-1", 5, 3, 4,
		time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)))
	_, err := st.ApplyReservation(context.Background(), inventory.ReservationMutation{
		MaterialID: "mat-1",
		Shade:      inventory.ShadeA,
		Updates: []inventory.LotUpdate{
			{LotID: "lot-1", ExpectedCount: 4, NewCount: 2, NewQuantity: d(30)},
		},
		Reservation: reservation("res-1"),
		Ledger:      []inventory.LedgerEntry{outEntry("led-out-1", "res-1", d(30))},
	})
	require.NoError(t, err)
}

func TestApplyTransition_ReleaseRestores(t *testing.T) {
	st := newStore(t)
	seedReservation(t, st)

	now := time.Date(2024, 3, 4, 11, 0, 0, 0, time.UTC)
	restored := geometryLot("lot-restored", "mat-1", 5, 3, 2, now)
	result, err := st.ApplyTransition(context.Background(), inventory.TransitionMutation{
		ReservationID: "res-1",
		FromStatus:    inventory.StatusReserved,
		ToStatus:      inventory.StatusReleased,
		RestoredLot:   &restored,
		Ledger: inventory.LedgerEntry{
			ID: "led-in-1", MaterialID: "mat-1", Shade: inventory.ShadeA,
			Direction: inventory.DirectionIn, Quantity: d(30),
			Reason: "reservation released", ReferenceID: "res-1", CreatedAt: now,
		},
	})
	require.NoError(t, err)
	assert.True(t, result.RemainingQuantity.Equal(d(60)))
	assert.Equal(t, inventory.StatusInStock, result.Status)

	res, err := st.GetReservation(context.Background(), "res-1")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, inventory.StatusReleased, res.Status)
	require.NotNil(t, res.ReleasedAt)
	assert.True(t, res.ReleasedAt.Equal(now))
	assert.Nil(t, res.DeliveredAt)
}

func TestApplyTransition_DeliverKeepsStockStatus(t *testing.T) {
	st := newStore(t)
	seedReservation(t, st)

	now := time.Date(2024, 3, 4, 11, 0, 0, 0, time.UTC)
	result, err := st.ApplyTransition(context.Background(), inventory.TransitionMutation{
		ReservationID: "res-1",
		FromStatus:    inventory.StatusReserved,
		ToStatus:      inventory.StatusDelivered,
		Ledger: inventory.LedgerEntry{
			ID: "led-out-2", MaterialID: "mat-1", Shade: inventory.ShadeA,
			Direction: inventory.DirectionOut, Quantity: d(30),
			Reason: "delivered to Atlas Construction", ReferenceID: "res-1", CreatedAt: now,
		},
	})
	require.NoError(t, err)
	assert.True(t, result.RemainingQuantity.Equal(d(30)))

	res, err := st.GetReservation(context.Background(), "res-1")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, inventory.StatusDelivered, res.Status)
	require.NotNil(t, res.DeliveredAt)
	assert.Nil(t, res.ReleasedAt)

	lots, err := st.ListLots(context.Background(), "mat-1")
	require.NoError(t, err)
	require.Len(t, lots, 1, "delivery restores nothing")
}

func TestApplyTransition_StatusGuard(t *testing.T) {
	st := newStore(t)
	seedReservation(t, st)

	now := time.Date(2024, 3, 4, 11, 0, 0, 0, time.UTC)
	entry := inventory.LedgerEntry{
		ID: "led-out-2", MaterialID: "mat-1", Shade: inventory.ShadeA,
		Direction: inventory.DirectionOut, Quantity: d(30),
		Reason: "delivered", ReferenceID: "res-1", CreatedAt: now,
	}
	_, err := st.ApplyTransition(context.Background(), inventory.TransitionMutation{
		ReservationID: "res-1",
		FromStatus:    inventory.StatusReserved,
		ToStatus:      inventory.StatusDelivered,
		Ledger:        entry,
	})
	require.NoError(t, err)

	entry.ID = "led-out-3"
	_, err = st.ApplyTransition(context.Background(), inventory.TransitionMutation{
		ReservationID: "res-1",
		FromStatus:    inventory.StatusReserved,
		ToStatus:      inventory.StatusDelivered,
		Ledger:        entry,
	})
	var terr *inventory.IllegalTransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, inventory.StatusDelivered, terr.Current)

	entries, err := st.LedgerEntries(context.Background(), "mat-1")
	require.NoError(t, err)
	assert.Len(t, entries, 3, "failed transition appends nothing")
}

func TestApplyTransition_UnknownReservation(t *testing.T) {
	st := newStore(t)
	seedMaterial(t, st, "mat-1", 0)

	_, err := st.ApplyTransition(context.Background(), inventory.TransitionMutation{
		ReservationID: "res-missing",
		FromStatus:    inventory.StatusReserved,
		ToStatus:      inventory.StatusReleased,
		Ledger:        inventory.LedgerEntry{ID: "led-1", CreatedAt: time.Now().UTC()},
	})
	assert.ErrorIs(t, err, inventory.ErrReservationNotFound)
}
