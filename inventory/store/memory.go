/*
Package store provides an in-memory Store for unit tests.

Mirrors the behavior of the production sqlite store, including the
optimistic slab-count guards and the all-or-nothing mutation sets: guards
are checked before any map is touched, so a failed mutation leaves no
partial state behind. Everything is serialized on one mutex.
*/
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/warp/slab-engine/inventory"
	"github.com/warp/slab-engine/slab"
)

// Memory implements inventory.Store with maps.
type Memory struct {
	mu           sync.RWMutex
	materials    map[string]inventory.MaterialType
	lots         map[string]inventory.StockLot
	reservations map[string]inventory.Reservation
	ledger       []inventory.LedgerEntry
	seq          int // insertion order tiebreak for oldest-first queries
	lotSeq       map[string]int
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		materials:    make(map[string]inventory.MaterialType),
		lots:         make(map[string]inventory.StockLot),
		reservations: make(map[string]inventory.Reservation),
		lotSeq:       make(map[string]int),
	}
}

// =============================================================================
// MATERIALS
// =============================================================================

func (m *Memory) SaveMaterial(ctx context.Context, mat inventory.MaterialType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.materials[mat.ID] = cloneMaterial(mat)
	return nil
}

func (m *Memory) GetMaterial(ctx context.Context, id string) (*inventory.MaterialType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mat, ok := m.materials[id]
	if !ok {
		return nil, nil
	}
	c := cloneMaterial(mat)
	return &c, nil
}

func (m *Memory) ListMaterials(ctx context.Context) ([]inventory.MaterialType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]inventory.MaterialType, 0, len(m.materials))
	for _, mat := range m.materials {
		out = append(out, cloneMaterial(mat))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// LOTS
// =============================================================================

func (m *Memory) InsertLot(ctx context.Context, lot inventory.StockLot, entry inventory.LedgerEntry) (inventory.ApplyResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.putLot(lot)
	m.ledger = append(m.ledger, entry)
	return m.refreshStatus(lot.MaterialID)
}

func (m *Memory) LotsForShade(ctx context.Context, materialID string, shade inventory.Shade) ([]inventory.StockLot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []inventory.StockLot
	for _, lot := range m.lots {
		if lot.MaterialID == materialID && lot.Shade == shade {
			out = append(out, cloneLot(lot))
		}
	}
	m.sortOldestFirst(out)
	return out, nil
}

func (m *Memory) ListLots(ctx context.Context, materialID string) ([]inventory.StockLot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []inventory.StockLot
	for _, lot := range m.lots {
		if lot.MaterialID == materialID {
			out = append(out, cloneLot(lot))
		}
	}
	m.sortOldestFirst(out)
	return out, nil
}

// =============================================================================
// RESERVATIONS & LEDGER
// =============================================================================

func (m *Memory) GetReservation(ctx context.Context, id string) (*inventory.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res, ok := m.reservations[id]
	if !ok {
		return nil, nil
	}
	c := res
	return &c, nil
}

func (m *Memory) ListReservations(ctx context.Context, materialID string) ([]inventory.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []inventory.Reservation
	for _, res := range m.reservations {
		if materialID == "" || res.MaterialID == materialID {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReservedAt.Before(out[j].ReservedAt) })
	return out, nil
}

func (m *Memory) LedgerEntries(ctx context.Context, materialID string) ([]inventory.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []inventory.LedgerEntry
	for _, e := range m.ledger {
		if materialID == "" || e.MaterialID == materialID {
			out = append(out, e)
		}
	}
	return out, nil
}

// =============================================================================
// ATOMIC MUTATION SETS
// =============================================================================

func (m *Memory) ApplyReservation(ctx context.Context, mut inventory.ReservationMutation) (inventory.ApplyResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Validate every guard before touching anything, so a conflict leaves
	// the store exactly as it was.
	for _, u := range mut.Updates {
		if !m.guardHolds(u.LotID, u.ExpectedCount) {
			return inventory.ApplyResult{}, slab.ErrStorageConflict
		}
	}
	for _, d := range mut.Deletes {
		if !m.guardHolds(d.LotID, d.ExpectedCount) {
			return inventory.ApplyResult{}, slab.ErrStorageConflict
		}
	}

	for _, u := range mut.Updates {
		lot := m.lots[u.LotID]
		lot.Geometry.SlabCount = u.NewCount
		lot.Quantity = u.NewQuantity
		m.lots[u.LotID] = lot
	}
	for _, d := range mut.Deletes {
		delete(m.lots, d.LotID)
	}
	for _, r := range mut.Remnants {
		m.putLot(r)
	}
	m.reservations[mut.Reservation.ID] = mut.Reservation
	m.ledger = append(m.ledger, mut.Ledger...)

	return m.setStatus(mut.MaterialID, mut.LowStockThreshold)
}

func (m *Memory) ApplyTransition(ctx context.Context, mut inventory.TransitionMutation) (inventory.ApplyResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	res, ok := m.reservations[mut.ReservationID]
	if !ok {
		return inventory.ApplyResult{}, inventory.ErrReservationNotFound
	}
	if res.Status != mut.FromStatus {
		return inventory.ApplyResult{}, &inventory.IllegalTransitionError{
			ReservationID: mut.ReservationID,
			Current:       res.Status,
			Attempted:     string(mut.ToStatus),
		}
	}

	res.Status = mut.ToStatus
	now := mut.Ledger.CreatedAt
	switch mut.ToStatus {
	case inventory.StatusDelivered:
		res.DeliveredAt = &now
	default:
		res.ReleasedAt = &now
	}
	m.reservations[mut.ReservationID] = res

	if mut.RestoredLot != nil {
		m.putLot(*mut.RestoredLot)
	}
	m.ledger = append(m.ledger, mut.Ledger)

	if mut.RestoredLot == nil {
		// Delivery moves no stock; report the status as-is.
		mat := m.materials[res.MaterialID]
		return inventory.ApplyResult{
			RemainingQuantity: m.totalQuantity(res.MaterialID),
			Status:            mat.Status,
		}, nil
	}
	return m.setStatus(res.MaterialID, mut.LowStockThreshold)
}

// =============================================================================
// INTERNALS
// =============================================================================

func (m *Memory) putLot(lot inventory.StockLot) {
	m.seq++
	m.lotSeq[lot.ID] = m.seq
	m.lots[lot.ID] = cloneLot(lot)
}

func (m *Memory) guardHolds(lotID string, expected int) bool {
	lot, ok := m.lots[lotID]
	return ok && lot.Geometry != nil && lot.Geometry.SlabCount == expected
}

func (m *Memory) sortOldestFirst(lots []inventory.StockLot) {
	sort.Slice(lots, func(i, j int) bool {
		a, b := lots[i], lots[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return m.lotSeq[a.ID] < m.lotSeq[b.ID]
	})
}

func (m *Memory) totalQuantity(materialID string) decimal.Decimal {
	total := decimal.Zero
	for _, lot := range m.lots {
		if lot.MaterialID == materialID {
			total = total.Add(lot.Quantity)
		}
	}
	return total
}

// setStatus recomputes and persists the aggregate stock status, returning it.
func (m *Memory) setStatus(materialID string, threshold decimal.Decimal) (inventory.ApplyResult, error) {
	remaining := m.totalQuantity(materialID)
	status := inventory.StatusFor(remaining, threshold)
	if mat, ok := m.materials[materialID]; ok {
		mat.Status = status
		m.materials[materialID] = mat
	}
	return inventory.ApplyResult{RemainingQuantity: remaining, Status: status}, nil
}

// refreshStatus recomputes status using the material's own threshold.
func (m *Memory) refreshStatus(materialID string) (inventory.ApplyResult, error) {
	threshold := decimal.Zero
	if mat, ok := m.materials[materialID]; ok {
		threshold = mat.LowStockThreshold
	}
	return m.setStatus(materialID, threshold)
}

func cloneMaterial(m inventory.MaterialType) inventory.MaterialType {
	c := m
	c.Shades = make(map[inventory.Shade]inventory.ShadeVariant, len(m.Shades))
	for k, v := range m.Shades {
		c.Shades[k] = v
	}
	return c
}

func cloneLot(l inventory.StockLot) inventory.StockLot {
	c := l
	if l.Geometry != nil {
		g := *l.Geometry
		c.Geometry = &g
	}
	return c
}
