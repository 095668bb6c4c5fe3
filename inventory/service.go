/*
service.go - Inventory service: stock-in and the reservation transaction

PURPOSE:
  Orchestrates the core flow: fetch candidate lots, run the allocation
  planner, translate the plan into one atomic mutation set, apply it, and
  emit the low-stock signal. This is the only place planner output meets
  storage.

RESERVATION FLOW:

  request ──▶ preconditions ──▶ snapshot lots ──▶ plan ──▶ apply (atomic)
              (shade active,     (oldest first,             │
               barcode match)     geometry only)            ▼
                                                   lots shrunk/deleted,
                                                   remnants created,
                                                   reservation + ledger
                                                   written, status updated
                                                            │
                                                            ▼
                                                low-stock event (best effort)

  Planning is pure; nothing is committed on a failed plan. The apply step is
  a single Store mutation set that either lands completely or not at all.
  A concurrent mutation of the same lots surfaces as slab.ErrStorageConflict
  and the caller re-plans against a fresh snapshot.

SEE ALSO:
  - transitions.go: Release / Deliver / Cancel
  - slab/planner.go: The pure planning half
*/
package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/warp/slab-engine/slab"
)

// Notifier receives low-stock events after a mutation commits. Emission is
// fire-and-forget: it runs outside the atomic core and must not fail the
// reservation.
type Notifier interface {
	LowStock(materialID string, name string, status StockStatus, remaining decimal.Decimal)
}

// LogNotifier logs low-stock events. The default Notifier.
type LogNotifier struct {
	Log *logrus.Logger
}

func (n *LogNotifier) LowStock(materialID, name string, status StockStatus, remaining decimal.Decimal) {
	n.Log.WithFields(logrus.Fields{
		"material_id": materialID,
		"material":    name,
		"status":      status,
		"remaining":   remaining.String(),
	}).Warn("material running low")
}

// Service exposes the inventory engine to collaborators.
type Service struct {
	store    Store
	notifier Notifier
	log      *logrus.Logger
}

// NewService creates a Service. notifier may be nil, in which case low-stock
// events are logged.
func NewService(store Store, notifier Notifier, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.New()
	}
	if notifier == nil {
		notifier = &LogNotifier{Log: log}
	}
	return &Service{store: store, notifier: notifier, log: log}
}

func newID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// =============================================================================
// MATERIALS
// =============================================================================

// CreateMaterial registers a material with its initially active shades.
func (s *Service) CreateMaterial(ctx context.Context, name string, threshold decimal.Decimal, shades map[Shade]ShadeVariant) (*MaterialType, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &slab.ValidationError{Field: "name", Message: "is required"}
	}
	if threshold.IsNegative() {
		return nil, &slab.ValidationError{Field: "low_stock_threshold", Message: "must not be negative"}
	}
	for shade := range shades {
		if !shade.Valid() {
			return nil, &slab.ValidationError{Field: "shade", Message: fmt.Sprintf("unknown grade %q", shade)}
		}
	}
	if shades == nil {
		shades = make(map[Shade]ShadeVariant)
	}

	m := MaterialType{
		ID:                newID("mat"),
		Name:              name,
		Shades:            shades,
		LowStockThreshold: threshold,
		Status:            StatusOutOfStock,
		CreatedAt:         time.Now().UTC(),
	}
	if err := s.store.SaveMaterial(ctx, m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ActivateShade makes a grade orderable on a material (or re-prices it).
func (s *Service) ActivateShade(ctx context.Context, materialID string, shade Shade, variant ShadeVariant) (*MaterialType, error) {
	if !shade.Valid() {
		return nil, &slab.ValidationError{Field: "shade", Message: fmt.Sprintf("unknown grade %q", shade)}
	}
	m, err := s.store.GetMaterial(ctx, materialID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrMaterialNotFound
	}
	if m.Shades == nil {
		m.Shades = make(map[Shade]ShadeVariant)
	}
	m.Shades[shade] = variant
	if err := s.store.SaveMaterial(ctx, *m); err != nil {
		return nil, err
	}
	return m, nil
}

// =============================================================================
// STOCK-IN
// =============================================================================

// AddStockInput describes incoming stock. Geometry is all-or-nothing: either
// all three geometry fields are set, or none are and Quantity carries the
// coarse area directly.
type AddStockInput struct {
	MaterialID string
	Shade      Shade
	Quantity   decimal.Decimal // ignored when geometry is present
	Length     decimal.Decimal
	Width      decimal.Decimal
	SlabCount  int
}

// AddStock creates a lot, appends the IN ledger entry, and recomputes the
// material status, all in one unit of work.
func (s *Service) AddStock(ctx context.Context, in AddStockInput) (*StockLot, error) {
	m, err := s.store.GetMaterial(ctx, in.MaterialID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrMaterialNotFound
	}
	if _, ok := m.Variant(in.Shade); !ok {
		return nil, &ShadeNotActiveError{MaterialID: in.MaterialID, Shade: in.Shade}
	}

	hasAny := in.Length.IsPositive() || in.Width.IsPositive() || in.SlabCount > 0
	hasAll := in.Length.IsPositive() && in.Width.IsPositive() && in.SlabCount > 0
	if hasAny && !hasAll {
		return nil, &slab.ValidationError{Field: "geometry", Message: "length, width and slab_count must be set together"}
	}

	lot := StockLot{
		ID:         newID("lot"),
		MaterialID: in.MaterialID,
		Shade:      in.Shade,
		CreatedAt:  time.Now().UTC(),
	}
	if hasAll {
		lot.Geometry = &LotGeometry{Length: in.Length, Width: in.Width, SlabCount: in.SlabCount}
		lot.Quantity = lot.Geometry.Area()
	} else {
		if !in.Quantity.IsPositive() {
			return nil, &slab.ValidationError{Field: "quantity", Message: "must be positive"}
		}
		lot.Quantity = in.Quantity
	}

	entry := LedgerEntry{
		ID:          newID("led"),
		MaterialID:  in.MaterialID,
		Shade:       in.Shade,
		Direction:   DirectionIn,
		Quantity:    lot.Quantity,
		Reason:      "stock in",
		ReferenceID: lot.ID,
		CreatedAt:   time.Now().UTC(),
	}

	if _, err := s.store.InsertLot(ctx, lot, entry); err != nil {
		return nil, err
	}
	return &lot, nil
}

// =============================================================================
// RESERVATION TRANSACTION
// =============================================================================

// ReserveInput is the PlanAndReserve request contract.
type ReserveInput struct {
	MaterialID string
	Shade      Shade
	Length     decimal.Decimal
	Width      decimal.Decimal
	Count      int
	ClientName string
	Barcode    string // optional; verified against the shade variant when set
}

// ReserveResult exposes the combined totals of a successful reservation.
type ReserveResult struct {
	Reservation     Reservation
	TotalAllocated  decimal.Decimal
	TotalWaste      decimal.Decimal
	Steps           []slab.PlanStep
	LotsUpdated     int
	LotsDeleted     int
	RemnantsCreated int
	Remaining       decimal.Decimal
	Status          StockStatus
}

// PlanAndReserve runs the full reservation transaction: preconditions,
// planning, and atomic application. On any error, storage is untouched.
func (s *Service) PlanAndReserve(ctx context.Context, in ReserveInput) (*ReserveResult, error) {
	req := slab.SlabRequest{Length: in.Length, Width: in.Width, Count: in.Count}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.ClientName) == "" {
		return nil, &slab.ValidationError{Field: "client_name", Message: "is required"}
	}

	material, err := s.store.GetMaterial(ctx, in.MaterialID)
	if err != nil {
		return nil, err
	}
	if material == nil {
		return nil, ErrMaterialNotFound
	}
	variant, ok := material.Variant(in.Shade)
	if !ok {
		return nil, &ShadeNotActiveError{MaterialID: in.MaterialID, Shade: in.Shade}
	}
	if in.Barcode != "" && in.Barcode != variant.Barcode {
		return nil, &BarcodeMismatchError{MaterialID: in.MaterialID, Shade: in.Shade, Supplied: in.Barcode}
	}

	lots, err := s.store.LotsForShade(ctx, in.MaterialID, in.Shade)
	if err != nil {
		return nil, err
	}
	candidates, byID := projectCandidates(lots)
	if len(candidates) == 0 {
		return nil, ErrNoSlabStock
	}

	plan, err := slab.BuildPlan(req, candidates)
	if err != nil {
		return nil, err
	}
	if !plan.CanFulfill {
		return nil, &slab.InsufficientStockError{
			Requested: req.Count,
			Shortfall: plan.Shortfall,
			Message:   plan.Message,
		}
	}

	mutation := s.mutationFor(material, in, plan, byID)
	result, err := s.store.ApplyReservation(ctx, mutation)
	if err != nil {
		return nil, err
	}

	if result.Status != StatusInStock {
		s.notifier.LowStock(material.ID, material.Name, result.Status, result.RemainingQuantity)
	}

	return &ReserveResult{
		Reservation:     mutation.Reservation,
		TotalAllocated:  plan.TotalAllocated,
		TotalWaste:      plan.TotalWaste,
		Steps:           plan.Steps,
		LotsUpdated:     len(mutation.Updates),
		LotsDeleted:     len(mutation.Deletes),
		RemnantsCreated: len(mutation.Remnants),
		Remaining:       result.RemainingQuantity,
		Status:          result.Status,
	}, nil
}

// HasEnoughQuantity is the advisory pre-check with the same semantics as the
// planner's internal fast path. A false answer guarantees PlanAndReserve
// would fail with insufficient stock; true does not guarantee success.
func (s *Service) HasEnoughQuantity(ctx context.Context, materialID string, shade Shade, length, width decimal.Decimal, count int) (bool, error) {
	req := slab.SlabRequest{Length: length, Width: width, Count: count}
	if err := req.Validate(); err != nil {
		return false, err
	}
	lots, err := s.store.LotsForShade(ctx, materialID, shade)
	if err != nil {
		return false, err
	}
	candidates, _ := projectCandidates(lots)
	return slab.HasEnoughQuantity(candidates, req), nil
}

// projectCandidates drops geometry-less lots and keeps a lookup by id.
func projectCandidates(lots []StockLot) ([]slab.Candidate, map[string]StockLot) {
	candidates := make([]slab.Candidate, 0, len(lots))
	byID := make(map[string]StockLot, len(lots))
	for _, lot := range lots {
		if c, ok := lot.Candidate(); ok {
			candidates = append(candidates, c)
			byID[lot.ID] = lot
		}
	}
	return candidates, byID
}

// mutationFor translates a fulfilled plan into the atomic mutation set.
func (s *Service) mutationFor(material *MaterialType, in ReserveInput, plan slab.Plan, lots map[string]StockLot) ReservationMutation {
	now := time.Now().UTC()

	reservation := Reservation{
		ID:         newID("res"),
		MaterialID: material.ID,
		Shade:      in.Shade,
		Quantity:   plan.TotalAllocated,
		Length:     in.Length,
		Width:      in.Width,
		SlabCount:  in.Count,
		ClientName: in.ClientName,
		Status:     StatusReserved,
		ReservedAt: now,
	}

	m := ReservationMutation{
		MaterialID:        material.ID,
		Shade:             in.Shade,
		Reservation:       reservation,
		LowStockThreshold: material.LowStockThreshold,
	}

	for _, step := range plan.Steps {
		src := lots[step.LotID]

		if step.SlabsRemaining == 0 {
			m.Deletes = append(m.Deletes, LotDelete{
				LotID:         step.LotID,
				ExpectedCount: step.SnapshotCount,
			})
		} else {
			geo := *src.Geometry
			geo.SlabCount = step.SlabsRemaining
			m.Updates = append(m.Updates, LotUpdate{
				LotID:         step.LotID,
				ExpectedCount: step.SnapshotCount,
				NewCount:      step.SlabsRemaining,
				NewQuantity:   geo.Area(),
			})
		}

		// One OUT entry per step: the gross material that left the lot.
		stepOut := step.AreaAllocated.Add(step.Waste)
		if step.Remnant != nil {
			stepOut = stepOut.Add(step.Remnant.Area())
		}
		m.Ledger = append(m.Ledger, LedgerEntry{
			ID:          newID("led"),
			MaterialID:  material.ID,
			Shade:       in.Shade,
			Direction:   DirectionOut,
			Quantity:    stepOut,
			Reason:      fmt.Sprintf("reserved (%s from lot %s)", step.Kind, step.LotID),
			ReferenceID: reservation.ID,
			CreatedAt:   now,
		})

		if step.Remnant != nil {
			remnant := StockLot{
				ID:         newID("lot"),
				MaterialID: material.ID,
				Shade:      in.Shade,
				Quantity:   step.Remnant.Area(),
				Geometry: &LotGeometry{
					Length:    step.Remnant.Length,
					Width:     step.Remnant.Width,
					SlabCount: step.Remnant.Count,
				},
				FromCut:   true,
				CreatedAt: now,
			}
			m.Remnants = append(m.Remnants, remnant)
			m.Ledger = append(m.Ledger, LedgerEntry{
				ID:          newID("led"),
				MaterialID:  material.ID,
				Shade:       in.Shade,
				Direction:   DirectionIn,
				Quantity:    remnant.Quantity,
				Reason:      fmt.Sprintf("cut remnant from lot %s", step.LotID),
				ReferenceID: remnant.ID,
				CreatedAt:   now,
			})
		}
	}

	return m
}
