/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for API communication, decoupling the domain model from
  the external contract. Quantities and dimensions travel as JSON numbers
  and are converted to decimals at the boundary.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry validator/v10 struct tags; handlers run the shared
  validator before touching the service. Deeper rules (geometry
  all-or-nothing, shade activation) stay in the inventory package.

SEE ALSO:
  - handlers.go: Uses these types
  - errors.go: Error-to-status mapping
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/slab-engine/inventory"
	"github.com/warp/slab-engine/slab"
)

// =============================================================================
// MATERIALS
// =============================================================================

type ShadeVariantDTO struct {
	CostPrice float64 `json:"cost_price" validate:"gte=0"`
	SalePrice float64 `json:"sale_price" validate:"gte=0"`
	Barcode   string  `json:"barcode,omitempty"`
}

type CreateMaterialRequest struct {
	Name              string                     `json:"name" validate:"required"`
	LowStockThreshold float64                    `json:"low_stock_threshold" validate:"gte=0"`
	Shades            map[string]ShadeVariantDTO `json:"shades" validate:"dive,keys,oneof=AA A B B-,endkeys"`
}

type ActivateShadeRequest struct {
	Shade     string  `json:"shade" validate:"required,oneof=AA A B B-"`
	CostPrice float64 `json:"cost_price" validate:"gte=0"`
	SalePrice float64 `json:"sale_price" validate:"gte=0"`
	Barcode   string  `json:"barcode,omitempty"`
}

type MaterialDTO struct {
	ID                string                     `json:"id"`
	Name              string                     `json:"name"`
	Status            string                     `json:"status"`
	LowStockThreshold string                     `json:"low_stock_threshold"`
	Shades            map[string]ShadeVariantDTO `json:"shades,omitempty"`
	CreatedAt         string                     `json:"created_at"`
}

func toMaterialDTO(m inventory.MaterialType) MaterialDTO {
	dto := MaterialDTO{
		ID:                m.ID,
		Name:              m.Name,
		Status:            string(m.Status),
		LowStockThreshold: m.LowStockThreshold.String(),
		CreatedAt:         m.CreatedAt.Format(time.RFC3339),
	}
	if len(m.Shades) > 0 {
		dto.Shades = make(map[string]ShadeVariantDTO, len(m.Shades))
		for shade, v := range m.Shades {
			cost, _ := v.CostPrice.Float64()
			sale, _ := v.SalePrice.Float64()
			dto.Shades[string(shade)] = ShadeVariantDTO{
				CostPrice: cost,
				SalePrice: sale,
				Barcode:   v.Barcode,
			}
		}
	}
	return dto
}

// =============================================================================
// LOTS
// =============================================================================

type AddStockRequest struct {
	Shade     string  `json:"shade" validate:"required,oneof=AA A B B-"`
	Quantity  float64 `json:"quantity,omitempty" validate:"gte=0"`
	Length    float64 `json:"length,omitempty" validate:"gte=0"`
	Width     float64 `json:"width,omitempty" validate:"gte=0"`
	SlabCount int     `json:"slab_count,omitempty" validate:"gte=0"`
}

type LotDTO struct {
	ID         string `json:"id"`
	MaterialID string `json:"material_id"`
	Shade      string `json:"shade"`
	Quantity   string `json:"quantity"`
	Length     string `json:"length,omitempty"`
	Width      string `json:"width,omitempty"`
	SlabCount  int    `json:"slab_count,omitempty"`
	FromCut    bool   `json:"from_cut,omitempty"`
	CreatedAt  string `json:"created_at"`
}

func toLotDTO(l inventory.StockLot) LotDTO {
	dto := LotDTO{
		ID:         l.ID,
		MaterialID: l.MaterialID,
		Shade:      string(l.Shade),
		Quantity:   l.Quantity.String(),
		FromCut:    l.FromCut,
		CreatedAt:  l.CreatedAt.Format(time.RFC3339),
	}
	if l.Geometry != nil {
		dto.Length = l.Geometry.Length.String()
		dto.Width = l.Geometry.Width.String()
		dto.SlabCount = l.Geometry.SlabCount
	}
	return dto
}

// =============================================================================
// RESERVATIONS
// =============================================================================

type ReserveRequest struct {
	MaterialID string  `json:"material_id" validate:"required"`
	Shade      string  `json:"shade" validate:"required,oneof=AA A B B-"`
	Length     float64 `json:"length" validate:"required,gt=0"`
	Width      float64 `json:"width" validate:"required,gt=0"`
	Count      int     `json:"count" validate:"required,gt=0"`
	ClientName string  `json:"client_name" validate:"required"`
	Barcode    string  `json:"barcode,omitempty"`
}

type PlanStepDTO struct {
	LotID          string `json:"lot_id"`
	Kind           string `json:"kind"`
	Orientation    string `json:"orientation"`
	SlabsUsed      int    `json:"slabs_used"`
	PiecesProduced int    `json:"pieces_produced"`
	SlabsRemaining int    `json:"slabs_remaining"`
	AreaAllocated  string `json:"area_allocated"`
	Waste          string `json:"waste"`
}

type ReservationDTO struct {
	ID          string `json:"id"`
	MaterialID  string `json:"material_id"`
	Shade       string `json:"shade"`
	Quantity    string `json:"quantity"`
	Length      string `json:"length"`
	Width       string `json:"width"`
	SlabCount   int    `json:"slab_count"`
	ClientName  string `json:"client_name"`
	Status      string `json:"status"`
	ReservedAt  string `json:"reserved_at"`
	ReleasedAt  string `json:"released_at,omitempty"`
	DeliveredAt string `json:"delivered_at,omitempty"`
}

type ReserveResponse struct {
	Reservation     ReservationDTO `json:"reservation"`
	TotalAllocated  string         `json:"total_allocated"`
	TotalWaste      string         `json:"total_waste"`
	Steps           []PlanStepDTO  `json:"steps"`
	LotsUpdated     int            `json:"lots_updated"`
	LotsDeleted     int            `json:"lots_deleted"`
	RemnantsCreated int            `json:"remnants_created"`
	Remaining       string         `json:"remaining_quantity"`
	Status          string         `json:"stock_status"`
}

type TransitionResponse struct {
	Reservation   ReservationDTO `json:"reservation"`
	RestoredLotID string         `json:"restored_lot_id,omitempty"`
	Remaining     string         `json:"remaining_quantity"`
	Status        string         `json:"stock_status"`
}

func toReservationDTO(r inventory.Reservation) ReservationDTO {
	dto := ReservationDTO{
		ID:         r.ID,
		MaterialID: r.MaterialID,
		Shade:      string(r.Shade),
		Quantity:   r.Quantity.String(),
		Length:     r.Length.String(),
		Width:      r.Width.String(),
		SlabCount:  r.SlabCount,
		ClientName: r.ClientName,
		Status:     string(r.Status),
		ReservedAt: r.ReservedAt.Format(time.RFC3339),
	}
	if r.ReleasedAt != nil {
		dto.ReleasedAt = r.ReleasedAt.Format(time.RFC3339)
	}
	if r.DeliveredAt != nil {
		dto.DeliveredAt = r.DeliveredAt.Format(time.RFC3339)
	}
	return dto
}

func toPlanStepDTOs(steps []slab.PlanStep) []PlanStepDTO {
	out := make([]PlanStepDTO, len(steps))
	for i, s := range steps {
		out[i] = PlanStepDTO{
			LotID:          s.LotID,
			Kind:           string(s.Kind),
			Orientation:    string(s.Orientation),
			SlabsUsed:      s.SlabsUsed,
			PiecesProduced: s.PiecesProduced,
			SlabsRemaining: s.SlabsRemaining,
			AreaAllocated:  s.AreaAllocated.String(),
			Waste:          s.Waste.String(),
		}
	}
	return out
}

// =============================================================================
// LEDGER & AVAILABILITY
// =============================================================================

type LedgerEntryDTO struct {
	ID          string `json:"id"`
	MaterialID  string `json:"material_id"`
	Shade       string `json:"shade"`
	Direction   string `json:"direction"`
	Quantity    string `json:"quantity"`
	Reason      string `json:"reason,omitempty"`
	ReferenceID string `json:"reference_id,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func toLedgerEntryDTO(e inventory.LedgerEntry) LedgerEntryDTO {
	return LedgerEntryDTO{
		ID:          e.ID,
		MaterialID:  e.MaterialID,
		Shade:       string(e.Shade),
		Direction:   string(e.Direction),
		Quantity:    e.Quantity.String(),
		Reason:      e.Reason,
		ReferenceID: e.ReferenceID,
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
	}
}

type AvailabilityDTO struct {
	Available bool `json:"available"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func dec(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }
