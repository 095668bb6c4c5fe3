/*
handlers.go - HTTP handlers for the slab inventory API

PURPOSE:
  Thin HTTP adapters over inventory.Service. Handlers decode and validate
  DTOs, call the service, and translate the engine's error taxonomy to
  status codes (see errors.go). No business rules live here.

SEE ALSO:
  - server.go: Router wiring
  - dto.go: Request/response shapes
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/warp/slab-engine/inventory"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service  *inventory.Service
	Store    inventory.Store
	Log      *logrus.Logger
	validate *validator.Validate
}

// NewHandler creates a handler around the service and its store.
func NewHandler(svc *inventory.Service, store inventory.Store, log *logrus.Logger) *Handler {
	if log == nil {
		log = logrus.New()
	}
	return &Handler{
		Service:  svc,
		Store:    store,
		Log:      log,
		validate: validator.New(),
	}
}

// decode unmarshals and validates a request body.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return false
	}
	return true
}

// =============================================================================
// MATERIAL HANDLERS
// =============================================================================

// ListMaterials returns all materials.
func (h *Handler) ListMaterials(w http.ResponseWriter, r *http.Request) {
	materials, err := h.Store.ListMaterials(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list materials", err)
		return
	}
	dtos := make([]MaterialDTO, len(materials))
	for i, m := range materials {
		dtos[i] = toMaterialDTO(m)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetMaterial returns one material with its active shades.
func (h *Handler) GetMaterial(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	m, err := h.Store.GetMaterial(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get material", err)
		return
	}
	if m == nil {
		writeError(w, http.StatusNotFound, "Material not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toMaterialDTO(*m))
}

// CreateMaterial registers a material with its initially active shades.
func (h *Handler) CreateMaterial(w http.ResponseWriter, r *http.Request) {
	var req CreateMaterialRequest
	if !h.decode(w, r, &req) {
		return
	}

	shades := make(map[inventory.Shade]inventory.ShadeVariant, len(req.Shades))
	for shade, v := range req.Shades {
		shades[inventory.Shade(shade)] = inventory.ShadeVariant{
			CostPrice: dec(v.CostPrice),
			SalePrice: dec(v.SalePrice),
			Barcode:   v.Barcode,
		}
	}

	m, err := h.Service.CreateMaterial(r.Context(), req.Name, dec(req.LowStockThreshold), shades)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMaterialDTO(*m))
}

// ActivateShade makes a grade orderable on an existing material.
func (h *Handler) ActivateShade(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req ActivateShadeRequest
	if !h.decode(w, r, &req) {
		return
	}

	m, err := h.Service.ActivateShade(r.Context(), id, inventory.Shade(req.Shade), inventory.ShadeVariant{
		CostPrice: dec(req.CostPrice),
		SalePrice: dec(req.SalePrice),
		Barcode:   req.Barcode,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMaterialDTO(*m))
}

// =============================================================================
// STOCK HANDLERS
// =============================================================================

// AddStock brings a new lot into inventory.
func (h *Handler) AddStock(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req AddStockRequest
	if !h.decode(w, r, &req) {
		return
	}

	lot, err := h.Service.AddStock(r.Context(), inventory.AddStockInput{
		MaterialID: id,
		Shade:      inventory.Shade(req.Shade),
		Quantity:   dec(req.Quantity),
		Length:     dec(req.Length),
		Width:      dec(req.Width),
		SlabCount:  req.SlabCount,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLotDTO(*lot))
}

// ListLots returns every lot for a material, oldest first.
func (h *Handler) ListLots(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	lots, err := h.Store.ListLots(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list lots", err)
		return
	}
	dtos := make([]LotDTO, len(lots))
	for i, l := range lots {
		dtos[i] = toLotDTO(l)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListLedger returns the material's ledger entries, oldest first.
func (h *Handler) ListLedger(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entries, err := h.Store.LedgerEntries(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list ledger entries", err)
		return
	}
	dtos := make([]LedgerEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toLedgerEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CheckAvailability is the advisory fast-path quantity check.
// GET /api/materials/{id}/availability?shade=A&length=5&width=3&count=2
func (h *Handler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	q := r.URL.Query()

	length, err1 := strconv.ParseFloat(q.Get("length"), 64)
	width, err2 := strconv.ParseFloat(q.Get("width"), 64)
	count, err3 := strconv.Atoi(q.Get("count"))
	if err1 != nil || err2 != nil || err3 != nil {
		writeError(w, http.StatusBadRequest, "length, width and count query params are required", nil)
		return
	}

	ok, err := h.Service.HasEnoughQuantity(r.Context(), id, inventory.Shade(q.Get("shade")),
		dec(length), dec(width), count)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AvailabilityDTO{Available: ok})
}

// =============================================================================
// RESERVATION HANDLERS
// =============================================================================

// Reserve runs the full PlanAndReserve transaction.
func (h *Handler) Reserve(w http.ResponseWriter, r *http.Request) {
	var req ReserveRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.Service.PlanAndReserve(r.Context(), inventory.ReserveInput{
		MaterialID: req.MaterialID,
		Shade:      inventory.Shade(req.Shade),
		Length:     dec(req.Length),
		Width:      dec(req.Width),
		Count:      req.Count,
		ClientName: req.ClientName,
		Barcode:    req.Barcode,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, ReserveResponse{
		Reservation:     toReservationDTO(result.Reservation),
		TotalAllocated:  result.TotalAllocated.String(),
		TotalWaste:      result.TotalWaste.String(),
		Steps:           toPlanStepDTOs(result.Steps),
		LotsUpdated:     result.LotsUpdated,
		LotsDeleted:     result.LotsDeleted,
		RemnantsCreated: result.RemnantsCreated,
		Remaining:       result.Remaining.String(),
		Status:          string(result.Status),
	})
}

// ListReservations returns reservations, optionally filtered by material.
func (h *Handler) ListReservations(w http.ResponseWriter, r *http.Request) {
	reservations, err := h.Store.ListReservations(r.Context(), r.URL.Query().Get("material_id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list reservations", err)
		return
	}
	dtos := make([]ReservationDTO, len(reservations))
	for i, res := range reservations {
		dtos[i] = toReservationDTO(res)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ReleaseReservation restores held stock (Reserved -> Released).
func (h *Handler) ReleaseReservation(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.Release)
}

// DeliverReservation finalizes consumption (Reserved -> Delivered).
func (h *Handler) DeliverReservation(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.Deliver)
}

// CancelReservation restores held stock (Reserved -> Cancelled).
func (h *Handler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.Cancel)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, id string) (*inventory.TransitionResult, error)) {
	id := chi.URLParam(r, "id")
	result, err := fn(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TransitionResponse{
		Reservation:   toReservationDTO(result.Reservation),
		RestoredLotID: result.RestoredLotID,
		Remaining:     result.Remaining.String(),
		Status:        string(result.Status),
	})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
