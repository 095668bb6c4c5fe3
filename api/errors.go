/*
errors.go - Error taxonomy to HTTP status mapping

  ValidationError            400  bad field named in details
  NotFound family            404  material / shade / barcode / reservation
  IllegalTransition          409  current state named in details
  StorageConflict            409  caller should re-plan and retry
  InsufficientStock          422  shortfall named in details
  anything else              500
*/
package api

import (
	"errors"
	"net/http"

	"github.com/warp/slab-engine/inventory"
	"github.com/warp/slab-engine/slab"
)

// writeServiceError maps engine errors onto status codes, keeping the
// engine's specific, actionable message in the response details.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, slab.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "Invalid request", err)
	case inventory.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, inventory.ErrIllegalTransition):
		writeError(w, http.StatusConflict, "Illegal reservation transition", err)
	case errors.Is(err, slab.ErrStorageConflict):
		writeError(w, http.StatusConflict, "Stock changed during planning, retry the request", err)
	case errors.Is(err, slab.ErrInsufficientStock):
		writeError(w, http.StatusUnprocessableEntity, "Insufficient stock", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}
