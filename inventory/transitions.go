/*
transitions.go - Reservation state machine

PURPOSE:
  Moves a reservation out of the Reserved state:

    Reserved ──release──▶ Released   (stock restored as a new lot, IN entry)
    Reserved ──deliver──▶ Delivered  (no restoration, OUT delivery entry)
    Reserved ──cancel───▶ Cancelled  (stock restored, like release)

  All three targets are terminal. The status guard lives in the store's
  ApplyTransition, so a second invocation fails with IllegalTransitionError
  instead of double-restoring - idempotent in effect, loud in response.

  Stock was already decremented when the reservation was created, so Deliver
  moves no quantity; its OUT entry documents the handover for the audit
  trail.
*/
package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// TransitionResult reports the outcome of a state transition.
type TransitionResult struct {
	Reservation   Reservation
	RestoredLotID string // empty for Deliver
	Remaining     decimal.Decimal
	Status        StockStatus
}

// Release moves a reservation to Released and restores the held stock to the
// (material, shade) pool as a brand-new lot.
func (s *Service) Release(ctx context.Context, reservationID string) (*TransitionResult, error) {
	return s.restoreTransition(ctx, reservationID, StatusReleased, "release", "reservation released")
}

// Cancel moves a reservation to Cancelled. Same restore semantics as
// Release; only the terminal status differs.
func (s *Service) Cancel(ctx context.Context, reservationID string) (*TransitionResult, error) {
	return s.restoreTransition(ctx, reservationID, StatusCancelled, "cancel", "reservation cancelled")
}

// Deliver finalizes a reservation: the stock was consumed at reservation
// time, so nothing is restored and no quantity recomputation is needed.
func (s *Service) Deliver(ctx context.Context, reservationID string) (*TransitionResult, error) {
	res, err := s.reservedOrFail(ctx, reservationID, "deliver")
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	m := TransitionMutation{
		ReservationID: res.ID,
		FromStatus:    StatusReserved,
		ToStatus:      StatusDelivered,
		Ledger: LedgerEntry{
			ID:          newID("led"),
			MaterialID:  res.MaterialID,
			Shade:       res.Shade,
			Direction:   DirectionOut,
			Quantity:    res.Quantity,
			Reason:      fmt.Sprintf("delivered to %s", res.ClientName),
			ReferenceID: res.ID,
			CreatedAt:   now,
		},
	}

	result, err := s.store.ApplyTransition(ctx, m)
	if err != nil {
		return nil, err
	}

	res.Status = StatusDelivered
	res.DeliveredAt = &now
	s.log.WithFields(logrus.Fields{
		"reservation_id": res.ID,
		"client":         res.ClientName,
	}).Info("reservation delivered")

	return &TransitionResult{
		Reservation: *res,
		Remaining:   result.RemainingQuantity,
		Status:      result.Status,
	}, nil
}

// restoreTransition implements Release and Cancel: terminal status plus a
// restored lot carrying the reservation's geometry snapshot.
func (s *Service) restoreTransition(ctx context.Context, reservationID string, to ReservationStatus, verb, reason string) (*TransitionResult, error) {
	res, err := s.reservedOrFail(ctx, reservationID, verb)
	if err != nil {
		return nil, err
	}

	material, err := s.store.GetMaterial(ctx, res.MaterialID)
	if err != nil {
		return nil, err
	}
	if material == nil {
		return nil, ErrMaterialNotFound
	}

	now := time.Now().UTC()
	restored := StockLot{
		ID:         newID("lot"),
		MaterialID: res.MaterialID,
		Shade:      res.Shade,
		Quantity:   res.Quantity,
		Geometry: &LotGeometry{
			Length:    res.Length,
			Width:     res.Width,
			SlabCount: res.SlabCount,
		},
		CreatedAt: now,
	}

	m := TransitionMutation{
		ReservationID: res.ID,
		FromStatus:    StatusReserved,
		ToStatus:      to,
		RestoredLot:   &restored,
		Ledger: LedgerEntry{
			ID:          newID("led"),
			MaterialID:  res.MaterialID,
			Shade:       res.Shade,
			Direction:   DirectionIn,
			Quantity:    res.Quantity,
			Reason:      reason,
			ReferenceID: res.ID,
			CreatedAt:   now,
		},
		LowStockThreshold: material.LowStockThreshold,
	}

	result, err := s.store.ApplyTransition(ctx, m)
	if err != nil {
		return nil, err
	}

	res.Status = to
	res.ReleasedAt = &now
	s.log.WithFields(logrus.Fields{
		"reservation_id": res.ID,
		"restored_lot":   restored.ID,
		"transition":     verb,
	}).Info("reservation stock restored")

	return &TransitionResult{
		Reservation:   *res,
		RestoredLotID: restored.ID,
		Remaining:     result.RemainingQuantity,
		Status:        result.Status,
	}, nil
}

// reservedOrFail loads a reservation and rejects anything past Reserved.
func (s *Service) reservedOrFail(ctx context.Context, id, attempted string) (*Reservation, error) {
	res, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, ErrReservationNotFound
	}
	if res.Status != StatusReserved {
		return nil, &IllegalTransitionError{ReservationID: id, Current: res.Status, Attempted: attempted}
	}
	return res, nil
}
