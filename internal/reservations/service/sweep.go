package service

import (
	"context"
	"errors"

	reserrors "roomres/internal/reservations/errors"
	"roomres/pkg/model"
)

// SweepExpired marks pending and approved reservations whose start time
// passed more than the expiry grace ago. Version conflicts are skipped,
// not retried: a reservation that moved under us no longer needs expiry.
func (s *reservationService) SweepExpired(ctx context.Context) (int, error) {
	now := s.clock.Now()
	cutoff := now.Add(-s.cfg.ExpiryGrace)

	due, err := s.repo.FindDueExpiry(ctx, cutoff)
	if err != nil {
		s.cfg.Log.Error("Expiry sweep query failed", "error", err)
		return 0, err
	}

	expired := 0
	for _, res := range due {
		if err := s.machine.Expire(res, now); err != nil {
			s.cfg.Log.Warn("Skipping expiry", "id", res.ID, "status", res.Status, "error", err)
			continue
		}
		if err := s.repo.Save(ctx, res, res.Version); err != nil {
			if errors.Is(err, reserrors.ErrVersionConflict) || errors.Is(err, reserrors.ErrNotFound) {
				continue
			}
			s.cfg.Log.Error("Failed to persist expiry", "id", res.ID, "error", err)
			return expired, err
		}

		expired++
		s.emit(ctx, model.Event{
			Type:          model.ActionExpire,
			ReservationID: res.ID,
			RoomID:        res.RoomID,
			Timestamp:     now,
		})
	}

	if expired > 0 {
		s.cfg.Log.Info("Expiry sweep finished", "expired", expired, "candidates", len(due))
	}
	return expired, nil
}

// SweepCompleted closes ongoing reservations whose effective end has been
// reached. Open-ended reservations never appear among the candidates; they
// run until ended explicitly.
func (s *reservationService) SweepCompleted(ctx context.Context) (int, error) {
	now := s.clock.Now()

	due, err := s.repo.FindDueCompletion(ctx, now)
	if err != nil {
		s.cfg.Log.Error("Completion sweep query failed", "error", err)
		return 0, err
	}

	completed := 0
	for _, res := range due {
		if err := s.machine.Complete(res, now); err != nil {
			s.cfg.Log.Warn("Skipping completion", "id", res.ID, "status", res.Status, "error", err)
			continue
		}
		if err := s.repo.Save(ctx, res, res.Version); err != nil {
			if errors.Is(err, reserrors.ErrVersionConflict) || errors.Is(err, reserrors.ErrNotFound) {
				continue
			}
			s.cfg.Log.Error("Failed to persist completion", "id", res.ID, "error", err)
			return completed, err
		}

		completed++
		s.emit(ctx, model.Event{
			Type:          model.ActionComplete,
			ReservationID: res.ID,
			RoomID:        res.RoomID,
			Timestamp:     now,
		})
	}

	if completed > 0 {
		s.cfg.Log.Info("Completion sweep finished", "completed", completed, "candidates", len(due))
	}
	return completed, nil
}
