// Package lifecycle owns the reservation state machine and the continuous
// extension protocol. All functions here are pure with respect to I/O: they
// take the current time and any schedule facts as arguments and mutate only
// the reservation aggregate, leaving persistence and notification to the
// service layer.
package lifecycle

import (
	"time"

	reserrors "roomres/internal/reservations/errors"
	"roomres/pkg/model"
)

// Machine applies lifecycle actions to a reservation, enforcing the
// transition table and the time gates.
type Machine struct {
	// StartWindow is how long before the scheduled start a reservation may
	// be started.
	StartWindow time.Duration
}

// Approve moves a pending reservation to approved.
func (m Machine) Approve(res *model.Reservation, now time.Time) error {
	return m.apply(res, model.ActionApprove, now)
}

// Reject moves a pending reservation to the terminal rejected state.
func (m Machine) Reject(res *model.Reservation, now time.Time) error {
	return m.apply(res, model.ActionReject, now)
}

// Cancel moves a pending or approved reservation to the terminal cancelled
// state. Cancel is never allowed once the reservation is ongoing.
func (m Machine) Cancel(res *model.Reservation, now time.Time) error {
	return m.apply(res, model.ActionCancel, now)
}

// Start moves an approved reservation to ongoing. Starting opens StartWindow
// before the scheduled start; earlier attempts fail with ErrTooEarly. The
// caller is responsible for the one-ongoing-per-room check.
func (m Machine) Start(res *model.Reservation, now time.Time) error {
	if res.Status == model.StatusApproved && now.Before(res.StartTime.Add(-m.StartWindow)) {
		return reserrors.ErrTooEarly
	}
	return m.apply(res, model.ActionStart, now)
}

// EndEarly completes an ongoing reservation before its scheduled end.
func (m Machine) EndEarly(res *model.Reservation, now time.Time) error {
	return m.apply(res, model.ActionEndEarly, now)
}

// Complete finishes an ongoing reservation whose effective end has been
// reached. Open-ended reservations never auto-complete.
func (m Machine) Complete(res *model.Reservation, now time.Time) error {
	if res.Status == model.StatusOngoing {
		end, bounded := res.CurrentEnd()
		if !bounded || now.Before(end) {
			return reserrors.NewInvalidTransition(res.Status, model.ActionComplete)
		}
	}
	return m.apply(res, model.ActionComplete, now)
}

// Expire marks a pending or approved reservation that was never started as
// expired. The grace period is owned by the caller; this only performs the
// transition.
func (m Machine) Expire(res *model.Reservation, now time.Time) error {
	return m.apply(res, model.ActionExpire, now)
}

func (m Machine) apply(res *model.Reservation, action model.Action, now time.Time) error {
	target, ok := action.Target()
	if !ok {
		return reserrors.NewInvalidTransition(res.Status, action)
	}

	// At-least-once tolerance: a retried action whose terminal outcome is
	// already in place is a no-op, not an error.
	if res.Status.Terminal() && res.Status == target {
		return nil
	}

	if !res.Status.Allows(action) {
		return reserrors.NewInvalidTransition(res.Status, action)
	}

	res.Status = target
	res.UpdatedAt = now

	switch action {
	case model.ActionStart:
		ts := now
		res.StartedAt = &ts
	case model.ActionEndEarly, model.ActionComplete:
		ts := now
		res.EndedAt = &ts
	}

	return nil
}
