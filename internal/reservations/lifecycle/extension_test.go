package lifecycle

import (
	"errors"
	"testing"
	"time"

	reserrors "roomres/internal/reservations/errors"
	"roomres/pkg/model"
)

const buffer = 5 * time.Minute

func ongoingReservation() *model.Reservation {
	res := newReservation(model.StatusOngoing)
	started := res.StartTime
	res.StartedAt = &started
	return res
}

func TestRequestExtension(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 50, 0, 0, manila)

	t.Run("not ongoing", func(t *testing.T) {
		res := newReservation(model.StatusApproved)
		_, err := RequestExtension(res, "demo overrun", now, nil, buffer)
		if !errors.Is(err, reserrors.ErrNotOngoing) {
			t.Fatalf("expected ErrNotOngoing, got %v", err)
		}
	})

	t.Run("already pending", func(t *testing.T) {
		res := ongoingReservation()
		if _, err := RequestExtension(res, "first", now, nil, buffer); err != nil {
			t.Fatalf("first request: %v", err)
		}
		_, err := RequestExtension(res, "second", now, nil, buffer)
		if !errors.Is(err, reserrors.ErrExtensionPending) {
			t.Fatalf("expected ErrExtensionPending, got %v", err)
		}
	})

	t.Run("room free, open-ended outlook", func(t *testing.T) {
		res := ongoingReservation()
		outcome, err := RequestExtension(res, "thesis defense running long", now, nil, buffer)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if outcome.ConflictTime != nil {
			t.Errorf("ConflictTime = %v, want nil", outcome.ConflictTime)
		}
		if res.ExtensionStatus != model.ExtensionPending || !res.ExtensionRequested {
			t.Errorf("extension state = %s/%v, want pending/true", res.ExtensionStatus, res.ExtensionRequested)
		}
		if res.ExtensionReason != "thesis defense running long" {
			t.Errorf("reason = %q", res.ExtensionReason)
		}
	})

	t.Run("next booking caps the outlook", func(t *testing.T) {
		res := ongoingReservation()
		conflict := time.Date(2026, 3, 10, 17, 0, 0, 0, manila)
		outcome, err := RequestExtension(res, "overrun", now, &conflict, buffer)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := conflict.Add(-buffer)
		if outcome.ConflictTime == nil || !outcome.ConflictTime.Equal(want) {
			t.Errorf("ConflictTime = %v, want %v", outcome.ConflictTime, want)
		}
	})
}

func TestResolveExtension(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 55, 0, 0, manila)

	pending := func(t *testing.T) *model.Reservation {
		t.Helper()
		res := ongoingReservation()
		if _, err := RequestExtension(res, "overrun", now, nil, buffer); err != nil {
			t.Fatalf("request: %v", err)
		}
		return res
	}

	t.Run("reservation no longer ongoing", func(t *testing.T) {
		res := pending(t)
		if err := (Machine{}).EndEarly(res, now); err != nil {
			t.Fatalf("end early: %v", err)
		}
		err := ResolveExtension(res, true, now, nil, buffer)
		if !errors.Is(err, reserrors.ErrNotOngoing) {
			t.Fatalf("expected ErrNotOngoing, got %v", err)
		}
		if res.ExtensionStatus != model.ExtensionPending || res.ExtendedEnd != nil || res.OpenEnded() {
			t.Error("extension fields mutated on a completed reservation")
		}
	})

	t.Run("no pending request", func(t *testing.T) {
		res := ongoingReservation()
		err := ResolveExtension(res, true, now, nil, buffer)
		if !errors.Is(err, reserrors.ErrNoPendingExtension) {
			t.Fatalf("expected ErrNoPendingExtension, got %v", err)
		}
	})

	t.Run("approve open-ended", func(t *testing.T) {
		res := pending(t)
		if err := ResolveExtension(res, true, now, nil, buffer); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.ExtensionStatus != model.ExtensionApproved {
			t.Errorf("status = %s, want approved", res.ExtensionStatus)
		}
		if res.ExtendedEnd != nil {
			t.Errorf("ExtendedEnd = %v, want nil", res.ExtendedEnd)
		}
		if !res.OpenEnded() {
			t.Error("reservation should be open-ended")
		}
	})

	t.Run("approve with cap", func(t *testing.T) {
		res := pending(t)
		conflict := time.Date(2026, 3, 10, 17, 0, 0, 0, manila)
		if err := ResolveExtension(res, true, now, &conflict, buffer); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := conflict.Add(-buffer)
		if res.ExtendedEnd == nil || !res.ExtendedEnd.Equal(want) {
			t.Errorf("ExtendedEnd = %v, want %v", res.ExtendedEnd, want)
		}
		end, bounded := res.CurrentEnd()
		if !bounded || !end.Equal(want) {
			t.Errorf("CurrentEnd = %v/%v, want %v/true", end, bounded, want)
		}
	})

	t.Run("cap recomputed at approval catches new booking", func(t *testing.T) {
		// Request saw a free room, but a booking landed before approval.
		// The conflict leaves no room past the current end, so the grant
		// must fail rather than approve a slot that is already taken.
		res := pending(t)
		conflict := res.EndTime.Add(buffer) // capped end == current end
		err := ResolveExtension(res, true, now, &conflict, buffer)
		if !errors.Is(err, reserrors.ErrExtensionOverlap) {
			t.Fatalf("expected ErrExtensionOverlap, got %v", err)
		}
		if res.ExtensionStatus != model.ExtensionPending {
			t.Errorf("status = %s, want pending left intact", res.ExtensionStatus)
		}
	})

	t.Run("reject clears the request", func(t *testing.T) {
		res := pending(t)
		if err := ResolveExtension(res, false, now, nil, buffer); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.ExtensionStatus != model.ExtensionRejected {
			t.Errorf("status = %s, want rejected", res.ExtensionStatus)
		}
		if res.ExtensionRequested {
			t.Error("ExtensionRequested still set after reject")
		}
		if res.ExtendedEnd != nil {
			t.Errorf("ExtendedEnd = %v, want nil", res.ExtendedEnd)
		}
		if res.Status != model.StatusOngoing {
			t.Errorf("reservation status = %s, reject must not end it", res.Status)
		}
	})

	t.Run("re-request keeps the open-ended grant alive", func(t *testing.T) {
		res := pending(t)
		if err := ResolveExtension(res, true, now, nil, buffer); err != nil {
			t.Fatalf("approval: %v", err)
		}

		// The room is held well past the scheduled end when the reserver
		// files another request. The grant must stay in effect while that
		// request awaits review: the overrun cannot auto-complete.
		overrun := res.EndTime.Add(45 * time.Minute)
		if _, err := RequestExtension(res, "still going", overrun, nil, buffer); err != nil {
			t.Fatalf("re-request: %v", err)
		}
		if !res.OpenEnded() {
			t.Error("open-ended grant withdrawn by a pending re-request")
		}
		if _, bounded := res.CurrentEnd(); bounded {
			t.Error("effective end became bounded while the re-request was pending")
		}
		if err := (Machine{}).Complete(res, overrun); err == nil {
			t.Fatal("reservation auto-completed despite the active open-ended grant")
		}
		if res.Status != model.StatusOngoing {
			t.Errorf("status = %s, want ongoing", res.Status)
		}
	})

	t.Run("re-request keeps the capped grant effective", func(t *testing.T) {
		res := pending(t)
		grantEnd := res.EndTime.Add(time.Hour)
		conflict := grantEnd.Add(buffer)
		if err := ResolveExtension(res, true, now, &conflict, buffer); err != nil {
			t.Fatalf("approval: %v", err)
		}

		if _, err := RequestExtension(res, "one more hour", res.EndTime.Add(30*time.Minute), nil, buffer); err != nil {
			t.Fatalf("re-request: %v", err)
		}
		end, bounded := res.CurrentEnd()
		if !bounded || !end.Equal(grantEnd) {
			t.Errorf("CurrentEnd = %v/%v, want %v/true", end, bounded, grantEnd)
		}
	})

	t.Run("re-extension after approval", func(t *testing.T) {
		res := pending(t)
		firstCap := time.Date(2026, 3, 10, 17, 0, 0, 0, manila)
		if err := ResolveExtension(res, true, now, &firstCap, buffer); err != nil {
			t.Fatalf("first approval: %v", err)
		}

		later := now.Add(30 * time.Minute)
		if _, err := RequestExtension(res, "still going", later, nil, buffer); err != nil {
			t.Fatalf("second request: %v", err)
		}
		if err := ResolveExtension(res, true, later, nil, buffer); err != nil {
			t.Fatalf("second approval: %v", err)
		}
		if !res.OpenEnded() {
			t.Error("second approval should lift the cap")
		}
	})
}
