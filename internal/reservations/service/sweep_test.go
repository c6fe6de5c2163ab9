package service

import (
	"context"
	"testing"
	"time"

	reserrors "roomres/internal/reservations/errors"
	"roomres/pkg/model"
)

func TestSweepExpired(t *testing.T) {
	cfg := testConfig()
	start := time.Date(2026, 3, 10, 14, 0, 0, 0, manila)

	// Grace is 15m, so the sweep at start+20m picks up anything still
	// pending or approved.
	clk := fixedClock(start.Add(20 * time.Minute))

	stale := storedReservation(model.StatusPending, start)
	contested := storedReservation(model.StatusApproved, start)
	contested.ID = "64f000000000000000000002"

	saved := map[string]model.Status{}
	repo := &mockReservationRepository{
		findDueExpiryFunc: func(ctx context.Context, cutoff time.Time) ([]*model.Reservation, error) {
			want := start.Add(5 * time.Minute) // now - grace
			if !cutoff.Equal(want) {
				t.Errorf("cutoff = %v, want %v", cutoff, want)
			}
			return []*model.Reservation{stale, contested}, nil
		},
		saveFunc: func(ctx context.Context, res *model.Reservation, expectedVersion int64) error {
			if res.ID == contested.ID {
				// Someone started it between query and save.
				return reserrors.ErrVersionConflict
			}
			saved[res.ID] = res.Status
			return nil
		},
	}

	notifier := &mockNotifier{}
	svc := newService(repo, &mockLockRepository{}, clk, notifier, cfg)

	expired, err := svc.SweepExpired(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if expired != 1 {
		t.Errorf("expired = %d, want 1", expired)
	}
	if saved[stale.ID] != model.StatusExpired {
		t.Errorf("stale reservation saved as %s, want expired", saved[stale.ID])
	}
	if len(notifier.events) != 1 || notifier.events[0].Type != model.ActionExpire {
		t.Errorf("events = %v, want one expire event", notifier.events)
	}
}

func TestSweepCompleted(t *testing.T) {
	cfg := testConfig()
	start := time.Date(2026, 3, 10, 14, 0, 0, 0, manila)
	now := start.Add(2*time.Hour + time.Minute)
	clk := fixedClock(now)

	due := storedReservation(model.StatusOngoing, start)
	repo := &mockReservationRepository{
		findDueCompletionFunc: func(ctx context.Context, at time.Time) ([]*model.Reservation, error) {
			return []*model.Reservation{due}, nil
		},
	}

	notifier := &mockNotifier{}
	svc := newService(repo, &mockLockRepository{}, clk, notifier, cfg)

	completed, err := svc.SweepCompleted(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if completed != 1 {
		t.Errorf("completed = %d, want 1", completed)
	}
	if due.Status != model.StatusCompleted {
		t.Errorf("status = %s, want completed", due.Status)
	}
	if due.EndedAt == nil || !due.EndedAt.Equal(now) {
		t.Errorf("EndedAt = %v, want %v", due.EndedAt, now)
	}
}

func TestSweepCompleted_SkipsOpenEnded(t *testing.T) {
	cfg := testConfig()
	start := time.Date(2026, 3, 10, 14, 0, 0, 0, manila)
	clk := fixedClock(start.Add(6 * time.Hour))

	// An open-ended reservation should never be returned by the due query,
	// but the machine guard holds even if one slips through.
	open := storedReservation(model.StatusOngoing, start)
	open.ExtensionStatus = model.ExtensionApproved
	open.ExtensionOpenEnded = true

	// Same grant, but the reserver has already filed another request. The
	// pending review must not expose the reservation to the sweep.
	reRequested := storedReservation(model.StatusOngoing, start)
	reRequested.ID = "64f000000000000000000002"
	reRequested.ExtensionStatus = model.ExtensionPending
	reRequested.ExtensionRequested = true
	reRequested.ExtensionOpenEnded = true

	repo := &mockReservationRepository{
		findDueCompletionFunc: func(ctx context.Context, at time.Time) ([]*model.Reservation, error) {
			return []*model.Reservation{open, reRequested}, nil
		},
	}
	svc := newService(repo, &mockLockRepository{}, clk, nil, cfg)

	completed, err := svc.SweepCompleted(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if completed != 0 {
		t.Errorf("completed = %d, want 0", completed)
	}
	if open.Status != model.StatusOngoing {
		t.Errorf("status = %s, want ongoing", open.Status)
	}
	if reRequested.Status != model.StatusOngoing {
		t.Errorf("re-requested status = %s, want ongoing", reRequested.Status)
	}
}
