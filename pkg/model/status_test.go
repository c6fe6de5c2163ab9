package model

import (
	"testing"
	"time"
)

func TestStatusTerminal(t *testing.T) {
	terminal := []Status{StatusRejected, StatusCompleted, StatusCancelled, StatusExpired}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}

	active := []Status{StatusPending, StatusApproved, StatusOngoing}
	for _, s := range active {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestTerminalStatesAllowNothing(t *testing.T) {
	actions := []Action{ActionApprove, ActionReject, ActionCancel, ActionStart, ActionEndEarly, ActionComplete, ActionExpire}
	for _, s := range []Status{StatusRejected, StatusCompleted, StatusCancelled, StatusExpired} {
		for _, a := range actions {
			if s.Allows(a) {
				t.Errorf("%s allows %s, terminal states must allow nothing", s, a)
			}
		}
	}
}

func TestActionTargets(t *testing.T) {
	tests := []struct {
		action Action
		want   Status
	}{
		{ActionApprove, StatusApproved},
		{ActionReject, StatusRejected},
		{ActionCancel, StatusCancelled},
		{ActionStart, StatusOngoing},
		{ActionEndEarly, StatusCompleted},
		{ActionComplete, StatusCompleted},
		{ActionExpire, StatusExpired},
	}
	for _, tt := range tests {
		got, ok := tt.action.Target()
		if !ok || got != tt.want {
			t.Errorf("Target(%s) = %s/%v, want %s/true", tt.action, got, ok, tt.want)
		}
	}

	if _, ok := Action("archive").Target(); ok {
		t.Error("unknown action should have no target")
	}
}

func TestCurrentEnd(t *testing.T) {
	end := time.Date(2026, 3, 10, 16, 0, 0, 0, time.UTC)
	extended := end.Add(time.Hour)

	t.Run("no extension", func(t *testing.T) {
		r := &Reservation{EndTime: end}
		got, bounded := r.CurrentEnd()
		if !bounded || !got.Equal(end) {
			t.Errorf("CurrentEnd = %v/%v, want %v/true", got, bounded, end)
		}
	})

	t.Run("capped extension", func(t *testing.T) {
		r := &Reservation{EndTime: end, ExtensionStatus: ExtensionApproved, ExtendedEnd: &extended}
		got, bounded := r.CurrentEnd()
		if !bounded || !got.Equal(extended) {
			t.Errorf("CurrentEnd = %v/%v, want %v/true", got, bounded, extended)
		}
		if r.OpenEnded() {
			t.Error("capped extension reported as open-ended")
		}
	})

	t.Run("open-ended extension", func(t *testing.T) {
		r := &Reservation{EndTime: end, ExtensionStatus: ExtensionApproved, ExtensionOpenEnded: true}
		if _, bounded := r.CurrentEnd(); bounded {
			t.Error("open-ended reservation reported a bounded end")
		}
		if !r.OpenEnded() {
			t.Error("OpenEnded() = false, want true")
		}
	})

	t.Run("pending extension keeps scheduled end", func(t *testing.T) {
		r := &Reservation{EndTime: end, ExtensionStatus: ExtensionPending, ExtensionRequested: true}
		got, bounded := r.CurrentEnd()
		if !bounded || !got.Equal(end) {
			t.Errorf("CurrentEnd = %v/%v, want %v/true", got, bounded, end)
		}
	})

	t.Run("pending re-request keeps capped grant", func(t *testing.T) {
		r := &Reservation{
			EndTime:            end,
			ExtensionStatus:    ExtensionPending,
			ExtensionRequested: true,
			ExtendedEnd:        &extended,
		}
		got, bounded := r.CurrentEnd()
		if !bounded || !got.Equal(extended) {
			t.Errorf("CurrentEnd = %v/%v, want %v/true", got, bounded, extended)
		}
	})

	t.Run("pending re-request keeps open-ended grant", func(t *testing.T) {
		r := &Reservation{
			EndTime:            end,
			ExtensionStatus:    ExtensionPending,
			ExtensionRequested: true,
			ExtensionOpenEnded: true,
		}
		if _, bounded := r.CurrentEnd(); bounded {
			t.Error("open-ended grant lost while a new request was pending")
		}
	})
}
