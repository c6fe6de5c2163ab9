package lifecycle

import (
	"context"
	"time"

	reserrors "roomres/internal/reservations/errors"
	"roomres/pkg/model"
)

// ConflictChecker finds the start time of the earliest reservation on a room
// that would collide with extending past the given time, or nil if the room
// is free. It is consulted when an extension is requested and again when it
// is resolved, so an approval never relies on a stale schedule.
type ConflictChecker interface {
	FindNextConflict(ctx context.Context, roomID string, after time.Time) (*time.Time, error)
}

// ExtensionOutcome is returned from a request so the caller can tell the
// reserver whether, and until when, the extension is bounded.
type ExtensionOutcome struct {
	// ConflictTime is the latest permissible extended end, already reduced
	// by the safety buffer. Nil means the extension is open-ended.
	ConflictTime *time.Time
}

// RequestExtension records a continuous-extension request on an ongoing
// reservation. The grant is open-ended: it keeps the reservation ongoing
// until explicitly ended, unless a later booking on the room caps it.
func RequestExtension(res *model.Reservation, reason string, now time.Time, nextConflict *time.Time, buffer time.Duration) (ExtensionOutcome, error) {
	if res.Status != model.StatusOngoing {
		return ExtensionOutcome{}, reserrors.ErrNotOngoing
	}
	if res.ExtensionStatus == model.ExtensionPending {
		return ExtensionOutcome{}, reserrors.ErrExtensionPending
	}

	res.ExtensionRequested = true
	res.ExtensionStatus = model.ExtensionPending
	res.ExtensionReason = reason
	res.UpdatedAt = now

	return ExtensionOutcome{ConflictTime: capBefore(nextConflict, buffer)}, nil
}

// ResolveExtension approves or rejects a pending extension request. On
// approval the cap is recomputed from nextConflict rather than reusing the
// value seen at request time, so a reservation approved in the interim still
// bounds the grant. A nil cap approves an open-ended extension. Extension
// fields are only ever mutated while the reservation is ongoing; a request
// left pending when the reservation ends can no longer be resolved.
func ResolveExtension(res *model.Reservation, approve bool, now time.Time, nextConflict *time.Time, buffer time.Duration) error {
	if res.Status != model.StatusOngoing {
		return reserrors.ErrNotOngoing
	}
	if res.ExtensionStatus != model.ExtensionPending {
		return reserrors.ErrNoPendingExtension
	}

	if !approve {
		res.ExtensionStatus = model.ExtensionRejected
		res.ExtensionRequested = false
		res.ExtendedEnd = nil
		res.ExtensionOpenEnded = false
		res.UpdatedAt = now
		return nil
	}

	capped := capBefore(nextConflict, buffer)
	if capped != nil {
		// The grant must extend past whatever end currently applies.
		end, bounded := res.CurrentEnd()
		if bounded && !capped.After(end) {
			return reserrors.ErrExtensionOverlap
		}
	}

	res.ExtensionStatus = model.ExtensionApproved
	res.ExtendedEnd = capped
	res.ExtensionOpenEnded = capped == nil
	res.UpdatedAt = now
	return nil
}

func capBefore(conflict *time.Time, buffer time.Duration) *time.Time {
	if conflict == nil {
		return nil
	}
	capped := conflict.Add(-buffer)
	return &capped
}
