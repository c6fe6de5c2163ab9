package errors

import (
	"errors"
	"fmt"

	"roomres/pkg/model"
)

var (
	ErrNotFound  = errors.New("reservation not found")
	ErrInvalidID = errors.New("invalid reservation ID format")

	// ErrVersionConflict is an optimistic-concurrency loss: the reservation
	// changed between load and save.
	ErrVersionConflict = errors.New("reservation was modified concurrently")

	// ErrTooEarly is a start attempted before the pre-start window opens.
	ErrTooEarly = errors.New("too early to start the reservation")

	ErrNotOngoing         = errors.New("reservation is not ongoing")
	ErrExtensionPending   = errors.New("an extension request is already pending")
	ErrNoPendingExtension = errors.New("no pending extension request to resolve")

	// ErrExtensionOverlap means the recomputed conflict cap leaves no room
	// past the current end, so approving the extension would change nothing.
	ErrExtensionOverlap = errors.New("extension would overlap the next reservation")
)

// InvalidTransitionError reports an action attempted outside its row in the
// transition table.
type InvalidTransitionError struct {
	From   model.Status
	Action model.Action
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("action %q is not allowed from status %q", e.Action, e.From)
}

func NewInvalidTransition(from model.Status, action model.Action) *InvalidTransitionError {
	return &InvalidTransitionError{From: from, Action: action}
}
