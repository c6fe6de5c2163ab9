package model

// Status is the lifecycle state of a reservation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusOngoing   Status = "ongoing"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// Action is an operation requested against a reservation.
type Action string

const (
	ActionApprove  Action = "approve"
	ActionReject   Action = "reject"
	ActionCancel   Action = "cancel"
	ActionStart    Action = "start"
	ActionEndEarly Action = "end_early"
	ActionComplete Action = "complete"
	ActionExpire   Action = "expire"
)

// transitions maps each action to the states it may be applied from and the
// state it produces. Time and room guards are enforced by the lifecycle
// package on top of this table.
var transitions = map[Action]struct {
	from []Status
	to   Status
}{
	ActionApprove:  {from: []Status{StatusPending}, to: StatusApproved},
	ActionReject:   {from: []Status{StatusPending}, to: StatusRejected},
	ActionCancel:   {from: []Status{StatusPending, StatusApproved}, to: StatusCancelled},
	ActionStart:    {from: []Status{StatusApproved}, to: StatusOngoing},
	ActionEndEarly: {from: []Status{StatusOngoing}, to: StatusCompleted},
	ActionComplete: {from: []Status{StatusOngoing}, to: StatusCompleted},
	ActionExpire:   {from: []Status{StatusPending, StatusApproved}, to: StatusExpired},
}

// IsValid reports whether s is a recognized reservation status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusOngoing,
		StatusCompleted, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are possible from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusRejected, StatusCompleted, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// Allows reports whether the action may be applied from status s.
func (s Status) Allows(action Action) bool {
	t, ok := transitions[action]
	if !ok {
		return false
	}
	for _, from := range t.from {
		if from == s {
			return true
		}
	}
	return false
}

// Target returns the status the action produces. The second return value is
// false for unknown actions.
func (a Action) Target() (Status, bool) {
	t, ok := transitions[a]
	return t.to, ok
}

// ExtensionStatus tracks the request/approval state of a continuous extension.
type ExtensionStatus string

const (
	ExtensionNone     ExtensionStatus = "none"
	ExtensionPending  ExtensionStatus = "pending"
	ExtensionApproved ExtensionStatus = "approved"
	ExtensionRejected ExtensionStatus = "rejected"
)
