package model

import (
	"time"
)

// Participant is a person attending a reservation besides the main reserver.
type Participant struct {
	Name       string `json:"name" bson:"name" validate:"required,min=2,max=100"`
	IDNumber   string `json:"id_number" bson:"id_number" validate:"required,idnumber"`
	Department string `json:"department" bson:"department" validate:"required,min=2,max=100"`
}

type Reservation struct {
	ID       string `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	RoomID   string `json:"room_id" bson:"room_id" validate:"required,mongodb"`
	RoomName string `json:"room_name" bson:"room_name" validate:"required,min=2,max=100"`
	Location string `json:"location" bson:"location" validate:"required,min=2,max=100"`

	UserID       string        `json:"user_id" bson:"user_id" validate:"required,min=1,max=64"`
	Participants []Participant `json:"participants" bson:"participants" validate:"omitempty,max=200,dive"`
	NumUsers     int           `json:"num_users" bson:"num_users" validate:"required,min=1,max=200"`
	Purpose      string        `json:"purpose" bson:"purpose" validate:"required,min=2,max=500"`

	StartTime time.Time `json:"start_time" bson:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" bson:"end_time" validate:"required,gtfield=StartTime"`

	Status Status `json:"status" bson:"status" validate:"required,oneof=pending approved rejected ongoing completed cancelled expired"`

	ExtensionRequested bool            `json:"extension_requested" bson:"extension_requested"`
	ExtensionStatus    ExtensionStatus `json:"extension_status" bson:"extension_status" validate:"omitempty,oneof=none pending approved rejected"`
	ExtensionReason    string          `json:"extension_reason,omitempty" bson:"extension_reason,omitempty" validate:"omitempty,max=500"`
	ExtendedEnd        *time.Time      `json:"extended_end,omitempty" bson:"extended_end,omitempty"`
	ExtensionOpenEnded bool            `json:"extension_open_ended,omitempty" bson:"extension_open_ended,omitempty"`

	StartedAt *time.Time `json:"started_at,omitempty" bson:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty" bson:"ended_at,omitempty"`

	Version   int64     `json:"version" bson:"version"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// OpenEnded reports whether an approved continuous extension with no cap is
// active: the reservation stays ongoing until explicitly ended.
func (r *Reservation) OpenEnded() bool {
	return r.ExtensionOpenEnded
}

// CurrentEnd returns the effective end of the reservation and whether that
// end is bounded. An open-ended extension has no bound; the zero time is
// returned in that case. An active grant stays in effect while a follow-up
// extension request is awaiting review, so ExtensionStatus plays no part
// here: only a reject withdraws the grant.
func (r *Reservation) CurrentEnd() (time.Time, bool) {
	if r.ExtensionOpenEnded {
		return time.Time{}, false
	}
	if r.ExtendedEnd != nil {
		return *r.ExtendedEnd, true
	}
	return r.EndTime, true
}
