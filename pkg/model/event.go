package model

import "time"

// Event is the audit/notification record emitted after a successful
// state transition. Delivery is fire-and-forget.
type Event struct {
	Type          Action    `json:"type"`
	ReservationID string    `json:"reservation_id"`
	RoomID        string    `json:"room_id"`
	Actor         Actor     `json:"actor"`
	Timestamp     time.Time `json:"timestamp"`
}
