package model

import "time"

// RoomLock is an advisory lock taken while starting a reservation, so that
// two racing start requests on the same room cannot both pass the
// one-ongoing-per-room check
type RoomLock struct {
	ID        string    `bson:"_id" json:"id"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
