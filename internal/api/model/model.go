package model

import "time"

// Camera is a registered camera and the room it watches
type Camera struct {
	CameraID  string    `db:"camera_id"`
	RoomID    string    `db:"room_id"`
	Active    bool      `db:"active"`
	CreatedAt time.Time `db:"created_at"`
}
