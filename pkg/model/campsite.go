package model

import "time"

// Campsite is the parent resource availability and reservations hang off.
// Capacity is immutable after creation: the availability calendar is seeded
// from it, and changing it would desynchronize existing availability rows.
type Campsite struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name      string    `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Capacity  int       `json:"capacity" bson:"capacity" validate:"required,min=1,max=1000"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

type CampsiteUpdate struct {
	Name string `json:"name" validate:"required,min=2,max=100"`
}
