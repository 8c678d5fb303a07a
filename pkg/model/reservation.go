package model

import "time"

// Reservation occupies the stay span [CheckIn, CheckOut). AvailabilityIDs is
// the explicit join to the ledger buckets the reservation currently holds:
// one per date in the span, kept in sync with every span change.
type Reservation struct {
	ID              string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	CampsiteID      string    `json:"campsite_id" bson:"campsite_id" validate:"required,mongodb"`
	Name            string    `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Email           string    `json:"email" bson:"email" validate:"required,email"`
	CheckIn         time.Time `json:"check_in" bson:"check_in" validate:"required"`
	CheckOut        time.Time `json:"check_out" bson:"check_out" validate:"required"`
	AvailabilityIDs []string  `json:"-" bson:"availability_ids"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

type ReservationUpdate struct {
	Name     string     `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Email    string     `json:"email,omitempty" validate:"omitempty,email"`
	CheckIn  *time.Time `json:"check_in,omitempty" validate:"omitempty"`
	CheckOut *time.Time `json:"check_out,omitempty" validate:"omitempty"`
}

// Nights returns the number of occupied dates in the stay span.
func (r *Reservation) Nights() int {
	return DaysBetween(r.CheckIn, r.CheckOut)
}

// SameSpan reports whether the reservation already occupies the given span.
func (r *Reservation) SameSpan(checkIn, checkOut time.Time) bool {
	return NormalizeDate(r.CheckIn).Equal(NormalizeDate(checkIn)) &&
		NormalizeDate(r.CheckOut).Equal(NormalizeDate(checkOut))
}
