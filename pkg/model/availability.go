package model

import "time"

// Availability is one (campsite, date) bucket of the ledger. Sites is the
// remaining capacity for that date and always satisfies
// 0 <= Sites <= campsite.Capacity. Version stamps every mutation; writers
// condition their updates on the version they read, so a stale write fails
// instead of losing an update.
type Availability struct {
	ID         string    `json:"id,omitempty" bson:"_id,omitempty"`
	CampsiteID string    `json:"campsite_id" bson:"campsite_id"`
	Date       time.Time `json:"date" bson:"date"`
	Sites      int       `json:"sites" bson:"sites"`
	Version    int64     `json:"version" bson:"version"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}

// AvailabilityView is the display projection of a ledger bucket.
type AvailabilityView struct {
	Date  string `json:"date"`
	Sites int    `json:"sites"`
}

const DateLayout = "2006-01-02"

func (a *Availability) View() AvailabilityView {
	return AvailabilityView{
		Date:  a.Date.Format(DateLayout),
		Sites: a.Sites,
	}
}

func AvailabilityViews(records []*Availability) []AvailabilityView {
	views := make([]AvailabilityView, 0, len(records))
	for _, record := range records {
		views = append(views, record.View())
	}
	return views
}

// NormalizeDate truncates a timestamp to its UTC calendar date. Every date
// stored in the ledger goes through this, so (campsite_id, date) uniqueness
// holds regardless of the caller's timezone.
func NormalizeDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole days from a to b, both normalized.
func DaysBetween(a, b time.Time) int {
	return int(NormalizeDate(b).Sub(NormalizeDate(a)).Hours() / 24)
}
