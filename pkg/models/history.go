package models

import "time"

// ListStatus values as stored by the list service.
const (
	StatusCompleted = "completed"
	StatusWatching  = "watching"
	StatusReading   = "reading"
	StatusOnHold    = "on_hold"
	StatusDropped   = "dropped"
	StatusPlanned   = "planned"
)

// HistoryEntry is one row of a user's list as served by the history store:
// a catalog item together with the user's status, rating and completion
// timestamp. Ratings are on the 0-10 scale; 0 means unrated.
type HistoryEntry struct {
	Item       CatalogItem `json:"item"`
	Status     string      `json:"status" db:"status"`
	Rating     float64     `json:"rating" db:"rating"`
	FinishedAt *time.Time  `json:"finished_at,omitempty" db:"finished_at"`
}

// Rated reports whether the user actually scored the entry.
func (e HistoryEntry) Rated() bool {
	return e.Rating > 0
}

func (e HistoryEntry) Completed() bool {
	return e.Status == StatusCompleted
}
