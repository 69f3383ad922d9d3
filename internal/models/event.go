package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID          string `bun:"id,pk"`
	Title       string `bun:"title,notnull"`
	Description string `bun:"description"`
	URL         string `bun:"url"`
	RRule       string `bun:"rrule"`

	StartTime time.Time `bun:"start_time,notnull"`
	EndTime   time.Time `bun:"end_time,nullzero"`

	VenueID       string `bun:"venue_id,nullzero"`
	SourceID      string `bun:"source_id,nullzero"`
	DuplicateOfID string `bun:"duplicate_of_id,nullzero"`

	// Denormalized copy of venue data taken at import time, kept even if
	// the venue record changes later.
	VenueDetails string `bun:"venue_details"`

	Locked    bool      `bun:"locked"`
	Version   int       `bun:"version"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`

	Venue  *Venue  `bun:"rel:belongs-to,join:venue_id=id"`
	Source *Source `bun:"rel:belongs-to,join:source_id=id"`
}

// HasEnd reports whether the event has an explicit end time. A zero EndTime
// is stored as NULL and means open-ended.
func (e Event) HasEnd() bool {
	return !e.EndTime.IsZero()
}

// IsDuplicate reports whether this event has been squashed into a canonical one.
func (e Event) IsDuplicate() bool {
	return e.DuplicateOfID != ""
}

// LockEditing marks the event as read-only for edits.
func (e *Event) LockEditing() {
	e.Locked = true
}

// UnlockEditing re-enables edits.
func (e *Event) UnlockEditing() {
	e.Locked = false
}
