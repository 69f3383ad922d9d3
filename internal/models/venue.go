package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Venue struct {
	bun.BaseModel `bun:"table:venues"`

	ID      string `bun:"id,pk"`
	Name    string `bun:"name,notnull"`
	Address string `bun:"address"`
	// Count of events currently linked to this venue, maintained by the
	// storage layer on create/delete.
	EventsCount int       `bun:"events_count"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
}
