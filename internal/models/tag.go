package models

import "github.com/uptrace/bun"

type Tag struct {
	bun.BaseModel `bun:"table:tags"`

	ID   string `bun:"id,pk"`
	Name string `bun:"name,unique,notnull"`
}

// EventTag links events to tags. Tag links are provenance data and stay on a
// duplicate when it gets squashed; they are never moved to the canonical event.
type EventTag struct {
	bun.BaseModel `bun:"table:event_tags"`

	EventID string `bun:"event_id,pk"`
	TagID   string `bun:"tag_id,pk"`
}
