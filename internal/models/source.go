package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Source is an external feed events get imported from.
type Source struct {
	bun.BaseModel `bun:"table:sources"`

	ID          string    `bun:"id,pk"`
	Name        string    `bun:"name"`
	URL         string    `bun:"url,notnull"`
	LastFetched time.Time `bun:"last_fetched,nullzero"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
}
