package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"ms-events/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// CreateEvent inserts the event, assigning an id, version and timestamps, and
// maintains the linked venue's event counter.
func (d *DB) CreateEvent(e *models.Event) error {
	now := time.Now()
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
	if e.Version == 0 {
		e.Version = 1
	}

	_, err := d.Bun.NewInsert().Model(e).Exec(context.Background())
	if err != nil {
		return err
	}

	if e.VenueID != "" {
		_, err = d.Bun.NewUpdate().
			Model((*models.Venue)(nil)).
			Set("events_count = events_count + 1").
			Where("id = ?", e.VenueID).
			Exec(context.Background())
	}
	return err
}

func (d *DB) GetEventByID(id string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("id = ?", id).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (d *DB) UpdateEvent(e models.Event) error {
	e.UpdatedAt = time.Now()
	_, err := d.Bun.NewUpdate().
		Model(&e).
		Column("title", "description", "url", "rrule", "start_time", "end_time",
			"venue_id", "venue_details", "duplicate_of_id", "locked", "version", "updated_at").
		Where("id = ?", e.ID).
		Exec(context.Background())
	return err
}

// DeleteEvent removes the event, its tag links, and decrements the venue
// counter. This is the only way an event ever disappears.
func (d *DB) DeleteEvent(id string) error {
	event, err := d.GetEventByID(id)
	if err != nil {
		return err
	}

	if _, err := d.Bun.NewDelete().
		Model((*models.EventTag)(nil)).
		Where("event_id = ?", id).
		Exec(context.Background()); err != nil {
		return err
	}

	if _, err := d.Bun.NewDelete().
		Model((*models.Event)(nil)).
		Where("id = ?", id).
		Exec(context.Background()); err != nil {
		return err
	}

	if event.VenueID != "" {
		_, err = d.Bun.NewUpdate().
			Model((*models.Venue)(nil)).
			Set("events_count = events_count - 1").
			Where("id = ? AND events_count > 0", event.VenueID).
			Exec(context.Background())
	}
	return err
}

func (d *DB) EventExists(id string) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.Event)(nil)).
		Where("id = ?", id).
		Exists(context.Background())
}

// FutureEvents returns events starting on or after startOfDay, or still
// running past it, ordered by id ascending. This is the duplicate search
// scope; the ordering is what makes the lowest id win ties.
func (d *DB) FutureEvents(startOfDay time.Time) ([]models.Event, error) {
	var events []models.Event
	err := d.Bun.NewSelect().
		Model(&events).
		Where("start_time >= ? OR (end_time IS NOT NULL AND end_time > ?)", startOfDay, startOfDay).
		Order("id ASC").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return events, nil
}

// EventsWithin returns events overlapping [from, until), ordered by start time.
func (d *DB) EventsWithin(from, until time.Time) ([]models.Event, error) {
	var events []models.Event
	err := d.Bun.NewSelect().
		Model(&events).
		Where("start_time < ?", until).
		Where("start_time >= ? OR (end_time IS NOT NULL AND end_time > ?)", from, from).
		Order("start_time ASC").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return events, nil
}

// TagEvent attaches the named tag to an event, creating the tag on first use.
// Tag links stay with the event they were attached to, even through a squash.
func (d *DB) TagEvent(eventID, name string) error {
	tag := models.Tag{ID: uuid.New().String(), Name: name}
	_, err := d.Bun.NewInsert().
		Model(&tag).
		On("CONFLICT (name) DO NOTHING").
		Exec(context.Background())
	if err != nil {
		return err
	}

	if err := d.Bun.NewSelect().
		Model(&tag).
		Where("name = ?", name).
		Limit(1).
		Scan(context.Background()); err != nil {
		return err
	}

	link := models.EventTag{EventID: eventID, TagID: tag.ID}
	_, err = d.Bun.NewInsert().
		Model(&link).
		On("CONFLICT (event_id, tag_id) DO NOTHING").
		Exec(context.Background())
	return err
}

func (d *DB) TagsForEvent(eventID string) ([]models.Tag, error) {
	var tags []models.Tag
	err := d.Bun.NewSelect().
		Model(&tags).
		Join("JOIN event_tags AS et ON et.tag_id = tag.id").
		Where("et.event_id = ?", eventID).
		Order("tag.name ASC").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return tags, nil
}

func (d *DB) GetVenueByID(id string) (*models.Venue, error) {
	var venue models.Venue
	err := d.Bun.NewSelect().
		Model(&venue).
		Where("id = ?", id).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return &venue, nil
}

func (d *DB) CreateVenue(v *models.Venue) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	_, err := d.Bun.NewInsert().Model(v).Exec(context.Background())
	return err
}

func (d *DB) CreateSource(src *models.Source) error {
	if src.ID == "" {
		src.ID = uuid.New().String()
	}
	if src.CreatedAt.IsZero() {
		src.CreatedAt = time.Now()
	}
	_, err := d.Bun.NewInsert().Model(src).Exec(context.Background())
	return err
}
