package events

import (
	"errors"
	"fmt"
	"time"

	"ms-events/internal/logger"
	"ms-events/internal/models"
)

var ErrEventLocked = errors.New("event is locked for editing")

// EventDBLayer is the storage collaborator contract. FutureEvents must return
// its result ordered by id ascending so duplicate matching stays
// deterministic.
type EventDBLayer interface {
	CreateEvent(e *models.Event) error
	GetEventByID(id string) (*models.Event, error)
	UpdateEvent(e models.Event) error
	DeleteEvent(id string) error
	FutureEvents(startOfDay time.Time) ([]models.Event, error)
	EventsWithin(from, until time.Time) ([]models.Event, error)
}

// Locker provides the per-canonical mutual exclusion squashing requires when
// imports run concurrently.
type Locker interface {
	LockSquash(canonicalID, holderID string) (bool, error)
	UnlockSquash(canonicalID, holderID string) error
}

// Publisher streams catalog changes to downstream consumers.
type Publisher interface {
	PublishEventCreated(e models.Event) error
	PublishDuplicateSquashed(duplicate, canonical models.Event) error
}

// EventInput is the raw field input an import or edit arrives with. The time
// fields accept anything CoerceTime understands.
type EventInput struct {
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	URL          string      `json:"url"`
	RRule        string      `json:"rrule"`
	StartTime    interface{} `json:"start_time"`
	EndTime      interface{} `json:"end_time"`
	VenueID      string      `json:"venue_id"`
	SourceID     string      `json:"source_id"`
	VenueDetails string      `json:"venue_details"`
}

type EventService struct {
	DB         EventDBLayer
	Normalizer *Normalizer
	Temporal   *Temporal
	Matcher    *Matcher
	Squasher   *Squasher
	Locks      Locker
	Producer   Publisher
	Logger     *logger.Logger

	// Now is swappable for tests.
	Now func() time.Time
}

func NewEventService(db EventDBLayer, loc *time.Location, defaultScheme string) *EventService {
	n := NewNormalizer(loc, defaultScheme)
	return &EventService{
		DB:         db,
		Normalizer: n,
		Temporal:   NewTemporal(loc),
		Matcher:    NewMatcher(n),
		Squasher:   NewSquasher(db),
		Now:        time.Now,
	}
}

func (s *EventService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// ImportEvent normalizes and validates the input, creates the event, and if
// an equal event already exists in the future window squashes the new record
// into it. The duplicate search only covers future events: re-imports of past
// events are not worth deduplicating.
func (s *EventService) ImportEvent(input EventInput) (*models.Event, error) {
	e := models.Event{
		Title:        input.Title,
		Description:  input.Description,
		RRule:        input.RRule,
		VenueID:      input.VenueID,
		SourceID:     input.SourceID,
		VenueDetails: input.VenueDetails,
	}

	errs := models.ValidationErrors{}
	s.Normalizer.SetURL(&e, input.URL)
	s.Normalizer.SetStartTime(&e, input.StartTime, errs)
	s.Normalizer.SetEndTime(&e, input.EndTime, errs)
	s.Normalizer.ApplyProjections(&e)
	if errs = s.Normalizer.Validate(e, errs); errs.Any() {
		return nil, errs
	}

	scope, err := s.DB.FutureEvents(s.Temporal.StartOfDay(s.now()))
	if err != nil {
		return nil, fmt.Errorf("failed to load future events: %w", err)
	}
	match := s.Matcher.FindDuplicate(e, scope)

	if err := s.DB.CreateEvent(&e); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	if match == nil {
		s.publishCreated(e)
		return &e, nil
	}

	if err := s.squashUnderLock(&e, match); err != nil {
		// The event exists either way; an unsquashed duplicate gets
		// picked up again on the next import.
		s.warnf("SQUASH", fmt.Sprintf("import of %s: %v", e.ID, err))
	}
	return &e, nil
}

// SquashEvents squashes the event duplicateID into canonicalID, resolving
// canonicalID to its own canonical ancestor first.
func (s *EventService) SquashEvents(duplicateID, canonicalID string) (*models.Event, error) {
	duplicate, err := s.DB.GetEventByID(duplicateID)
	if err != nil {
		return nil, fmt.Errorf("event %s not found: %w", duplicateID, err)
	}
	canonical, err := s.DB.GetEventByID(canonicalID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCanonicalNotFound, canonicalID)
	}

	if err := s.squashUnderLock(duplicate, canonical); err != nil {
		return nil, err
	}
	return duplicate, nil
}

func (s *EventService) squashUnderLock(duplicate, canonical *models.Event) error {
	if s.Locks != nil {
		ok, err := s.Locks.LockSquash(canonical.ID, duplicate.ID)
		if err != nil {
			return fmt.Errorf("failed to acquire squash lock: %w", err)
		}
		if !ok {
			return fmt.Errorf("squash of %s already in progress", canonical.ID)
		}
		defer func() {
			_ = s.Locks.UnlockSquash(canonical.ID, duplicate.ID)
		}()
	}

	if err := s.Squasher.Squash(duplicate, canonical); err != nil {
		return err
	}

	if s.Logger != nil {
		s.Logger.LogSquash(duplicate.ID, duplicate.DuplicateOfID, "duplicate squashed")
	}
	if s.Producer != nil {
		if err := s.Producer.PublishDuplicateSquashed(*duplicate, *canonical); err != nil {
			s.warnf("KAFKA", fmt.Sprintf("failed to publish duplicate-squashed for %s: %v", duplicate.ID, err))
		}
	}
	return nil
}

func (s *EventService) GetEvent(id string) (*models.Event, error) {
	e, err := s.DB.GetEventByID(id)
	if err != nil {
		return nil, fmt.Errorf("event %s not found: %w", id, err)
	}
	return e, nil
}

// UpdateEvent applies input to an existing event. Locked events reject edits;
// every accepted edit bumps the version counter.
func (s *EventService) UpdateEvent(id string, input EventInput) (*models.Event, error) {
	e, err := s.DB.GetEventByID(id)
	if err != nil {
		return nil, fmt.Errorf("event %s not found: %w", id, err)
	}
	if e.Locked {
		return nil, ErrEventLocked
	}

	e.Title = input.Title
	e.Description = input.Description
	e.RRule = input.RRule
	e.VenueID = input.VenueID
	e.VenueDetails = input.VenueDetails

	errs := models.ValidationErrors{}
	s.Normalizer.SetURL(e, input.URL)
	s.Normalizer.SetStartTime(e, input.StartTime, errs)
	s.Normalizer.SetEndTime(e, input.EndTime, errs)
	s.Normalizer.ApplyProjections(e)
	if errs = s.Normalizer.Validate(*e, errs); errs.Any() {
		return nil, errs
	}

	e.Version++
	if err := s.DB.UpdateEvent(*e); err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}
	return e, nil
}

func (s *EventService) DeleteEvent(id string) error {
	if _, err := s.DB.GetEventByID(id); err != nil {
		return fmt.Errorf("event %s not found: %w", id, err)
	}
	return s.DB.DeleteEvent(id)
}

// SetEventLock toggles the edit lock.
func (s *EventService) SetEventLock(id string, locked bool) (*models.Event, error) {
	e, err := s.DB.GetEventByID(id)
	if err != nil {
		return nil, fmt.Errorf("event %s not found: %w", id, err)
	}
	if locked {
		e.LockEditing()
	} else {
		e.UnlockEditing()
	}
	if err := s.DB.UpdateEvent(*e); err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}
	return e, nil
}

// ListFuture returns the future window ordered by id ascending, the same
// scope duplicate detection searches.
func (s *EventService) ListFuture() ([]models.Event, error) {
	return s.DB.FutureEvents(s.Temporal.StartOfDay(s.now()))
}

// ListWindow returns events within [startDate, endDate) day boundaries;
// equal dates mean that single day.
func (s *EventService) ListWindow(startDate, endDate time.Time) ([]models.Event, error) {
	from := s.Temporal.StartOfDay(startDate)
	until := s.Temporal.StartOfDay(endDate)
	if from.Equal(until) {
		until = from.AddDate(0, 0, 1)
	}

	candidates, err := s.DB.EventsWithin(from, until)
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}
	// The SQL window is an approximation; the predicate decides.
	within := make([]models.Event, 0, len(candidates))
	for _, e := range candidates {
		if s.Temporal.IsWithin(e, startDate, endDate) {
			within = append(within, e)
		}
	}
	return within, nil
}

func (s *EventService) publishCreated(e models.Event) {
	if s.Logger != nil {
		s.Logger.LogEvent("CREATE", e.ID, "event created")
	}
	if s.Producer == nil {
		return
	}
	if err := s.Producer.PublishEventCreated(e); err != nil {
		s.warnf("KAFKA", fmt.Sprintf("failed to publish event-created for %s: %v", e.ID, err))
	}
}

func (s *EventService) warnf(category, message string) {
	if s.Logger != nil {
		s.Logger.Warn(category, message)
	}
}
