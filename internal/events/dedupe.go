package events

import (
	"errors"
	"fmt"

	"ms-events/internal/models"
)

var (
	ErrSelfSquash        = errors.New("cannot squash an event into itself")
	ErrDuplicateCycle    = errors.New("cycle detected while resolving canonical event")
	ErrCanonicalNotFound = errors.New("canonical event not found")
)

// DefaultCompareFields is the attribute allowlist duplicate equality runs
// over. Identifier, duplicate reference, version, source and venue references,
// timestamps and tag links are deliberately absent: they are volatile or
// administrative and two imports of the same event will differ on them.
var DefaultCompareFields = []string{
	"title",
	"description",
	"url",
	"rrule",
	"start_time",
	"end_time",
}

// Matcher decides whether two events are duplicates of each other by
// comparing a configurable allowlist of normalized attributes.
type Matcher struct {
	Normalizer *Normalizer
	Fields     []string
}

func NewMatcher(n *Normalizer, fields ...string) *Matcher {
	if len(fields) == 0 {
		fields = DefaultCompareFields
	}
	return &Matcher{Normalizer: n, Fields: fields}
}

// Equal reports whether a and b agree on every allowlisted attribute,
// comparing the normalized projections rather than the raw stored values.
func (m *Matcher) Equal(a, b models.Event) bool {
	for _, field := range m.Fields {
		if !m.fieldEqual(field, a, b) {
			return false
		}
	}
	return true
}

func (m *Matcher) fieldEqual(field string, a, b models.Event) bool {
	switch field {
	case "title":
		return m.Normalizer.Title(a) == m.Normalizer.Title(b)
	case "description":
		return m.Normalizer.Description(a) == m.Normalizer.Description(b)
	case "url":
		return a.URL == b.URL
	case "rrule":
		return a.RRule == b.RRule
	case "start_time":
		return a.StartTime.Equal(b.StartTime)
	case "end_time":
		if a.HasEnd() != b.HasEnd() {
			return false
		}
		return !a.HasEnd() || a.EndTime.Equal(b.EndTime)
	default:
		// Unknown allowlist entries never match, so a misconfigured
		// field set fails loudly instead of over-merging.
		return false
	}
}

// FindDuplicate scans scope in order and returns the first event equal to
// candidate, or nil. The caller supplies scope already restricted to future
// events and ordered by id ascending, which makes the lowest id the winner
// when several events match. Read-only and safe to call concurrently.
func (m *Matcher) FindDuplicate(candidate models.Event, scope []models.Event) *models.Event {
	for i := range scope {
		if scope[i].ID == candidate.ID {
			continue
		}
		if m.Equal(candidate, scope[i]) {
			match := scope[i]
			return &match
		}
	}
	return nil
}

// SquashStore is the slice of the storage layer squashing needs.
type SquashStore interface {
	GetEventByID(id string) (*models.Event, error)
	UpdateEvent(e models.Event) error
}

// Squasher marks one event as a duplicate of another. Squashing is a soft
// merge: it records provenance via the duplicate reference and touches
// nothing else; tags and other excluded associations stay on the duplicate.
type Squasher struct {
	DB SquashStore
}

func NewSquasher(db SquashStore) *Squasher {
	return &Squasher{DB: db}
}

// ResolveCanonical follows e's duplicate reference up to its canonical
// ancestor. Chains should never be persisted, but a broken store must surface
// as an error rather than an infinite loop.
func (s *Squasher) ResolveCanonical(e *models.Event) (*models.Event, error) {
	seen := map[string]bool{e.ID: true}
	current := e
	for current.IsDuplicate() {
		if seen[current.DuplicateOfID] {
			return nil, ErrDuplicateCycle
		}
		seen[current.DuplicateOfID] = true
		next, err := s.DB.GetEventByID(current.DuplicateOfID)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrCanonicalNotFound, current.DuplicateOfID)
		}
		current = next
	}
	return current, nil
}

// Squash points duplicate at canonical's own canonical ancestor, keeping the
// duplicate forest flat. Re-squashing into the same canonical is a success
// no-op; squashing into a different canonical overwrites the reference. On
// any error nothing is persisted and duplicate is left unmodified.
func (s *Squasher) Squash(duplicate, canonical *models.Event) error {
	if duplicate.ID == canonical.ID {
		return ErrSelfSquash
	}

	resolved, err := s.ResolveCanonical(canonical)
	if err != nil {
		return err
	}
	if resolved.ID == duplicate.ID {
		return ErrSelfSquash
	}
	if duplicate.DuplicateOfID == resolved.ID {
		return nil
	}

	previous := duplicate.DuplicateOfID
	duplicate.DuplicateOfID = resolved.ID
	if err := s.DB.UpdateEvent(*duplicate); err != nil {
		duplicate.DuplicateOfID = previous
		return fmt.Errorf("failed to persist squash: %w", err)
	}
	return nil
}
