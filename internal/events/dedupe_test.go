package events

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-events/internal/models"
)

// fakeStore is a map-backed SquashStore.
type fakeStore struct {
	events  map[string]*models.Event
	updated []string
	failOn  string
}

func newFakeStore(eventList ...*models.Event) *fakeStore {
	s := &fakeStore{events: map[string]*models.Event{}}
	for _, e := range eventList {
		s.events[e.ID] = e
	}
	return s
}

func (s *fakeStore) GetEventByID(id string) (*models.Event, error) {
	e, ok := s.events[id]
	if !ok {
		return nil, fmt.Errorf("no event with id %s", id)
	}
	copied := *e
	return &copied, nil
}

func (s *fakeStore) UpdateEvent(e models.Event) error {
	if s.failOn == e.ID {
		return fmt.Errorf("write failed for %s", e.ID)
	}
	copied := e
	s.events[e.ID] = &copied
	s.updated = append(s.updated, e.ID)
	return nil
}

func sampleEvent(id string) models.Event {
	return models.Event{
		ID:          id,
		Title:       "Town Hall",
		Description: "Monthly community meeting",
		URL:         "http://example.com/town-hall",
		StartTime:   time.Date(2024, 3, 1, 19, 0, 0, 0, time.UTC),
		EndTime:     time.Date(2024, 3, 1, 21, 0, 0, 0, time.UTC),
	}
}

func TestMatcherIgnoresVolatileFields(t *testing.T) {
	m := NewMatcher(NewNormalizer(time.UTC, "http://"))

	a := sampleEvent("a")
	b := sampleEvent("b")
	b.SourceID = "feed-2"
	b.VenueID = "venue-9"
	b.Version = 7
	b.CreatedAt = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	b.DuplicateOfID = "x"

	assert.True(t, m.Equal(a, b))
}

func TestMatcherComparesNormalizedValues(t *testing.T) {
	m := NewMatcher(NewNormalizer(time.UTC, "http://"))

	a := sampleEvent("a")
	b := sampleEvent("b")
	b.Title = "  Town Hall \n"
	b.Description = "Monthly community meeting\r"
	a.Description = "Monthly community meeting\n"

	assert.True(t, m.Equal(a, b))

	b.Title = "Town Hall 2"
	assert.False(t, m.Equal(a, b))
}

func TestMatcherEndTimePresence(t *testing.T) {
	m := NewMatcher(NewNormalizer(time.UTC, "http://"))

	a := sampleEvent("a")
	b := sampleEvent("b")
	b.EndTime = time.Time{}
	assert.False(t, m.Equal(a, b))

	a.EndTime = time.Time{}
	assert.True(t, m.Equal(a, b))
}

func TestMatcherCustomFieldSet(t *testing.T) {
	m := NewMatcher(NewNormalizer(time.UTC, "http://"), "title", "start_time")

	a := sampleEvent("a")
	b := sampleEvent("b")
	b.Description = "entirely different"
	b.URL = "http://elsewhere.example.com"

	assert.True(t, m.Equal(a, b))
}

func TestFindDuplicateFirstMatchWins(t *testing.T) {
	m := NewMatcher(NewNormalizer(time.UTC, "http://"))

	first := sampleEvent("0001")
	second := sampleEvent("0002")
	other := sampleEvent("0003")
	other.Title = "Different Event"

	// Scope arrives ordered by id ascending; the scan returns the first hit.
	scope := []models.Event{first, second, other}
	match := m.FindDuplicate(sampleEvent("candidate"), scope)
	require.NotNil(t, match)
	assert.Equal(t, "0001", match.ID)
}

func TestFindDuplicateSkipsSelfAndMisses(t *testing.T) {
	m := NewMatcher(NewNormalizer(time.UTC, "http://"))

	self := sampleEvent("self")
	scope := []models.Event{self}
	assert.Nil(t, m.FindDuplicate(self, scope))

	unrelated := sampleEvent("candidate")
	unrelated.StartTime = unrelated.StartTime.Add(24 * time.Hour)
	assert.Nil(t, m.FindDuplicate(unrelated, scope))
}

func TestSquashSetsReference(t *testing.T) {
	dup := sampleEvent("b")
	canonical := sampleEvent("a")
	store := newFakeStore(&dup, &canonical)
	s := NewSquasher(store)

	err := s.Squash(&dup, &canonical)
	require.NoError(t, err)
	assert.Equal(t, "a", dup.DuplicateOfID)

	saved, _ := store.GetEventByID("b")
	assert.Equal(t, "a", saved.DuplicateOfID)
	// The canonical record is untouched
	savedCanonical, _ := store.GetEventByID("a")
	assert.Empty(t, savedCanonical.DuplicateOfID)
}

func TestSquashResolvesCanonicalChain(t *testing.T) {
	c := sampleEvent("c")
	a := sampleEvent("a")
	a.DuplicateOfID = "c"
	b := sampleEvent("b")
	store := newFakeStore(&a, &b, &c)
	s := NewSquasher(store)

	// Squashing B into A must land on C, A's canonical.
	err := s.Squash(&b, &a)
	require.NoError(t, err)
	assert.Equal(t, "c", b.DuplicateOfID)
}

func TestSquashSelfRejected(t *testing.T) {
	a := sampleEvent("a")
	store := newFakeStore(&a)
	s := NewSquasher(store)

	target := a
	err := s.Squash(&a, &target)
	assert.ErrorIs(t, err, ErrSelfSquash)
	assert.Empty(t, a.DuplicateOfID)
	assert.Empty(t, store.updated)
}

func TestSquashIntoOwnDuplicateRejected(t *testing.T) {
	a := sampleEvent("a")
	b := sampleEvent("b")
	b.DuplicateOfID = "a"
	store := newFakeStore(&a, &b)
	s := NewSquasher(store)

	// B already points at A; squashing A into B would make A its own canonical.
	err := s.Squash(&a, &b)
	assert.ErrorIs(t, err, ErrSelfSquash)
	assert.Empty(t, a.DuplicateOfID)
}

func TestSquashIdempotent(t *testing.T) {
	a := sampleEvent("a")
	b := sampleEvent("b")
	b.DuplicateOfID = "a"
	store := newFakeStore(&a, &b)
	s := NewSquasher(store)

	err := s.Squash(&b, &a)
	require.NoError(t, err)
	assert.Empty(t, store.updated, "re-squash into the same canonical should not write")
}

func TestSquashOverwritesDifferentCanonical(t *testing.T) {
	a := sampleEvent("a")
	c := sampleEvent("c")
	b := sampleEvent("b")
	b.DuplicateOfID = "a"
	store := newFakeStore(&a, &b, &c)
	s := NewSquasher(store)

	err := s.Squash(&b, &c)
	require.NoError(t, err)
	assert.Equal(t, "c", b.DuplicateOfID)
}

func TestSquashCycleDetected(t *testing.T) {
	// x -> y -> x should never exist, but a broken store must error out
	// instead of spinning.
	x := sampleEvent("x")
	x.DuplicateOfID = "y"
	y := sampleEvent("y")
	y.DuplicateOfID = "x"
	b := sampleEvent("b")
	store := newFakeStore(&x, &y, &b)
	s := NewSquasher(store)

	err := s.Squash(&b, &x)
	assert.ErrorIs(t, err, ErrDuplicateCycle)
	assert.Empty(t, b.DuplicateOfID)
}

func TestSquashCanonicalNotFound(t *testing.T) {
	a := sampleEvent("a")
	a.DuplicateOfID = "ghost"
	b := sampleEvent("b")
	store := newFakeStore(&a, &b)
	s := NewSquasher(store)

	err := s.Squash(&b, &a)
	assert.ErrorIs(t, err, ErrCanonicalNotFound)
	assert.Empty(t, b.DuplicateOfID)
}

func TestSquashRevertsOnWriteFailure(t *testing.T) {
	a := sampleEvent("a")
	b := sampleEvent("b")
	store := newFakeStore(&a, &b)
	store.failOn = "b"
	s := NewSquasher(store)

	err := s.Squash(&b, &a)
	assert.Error(t, err)
	assert.Empty(t, b.DuplicateOfID, "failed squash must leave the duplicate unmodified")
}
