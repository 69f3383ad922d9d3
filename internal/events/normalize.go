package events

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"ms-events/internal/models"
	"ms-events/internal/utils"
)

var (
	crlfReplacer = strings.NewReplacer("\r\n", "\n", "\r", "\n")
	schemeRe     = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)
)

// Normalizer applies the write-normalization / read-projection rules raw
// field input goes through before an event is considered valid. Bad time
// values degrade to a recorded field error, never a failure of the write.
type Normalizer struct {
	Location      *time.Location
	DefaultScheme string
}

func NewNormalizer(loc *time.Location, defaultScheme string) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	if defaultScheme == "" {
		defaultScheme = "http://"
	}
	return &Normalizer{Location: loc, DefaultScheme: defaultScheme}
}

// Title is the read projection for the title field: surrounding whitespace
// stripped. A whitespace-only title projects to the empty string and then
// fails the presence validation.
func (n *Normalizer) Title(e models.Event) string {
	return strings.TrimSpace(e.Title)
}

// Description is the read projection for descriptions: every \r\n pair and
// lone \r becomes \n.
func (n *Normalizer) Description(e models.Event) string {
	return crlfReplacer.Replace(e.Description)
}

// SetURL stores raw as the event URL, prefixing the default scheme when the
// value is non-empty and carries no scheme of its own.
func (n *Normalizer) SetURL(e *models.Event, raw string) {
	raw = strings.TrimSpace(raw)
	if raw != "" && !schemeRe.MatchString(raw) {
		raw = n.DefaultScheme + raw
	}
	e.URL = raw
}

// SetStartTime coerces value into the configured zone and stores it. On a
// value that cannot be parsed the field is cleared and "is invalid" is
// recorded under start_time; the write itself proceeds.
func (n *Normalizer) SetStartTime(e *models.Event, value interface{}, errs models.ValidationErrors) {
	t, err := utils.CoerceTime(value, n.Location)
	if err != nil {
		e.StartTime = time.Time{}
		errs.Add("start_time", "is invalid")
		return
	}
	e.StartTime = t
}

// SetEndTime behaves like SetStartTime for the end_time field.
func (n *Normalizer) SetEndTime(e *models.Event, value interface{}, errs models.ValidationErrors) {
	t, err := utils.CoerceTime(value, n.Location)
	if err != nil {
		e.EndTime = time.Time{}
		errs.Add("end_time", "is invalid")
		return
	}
	e.EndTime = t
}

// ApplyProjections rewrites the stored title and description to their
// projected forms so comparisons and persistence see canonical values.
func (n *Normalizer) ApplyProjections(e *models.Event) {
	e.Title = n.Title(*e)
	e.Description = n.Description(*e)
}

// Validate appends field-level problems to errs and returns it: blank title,
// missing start time, end before start, malformed URL. Errors are additive;
// several can coexist on one event.
func (n *Normalizer) Validate(e models.Event, errs models.ValidationErrors) models.ValidationErrors {
	if errs == nil {
		errs = models.ValidationErrors{}
	}
	if n.Title(e) == "" {
		errs.Add("title", "can't be blank")
	}
	if e.StartTime.IsZero() && len(errs["start_time"]) == 0 {
		errs.Add("start_time", "can't be blank")
	}
	if e.HasEnd() && !e.StartTime.IsZero() && e.EndTime.Before(e.StartTime) {
		errs.Add("end_time", "cannot be before start time")
	}
	if e.URL != "" {
		if u, err := url.Parse(e.URL); err != nil || u.Host == "" {
			errs.Add("url", "is invalid")
		}
	}
	return errs
}
