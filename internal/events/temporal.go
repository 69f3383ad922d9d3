package events

import (
	"time"

	"ms-events/internal/models"
)

// Grace period granted to events with no end time before they count as old.
const oldGracePeriod = time.Hour

// Temporal answers day-boundary questions about events. Every comparison uses
// the start of the relevant calendar day in Location; callers pass reference
// times already expressed in that zone.
type Temporal struct {
	Location *time.Location
}

func NewTemporal(loc *time.Location) *Temporal {
	if loc == nil {
		loc = time.UTC
	}
	return &Temporal{Location: loc}
}

// StartOfDay returns midnight of t's calendar day in the configured zone.
func (tp *Temporal) StartOfDay(t time.Time) time.Time {
	t = t.In(tp.Location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, tp.Location)
}

// IsCurrent reports whether the event ends (or, lacking an end time, starts)
// on or after the start of today.
func (tp *Temporal) IsCurrent(e models.Event, today time.Time) bool {
	edge := e.StartTime
	if e.HasEnd() {
		edge = e.EndTime
	}
	return !edge.Before(tp.StartOfDay(today))
}

// IsOld reports whether the event is over as of the start of now's day. An
// event with no end time is given a fixed one-hour grace past its start.
func (tp *Temporal) IsOld(e models.Event, now time.Time) bool {
	edge := e.StartTime.Add(oldGracePeriod)
	if e.HasEnd() {
		edge = e.EndTime
	}
	return !edge.After(tp.StartOfDay(now))
}

// IsOngoing reports whether the event started before today and is still
// running into it. Open-ended events are never ongoing.
func (tp *Temporal) IsOngoing(e models.Event, today time.Time) bool {
	sod := tp.StartOfDay(today)
	return e.StartTime.Before(sod) && e.HasEnd() && !e.EndTime.Before(sod)
}

// Duration returns end minus start, or zero for open-ended events.
func (tp *Temporal) Duration(e models.Event) time.Duration {
	if !e.HasEnd() {
		return 0
	}
	return e.EndTime.Sub(e.StartTime)
}

// IsFuture reports whether the event starts today or later, or is still
// running past the start of today.
func (tp *Temporal) IsFuture(e models.Event, today time.Time) bool {
	sod := tp.StartOfDay(today)
	if !e.StartTime.Before(sod) {
		return true
	}
	return e.HasEnd() && e.EndTime.After(sod)
}

// IsPast reports whether the event started before today.
func (tp *Temporal) IsPast(e models.Event, today time.Time) bool {
	return e.StartTime.Before(tp.StartOfDay(today))
}

// IsWithin reports whether the event falls inside [startDate, endDate). Equal
// dates mean the single day [startDate, startDate+1d).
func (tp *Temporal) IsWithin(e models.Event, startDate, endDate time.Time) bool {
	from := tp.StartOfDay(startDate)
	until := tp.StartOfDay(endDate)
	if from.Equal(until) {
		until = from.AddDate(0, 0, 1)
	}
	return tp.IsFuture(e, from) && tp.IsPast(e, until)
}
