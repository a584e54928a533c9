// Package recurrence computes when a recurring transaction definition fires.
// All schedule math is in UTC at hour granularity: a definition fires on a
// date at its start hour, and dates are civil (zone-free) values.
package recurrence

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/centavoapp/centavo/internal/domain"
)

// Schedule is the recurrence-relevant slice of a definition.
type Schedule struct {
	Frequency domain.Frequency
	StartDate civil.Date
	StartHour int
	EndDate   *civil.Date
	EndHour   int
}

// FromDefinition extracts the schedule of a recurring definition.
func FromDefinition(r *domain.RecurringTransaction) Schedule {
	return Schedule{
		Frequency: r.Frequency,
		StartDate: r.StartDate,
		StartHour: r.StartHour,
		EndDate:   r.EndDate,
		EndHour:   r.EndHour,
	}
}

// At composes a civil date and an hour into a UTC instant.
func At(d civil.Date, hour int) time.Time {
	return time.Date(d.Year, d.Month, d.Day, hour, 0, 0, 0, time.UTC)
}

// First returns the initial execution instant of the schedule. It may be in
// the past; the due scan (next_execution_at <= now) catches up on it.
func (s Schedule) First() time.Time {
	return At(s.StartDate, s.StartHour)
}

// cutoff returns the last instant the schedule is allowed to fire at, when an
// end date is set.
func (s Schedule) cutoff() (time.Time, bool) {
	if s.EndDate == nil {
		return time.Time{}, false
	}
	return At(*s.EndDate, s.EndHour), true
}

// Expired reports whether t falls past the schedule's end date.
func (s Schedule) Expired(t time.Time) bool {
	limit, ok := s.cutoff()
	return ok && t.After(limit)
}

// Next returns the occurrence following current, or false when the schedule
// has no further occurrence: once fires a single time, and any computed
// occurrence past the end date completes the schedule instead.
//
// Monthly advancement anchors on the start date's day-of-month, clamped to
// the target month's length. A definition anchored on the 31st therefore
// fires Jan 31, Feb 28 (29 in leap years), Mar 31: a short month does not
// erode the anchor.
func (s Schedule) Next(current time.Time) (time.Time, bool) {
	current = current.UTC()
	var next time.Time
	switch s.Frequency {
	case domain.FreqOnce:
		return time.Time{}, false
	case domain.FreqDaily:
		next = onDay(current.AddDate(0, 0, 1), s.StartHour)
	case domain.FreqWeekly:
		next = onDay(current.AddDate(0, 0, 7), s.StartHour)
	case domain.FreqMonthly:
		next = s.nextMonthly(current)
	default:
		return time.Time{}, false
	}
	if s.Expired(next) {
		return time.Time{}, false
	}
	return next, true
}

// Upcoming returns the first occurrence at or after now: First() when the
// schedule starts in the future, otherwise the schedule stepped forward past
// now. Used when a definition is created, edited or resumed so the scheduler
// does not replay occurrences that predate the change. Returns false when
// the schedule has no occurrence left.
func (s Schedule) Upcoming(now time.Time) (time.Time, bool) {
	t := s.First()
	if s.Expired(t) {
		return time.Time{}, false
	}
	if s.Frequency == domain.FreqOnce {
		return t, true
	}
	for t.Before(now) {
		next, ok := s.Next(t)
		if !ok {
			return time.Time{}, false
		}
		t = next
	}
	return t, true
}

func (s Schedule) nextMonthly(current time.Time) time.Time {
	anchor := s.StartDate.Day
	year, month := current.Year(), current.Month()
	month++
	if month > time.December {
		month = time.January
		year++
	}
	day := anchor
	if last := daysIn(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, s.StartHour, 0, 0, 0, time.UTC)
}

func onDay(t time.Time, hour int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hour, 0, 0, 0, time.UTC)
}

// daysIn returns the number of days in the given month.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
