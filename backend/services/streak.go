package services

import (
	"time"

	"microlearn/backend/models"
)

// DayOf truncates t to its calendar day: midnight UTC of the local date.
// Storing streak dates this way keeps comparisons exact after a round-trip
// through the database, which normalizes timestamps to UTC.
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// StartOfDay returns midnight of t's calendar day, in t's location. Unlike
// DayOf this is a real instant, usable as a lower bound in timestamp queries.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// InUserZone converts t to the named timezone when it parses, and returns t
// unchanged otherwise.
func InUserZone(t time.Time, tz string) time.Time {
	if tz == "" {
		return t
	}
	if loc, err := time.LoadLocation(tz); err == nil {
		return t.In(loc)
	}
	return t
}

// AdvanceStreak applies the day-boundary rules to a streak row for an
// activity happening at now:
//
//   - same day as the last activity: nothing changes
//   - the day after the last activity: current streak grows by one
//   - anything else (gap, or first activity ever): streak restarts at 1
//
// Longest streak is raised to match when the current streak passes it.
// Returns true if the row changed and needs saving.
func AdvanceStreak(streak *models.UserStreak, now time.Time) bool {
	today := DayOf(now)

	if !streak.LastActivityDate.IsZero() && DayOf(streak.LastActivityDate).Equal(today) {
		return false
	}

	if DayOf(streak.LastActivityDate).Equal(today.AddDate(0, 0, -1)) {
		streak.CurrentStreak++
	} else {
		streak.CurrentStreak = 1
	}

	streak.LastActivityDate = today
	if streak.CurrentStreak > streak.LongestStreak {
		streak.LongestStreak = streak.CurrentStreak
	}
	return true
}
