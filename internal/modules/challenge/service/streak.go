package service

import (
	"math"
	"sort"
	"time"
)

// The streak helpers work on normalized (UTC midnight) unique dates.
// Streak and progress are always recomputed by replaying the log
// history rather than adjusted in place, so out-of-order undos and
// backfilled dates cannot accumulate drift.

func normalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func sortDates(dates []time.Time) {
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
}

func daysBetween(earlier, later time.Time) int {
	return int(later.Sub(earlier).Hours() / 24)
}

// streakEndingAt returns the length of the contiguous run of dates
// ending at day, or 0 if day itself is not present. dates must be
// sorted ascending.
func streakEndingAt(dates []time.Time, day time.Time) int {
	idx := -1
	for i, d := range dates {
		if d.Equal(day) {
			idx = i
			break
		}
	}
	if idx == -1 {
		return 0
	}

	streak := 1
	for i := idx; i > 0; i-- {
		if daysBetween(dates[i-1], dates[i]) != 1 {
			break
		}
		streak++
	}
	return streak
}

// currentStreak is the run ending at the most recent logged day.
func currentStreak(dates []time.Time) int {
	if len(dates) == 0 {
		return 0
	}
	return streakEndingAt(dates, dates[len(dates)-1])
}

// longestStreak scans the whole sequence.
func longestStreak(dates []time.Time) int {
	if len(dates) == 0 {
		return 0
	}

	longest, run := 1, 1
	for i := 1; i < len(dates); i++ {
		if daysBetween(dates[i-1], dates[i]) == 1 {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

// progressPct rounds days_logged/duration_days to a whole percentage,
// capped at 100.
func progressPct(daysLogged, durationDays int) int {
	if durationDays <= 0 {
		return 0
	}
	pct := int(math.Round(float64(daysLogged) / float64(durationDays) * 100))
	if pct > 100 {
		pct = 100
	}
	return pct
}
