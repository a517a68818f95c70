package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func days(ss ...string) []time.Time {
	out := make([]time.Time, 0, len(ss))
	for _, s := range ss {
		out = append(out, day(s))
	}
	return out
}

func TestStreakEndingAt(t *testing.T) {
	dates := days("2026-03-01", "2026-03-02", "2026-03-03", "2026-03-05")

	assert.Equal(t, 3, streakEndingAt(dates, day("2026-03-03")))
	assert.Equal(t, 2, streakEndingAt(dates, day("2026-03-02")))
	assert.Equal(t, 1, streakEndingAt(dates, day("2026-03-05")), "gap before 03-05 resets the run")
	assert.Equal(t, 0, streakEndingAt(dates, day("2026-03-04")), "absent day has no streak")
	assert.Equal(t, 0, streakEndingAt(nil, day("2026-03-01")))
}

func TestStreakEndingAtBackfill(t *testing.T) {
	// Logging 03-02 after 03-01 and 03-03 already exist must bridge the
	// two runs into one.
	dates := days("2026-03-01", "2026-03-02", "2026-03-03")
	assert.Equal(t, 3, streakEndingAt(dates, day("2026-03-03")))
	assert.Equal(t, 2, streakEndingAt(dates, day("2026-03-02")))
}

func TestCurrentStreak(t *testing.T) {
	assert.Equal(t, 0, currentStreak(nil))
	assert.Equal(t, 1, currentStreak(days("2026-03-01")))
	assert.Equal(t, 3, currentStreak(days("2026-03-01", "2026-03-02", "2026-03-03")))
	assert.Equal(t, 1, currentStreak(days("2026-03-01", "2026-03-02", "2026-03-09")))
}

func TestLongestStreak(t *testing.T) {
	assert.Equal(t, 0, longestStreak(nil))
	assert.Equal(t, 1, longestStreak(days("2026-03-01")))
	assert.Equal(t, 3, longestStreak(days("2026-03-01", "2026-03-02", "2026-03-03", "2026-03-07", "2026-03-08")))
	assert.Equal(t, 4, longestStreak(days("2026-03-01", "2026-03-04", "2026-03-05", "2026-03-06", "2026-03-07")))
}

func TestProgressPct(t *testing.T) {
	assert.Equal(t, 0, progressPct(0, 30))
	assert.Equal(t, 50, progressPct(15, 30))
	assert.Equal(t, 17, progressPct(5, 30))
	assert.Equal(t, 100, progressPct(30, 30))
	assert.Equal(t, 100, progressPct(35, 30), "capped at 100")
	assert.Equal(t, 0, progressPct(5, 0), "zero duration never divides")
}

func TestNormalizeDate(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	in := time.Date(2026, 3, 5, 23, 45, 0, 0, loc)
	got := normalizeDate(in)

	assert.Equal(t, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), got)
}

// The reward for a run of N consecutive days at rate R is
// R*(1+2+...+N) = R*N*(N+1)/2, because each day pays streak*rate.
func TestConsecutiveRunRewardSum(t *testing.T) {
	const rate = 10
	dates := days("2026-03-01", "2026-03-02", "2026-03-03", "2026-03-04", "2026-03-05")

	total := 0
	for _, d := range dates {
		total += streakEndingAt(dates, d) * rate
	}

	n := len(dates)
	assert.Equal(t, rate*n*(n+1)/2, total)
	assert.Equal(t, 150, total)
}
