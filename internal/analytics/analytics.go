// Package analytics derives engagement metrics from the entry logs. Every
// function is pure: the same entries and the same "now" give the same result.
// Calendar dates are taken in the location of the supplied time.
package analytics

import (
	"sort"
	"time"

	"github.com/julianstephens/hearth/internal/constants"
	"github.com/julianstephens/hearth/internal/models"
	"github.com/julianstephens/hearth/internal/utils"
)

// StreakData summarizes consistency of journaling.
type StreakData struct {
	CurrentStreak   int      `json:"currentStreak"`
	TotalActiveDays int      `json:"totalActiveDays"`
	ActivityDates   []string `json:"activityDates"`
}

// DayActivity is one cell of the activity calendar.
type DayActivity struct {
	Date  string                  `json:"date"`
	Count int                     `json:"count"`
	Level constants.ActivityLevel `json:"level"`
}

// dayCounts maps a YYYY-MM-DD date in loc to the number of entries on it.
func dayCounts(d *models.AppData, loc *time.Location) map[string]int {
	counts := make(map[string]int)
	for _, e := range d.MoodEntries {
		counts[utils.DateKey(e.Date, loc)]++
	}
	for _, e := range d.ReflectionEntries {
		counts[utils.DateKey(e.Date, loc)]++
	}
	for _, e := range d.GratitudeEntries {
		counts[utils.DateKey(e.Date, loc)]++
	}
	return counts
}

// ActivityDates returns the distinct dates with at least one entry, ascending.
func ActivityDates(d *models.AppData, loc *time.Location) []string {
	counts := dayCounts(d, loc)
	dates := make([]string, 0, len(counts))
	for date := range counts {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates
}

// TotalActiveDays is the number of distinct active dates. It is not capped.
func TotalActiveDays(d *models.AppData, loc *time.Location) int {
	return len(dayCounts(d, loc))
}

// CurrentStreak counts consecutive active dates ending today, scanning back at
// most MaxStreakScanDays days. A missing today means a streak of zero.
func CurrentStreak(active map[string]bool, now time.Time) int {
	day := utils.StartOfDay(now, now.Location())
	streak := 0
	for i := 0; i < constants.MaxStreakScanDays; i++ {
		if !active[day.Format(constants.DateFormat)] {
			break
		}
		streak++
		day = utils.AddDays(day, -1)
	}
	return streak
}

// Streak computes the full StreakData as of now.
func Streak(d *models.AppData, now time.Time) StreakData {
	dates := ActivityDates(d, now.Location())
	active := make(map[string]bool, len(dates))
	for _, date := range dates {
		active[date] = true
	}
	return StreakData{
		CurrentStreak:   CurrentStreak(active, now),
		TotalActiveDays: len(dates),
		ActivityDates:   dates,
	}
}

// LevelForCount classifies a day by its entry count.
func LevelForCount(n int) constants.ActivityLevel {
	switch {
	case n <= 0:
		return constants.ActivityNone
	case n == 1:
		return constants.ActivityLow
	case n == 2:
		return constants.ActivityMedium
	default:
		return constants.ActivityHigh
	}
}

// DayLevel classifies the calendar date containing day, in day's location.
func DayLevel(d *models.AppData, day time.Time) constants.ActivityLevel {
	loc := day.Location()
	return LevelForCount(dayCounts(d, loc)[utils.DateKey(day, loc)])
}

// Calendar returns per-day activity for the last days days ending today, oldest first.
func Calendar(d *models.AppData, now time.Time, days int) []DayActivity {
	if days <= 0 {
		return []DayActivity{}
	}
	loc := now.Location()
	counts := dayCounts(d, loc)
	start := utils.AddDays(utils.StartOfDay(now, loc), -(days - 1))

	out := make([]DayActivity, 0, days)
	for i := 0; i < days; i++ {
		date := utils.AddDays(start, i).Format(constants.DateFormat)
		n := counts[date]
		out = append(out, DayActivity{Date: date, Count: n, Level: LevelForCount(n)})
	}
	return out
}
