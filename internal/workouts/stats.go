package workouts

import (
	"sort"
	"time"
)

// DayStart truncates t to midnight in its own location. All day-bucketing in
// this package keys on these values.
func DayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// WeekStart returns the Sunday starting the week that contains t, at
// midnight. The week convention is fixed to Sunday-first so that the
// derivations stay deterministic regardless of the server locale.
func WeekStart(t time.Time) time.Time {
	day := DayStart(t)
	return day.AddDate(0, 0, -int(day.Weekday()))
}

// FilterVisibility returns the subset of workouts to operate on for the given
// mode. VisibilityAll bypasses filtering entirely. Any other value behaves as
// VisibilityReal, so an unset mode never leaks synthetic data.
func FilterVisibility(workouts []Workout, mode VisibilityMode) []Workout {
	if mode == VisibilityAll {
		return workouts
	}

	keepSynthetic := mode == VisibilitySynthetic
	filtered := make([]Workout, 0, len(workouts))
	for _, w := range workouts {
		if w.Synthetic == keepSynthetic {
			filtered = append(filtered, w)
		}
	}
	return filtered
}

// FilterSince keeps workouts with date >= now - windowDays. Future-dated
// workouts are never dropped since the model does not forbid them. A window
// of 0 days means "today", i.e. everything from today's midnight on.
func FilterSince(workouts []Workout, now time.Time, windowDays int) []Workout {
	cutoff := now.AddDate(0, 0, -windowDays)
	if windowDays == 0 {
		cutoff = DayStart(now)
	}

	filtered := make([]Workout, 0, len(workouts))
	for _, w := range workouts {
		if !w.Date.Before(cutoff) {
			filtered = append(filtered, w)
		}
	}
	return filtered
}

func TotalMinutes(workouts []Workout) int {
	var total int
	for _, w := range workouts {
		total += w.DurationMinutes
	}
	return total
}

// AverageWeight returns the mean body weight, or 0 for an empty set - never
// NaN.
func AverageWeight(workouts []Workout) float64 {
	if len(workouts) == 0 {
		return 0
	}
	var sum float64
	for _, w := range workouts {
		sum += w.WeightKg
	}
	return sum / float64(len(workouts))
}

// AverageDuration returns total minutes divided by the workout count, integer
// division, 0 for an empty set.
func AverageDuration(workouts []Workout) int {
	if len(workouts) == 0 {
		return 0
	}
	return TotalMinutes(workouts) / len(workouts)
}

// DailyTotals buckets workouts per calendar day and sums the minutes.
// Multiple workouts on the same day accumulate.
func DailyTotals(workouts []Workout) map[time.Time]int {
	totals := make(map[time.Time]int)
	for _, w := range workouts {
		totals[DayStart(w.Date)] += w.DurationMinutes
	}
	return totals
}

type WeekTotal struct {
	WeekStart    time.Time `json:"weekStart"`
	TotalMinutes int       `json:"totalMinutes"`
}

// WeeklyTotals sums minutes per week (Sunday-first), one entry per distinct
// week present in the input, sorted ascending by week start.
func WeeklyTotals(workouts []Workout) []WeekTotal {
	week2minutes := make(map[time.Time]int)
	for _, w := range workouts {
		week2minutes[WeekStart(w.Date)] += w.DurationMinutes
	}

	totals := make([]WeekTotal, 0, len(week2minutes))
	for weekStart, minutes := range week2minutes {
		totals = append(totals, WeekTotal{
			WeekStart:    weekStart,
			TotalMinutes: minutes,
		})
	}

	sort.Slice(totals, func(i, j int) bool {
		return totals[i].WeekStart.Before(totals[j].WeekStart)
	})

	return totals
}
