package workouts

import "time"

// currentStreakLookbackDays caps the backwards walk of CurrentStreak.
const currentStreakLookbackDays = 30

// CurrentStreak counts consecutive days with at least one workout, walking
// backwards from today. A workout with 0 minutes still counts - only record
// existence matters here. The streak must be unbroken through today: no
// workout today means streak 0 no matter what happened yesterday.
func CurrentStreak(workouts []Workout, now time.Time) int {
	if len(workouts) == 0 {
		return 0
	}

	activeDays := make(map[time.Time]struct{}, len(workouts))
	for _, w := range workouts {
		activeDays[DayStart(w.Date)] = struct{}{}
	}

	streak := 0
	day := DayStart(now)
	for i := 0; i < currentStreakLookbackDays; i++ {
		if _, ok := activeDays[day]; !ok {
			break
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}

	return streak
}

// LongestStreak scans the given days in ascending order and returns the
// longest run of consecutive days with a positive total. Days missing from
// the totals, or with a zero total, reset the run - there is no grace day.
func LongestStreak(days []time.Time, dailyTotals map[time.Time]int) int {
	var current, longest int
	for _, day := range days {
		if dailyTotals[day] > 0 {
			current++
			if current > longest {
				longest = current
			}
		} else {
			current = 0
		}
	}
	return longest
}
