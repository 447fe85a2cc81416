package workouts

import "time"

// DefaultHeatmapWeeks is the trailing window used by the contribution-style
// heatmap in the app.
const DefaultHeatmapWeeks = 26

// Intensity is the discrete bucket a day's total minutes falls into, used by
// the app for heatmap coloring.
type Intensity string

const (
	IntensityNone   Intensity = "none"
	IntensityLow    Intensity = "low"
	IntensityMedium Intensity = "medium"
	IntensityHigh   Intensity = "high"
	IntensityMax    Intensity = "max"
)

// IntensityFor maps total minutes to an intensity bucket. Bounds are
// inclusive below, exclusive above, and the top bucket is unbounded.
func IntensityFor(minutes int) Intensity {
	switch {
	case minutes <= 0:
		return IntensityNone
	case minutes < 30:
		return IntensityLow
	case minutes < 60:
		return IntensityMedium
	case minutes < 90:
		return IntensityHigh
	default:
		return IntensityMax
	}
}

type HeatmapDay struct {
	Date      time.Time `json:"date"`
	Minutes   int       `json:"minutes"`
	Intensity Intensity `json:"intensity"`
}

// MonthLabel marks the first week bucket whose leading day falls in a new
// calendar month, so the app can render sparse month captions above the grid.
type MonthLabel struct {
	WeekIndex int    `json:"weekIndex"`
	Month     string `json:"month"`
}

type Heatmap struct {
	// Weeks are consecutive buckets of up to 7 days, Sunday-first. Only the
	// last bucket can be short since the range always ends on "today".
	Weeks       [][]HeatmapDay `json:"weeks"`
	MonthLabels []MonthLabel   `json:"monthLabels"`

	// window stats shown under the grid in the app
	ActiveDays    int `json:"activeDays"`
	LongestStreak int `json:"longestStreak"`
	TotalMinutes  int `json:"totalMinutes"`
}

// BuildHeatmap produces the calendar grid for the trailing weeksToShow weeks.
// The range starts on the Sunday of the week weeksToShow-1 weeks back and
// ends on today, so the result is fully determined by (now, weeksToShow,
// dailyTotals).
func BuildHeatmap(now time.Time, weeksToShow int, dailyTotals map[time.Time]int) Heatmap {
	if weeksToShow < 1 {
		weeksToShow = DefaultHeatmapWeeks
	}

	today := DayStart(now)
	start := WeekStart(today.AddDate(0, 0, -7*(weeksToShow-1)))

	days := make([]time.Time, 0, 7*weeksToShow)
	for day := start; !day.After(today); day = day.AddDate(0, 0, 1) {
		days = append(days, day)
	}

	var weeks [][]HeatmapDay
	var currentWeek []HeatmapDay
	for _, day := range days {
		minutes := dailyTotals[day]
		currentWeek = append(currentWeek, HeatmapDay{
			Date:      day,
			Minutes:   minutes,
			Intensity: IntensityFor(minutes),
		})
		if day.Weekday() == time.Saturday {
			weeks = append(weeks, currentWeek)
			currentWeek = nil
		}
	}
	if len(currentWeek) > 0 {
		weeks = append(weeks, currentWeek)
	}

	var labels []MonthLabel
	lastMonth := time.Month(0)
	for weekIndex, week := range weeks {
		month := week[0].Date.Month()
		if month != lastMonth {
			labels = append(labels, MonthLabel{
				WeekIndex: weekIndex,
				Month:     week[0].Date.Format("Jan"),
			})
			lastMonth = month
		}
	}

	var activeDays, totalMinutes int
	for _, day := range days {
		minutes := dailyTotals[day]
		totalMinutes += minutes
		if minutes > 0 {
			activeDays++
		}
	}

	return Heatmap{
		Weeks:         weeks,
		MonthLabels:   labels,
		ActiveDays:    activeDays,
		LongestStreak: LongestStreak(days, dailyTotals),
		TotalMinutes:  totalMinutes,
	}
}
