package workouts

import (
	"math/rand"
	"sort"
	"time"
)

// workoutProbabilityPercent is the chance that a given day in the generated
// window gets a workout, to keep the demo data looking like a real log with
// rest days in it.
const workoutProbabilityPercent = 70

const (
	// DefaultSyntheticDays is the generated window used when no explicit
	// day count was requested.
	DefaultSyntheticDays = 30
	minSyntheticDays     = 10
	maxSyntheticDays     = 100
	syntheticDaysStep    = 10
)

// NormalizeSyntheticDays snaps a requested day count onto the supported
// range. Zero means "not set" and falls back to the default, everything
// else is clamped to [10, 100] and rounded down to the nearest step of 10.
func NormalizeSyntheticDays(days int) int {
	if days == 0 {
		return DefaultSyntheticDays
	}
	if days < minSyntheticDays {
		return minSyntheticDays
	}
	if days > maxSyntheticDays {
		return maxSyntheticDays
	}
	return days - (days % syntheticDaysStep)
}

var generatorDurations = []int{15, 20, 25, 30, 35, 40, 45, 50, 60, 75, 90, 120}

var generatorNotes = []string{
	"Great workout today! 💪",
	"Feeling strong",
	"Tough session but pushed through",
	"Easy recovery day",
	"Personal best!",
	"Feeling tired but completed it",
	"Amazing energy today",
	"Full body workout",
	"Cardio focused session",
	"Strength training day",
	"",
}

// Generator produces synthetic workouts for demo and testing purposes.
type Generator struct {
	rnd *rand.Rand
}

// NewGenerator creates a generator backed by the given random source. A nil
// source gets replaced with a time-seeded one.
func NewGenerator(rnd *rand.Rand) *Generator {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{rnd: rnd}
}

// Generate returns synthetic workouts covering the trailing count days. Each
// day is included independently with the same probability, so the result has
// at most count entries, every date lies within [now - count days, now],
// every entry is flagged synthetic, and the output is sorted ascending by
// date.
func (g *Generator) Generate(now time.Time, count int) []Workout {
	generated := make([]Workout, 0, count)

	for daysAgo := 0; daysAgo < count; daysAgo++ {
		if g.rnd.Intn(101) > workoutProbabilityPercent {
			continue
		}

		generated = append(generated, Workout{
			Date:            now.AddDate(0, 0, -daysAgo),
			DurationMinutes: generatorDurations[g.rnd.Intn(len(generatorDurations))],
			WeightKg:        70.0 + (g.rnd.Float64()*6 - 3),
			Notes:           generatorNotes[g.rnd.Intn(len(generatorNotes))],
			Synthetic:       true,
		})
	}

	sort.Slice(generated, func(i, j int) bool {
		return generated[i].Date.Before(generated[j].Date)
	})

	return generated
}
