package workouts

import "time"

// Workout is a single logged training session. Several workouts can land on
// the same calendar day, and the model itself enforces no value ranges - the
// ios app is the one nudging the user towards sane durations.
type Workout struct {
	ID              int       `json:"id"`
	Date            time.Time `json:"date"`
	DurationMinutes int       `json:"durationMinutes"`
	WeightKg        float64   `json:"weightKg"`
	Notes           string    `json:"notes"`
	Synthetic       bool      `json:"synthetic"`
}

// VisibilityMode controls which part of the stored data the derivations
// operate on. Real data is the default; synthetic data is generator-produced
// demo data; "all" is the debug escape hatch that bypasses filtering.
type VisibilityMode string

const (
	VisibilityAll       VisibilityMode = "all"
	VisibilitySynthetic VisibilityMode = "synthetic"
	VisibilityReal      VisibilityMode = "real"
)

func (m VisibilityMode) String() string {
	return string(m)
}

func (m VisibilityMode) IsValid() bool {
	switch m {
	case VisibilityAll, VisibilitySynthetic, VisibilityReal:
		return true
	default:
		return false
	}
}

// ResolveVisibility maps the two persisted toggles to a single mode.
// The show-all debug override always wins over the synthetic/real toggle.
func ResolveVisibility(showAll, useSynthetic bool) VisibilityMode {
	if showAll {
		return VisibilityAll
	}
	if useSynthetic {
		return VisibilitySynthetic
	}
	return VisibilityReal
}
