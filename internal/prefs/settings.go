package prefs

// Settings are the app preferences driving which slice of the workout log the
// derived views run over, plus the size of the generated demo dataset.
type Settings struct {
	// ShowAll is the debug override that exposes real and synthetic data at
	// once, it wins over UseSynthetic.
	ShowAll bool `json:"showAll"`

	// UseSynthetic switches the app to the generated demo dataset.
	UseSynthetic bool `json:"useSynthetic"`

	// SyntheticDays is the window covered by a generated demo batch.
	SyntheticDays int `json:"syntheticDays"`
}

const defaultSyntheticDays = 30

// Normalized returns a copy with SyntheticDays snapped onto the supported
// range: 0 falls back to the default, the rest is clamped to [10, 100] and
// rounded down to a step of 10.
func (s Settings) Normalized() Settings {
	normalized := s
	switch {
	case normalized.SyntheticDays == 0:
		normalized.SyntheticDays = defaultSyntheticDays
	case normalized.SyntheticDays < 10:
		normalized.SyntheticDays = 10
	case normalized.SyntheticDays > 100:
		normalized.SyntheticDays = 100
	default:
		normalized.SyntheticDays -= normalized.SyntheticDays % 10
	}
	return normalized
}
