package spaced_repetition

import (
	"math"

	"github.com/example/learnbot/pkg/models"
)

// DefaultExpectedSeconds is the answer time a question is budgeted when the
// caller does not supply one.
const DefaultExpectedSeconds = 300

// ScoreQuality blends automated correctness, self-assessment, timing and hint
// usage into a single quality in [0,5], rounded to two decimals.
// Out-of-range inputs are clamped.
func ScoreQuality(in models.QualityInput) float64 {
	auto := clamp(in.AutoScore, 0, 1) * 5
	self := clamp(in.SelfRating, 0, 5)
	timing := clamp(in.TimeFactor, 0, 5)
	hints := clamp(in.HintLevelUsed, 0, 5)

	raw := 0.5*auto + 0.3*self + 0.1*timing
	hintPenalty := hints * 0.5

	return round2(clamp(raw-hintPenalty*0.1, 0, 5))
}

// NormalizeTimeFactor maps the time spent on an answer onto the 0-5 scale
// used by ScoreQuality. Faster than expected scores higher. A non-positive
// actual time is treated as invalid and scores 0; a non-positive expected time
// falls back to DefaultExpectedSeconds.
func NormalizeTimeFactor(actualSeconds, expectedSeconds float64) int {
	if actualSeconds <= 0 || math.IsNaN(actualSeconds) {
		return 0
	}
	if expectedSeconds <= 0 || math.IsNaN(expectedSeconds) {
		expectedSeconds = DefaultExpectedSeconds
	}

	ratio := actualSeconds / expectedSeconds
	switch {
	case ratio <= 0.5:
		return 5
	case ratio <= 0.75:
		return 4
	case ratio <= 1.0:
		return 3
	case ratio <= 1.5:
		return 2
	case ratio <= 2.0:
		return 1
	default:
		return 0
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
