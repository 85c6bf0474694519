package spaced_repetition

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/example/learnbot/pkg/models"
)

func TestScoreQuality(t *testing.T) {
	tests := []struct {
		name string
		in   models.QualityInput
		want float64
	}{
		{"typical good answer", models.QualityInput{AutoScore: 0.9, SelfRating: 4, TimeFactor: 4}, 3.85},
		{"perfect", models.QualityInput{AutoScore: 1, SelfRating: 5, TimeFactor: 5}, 4.5},
		{"nothing", models.QualityInput{}, 0},
		{"hints cost a little", models.QualityInput{AutoScore: 1, SelfRating: 5, TimeFactor: 5, HintLevelUsed: 4}, 4.3},
		{"hints never push below zero", models.QualityInput{HintLevelUsed: 5}, 0},
		{"inputs above range are clamped", models.QualityInput{AutoScore: 3, SelfRating: 9, TimeFactor: 9}, 4.5},
		{"negative inputs are clamped", models.QualityInput{AutoScore: -1, SelfRating: -2, TimeFactor: -3, HintLevelUsed: -4}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ScoreQuality(tt.in), 1e-9)
		})
	}
}

func TestScoreQualityStaysInRange(t *testing.T) {
	for auto := 0.0; auto <= 1.0; auto += 0.25 {
		for self := 0.0; self <= 5; self++ {
			for tf := 0.0; tf <= 5; tf++ {
				for hint := 0.0; hint <= 5; hint++ {
					q := ScoreQuality(models.QualityInput{AutoScore: auto, SelfRating: self, TimeFactor: tf, HintLevelUsed: hint})
					assert.GreaterOrEqual(t, q, 0.0)
					assert.LessOrEqual(t, q, 5.0)
				}
			}
		}
	}
}

func TestNormalizeTimeFactor(t *testing.T) {
	tests := []struct {
		actual, expected float64
		want             int
	}{
		{100, 300, 5},
		{150, 300, 5},
		{200, 300, 4},
		{225, 300, 4},
		{300, 300, 3},
		{450, 300, 2},
		{600, 300, 1},
		{601, 300, 0},
		{0, 300, 0},
		{-5, 300, 0},
		{30, 60, 5},
		{100, 0, 5}, // falls back to the default budget
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeTimeFactor(tt.actual, tt.expected), "actual=%v expected=%v", tt.actual, tt.expected)
	}
}
