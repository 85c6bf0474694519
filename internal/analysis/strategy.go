package analysis

import (
	"math"
	"strings"

	"github.com/pkg/errors"

	"github.com/example/learnbot/pkg/models"
)

// DefaultQuestionCount is used when neither the test type nor the caller fixes a count.
const DefaultQuestionCount = 10

// Accuracy bounds that bias every strategy regardless of test type
const (
	StruggleBelow = 60.0
	ExcelFrom     = 80.0
)

// ParseTestType resolves a requested test type. Aliases are folded and
// anything unrecognized falls back to mixed review.
func ParseTestType(s string) models.TestType {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", "-")
	switch models.TestType(s) {
	case models.TestReview:
		return models.TestReview
	case models.TestPractice:
		return models.TestPractice
	case models.TestWeakAreas, models.TestTargetedPractice, "weak", "targeted":
		return models.TestWeakAreas
	case models.TestAdvancement, "advance":
		return models.TestAdvancement
	default:
		return models.TestMixedReview
	}
}

// SelectStrategy maps a learner's profile and weaknesses onto the parameters
// of a test of the requested type. questionCount is honoured where the test
// type does not fix its own count; zero means DefaultQuestionCount.
//
// Accuracy first biases the base strategy (targeted practice under 60%,
// advancement from 80%); the requested test type then overrides that bias.
func SelectStrategy(profile models.OverallProfile, weaknesses []models.WeaknessArea, testType models.TestType, questionCount int) (models.TestStrategy, error) {
	if profile.TotalQuestionsAttempted == 0 {
		return models.TestStrategy{}, errors.Wrap(ErrNoPerformanceData, "select strategy")
	}
	testType = ParseTestType(string(testType))
	if questionCount <= 0 {
		questionCount = DefaultQuestionCount
	}

	s := models.TestStrategy{
		TestType:               testType,
		QuestionCount:          questionCount,
		DifficultyDistribution: NormalizeDistribution(33, 34, 33),
		AdaptiveSettings: models.AdaptiveSettings{
			ShowExplanations: true,
		},
	}

	switch {
	case profile.OverallAccuracy < StruggleBelow:
		s.DifficultyDistribution = NormalizeDistribution(70, 30, 0)
		s.TopicFocus = TopWeakTopics(weaknesses, 2)
		s.AdaptiveSettings.ProvideHints = true
		s.AdaptiveSettings.IncreaseTimeLimit = true
	case profile.OverallAccuracy >= ExcelFrom:
		s.DifficultyDistribution = NormalizeDistribution(20, 40, 40)
	}

	switch testType {
	case models.TestReview:
		s.DifficultyDistribution = NormalizeDistribution(30, 50, 20)
		s.QuestionCount = 15
		s.TopicFocus = nil
		s.AdaptiveSettings.ProvideHints = false
		s.AdaptiveSettings.ShowExplanations = true
	case models.TestWeakAreas:
		s.DifficultyDistribution = NormalizeDistribution(60, 40, 0)
		s.TopicFocus = TopWeakTopics(weaknesses, 2)
		s.AdaptiveSettings.ProvideHints = true
	case models.TestPractice:
		s.DifficultyDistribution = NormalizeDistribution(40, 40, 20)
		s.QuestionCount = 12
		s.TopicFocus = nil
	case models.TestAdvancement:
		s.DifficultyDistribution = NormalizeDistribution(10, 40, 50)
		s.TopicFocus = nil
		s.AdaptiveSettings.ProvideHints = false
	default:
		s.TopicFocus = TopWeakTopics(weaknesses, 3)
	}

	if len(s.TopicFocus) == 0 {
		s.TopicFocus = nil
	}
	return s, nil
}

// NormalizeDistribution scales three weights into whole percentages summing
// to 100. Beginner and intermediate are floored; advanced absorbs the rest.
// Negative weights count as zero and all-zero weights split evenly.
func NormalizeDistribution(beginner, intermediate, advanced float64) models.DifficultyDistribution {
	beginner = math.Max(0, beginner)
	intermediate = math.Max(0, intermediate)
	advanced = math.Max(0, advanced)

	total := beginner + intermediate + advanced
	if total == 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return NormalizeDistribution(1, 1, 1)
	}

	b := int(math.Floor(beginner*100/total + 1e-9))
	i := int(math.Floor(intermediate*100/total + 1e-9))
	return models.DifficultyDistribution{
		Beginner:     b,
		Intermediate: i,
		Advanced:     100 - b - i,
	}
}
