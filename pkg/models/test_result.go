package models

import "time"

// TestType is the kind of test a learner asks for
type TestType string

const (
	TestReview           TestType = "review"
	TestPractice         TestType = "practice"
	TestWeakAreas        TestType = "weak-areas"
	TestTargetedPractice TestType = "targeted-practice"
	TestAdvancement      TestType = "advancement"
	TestMixedReview      TestType = "mixed-review"
)

// DifficultyDistribution holds percentages per level. They sum to 100.
type DifficultyDistribution struct {
	Beginner     int `json:"beginner"`
	Intermediate int `json:"intermediate"`
	Advanced     int `json:"advanced"`
}

// Of returns the percentage assigned to d.
func (d DifficultyDistribution) Of(level Difficulty) int {
	switch level {
	case Beginner:
		return d.Beginner
	case Advanced:
		return d.Advanced
	default:
		return d.Intermediate
	}
}

// AdaptiveSettings toggles the learner aids of a test
type AdaptiveSettings struct {
	IncreaseTimeLimit bool `json:"increase_time_limit"`
	ProvideHints      bool `json:"provide_hints"`
	ShowExplanations  bool `json:"show_explanations"`
}

// TestStrategy is the set of parameters used to assemble a test
type TestStrategy struct {
	TestType               TestType               `json:"test_type"`
	QuestionCount          int                    `json:"question_count"`
	DifficultyDistribution DifficultyDistribution `json:"difficulty_distribution"`
	TopicFocus             []string               `json:"topic_focus"`
	AdaptiveSettings       AdaptiveSettings       `json:"adaptive_settings"`
}

// TestResult tracks a generated test and, once finished, its score
type TestResult struct {
	ID           int64        `json:"id" db:"id"`
	LearnerID    int64        `json:"learner_id" db:"learner_id"`
	TestType     TestType     `json:"test_type" db:"test_type"`
	Strategy     TestStrategy `json:"strategy" db:"-"`
	QuestionIDs  []int64      `json:"question_ids" db:"-"`
	CorrectCount *int         `json:"correct_count" db:"correct_count"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
}
