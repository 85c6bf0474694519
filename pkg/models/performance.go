package models

import "time"

// ReadinessLevel summarizes how prepared a learner is
type ReadinessLevel string

const (
	NotReady       ReadinessLevel = "not-ready"
	PartiallyReady ReadinessLevel = "partially-ready"
	Ready          ReadinessLevel = "ready"
	Overqualified  ReadinessLevel = "overqualified"
)

// Severity grades a weak topic
type Severity string

const (
	Mild     Severity = "mild"
	Moderate Severity = "moderate"
	Severe   Severity = "severe"
)

// Rank orders severities so that Severe sorts first.
func (s Severity) Rank() int {
	switch s {
	case Severe:
		return 3
	case Moderate:
		return 2
	case Mild:
		return 1
	}
	return 0
}

// TopicPerformance is the accuracy of a learner on one topic
type TopicPerformance struct {
	Domain             string  `json:"domain"`
	TopicName          string  `json:"topic_name"`
	Accuracy           float64 `json:"accuracy"` // 0-100
	QuestionsAttempted int     `json:"questions_attempted"`
}

// DomainPerformance groups topic results of one domain
type DomainPerformance struct {
	Domain             string             `json:"domain"`
	Accuracy           float64            `json:"accuracy"`
	QuestionsAttempted int                `json:"questions_attempted"`
	Topics             []TopicPerformance `json:"topics"`
}

// WeaknessArea is a topic the learner answers poorly
type WeaknessArea struct {
	Domain              string   `json:"domain"`
	Topic               string   `json:"topic"`
	Accuracy            float64  `json:"accuracy"`
	Severity            Severity `json:"severity"`
	CommonErrors        []string `json:"common_errors"`
	RecommendedPractice string   `json:"recommended_practice"`
}

// OverallProfile is the aggregate picture of a learner's history
type OverallProfile struct {
	TotalQuestionsAttempted int                    `json:"total_questions_attempted"`
	OverallAccuracy         float64                `json:"overall_accuracy"`
	ImprovementRate         float64                `json:"improvement_rate"`
	ReadinessLevel          ReadinessLevel         `json:"readiness_level"`
	ConsistencyScore        float64                `json:"consistency_score"`
	AverageTimePerQuestion  float64                `json:"average_time_per_question"`
	DifficultyAccuracy      map[Difficulty]float64 `json:"difficulty_accuracy"`
}

// TopicStatistics is the stored snapshot of a TopicPerformance
type TopicStatistics struct {
	LearnerID          int64   `json:"learner_id" db:"learner_id"`
	Domain             string  `json:"domain" db:"domain"`
	Topic              string  `json:"topic" db:"topic"`
	Accuracy           float64 `json:"accuracy" db:"accuracy"`
	QuestionsAttempted int     `json:"questions_attempted" db:"questions_attempted"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}
