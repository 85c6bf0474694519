package models

import (
	"strings"
	"time"
)

// Difficulty is the level a question or response was pitched at
type Difficulty string

const (
	Beginner     Difficulty = "beginner"
	Intermediate Difficulty = "intermediate"
	Advanced     Difficulty = "advanced"
)

// Difficulties lists the levels in ascending order.
var Difficulties = []Difficulty{Beginner, Intermediate, Advanced}

// ParseDifficulty maps loose spellings onto a Difficulty. Unknown values map to Intermediate.
func ParseDifficulty(s string) Difficulty {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "beginner", "easy", "1":
		return Beginner
	case "advanced", "hard", "3":
		return Advanced
	default:
		return Intermediate
	}
}

// QuestionType identifies the format of a question
type QuestionType string

const (
	MultipleChoice QuestionType = "multiple-choice"
	TrueFalse      QuestionType = "true-false"
	ShortAnswer    QuestionType = "short-answer"
	Coding         QuestionType = "coding"
)

// Question is a learning item in the question pool. Its ID doubles as the SRS item ID.
type Question struct {
	ID              int64        `json:"id" db:"id"`
	TopicID         int64        `json:"topic_id" db:"topic_id"`
	Topic           string       `json:"topic" db:"topic"`
	Domain          string       `json:"domain" db:"domain"`
	Prompt          string       `json:"prompt" db:"prompt"`
	Type            QuestionType `json:"question_type" db:"question_type"`
	Difficulty      Difficulty   `json:"difficulty" db:"difficulty"`
	Options         []string     `json:"options" db:"-"`
	CorrectAnswer   string       `json:"correct_answer" db:"correct_answer"`
	Explanation     string       `json:"explanation" db:"explanation"`
	ExpectedSeconds int          `json:"expected_seconds" db:"expected_seconds"`
	CreatedAt       time.Time    `json:"created_at" db:"created_at"`
}
