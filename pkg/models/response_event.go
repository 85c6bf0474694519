package models

import "time"

// ResponseEvent records one answer given by a learner. Events are immutable and
// the order in which they were appended is significant.
type ResponseEvent struct {
	Seq              int64        `json:"seq" db:"seq"`
	EventID          string       `json:"event_id" db:"event_id"`
	LearnerID        int64        `json:"learner_id" db:"learner_id"`
	ItemID           int64        `json:"item_id" db:"item_id"`
	Topic            string       `json:"topic" db:"topic"`
	Domain           string       `json:"domain" db:"domain"`
	Difficulty       Difficulty   `json:"difficulty" db:"difficulty"`
	IsCorrect        bool         `json:"is_correct" db:"is_correct"`
	TimeSpentSeconds float64      `json:"time_spent_seconds" db:"time_spent_seconds"`
	QuestionType     QuestionType `json:"question_type" db:"question_type"`
	RecordedAt       time.Time    `json:"recorded_at" db:"recorded_at"`
}
