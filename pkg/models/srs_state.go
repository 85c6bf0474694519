package models

import "time"

// SRSItemState is the spaced repetition state of one item for one learner
type SRSItemState struct {
	LearnerID      int64      `json:"learner_id" db:"learner_id"`
	ItemID         int64      `json:"item_id" db:"item_id"`
	Repetitions    int        `json:"repetitions" db:"repetitions"`
	EaseFactor     float64    `json:"ease_factor" db:"ease_factor"`
	IntervalDays   int        `json:"interval_days" db:"interval_days"`
	NextReviewDate time.Time  `json:"next_review_date" db:"next_review_date"`
	LastReviewDate *time.Time `json:"last_review_date" db:"last_review_date"`
	LastQuality    float64    `json:"last_quality" db:"last_quality"`
	Version        int64      `json:"version" db:"version"` // Optimistic concurrency token
}

// QualityInput holds the raw signals blended into a review quality
type QualityInput struct {
	AutoScore     float64 `json:"auto_score"`      // 0-1
	SelfRating    float64 `json:"self_rating"`     // 0-5
	TimeFactor    float64 `json:"time_factor"`     // 0-5
	HintLevelUsed float64 `json:"hint_level_used"` // 0-5
}
