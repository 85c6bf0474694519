package spaced_repetition

import (
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/example/learnbot/pkg/models"
)

// Defaults for an item seen for the first time
const (
	DefaultEaseFactor = 2.5
	MinEaseFactor     = 1.3
	DefaultInterval   = 1
)

// SM2 implements the SuperMemo-2 algorithm for spaced repetition
type SM2 struct {
	// Qualities at or above this value count as a successful recall
	PassThreshold float64
	// Lower bound of the ease factor
	MinEaseFactor float64
	// Maximum interval in days, 0 means unbounded
	MaxInterval int
}

// NewSM2 creates an SM2 with the standard settings
func NewSM2() *SM2 {
	return &SM2{
		PassThreshold: 3,
		MinEaseFactor: MinEaseFactor,
	}
}

// ScheduleResult is the outcome of one review
type ScheduleResult struct {
	State       models.SRSItemState `json:"state"`
	Quality     float64             `json:"quality"`
	ShouldReset bool                `json:"should_reset"`
}

// Update computes the state that follows a review of the given quality at now.
// The input state is not modified.
func (sm *SM2) Update(state models.SRSItemState, quality float64, now time.Time) (ScheduleResult, error) {
	if err := validate(state); err != nil {
		return ScheduleResult{}, err
	}
	q := clamp(quality, 0, 5)

	next := state
	reset := q < sm.PassThreshold

	// Ease is recomputed on every review, failed ones included.
	ef := state.EaseFactor + (0.1 - (5-q)*(0.08+(5-q)*0.02))
	next.EaseFactor = math.Max(sm.MinEaseFactor, ef)

	if reset {
		next.Repetitions = 0
		next.IntervalDays = 1
	} else {
		next.Repetitions = state.Repetitions + 1
		switch next.Repetitions {
		case 1:
			next.IntervalDays = 1
		case 2:
			next.IntervalDays = 6
		default:
			next.IntervalDays = int(math.Round(float64(state.IntervalDays) * state.EaseFactor))
		}
		if next.IntervalDays < 1 {
			next.IntervalDays = 1
		}
		if sm.MaxInterval > 0 && next.IntervalDays > sm.MaxInterval {
			next.IntervalDays = sm.MaxInterval
		}
	}

	reviewed := now
	next.LastReviewDate = &reviewed
	next.LastQuality = q
	next.NextReviewDate = now.AddDate(0, 0, next.IntervalDays)

	return ScheduleResult{State: next, Quality: q, ShouldReset: reset}, nil
}

var standard = NewSM2()

// UpdateSchedule applies the standard SM-2 settings to state.
func UpdateSchedule(state models.SRSItemState, quality float64, now time.Time) (ScheduleResult, error) {
	return standard.Update(state, quality, now)
}

// IsDue reports whether the item should be reviewed at now.
func IsDue(state models.SRSItemState, now time.Time) bool {
	return !state.NextReviewDate.After(now)
}

// NewItemState returns the state of an item on first exposure.
func NewItemState(learnerID, itemID int64, now time.Time) models.SRSItemState {
	return models.SRSItemState{
		LearnerID:      learnerID,
		ItemID:         itemID,
		Repetitions:    0,
		EaseFactor:     DefaultEaseFactor,
		IntervalDays:   DefaultInterval,
		NextReviewDate: now,
	}
}

// ItemDifficulty is the coarse difficulty used for first intervals
type ItemDifficulty string

const (
	Easy   ItemDifficulty = "easy"
	Medium ItemDifficulty = "medium"
	Hard   ItemDifficulty = "hard"
)

var difficultyMultiplier = map[ItemDifficulty]float64{
	Easy:   1.0,
	Medium: 0.8,
	Hard:   0.6,
}

// DifficultyOf maps a question level onto an ItemDifficulty.
func DifficultyOf(d models.Difficulty) ItemDifficulty {
	switch d {
	case models.Beginner:
		return Easy
	case models.Advanced:
		return Hard
	default:
		return Medium
	}
}

// InitialInterval returns the first interval in days for an item given the
// learner's mastery of its topic (0-1). Unknown difficulties count as medium.
func InitialInterval(masteryScore float64, difficulty ItemDifficulty) int {
	m, ok := difficultyMultiplier[difficulty]
	if !ok {
		m = difficultyMultiplier[Medium]
	}
	mastery := math.Max(0.5, clamp(masteryScore, 0, 1))
	return int(math.Max(1, math.Round(1*mastery*m)))
}

// IsMastered determines if an item is considered mastered:
// reviewed successfully at least 5 times in a row with an interval of 30 days or more.
func IsMastered(state models.SRSItemState) bool {
	return state.Repetitions >= 5 && state.IntervalDays >= 30
}

func validate(state models.SRSItemState) error {
	switch {
	case state.IntervalDays < 0:
		return errors.Wrapf(ErrInvalidSchedulingState, "negative interval %d for item %d", state.IntervalDays, state.ItemID)
	case state.EaseFactor < 0 || math.IsNaN(state.EaseFactor):
		return errors.Wrapf(ErrInvalidSchedulingState, "ease factor %v for item %d", state.EaseFactor, state.ItemID)
	case state.Repetitions < 0:
		return errors.Wrapf(ErrInvalidSchedulingState, "negative repetitions %d for item %d", state.Repetitions, state.ItemID)
	}
	return nil
}
