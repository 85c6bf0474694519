package learning

import "errors"

// ErrNothingToReview is returned when a learner has no due and no unseen items
var ErrNothingToReview = errors.New("learning: nothing to review")
