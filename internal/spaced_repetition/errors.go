package spaced_repetition

import "errors"

// ErrInvalidSchedulingState is returned when a stored state carries a negative
// interval, ease factor or repetition count. It points at a persistence bug
// upstream and is not recoverable by the learner.
var ErrInvalidSchedulingState = errors.New("spaced_repetition: invalid scheduling state")
