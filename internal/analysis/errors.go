package analysis

import "errors"

// ErrNoPerformanceData is returned when a learner has no response history.
// Callers should ask the learner to complete a diagnostic first.
var ErrNoPerformanceData = errors.New("analysis: no performance data")
