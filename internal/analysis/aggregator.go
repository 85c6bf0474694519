// Package analysis turns a learner's response history into a performance
// profile, a ranked list of weak topics and a test generation strategy.
// Every function is pure and safe for concurrent use.
package analysis

import (
	"math"

	"github.com/example/learnbot/pkg/models"
)

// Window sizes used when none are configured
const (
	DefaultImprovementWindow = 10
	DefaultConsistencyWindow = 5
)

// Options configures the windowed trend computations
type Options struct {
	ImprovementWindow int // events per window compared by the improvement rate
	ConsistencyWindow int // size of the sliding window for the consistency score
}

// DefaultOptions returns the standard window sizes
func DefaultOptions() Options {
	return Options{
		ImprovementWindow: DefaultImprovementWindow,
		ConsistencyWindow: DefaultConsistencyWindow,
	}
}

func (o Options) withDefaults() Options {
	if o.ImprovementWindow <= 0 {
		o.ImprovementWindow = DefaultImprovementWindow
	}
	if o.ConsistencyWindow <= 0 {
		o.ConsistencyWindow = DefaultConsistencyWindow
	}
	return o
}

// Aggregation is the result of folding a history
type Aggregation struct {
	Profile models.OverallProfile
	Domains []models.DomainPerformance
}

// Topics flattens the per-domain topic results.
func (a Aggregation) Topics() []models.TopicPerformance {
	var out []models.TopicPerformance
	for _, d := range a.Domains {
		out = append(out, d.Topics...)
	}
	return out
}

// AggregateResponses folds history with the default options.
func AggregateResponses(history []models.ResponseEvent) Aggregation {
	return Aggregate(history, DefaultOptions())
}

// Aggregate folds a chronologically ordered history into an overall profile
// and per-domain topic results. Domains and topics keep first-seen order.
func Aggregate(history []models.ResponseEvent, opts Options) Aggregation {
	opts = opts.withDefaults()

	profile := models.OverallProfile{
		TotalQuestionsAttempted: len(history),
		OverallAccuracy:         accuracy(history),
		ImprovementRate:         improvementRate(history, opts.ImprovementWindow),
		ConsistencyScore:        consistencyScore(history, opts.ConsistencyWindow),
		AverageTimePerQuestion:  averageTime(history),
		DifficultyAccuracy:      difficultyAccuracy(history),
	}
	profile.ReadinessLevel = Readiness(profile.OverallAccuracy, profile.ImprovementRate)

	return Aggregation{Profile: profile, Domains: groupByDomain(history)}
}

// Readiness classifies a learner. Branches are checked from the top bucket down.
func Readiness(overallAccuracy, improvementRate float64) models.ReadinessLevel {
	switch {
	case overallAccuracy >= 90 && improvementRate >= 0:
		return models.Overqualified
	case overallAccuracy >= 75 && improvementRate >= 0:
		return models.Ready
	case overallAccuracy >= 60:
		return models.PartiallyReady
	default:
		return models.NotReady
	}
}

func accuracy(events []models.ResponseEvent) float64 {
	if len(events) == 0 {
		return 0
	}
	correct := 0
	for _, e := range events {
		if e.IsCorrect {
			correct++
		}
	}
	return float64(correct) / float64(len(events)) * 100
}

// improvementRate compares the most recent window with the one before it.
// Without a complete earlier window there is no trend to report.
func improvementRate(history []models.ResponseEvent, window int) float64 {
	n := len(history)
	if n < 2*window {
		return 0
	}
	recent := history[n-window:]
	previous := history[n-2*window : n-window]
	return accuracy(recent) - accuracy(previous)
}

func consistencyScore(history []models.ResponseEvent, window int) float64 {
	if len(history) < window {
		return 0
	}

	accuracies := make([]float64, 0, len(history)-window+1)
	for i := 0; i+window <= len(history); i++ {
		accuracies = append(accuracies, accuracy(history[i:i+window]))
	}

	var mean float64
	for _, a := range accuracies {
		mean += a
	}
	mean /= float64(len(accuracies))

	var variance float64
	for _, a := range accuracies {
		variance += (a - mean) * (a - mean)
	}
	variance /= float64(len(accuracies))

	return math.Max(0, 100-math.Sqrt(variance))
}

func averageTime(history []models.ResponseEvent) float64 {
	if len(history) == 0 {
		return 0
	}
	var total float64
	for _, e := range history {
		total += e.TimeSpentSeconds
	}
	return total / float64(len(history))
}

func difficultyAccuracy(history []models.ResponseEvent) map[models.Difficulty]float64 {
	byLevel := make(map[models.Difficulty][]models.ResponseEvent)
	for _, e := range history {
		byLevel[e.Difficulty] = append(byLevel[e.Difficulty], e)
	}
	out := make(map[models.Difficulty]float64, len(byLevel))
	for level, events := range byLevel {
		out[level] = accuracy(events)
	}
	return out
}

type tally struct {
	correct, total int
}

func (t tally) accuracy() float64 {
	if t.total == 0 {
		return 0
	}
	return float64(t.correct) / float64(t.total) * 100
}

func groupByDomain(history []models.ResponseEvent) []models.DomainPerformance {
	var domainOrder []string
	domainTally := make(map[string]*tally)
	topicOrder := make(map[string][]string)
	topicTally := make(map[[2]string]*tally)

	for _, e := range history {
		dt, ok := domainTally[e.Domain]
		if !ok {
			dt = &tally{}
			domainTally[e.Domain] = dt
			domainOrder = append(domainOrder, e.Domain)
		}
		key := [2]string{e.Domain, e.Topic}
		tt, ok := topicTally[key]
		if !ok {
			tt = &tally{}
			topicTally[key] = tt
			topicOrder[e.Domain] = append(topicOrder[e.Domain], e.Topic)
		}
		dt.total++
		tt.total++
		if e.IsCorrect {
			dt.correct++
			tt.correct++
		}
	}

	domains := make([]models.DomainPerformance, 0, len(domainOrder))
	for _, d := range domainOrder {
		perf := models.DomainPerformance{
			Domain:             d,
			Accuracy:           domainTally[d].accuracy(),
			QuestionsAttempted: domainTally[d].total,
		}
		for _, topic := range topicOrder[d] {
			tt := topicTally[[2]string{d, topic}]
			perf.Topics = append(perf.Topics, models.TopicPerformance{
				Domain:             d,
				TopicName:          topic,
				Accuracy:           tt.accuracy(),
				QuestionsAttempted: tt.total,
			})
		}
		domains = append(domains, perf)
	}
	return domains
}
