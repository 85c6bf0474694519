// Package quiz assembles a personalized test from a question pool following a
// test strategy.
package quiz

import (
	"errors"
	"math/rand"
	"time"

	"github.com/example/learnbot/pkg/models"
)

// ErrEmptyPool is returned when there is nothing to pick questions from.
var ErrEmptyPool = errors.New("quiz: question pool is empty")

// distractorCount is the number of wrong options added to a multiple choice question
const distractorCount = 3

// Builder picks pool questions matching a strategy
type Builder struct {
	rnd *rand.Rand
}

// NewBuilder creates a builder seeded from the clock
func NewBuilder() *Builder {
	return NewBuilderWithRand(rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewBuilderWithRand creates a builder drawing from rnd. A Builder is not safe
// for concurrent use because rnd is not.
func NewBuilderWithRand(rnd *rand.Rand) *Builder {
	return &Builder{rnd: rnd}
}

// Build selects up to strategy.QuestionCount distinct questions. Each
// difficulty receives its share of the distribution; within a difficulty,
// questions on focused topics are taken first. Any shortfall is filled from the
// rest of the pool. The result is shorter than requested only when the pool is.
func (b *Builder) Build(strategy models.TestStrategy, pool []models.Question) ([]models.Question, error) {
	if len(pool) == 0 {
		return nil, ErrEmptyPool
	}

	candidates := make([]models.Question, len(pool))
	copy(candidates, pool)
	b.rnd.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	focus := make(map[string]bool, len(strategy.TopicFocus))
	for _, t := range strategy.TopicFocus {
		focus[t] = true
	}
	// focused questions move ahead of the others, each group keeping its shuffled order
	ordered := make([]models.Question, 0, len(candidates))
	for _, q := range candidates {
		if focus[q.Topic] {
			ordered = append(ordered, q)
		}
	}
	for _, q := range candidates {
		if !focus[q.Topic] {
			ordered = append(ordered, q)
		}
	}

	used := make(map[int]bool, strategy.QuestionCount)
	selected := make([]models.Question, 0, strategy.QuestionCount)

	counts := SplitCounts(strategy.DifficultyDistribution, strategy.QuestionCount)
	for _, level := range models.Difficulties {
		need := counts[level]
		for i, q := range ordered {
			if need == 0 {
				break
			}
			if used[i] || q.Difficulty != level {
				continue
			}
			used[i] = true
			selected = append(selected, q)
			need--
		}
	}

	for i, q := range ordered {
		if len(selected) >= strategy.QuestionCount {
			break
		}
		if !used[i] {
			used[i] = true
			selected = append(selected, q)
		}
	}

	for i := range selected {
		selected[i] = b.withOptions(selected[i], pool)
	}
	return selected, nil
}

// SplitCounts turns percentages into question counts for count questions.
// Each share is floored and the last level with a non-zero percentage absorbs
// the remainder, so the counts always add up to count.
func SplitCounts(d models.DifficultyDistribution, count int) map[models.Difficulty]int {
	out := make(map[models.Difficulty]int, len(models.Difficulties))
	if count <= 0 {
		return out
	}

	last := models.Difficulties[len(models.Difficulties)-1]
	for _, level := range models.Difficulties {
		if d.Of(level) > 0 {
			last = level
		}
	}

	assigned := 0
	for _, level := range models.Difficulties {
		if level == last {
			continue
		}
		n := count * d.Of(level) / 100
		out[level] = n
		assigned += n
	}
	out[last] = count - assigned
	return out
}

// withOptions gives a multiple choice question without enough options a set
// of distractors, taken first from other answers on the same topic and then
// from the rest of the pool.
func (b *Builder) withOptions(q models.Question, pool []models.Question) models.Question {
	if q.Type != models.MultipleChoice || len(q.Options) >= 2 || q.CorrectAnswer == "" {
		return q
	}

	seen := map[string]bool{q.CorrectAnswer: true}
	var sameTopic, others []string
	for _, p := range pool {
		if p.ID == q.ID || p.CorrectAnswer == "" || seen[p.CorrectAnswer] {
			continue
		}
		seen[p.CorrectAnswer] = true
		if p.Topic == q.Topic {
			sameTopic = append(sameTopic, p.CorrectAnswer)
		} else {
			others = append(others, p.CorrectAnswer)
		}
	}
	b.rnd.Shuffle(len(sameTopic), func(i, j int) { sameTopic[i], sameTopic[j] = sameTopic[j], sameTopic[i] })
	b.rnd.Shuffle(len(others), func(i, j int) { others[i], others[j] = others[j], others[i] })

	options := make([]string, 0, distractorCount+1)
	for _, o := range append(sameTopic, others...) {
		if len(options) == distractorCount {
			break
		}
		options = append(options, o)
	}
	options = append(options, q.CorrectAnswer)
	b.rnd.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })

	q.Options = options
	return q
}
