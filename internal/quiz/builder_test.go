package quiz

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/learnbot/pkg/models"
)

func newTestBuilder() *Builder {
	return NewBuilderWithRand(rand.New(rand.NewSource(42)))
}

func makePool(topic string, level models.Difficulty, n int, startID int64) []models.Question {
	out := make([]models.Question, 0, n)
	for i := 0; i < n; i++ {
		id := startID + int64(i)
		out = append(out, models.Question{
			ID:            id,
			Topic:         topic,
			Difficulty:    level,
			Type:          models.ShortAnswer,
			CorrectAnswer: fmt.Sprintf("answer-%d", id),
		})
	}
	return out
}

func countBy(qs []models.Question, f func(models.Question) string) map[string]int {
	out := make(map[string]int)
	for _, q := range qs {
		out[f(q)]++
	}
	return out
}

func TestSplitCounts(t *testing.T) {
	tests := []struct {
		name  string
		d     models.DifficultyDistribution
		count int
		want  [3]int
	}{
		{"exact", models.DifficultyDistribution{Beginner: 30, Intermediate: 50, Advanced: 20}, 10, [3]int{3, 5, 2}},
		{"remainder to advanced", models.DifficultyDistribution{Beginner: 30, Intermediate: 50, Advanced: 20}, 15, [3]int{4, 7, 4}},
		{"remainder skips empty bucket", models.DifficultyDistribution{Beginner: 60, Intermediate: 40}, 8, [3]int{4, 4, 0}},
		{"zero count", models.DifficultyDistribution{Beginner: 100}, 0, [3]int{0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitCounts(tt.d, tt.count)
			assert.Equal(t, tt.want, [3]int{got[models.Beginner], got[models.Intermediate], got[models.Advanced]})
			assert.Equal(t, tt.count, got[models.Beginner]+got[models.Intermediate]+got[models.Advanced])
		})
	}
}

func TestBuildFollowsDistribution(t *testing.T) {
	var pool []models.Question
	pool = append(pool, makePool("algebra", models.Beginner, 10, 1)...)
	pool = append(pool, makePool("algebra", models.Intermediate, 10, 100)...)
	pool = append(pool, makePool("algebra", models.Advanced, 10, 200)...)

	strategy := models.TestStrategy{
		QuestionCount:          10,
		DifficultyDistribution: models.DifficultyDistribution{Beginner: 30, Intermediate: 50, Advanced: 20},
	}

	got, err := newTestBuilder().Build(strategy, pool)
	require.NoError(t, err)
	require.Len(t, got, 10)

	levels := countBy(got, func(q models.Question) string { return string(q.Difficulty) })
	assert.Equal(t, 3, levels[string(models.Beginner)])
	assert.Equal(t, 5, levels[string(models.Intermediate)])
	assert.Equal(t, 2, levels[string(models.Advanced)])

	ids := make(map[int64]bool)
	for _, q := range got {
		assert.False(t, ids[q.ID], "duplicate question %d", q.ID)
		ids[q.ID] = true
	}
}

func TestBuildPrefersFocusedTopics(t *testing.T) {
	var pool []models.Question
	pool = append(pool, makePool("geometry", models.Beginner, 10, 1)...)
	pool = append(pool, makePool("algebra", models.Beginner, 3, 100)...)

	strategy := models.TestStrategy{
		QuestionCount:          5,
		DifficultyDistribution: models.DifficultyDistribution{Beginner: 100},
		TopicFocus:             []string{"algebra"},
	}

	got, err := newTestBuilder().Build(strategy, pool)
	require.NoError(t, err)
	require.Len(t, got, 5)

	topics := countBy(got, func(q models.Question) string { return q.Topic })
	assert.Equal(t, 3, topics["algebra"])
	assert.Equal(t, 2, topics["geometry"])
}

func TestBuildFillsShortfall(t *testing.T) {
	pool := makePool("algebra", models.Intermediate, 6, 1)
	strategy := models.TestStrategy{
		QuestionCount:          4,
		DifficultyDistribution: models.DifficultyDistribution{Beginner: 50, Advanced: 50},
	}

	got, err := newTestBuilder().Build(strategy, pool)
	require.NoError(t, err)
	assert.Len(t, got, 4)
}

func TestBuildSmallPool(t *testing.T) {
	pool := makePool("algebra", models.Beginner, 2, 1)
	got, err := newTestBuilder().Build(models.TestStrategy{QuestionCount: 10, DifficultyDistribution: models.DifficultyDistribution{Beginner: 100}}, pool)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestBuildEmptyPool(t *testing.T) {
	_, err := newTestBuilder().Build(models.TestStrategy{QuestionCount: 5}, nil)
	assert.True(t, errors.Is(err, ErrEmptyPool))
}

func TestBuildAddsMultipleChoiceOptions(t *testing.T) {
	pool := makePool("algebra", models.Beginner, 5, 1)
	pool[0].Type = models.MultipleChoice

	got, err := newTestBuilder().Build(models.TestStrategy{QuestionCount: 5, DifficultyDistribution: models.DifficultyDistribution{Beginner: 100}}, pool)
	require.NoError(t, err)

	for _, q := range got {
		if q.ID != pool[0].ID {
			assert.Empty(t, q.Options)
			continue
		}
		assert.Len(t, q.Options, 4)
		assert.Contains(t, q.Options, "answer-1")
	}
	// the caller's pool is not modified
	assert.Empty(t, pool[0].Options)
}
