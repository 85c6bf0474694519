package database

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/learnbot/pkg/models"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := Connect(TypeSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedLearner(t *testing.T, db *sqlx.DB) *models.Learner {
	t.Helper()
	l, err := NewLearnerRepository(db).Register(context.Background(), 1001, "ada", "Ada")
	require.NoError(t, err)
	return l
}

func seedQuestion(t *testing.T, db *sqlx.DB, topic, prompt string) *models.Question {
	t.Helper()
	q := &models.Question{
		Domain:        "math",
		Topic:         topic,
		Prompt:        prompt,
		Type:          models.MultipleChoice,
		Difficulty:    models.Beginner,
		Options:       []string{"1", "2", "3"},
		CorrectAnswer: "2",
	}
	_, err := NewQuestionRepository(db).Upsert(context.Background(), q)
	require.NoError(t, err)
	return q
}

func TestConnectRejectsUnknownType(t *testing.T) {
	_, err := Connect("oracle", "")
	assert.Error(t, err)
}

func TestConnectIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	assert.NoError(t, initializeSchema(db))
}

func TestLearnerRegister(t *testing.T) {
	db := openTestDB(t)
	repo := NewLearnerRepository(db)
	ctx := context.Background()

	first, err := repo.Register(ctx, 42, "bob", "Bob")
	require.NoError(t, err)
	assert.NotZero(t, first.ID)
	assert.True(t, first.NotificationEnabled)

	again, err := repo.Register(ctx, 42, "bob", "Bob")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	_, err = repo.GetByID(ctx, 999)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLearnerNotificationFilter(t *testing.T) {
	db := openTestDB(t)
	repo := NewLearnerRepository(db)
	ctx := context.Background()

	a := &models.Learner{Username: "a", NotificationEnabled: true, NotificationHour: 9}
	b := &models.Learner{Username: "b", NotificationEnabled: false, NotificationHour: 9}
	c := &models.Learner{Username: "c", NotificationEnabled: true, NotificationHour: 10}
	for _, l := range []*models.Learner{a, b, c} {
		require.NoError(t, repo.Create(ctx, l))
	}

	got, err := repo.ListForNotification(ctx, 9)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)

	c.NotificationHour = 9
	require.NoError(t, repo.UpdateSettings(ctx, c))
	got, err = repo.ListForNotification(ctx, 9)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestQuestionUpsertAndList(t *testing.T) {
	db := openTestDB(t)
	repo := NewQuestionRepository(db)
	ctx := context.Background()

	q := seedQuestion(t, db, "algebra", "1+1?")
	seedQuestion(t, db, "geometry", "sides of a square?")

	q.Explanation = "basic addition"
	created, err := repo.Upsert(ctx, q)
	require.NoError(t, err)
	assert.False(t, created)

	got, err := repo.GetByID(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, "algebra", got.Topic)
	assert.Equal(t, "math", got.Domain)
	assert.Equal(t, []string{"1", "2", "3"}, got.Options)
	assert.Equal(t, "basic addition", got.Explanation)

	all, err := repo.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	focused, err := repo.List(ctx, []string{"geometry"})
	require.NoError(t, err)
	require.Len(t, focused, 1)
	assert.Equal(t, "geometry", focused[0].Topic)

	topics, err := repo.ListTopics(ctx)
	require.NoError(t, err)
	assert.Len(t, topics, 2)
}

func TestResponseAppendIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	l := seedLearner(t, db)
	repo := NewResponseRepository(db)
	ctx := context.Background()

	e1 := &models.ResponseEvent{LearnerID: l.ID, Topic: "algebra", Domain: "math", Difficulty: models.Beginner, IsCorrect: true, TimeSpentSeconds: 12}
	require.NoError(t, repo.Append(ctx, e1))
	assert.NotEmpty(t, e1.EventID)

	e2 := &models.ResponseEvent{EventID: "fixed", LearnerID: l.ID, Topic: "algebra", Domain: "math", Difficulty: models.Advanced}
	require.NoError(t, repo.Append(ctx, e2))

	dup := *e2
	err := repo.Append(ctx, &dup)
	assert.True(t, errors.Is(err, ErrDuplicateEvent))

	history, err := repo.History(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, e1.EventID, history[0].EventID)
	assert.True(t, history[0].IsCorrect)
	assert.Equal(t, 12.0, history[0].TimeSpentSeconds)
	assert.Equal(t, "fixed", history[1].EventID)
	assert.Less(t, history[0].Seq, history[1].Seq)
}

func TestSRSStateOptimisticLocking(t *testing.T) {
	db := openTestDB(t)
	l := seedLearner(t, db)
	q := seedQuestion(t, db, "algebra", "2+2?")
	repo := NewSRSStateRepository(db)
	ctx := context.Background()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	state := &models.SRSItemState{LearnerID: l.ID, ItemID: q.ID, EaseFactor: 2.5, IntervalDays: 1, NextReviewDate: now}
	require.NoError(t, repo.Create(ctx, state))
	assert.Equal(t, int64(1), state.Version)

	err := repo.Create(ctx, &models.SRSItemState{LearnerID: l.ID, ItemID: q.ID, EaseFactor: 2.5, IntervalDays: 1, NextReviewDate: now})
	assert.True(t, errors.Is(err, ErrStaleState))

	a, err := repo.Get(ctx, l.ID, q.ID)
	require.NoError(t, err)
	b, err := repo.Get(ctx, l.ID, q.ID)
	require.NoError(t, err)

	reviewed := now
	a.Repetitions = 1
	a.LastReviewDate = &reviewed
	a.NextReviewDate = now.AddDate(0, 0, 1)
	require.NoError(t, repo.Save(ctx, a))
	assert.Equal(t, int64(2), a.Version)

	b.Repetitions = 7
	err = repo.Save(ctx, b)
	assert.True(t, errors.Is(err, ErrStaleState))

	stored, err := repo.Get(ctx, l.ID, q.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Repetitions)
	assert.Equal(t, int64(2), stored.Version)
	require.NotNil(t, stored.LastReviewDate)
	assert.True(t, stored.NextReviewDate.Equal(now.AddDate(0, 0, 1)))

	list, err := repo.ListByLearner(ctx, l.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestTestResultRoundTrip(t *testing.T) {
	db := openTestDB(t)
	l := seedLearner(t, db)
	repo := NewTestResultRepository(db)
	ctx := context.Background()

	res := &models.TestResult{
		LearnerID: l.ID,
		TestType:  models.TestReview,
		Strategy: models.TestStrategy{
			TestType:               models.TestReview,
			QuestionCount:          15,
			DifficultyDistribution: models.DifficultyDistribution{Beginner: 30, Intermediate: 50, Advanced: 20},
			TopicFocus:             []string{"algebra"},
		},
		QuestionIDs: []int64{3, 1, 2},
	}
	require.NoError(t, repo.Create(ctx, res))
	assert.NotZero(t, res.ID)

	got, err := repo.GetByID(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Strategy, got.Strategy)
	assert.Equal(t, []int64{3, 1, 2}, got.QuestionIDs)
	assert.Nil(t, got.CorrectCount)

	require.NoError(t, repo.SetScore(ctx, res.ID, 11))
	list, err := repo.ListByLearner(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].CorrectCount)
	assert.Equal(t, 11, *list[0].CorrectCount)

	assert.True(t, errors.Is(repo.SetScore(ctx, 999, 1), ErrNotFound))
}

func TestStatisticsUpsert(t *testing.T) {
	db := openTestDB(t)
	l := seedLearner(t, db)
	repo := NewStatisticsRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, l.ID, []models.TopicPerformance{
		{Domain: "math", TopicName: "algebra", Accuracy: 80, QuestionsAttempted: 5},
		{Domain: "math", TopicName: "geometry", Accuracy: 40, QuestionsAttempted: 5},
	}))
	require.NoError(t, repo.Upsert(ctx, l.ID, []models.TopicPerformance{
		{Domain: "math", TopicName: "algebra", Accuracy: 50, QuestionsAttempted: 6},
	}))

	stats, err := repo.ListByLearner(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "geometry", stats[0].Topic)
	assert.Equal(t, 50.0, stats[1].Accuracy)
	assert.Equal(t, 6, stats[1].QuestionsAttempted)
}
