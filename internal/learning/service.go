// Package learning wires the scheduling and analysis engine to storage. It
// fetches history and state, runs the pure stages and writes their results back.
package learning

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/example/learnbot/internal/analysis"
	"github.com/example/learnbot/internal/database"
	"github.com/example/learnbot/internal/quiz"
	"github.com/example/learnbot/internal/spaced_repetition"
	"github.com/example/learnbot/pkg/models"
)

// maxSaveAttempts bounds the reload-and-recompute loop on version conflicts
const maxSaveAttempts = 3

// Config tunes a Service
type Config struct {
	Analysis        analysis.Options
	ExpectedSeconds int // answer time budget for questions without their own
	QuestionCount   int // test size when the learner has no preference
}

// DefaultConfig returns the standard settings
func DefaultConfig() Config {
	return Config{
		Analysis:        analysis.DefaultOptions(),
		ExpectedSeconds: spaced_repetition.DefaultExpectedSeconds,
		QuestionCount:   analysis.DefaultQuestionCount,
	}
}

// Service runs the learning pipeline
type Service struct {
	stores Stores
	config Config
	logger *slog.Logger
	now    func() time.Time

	builderMu sync.Mutex
	builder   *quiz.Builder

	// per (learner, item) locks serialize reviews submitted to this process
	locks sync.Map
}

// NewService creates a new service
func NewService(stores Stores, config Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if config.ExpectedSeconds <= 0 {
		config.ExpectedSeconds = spaced_repetition.DefaultExpectedSeconds
	}
	if config.QuestionCount <= 0 {
		config.QuestionCount = analysis.DefaultQuestionCount
	}
	return &Service{
		stores:  stores,
		config:  config,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
		builder: quiz.NewBuilder(),
	}
}

// Report is the analysis of a learner's history
type Report struct {
	Profile    models.OverallProfile      `json:"profile"`
	Domains    []models.DomainPerformance `json:"domains"`
	Weaknesses []models.WeaknessArea      `json:"weaknesses"`
}

// ReviewSubmission carries the raw signals of one review
type ReviewSubmission struct {
	EventID          string  // idempotency key, generated when empty
	LearnerID        int64
	ItemID           int64
	AutoScore        float64 // 0-1
	SelfRating       float64 // 0-5
	HintLevel        float64 // 0-5
	TimeSpentSeconds float64
	ExpectedSeconds  float64 // overrides the question's own budget when > 0
}

// ReviewOutcome is the result of SubmitReview
type ReviewOutcome struct {
	spaced_repetition.ScheduleResult
	TimeFactor int  `json:"time_factor"`
	Duplicate  bool `json:"duplicate"`
}

// GeneratedTest is a test assembled for a learner
type GeneratedTest struct {
	ResultID  int64               `json:"result_id"`
	Strategy  models.TestStrategy `json:"strategy"`
	Questions []models.Question   `json:"questions"`
}

// RecordResponse appends a response event and refreshes the learner's topic statistics.
// A repeated EventID yields database.ErrDuplicateEvent and changes nothing.
func (s *Service) RecordResponse(ctx context.Context, e *models.ResponseEvent) error {
	if err := s.stores.Responses.Append(ctx, e); err != nil {
		return err
	}
	if _, err := s.refreshStatistics(ctx, e.LearnerID); err != nil {
		s.logger.Warn("failed to refresh statistics", "learner_id", e.LearnerID, "error", err)
	}
	return nil
}

// SubmitReview scores a review, records it as a response event and advances the
// item's schedule. Resubmitting the same EventID returns the current state with
// Duplicate set and does not reschedule.
func (s *Service) SubmitReview(ctx context.Context, sub ReviewSubmission) (*ReviewOutcome, error) {
	q, err := s.stores.Questions.GetByID(ctx, sub.ItemID)
	if err != nil {
		return nil, errors.Wrap(err, "load question")
	}

	expected := sub.ExpectedSeconds
	if expected <= 0 {
		expected = float64(q.ExpectedSeconds)
	}
	if expected <= 0 {
		expected = float64(s.config.ExpectedSeconds)
	}
	timeFactor := spaced_repetition.NormalizeTimeFactor(sub.TimeSpentSeconds, expected)
	quality := spaced_repetition.ScoreQuality(models.QualityInput{
		AutoScore:     sub.AutoScore,
		SelfRating:    sub.SelfRating,
		TimeFactor:    float64(timeFactor),
		HintLevelUsed: sub.HintLevel,
	})

	mu := s.lockFor(sub.LearnerID, sub.ItemID)
	mu.Lock()
	defer mu.Unlock()

	now := s.now()
	event := &models.ResponseEvent{
		EventID:          sub.EventID,
		LearnerID:        sub.LearnerID,
		ItemID:           sub.ItemID,
		Topic:            q.Topic,
		Domain:           q.Domain,
		Difficulty:       q.Difficulty,
		IsCorrect:        sub.AutoScore >= 0.5,
		TimeSpentSeconds: sub.TimeSpentSeconds,
		QuestionType:     q.Type,
		RecordedAt:       now,
	}
	if err := s.stores.Responses.Append(ctx, event); err != nil {
		if !errors.Is(err, database.ErrDuplicateEvent) {
			return nil, errors.Wrap(err, "record response")
		}
		s.logger.Info("duplicate review ignored", "learner_id", sub.LearnerID, "item_id", sub.ItemID, "event_id", sub.EventID)
		current, err := s.stores.States.Get(ctx, sub.LearnerID, sub.ItemID)
		if err != nil {
			return nil, errors.Wrap(err, "load srs state")
		}
		return &ReviewOutcome{
			ScheduleResult: spaced_repetition.ScheduleResult{State: *current, Quality: current.LastQuality},
			TimeFactor:     timeFactor,
			Duplicate:      true,
		}, nil
	}

	agg, err := s.refreshStatistics(ctx, sub.LearnerID)
	if err != nil {
		s.logger.Warn("failed to refresh statistics", "learner_id", sub.LearnerID, "error", err)
	}
	mastery := topicAccuracy(agg, q.Domain, q.Topic) / 100

	var result spaced_repetition.ScheduleResult
	for attempt := 1; ; attempt++ {
		state, err := s.loadOrInitState(ctx, sub.LearnerID, q, mastery, now)
		if err != nil {
			return nil, err
		}
		result, err = spaced_repetition.UpdateSchedule(state, quality, now)
		if err != nil {
			s.logger.Error("refusing to schedule corrupt state", "learner_id", sub.LearnerID, "item_id", sub.ItemID, "error", err)
			return nil, err
		}

		next := result.State
		if state.Version == 0 {
			err = s.stores.States.Create(ctx, &next)
		} else {
			err = s.stores.States.Save(ctx, &next)
		}
		if err == nil {
			result.State = next
			break
		}
		if !errors.Is(err, database.ErrStaleState) || attempt >= maxSaveAttempts {
			return nil, errors.Wrap(err, "save srs state")
		}
		s.logger.Debug("srs state changed concurrently, retrying", "learner_id", sub.LearnerID, "item_id", sub.ItemID, "attempt", attempt)
	}

	return &ReviewOutcome{ScheduleResult: result, TimeFactor: timeFactor}, nil
}

func (s *Service) loadOrInitState(ctx context.Context, learnerID int64, q *models.Question, mastery float64, now time.Time) (models.SRSItemState, error) {
	state, err := s.stores.States.Get(ctx, learnerID, q.ID)
	if err == nil {
		return *state, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return models.SRSItemState{}, errors.Wrap(err, "load srs state")
	}
	fresh := spaced_repetition.NewItemState(learnerID, q.ID, now)
	fresh.IntervalDays = spaced_repetition.InitialInterval(mastery, spaced_repetition.DifficultyOf(q.Difficulty))
	return fresh, nil
}

func (s *Service) lockFor(learnerID, itemID int64) *sync.Mutex {
	m, _ := s.locks.LoadOrStore([2]int64{learnerID, itemID}, &sync.Mutex{})
	return m.(*sync.Mutex)
}

// DueItems returns the learner's items due at now: never reviewed first, then
// lowest ease, then most overdue. limit <= 0 returns all of them.
func (s *Service) DueItems(ctx context.Context, learnerID int64, now time.Time, limit int) ([]models.SRSItemState, error) {
	states, err := s.stores.States.ListByLearner(ctx, learnerID)
	if err != nil {
		return nil, errors.Wrap(err, "list srs states")
	}

	var due []models.SRSItemState
	for _, st := range states {
		if spaced_repetition.IsDue(st, now) {
			due = append(due, st)
		}
	}

	sort.SliceStable(due, func(i, j int) bool {
		newI, newJ := due[i].LastReviewDate == nil, due[j].LastReviewDate == nil
		if newI != newJ {
			return newI
		}
		if due[i].EaseFactor != due[j].EaseFactor {
			return due[i].EaseFactor < due[j].EaseFactor
		}
		return due[i].NextReviewDate.Before(due[j].NextReviewDate)
	})

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

// NextItem picks the question a learner should see next: the top due item if
// there is one, otherwise an unseen question, preferring the learner's weak
// topics. It returns ErrNothingToReview when neither exists.
func (s *Service) NextItem(ctx context.Context, learnerID int64) (*models.Question, error) {
	now := s.now()
	due, err := s.DueItems(ctx, learnerID, now, 1)
	if err != nil {
		return nil, err
	}
	if len(due) > 0 {
		return s.stores.Questions.GetByID(ctx, due[0].ItemID)
	}

	states, err := s.stores.States.ListByLearner(ctx, learnerID)
	if err != nil {
		return nil, errors.Wrap(err, "list srs states")
	}
	seen := make(map[int64]bool, len(states))
	for _, st := range states {
		seen[st.ItemID] = true
	}

	var candidates [][]string
	report, err := s.Analyze(ctx, learnerID)
	switch {
	case err == nil && len(report.Weaknesses) > 0:
		candidates = append(candidates, analysis.TopWeakTopics(report.Weaknesses, 3))
	case err != nil && !errors.Is(err, analysis.ErrNoPerformanceData):
		return nil, err
	}
	candidates = append(candidates, nil)

	for _, topics := range candidates {
		pool, err := s.stores.Questions.List(ctx, topics)
		if err != nil {
			return nil, errors.Wrap(err, "list questions")
		}
		for i := range pool {
			if !seen[pool[i].ID] {
				return &pool[i], nil
			}
		}
	}
	return nil, ErrNothingToReview
}

// Analyze aggregates a learner's history and classifies weak topics.
func (s *Service) Analyze(ctx context.Context, learnerID int64) (*Report, error) {
	history, err := s.stores.Responses.History(ctx, learnerID)
	if err != nil {
		return nil, errors.Wrap(err, "load history")
	}
	if len(history) == 0 {
		return nil, errors.Wrapf(analysis.ErrNoPerformanceData, "learner %d", learnerID)
	}

	agg := analysis.Aggregate(history, s.config.Analysis)
	return &Report{
		Profile:    agg.Profile,
		Domains:    agg.Domains,
		Weaknesses: analysis.ClassifyWeaknesses(agg.Topics(), history),
	}, nil
}

// Strategy returns the test strategy for a learner without assembling a test.
func (s *Service) Strategy(ctx context.Context, learnerID int64, testType models.TestType, questionCount int) (models.TestStrategy, error) {
	report, err := s.Analyze(ctx, learnerID)
	if err != nil {
		return models.TestStrategy{}, err
	}
	if questionCount <= 0 {
		questionCount = s.config.QuestionCount
	}
	return analysis.SelectStrategy(report.Profile, report.Weaknesses, testType, questionCount)
}

// GenerateTest selects a strategy, assembles questions from the pool and stores the test.
func (s *Service) GenerateTest(ctx context.Context, learnerID int64, testType models.TestType, questionCount int) (*GeneratedTest, error) {
	strategy, err := s.Strategy(ctx, learnerID, testType, questionCount)
	if err != nil {
		return nil, err
	}

	pool, err := s.stores.Questions.List(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "list questions")
	}

	s.builderMu.Lock()
	questions, err := s.builder.Build(strategy, pool)
	s.builderMu.Unlock()
	if err != nil {
		return nil, err
	}

	result := &models.TestResult{
		LearnerID: learnerID,
		TestType:  strategy.TestType,
		Strategy:  strategy,
		CreatedAt: s.now(),
	}
	for _, q := range questions {
		result.QuestionIDs = append(result.QuestionIDs, q.ID)
	}
	if err := s.stores.Tests.Create(ctx, result); err != nil {
		return nil, errors.Wrap(err, "save test")
	}

	s.logger.Info("test generated",
		"learner_id", learnerID,
		"test_type", strategy.TestType,
		"questions", len(questions),
		"focus", strategy.TopicFocus,
	)
	return &GeneratedTest{ResultID: result.ID, Strategy: strategy, Questions: questions}, nil
}

// CompleteTest records the score of a generated test.
func (s *Service) CompleteTest(ctx context.Context, resultID int64, correct int) error {
	return s.stores.Tests.SetScore(ctx, resultID, correct)
}

func (s *Service) refreshStatistics(ctx context.Context, learnerID int64) (analysis.Aggregation, error) {
	history, err := s.stores.Responses.History(ctx, learnerID)
	if err != nil {
		return analysis.Aggregation{}, errors.Wrap(err, "load history")
	}
	agg := analysis.Aggregate(history, s.config.Analysis)
	if s.stores.Statistics == nil {
		return agg, nil
	}
	return agg, s.stores.Statistics.Upsert(ctx, learnerID, agg.Topics())
}

func topicAccuracy(agg analysis.Aggregation, domain, topic string) float64 {
	for _, t := range agg.Topics() {
		if t.Domain == domain && t.TopicName == topic {
			return t.Accuracy
		}
	}
	return 0
}
