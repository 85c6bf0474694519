package learning

import (
	"context"

	"github.com/example/learnbot/pkg/models"
)

// ResponseStore is the append-only response history
type ResponseStore interface {
	Append(ctx context.Context, e *models.ResponseEvent) error
	History(ctx context.Context, learnerID int64) ([]models.ResponseEvent, error)
}

// StateStore persists SRS states with an optimistic version check
type StateStore interface {
	Get(ctx context.Context, learnerID, itemID int64) (*models.SRSItemState, error)
	ListByLearner(ctx context.Context, learnerID int64) ([]models.SRSItemState, error)
	Create(ctx context.Context, s *models.SRSItemState) error
	Save(ctx context.Context, s *models.SRSItemState) error
}

// QuestionStore is the question pool
type QuestionStore interface {
	GetByID(ctx context.Context, id int64) (*models.Question, error)
	List(ctx context.Context, topics []string) ([]models.Question, error)
}

// TestResultStore records generated tests
type TestResultStore interface {
	Create(ctx context.Context, result *models.TestResult) error
	SetScore(ctx context.Context, id int64, correct int) error
}

// StatisticsStore keeps the per-topic snapshot
type StatisticsStore interface {
	Upsert(ctx context.Context, learnerID int64, topics []models.TopicPerformance) error
}

// Stores bundles the persistence collaborators of a Service
type Stores struct {
	Responses  ResponseStore
	States     StateStore
	Questions  QuestionStore
	Tests      TestResultStore
	Statistics StatisticsStore
}
