package database

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/example/learnbot/pkg/models"
)

// StatisticsRepository keeps the latest per-topic performance snapshot of each learner
type StatisticsRepository struct {
	db *sqlx.DB
}

// NewStatisticsRepository creates a new repository instance
func NewStatisticsRepository(db *sqlx.DB) *StatisticsRepository {
	return &StatisticsRepository{db: db}
}

// Upsert replaces the stored snapshot rows of the given topics
func (r *StatisticsRepository) Upsert(ctx context.Context, learnerID int64, topics []models.TopicPerformance) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	query := tx.Rebind(`
		INSERT INTO topic_statistics (learner_id, domain, topic, accuracy, questions_attempted, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (learner_id, domain, topic) DO UPDATE SET
			accuracy = excluded.accuracy,
			questions_attempted = excluded.questions_attempted,
			updated_at = excluded.updated_at
	`)
	now := time.Now().UTC()
	for _, t := range topics {
		if _, err := tx.ExecContext(ctx, query, learnerID, t.Domain, t.TopicName, t.Accuracy, t.QuestionsAttempted, now); err != nil {
			return errors.Wrapf(err, "failed to store statistics for topic %s", t.TopicName)
		}
	}
	return errors.Wrap(tx.Commit(), "failed to commit statistics")
}

// ListByLearner returns the snapshot of a learner, weakest topic first
func (r *StatisticsRepository) ListByLearner(ctx context.Context, learnerID int64) ([]models.TopicStatistics, error) {
	var stats []models.TopicStatistics
	query := r.db.Rebind(`
		SELECT learner_id, domain, topic, accuracy, questions_attempted, updated_at
		FROM topic_statistics
		WHERE learner_id = ?
		ORDER BY accuracy ASC, domain, topic
	`)
	if err := r.db.SelectContext(ctx, &stats, query, learnerID); err != nil {
		return nil, errors.Wrap(err, "failed to get user statistics")
	}
	return stats, nil
}
