package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/example/learnbot/pkg/models"
)

// ResponseRepository stores the append-only response history of learners
type ResponseRepository struct {
	db *sqlx.DB
}

// NewResponseRepository creates a new repository instance
func NewResponseRepository(db *sqlx.DB) *ResponseRepository {
	return &ResponseRepository{db: db}
}

// Append records an event. An empty EventID is replaced by a new UUID and a zero
// RecordedAt by the current time. Appending an EventID that already exists
// returns ErrDuplicateEvent and leaves the history unchanged.
func (r *ResponseRepository) Append(ctx context.Context, e *models.ResponseEvent) error {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now().UTC()
	}

	query := r.db.Rebind(`
		INSERT INTO response_events (
			event_id, learner_id, item_id, topic, domain, difficulty,
			is_correct, time_spent_seconds, question_type, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (event_id) DO NOTHING
		RETURNING seq
	`)
	err := r.db.QueryRowxContext(ctx, query,
		e.EventID,
		e.LearnerID,
		e.ItemID,
		e.Topic,
		e.Domain,
		e.Difficulty,
		e.IsCorrect,
		e.TimeSpentSeconds,
		e.QuestionType,
		e.RecordedAt,
	).Scan(&e.Seq)
	if err == sql.ErrNoRows {
		return errors.Wrapf(ErrDuplicateEvent, "event %s", e.EventID)
	}
	if err != nil {
		return errors.Wrap(err, "failed to append response event")
	}
	return nil
}

// History returns every event of a learner in the order they were appended
func (r *ResponseRepository) History(ctx context.Context, learnerID int64) ([]models.ResponseEvent, error) {
	var events []models.ResponseEvent
	query := r.db.Rebind(`
		SELECT seq, event_id, learner_id, item_id, topic, domain, difficulty,
			is_correct, time_spent_seconds, question_type, recorded_at
		FROM response_events
		WHERE learner_id = ?
		ORDER BY seq ASC
	`)
	if err := r.db.SelectContext(ctx, &events, query, learnerID); err != nil {
		return nil, errors.Wrap(err, "failed to get response history")
	}
	return events, nil
}
