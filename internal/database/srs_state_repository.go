package database

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/example/learnbot/pkg/models"
)

const srsColumns = `learner_id, item_id, repetitions, ease_factor, interval_days,
	next_review_date, last_review_date, last_quality, version`

// SRSStateRepository stores the spaced repetition state of (learner, item) pairs.
// Writes use an optimistic version check so that two concurrent reviews of the
// same item cannot both apply on top of the same prior state.
type SRSStateRepository struct {
	db *sqlx.DB
}

// NewSRSStateRepository creates a new repository instance
func NewSRSStateRepository(db *sqlx.DB) *SRSStateRepository {
	return &SRSStateRepository{db: db}
}

// Get returns the state of an item for a learner
func (r *SRSStateRepository) Get(ctx context.Context, learnerID, itemID int64) (*models.SRSItemState, error) {
	var s models.SRSItemState
	query := r.db.Rebind("SELECT " + srsColumns + " FROM srs_states WHERE learner_id = ? AND item_id = ?")
	err := r.db.GetContext(ctx, &s, query, learnerID, itemID)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(ErrNotFound, "srs state %d/%d", learnerID, itemID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get srs state")
	}
	return &s, nil
}

// ListByLearner returns every state of a learner, earliest due first
func (r *SRSStateRepository) ListByLearner(ctx context.Context, learnerID int64) ([]models.SRSItemState, error) {
	var states []models.SRSItemState
	query := r.db.Rebind("SELECT " + srsColumns + " FROM srs_states WHERE learner_id = ? ORDER BY next_review_date ASC, item_id ASC")
	if err := r.db.SelectContext(ctx, &states, query, learnerID); err != nil {
		return nil, errors.Wrap(err, "failed to list srs states")
	}
	return states, nil
}

// Create inserts the first state of an item with version 1. If another writer
// created it first, ErrStaleState is returned.
func (r *SRSStateRepository) Create(ctx context.Context, s *models.SRSItemState) error {
	query := r.db.Rebind(`
		INSERT INTO srs_states (` + srsColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)
	`)
	_, err := r.db.ExecContext(ctx, query,
		s.LearnerID,
		s.ItemID,
		s.Repetitions,
		s.EaseFactor,
		s.IntervalDays,
		s.NextReviewDate.UTC(),
		utcPtr(s.LastReviewDate),
		s.LastQuality,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Wrapf(ErrStaleState, "srs state %d/%d already exists", s.LearnerID, s.ItemID)
		}
		return errors.Wrap(err, "failed to create srs state")
	}
	s.Version = 1
	return nil
}

// Save writes s if the stored version still equals s.Version, then bumps the
// version. ErrStaleState means another writer got there first.
func (r *SRSStateRepository) Save(ctx context.Context, s *models.SRSItemState) error {
	query := r.db.Rebind(`
		UPDATE srs_states SET
			repetitions = ?,
			ease_factor = ?,
			interval_days = ?,
			next_review_date = ?,
			last_review_date = ?,
			last_quality = ?,
			version = version + 1
		WHERE learner_id = ? AND item_id = ? AND version = ?
	`)
	res, err := r.db.ExecContext(ctx, query,
		s.Repetitions,
		s.EaseFactor,
		s.IntervalDays,
		s.NextReviewDate.UTC(),
		utcPtr(s.LastReviewDate),
		s.LastQuality,
		s.LearnerID,
		s.ItemID,
		s.Version,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update srs state")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.Wrapf(ErrStaleState, "srs state %d/%d version %d", s.LearnerID, s.ItemID, s.Version)
	}
	s.Version++
	return nil
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
