package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/example/learnbot/pkg/models"
)

const learnerColumns = `id, COALESCE(telegram_id, 0) AS telegram_id, username, first_name,
	notification_enabled, notification_hour, questions_per_test, created_at, updated_at`

// LearnerRepository handles database operations for learners
type LearnerRepository struct {
	db *sqlx.DB
}

// NewLearnerRepository creates a new repository instance
func NewLearnerRepository(db *sqlx.DB) *LearnerRepository {
	return &LearnerRepository{db: db}
}

// Create inserts a learner and fills in its ID
func (r *LearnerRepository) Create(ctx context.Context, l *models.Learner) error {
	var telegramID interface{}
	if l.TelegramID != 0 {
		telegramID = l.TelegramID
	}
	if l.QuestionsPerTest <= 0 {
		l.QuestionsPerTest = 10
	}
	now := time.Now().UTC()

	query := r.db.Rebind(`
		INSERT INTO learners (telegram_id, username, first_name, notification_enabled, notification_hour, questions_per_test, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)
	err := r.db.QueryRowxContext(ctx, query,
		telegramID,
		l.Username,
		l.FirstName,
		l.NotificationEnabled,
		l.NotificationHour,
		l.QuestionsPerTest,
		now,
		now,
	).Scan(&l.ID)
	if err != nil {
		return errors.Wrap(err, "failed to create learner")
	}
	l.CreatedAt, l.UpdatedAt = now, now
	return nil
}

// GetByID returns a learner by ID
func (r *LearnerRepository) GetByID(ctx context.Context, id int64) (*models.Learner, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetByTelegramID returns the learner bound to a Telegram account
func (r *LearnerRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*models.Learner, error) {
	return r.getOne(ctx, "telegram_id = ?", telegramID)
}

// Register returns the learner for a Telegram account, creating it on first contact
func (r *LearnerRepository) Register(ctx context.Context, telegramID int64, username, firstName string) (*models.Learner, error) {
	l, err := r.GetByTelegramID(ctx, telegramID)
	if err == nil {
		return l, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	l = &models.Learner{
		TelegramID:          telegramID,
		Username:            username,
		FirstName:           firstName,
		NotificationEnabled: true,
		NotificationHour:    9,
	}
	if err := r.Create(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// List returns all learners
func (r *LearnerRepository) List(ctx context.Context) ([]models.Learner, error) {
	var learners []models.Learner
	err := r.db.SelectContext(ctx, &learners, "SELECT "+learnerColumns+" FROM learners ORDER BY id")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list learners")
	}
	return learners, nil
}

// ListForNotification returns learners who asked for reminders at the given hour
func (r *LearnerRepository) ListForNotification(ctx context.Context, hour int) ([]models.Learner, error) {
	var learners []models.Learner
	query := r.db.Rebind("SELECT " + learnerColumns + " FROM learners WHERE notification_enabled = ? AND notification_hour = ? ORDER BY id")
	if err := r.db.SelectContext(ctx, &learners, query, true, hour); err != nil {
		return nil, errors.Wrap(err, "failed to list learners for notification")
	}
	return learners, nil
}

// UpdateSettings stores the reminder and test size preferences of a learner
func (r *LearnerRepository) UpdateSettings(ctx context.Context, l *models.Learner) error {
	query := r.db.Rebind(`
		UPDATE learners SET
			notification_enabled = ?,
			notification_hour = ?,
			questions_per_test = ?,
			updated_at = ?
		WHERE id = ?
	`)
	res, err := r.db.ExecContext(ctx, query, l.NotificationEnabled, l.NotificationHour, l.QuestionsPerTest, time.Now().UTC(), l.ID)
	if err != nil {
		return errors.Wrap(err, "failed to update learner")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.Wrapf(ErrNotFound, "learner %d", l.ID)
	}
	return nil
}

func (r *LearnerRepository) getOne(ctx context.Context, cond string, arg interface{}) (*models.Learner, error) {
	var l models.Learner
	query := r.db.Rebind("SELECT " + learnerColumns + " FROM learners WHERE " + cond)
	err := r.db.GetContext(ctx, &l, query, arg)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(ErrNotFound, "learner %v", arg)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get learner")
	}
	return &l, nil
}
