package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/example/learnbot/pkg/models"
)

type testResultRow struct {
	ID           int64         `db:"id"`
	LearnerID    int64         `db:"learner_id"`
	TestType     string        `db:"test_type"`
	Strategy     string        `db:"strategy"`
	QuestionIDs  string        `db:"question_ids"`
	CorrectCount sql.NullInt64 `db:"correct_count"`
	CreatedAt    time.Time     `db:"created_at"`
}

func (r testResultRow) toModel() (models.TestResult, error) {
	res := models.TestResult{
		ID:        r.ID,
		LearnerID: r.LearnerID,
		TestType:  models.TestType(r.TestType),
		CreatedAt: r.CreatedAt,
	}
	if err := json.Unmarshal([]byte(r.Strategy), &res.Strategy); err != nil {
		return res, errors.Wrap(err, "failed to parse strategy")
	}
	if err := json.Unmarshal([]byte(r.QuestionIDs), &res.QuestionIDs); err != nil {
		return res, errors.Wrap(err, "failed to parse question ids")
	}
	if r.CorrectCount.Valid {
		n := int(r.CorrectCount.Int64)
		res.CorrectCount = &n
	}
	return res, nil
}

// TestResultRepository handles database operations for generated tests
type TestResultRepository struct {
	db *sqlx.DB
}

// NewTestResultRepository creates a new repository instance
func NewTestResultRepository(db *sqlx.DB) *TestResultRepository {
	return &TestResultRepository{db: db}
}

// Create inserts a new test result
func (r *TestResultRepository) Create(ctx context.Context, result *models.TestResult) error {
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}
	strategy, err := json.Marshal(result.Strategy)
	if err != nil {
		return errors.Wrap(err, "failed to encode strategy")
	}
	ids := result.QuestionIDs
	if ids == nil {
		ids = []int64{}
	}
	questionIDs, err := json.Marshal(ids)
	if err != nil {
		return errors.Wrap(err, "failed to encode question ids")
	}

	query := r.db.Rebind(`
		INSERT INTO test_results (learner_id, test_type, strategy, question_ids, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`)
	if err := r.db.QueryRowxContext(ctx, query,
		result.LearnerID,
		result.TestType,
		string(strategy),
		string(questionIDs),
		result.CreatedAt,
	).Scan(&result.ID); err != nil {
		return errors.Wrap(err, "failed to create test result")
	}
	return nil
}

// GetByID returns a test result by ID
func (r *TestResultRepository) GetByID(ctx context.Context, id int64) (*models.TestResult, error) {
	var row testResultRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind("SELECT * FROM test_results WHERE id = ?"), id)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(ErrNotFound, "test result %d", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get test result")
	}
	res, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// ListByLearner returns all test results of a learner, newest first
func (r *TestResultRepository) ListByLearner(ctx context.Context, learnerID int64) ([]models.TestResult, error) {
	var rows []testResultRow
	query := r.db.Rebind("SELECT * FROM test_results WHERE learner_id = ? ORDER BY created_at DESC, id DESC")
	if err := r.db.SelectContext(ctx, &rows, query, learnerID); err != nil {
		return nil, errors.Wrap(err, "failed to get test results")
	}

	results := make([]models.TestResult, 0, len(rows))
	for _, row := range rows {
		res, err := row.toModel()
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

// SetScore records how many questions of a finished test were answered correctly
func (r *TestResultRepository) SetScore(ctx context.Context, id int64, correct int) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind("UPDATE test_results SET correct_count = ? WHERE id = ?"), correct, id)
	if err != nil {
		return errors.Wrap(err, "failed to update test result")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.Wrapf(ErrNotFound, "test result %d", id)
	}
	return nil
}
