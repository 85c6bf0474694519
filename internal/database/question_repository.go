package database

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/example/learnbot/pkg/models"
)

// questionRow mirrors the questions table, options stored one per line
type questionRow struct {
	models.Question
	OptionsText string `db:"options"`
}

func (r questionRow) toModel() models.Question {
	q := r.Question
	if r.OptionsText != "" {
		q.Options = strings.Split(r.OptionsText, "\n")
	}
	return q
}

const questionSelect = `
	SELECT q.id, q.topic_id, t.name AS topic, t.domain, q.prompt, q.question_type, q.difficulty,
		q.options, q.correct_answer, q.explanation, q.expected_seconds, q.created_at
	FROM questions q
	JOIN topics t ON t.id = q.topic_id
`

// QuestionRepository handles database operations for the question pool and its topics
type QuestionRepository struct {
	db *sqlx.DB
}

// NewQuestionRepository creates a new repository instance
func NewQuestionRepository(db *sqlx.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// EnsureTopic returns the ID of a topic, creating it if necessary
func (r *QuestionRepository) EnsureTopic(ctx context.Context, domain, name string) (int64, error) {
	_, err := r.db.ExecContext(ctx,
		r.db.Rebind("INSERT INTO topics (domain, name) VALUES (?, ?) ON CONFLICT (domain, name) DO NOTHING"),
		domain, name)
	if err != nil {
		return 0, errors.Wrap(err, "failed to create topic")
	}

	var id int64
	err = r.db.GetContext(ctx, &id, r.db.Rebind("SELECT id FROM topics WHERE domain = ? AND name = ?"), domain, name)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get topic")
	}
	return id, nil
}

// ListTopics returns all topics
func (r *QuestionRepository) ListTopics(ctx context.Context) ([]models.Topic, error) {
	var topics []models.Topic
	if err := r.db.SelectContext(ctx, &topics, "SELECT id, domain, name FROM topics ORDER BY domain, name"); err != nil {
		return nil, errors.Wrap(err, "failed to list topics")
	}
	return topics, nil
}

// Upsert inserts a question or, when its prompt already exists in the topic,
// updates it. The question's TopicID and ID are filled in. created reports
// whether a new row was inserted.
func (r *QuestionRepository) Upsert(ctx context.Context, q *models.Question) (created bool, err error) {
	topicID, err := r.EnsureTopic(ctx, q.Domain, q.Topic)
	if err != nil {
		return false, err
	}
	q.TopicID = topicID
	if q.ExpectedSeconds <= 0 {
		q.ExpectedSeconds = 300
	}
	options := strings.Join(q.Options, "\n")

	var existing int64
	err = r.db.GetContext(ctx, &existing, r.db.Rebind("SELECT id FROM questions WHERE topic_id = ? AND prompt = ?"), topicID, q.Prompt)
	switch {
	case err == sql.ErrNoRows:
		query := r.db.Rebind(`
			INSERT INTO questions (topic_id, prompt, question_type, difficulty, options, correct_answer, explanation, expected_seconds, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id
		`)
		if err := r.db.QueryRowxContext(ctx, query,
			topicID, q.Prompt, q.Type, q.Difficulty, options, q.CorrectAnswer, q.Explanation, q.ExpectedSeconds, time.Now().UTC(),
		).Scan(&q.ID); err != nil {
			return false, errors.Wrap(err, "failed to create question")
		}
		return true, nil
	case err != nil:
		return false, errors.Wrap(err, "failed to look up question")
	}

	q.ID = existing
	query := r.db.Rebind(`
		UPDATE questions SET question_type = ?, difficulty = ?, options = ?, correct_answer = ?,
			explanation = ?, expected_seconds = ?
		WHERE id = ?
	`)
	if _, err := r.db.ExecContext(ctx, query,
		q.Type, q.Difficulty, options, q.CorrectAnswer, q.Explanation, q.ExpectedSeconds, q.ID,
	); err != nil {
		return false, errors.Wrap(err, "failed to update question")
	}
	return false, nil
}

// GetByID returns a question by ID
func (r *QuestionRepository) GetByID(ctx context.Context, id int64) (*models.Question, error) {
	var row questionRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(questionSelect+" WHERE q.id = ?"), id)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(ErrNotFound, "question %d", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get question")
	}
	q := row.toModel()
	return &q, nil
}

// List returns the questions on the given topics, or every question when topics is empty
func (r *QuestionRepository) List(ctx context.Context, topics []string) ([]models.Question, error) {
	query := questionSelect
	var args []interface{}
	if len(topics) > 0 {
		var err error
		query, args, err = sqlx.In(questionSelect+" WHERE t.name IN (?)", topics)
		if err != nil {
			return nil, errors.Wrap(err, "failed to build question query")
		}
	}

	var rows []questionRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query+" ORDER BY q.id"), args...); err != nil {
		return nil, errors.Wrap(err, "failed to list questions")
	}

	questions := make([]models.Question, 0, len(rows))
	for _, row := range rows {
		questions = append(questions, row.toModel())
	}
	return questions, nil
}
