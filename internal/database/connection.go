package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// Supported database types
const (
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
)

// Connect opens the database and creates the schema if needed.
// For SQLite, dsn is a file path or ":memory:".
func Connect(dbType, dsn string) (*sqlx.DB, error) {
	var (
		db  *sqlx.DB
		err error
	)

	switch dbType {
	case TypeSQLite, "":
		if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
				return nil, errors.Wrap(err, "failed to create data directory")
			}
		}
		db, err = sqlx.Connect("sqlite3", dsn)
		if err != nil {
			return nil, errors.Wrap(err, "failed to connect to database")
		}
		if _, err = db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "failed to enable foreign keys")
		}
		// SQLite doesn't support multiple writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	case TypePostgres:
		db, err = sqlx.Connect("postgres", dsn)
		if err != nil {
			return nil, errors.Wrap(err, "failed to connect to database")
		}
	default:
		return nil, fmt.Errorf("unsupported database type %q", dbType)
	}

	if err := initializeSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// initializeSchema creates necessary tables if they don't exist
func initializeSchema(db *sqlx.DB) error {
	pk := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if db.DriverName() == "postgres" {
		pk = "BIGSERIAL PRIMARY KEY"
	}

	tables := []struct {
		name string
		ddl  string
	}{
		{"learners", `
			CREATE TABLE IF NOT EXISTS learners (
				id ` + pk + `,
				telegram_id BIGINT UNIQUE,
				username TEXT NOT NULL DEFAULT '',
				first_name TEXT NOT NULL DEFAULT '',
				notification_enabled BOOLEAN NOT NULL DEFAULT TRUE,
				notification_hour INTEGER NOT NULL DEFAULT 9,
				questions_per_test INTEGER NOT NULL DEFAULT 10,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)`},
		{"topics", `
			CREATE TABLE IF NOT EXISTS topics (
				id ` + pk + `,
				domain TEXT NOT NULL,
				name TEXT NOT NULL,
				UNIQUE(domain, name)
			)`},
		{"questions", `
			CREATE TABLE IF NOT EXISTS questions (
				id ` + pk + `,
				topic_id BIGINT NOT NULL REFERENCES topics(id),
				prompt TEXT NOT NULL,
				question_type TEXT NOT NULL,
				difficulty TEXT NOT NULL,
				options TEXT NOT NULL DEFAULT '',
				correct_answer TEXT NOT NULL DEFAULT '',
				explanation TEXT NOT NULL DEFAULT '',
				expected_seconds INTEGER NOT NULL DEFAULT 300,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				UNIQUE(topic_id, prompt)
			)`},
		{"response_events", `
			CREATE TABLE IF NOT EXISTS response_events (
				seq ` + pk + `,
				event_id TEXT NOT NULL UNIQUE,
				learner_id BIGINT NOT NULL REFERENCES learners(id),
				item_id BIGINT NOT NULL DEFAULT 0,
				topic TEXT NOT NULL,
				domain TEXT NOT NULL,
				difficulty TEXT NOT NULL,
				is_correct BOOLEAN NOT NULL,
				time_spent_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
				question_type TEXT NOT NULL DEFAULT '',
				recorded_at TIMESTAMP NOT NULL
			)`},
		{"srs_states", `
			CREATE TABLE IF NOT EXISTS srs_states (
				learner_id BIGINT NOT NULL REFERENCES learners(id),
				item_id BIGINT NOT NULL REFERENCES questions(id),
				repetitions INTEGER NOT NULL DEFAULT 0,
				ease_factor DOUBLE PRECISION NOT NULL DEFAULT 2.5,
				interval_days INTEGER NOT NULL DEFAULT 1,
				next_review_date TIMESTAMP NOT NULL,
				last_review_date TIMESTAMP,
				last_quality DOUBLE PRECISION NOT NULL DEFAULT 0,
				version BIGINT NOT NULL DEFAULT 1,
				PRIMARY KEY (learner_id, item_id)
			)`},
		{"test_results", `
			CREATE TABLE IF NOT EXISTS test_results (
				id ` + pk + `,
				learner_id BIGINT NOT NULL REFERENCES learners(id),
				test_type TEXT NOT NULL,
				strategy TEXT NOT NULL,
				question_ids TEXT NOT NULL,
				correct_count INTEGER,
				created_at TIMESTAMP NOT NULL
			)`},
		{"topic_statistics", `
			CREATE TABLE IF NOT EXISTS topic_statistics (
				learner_id BIGINT NOT NULL REFERENCES learners(id),
				domain TEXT NOT NULL,
				topic TEXT NOT NULL,
				accuracy DOUBLE PRECISION NOT NULL,
				questions_attempted INTEGER NOT NULL,
				updated_at TIMESTAMP NOT NULL,
				PRIMARY KEY (learner_id, domain, topic)
			)`},
	}

	for _, t := range tables {
		if _, err := db.Exec(t.ddl); err != nil {
			return errors.Wrapf(err, "failed to create %s table", t.name)
		}
	}

	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_response_events_learner ON response_events(learner_id, seq)`); err != nil {
		return errors.Wrap(err, "failed to create response_events index")
	}
	return nil
}
