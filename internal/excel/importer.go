// Package excel imports questions, learners and response history from Excel
// or CSV files. The first row after StartRow-1 is a header naming the columns.
package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/example/learnbot/internal/database"
	"github.com/example/learnbot/pkg/models"
)

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath  string // Path to the Excel or CSV file
	SheetName string // Sheet to import, the first sheet when empty
	StartRow  int    // 1-based row holding the header
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig(path string) ImportConfig {
	return ImportConfig{FilePath: path, StartRow: 1}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Created        int
	Updated        int
	Skipped        int
	Errors         []string
}

func (r *ImportResult) fail(rowNum int, err error) {
	r.Errors = append(r.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
}

// QuestionWriter stores imported questions
type QuestionWriter interface {
	Upsert(ctx context.Context, q *models.Question) (bool, error)
}

// LearnerWriter stores imported learners
type LearnerWriter interface {
	Register(ctx context.Context, telegramID int64, username, firstName string) (*models.Learner, error)
	UpdateSettings(ctx context.Context, l *models.Learner) error
}

// ResponseWriter records imported response events
type ResponseWriter interface {
	RecordResponse(ctx context.Context, e *models.ResponseEvent) error
}

// row gives access to cells by header name
type row struct {
	num    int
	cells  []string
	header map[string]int
}

func (r row) get(name string) string {
	i, ok := r.header[name]
	if !ok || i >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[i])
}

// ImportQuestions imports the question pool. Columns: domain, topic, prompt,
// type, difficulty, correct_answer, options (separated by "|"), explanation,
// expected_seconds. Domain, topic and prompt are required.
func ImportQuestions(ctx context.Context, config ImportConfig, w QuestionWriter) (*ImportResult, error) {
	return importRows(config, []string{"domain", "topic", "prompt"}, func(r row, result *ImportResult) error {
		q, err := questionFromRow(r)
		if err != nil {
			return err
		}
		created, err := w.Upsert(ctx, q)
		if err != nil {
			return errors.Wrap(err, "failed to save question")
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
		return nil
	})
}

// ImportLearners imports learners. Columns: telegram_id, username,
// first_name, notification_enabled, notification_hour, questions_per_test.
func ImportLearners(ctx context.Context, config ImportConfig, w LearnerWriter) (*ImportResult, error) {
	return importRows(config, []string{"telegram_id"}, func(r row, result *ImportResult) error {
		telegramID, err := strconv.ParseInt(r.get("telegram_id"), 10, 64)
		if err != nil || telegramID <= 0 {
			return fmt.Errorf("invalid telegram_id %q", r.get("telegram_id"))
		}
		l, err := w.Register(ctx, telegramID, r.get("username"), r.get("first_name"))
		if err != nil {
			return errors.Wrap(err, "failed to register learner")
		}

		if v := r.get("notification_enabled"); v != "" {
			if l.NotificationEnabled, err = strconv.ParseBool(v); err != nil {
				return fmt.Errorf("invalid notification_enabled %q", v)
			}
		}
		if v := r.get("notification_hour"); v != "" {
			l.NotificationHour = parseIntOrDefault(v, 0, 23, l.NotificationHour)
		}
		if v := r.get("questions_per_test"); v != "" {
			l.QuestionsPerTest = parseIntOrDefault(v, 1, 50, l.QuestionsPerTest)
		}
		if err := w.UpdateSettings(ctx, l); err != nil {
			return errors.Wrap(err, "failed to update learner")
		}
		result.Created++
		return nil
	})
}

// ImportResponses imports response history. Columns: event_id, learner_id,
// item_id, domain, topic, difficulty, is_correct, time_spent_seconds,
// question_type, recorded_at (RFC 3339). Rows whose event_id was already
// recorded are skipped.
func ImportResponses(ctx context.Context, config ImportConfig, w ResponseWriter) (*ImportResult, error) {
	return importRows(config, []string{"learner_id", "domain", "topic", "difficulty", "is_correct"}, func(r row, result *ImportResult) error {
		e, err := responseFromRow(r)
		if err != nil {
			return err
		}
		if err := w.RecordResponse(ctx, e); err != nil {
			if errors.Is(err, database.ErrDuplicateEvent) {
				result.Skipped++
				return nil
			}
			return errors.Wrap(err, "failed to record response")
		}
		result.Created++
		return nil
	})
}

func questionFromRow(r row) (*models.Question, error) {
	q := &models.Question{
		Domain:        r.get("domain"),
		Topic:         r.get("topic"),
		Prompt:        r.get("prompt"),
		Type:          models.QuestionType(strings.ToLower(r.get("type"))),
		CorrectAnswer: r.get("correct_answer"),
		Explanation:   r.get("explanation"),
	}
	switch {
	case q.Domain == "":
		return nil, errors.New("domain cannot be empty")
	case q.Topic == "":
		return nil, errors.New("topic cannot be empty")
	case q.Prompt == "":
		return nil, errors.New("prompt cannot be empty")
	}
	if q.Type == "" {
		q.Type = models.MultipleChoice
	}

	q.Difficulty = models.Beginner
	if v := r.get("difficulty"); v != "" {
		q.Difficulty = models.ParseDifficulty(v)
	}

	for _, o := range strings.Split(r.get("options"), "|") {
		if o = strings.TrimSpace(o); o != "" {
			q.Options = append(q.Options, o)
		}
	}
	if v := r.get("expected_seconds"); v != "" {
		q.ExpectedSeconds = parseIntOrDefault(v, 1, 24*3600, 0)
	}
	return q, nil
}

func responseFromRow(r row) (*models.ResponseEvent, error) {
	learnerID, err := strconv.ParseInt(r.get("learner_id"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid learner_id %q", r.get("learner_id"))
	}
	correct, err := parseBool(r.get("is_correct"))
	if err != nil {
		return nil, err
	}

	e := &models.ResponseEvent{
		EventID:      r.get("event_id"),
		LearnerID:    learnerID,
		Domain:       r.get("domain"),
		Topic:        r.get("topic"),
		Difficulty:   models.ParseDifficulty(r.get("difficulty")),
		IsCorrect:    correct,
		QuestionType: models.QuestionType(strings.ToLower(r.get("question_type"))),
		RecordedAt:   time.Now().UTC(),
	}
	if e.Domain == "" || e.Topic == "" {
		return nil, errors.New("domain and topic cannot be empty")
	}
	if v := r.get("item_id"); v != "" {
		if e.ItemID, err = strconv.ParseInt(v, 10, 64); err != nil {
			return nil, fmt.Errorf("invalid item_id %q", v)
		}
	}
	if v := r.get("time_spent_seconds"); v != "" {
		if e.TimeSpentSeconds, err = strconv.ParseFloat(v, 64); err != nil || e.TimeSpentSeconds < 0 {
			return nil, fmt.Errorf("invalid time_spent_seconds %q", v)
		}
	}
	if v := r.get("recorded_at"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, fmt.Errorf("invalid recorded_at %q", v)
		}
		e.RecordedAt = t.UTC()
	}
	return e, nil
}

// importRows reads every row of the file and hands it to process. Row level
// problems are collected in the result; only an unreadable file is an error.
func importRows(config ImportConfig, required []string, process func(row, *ImportResult) error) (*ImportResult, error) {
	rows, err := readRows(config)
	if err != nil {
		return nil, err
	}

	start := config.StartRow
	if start < 1 {
		start = 1
	}
	if len(rows) < start {
		return nil, errors.New("file has no header row")
	}

	header := make(map[string]int)
	for i, name := range rows[start-1] {
		header[normalizeHeader(name)] = i
	}
	for _, name := range required {
		if _, ok := header[name]; !ok {
			return nil, fmt.Errorf("missing required column %q", name)
		}
	}

	result := &ImportResult{Errors: make([]string, 0)}
	for i := start; i < len(rows); i++ {
		r := row{num: i + 1, cells: rows[i], header: header}
		if isBlank(r.cells) {
			continue
		}
		result.TotalProcessed++
		if err := process(r, result); err != nil {
			result.fail(r.num, err)
		}
	}
	return result, nil
}

func readRows(config ImportConfig) ([][]string, error) {
	if strings.ToLower(filepath.Ext(config.FilePath)) == ".csv" {
		return readCSV(config.FilePath)
	}
	return readExcel(config)
}

func readExcel(config ImportConfig) ([][]string, error) {
	f, err := excelize.OpenFile(config.FilePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open Excel file")
	}
	defer f.Close()

	sheet := config.SheetName
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get rows of sheet %q", sheet)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open CSV file")
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var rows [][]string
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "error reading CSV")
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func normalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "correct":
		return true, nil
	case "0", "false", "no", "n", "incorrect", "wrong":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}

// parseIntOrDefault parses s and clamps it to [min, max]; unparsable input yields def
func parseIntOrDefault(s string, min, max, def int) int {
	val, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
