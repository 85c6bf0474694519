package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"

	"github.com/example/learnbot/internal/analysis"
	"github.com/example/learnbot/internal/excel"
	"github.com/example/learnbot/internal/learning"
	"github.com/example/learnbot/internal/quiz"
	"github.com/example/learnbot/pkg/models"
)

// Callback data
const (
	cbReview       = "review"
	cbStats        = "stats"
	cbWeak         = "weak"
	cbHint         = "hint"
	cbAnswerPrefix = "ans:"
	cbRatePrefix   = "rate:"
	cbTestPrefix   = "test:"
)

const helpText = `Commands:
/due - review the next due question
/test <type> [count] - take a test: mixed-review, review, practice, weak-areas, advancement
/stats - your progress
/weak - topics to work on
/time <hour> - reminder hour (0-23, UTC)
/notify on|off - turn reminders on or off
/help - this message`

// HandleCommand dispatches a slash command
func (b *Bot) HandleCommand(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	learner, err := b.learnerFor(ctx, message.From)
	if err != nil {
		return err
	}

	switch message.Command() {
	case "start":
		return b.sendWithMenu(chatID, fmt.Sprintf("Welcome, %s! 🎓\n\nI schedule your reviews and build tests around your weak spots.\n\n%s", learner.FirstName, helpText))
	case "help":
		return b.send(chatID, helpText)
	case "due", "review":
		return b.askNext(ctx, chatID, learner)
	case "test":
		testType, count, err := parseTestArgs(message.CommandArguments(), b.config.MaxQuestionCount)
		if err != nil {
			return b.send(chatID, err.Error())
		}
		return b.startTest(ctx, chatID, learner, testType, count)
	case "stats":
		return b.handleStats(ctx, chatID, learner)
	case "weak":
		return b.handleWeak(ctx, chatID, learner)
	case "time":
		return b.handleTimeCommand(ctx, chatID, learner, message.CommandArguments())
	case "notify":
		return b.handleNotifyCommand(ctx, chatID, learner, message.CommandArguments())
	case "import":
		if !b.isAdmin(message.From.ID) {
			return b.sendWithMenu(chatID, "This command is only available for administrators.")
		}
		b.mu.Lock()
		b.awaitingFileUpload[chatID] = true
		b.mu.Unlock()
		return b.send(chatID, "Send an .xlsx or .csv file with columns: domain, topic, prompt, type, difficulty, correct_answer, options, explanation.")
	default:
		return b.sendWithMenu(chatID, "Unknown command. Use /help to see what I can do.")
	}
}

// handleCallback handles inline keyboard presses
func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	chatID := callback.Message.Chat.ID
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		b.logger.Warn("failed to answer callback", "error", err)
	}

	learner, err := b.learnerFor(ctx, callback.From)
	if err != nil {
		return err
	}

	data := callback.Data
	switch {
	case data == cbReview:
		return b.askNext(ctx, chatID, learner)
	case data == cbStats:
		return b.handleStats(ctx, chatID, learner)
	case data == cbWeak:
		return b.handleWeak(ctx, chatID, learner)
	case data == cbHint:
		return b.handleHint(chatID)
	case strings.HasPrefix(data, cbTestPrefix):
		return b.startTest(ctx, chatID, learner, analysis.ParseTestType(strings.TrimPrefix(data, cbTestPrefix)), 0)
	case strings.HasPrefix(data, cbAnswerPrefix):
		idx, err := strconv.Atoi(strings.TrimPrefix(data, cbAnswerPrefix))
		if err != nil {
			return errors.Wrapf(err, "bad answer callback %q", data)
		}
		sess, ok := b.sessions.get(chatID, b.now())
		if !ok {
			return b.sendWithMenu(chatID, "That question has expired.")
		}
		options := questionOptions(sess.Question)
		if idx < 0 || idx >= len(options) {
			return errors.Errorf("answer index %d out of range", idx)
		}
		return b.answerQuestion(ctx, chatID, options[idx])
	case strings.HasPrefix(data, cbRatePrefix):
		rating, err := strconv.Atoi(strings.TrimPrefix(data, cbRatePrefix))
		if err != nil {
			return errors.Wrapf(err, "bad rating callback %q", data)
		}
		return b.rateReview(ctx, chatID, rating)
	default:
		b.logger.Warn("unknown callback", "data", data)
		return nil
	}
}

// askNext sends the learner's next review question
func (b *Bot) askNext(ctx context.Context, chatID int64, learner *models.Learner) error {
	q, err := b.engine.NextItem(ctx, learner.ID)
	if errors.Is(err, learning.ErrNothingToReview) {
		return b.sendWithMenu(chatID, "🎉 Nothing to review right now. Come back later or take a /test.")
	}
	if err != nil {
		return err
	}
	return b.ask(chatID, newSession(learner.ID, *q, b.now(), nil), true)
}

func (b *Bot) ask(chatID int64, sess *session, hints bool) error {
	b.sessions.put(chatID, sess)
	msg := tgbotapi.NewMessage(chatID, formatQuestion(sess.Question, sess.Test))
	if buttons := optionButtons(questionOptions(sess.Question), hints); len(buttons) > 0 {
		msg.ReplyMarkup = createKeyboard(buttons)
	}
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) handleHint(chatID int64) error {
	var hint string
	if !b.sessions.update(chatID, b.now(), func(s *session) { hint = s.hint() }) {
		return b.sendWithMenu(chatID, "There is no open question.")
	}
	return b.send(chatID, "💡 "+hint)
}

// answerQuestion scores a reply to the open question. Review questions then
// ask for a self rating; test questions are recorded and the test moves on.
func (b *Bot) answerQuestion(ctx context.Context, chatID int64, reply string) error {
	var (
		sess     *session
		accepted bool
	)
	b.sessions.update(chatID, b.now(), func(s *session) {
		sess = s
		accepted = s.answer(reply, b.now())
	})
	if sess == nil {
		return b.sendWithMenu(chatID, "That question has expired.")
	}
	if !accepted {
		return nil
	}

	if sess.Test == nil {
		msg := tgbotapi.NewMessage(chatID, formatFeedback(sess, true)+"\n\nHow well did you know it? 0 = no idea, 5 = perfect.")
		msg.ReplyMarkup = createKeyboard(ratingButtons())
		_, err := b.api.Send(msg)
		return err
	}
	return b.recordTestAnswer(ctx, chatID, sess)
}

func (b *Bot) rateReview(ctx context.Context, chatID int64, rating int) error {
	sess, ok := b.sessions.get(chatID, b.now())
	if !ok || !sess.Answered || sess.Test != nil {
		return b.sendWithMenu(chatID, "There is no review to rate.")
	}

	out, err := b.engine.SubmitReview(ctx, learning.ReviewSubmission{
		EventID:          sess.EventID,
		LearnerID:        sess.LearnerID,
		ItemID:           sess.Question.ID,
		AutoScore:        sess.AutoScore,
		SelfRating:       float64(rating),
		HintLevel:        float64(sess.HintLevel),
		TimeSpentSeconds: sess.TimeSpent,
	})
	if err != nil {
		return err
	}
	b.sessions.drop(chatID)

	msg := tgbotapi.NewMessage(chatID, formatOutcome(out, b.now()))
	msg.ReplyMarkup = createKeyboard([][]MenuButton{{{Text: "➡️ Next", CallbackData: cbReview}}})
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) startTest(ctx context.Context, chatID int64, learner *models.Learner, testType models.TestType, count int) error {
	if count == 0 {
		count = learner.QuestionsPerTest
	}
	test, err := b.engine.GenerateTest(ctx, learner.ID, testType, count)
	if errors.Is(err, analysis.ErrNoPerformanceData) {
		return b.sendWithMenu(chatID, "Answer a few review questions first so I can tailor a test. Try /due.")
	}
	if errors.Is(err, quiz.ErrEmptyPool) {
		return b.sendWithMenu(chatID, "There are no questions to build a test from yet.")
	}
	if err != nil {
		return err
	}
	if len(test.Questions) == 0 {
		return b.sendWithMenu(chatID, "There are no questions to build a test from yet.")
	}

	if err := b.send(chatID, formatTestIntro(test.Strategy, len(test.Questions))); err != nil {
		return err
	}
	run := &testRun{ResultID: test.ResultID, Strategy: test.Strategy, Questions: test.Questions}
	return b.ask(chatID, newSession(learner.ID, run.Questions[0], b.now(), run), test.Strategy.AdaptiveSettings.ProvideHints)
}

func (b *Bot) recordTestAnswer(ctx context.Context, chatID int64, sess *session) error {
	q := sess.Question
	err := b.engine.RecordResponse(ctx, &models.ResponseEvent{
		EventID:          sess.EventID,
		LearnerID:        sess.LearnerID,
		ItemID:           q.ID,
		Topic:            q.Topic,
		Domain:           q.Domain,
		Difficulty:       q.Difficulty,
		IsCorrect:        sess.AutoScore >= 1,
		TimeSpentSeconds: sess.TimeSpent,
		QuestionType:     q.Type,
		RecordedAt:       b.now(),
	})
	if err != nil {
		return err
	}

	run := sess.Test
	if sess.AutoScore >= 1 {
		run.Correct++
	}
	if err := b.send(chatID, formatFeedback(sess, run.Strategy.AdaptiveSettings.ShowExplanations)); err != nil {
		return err
	}

	run.Index++
	if run.Index < len(run.Questions) {
		next := newSession(sess.LearnerID, run.Questions[run.Index], b.now(), run)
		return b.ask(chatID, next, run.Strategy.AdaptiveSettings.ProvideHints)
	}

	b.sessions.drop(chatID)
	if err := b.engine.CompleteTest(ctx, run.ResultID, run.Correct); err != nil {
		return err
	}
	return b.sendWithMenu(chatID, formatTestSummary(run))
}

func (b *Bot) handleStats(ctx context.Context, chatID int64, learner *models.Learner) error {
	report, err := b.engine.Analyze(ctx, learner.ID)
	if errors.Is(err, analysis.ErrNoPerformanceData) {
		return b.sendWithMenu(chatID, "No answers yet. Start with /due.")
	}
	if err != nil {
		return err
	}
	return b.sendWithMenu(chatID, formatStats(report))
}

func (b *Bot) handleWeak(ctx context.Context, chatID int64, learner *models.Learner) error {
	report, err := b.engine.Analyze(ctx, learner.ID)
	if errors.Is(err, analysis.ErrNoPerformanceData) {
		return b.sendWithMenu(chatID, "No answers yet. Start with /due.")
	}
	if err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, formatWeaknesses(report.Weaknesses))
	if len(report.Weaknesses) > 0 {
		msg.ReplyMarkup = createKeyboard([][]MenuButton{{{Text: "🎯 Practice weak topics", CallbackData: cbTestPrefix + string(models.TestWeakAreas)}}})
	}
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) handleTimeCommand(ctx context.Context, chatID int64, learner *models.Learner, args string) error {
	hour, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil || hour < 0 || hour > 23 {
		return b.send(chatID, "Usage: /time <hour>, with hour from 0 to 23 (UTC).")
	}
	learner.NotificationHour = hour
	if err := b.learners.UpdateSettings(ctx, learner); err != nil {
		return err
	}
	return b.send(chatID, fmt.Sprintf("Reminders will arrive at %02d:00 UTC.", hour))
}

func (b *Bot) handleNotifyCommand(ctx context.Context, chatID int64, learner *models.Learner, args string) error {
	switch strings.ToLower(strings.TrimSpace(args)) {
	case "on":
		learner.NotificationEnabled = true
	case "off":
		learner.NotificationEnabled = false
	default:
		return b.send(chatID, fmt.Sprintf("Reminders are %s. Usage: /notify on|off", boolToEnabledString(learner.NotificationEnabled)))
	}
	if err := b.learners.UpdateSettings(ctx, learner); err != nil {
		return err
	}
	return b.send(chatID, "Reminders "+boolToEnabledString(learner.NotificationEnabled)+".")
}

func boolToEnabledString(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

// processQuestionFile downloads an uploaded spreadsheet and imports its questions
func (b *Bot) processQuestionFile(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	b.mu.Lock()
	delete(b.awaitingFileUpload, chatID)
	b.mu.Unlock()

	ext := strings.ToLower(filepath.Ext(message.Document.FileName))
	if ext != ".xlsx" && ext != ".csv" {
		return b.send(chatID, "Only .xlsx and .csv files are supported.")
	}

	url, err := b.api.GetFileDirectURL(message.Document.FileID)
	if err != nil {
		return errors.Wrap(err, "resolve uploaded file")
	}
	path, err := download(ctx, url, ext)
	if err != nil {
		return err
	}
	defer os.Remove(path)

	result, err := excel.ImportQuestions(ctx, excel.DefaultImportConfig(path), b.questions)
	if err != nil {
		return b.send(chatID, "Import failed: "+err.Error())
	}
	text := fmt.Sprintf("Imported %d rows: %d new, %d updated, %d errors.", result.TotalProcessed, result.Created, result.Updated, len(result.Errors))
	for i, e := range result.Errors {
		if i == 5 {
			text += fmt.Sprintf("\n... and %d more", len(result.Errors)-5)
			break
		}
		text += "\n" + e
	}
	return b.sendWithMenu(chatID, text)
}

func download(ctx context.Context, url, ext string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errors.Wrap(err, "build download request")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "download file")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("download file: status %d", resp.StatusCode)
	}

	f, err := os.CreateTemp("", "learnbot-import-*"+ext)
	if err != nil {
		return "", errors.Wrap(err, "create temp file")
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(f.Name())
		return "", errors.Wrap(err, "save file")
	}
	return f.Name(), nil
}
