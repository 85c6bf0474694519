package bot

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/learnbot/internal/analysis"
	"github.com/example/learnbot/internal/learning"
	"github.com/example/learnbot/internal/spaced_repetition"
	"github.com/example/learnbot/pkg/models"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, m)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) GetFileDirectURL(string) (string, error) { return "", nil }

func (f *fakeSender) last() tgbotapi.MessageConfig {
	return f.sent[len(f.sent)-1]
}

type fakeLearners struct {
	learner models.Learner
}

func (f *fakeLearners) Register(_ context.Context, telegramID int64, username, firstName string) (*models.Learner, error) {
	l := f.learner
	l.TelegramID, l.Username, l.FirstName = telegramID, username, firstName
	return &l, nil
}

func (f *fakeLearners) GetByID(context.Context, int64) (*models.Learner, error) {
	l := f.learner
	return &l, nil
}

func (f *fakeLearners) UpdateSettings(_ context.Context, l *models.Learner) error {
	f.learner = *l
	return nil
}

type fakeEngine struct {
	next        *models.Question
	report      *learning.Report
	test        *learning.GeneratedTest
	submissions []learning.ReviewSubmission
	responses   []models.ResponseEvent
	completed   map[int64]int
}

func (f *fakeEngine) NextItem(context.Context, int64) (*models.Question, error) {
	if f.next == nil {
		return nil, learning.ErrNothingToReview
	}
	return f.next, nil
}

func (f *fakeEngine) SubmitReview(_ context.Context, sub learning.ReviewSubmission) (*learning.ReviewOutcome, error) {
	f.submissions = append(f.submissions, sub)
	return &learning.ReviewOutcome{
		ScheduleResult: spaced_repetition.ScheduleResult{
			State:   models.SRSItemState{NextReviewDate: testNow.AddDate(0, 0, 6)},
			Quality: 4.2,
		},
		Duplicate: len(f.submissions) > 1,
	}, nil
}

func (f *fakeEngine) RecordResponse(_ context.Context, e *models.ResponseEvent) error {
	f.responses = append(f.responses, *e)
	return nil
}

func (f *fakeEngine) Analyze(context.Context, int64) (*learning.Report, error) {
	if f.report == nil {
		return nil, analysis.ErrNoPerformanceData
	}
	return f.report, nil
}

func (f *fakeEngine) GenerateTest(_ context.Context, _ int64, testType models.TestType, count int) (*learning.GeneratedTest, error) {
	if f.test == nil {
		return nil, analysis.ErrNoPerformanceData
	}
	f.test.Strategy.TestType = testType
	f.test.Strategy.QuestionCount = count
	return f.test, nil
}

func (f *fakeEngine) CompleteTest(_ context.Context, id int64, correct int) error {
	if f.completed == nil {
		f.completed = make(map[int64]int)
	}
	f.completed[id] = correct
	return nil
}

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

const chatID = 555

func newTestBot(t *testing.T, engine *fakeEngine) (*Bot, *fakeSender, *fakeLearners) {
	t.Helper()
	learners := &fakeLearners{learner: models.Learner{ID: 1, QuestionsPerTest: 2, NotificationHour: 9}}
	cfg := DefaultConfig()
	cfg.AdminUserIDs = []int64{chatID}
	b, err := New("token", learners, engine, nil, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	s := &fakeSender{}
	b.api = s
	clock := testNow
	b.now = func() time.Time {
		clock = clock.Add(10 * time.Second)
		return clock
	}
	return b, s, learners
}

func command(text string) tgbotapi.Update {
	cmdLen := len(text)
	for i, r := range text {
		if r == ' ' {
			cmdLen = i
			break
		}
	}
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     text,
		From:     &tgbotapi.User{ID: chatID, FirstName: "Ada"},
		Chat:     &tgbotapi.Chat{ID: chatID},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}},
	}}
}

func text(s string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text: s,
		From: &tgbotapi.User{ID: chatID},
		Chat: &tgbotapi.Chat{ID: chatID},
	}}
}

func press(data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		Data:    data,
		From:    &tgbotapi.User{ID: chatID},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}},
	}}
}

func keyboardData(t *testing.T, m tgbotapi.MessageConfig) []string {
	t.Helper()
	kb, ok := m.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok, "message has no inline keyboard")
	var data []string
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			data = append(data, *btn.CallbackData)
		}
	}
	return data
}

func TestReviewFlow(t *testing.T) {
	engine := &fakeEngine{next: &models.Question{
		ID: 7, Domain: "math", Topic: "algebra", Difficulty: models.Beginner,
		Prompt: "2+2?", Type: models.MultipleChoice, Options: []string{"3", "4"}, CorrectAnswer: "4",
	}}
	b, s, _ := newTestBot(t, engine)
	ctx := context.Background()

	b.handleUpdate(ctx, command("/due"))
	q := s.last()
	assert.Contains(t, q.Text, "2+2?")
	assert.Equal(t, []string{"ans:0", "ans:1", "hint"}, keyboardData(t, q))

	b.handleUpdate(ctx, press("hint"))
	assert.Equal(t, "💡 •", s.last().Text)

	b.handleUpdate(ctx, press("ans:1"))
	assert.Contains(t, s.last().Text, "Correct")
	assert.Len(t, keyboardData(t, s.last()), 6)

	b.handleUpdate(ctx, press("rate:4"))
	require.Len(t, engine.submissions, 1)
	sub := engine.submissions[0]
	assert.Equal(t, int64(7), sub.ItemID)
	assert.Equal(t, int64(1), sub.LearnerID)
	assert.Equal(t, 1.0, sub.AutoScore)
	assert.Equal(t, 4.0, sub.SelfRating)
	assert.Equal(t, 1.0, sub.HintLevel)
	assert.NotEmpty(t, sub.EventID)
	assert.Greater(t, sub.TimeSpentSeconds, 0.0)
	assert.Contains(t, s.last().Text, "Next review in 6 days")

	b.handleUpdate(ctx, press("rate:4"))
	assert.Len(t, engine.submissions, 1, "session is closed after rating")
	assert.Contains(t, s.last().Text, "no review to rate")
}

func TestShortAnswerIsTyped(t *testing.T) {
	engine := &fakeEngine{next: &models.Question{ID: 3, Prompt: "Capital of France?", Type: models.ShortAnswer, CorrectAnswer: "Paris"}}
	b, s, _ := newTestBot(t, engine)
	ctx := context.Background()

	b.handleUpdate(ctx, command("/due"))
	assert.Contains(t, s.last().Text, "Type your answer")

	b.handleUpdate(ctx, text("  paris "))
	assert.Contains(t, s.last().Text, "Correct")
}

func TestNothingToReview(t *testing.T) {
	b, s, _ := newTestBot(t, &fakeEngine{})
	b.handleUpdate(context.Background(), command("/due"))
	assert.Contains(t, s.last().Text, "Nothing to review")
}

func TestTestFlow(t *testing.T) {
	engine := &fakeEngine{test: &learning.GeneratedTest{
		ResultID: 42,
		Strategy: models.TestStrategy{AdaptiveSettings: models.AdaptiveSettings{ShowExplanations: true}},
		Questions: []models.Question{
			{ID: 1, Topic: "algebra", Type: models.TrueFalse, CorrectAnswer: "True", Explanation: "by definition"},
			{ID: 2, Topic: "geometry", Type: models.ShortAnswer, CorrectAnswer: "180"},
		},
	}}
	b, s, _ := newTestBot(t, engine)
	ctx := context.Background()

	b.handleUpdate(ctx, command("/test weak 2"))
	assert.Equal(t, models.TestWeakAreas, engine.test.Strategy.TestType)
	assert.Equal(t, 2, engine.test.Strategy.QuestionCount)
	assert.Contains(t, s.last().Text, "Question 1/2")
	assert.Equal(t, []string{"ans:0", "ans:1"}, keyboardData(t, s.last()))

	b.handleUpdate(ctx, press("ans:0"))
	b.handleUpdate(ctx, text("90"))

	require.Len(t, engine.responses, 2)
	assert.True(t, engine.responses[0].IsCorrect)
	assert.False(t, engine.responses[1].IsCorrect)
	assert.NotEqual(t, engine.responses[0].EventID, engine.responses[1].EventID)
	assert.Equal(t, 1, engine.completed[42])
	assert.Contains(t, s.last().Text, "1/2 correct")
}

func TestTestNeedsHistory(t *testing.T) {
	b, s, _ := newTestBot(t, &fakeEngine{})
	b.handleUpdate(context.Background(), command("/test"))
	assert.Contains(t, s.last().Text, "Answer a few review questions first")
}

func TestStatsAndWeak(t *testing.T) {
	engine := &fakeEngine{report: &learning.Report{
		Profile: models.OverallProfile{TotalQuestionsAttempted: 10, OverallAccuracy: 55, ReadinessLevel: models.NotReady},
		Domains: []models.DomainPerformance{{Domain: "math", Accuracy: 55, QuestionsAttempted: 10, Topics: []models.TopicPerformance{
			{Domain: "math", TopicName: "algebra", Accuracy: 80, QuestionsAttempted: 5},
			{Domain: "math", TopicName: "geometry", Accuracy: 30, QuestionsAttempted: 5},
		}}},
		Weaknesses: []models.WeaknessArea{{Domain: "math", Topic: "geometry", Accuracy: 30, Severity: models.Severe, RecommendedPractice: "Review geometry"}},
	}}
	b, s, _ := newTestBot(t, engine)
	ctx := context.Background()

	b.handleUpdate(ctx, command("/stats"))
	stats := s.last().Text
	assert.Contains(t, stats, "Accuracy: 55.0%")
	assert.Less(t, strings.Index(stats, "geometry"), strings.Index(stats, "algebra"), "weakest topic listed first")

	b.handleUpdate(ctx, command("/weak"))
	assert.Contains(t, s.last().Text, "🔴 math › geometry: 30.0%")
	assert.Equal(t, []string{"test:weak-areas"}, keyboardData(t, s.last()))
}

func TestSettingsCommands(t *testing.T) {
	b, s, learners := newTestBot(t, &fakeEngine{})
	ctx := context.Background()

	b.handleUpdate(ctx, command("/time 7"))
	assert.Equal(t, 7, learners.learner.NotificationHour)

	b.handleUpdate(ctx, command("/time 25"))
	assert.Contains(t, s.last().Text, "Usage")
	assert.Equal(t, 7, learners.learner.NotificationHour)

	b.handleUpdate(ctx, command("/notify off"))
	assert.False(t, learners.learner.NotificationEnabled)
	assert.Equal(t, "Reminders disabled.", s.last().Text)
}

func TestSendReminder(t *testing.T) {
	b, s, _ := newTestBot(t, &fakeEngine{})
	require.NoError(t, b.SendReminder(context.Background(), models.Learner{ID: 1, TelegramID: 99}, 3))
	assert.Equal(t, int64(99), s.last().ChatID)
	assert.Contains(t, s.last().Text, "3 questions due")

	assert.Error(t, b.SendReminder(context.Background(), models.Learner{ID: 2}, 1))
}

func TestParseTestArgs(t *testing.T) {
	tt, n, err := parseTestArgs("", 50)
	require.NoError(t, err)
	assert.Equal(t, models.TestMixedReview, tt)
	assert.Zero(t, n)

	tt, n, err = parseTestArgs("advancement 15", 50)
	require.NoError(t, err)
	assert.Equal(t, models.TestAdvancement, tt)
	assert.Equal(t, 15, n)

	_, _, err = parseTestArgs("review 0", 50)
	assert.Error(t, err)
	_, _, err = parseTestArgs("review 51", 50)
	assert.Error(t, err)
}

func TestRevealPrefix(t *testing.T) {
	assert.Equal(t, "P••••", revealPrefix("Paris", 1))
	assert.Equal(t, "Pari•", revealPrefix("Paris", 5))
	assert.Equal(t, "•", revealPrefix("4", 1))
	assert.Equal(t, "", revealPrefix("", 1))
}
