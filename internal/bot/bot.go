// Package bot is the Telegram front end: it asks review questions, runs
// adaptive tests and reports progress.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"

	"github.com/example/learnbot/internal/excel"
	"github.com/example/learnbot/internal/learning"
	"github.com/example/learnbot/pkg/models"
)

// MenuButton represents a button in the menu
type MenuButton struct {
	Text         string
	CallbackData string
}

// createKeyboard creates a keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// sender is the part of the Telegram API the bot talks to
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Learners is the learner registry used by the bot
type Learners interface {
	Register(ctx context.Context, telegramID int64, username, firstName string) (*models.Learner, error)
	GetByID(ctx context.Context, id int64) (*models.Learner, error)
	UpdateSettings(ctx context.Context, l *models.Learner) error
}

// Engine is the learning pipeline used by the bot
type Engine interface {
	NextItem(ctx context.Context, learnerID int64) (*models.Question, error)
	SubmitReview(ctx context.Context, sub learning.ReviewSubmission) (*learning.ReviewOutcome, error)
	RecordResponse(ctx context.Context, e *models.ResponseEvent) error
	Analyze(ctx context.Context, learnerID int64) (*learning.Report, error)
	GenerateTest(ctx context.Context, learnerID int64, testType models.TestType, questionCount int) (*learning.GeneratedTest, error)
	CompleteTest(ctx context.Context, resultID int64, correct int) error
}

// Bot represents the Telegram bot application
type Bot struct {
	api       sender
	token     string
	learners  Learners
	engine    Engine
	questions excel.QuestionWriter
	config    *BotConfig
	logger    *slog.Logger
	now       func() time.Time

	sessions *sessionStore

	mu                 sync.Mutex
	adminUserIDs       map[int64]bool
	awaitingFileUpload map[int64]bool
	stop               func()
}

// New creates a new bot instance. The Telegram connection is opened by Start.
func New(token string, learners Learners, engine Engine, questions excel.QuestionWriter, config *BotConfig, logger *slog.Logger) (*Bot, error) {
	if token == "" {
		return nil, errors.New("telegram bot token is not set")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	b := &Bot{
		token:              token,
		learners:           learners,
		engine:             engine,
		questions:          questions,
		config:             config,
		logger:             logger.With("component", "bot"),
		now:                func() time.Time { return time.Now().UTC() },
		sessions:           newSessionStore(config.SessionTTL),
		adminUserIDs:       make(map[int64]bool),
		awaitingFileUpload: make(map[int64]bool),
	}
	for _, id := range config.AdminUserIDs {
		b.adminUserIDs[id] = true
	}
	return b, nil
}

// Start connects to Telegram and handles updates until ctx is cancelled or Stop is called.
func (b *Bot) Start(ctx context.Context) error {
	botAPI, err := tgbotapi.NewBotAPI(b.token)
	if err != nil {
		return errors.Wrap(err, "unable to create bot")
	}
	b.api = botAPI
	b.logger.Info("authorized", "account", botAPI.Self.UserName)

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := botAPI.GetUpdatesChan(updateConfig)

	ctx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	b.stop = cancel
	b.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			botAPI.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

// Stop gracefully stops the bot
func (b *Bot) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stop != nil {
		b.stop()
	}
	b.logger.Info("bot stopped")
}

// SendReminder implements scheduler.Notifier
func (b *Bot) SendReminder(_ context.Context, learner models.Learner, count int) error {
	if b.api == nil {
		return errors.New("bot is not started")
	}
	if learner.TelegramID == 0 {
		return errors.Errorf("learner %d has no telegram account", learner.ID)
	}
	// private chats share the user's ID
	msg := tgbotapi.NewMessage(learner.TelegramID, reminderText(count))
	msg.ReplyMarkup = createKeyboard([][]MenuButton{{{Text: "🎯 Review", CallbackData: cbReview}}})
	if _, err := b.api.Send(msg); err != nil {
		return errors.Wrapf(err, "send reminder to learner %d", learner.ID)
	}
	b.logger.Info("reminder sent", "learner_id", learner.ID, "due", count)
	return nil
}

func (b *Bot) isAdmin(userID int64) bool {
	return b.adminUserIDs[userID]
}

// handleUpdate handles incoming updates from Telegram
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("panic while handling update", "update_id", update.UpdateID, "panic", fmt.Sprint(r))
		}
	}()

	var err error
	switch {
	case update.Message != nil && update.Message.From != nil:
		err = b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		err = b.handleCallback(ctx, update.CallbackQuery)
	default:
		return
	}
	if err != nil {
		b.logger.Error("failed to handle update", "update_id", update.UpdateID, "error", err)
	}
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) error {
	if message.IsCommand() {
		return b.HandleCommand(ctx, message)
	}

	chatID := message.Chat.ID
	b.mu.Lock()
	awaitingFile := b.awaitingFileUpload[chatID]
	b.mu.Unlock()
	if awaitingFile && message.Document != nil {
		return b.processQuestionFile(ctx, message)
	}

	if sess, ok := b.sessions.get(chatID, b.now()); ok && !sess.Answered && len(questionOptions(sess.Question)) == 0 {
		return b.answerQuestion(ctx, chatID, message.Text)
	}
	return b.sendWithMenu(chatID, "I don't understand. Use /help to see what I can do.")
}

func (b *Bot) learnerFor(ctx context.Context, user *tgbotapi.User) (*models.Learner, error) {
	return b.learners.Register(ctx, user.ID, user.UserName, user.FirstName)
}

func (b *Bot) send(chatID int64, text string) error {
	_, err := b.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func (b *Bot) sendWithMenu(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = createKeyboard(b.MainMenuButtons())
	_, err := b.api.Send(msg)
	return err
}

// MainMenuButtons returns the buttons for the main menu
func (b *Bot) MainMenuButtons() [][]MenuButton {
	return [][]MenuButton{
		{
			{Text: "🎯 Review", CallbackData: cbReview},
			{Text: "📝 Test", CallbackData: cbTestPrefix + string(models.TestMixedReview)},
		},
		{
			{Text: "📊 Statistics", CallbackData: cbStats},
			{Text: "🔍 Weak topics", CallbackData: cbWeak},
		},
	}
}

func optionButtons(options []string, withHint bool) [][]MenuButton {
	var rows [][]MenuButton
	for i, o := range options {
		rows = append(rows, []MenuButton{{Text: o, CallbackData: cbAnswerPrefix + strconv.Itoa(i)}})
	}
	if withHint {
		rows = append(rows, []MenuButton{{Text: "💡 Hint", CallbackData: cbHint}})
	}
	return rows
}

func ratingButtons() [][]MenuButton {
	row := make([]MenuButton, 0, 6)
	for i := 0; i <= 5; i++ {
		row = append(row, MenuButton{Text: strconv.Itoa(i), CallbackData: cbRatePrefix + strconv.Itoa(i)})
	}
	return [][]MenuButton{row}
}
