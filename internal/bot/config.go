package bot

import (
	"time"
)

// BotConfig represents the configuration for the bot
type BotConfig struct {
	// Questions per test when the learner has no preference
	DefaultQuestionCount int
	// Largest test a learner may ask for
	MaxQuestionCount int
	// Answer time budget shown with a question, in seconds
	ExpectedAnswerSeconds int
	// Sessions idle for longer are dropped
	SessionTTL time.Duration
	// Telegram user IDs allowed to run admin commands
	AdminUserIDs []int64
}

// DefaultConfig returns the default bot configuration
func DefaultConfig() *BotConfig {
	return &BotConfig{
		DefaultQuestionCount:  10,
		MaxQuestionCount:      50,
		ExpectedAnswerSeconds: 300,
		SessionTTL:            time.Hour * 1,
	}
}
