package models

import "time"

// Learner is a person using the bot
type Learner struct {
	ID                  int64     `json:"id" db:"id"`
	TelegramID          int64     `json:"telegram_id" db:"telegram_id"`
	Username            string    `json:"username" db:"username"`
	FirstName           string    `json:"first_name" db:"first_name"`
	NotificationEnabled bool      `json:"notification_enabled" db:"notification_enabled"`
	NotificationHour    int       `json:"notification_hour" db:"notification_hour"` // Hour of day for reminders (0-23)
	QuestionsPerTest    int       `json:"questions_per_test" db:"questions_per_test"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}
