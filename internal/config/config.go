// Package config loads settings from the environment, an optional .env file
// and an optional config file.
package config

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/example/learnbot/internal/analysis"
	"github.com/example/learnbot/internal/database"
	"github.com/example/learnbot/internal/learning"
	"github.com/example/learnbot/internal/spaced_repetition"
)

// Default notification window, in UTC hours
const (
	DefaultNotificationStartHour = 4
	DefaultNotificationEndHour   = 18
)

// Config holds the application settings
type Config struct {
	DBType      string `mapstructure:"db_type"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	DatabaseURL string `mapstructure:"database_url"`

	TelegramToken string  `mapstructure:"telegram_bot_token"`
	AdminUserIDs  []int64 `mapstructure:"-"`

	EnableScheduler       bool `mapstructure:"enable_scheduler"`
	NotificationStartHour int  `mapstructure:"notification_start_hour"`
	NotificationEndHour   int  `mapstructure:"notification_end_hour"`

	ExpectedAnswerSeconds int `mapstructure:"expected_answer_seconds"`
	ImprovementWindow     int `mapstructure:"improvement_window"`
	ConsistencyWindow     int `mapstructure:"consistency_window"`
	DefaultQuestionCount  int `mapstructure:"default_question_count"`

	LogLevel string `mapstructure:"log_level"`
}

func setDefaults(v *viper.Viper) {
	opts := analysis.DefaultOptions()

	v.SetDefault("db_type", database.TypeSQLite)
	v.SetDefault("sqlite_path", "data/learnbot.db")
	v.SetDefault("database_url", "")
	v.SetDefault("telegram_bot_token", "")
	v.SetDefault("admin_user_ids", "")
	v.SetDefault("enable_scheduler", true)
	v.SetDefault("notification_start_hour", DefaultNotificationStartHour)
	v.SetDefault("notification_end_hour", DefaultNotificationEndHour)
	v.SetDefault("expected_answer_seconds", spaced_repetition.DefaultExpectedSeconds)
	v.SetDefault("improvement_window", opts.ImprovementWindow)
	v.SetDefault("consistency_window", opts.ConsistencyWindow)
	v.SetDefault("default_question_count", analysis.DefaultQuestionCount)
	v.SetDefault("log_level", "info")
}

// Load reads .env (if present) into the environment, then builds the config
// from defaults, the optional config file and environment variables, in
// increasing order of precedence. configFile may be empty.
func Load(configFile string) (*Config, error) {
	// a missing .env is normal outside development
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config file %s", configFile)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}

	ids, err := parseIDs(v.GetString("admin_user_ids"))
	if err != nil {
		return nil, err
	}
	cfg.AdminUserIDs = ids

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	switch c.DBType {
	case database.TypeSQLite:
		if c.SQLitePath == "" {
			return errors.New("SQLITE_PATH must be set for sqlite")
		}
	case database.TypePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL must be set for postgres")
		}
	default:
		return fmt.Errorf("unsupported DB_TYPE %q", c.DBType)
	}

	for name, h := range map[string]int{
		"NOTIFICATION_START_HOUR": c.NotificationStartHour,
		"NOTIFICATION_END_HOUR":   c.NotificationEndHour,
	} {
		if h < 0 || h > 23 {
			return fmt.Errorf("%s must be between 0 and 23, got %d", name, h)
		}
	}
	if c.ExpectedAnswerSeconds <= 0 {
		return fmt.Errorf("EXPECTED_ANSWER_SECONDS must be positive, got %d", c.ExpectedAnswerSeconds)
	}
	if c.ImprovementWindow <= 0 || c.ConsistencyWindow <= 0 {
		return errors.New("IMPROVEMENT_WINDOW and CONSISTENCY_WINDOW must be positive")
	}
	if c.DefaultQuestionCount <= 0 {
		return fmt.Errorf("DEFAULT_QUESTION_COUNT must be positive, got %d", c.DefaultQuestionCount)
	}
	return nil
}

// DSN returns the connection string for the configured database
func (c *Config) DSN() string {
	if c.DBType == database.TypePostgres {
		return c.DatabaseURL
	}
	return c.SQLitePath
}

// IsAdmin reports whether a Telegram user may run admin commands
func (c *Config) IsAdmin(telegramID int64) bool {
	for _, id := range c.AdminUserIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}

// Learning returns the service settings
func (c *Config) Learning() learning.Config {
	return learning.Config{
		Analysis: analysis.Options{
			ImprovementWindow: c.ImprovementWindow,
			ConsistencyWindow: c.ConsistencyWindow,
		},
		ExpectedSeconds: c.ExpectedAnswerSeconds,
		QuestionCount:   c.DefaultQuestionCount,
	}
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid admin user id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
