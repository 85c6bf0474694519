// Package cmd holds the learnbot command line.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/example/learnbot/internal/config"
	"github.com/example/learnbot/internal/database"
	"github.com/example/learnbot/internal/learning"
)

var configFile string

// app is the wiring shared by every command
type app struct {
	cfg      *config.Config
	db       *sqlx.DB
	logger   *slog.Logger
	learners *database.LearnerRepository
	question *database.QuestionRepository
	service  *learning.Service
}

var current *app

var rootCmd = &cobra.Command{
	Use:   "learnbot",
	Short: "Adaptive spaced repetition and weakness analysis",
	Long: `Learnbot schedules reviews with SM-2, analyzes a learner's answer
history for weak topics and assembles adaptive tests. It runs as a
Telegram bot (serve) or from the command line.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		current = a
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if current != nil {
			current.db.Close()
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "optional config file (yaml, json or toml)")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}

func setup() (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	db, err := database.Connect(cfg.DBType, cfg.DSN())
	if err != nil {
		return nil, err
	}
	logger.Debug("database ready", "type", cfg.DBType)

	a := &app{
		cfg:      cfg,
		db:       db,
		logger:   logger,
		learners: database.NewLearnerRepository(db),
		question: database.NewQuestionRepository(db),
	}
	a.service = learning.NewService(learning.Stores{
		Responses:  database.NewResponseRepository(db),
		States:     database.NewSRSStateRepository(db),
		Questions:  a.question,
		Tests:      database.NewTestResultRepository(db),
		Statistics: database.NewStatisticsRepository(db),
	}, cfg.Learning(), logger)
	return a, nil
}
