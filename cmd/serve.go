package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/example/learnbot/internal/bot"
	"github.com/example/learnbot/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot and the reminder scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := current
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		botCfg := bot.DefaultConfig()
		botCfg.AdminUserIDs = a.cfg.AdminUserIDs
		botCfg.DefaultQuestionCount = a.cfg.DefaultQuestionCount
		botCfg.ExpectedAnswerSeconds = a.cfg.ExpectedAnswerSeconds

		b, err := bot.New(a.cfg.TelegramToken, a.learners, a.service, a.question, botCfg, a.logger)
		if err != nil {
			return err
		}

		g, ctx := errgroup.WithContext(ctx)

		if a.cfg.EnableScheduler {
			s := scheduler.New(b, a.learners, a.service, scheduler.Options{
				StartHour: a.cfg.NotificationStartHour,
				EndHour:   a.cfg.NotificationEndHour,
			}, a.logger)
			if err := s.Start(ctx); err != nil {
				return err
			}
			a.logger.Info("reminder scheduler started", "start_hour", a.cfg.NotificationStartHour, "end_hour", a.cfg.NotificationEndHour)
			g.Go(func() error {
				<-ctx.Done()
				s.Stop()
				return nil
			})
		}

		g.Go(func() error {
			defer cancel()
			a.logger.Info("bot starting, press Ctrl+C to stop")
			err := b.Start(ctx)
			b.Stop()
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})

		if err := g.Wait(); err != nil {
			return err
		}
		a.logger.Info("bot stopped successfully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
