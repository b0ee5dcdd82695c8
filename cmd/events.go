/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/accountadmin/apiserver/config"
	"github.com/accountadmin/apiserver/internal/mq"
	"github.com/accountadmin/apiserver/internal/services"
	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Account lifecycle event tools",
}

var eventsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Log account lifecycle events as they arrive",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := newLogger(cfg)

		if cfg.MQ.Backend == config.BackendMemory {
			return errors.New("MQ_BACKEND=memory only delivers within one process; use rabbitmq or pubsub to watch server events")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		queue, err := mq.NewFromConfig(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		if queue == nil {
			return errors.New("MQ_BACKEND is not configured")
		}
		defer queue.Close()

		logger.Info("watching account events", slog.String("channel", cfg.MQ.Channel))
		err = queue.Subscribe(ctx, cfg.MQ.Channel, func(ctx context.Context, msg mq.Message) error {
			event, err := services.DecodeEvent(msg.Data)
			if err != nil {
				logger.WarnContext(ctx, "skipping malformed event", slog.String("id", msg.ID), slog.Any("error", err))
				return nil
			}
			logger.InfoContext(ctx, "account event",
				slog.String("id", msg.ID),
				slog.String("type", string(event.Type)),
				slog.Int64("count", event.Count),
				slog.Any("user_ids", event.UserIDs),
				slog.Time("occurred_at", event.OccurredAt),
			)
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsWatchCmd)
}
