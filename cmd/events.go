package cmd

import (
	"errors"
	"os/signal"
	"syscall"

	"profiles/pkg/rabbitmq"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Logs user lifecycle events from RabbitMQ",
	Long: `Consumes the user events queue and writes every event to the log
until interrupted. Requires RABBITMQ_URL.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		if !cfg.EventsEnabled() {
			return errors.New("RABBITMQ_URL is not set")
		}

		client, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Queue: cfg.UserEventsQueue}, logger)
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return client.ConsumeUserEvents(ctx, func(event rabbitmq.UserEvent) error {
			logger.Info("User event",
				zap.String("type", event.Type),
				zap.String("user_id", event.UserID),
				zap.String("username", event.Username),
				zap.Strings("fields", event.Fields),
				zap.Time("occurred_at", event.OccurredAt),
			)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
}
