/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cjnewshub/apiserver/config"
	"github.com/cjnewshub/apiserver/internal/logging"
	"github.com/cjnewshub/apiserver/internal/mq"
	"github.com/cjnewshub/apiserver/internal/notify"
	"github.com/spf13/cobra"
)

// notificationsCmd represents the notifications command
var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Print verification messages published to the broker",
	Long: `Subscribes to the notification channel and prints every verification
message as it arrives. Useful in development when no mailer consumes the
channel. Usage:

	cjnews notifications
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		log := logging.New(os.Stderr, cfg.LogLevel)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		queue, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return fmt.Errorf("open broker: %w", err)
		}
		defer queue.Close()

		out := cmd.OutOrStdout()
		log.Info(ctx, "waiting for notifications", "channel", cfg.MQ.NotificationChannel)
		err = queue.Subscribe(ctx, cfg.MQ.NotificationChannel, func(ctx context.Context, msg mq.Message) error {
			var n notify.Message
			if err := json.Unmarshal(msg.Data, &n); err != nil {
				log.Warn(ctx, "undecodable notification dropped", "id", msg.ID, "error", err)
				return nil
			}
			_, err := fmt.Fprintf(out, "--- %s to %s (%s)\nSubject: %s\n\n%s\n\n", n.Kind, n.To, msg.ID, n.Subject, n.Body)
			return err
		})
		if err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(notificationsCmd)
}
