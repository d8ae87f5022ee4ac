package cmd

import (
	"context"
	"errors"
	"fmt"
	"nexus/internal/config"
	"nexus/internal/domain"
	"nexus/internal/watch"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func watchCmd() *cobra.Command {
	var (
		url         string
		types       []string
		baseBackoff time.Duration
		maxBackoff  time.Duration
	)

	var command = &cobra.Command{
		Use:   "watch",
		Short: "Follow the orchestrator event stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			setupLogging(cfg.Log)
			if url == "" {
				url = fmt.Sprintf("ws://localhost:%d/events", cfg.HTTP.Port)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			err := watch.Run(ctx, watch.Config{
				URL:         url,
				Types:       types,
				BaseBackoff: baseBackoff,
				MaxBackoff:  maxBackoff,
			}, func(e domain.Event) {
				log.Info().Str("type", string(e.Type)).Time("at", e.Timestamp).Interface("payload", e.Payload).Msg("event")
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	command.Flags().StringVar(&url, "url", "", "Event stream URL (default ws://localhost:<HTTP_PORT>/events)")
	command.Flags().StringSliceVar(&types, "type", nil, "Only print these event types")
	command.Flags().DurationVar(&baseBackoff, "base-backoff", 500*time.Millisecond, "Base reconnect backoff")
	command.Flags().DurationVar(&maxBackoff, "max-backoff", 30*time.Second, "Max reconnect backoff")

	return command
}
