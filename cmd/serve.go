package cmd

import (
	"context"
	"errors"
	"fmt"
	"nexus/internal/api"
	"nexus/internal/config"
	"nexus/internal/domain"
	"nexus/internal/eventbus"
	"nexus/internal/infra/amqp"
	"nexus/internal/infra/engine"
	"nexus/internal/infra/gemini"
	"nexus/internal/infra/memstore"
	"nexus/internal/infra/postgres"
	"nexus/internal/infra/redisstore"
	"nexus/internal/oracle"
	"nexus/internal/ports"
	"nexus/internal/usecase"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var port int
	var command = &cobra.Command{
		Use:   "serve",
		Short: "Start the orchestrator HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			setupLogging(cfg.Log)
			if cmd.Flags().Changed("port") {
				cfg.HTTP.Port = port
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}

	command.Flags().IntVarP(&port, "port", "p", 8080, "Port to run the server on")
	return command
}

// stack holds the adapters serve opens, closed in reverse order.
type stack struct {
	closers []func()
}

func (s *stack) onClose(fn func()) { s.closers = append(s.closers, fn) }

func (s *stack) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	var st stack
	defer st.close()

	var rc *redisstore.Client
	if cfg.Redis.Enabled() {
		rc = redisstore.New(cfg.Redis)
		if err := rc.Connect(ctx); err != nil {
			return err
		}
		st.onClose(func() { _ = rc.Close() })
	}

	ledger, err := openLedger(ctx, cfg, rc, &st)
	if err != nil {
		return err
	}

	hub := eventbus.NewHub(eventbus.DefaultBuffer)
	bus, err := openBus(ctx, cfg, rc, hub, &st)
	if err != nil {
		return err
	}

	if cfg.Oracle.APIKey == "" {
		log.Warn().Msg("GOOGLE_API_KEY is not set, every command will get the clarification reply")
	}

	engines := engine.New(cfg.Engines)
	d := &usecase.Dispatcher{
		Ledger:          ledger,
		Bus:             bus,
		Content:         engines,
		Financial:       engines,
		Interpreter:     oracle.NewInterpreter(gemini.New(cfg.Oracle)),
		FeedbackTimeout: cfg.Engines.FeedbackTimeout,
	}
	defer d.Wait()

	srv := api.NewServer(cfg.HTTP, d, hub, bus)

	start := domain.NewEvent(domain.EventServerStart, map[string]any{
		"message": fmt.Sprintf("Orchestrator online on port %d.", cfg.HTTP.Port),
	}, time.Now().UTC())
	if err := bus.Publish(ctx, start); err != nil {
		log.Error().Err(err).Msg("failed to publish server start")
	}

	return srv.Run(ctx)
}

func openLedger(ctx context.Context, cfg *config.Config, rc *redisstore.Client, st *stack) (ports.TaskLedger, error) {
	switch cfg.Ledger.Driver {
	case "postgres":
		db, err := postgres.New(ctx, cfg.Postgres, log.Logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		st.onClose(db.Close)
		if err := db.Migrate(); err != nil {
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		log.Info().Str("host", cfg.Postgres.Host).Msg("task ledger on postgres")
		return postgres.NewLedger(db), nil
	case "redis":
		if rc == nil {
			return nil, errors.New("LEDGER_DRIVER=redis requires REDIS_ADDRESS")
		}
		log.Info().Str("addr", cfg.Redis.Addr).Msg("task ledger on redis")
		return rc, nil
	case "memory":
		log.Warn().Msg("task ledger in memory, records are lost on restart")
		return memstore.New(), nil
	}
	return nil, fmt.Errorf("unknown LEDGER_DRIVER %q", cfg.Ledger.Driver)
}

// openBus returns the bus the dispatcher publishes to. With Redis, events
// go through the shared channel and a relay mirrors it into the local hub
// so every replica streams every event.
func openBus(ctx context.Context, cfg *config.Config, rc *redisstore.Client, hub *eventbus.Hub, st *stack) (ports.EventBus, error) {
	var bus eventbus.Fanout

	if rc != nil {
		bus = append(bus, redisstore.NewPublisher(rc))
		relay := redisstore.NewRelay(rc, hub)
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("event relay stopped")
			}
		}()
	} else {
		bus = append(bus, hub)
	}

	if cfg.AMQP.Enabled() {
		pub, err := amqp.Dial(ctx, cfg.AMQP)
		if err != nil {
			return nil, err
		}
		st.onClose(func() { _ = pub.Close() })
		bus = append(bus, pub)
	}

	return bus, nil
}
