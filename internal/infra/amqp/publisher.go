// Package amqp publishes platform events to a RabbitMQ topic exchange.
package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"nexus/internal/config"
	"nexus/internal/domain"
	"nexus/internal/ports"
	"nexus/pkg/backoff"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

var _ ports.EventBus = (*Publisher)(nil)

type Publisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

// Dial connects to the broker, retrying with jittered backoff, and
// declares the events exchange.
func Dial(ctx context.Context, cfg config.AMQP) (*Publisher, error) {
	tries := max(cfg.DialTries, 1)

	var err error
	for i := 1; i <= tries; i++ {
		var p *Publisher
		if p, err = connect(cfg); err == nil {
			log.Ctx(ctx).Info().Str("exchange", cfg.Exchange).Msg("connected to rabbitmq")
			return p, nil
		}

		delay := backoff.ExponentialJitter(time.Second, 15*time.Second, i)
		log.Ctx(ctx).Warn().Err(err).Int("attempt", i).Int("max_attempts", tries).Dur("retry_in", delay).
			Msg("failed to connect to rabbitmq, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("failed to connect to rabbitmq after %d attempts: %w", tries, err)
}

func connect(cfg config.AMQP) (*Publisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}
	return &Publisher{conn: conn, ch: ch, exchange: cfg.Exchange}, nil
}

func (p *Publisher) Publish(ctx context.Context, e domain.Event) error {
	msg, err := publishing(e)
	if err != nil {
		return err
	}

	// amqp channels are not safe for concurrent publishing.
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.PublishWithContext(ctx, p.exchange, RoutingKey(e.Type), false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// RoutingKey maps FILE_UPLOAD_FAILED to "event.file_upload_failed".
func RoutingKey(t domain.EventType) string {
	return "event." + strings.ToLower(string(t))
}

func publishing(e domain.Event) (amqp.Publishing, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return amqp.Publishing{}, err
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Transient,
		Timestamp:    e.Timestamp,
		Type:         string(e.Type),
		Body:         body,
	}, nil
}
