package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"nexus/internal/domain"
	"nexus/internal/ports"
	"nexus/pkg/backoff"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var errSubscriptionClosed = errors.New("event subscription closed")

// Publisher sends events to the shared Redis channel.
type Publisher struct {
	Rdb     *redis.Client
	Channel string
}

var _ ports.EventBus = (*Publisher)(nil)

func NewPublisher(c *Client) *Publisher {
	return &Publisher{Rdb: c.Rdb, Channel: c.Cfg.EventChannel}
}

func (p *Publisher) Publish(ctx context.Context, e domain.Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.Rdb.Publish(ctx, p.Channel, b).Err()
}

// Relay mirrors the shared Redis channel into a local bus so every
// replica's subscribers see events from all replicas.
type Relay struct {
	Rdb         *redis.Client
	Channel     string
	Sink        ports.EventBus
	BaseBackoff time.Duration
	MaxBackoff  time.Duration

	subscribed func()
}

func NewRelay(c *Client, sink ports.EventBus) *Relay {
	return &Relay{
		Rdb:         c.Rdb,
		Channel:     c.Cfg.EventChannel,
		Sink:        sink,
		BaseBackoff: 500 * time.Millisecond,
		MaxBackoff:  30 * time.Second,
	}
}

// Run blocks until ctx is done, resubscribing with backoff when the
// subscription drops.
func (r *Relay) Run(ctx context.Context) error {
	attempt := 0
	for {
		established, err := r.consume(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if established {
			attempt = 0
		}
		attempt++

		delay := backoff.ExponentialJitter(r.BaseBackoff, r.MaxBackoff, attempt)
		log.Ctx(ctx).Warn().Err(err).Dur("retry_in", delay).Str("channel", r.Channel).Msg("event relay subscription lost")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (r *Relay) consume(ctx context.Context) (bool, error) {
	sub := r.Rdb.Subscribe(ctx, r.Channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return false, err
	}
	log.Ctx(ctx).Info().Str("channel", r.Channel).Msg("event relay subscribed")
	if r.subscribed != nil {
		r.subscribed()
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return true, nil
		case msg, ok := <-ch:
			if !ok {
				return true, errSubscriptionClosed
			}
			var e domain.Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				log.Ctx(ctx).Error().Err(err).Msg("dropping undecodable event")
				continue
			}
			if err := r.Sink.Publish(ctx, e); err != nil {
				log.Ctx(ctx).Error().Err(err).Str("type", string(e.Type)).Msg("relay publish failed")
			}
		}
	}
}
