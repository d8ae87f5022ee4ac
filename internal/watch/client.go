// Package watch follows the orchestrator's event stream over a websocket.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"nexus/internal/domain"
	"nexus/pkg/backoff"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/websocket"
)

type Config struct {
	URL         string
	Origin      string
	Types       []string
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// Run delivers stream events to handle until ctx is done, reconnecting
// with backoff whenever the stream drops. It returns ctx.Err().
func Run(ctx context.Context, cfg Config, handle func(domain.Event)) error {
	if cfg.Origin == "" {
		cfg.Origin = originFor(cfg.URL)
	}
	keep := filter(cfg.Types)

	attempt := 0
	for {
		established, err := follow(ctx, cfg, keep, handle)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if established {
			attempt = 0
		}
		attempt++

		delay := backoff.ExponentialJitter(cfg.BaseBackoff, cfg.MaxBackoff, attempt)
		log.Ctx(ctx).Warn().Err(err).Str("url", cfg.URL).Dur("retry_in", delay).Msg("event stream lost")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func follow(ctx context.Context, cfg Config, keep func(domain.EventType) bool, handle func(domain.Event)) (bool, error) {
	conn, err := websocket.Dial(cfg.URL, "", cfg.Origin)
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", cfg.URL, err)
	}
	defer func() {
		_ = conn.Close()
	}()
	log.Ctx(ctx).Info().Str("url", cfg.URL).Msg("following event stream")

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		var e domain.Event
		if err := websocket.JSON.Receive(conn, &e); err != nil {
			if errors.Is(err, io.EOF) {
				return true, errors.New("stream closed by server")
			}
			return true, err
		}
		if keep(e.Type) {
			handle(e)
		}
	}
}

func filter(types []string) func(domain.EventType) bool {
	if len(types) == 0 {
		return func(domain.EventType) bool { return true }
	}
	set := make(map[domain.EventType]struct{}, len(types))
	for _, t := range types {
		set[domain.EventType(strings.ToUpper(strings.TrimSpace(t)))] = struct{}{}
	}
	return func(t domain.EventType) bool {
		_, ok := set[t]
		return ok
	}
}

// originFor maps ws(s)://host/... to http(s)://host.
func originFor(wsURL string) string {
	u := strings.Replace(wsURL, "ws", "http", 1)
	if i := strings.Index(u, "://"); i >= 0 {
		if j := strings.Index(u[i+3:], "/"); j >= 0 {
			return u[:i+3+j]
		}
	}
	return u
}
