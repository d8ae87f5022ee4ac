package api

import (
	"io"
	"net/http"
	"nexus/internal/domain"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/websocket"
)

// handleEvents streams every hub event to the client as one JSON frame.
// Frames sent by the client are ignored.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	ws := websocket.Server{Handler: s.streamEvents}
	ws.ServeHTTP(w, r)
}

func (s *Server) streamEvents(conn *websocket.Conn) {
	defer func() {
		_ = conn.Close()
	}()

	// Server timeouts must not cut the stream.
	_ = conn.SetDeadline(time.Time{})

	ctx := conn.Request().Context()
	connID := uuid.NewString()
	logger := log.Ctx(ctx).With().Str("conn_id", connID).Logger()

	sub := s.hub.Subscribe()
	defer sub.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		_, _ = io.Copy(io.Discard, conn)
	}()

	logger.Info().Msg("A user connected")
	if err := s.events.Publish(ctx, domain.NewEvent(domain.EventUserConnected, map[string]any{"connId": connID}, s.now().UTC())); err != nil {
		logger.Error().Err(err).Msg("failed to publish connect event")
	}

	for {
		select {
		case <-closed:
			logger.Info().Uint64("dropped", sub.Dropped()).Msg("User disconnected")
			return
		case e, ok := <-sub.C:
			if !ok {
				return
			}
			if err := websocket.JSON.Send(conn, e); err != nil {
				logger.Debug().Err(err).Msg("event stream write failed")
				return
			}
		}
	}
}
