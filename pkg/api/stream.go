package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Weynie/van-construction-web-sub000/pkg/events"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
)

// eventsHandler streams engine events as JSON text frames. The first frame
// is a WORKSPACE_LOADED snapshot of the current tree. An optional
// ?types=A,B query restricts the stream to those event types.
func (s *Server) eventsHandler(w http.ResponseWriter, r *http.Request) {
	filter := typeFilter(r.URL.Query().Get("types"))

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already replied
		s.logger.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	broker := s.engine.Events()
	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go discardReads(conn, cancel)

	s.logger.Debug().Str("remote", r.RemoteAddr).Msg("Event stream opened")

	snapshot := &events.Event{
		Type:      events.EventWorkspaceLoaded,
		Timestamp: time.Now(),
		Workspace: s.engine.Workspace(),
	}
	if err := writeEvent(conn, snapshot); err != nil {
		return
	}

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-sub:
			if !ok {
				return
			}
			if len(filter) > 0 && !filter[event.Type] {
				continue
			}
			if err := writeEvent(conn, event); err != nil {
				s.logger.Debug().Err(err).Msg("Event stream closed")
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeEvent(conn *websocket.Conn, event *events.Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(event)
}

// discardReads consumes client frames so control messages are processed,
// and cancels the stream once the peer goes away
func discardReads(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func typeFilter(raw string) map[events.EventType]bool {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	filter := make(map[events.EventType]bool)
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			filter[events.EventType(strings.ToUpper(name))] = true
		}
	}
	return filter
}
