package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = pongWait * 9 / 10
	outboxSize   = 256
	maxReadBytes = 1 << 20
)

// message is the JSON envelope used in both directions.
type message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if len(s.origins) == 0 {
				return true
			}
			return slices.Contains(s.origins, r.Header.Get("Origin"))
		},
	}
}

// handleWS runs one browser session for the lifetime of the connection.
func (s *Server) handleWS(c echo.Context) error {
	conn, err := s.upgrader().Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Warn("upgrade websocket", "error", err)
		return nil
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	outbox := make(chan message, outboxSize)
	emit := func(name string, data any) {
		raw, err := json.Marshal(data)
		if err != nil {
			slog.Error("marshal event", "event", name, "error", err)
			return
		}
		select {
		case outbox <- message{Type: name, Data: raw}:
		case <-ctx.Done():
		}
	}

	var wg sync.WaitGroup
	wg.Go(func() {
		writeLoop(ctx, conn, outbox)
		// Unblock pending emits and the reader if the writer failed first.
		cancel()
		conn.Close()
	})

	session := s.backend.NewSession(emit)
	slog.Info("session connected", "session", session.ID(), "remote", c.RealIP())

	readLoop(conn, func(m message) {
		if err := session.Handle(m.Type, m.Data); err != nil {
			slog.Warn("handle message", "session", session.ID(), "type", m.Type, "error", err)
		}
	})

	session.Close()
	cancel()
	wg.Wait()
	slog.Info("session disconnected", "session", session.ID())
	return nil
}

func readLoop(conn *websocket.Conn, handle func(message)) {
	conn.SetReadLimit(maxReadBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var m message
		if err := conn.ReadJSON(&m); err != nil {
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				slog.Warn("malformed message", "error", err)
				continue
			}
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("read websocket", "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		handle(m)
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, outbox <-chan message) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case m := <-outbox:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(m); err != nil {
				slog.Debug("write websocket", "error", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				slog.Debug("ping websocket", "error", err)
				return
			}
		}
	}
}
