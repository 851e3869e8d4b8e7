package daemon

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"reelscope/internal/logging"
)

const (
	socketWriteWait  = 10 * time.Second
	socketPongWait   = 60 * time.Second
	socketPingPeriod = socketPongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(*http.Request) bool {
		return true
	},
}

// handleRunSocket delivers a run's frames as JSON text messages and closes
// the socket normally after the terminal frame.
func (s *apiServer) handleRunSocket(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	feed, err := s.daemon.manager.Frames(id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log().Warn("websocket upgrade failed", logging.String("run_id", id), logging.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The read side only watches for pongs and the client closing.
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(socketPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(socketPongWait))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(socketPingPeriod)
	defer ping.Stop()

	frames := feed.Subscribe(ctx, resumeCursor(r))
	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				if ctx.Err() == nil {
					_ = conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run finished"),
						time.Now().Add(socketWriteWait))
				}
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
			if err := conn.WriteJSON(frame); err != nil {
				s.log().Debug("websocket write failed", logging.String("run_id", id), logging.Error(err))
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(socketWriteWait)); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
