package daemon

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"reelscope/internal/events"
	"reelscope/internal/logging"
)

const keepAliveInterval = 15 * time.Second

// streamSSE writes every frame after cursor as a server-sent event until the
// terminal frame or until the client goes away. Leaving early only stops
// delivery; the run keeps going.
func (s *apiServer) streamSSE(w http.ResponseWriter, r *http.Request, feed *events.Feed, cursor uint64) {
	rc := http.NewResponseController(w)
	// Streams outlive the server write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		return
	}

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	frames := feed.Subscribe(r.Context(), cursor)
	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				return
			}
			if err := writeEvent(w, frame); err != nil {
				s.log().Debug("sse write failed", logging.String("run_id", feed.RunID()), logging.Error(err))
				return
			}
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, frame events.Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", frame.Seq, frame.Type, data)
	return err
}

// resumeCursor reads the reconnect position from Last-Event-ID or ?after=.
func resumeCursor(r *http.Request) uint64 {
	raw := strings.TrimSpace(r.Header.Get("Last-Event-ID"))
	if raw == "" {
		raw = strings.TrimSpace(r.URL.Query().Get("after"))
	}
	cursor, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return cursor
}
