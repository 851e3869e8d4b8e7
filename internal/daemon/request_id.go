package daemon

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"reelscope/internal/services"
)

const (
	requestIDHeader   = "X-Request-ID"
	maxRequestIDBytes = 64
)

// withRequestID tags each request with a correlation id. A caller-supplied
// X-Request-ID is reused when it is short enough; otherwise a new one is
// generated. The id is echoed on the response and carried into run logs.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" || len(id) > maxRequestIDBytes {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	})
}
