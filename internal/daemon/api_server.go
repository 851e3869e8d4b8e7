package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"reelscope/internal/config"
	"reelscope/internal/downloader"
	"reelscope/internal/history"
	"reelscope/internal/logging"
	"reelscope/internal/media"
	"reelscope/internal/pipeline"
	"reelscope/internal/runs"
	"reelscope/internal/services"
)

const (
	maxRequestBody     = 64 << 10
	defaultHistoryPage = 50
)

type apiServer struct {
	bind      string
	token     string
	ephemeral bool
	videoDir  string
	logger    *slog.Logger
	daemon    *Daemon
	mux       *http.ServeMux

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

// submitResponse is returned by poll-mode submission.
type submitResponse struct {
	ID        string      `json:"id"`
	Status    runs.Status `json:"status"`
	StatusURL string      `json:"status_url"`
	EventsURL string      `json:"events_url"`
}

type runListResponse struct {
	Runs []runs.Run `json:"runs"`
}

type historyResponse struct {
	Entries []history.Entry `json:"entries"`
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:      strings.TrimSpace(cfg.Paths.APIBind),
		token:     strings.TrimSpace(cfg.Paths.APIToken),
		ephemeral: cfg.Pipeline.EphemeralStorage,
		videoDir:  cfg.Paths.DownloadDir,
		logger:    logger,
		daemon:    d,
		mux:       http.NewServeMux(),
	}

	srv.mux.HandleFunc("POST /api/process", srv.handleProcess)
	srv.mux.HandleFunc("POST /api/runs", srv.handleSubmit)
	srv.mux.HandleFunc("GET /api/runs", srv.handleListRuns)
	srv.mux.HandleFunc("GET /api/runs/{id}", srv.handleRun)
	srv.mux.HandleFunc("GET /api/runs/{id}/events", srv.handleRunEvents)
	srv.mux.HandleFunc("GET /api/runs/{id}/ws", srv.handleRunSocket)
	srv.mux.HandleFunc("GET /api/history", srv.handleHistory)
	srv.mux.HandleFunc("GET "+pipeline.VideoRoute+"{name}", srv.handleVideo)
	srv.mux.HandleFunc("GET /api/status", srv.handleStatus)
	return srv
}

func (s *apiServer) handler() http.Handler {
	return withRequestID(authMiddleware(s.token, s.mux))
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		return errors.New("api bind address not configured")
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	s.mu.Lock()
	server, listener := s.server, s.listener
	s.server, s.listener = nil, nil
	s.mu.Unlock()

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}
	if listener != nil {
		_ = listener.Close()
	}
}

func (s *apiServer) address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// handleProcess runs a request and streams its frames on the same response.
func (s *apiServer) handleProcess(w http.ResponseWriter, r *http.Request) {
	run, ok := s.submit(w, r)
	if !ok {
		return
	}
	feed, err := s.daemon.manager.Frames(run.ID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("X-Run-ID", run.ID)
	s.streamSSE(w, r, feed, 0)
}

// handleSubmit starts a run in poll mode.
func (s *apiServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	run, ok := s.submit(w, r)
	if !ok {
		return
	}
	base := "/api/runs/" + run.ID
	w.Header().Set("Location", base)
	s.writeJSON(w, http.StatusAccepted, submitResponse{
		ID:        run.ID,
		Status:    run.Status,
		StatusURL: base,
		EventsURL: base + "/events",
	})
}

func (s *apiServer) submit(w http.ResponseWriter, r *http.Request) (runs.Run, bool) {
	var in media.RequestInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&in); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return runs.Run{}, false
	}
	run, err := s.daemon.manager.Submit(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, err)
		return runs.Run{}, false
	}
	return run, true
}

func (s *apiServer) handleListRuns(w http.ResponseWriter, r *http.Request) {
	list := s.daemon.manager.List()
	if status := strings.TrimSpace(r.URL.Query().Get("status")); status != "" {
		filtered := list[:0]
		for _, run := range list {
			if string(run.Status) == status {
				filtered = append(filtered, run)
			}
		}
		list = filtered
	}
	if list == nil {
		list = []runs.Run{}
	}
	s.writeJSON(w, http.StatusOK, runListResponse{Runs: list})
}

// handleRun returns the poll record, falling back to the archive once a run
// has been pruned from memory.
func (s *apiServer) handleRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	run, err := s.daemon.manager.Status(id)
	if err == nil {
		s.writeJSON(w, http.StatusOK, run)
		return
	}
	if !errors.Is(err, runs.ErrNotFound) {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if s.daemon.history != nil {
		entry, histErr := s.daemon.history.Get(r.Context(), id)
		if histErr == nil {
			s.writeJSON(w, http.StatusOK, entry.Run())
			return
		}
		if !errors.Is(histErr, services.ErrNotFound) {
			s.writeError(w, http.StatusInternalServerError, histErr.Error())
			return
		}
	}
	s.writeError(w, http.StatusNotFound, "run not found")
}

func (s *apiServer) handleRunEvents(w http.ResponseWriter, r *http.Request) {
	feed, err := s.daemon.manager.Frames(r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.streamSSE(w, r, feed, resumeCursor(r))
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.daemon.history == nil {
		s.writeJSON(w, http.StatusOK, historyResponse{Entries: []history.Entry{}})
		return
	}
	limit := defaultHistoryPage
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	entries, err := s.daemon.history.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	s.writeJSON(w, http.StatusOK, historyResponse{Entries: entries})
}

// handleVideo serves kept downloads. Ephemeral mode deletes files at run
// teardown, so the route is disabled there.
func (s *apiServer) handleVideo(w http.ResponseWriter, r *http.Request) {
	if s.ephemeral {
		s.writeError(w, http.StatusNotFound, "video serving disabled in ephemeral mode")
		return
	}
	name := r.PathValue("name")
	if !downloader.IsManaged(name) {
		s.writeError(w, http.StatusNotFound, "video not found")
		return
	}
	path := filepath.Join(s.videoDir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		s.writeError(w, http.StatusNotFound, "video not found")
		return
	}
	http.ServeFile(w, r, path)
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		s.writeError(w, http.StatusBadRequest, services.Details(err).Message)
	case errors.Is(err, runs.ErrNotFound), errors.Is(err, services.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "run not found")
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String("component", "api-server"))
	}
	return logging.NewNop()
}
