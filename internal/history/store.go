package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"reelscope/internal/config"
	"reelscope/internal/media"
	"reelscope/internal/platform"
	"reelscope/internal/runs"
	"reelscope/internal/services"
	"reelscope/internal/stage"
)

// Store persists finished runs.
type Store struct {
	db   *sql.DB
	path string
}

// Entry is an archived run. Result is populated by Get only; List returns
// summaries.
type Entry struct {
	ID                 string                 `json:"id"`
	URL                string                 `json:"url"`
	Platform           platform.Platform      `json:"platform"`
	Status             runs.Status            `json:"status"`
	Step               stage.Step             `json:"step"`
	Progress           int                    `json:"progress"`
	Message            string                 `json:"message,omitempty"`
	Error              string                 `json:"error,omitempty"`
	Title              string                 `json:"title,omitempty"`
	Uploader           string                 `json:"uploader,omitempty"`
	DurationSeconds    float64                `json:"duration_seconds,omitempty"`
	TranscriptLanguage string                 `json:"transcript_language,omitempty"`
	CommentCount       int                    `json:"comment_count"`
	OverallSentiment   string                 `json:"overall_sentiment,omitempty"`
	Notes              []string               `json:"notes,omitempty"`
	Result             *media.AggregateResult `json:"result,omitempty"`
	CreatedAt          time.Time              `json:"created_at"`
	StartedAt          time.Time              `json:"started_at,omitzero"`
	CompletedAt        time.Time              `json:"completed_at"`
}

// Run converts the entry back into a terminal poll record.
func (e Entry) Run() runs.Run {
	return runs.Run{
		ID:          e.ID,
		URL:         e.URL,
		Platform:    e.Platform,
		Status:      e.Status,
		Step:        e.Step,
		Progress:    e.Progress,
		Message:     e.Message,
		Result:      e.Result,
		Error:       e.Error,
		Notes:       e.Notes,
		CreatedAt:   e.CreatedAt,
		StartedAt:   e.StartedAt,
		CompletedAt: e.CompletedAt,
	}
}

// Open initializes or connects to the archive at cfg.HistoryPath().
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	dbPath := cfg.HistoryPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record archives a terminal run. Recording the same id twice replaces the
// earlier row.
func (s *Store) Record(ctx context.Context, run runs.Run) error {
	if !run.Status.Terminal() {
		return services.Wrap(services.ErrValidation, "history", "record", fmt.Sprintf("run %s is %s, not terminal", run.ID, run.Status), nil)
	}
	summary := summarize(run)

	var resultJSON sql.NullString
	if run.Result != nil {
		data, err := json.Marshal(withoutVideoData(run.Result))
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		resultJSON = sql.NullString{String: string(data), Valid: true}
	}
	var notesJSON sql.NullString
	if len(run.Notes) > 0 {
		data, err := json.Marshal(run.Notes)
		if err != nil {
			return fmt.Errorf("marshal notes: %w", err)
		}
		notesJSON = sql.NullString{String: string(data), Valid: true}
	}
	completed := run.CompletedAt
	if completed.IsZero() {
		completed = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (
            id, url, platform, status, step, progress, message, error_message,
            title, uploader, duration_seconds, transcript_language, comment_count,
            overall_sentiment, notes_json, result_json, created_at, started_at, completed_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.URL,
		string(run.Platform),
		string(run.Status),
		string(run.Step),
		run.Progress,
		nullableString(run.Message),
		nullableString(run.Error),
		nullableString(summary.Title),
		nullableString(summary.Uploader),
		summary.DurationSeconds,
		nullableString(summary.TranscriptLanguage),
		summary.CommentCount,
		nullableString(summary.OverallSentiment),
		notesJSON,
		resultJSON,
		formatTime(run.CreatedAt),
		nullableTime(run.StartedAt),
		formatTime(completed),
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}
	return nil
}

// Get returns one archived run including its result.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+entryColumns+", result_json FROM runs WHERE id = ?", id)
	var resultJSON sql.NullString
	entry, err := scanEntry(row, &resultJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "history", "get", fmt.Sprintf("run %s not archived", id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	if resultJSON.Valid && resultJSON.String != "" {
		var result media.AggregateResult
		if err := json.Unmarshal([]byte(resultJSON.String), &result); err != nil {
			return nil, fmt.Errorf("decode result for %s: %w", id, err)
		}
		entry.Result = &result
	}
	return entry, nil
}

// List returns archived runs newest first. limit <= 0 means no limit.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := "SELECT " + entryColumns + " FROM runs ORDER BY completed_at DESC, id"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		entry, err := scanEntry(rows, nil)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, *entry)
	}
	return out, rows.Err()
}

// Prune deletes runs completed before cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE completed_at < ?", formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}

// Stats counts archived runs by status.
func (s *Store) Stats(ctx context.Context) (map[runs.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(1) FROM runs GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	defer rows.Close()
	out := make(map[runs.Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		out[runs.Status(status)] = count
	}
	return out, rows.Err()
}

// withoutVideoData drops the inlined video so archive rows stay small. The
// caller's result is not modified.
func withoutVideoData(result *media.AggregateResult) *media.AggregateResult {
	if result.Video == nil || result.Video.VideoData == "" {
		return result
	}
	out := *result
	video := *result.Video
	video.VideoData = ""
	out.Video = &video
	return &out
}
