package history

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"reelscope/internal/platform"
	"reelscope/internal/runs"
	"reelscope/internal/stage"
)

const entryColumns = "id, url, platform, status, step, progress, message, error_message, title, uploader, duration_seconds, transcript_language, comment_count, overall_sentiment, notes_json, created_at, started_at, completed_at"

type summaryColumns struct {
	Title              string
	Uploader           string
	DurationSeconds    float64
	TranscriptLanguage string
	CommentCount       int
	OverallSentiment   string
}

func summarize(run runs.Run) summaryColumns {
	var out summaryColumns
	res := run.Result
	if res == nil {
		return out
	}
	if res.Video != nil {
		out.Title = res.Video.Title
		out.Uploader = res.Video.Uploader
		out.DurationSeconds = res.Video.DurationSeconds
	}
	if res.Transcription != nil {
		out.TranscriptLanguage = res.Transcription.Language
	}
	if res.Comments != nil {
		out.CommentCount = res.Comments.Count
	}
	if res.Sentiment != nil {
		out.OverallSentiment = string(res.Sentiment.Overall)
	}
	return out
}

func scanEntry(scanner interface{ Scan(dest ...any) error }, resultJSON *sql.NullString) (*Entry, error) {
	var (
		id, url, platformStr, status string
		step                         string
		progress                     int
		message                      sql.NullString
		errorMessage, title          sql.NullString
		uploader, language           sql.NullString
		sentiment, notes             sql.NullString
		duration                     sql.NullFloat64
		comments                     int
		createdRaw, completedRaw     string
		startedRaw                   sql.NullString
	)
	dest := []any{
		&id, &url, &platformStr, &status, &step, &progress, &message, &errorMessage, &title, &uploader,
		&duration, &language, &comments, &sentiment, &notes,
		&createdRaw, &startedRaw, &completedRaw,
	}
	if resultJSON != nil {
		dest = append(dest, resultJSON)
	}
	if err := scanner.Scan(dest...); err != nil {
		return nil, err
	}

	entry := &Entry{
		ID:                 id,
		URL:                url,
		Platform:           platform.Platform(platformStr),
		Status:             runs.Status(status),
		Step:               stage.Step(step),
		Progress:           progress,
		Message:            message.String,
		Error:              errorMessage.String,
		Title:              title.String,
		Uploader:           uploader.String,
		DurationSeconds:    duration.Float64,
		TranscriptLanguage: language.String,
		CommentCount:       comments,
		OverallSentiment:   sentiment.String,
		CreatedAt:          parseTime(createdRaw),
		StartedAt:          parseTime(startedRaw.String),
		CompletedAt:        parseTime(completedRaw),
	}
	if notes.Valid && notes.String != "" {
		_ = json.Unmarshal([]byte(notes.String), &entry.Notes)
	}
	return entry, nil
}

func nullableString(value string) sql.NullString {
	if strings.TrimSpace(value) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func nullableTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(t), Valid: true}
}

// Timestamps are stored as fixed-width UTC RFC3339 so string order matches
// time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	if t, err := time.Parse(timeLayout, raw); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t
	}
	return time.Time{}
}
