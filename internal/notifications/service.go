package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"reelscope/internal/config"
)

const userAgent = "Reelscope-Go/0.1.0"

// Event names a notification-worthy run milestone.
type Event string

const (
	EventRunStarted   Event = "run_started"
	EventRunCompleted Event = "run_completed"
	EventRunFailed    Event = "run_failed"
	EventTest         Event = "test"
)

// Payload carries event fields. Known keys: url, title, platform, comments,
// sentiment, notes, error, duration.
type Payload map[string]any

// Service publishes run events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint:    topic,
		client:      &http.Client{Timeout: timeout},
		runComplete: cfg.Notifications.RunComplete,
		errors:      cfg.Notifications.Errors,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint    string
	client      *http.Client
	runComplete bool
	errors      bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	var msg message
	switch event {
	case EventRunCompleted:
		if !n.runComplete {
			return nil
		}
		msg = completedMessage(payload)
	case EventRunFailed:
		if !n.errors {
			return nil
		}
		msg = failedMessage(payload)
	case EventTest:
		msg = message{
			title:    "Reelscope - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"reelscope", "test"},
			priority: "low",
		}
	default:
		return nil
	}
	return n.send(ctx, msg)
}

func completedMessage(p Payload) message {
	title := p.text("title")
	if title == "" {
		title = p.text("url")
	}
	platform := p.text("platform")
	header := "Reelscope - Analysis Complete"
	if platform != "" {
		header = fmt.Sprintf("Reelscope - %s Analysis Complete", cases.Title(language.English).String(platform))
	}

	var b strings.Builder
	b.WriteString("✅ Analyzed: ")
	b.WriteString(title)
	if comments, ok := p["comments"].(int); ok && comments > 0 {
		fmt.Fprintf(&b, "\n%d comments", comments)
		if sentiment := p.text("sentiment"); sentiment != "" {
			fmt.Fprintf(&b, ", overall %s", sentiment)
		}
	}
	if notes, ok := p["notes"].(int); ok && notes > 0 {
		fmt.Fprintf(&b, "\n⚠️ %d step(s) finished without output", notes)
	}
	if d, ok := p["duration"].(time.Duration); ok && d > 0 {
		fmt.Fprintf(&b, "\nTook %s", d.Round(time.Second))
	}

	tags := []string{"reelscope", "run", "completed"}
	if platform != "" {
		tags = append(tags, strings.ToLower(platform))
	}
	return message{title: header, body: b.String(), tags: tags}
}

func failedMessage(p Payload) message {
	reason := p.text("error")
	if reason == "" {
		reason = "unknown"
	}
	target := p.text("url")
	body := "❌ Analysis failed: " + reason
	if target != "" {
		body = fmt.Sprintf("❌ Analysis failed for %s: %s", target, reason)
	}
	return message{
		title:    "Reelscope - Error",
		body:     body,
		tags:     []string{"reelscope", "error", "alert"},
		priority: "high",
	}
}

func (p Payload) text(key string) string {
	if p == nil {
		return ""
	}
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return ""
	}
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
