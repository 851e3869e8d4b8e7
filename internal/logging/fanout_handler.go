package logging

import (
	"context"
	"log/slog"
	"sync"
)

type teeHandler []slog.Handler

// TeeHandler creates a handler that duplicates records to every non-nil handler.
func TeeHandler(handlers ...slog.Handler) slog.Handler {
	var out teeHandler
	for _, h := range handlers {
		if h != nil {
			out = append(out, h)
		}
	}
	switch len(out) {
	case 0:
		return NoopHandler{}
	case 1:
		return out[0]
	default:
		return out
	}
}

// TeeLogger duplicates log output from base into the provided handlers, e.g. a
// capture handler in tests or a debug mirror on the CLI.
func TeeLogger(base *slog.Logger, handlers ...slog.Handler) *slog.Logger {
	if base != nil {
		handlers = append([]slog.Handler{base.Handler()}, handlers...)
	}
	return slog.New(TeeHandler(handlers...))
}

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, h := range t {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make(teeHandler, len(t))
	for i, h := range t {
		next[i] = h.WithAttrs(attrs)
	}
	return next
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	next := make(teeHandler, len(t))
	for i, h := range t {
		next[i] = h.WithGroup(name)
	}
	return next
}

// CapturedRecord is a flattened log record kept by CaptureHandler.
type CapturedRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]string
}

// CaptureHandler keeps every record in memory. Tests use it to assert on
// event_type fields without parsing console output.
type CaptureHandler struct {
	mu      *sync.Mutex
	records *[]CapturedRecord
	attrs   []slog.Attr
}

// NewCaptureHandler returns an empty capture handler accepting all levels.
func NewCaptureHandler() *CaptureHandler {
	return &CaptureHandler{mu: &sync.Mutex{}, records: &[]CapturedRecord{}}
}

func (c *CaptureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (c *CaptureHandler) Handle(_ context.Context, record slog.Record) error {
	var kvs []kv
	flattenAttrs(&kvs, nil, c.attrs)
	record.Attrs(func(attr slog.Attr) bool {
		flattenAttr(&kvs, nil, attr)
		return true
	})
	attrs := make(map[string]string, len(kvs))
	for _, item := range kvs {
		attrs[item.key] = attrString(item.value)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	*c.records = append(*c.records, CapturedRecord{Level: record.Level, Message: record.Message, Attrs: attrs})
	return nil
}

func (c *CaptureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CaptureHandler{mu: c.mu, records: c.records, attrs: append(append([]slog.Attr(nil), c.attrs...), attrs...)}
}

func (c *CaptureHandler) WithGroup(string) slog.Handler { return c }

// Records returns a snapshot of the captured records.
func (c *CaptureHandler) Records() []CapturedRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]CapturedRecord(nil), (*c.records)...)
}

// EventTypes lists the event_type values seen, in order.
func (c *CaptureHandler) EventTypes() []string {
	var out []string
	for _, rec := range c.Records() {
		if v, ok := rec.Attrs[FieldEventType]; ok {
			out = append(out, v)
		}
	}
	return out
}
