package events

import (
	"encoding/json"
	"time"

	"reelscope/internal/media"
	"reelscope/internal/stage"
)

// Type classifies a frame.
type Type string

const (
	TypeProgress Type = "progress"
	TypeResult   Type = "result"
	TypeError    Type = "error"
)

// Frame is one message on a run feed.
type Frame struct {
	Seq       uint64
	Timestamp time.Time
	RunID     string
	Type      Type
	Step      stage.Step
	Progress  int
	Message   string
	Result    *media.AggregateResult
	Error     string
}

// Terminal reports whether f ends its feed.
func (f Frame) Terminal() bool {
	return f.Type == TypeResult || f.Type == TypeError
}

type progressJSON struct {
	Seq      uint64     `json:"seq"`
	Type     Type       `json:"type"`
	Step     stage.Step `json:"step"`
	Progress int        `json:"progress"`
	Message  string     `json:"message"`
}

type resultJSON struct {
	Seq    uint64                 `json:"seq"`
	Type   Type                   `json:"type"`
	Result *media.AggregateResult `json:"result"`
}

type errorJSON struct {
	Seq   uint64 `json:"seq"`
	Type  Type   `json:"type"`
	Error string `json:"error"`
}

// MarshalJSON emits only the fields that belong to the frame type, so clients
// see {type, step, progress, message}, {type, result} or {type, error}.
func (f Frame) MarshalJSON() ([]byte, error) {
	switch f.Type {
	case TypeResult:
		return json.Marshal(resultJSON{Seq: f.Seq, Type: f.Type, Result: f.Result})
	case TypeError:
		return json.Marshal(errorJSON{Seq: f.Seq, Type: f.Type, Error: f.Error})
	default:
		return json.Marshal(progressJSON{Seq: f.Seq, Type: TypeProgress, Step: f.Step, Progress: f.Progress, Message: f.Message})
	}
}

// UnmarshalJSON accepts any of the three frame shapes.
func (f *Frame) UnmarshalJSON(data []byte) error {
	var raw struct {
		Seq      uint64                 `json:"seq"`
		Type     Type                   `json:"type"`
		Step     stage.Step             `json:"step"`
		Progress int                    `json:"progress"`
		Message  string                 `json:"message"`
		Result   *media.AggregateResult `json:"result"`
		Error    string                 `json:"error"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*f = Frame{
		Seq:      raw.Seq,
		Type:     raw.Type,
		Step:     raw.Step,
		Progress: raw.Progress,
		Message:  raw.Message,
		Result:   raw.Result,
		Error:    raw.Error,
	}
	return nil
}
