package stage

import (
	"strings"

	"reelscope/internal/services"
)

// Kind tags a stage outcome.
type Kind int

const (
	Success Kind = iota
	PartialFailure
	FatalFailure
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case PartialFailure:
		return "partial_failure"
	case FatalFailure:
		return "fatal_failure"
	default:
		return "unknown"
	}
}

// Outcome is the typed result of one stage. Value is meaningful only for
// Success; Message and Err only for the failure kinds.
type Outcome[T any] struct {
	Stage   ID
	Kind    Kind
	Value   T
	Message string
	Err     error
}

// Succeeded wraps a stage value.
func Succeeded[T any](id ID, value T) Outcome[T] {
	return Outcome[T]{Stage: id, Kind: Success, Value: value}
}

// Failed classifies err according to the stage failure policy.
func Failed[T any](id ID, err error) Outcome[T] {
	kind := PartialFailure
	if id.Fatal() {
		kind = FatalFailure
	}
	return Outcome[T]{Stage: id, Kind: kind, Message: FailureMessage(err), Err: err}
}

// OK reports whether the stage produced a value.
func (o Outcome[T]) OK() bool { return o.Kind == Success }

// Fatal reports whether the run must stop.
func (o Outcome[T]) Fatal() bool { return o.Kind == FatalFailure }

// FailureMessage renders err for status frames without the marker prefix.
func FailureMessage(err error) string {
	if err == nil {
		return "stage failed"
	}
	msg := strings.TrimSpace(services.Details(err).Message)
	if msg == "" {
		return "stage failed"
	}
	return msg
}
