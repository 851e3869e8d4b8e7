package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrAuthRequired  = errors.New("authentication required")
	ErrTransient     = errors.New("transient failure")
)

var markers = []error{
	ErrValidation,
	ErrConfiguration,
	ErrNotFound,
	ErrTimeout,
	ErrAuthRequired,
	ErrExternalTool,
	ErrTransient,
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ErrorDetails is the classification recovered from a wrapped error.
type ErrorDetails struct {
	Kind    string
	Message string
}

// Details reports the marker label and a user-facing message for err. The
// message drops the leading marker text so stage frames read naturally.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	details := ErrorDetails{Kind: "unknown", Message: strings.TrimSpace(err.Error())}
	for _, marker := range markers {
		if errors.Is(err, marker) {
			details.Kind = marker.Error()
			details.Message = strings.TrimSpace(strings.TrimPrefix(details.Message, marker.Error()+":"))
			break
		}
	}
	if details.Message == "" {
		details.Message = details.Kind
	}
	return details
}

// FromContextErr maps an expired or cancelled context into the timeout marker so
// collaborators surface their own deadline as the stage failure.
func FromContextErr(ctx context.Context, stage, operation string, err error) error {
	if ctx != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return Wrap(ErrTimeout, stage, operation, "deadline exceeded", err)
	}
	return Wrap(ErrExternalTool, stage, operation, "", err)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
