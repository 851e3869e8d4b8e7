// Package notifications delivers run events to ntfy.
//
// NewService returns a no-op notifier when no topic is configured. Events
// are published through a single Publish method with a loosely typed Payload
// so the pipeline does not depend on message formatting. Per-event toggles in
// [notifications] suppress completions or failures.
package notifications
