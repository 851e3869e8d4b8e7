// Package events carries a run's progress to its consumers. Each run owns a
// Feed: an ordered, sequenced list of progress frames closed by exactly one
// result or error frame. Consumers either read incrementally (streaming) or
// block for the terminal frame (atomic completion read).
package events
