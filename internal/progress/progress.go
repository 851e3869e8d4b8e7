// Package progress maps stage-local progress onto the run-wide 0..100 scale.
package progress

import (
	"math"

	"reelscope/internal/stage"
)

// Complete is the value reported once a run reaches its terminal state.
const Complete = 100

// Range is the reserved slice of the global scale for one stage. The gaps
// between ranges hold the stage transition messages.
type Range struct {
	Start int
	End   int
}

var ranges = map[stage.ID]Range{
	stage.Download:      {Start: 5, End: 35},
	stage.Transcribe:    {Start: 38, End: 70},
	stage.FetchComments: {Start: 72, End: 88},
	stage.Analyse:       {Start: 90, End: 98},
}

// For returns the range reserved for id. Unknown stages get an empty range at
// the end of the scale so they can never move the value backwards.
func For(id stage.ID) Range {
	if r, ok := ranges[id]; ok {
		return r
	}
	return Range{Start: Complete, End: Complete}
}

// Map converts a local fraction into the range. Values outside [0,1] are
// clamped and NaN counts as zero; the result is truncated toward Start.
func (r Range) Map(local float64) int {
	if math.IsNaN(local) || local < 0 {
		local = 0
	}
	if local > 1 {
		local = 1
	}
	return r.Start + int(local*float64(r.End-r.Start))
}

// Map is For(id).Map(local).
func Map(id stage.ID, local float64) int {
	return For(id).Map(local)
}

// Clamp keeps a run's displayed progress from regressing.
func Clamp(prev, next int) int {
	if next < prev {
		return prev
	}
	if next > Complete {
		return Complete
	}
	return next
}
