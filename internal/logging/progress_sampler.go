package logging

import (
	"math"
	"strings"
	"sync"
)

// ProgressSampler decides which collaborator progress reports reach the log.
// A report is logged when its stage differs from the previous one or when the
// fraction enters a higher bucket. Collaborators may report from their own
// goroutines, so the sampler is safe for concurrent use.
type ProgressSampler struct {
	mu         sync.Mutex
	buckets    int
	lastStage  string
	lastBucket int
}

// NewProgressSampler splits [0, 1] into buckets of bucketPercent percent,
// 10 when bucketPercent is not positive.
func NewProgressSampler(bucketPercent float64) *ProgressSampler {
	if bucketPercent <= 0 {
		bucketPercent = 10
	}
	return &ProgressSampler{
		buckets:    max(int(math.Ceil(100/bucketPercent)), 1),
		lastBucket: -1,
	}
}

// ShouldLog reports whether a stage-local fraction is worth logging. NaN means
// the collaborator did not know its progress; only a stage change logs then.
func (s *ProgressSampler) ShouldLog(stage string, fraction float64) bool {
	if s == nil {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	emit := false
	if stage = strings.TrimSpace(stage); stage != "" && stage != s.lastStage {
		s.lastStage = stage
		s.lastBucket = -1
		emit = true
	}
	if math.IsNaN(fraction) {
		return emit
	}
	bucket := int(math.Floor(min(max(fraction, 0), 1) * float64(s.buckets)))
	if bucket > s.lastBucket {
		s.lastBucket = bucket
		emit = true
	}
	return emit
}

// Reset forgets the last stage and bucket.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.lastStage = ""
	s.lastBucket = -1
	s.mu.Unlock()
}
