package runs

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned for unknown run identifiers.
	ErrNotFound = errors.New("run not found")
	// ErrTerminal is returned when updating a run that already finished.
	ErrTerminal = errors.New("run already terminal")
	// ErrExists is returned when registering a duplicate identifier.
	ErrExists = errors.New("run already registered")
)

// Registry maps run ids to records. Every access goes through one mutex and
// records never leave it by reference, so a reader can never observe a
// half-applied update.
type Registry struct {
	mu   sync.RWMutex
	runs map[string]*Run
	now  func() time.Time
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{runs: make(map[string]*Run), now: time.Now}
}

// Insert registers a new run in the queued state.
func (r *Registry) Insert(run Run) (Run, error) {
	if run.ID == "" {
		return Run{}, errors.New("run id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[run.ID]; ok {
		return Run{}, fmt.Errorf("%w: %s", ErrExists, run.ID)
	}
	if run.Status == "" {
		run.Status = StatusQueued
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = r.now().UTC()
	}
	stored := run.clone()
	r.runs[run.ID] = &stored
	return stored.clone(), nil
}

// Get returns a copy of the run.
func (r *Registry) Get(id string) (Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return run.clone(), nil
}

// Update applies fn to a working copy and stores it as a whole-record
// replacement. fn runs under the registry lock and must not block. Updates to
// terminal runs are refused.
func (r *Registry) Update(id string, fn func(*Run)) (Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.runs[id]
	if !ok {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if current.Status.Terminal() {
		return current.clone(), fmt.Errorf("%w: %s", ErrTerminal, id)
	}
	next := current.clone()
	fn(&next)
	next.ID = current.ID
	if next.Status.Terminal() && next.CompletedAt.IsZero() {
		next.CompletedAt = r.now().UTC()
	}
	r.runs[id] = &next
	return next.clone(), nil
}

// List returns every run, newest first.
func (r *Registry) List() []Run {
	r.mu.RLock()
	out := make([]Run, 0, len(r.runs))
	for _, run := range r.runs {
		out = append(out, run.clone())
	}
	r.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Counts reports how many runs are in each status.
func (r *Registry) Counts() map[Status]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[Status]int, 4)
	for _, run := range r.runs {
		counts[run.Status]++
	}
	return counts
}

// Prune drops terminal runs that completed before cutoff and returns their ids.
func (r *Registry) Prune(cutoff time.Time) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed []string
	for id, run := range r.runs {
		if run.Status.Terminal() && !run.CompletedAt.IsZero() && run.CompletedAt.Before(cutoff) {
			delete(r.runs, id)
			removed = append(removed, id)
		}
	}
	sort.Strings(removed)
	return removed
}

// Len returns the number of tracked runs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.runs)
}
