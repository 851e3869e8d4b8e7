package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"reelscope/internal/media"
	"reelscope/internal/stage"
)

// ErrClosed is returned when publishing to a feed that already holds its
// terminal frame.
var ErrClosed = errors.New("feed already terminated")

const defaultCapacity = 1024

// Feed buffers one run's frames and wakes waiters on every publish. Progress
// frames beyond capacity are dropped oldest first; the terminal frame is
// always retained.
type Feed struct {
	mu       sync.Mutex
	cond     *sync.Cond
	runID    string
	capacity int
	frames   []Frame
	nextSeq  uint64
	terminal *Frame
	done     chan struct{}
}

// NewFeed returns an empty feed for runID.
func NewFeed(runID string, capacity int) *Feed {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	f := &Feed{runID: runID, capacity: capacity, done: make(chan struct{})}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// RunID returns the owning run identifier.
func (f *Feed) RunID() string { return f.runID }

// Progress publishes a progress frame.
func (f *Feed) Progress(step stage.Step, progress int, message string) (Frame, error) {
	return f.Publish(Frame{Type: TypeProgress, Step: step, Progress: progress, Message: message})
}

// Complete publishes the terminal result frame.
func (f *Feed) Complete(result *media.AggregateResult) (Frame, error) {
	return f.Publish(Frame{Type: TypeResult, Result: result})
}

// Fail publishes the terminal error frame.
func (f *Feed) Fail(message string) (Frame, error) {
	return f.Publish(Frame{Type: TypeError, Error: message})
}

// Publish assigns the next sequence number and appends frame.
func (f *Feed) Publish(frame Frame) (Frame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.terminal != nil {
		return Frame{}, ErrClosed
	}
	f.nextSeq++
	frame.Seq = f.nextSeq
	frame.RunID = f.runID
	if frame.Timestamp.IsZero() {
		frame.Timestamp = time.Now().UTC()
	}
	if len(f.frames) == f.capacity {
		copy(f.frames, f.frames[1:])
		f.frames = f.frames[:f.capacity-1]
	}
	f.frames = append(f.frames, frame)
	if frame.Terminal() {
		term := frame
		f.terminal = &term
		close(f.done)
	}
	f.cond.Broadcast()
	return frame, nil
}

// Done is closed once the terminal frame is published.
func (f *Feed) Done() <-chan struct{} { return f.done }

// Terminal returns the terminal frame if it has been published.
func (f *Feed) Terminal() (Frame, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.terminal == nil {
		return Frame{}, false
	}
	return *f.terminal, true
}

// Since returns buffered frames with sequence greater than after, plus
// whether the feed has terminated.
func (f *Feed) Since(after uint64) ([]Frame, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked(after), f.terminal != nil
}

// Fetch is Since that blocks until at least one new frame exists, the feed
// terminates, or ctx ends.
func (f *Feed) Fetch(ctx context.Context, after uint64) ([]Frame, bool, error) {
	stop := make(chan struct{})
	defer close(stop)
	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				f.mu.Lock()
				f.cond.Broadcast()
				f.mu.Unlock()
			case <-stop:
			}
		}()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for {
		frames := f.snapshotLocked(after)
		if len(frames) > 0 || f.terminal != nil {
			return frames, f.terminal != nil, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		f.cond.Wait()
	}
}

// Subscribe streams every frame after the given sequence onto the returned
// channel and closes it after the terminal frame or when ctx ends. Stopping
// early never affects the run publishing to the feed.
func (f *Feed) Subscribe(ctx context.Context, after uint64) <-chan Frame {
	out := make(chan Frame, 16)
	go func() {
		defer close(out)
		cursor := after
		for {
			frames, done, err := f.Fetch(ctx, cursor)
			if err != nil {
				return
			}
			for _, frame := range frames {
				select {
				case out <- frame:
				case <-ctx.Done():
					return
				}
				cursor = frame.Seq
			}
			if done {
				return
			}
		}
	}()
	return out
}

// Await blocks until the feed terminates and returns the terminal frame.
func (f *Feed) Await(ctx context.Context) (Frame, error) {
	select {
	case <-f.done:
		frame, _ := f.Terminal()
		return frame, nil
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

func (f *Feed) snapshotLocked(after uint64) []Frame {
	var out []Frame
	for _, frame := range f.frames {
		if frame.Seq > after {
			out = append(out, frame)
		}
	}
	return out
}
