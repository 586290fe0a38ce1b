// Package scheduler runs deferred work at animation-frame cadence.
//
// Work is requested under a key. Requests that arrive between two frames are
// coalesced so only the most recent function for each key runs, which bounds
// pointer-move handling to the display rate regardless of input rate.
package scheduler

import (
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultInterval is one frame at 60 Hz
const DefaultInterval = time.Second / 60

// ErrorHandler handles panics raised by a task
type ErrorHandler func(key string, err interface{})

// debugLog is set by platform-specific code
var debugLog func(args ...interface{})

// SetDebugLog sets the debug logging function
func SetDebugLog(fn func(args ...interface{})) {
	debugLog = fn
}

// Scheduler coalesces keyed tasks and runs them once per frame
type Scheduler struct {
	mu      sync.Mutex
	pending map[string]func()
	order   []string

	interval time.Duration
	wake     chan struct{}
	stop     chan struct{}
	running  atomic.Bool
	frames   atomic.Uint64

	onError ErrorHandler
}

// NewScheduler creates a scheduler with the given frame interval. A non-positive
// interval selects DefaultInterval.
func NewScheduler(interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		pending:  make(map[string]func()),
		interval: interval,
		wake:     make(chan struct{}, 1),
	}
}

// SetDefaultErrorHandler sets the handler for panicking tasks
func (s *Scheduler) SetDefaultErrorHandler(handler ErrorHandler) {
	s.mu.Lock()
	s.onError = handler
	s.mu.Unlock()
}

// Interval returns the frame interval
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Request schedules fn for the next frame, replacing any function already
// pending under key
func (s *Scheduler) Request(key string, fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	if _, exists := s.pending[key]; !exists {
		s.order = append(s.order, key)
	}
	s.pending[key] = fn
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
		// a wake-up is already queued
	}
}

// Cancel drops the pending task for key, if any
func (s *Scheduler) Cancel(key string) {
	s.mu.Lock()
	s.take(key)
	s.mu.Unlock()
}

// RunNow runs the task pending under key immediately instead of on the next
// frame. It reports whether a task was pending.
func (s *Scheduler) RunNow(key string) bool {
	s.mu.Lock()
	fn, ok := s.take(key)
	onError := s.onError
	s.mu.Unlock()
	if !ok {
		return false
	}
	s.run(key, fn, onError)
	return true
}

// take removes and returns the task for key. Caller holds s.mu.
func (s *Scheduler) take(key string) (func(), bool) {
	fn, exists := s.pending[key]
	if !exists {
		return nil, false
	}
	delete(s.pending, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return fn, true
}

// Pending returns the number of tasks waiting for the next frame
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Frames returns how many non-empty frames have been flushed
func (s *Scheduler) Frames() uint64 {
	return s.frames.Load()
}

// Flush runs all pending tasks now, in request order, and returns how many
// ran. Hosts with their own frame callback call Flush from it instead of
// using Start.
func (s *Scheduler) Flush() int {
	s.mu.Lock()
	if len(s.pending) == 0 {
		s.mu.Unlock()
		return 0
	}
	order := s.order
	tasks := s.pending
	s.order = nil
	s.pending = make(map[string]func())
	onError := s.onError
	s.mu.Unlock()

	s.frames.Add(1)
	if debugLog != nil {
		debugLog("[Scheduler] Flushing", len(order), "tasks")
	}
	for _, key := range order {
		s.run(key, tasks[key], onError)
	}
	return len(order)
}

func (s *Scheduler) run(key string, fn func(), onError ErrorHandler) {
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("task %s panic: %v\n%s", key, r, debug.Stack())
			if onError != nil {
				onError(key, msg)
			} else if debugLog != nil {
				debugLog("[Scheduler]", msg)
			}
		}
	}()
	fn()
}

// Start begins flushing on a frame ticker
func (s *Scheduler) Start() {
	if s.running.CompareAndSwap(false, true) {
		s.mu.Lock()
		s.stop = make(chan struct{})
		stop := s.stop
		s.mu.Unlock()
		go s.loop(stop)
	}
}

// Stop stops the frame loop. Pending tasks stay queued until the next Flush.
func (s *Scheduler) Stop() {
	if s.running.CompareAndSwap(true, false) {
		s.mu.Lock()
		close(s.stop)
		s.mu.Unlock()
	}
}

// IsRunning returns whether the frame loop is running
func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

// loop sleeps until work is requested, then flushes on the next frame tick
func (s *Scheduler) loop(stop chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-s.wake:
		}
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.Flush()
		}
	}
}
