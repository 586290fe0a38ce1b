// Package reactive provides observable state cells. UI layers subscribe to a
// State and are notified with the new value after each Set or Update.
package reactive

import (
	"sync"
	"sync/atomic"
)

// debugLog is set by platform-specific code
var debugLog func(args ...interface{})

// SetDebugLog sets the debug logging function
func SetDebugLog(fn func(args ...interface{})) {
	debugLog = fn
}

// Signal is the interface for reactive values
type Signal[T any] interface {
	Get() T
	Set(T)
	Subscribe(fn func(T)) (unsubscribe func())
}

// State represents a reactive state value
type State[T any] struct {
	value T
	mu    sync.RWMutex

	subs   map[uint64]func(T)
	order  []uint64
	subsMu sync.RWMutex
	nextID atomic.Uint64
}

// NewState creates a new reactive state
func NewState[T any](initial T) *State[T] {
	return &State[T]{
		value: initial,
		subs:  make(map[uint64]func(T)),
	}
}

// Get returns the current value
func (s *State[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set replaces the value and notifies subscribers
func (s *State[T]) Set(value T) {
	s.mu.Lock()
	s.value = value
	s.mu.Unlock()

	s.notify(value)
}

// Update atomically reads, modifies, and writes the value
func (s *State[T]) Update(fn func(T) T) T {
	s.mu.Lock()
	newValue := fn(s.value)
	s.value = newValue
	s.mu.Unlock()

	s.notify(newValue)
	return newValue
}

// Subscribe registers fn to be called with every new value. Subscribers are
// called in registration order, outside of any lock.
func (s *State[T]) Subscribe(fn func(T)) func() {
	id := s.nextID.Add(1)

	s.subsMu.Lock()
	s.subs[id] = fn
	s.order = append(s.order, id)
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		if _, ok := s.subs[id]; !ok {
			return
		}
		delete(s.subs, id)
		for i, v := range s.order {
			if v == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
}

// Subscribers returns the number of active subscribers
func (s *State[T]) Subscribers() int {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	return len(s.subs)
}

func (s *State[T]) notify(value T) {
	if batch := batchContext.Load(); batch != nil && batch.active.Load() {
		batch.add(s, func() { s.deliver(s.Get()) })
		return
	}
	s.deliver(value)
}

func (s *State[T]) deliver(value T) {
	s.subsMu.RLock()
	fns := make([]func(T), 0, len(s.order))
	for _, id := range s.order {
		fns = append(fns, s.subs[id])
	}
	s.subsMu.RUnlock()

	if debugLog != nil {
		debugLog("[State] Notifying", len(fns), "subscribers")
	}
	for _, fn := range fns {
		fn(value)
	}
}

// Computed represents a memoized value derived from a source State
type Computed[S, T any] struct {
	compute func(S) T
	source  *State[S]
	value   T
	valid   bool
	mu      sync.Mutex
	stop    func()
}

// NewComputed creates a value derived from source. It is recomputed lazily
// after the source changes.
func NewComputed[S, T any](source *State[S], compute func(S) T) *Computed[S, T] {
	c := &Computed[S, T]{compute: compute, source: source}
	c.stop = source.Subscribe(func(S) { c.Invalidate() })
	return c
}

// Get returns the computed value, recalculating if necessary
func (c *Computed[S, T]) Get() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid {
		c.value = c.compute(c.source.Get())
		c.valid = true
	}
	return c.value
}

// Invalidate marks the computed value as needing recalculation
func (c *Computed[S, T]) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.mu.Unlock()
}

// Close detaches the computed value from its source
func (c *Computed[S, T]) Close() {
	if c.stop != nil {
		c.stop()
	}
}

// batchContext holds the current batch state
var batchContext atomic.Pointer[Batch]

// Batch defers notifications until the batch completes. Each state notifies
// once with its final value.
type Batch struct {
	mu      sync.Mutex
	pending map[interface{}]func()
	order   []interface{}
	active  atomic.Bool
}

func (b *Batch) add(key interface{}, fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.pending[key]; !ok {
		b.order = append(b.order, key)
	}
	b.pending[key] = fn
}

// Commit delivers all deferred notifications
func (b *Batch) Commit() {
	b.active.Store(false)
	b.mu.Lock()
	order, pending := b.order, b.pending
	b.order, b.pending = nil, nil
	b.mu.Unlock()
	for _, key := range order {
		pending[key]()
	}
}

// RunBatch executes fn with notifications deferred until it returns
func RunBatch(fn func()) {
	batch := &Batch{pending: make(map[interface{}]func())}
	batch.active.Store(true)
	oldBatch := batchContext.Swap(batch)

	defer func() {
		batchContext.Store(oldBatch)
		batch.Commit()
	}()

	fn()
}
