// Package history keeps a bounded, linear undo/redo list of element
// collection snapshots.
package history

import (
	"reflect"
	"sync"
	"time"

	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/canvas"
)

// DefaultCapacity is used when New is given a non-positive capacity
const DefaultCapacity = 50

// Entry is an immutable snapshot of the element collection
type Entry struct {
	Elements canvas.Elements
	Action   string
	At       time.Time
}

// History is a cursor over a bounded list of snapshots. It is safe for
// concurrent use; the restore callback runs outside the internal lock.
type History struct {
	mu       sync.Mutex
	entries  []Entry
	cursor   int
	capacity int
	restore  func(canvas.Elements)
	now      func() time.Time
}

// New creates a history that calls restore with the snapshot reached by
// every Undo or Redo
func New(capacity int, restore func(canvas.Elements)) *History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &History{
		cursor:   -1,
		capacity: capacity,
		restore:  restore,
		now:      time.Now,
	}
}

// Push records a snapshot of els. Redo entries past the cursor are dropped
// and the oldest entries are evicted beyond capacity. A snapshot equal to the
// current entry is not recorded and Push returns false.
func (h *History) Push(els canvas.Elements, action string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cursor >= 0 && reflect.DeepEqual(h.entries[h.cursor].Elements, els) {
		return false
	}

	h.entries = append(h.entries[:h.cursor+1], Entry{
		Elements: els.Clone(),
		Action:   action,
		At:       h.now(),
	})
	if over := len(h.entries) - h.capacity; over > 0 {
		h.entries = append([]Entry(nil), h.entries[over:]...)
	}
	h.cursor = len(h.entries) - 1
	return true
}

// Undo moves the cursor back one entry and restores it. It returns false at
// the oldest entry.
func (h *History) Undo() bool {
	h.mu.Lock()
	if h.cursor <= 0 {
		h.mu.Unlock()
		return false
	}
	h.cursor--
	snapshot := h.entries[h.cursor].Elements.Clone()
	h.mu.Unlock()

	if h.restore != nil {
		h.restore(snapshot)
	}
	return true
}

// Redo moves the cursor forward one entry and restores it. It returns false
// at the newest entry.
func (h *History) Redo() bool {
	h.mu.Lock()
	if h.cursor < 0 || h.cursor >= len(h.entries)-1 {
		h.mu.Unlock()
		return false
	}
	h.cursor++
	snapshot := h.entries[h.cursor].Elements.Clone()
	h.mu.Unlock()

	if h.restore != nil {
		h.restore(snapshot)
	}
	return true
}

// CanUndo reports whether an older entry exists
func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor > 0
}

// CanRedo reports whether a newer entry exists
func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor >= 0 && h.cursor < len(h.entries)-1
}

// Len returns the number of retained entries
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Cursor returns the index of the current entry, or -1 when empty
func (h *History) Cursor() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor
}

// Capacity returns the maximum number of retained entries
func (h *History) Capacity() int {
	return h.capacity
}

// Current returns a copy of the entry under the cursor
func (h *History) Current() (Entry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cursor < 0 {
		return Entry{}, false
	}
	e := h.entries[h.cursor]
	e.Elements = e.Elements.Clone()
	return e, true
}

// Clear drops every entry
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = nil
	h.cursor = -1
}
