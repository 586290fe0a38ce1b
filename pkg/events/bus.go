// Package events decouples the drag and snap engine from guide rendering and
// auto-fit logic. Events carry a stable payload and are delivered
// synchronously to the listeners registered at emit time. Delivery is
// best-effort: with no listener an event is dropped.
package events

import (
	"sync"

	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/snap"
)

// Event names
const (
	NameShowGuides = "show-guides"
	NameHideGuides = "hide-guides"
	NameAdjustZoom = "adjust-canvas-zoom"
)

// Event is a named payload
type Event interface {
	Name() string
}

// ShowGuides asks guide renderers to display guides for a dragged element
type ShowGuides struct {
	ElementID  string       `json:"elementId"`
	Guides     []snap.Guide `json:"guides"`
	IsDragging bool         `json:"isDragging"`
}

// HideGuides asks guide renderers to clear guides
type HideGuides struct {
	ElementID string `json:"elementId"`
}

// AdjustZoom asks the canvas host to apply a new zoom
type AdjustZoom struct {
	Zoom float64 `json:"zoom"`
}

func (ShowGuides) Name() string { return NameShowGuides }
func (HideGuides) Name() string { return NameHideGuides }
func (AdjustZoom) Name() string { return NameAdjustZoom }

type listener struct {
	id uint64
	fn func(Event)
}

// Bus is a publish-subscribe hub. The zero value is ready to use and a nil
// *Bus drops every event.
type Bus struct {
	mu        sync.RWMutex
	listeners map[string][]listener
	next      uint64
}

// NewBus creates an event bus
func NewBus() *Bus {
	return &Bus{}
}

// Listen registers fn for events with the given name and returns a function
// that removes it
func (b *Bus) Listen(name string, fn func(Event)) func() {
	if b == nil || fn == nil {
		return func() {}
	}
	b.mu.Lock()
	if b.listeners == nil {
		b.listeners = make(map[string][]listener)
	}
	b.next++
	id := b.next
	b.listeners[name] = append(b.listeners[name], listener{id: id, fn: fn})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		ls := b.listeners[name]
		for i, l := range ls {
			if l.id == id {
				b.listeners[name] = append(ls[:i:i], ls[i+1:]...)
				return
			}
		}
	}
}

// On registers a typed listener for events of type T
func On[T Event](b *Bus, fn func(T)) func() {
	var zero T
	return b.Listen(zero.Name(), func(e Event) {
		if v, ok := e.(T); ok {
			fn(v)
		}
	})
}

// Emit delivers e to its listeners in registration order and returns how many
// received it
func (b *Bus) Emit(e Event) int {
	if b == nil || e == nil {
		return 0
	}
	b.mu.RLock()
	ls := append([]listener(nil), b.listeners[e.Name()]...)
	b.mu.RUnlock()

	for _, l := range ls {
		l.fn(e)
	}
	return len(ls)
}

// Count returns the number of listeners for name
func (b *Bus) Count(name string) int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[name])
}
