package log

import (
	"bytes"
	"sync"
)

// Ring is a Handler keeping the last formatted events in memory.
// When full the oldest entry is dropped.
type Ring struct {
	mu     sync.Mutex
	size   int
	store  []string
	layout Layout
}

// NewRing creates a Ring with room for size entries, formatted with layout.
func NewRing(size int, layout Layout) *Ring {
	if size < 1 {
		size = 1
	}
	if layout == nil {
		layout = GUILayout
	}
	return &Ring{size: size, layout: layout, store: make([]string, 0, size)}
}

// Log implements Handler.
func (r *Ring) Log(e Event) error {
	var buf bytes.Buffer
	r.layout(&buf, e)

	r.mu.Lock()
	if len(r.store) >= r.size {
		copy(r.store, r.store[1:])
		r.store = r.store[:len(r.store)-1]
	}
	r.store = append(r.store, buf.String())
	r.mu.Unlock()
	return nil
}

// Clear removes all entries.
func (r *Ring) Clear() {
	r.mu.Lock()
	r.store = r.store[:0]
	r.mu.Unlock()
}

// Count returns the number of entries.
func (r *Ring) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.store)
}

// Cap returns the capacity.
func (r *Ring) Cap() int {
	return r.size
}

// Last returns the newest entry or "".
func (r *Ring) Last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.store) == 0 {
		return ""
	}
	return r.store[len(r.store)-1]
}

// Content returns a copy of the entries, oldest first.
func (r *Ring) Content() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.store))
	copy(out, r.store)
	return out
}
