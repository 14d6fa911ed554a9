package notify

import "sync"

// Buffer keeps the most recent notifications in a fixed-size ring.
type Buffer struct {
	mu    sync.Mutex
	items []Notification
	next  int
	full  bool
}

func NewBuffer(size int) *Buffer {
	if size < 1 {
		size = 1
	}
	return &Buffer{items: make([]Notification, size)}
}

func (b *Buffer) Notify(n Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items[b.next] = n
	b.next = (b.next + 1) % len(b.items)
	if b.next == 0 {
		b.full = true
	}
}

// Recent returns the buffered notifications, oldest first.
func (b *Buffer) Recent() []Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.full {
		out := make([]Notification, b.next)
		copy(out, b.items[:b.next])
		return out
	}
	out := make([]Notification, 0, len(b.items))
	out = append(out, b.items[b.next:]...)
	out = append(out, b.items[:b.next]...)
	return out
}

// Recorder keeps every notification. Used by tests across packages.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.items))
	copy(out, r.items)
	return out
}

// Last returns the latest notification and whether there was one.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return Notification{}, false
	}
	return r.items[len(r.items)-1], true
}
