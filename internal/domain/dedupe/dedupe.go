// Package dedupe remembers idempotency keys so a retried submission is not
// registered twice.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
)

// Deduper records seen idempotency keys to ensure at-most-once creation.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// When the key was already seen it returns true and the value bound to
	// it, which is empty while the first request is still in flight.
	SeenAndRecord(ctx context.Context, key string) (string, bool)

	// Bind attaches a value (the created sale ID) to a recorded key.
	Bind(ctx context.Context, key, value string)

	// Unrecord removes a key so the request can be retried. Used when the
	// first attempt failed after being recorded.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

type entry struct {
	key   string
	value string
}

// inMemoryDeduper keeps keys in insertion order and evicts the oldest once
// maxSize is reached. maxSize <= 0 disables eviction.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List // front = oldest
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 10_000,
		seen:    make(map[string]*list.Element),
		order:   list.New(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[key]; ok {
		return el.Value.(*entry).value, true
	}
	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		d.evictOldest()
	}
	d.seen[key] = d.order.PushBack(&entry{key: key})
	d.size.Add(1)
	return "", false
}

func (d *inMemoryDeduper) Bind(_ context.Context, key, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if el, ok := d.seen[key]; ok {
		el.Value.(*entry).value = value
	}
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if el, ok := d.seen[key]; ok {
		d.order.Remove(el)
		delete(d.seen, key)
		d.size.Add(-1)
	}
}

// evictOldest must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	el := d.order.Front()
	if el == nil {
		return
	}
	d.order.Remove(el)
	delete(d.seen, el.Value.(*entry).key)
	d.size.Add(-1)
}

// Size returns the current number of entries in the deduper.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
