// Package dedupe tracks delivered notification ids so each one is handed to
// the notifier at most once.
package dedupe

import (
	"container/list"
	"context"
	"sync"
)

const defaultMaxSize = 100000

// Deduper records seen ids.
type Deduper interface {
	// SeenAndRecord reports whether id was already recorded and records it
	// if it was not. The check and the record are one atomic step.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so a failed delivery can be retried.
	Unrecord(ctx context.Context, id string)

	Size() int
}

// window remembers the most recent ids. With maxSize <= 0 it never evicts.
type window struct {
	mu      sync.Mutex
	index   map[string]*list.Element
	order   *list.List // front = oldest
	maxSize int
}

// New creates an in-memory deduper.
func New(opts ...Option) Deduper {
	w := &window{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(w)
	}
	w.index = make(map[string]*list.Element)
	w.order = list.New()
	return w
}

func (w *window) SeenAndRecord(_ context.Context, id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.index[id]; ok {
		return true
	}
	if w.maxSize > 0 && w.order.Len() >= w.maxSize {
		oldest := w.order.Front()
		w.order.Remove(oldest)
		delete(w.index, oldest.Value.(string))
	}
	w.index[id] = w.order.PushBack(id)
	return false
}

func (w *window) Unrecord(_ context.Context, id string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if el, ok := w.index[id]; ok {
		w.order.Remove(el)
		delete(w.index, id)
	}
}

func (w *window) Size() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.order.Len()
}
