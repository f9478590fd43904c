package services

import "sync"

// Registry holds the subscribers of one event kind. Publish invokes them
// synchronously in registration order.
type Registry[T any] struct {
	mu       sync.RWMutex
	handlers []func(T)
}

// Subscribe appends a handler.
func (r *Registry[T]) Subscribe(handler func(T)) {
	if handler == nil {
		return
	}
	r.mu.Lock()
	r.handlers = append(r.handlers, handler)
	r.mu.Unlock()
}

// Publish delivers v to every handler.
func (r *Registry[T]) Publish(v T) {
	r.mu.RLock()
	handlers := r.handlers
	r.mu.RUnlock()

	for _, h := range handlers {
		h(v)
	}
}

// Len returns the number of subscribers.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}
