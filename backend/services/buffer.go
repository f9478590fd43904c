package services

// RollingBuffer keeps at most capacity items, newest first. Pushing onto a
// full buffer evicts the oldest item. Not safe for concurrent use; owners
// serialize access.
type RollingBuffer[T any] struct {
	items    []T
	capacity int
}

func NewRollingBuffer[T any](capacity int) *RollingBuffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &RollingBuffer[T]{
		items:    make([]T, 0, capacity),
		capacity: capacity,
	}
}

// Push prepends item and truncates to capacity.
func (b *RollingBuffer[T]) Push(item T) {
	if len(b.items) < b.capacity {
		var zero T
		b.items = append(b.items, zero)
	}
	copy(b.items[1:], b.items[:len(b.items)-1])
	b.items[0] = item
}

// Items returns a copy, newest first.
func (b *RollingBuffer[T]) Items() []T {
	out := make([]T, len(b.items))
	copy(out, b.items)
	return out
}

func (b *RollingBuffer[T]) Len() int { return len(b.items) }

func (b *RollingBuffer[T]) Capacity() int { return b.capacity }

// Clear drops every item.
func (b *RollingBuffer[T]) Clear() {
	clear(b.items)
	b.items = b.items[:0]
}
