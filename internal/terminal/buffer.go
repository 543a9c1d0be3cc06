package terminal

import "sync"

// DefaultScrollbackSize bounds the output retained per session
const DefaultScrollbackSize = 256 * 1024

// Buffer is a thread-safe ring buffer holding the most recent output.
// Older bytes are overwritten once the capacity is reached.
type Buffer struct {
	mu   sync.RWMutex
	data []byte
	head int // next write position
	full bool
}

// NewBuffer creates a ring buffer with the given capacity
func NewBuffer(size int) *Buffer {
	if size <= 0 {
		size = DefaultScrollbackSize
	}
	return &Buffer{data: make([]byte, size)}
}

// Write appends p, discarding the oldest bytes when full
func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(p)
	size := len(b.data)
	if n >= size {
		copy(b.data, p[n-size:])
		b.head = 0
		b.full = true
		return n, nil
	}

	written := copy(b.data[b.head:], p)
	if written < n {
		copy(b.data, p[written:])
		b.full = true
	}
	end := b.head + n
	if end >= size {
		b.full = true
	}
	b.head = end % size
	return n, nil
}

// Bytes returns a copy of the buffered output, oldest first
func (b *Buffer) Bytes() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.full {
		out := make([]byte, b.head)
		copy(out, b.data[:b.head])
		return out
	}
	out := make([]byte, len(b.data))
	n := copy(out, b.data[b.head:])
	copy(out[n:], b.data[:b.head])
	return out
}

// Len returns the number of buffered bytes
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.full {
		return len(b.data)
	}
	return b.head
}

// Cap returns the buffer capacity
func (b *Buffer) Cap() int {
	return len(b.data)
}
