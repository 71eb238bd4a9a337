package server

import "sync"

const defaultScrollbackChunks = 1024

// scrollback keeps the most recent output chunks of one session so a
// websocket that attaches late can replay them.
type scrollback struct {
	mu     sync.Mutex
	chunks [][]byte
	head   int
	tail   int
	size   int
	full   bool
	bytes  int
}

func newScrollback(size int) *scrollback {
	if size <= 0 {
		size = defaultScrollbackChunks
	}
	return &scrollback{
		chunks: make([][]byte, size),
		size:   size,
	}
}

// append stores data without copying; callers hand over ownership.
func (b *scrollback) append(data []byte) {
	if len(data) == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// A full buffer overwrites the oldest chunk at head.
	if b.full {
		b.bytes -= len(b.chunks[b.head])
		b.tail = (b.tail + 1) % b.size
	}

	b.chunks[b.head] = data
	b.bytes += len(data)

	b.head = (b.head + 1) % b.size
	b.full = b.head == b.tail
}

// snapshot returns all buffered output, oldest first, as one slice.
func (b *scrollback) snapshot() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]byte, 0, b.bytes)
	used := b.used()
	for i := 0; i < used; i++ {
		out = append(out, b.chunks[(b.tail+i)%b.size]...)
	}
	return out
}

func (b *scrollback) used() int {
	if b.full {
		return b.size
	}
	if b.head >= b.tail {
		return b.head - b.tail
	}
	return b.size - b.tail + b.head
}
