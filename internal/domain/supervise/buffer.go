package supervise

import "sync"

// ringBuffer is a thread-safe circular buffer. The supervisor uses one per
// child process to keep the tail of stderr for failure diagnostics without
// letting a chatty client grow memory unbounded.
type ringBuffer struct {
	data []byte
	size int
	head int
	tail int
	full bool
	mu   sync.Mutex
}

func newRingBuffer(size int) *ringBuffer {
	return &ringBuffer{data: make([]byte, size), size: size}
}

// Write implements io.Writer. Older bytes are overwritten when full.
func (b *ringBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, c := range p {
		b.data[b.tail] = c
		b.tail = (b.tail + 1) % b.size
		if b.full {
			b.head = b.tail
		}
		if b.tail == b.head {
			b.full = true
		}
	}
	return len(p), nil
}

// String returns the buffered bytes in write order.
func (b *ringBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.full && b.head == b.tail {
		return ""
	}
	if b.tail > b.head && !b.full {
		return string(b.data[b.head:b.tail])
	}
	out := make([]byte, 0, b.size)
	out = append(out, b.data[b.head:]...)
	out = append(out, b.data[:b.tail]...)
	return string(out)
}
