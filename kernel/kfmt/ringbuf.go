package kfmt

import "io"

// ringBufferSize is large enough to hold a full 80x25 text screen. It must be
// a power of 2.
const ringBufferSize = 2048

// ringBuffer stores the most recent ringBufferSize bytes written to it. Once
// full, new writes overwrite the oldest data.
type ringBuffer struct {
	buffer     [ringBufferSize]byte
	head, size int
}

// Write appends p to the buffer, discarding the oldest bytes if needed.
func (rb *ringBuffer) Write(p []byte) (int, error) {
	for _, b := range p {
		rb.buffer[(rb.head+rb.size)&(ringBufferSize-1)] = b
		if rb.size == ringBufferSize {
			rb.head = (rb.head + 1) & (ringBufferSize - 1)
			continue
		}
		rb.size++
	}

	return len(p), nil
}

// Read drains up to len(p) bytes from the buffer. It returns io.EOF once the
// buffer is empty.
func (rb *ringBuffer) Read(p []byte) (int, error) {
	if rb.size == 0 {
		return 0, io.EOF
	}

	n := 0
	for ; n < len(p) && rb.size > 0; n++ {
		p[n] = rb.buffer[rb.head]
		rb.head = (rb.head + 1) & (ringBufferSize - 1)
		rb.size--
	}

	return n, nil
}
