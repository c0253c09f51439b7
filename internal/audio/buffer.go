package audio

import (
	"sync"
)

// RingBuffer is a thread-safe ring buffer of mono PCM samples. The playback
// path writes whole synthesized clips into it and drains fixed-size blocks
// out to the sound device.
type RingBuffer struct {
	buffer []int16
	size   int
	read   int
	write  int
	mu     sync.RWMutex
}

// NewRingBuffer creates a ring buffer holding up to size-1 samples
func NewRingBuffer(size int) *RingBuffer {
	return &RingBuffer{
		buffer: make([]int16, size),
		size:   size,
	}
}

// Write appends samples to the buffer.
// Returns the number of samples written (less than len(data) if the buffer fills).
func (rb *RingBuffer) Write(data []int16) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	written := 0
	for _, sample := range data {
		if (rb.write+1)%rb.size == rb.read {
			break // Buffer full
		}
		rb.buffer[rb.write] = sample
		rb.write = (rb.write + 1) % rb.size
		written++
	}

	return written
}

// Read fills data with buffered samples.
// Returns the number of samples read; the rest of data is untouched.
func (rb *RingBuffer) Read(data []int16) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	read := 0
	for i := range data {
		if rb.read == rb.write {
			break // Buffer empty
		}
		data[i] = rb.buffer[rb.read]
		rb.read = (rb.read + 1) % rb.size
		read++
	}

	return read
}

// Available returns the number of samples buffered for reading
func (rb *RingBuffer) Available() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.available()
}

func (rb *RingBuffer) available() int {
	if rb.write >= rb.read {
		return rb.write - rb.read
	}
	return rb.size - rb.read + rb.write
}

// Space returns the number of samples that can be written before the buffer fills
func (rb *RingBuffer) Space() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	return rb.size - rb.available() - 1 // -1 to prevent full/empty ambiguity
}

// Clear empties the buffer
func (rb *RingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.read = 0
	rb.write = 0
}

// IsEmpty returns true if no samples are buffered
func (rb *RingBuffer) IsEmpty() bool {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.read == rb.write
}
