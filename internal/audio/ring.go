package audio

import "sync"

// DefaultRingCapacity holds 30 seconds of 16 kHz mono audio.
const DefaultRingCapacity = 30 * SampleRate

// Ring is a fixed-capacity circular buffer of float32 PCM samples.
// When the buffer is full, the oldest samples are overwritten - for live
// dictation we never want to block or fail inside the capture callback.
// Safe for one concurrent writer (the capture goroutine) and one reader.
type Ring struct {
	mu      sync.Mutex
	buf     []float32
	write   int // index of the next write position
	count   int // number of valid samples
	wrapped bool
}

// NewRing creates a ring buffer holding up to capacity samples.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultRingCapacity
	}
	return &Ring{buf: make([]float32, capacity)}
}

// Write appends samples, overwriting the oldest when the buffer is full.
// A no-op on empty input. Never blocks and never fails; the critical
// section is a plain copy loop with no allocation or I/O.
func (r *Ring) Write(samples []float32) {
	if len(samples) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range samples {
		r.buf[r.write] = s
		r.write = (r.write + 1) % len(r.buf)
		if r.count < len(r.buf) {
			r.count++
		} else {
			r.wrapped = true
		}
	}
}

// ReadAll returns every valid sample in chronological order and resets the
// buffer, atomically with respect to concurrent writes. The returned slice
// is a copy. An empty buffer yields nil; that is not an error.
func (r *Ring) ReadAll() []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count == 0 {
		return nil
	}

	out := make([]float32, r.count)
	if r.wrapped {
		// Oldest sample sits at the write cursor once we have wrapped.
		n := copy(out, r.buf[r.write:])
		copy(out[n:], r.buf[:r.write])
	} else {
		copy(out, r.buf[:r.count])
	}

	r.write = 0
	r.count = 0
	r.wrapped = false
	return out
}

// Reset clears the buffer without returning data.
func (r *Ring) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.write = 0
	r.count = 0
	r.wrapped = false
}

// Len returns the number of valid samples currently held.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// IsEmpty reports whether the buffer holds no samples.
func (r *Ring) IsEmpty() bool {
	return r.Len() == 0
}

// Cap returns the fixed capacity in samples.
func (r *Ring) Cap() int {
	return len(r.buf)
}
