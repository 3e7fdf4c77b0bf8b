package resample

// ring is a growable circular buffer of interleaved samples awaiting
// delivery. It is only used from the goroutine driving the Resampler.
type ring struct {
	data     []int32
	size     int
	readPos  int
	writePos int
}

func newRing(capacity int) *ring {
	return &ring{data: make([]int32, max(capacity, 1))}
}

// Len returns the number of buffered samples.
func (r *ring) Len() int { return r.size }

// Write appends samples, growing the buffer when needed.
func (r *ring) Write(samples []int32) {
	if len(samples) == 0 {
		return
	}
	if r.size+len(samples) > len(r.data) {
		r.grow(r.size + len(samples))
	}

	for len(samples) > 0 {
		end := len(r.data)
		if r.readPos > r.writePos || (r.readPos == r.writePos && r.size > 0) {
			end = r.readPos
		}
		n := copy(r.data[r.writePos:end], samples)
		samples = samples[n:]
		r.size += n
		r.writePos = (r.writePos + n) % len(r.data)
	}
}

// ReadInto moves up to len(dst) samples into dst and returns the count.
func (r *ring) ReadInto(dst []int32) int {
	total := min(len(dst), r.size)
	read := 0
	for read < total {
		end := min(r.readPos+total-read, len(r.data))
		n := copy(dst[read:], r.data[r.readPos:end])
		read += n
		r.readPos = (r.readPos + n) % len(r.data)
	}
	r.size -= total
	return total
}

// Truncate keeps the oldest n samples and drops the rest.
func (r *ring) Truncate(n int) {
	if n >= r.size {
		return
	}
	r.size = max(n, 0)
	r.writePos = (r.readPos + r.size) % len(r.data)
}

// Reset discards buffered samples.
func (r *ring) Reset() {
	r.size = 0
	r.readPos = 0
	r.writePos = 0
}

// grow increases capacity to at least minCapacity, doubling each time.
func (r *ring) grow(minCapacity int) {
	newCapacity := len(r.data)
	for newCapacity < minCapacity {
		newCapacity *= growthFactor
	}

	data := make([]int32, newCapacity)
	if r.size > 0 {
		if r.readPos < r.writePos {
			copy(data, r.data[r.readPos:r.writePos])
		} else {
			n := copy(data, r.data[r.readPos:])
			copy(data[n:], r.data[:r.writePos])
		}
	}

	r.data = data
	r.readPos = 0
	r.writePos = r.size % newCapacity
}
