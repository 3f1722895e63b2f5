package audio

// Queue is a growable ring-buffer deque of int16 samples. Push appends at the
// tail and PopFront removes from the head in O(1) amortised time.
//
// Queue is not safe for concurrent use. Each queue is owned by exactly one
// goroutine.
type Queue struct {
	buf        []int16
	head, size int
}

// NewQueue returns a queue with room for capacity samples before it grows.
func NewQueue(capacity int) *Queue {
	if capacity < 16 {
		capacity = 16
	}
	return &Queue{buf: make([]int16, capacity)}
}

// Len returns the number of queued samples.
func (q *Queue) Len() int {
	return q.size
}

// Push appends samples at the tail.
func (q *Queue) Push(samples ...int16) {
	if len(samples) == 0 {
		return
	}
	q.grow(q.size + len(samples))

	tail := (q.head + q.size) % len(q.buf)
	n := copy(q.buf[tail:], samples)
	if n < len(samples) {
		copy(q.buf, samples[n:])
	}
	q.size += len(samples)
}

// PopFront removes up to n samples from the head and returns them in a new
// slice.
func (q *Queue) PopFront(n int) []int16 {
	if n > q.size {
		n = q.size
	}
	if n <= 0 {
		return nil
	}

	out := make([]int16, n)
	c := copy(out, q.buf[q.head:min(q.head+n, len(q.buf))])
	if c < n {
		copy(out[c:], q.buf[:n-c])
	}

	q.head = (q.head + n) % len(q.buf)
	q.size -= n
	if q.size == 0 {
		q.head = 0
	}
	return out
}

// Clear drops every queued sample and returns how many were dropped.
func (q *Queue) Clear() int {
	n := q.size
	q.head, q.size = 0, 0
	return n
}

// At returns the i-th queued sample counted from the head.
func (q *Queue) At(i int) int16 {
	return q.buf[(q.head+i)%len(q.buf)]
}

// Set overwrites the i-th queued sample counted from the head.
func (q *Queue) Set(i int, v int16) {
	q.buf[(q.head+i)%len(q.buf)] = v
}

func (q *Queue) grow(need int) {
	if need <= len(q.buf) {
		return
	}

	size := len(q.buf) * 2
	for size < need {
		size *= 2
	}

	buf := make([]int16, size)
	if q.size > 0 {
		c := copy(buf, q.buf[q.head:min(q.head+q.size, len(q.buf))])
		if c < q.size {
			copy(buf[c:], q.buf[:q.size-c])
		}
	}
	q.buf = buf
	q.head = 0
}
