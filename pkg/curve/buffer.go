package curve

import (
	"sync"
	"time"
)

// Point is one plotted value at an instant.
type Point struct {
	Timestamp time.Time
	Value     float64
}

// Buffer is a fixed-capacity ring of time-ordered points feeding the plot.
// Push is O(1); when the buffer is full the oldest point is evicted first.
// Timestamps are strictly increasing: a point that is not newer than the
// latest one is rejected. Safe for a single writer (the device link) and any
// number of concurrent readers.
type Buffer struct {
	mu    sync.RWMutex
	buf   []Point
	head  int // next write position
	count int
}

// NewBuffer creates a buffer with the given capacity (minimum 1).
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{buf: make([]Point, capacity)}
}

// Push appends a point. It reports false when the timestamp does not advance
// past the newest stored point.
func (b *Buffer) Push(p Point) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count > 0 {
		last := b.buf[(b.head-1+len(b.buf))%len(b.buf)]
		if !p.Timestamp.After(last.Timestamp) {
			return false
		}
	}

	b.buf[b.head] = p
	b.head = (b.head + 1) % len(b.buf)
	if b.count < len(b.buf) {
		b.count++
	}
	return true
}

// Snapshot returns a copy of the buffered points, oldest first.
func (b *Buffer) Snapshot() []Point {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.copyFrom(0)
}

// Since returns a copy of the points with timestamps at or after t,
// oldest first.
func (b *Buffer) Since(t time.Time) []Point {
	b.mu.RLock()
	defer b.mu.RUnlock()

	// Points are ordered, so scan from the oldest for the first keeper.
	skip := b.count
	for i := 0; i < b.count; i++ {
		if !b.at(i).Timestamp.Before(t) {
			skip = i
			break
		}
	}
	return b.copyFrom(skip)
}

// Latest returns the newest point, if any.
func (b *Buffer) Latest() (Point, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.count == 0 {
		return Point{}, false
	}
	return b.at(b.count - 1), true
}

// Len returns the number of buffered points.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int {
	return len(b.buf)
}

// Clear drops all points, e.g. when a new session starts.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.head = 0
	b.count = 0
}

// at returns the i-th oldest point. Callers hold the lock.
func (b *Buffer) at(i int) Point {
	start := (b.head - b.count + len(b.buf)) % len(b.buf)
	return b.buf[(start+i)%len(b.buf)]
}

// copyFrom copies points starting at the i-th oldest. Callers hold the lock.
func (b *Buffer) copyFrom(i int) []Point {
	if i >= b.count {
		return nil
	}
	out := make([]Point, b.count-i)
	for j := range out {
		out[j] = b.at(i + j)
	}
	return out
}
