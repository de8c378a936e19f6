package registry

import (
	"sync"

	"github.com/miradorstack/mirador-twin/internal/models"
)

// DefaultCapacity is the number of snapshots retained per twin.
const DefaultCapacity = 20

// RollingBuffer is a fixed-capacity FIFO history of snapshots, oldest first.
type RollingBuffer struct {
	mu    sync.RWMutex
	items []models.Snapshot
	head  int // index of the oldest entry
	size  int
}

// NewRollingBuffer creates a buffer holding at most capacity snapshots.
func NewRollingBuffer(capacity int) *RollingBuffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &RollingBuffer{items: make([]models.Snapshot, capacity)}
}

// Append adds s, evicting exactly the oldest entry when the buffer is full.
func (b *RollingBuffer) Append(s models.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	capacity := len(b.items)
	if b.size == capacity {
		b.items[b.head] = s
		b.head = (b.head + 1) % capacity
		return
	}
	b.items[(b.head+b.size)%capacity] = s
	b.size++
}

// Latest returns the most recently appended snapshot, or false when empty.
func (b *RollingBuffer) Latest() (models.Snapshot, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.size == 0 {
		return models.Snapshot{}, false
	}
	return b.items[(b.head+b.size-1)%len(b.items)], true
}

// Recent returns the last min(k, Len()) snapshots, oldest first.
func (b *RollingBuffer) Recent(k int) []models.Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if k <= 0 || b.size == 0 {
		return []models.Snapshot{}
	}
	if k > b.size {
		k = b.size
	}
	out := make([]models.Snapshot, 0, k)
	start := b.head + b.size - k
	for i := 0; i < k; i++ {
		out = append(out, b.items[(start+i)%len(b.items)])
	}
	return out
}

// Len returns the number of buffered snapshots.
func (b *RollingBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// Cap returns the buffer capacity.
func (b *RollingBuffer) Cap() int {
	return len(b.items)
}
