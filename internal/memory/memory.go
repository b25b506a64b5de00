package memory

import (
	"sync"
	"time"
)

// DefaultCapacity is the number of recent interactions kept for context.
const DefaultCapacity = 10

// #region entry
// Entry is one remembered interaction: the raw input and its own embedding.
type Entry struct {
	Text      string
	Embedding []float32
	At        time.Time
}

func (e Entry) clone() Entry {
	if e.Embedding != nil {
		e.Embedding = append([]float32(nil), e.Embedding...)
	}
	return e
}

// #endregion entry

// #region memory-struct
// Memory is a fixed-capacity FIFO of recent interactions. Append and Snapshot
// are atomic with respect to each other; snapshots are deep copies.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
	start   int
	size    int
}

// New creates an empty memory. capacity <= 0 selects DefaultCapacity.
func New(capacity int) *Memory {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Memory{entries: make([]Entry, capacity)}
}

// #endregion memory-struct

// #region append
// Append adds e, evicting the oldest entry when full.
func (m *Memory) Append(e Entry) {
	e = e.clone()
	m.mu.Lock()
	defer m.mu.Unlock()

	capacity := len(m.entries)
	if m.size < capacity {
		m.entries[(m.start+m.size)%capacity] = e
		m.size++
		return
	}
	m.entries[m.start] = e
	m.start = (m.start + 1) % capacity
}

// #endregion append

// #region snapshot
// Snapshot returns the remembered entries oldest first.
func (m *Memory) Snapshot() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Entry, m.size)
	for i := range out {
		out[i] = m.entries[(m.start+i)%len(m.entries)].clone()
	}
	return out
}

// Texts returns the remembered inputs oldest first.
func (m *Memory) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, m.size)
	for i := range out {
		out[i] = m.entries[(m.start+i)%len(m.entries)].Text
	}
	return out
}

// #endregion snapshot

// #region accessors
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.size
}

func (m *Memory) Cap() int {
	return len(m.entries)
}

// Reset forgets everything.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.entries)
	m.start, m.size = 0, 0
}

// Restore replaces the contents with entries, keeping only the newest Cap().
func (m *Memory) Restore(entries []Entry) {
	if over := len(entries) - m.Cap(); over > 0 {
		entries = entries[over:]
	}
	m.Reset()
	for _, e := range entries {
		m.Append(e)
	}
}

// #endregion accessors
