package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(i int) Entry {
	return Entry{Text: fmt.Sprintf("msg-%d", i), Embedding: []float32{float32(i)}}
}

func TestNewDefaultsCapacity(t *testing.T) {
	assert.Equal(t, DefaultCapacity, New(0).Cap())
	assert.Equal(t, 3, New(3).Cap())
}

func TestAppendBelowCapacity(t *testing.T) {
	m := New(10)
	for i := 0; i < 4; i++ {
		m.Append(entry(i))
	}
	snap := m.Snapshot()
	require.Len(t, snap, 4)
	for i, e := range snap {
		assert.Equal(t, entry(i).Text, e.Text)
	}
}

func TestEvictsOldestPastCapacity(t *testing.T) {
	for _, n := range []int{11, 15, 23, 100} {
		m := New(10)
		for i := 0; i < n; i++ {
			m.Append(entry(i))
		}
		snap := m.Snapshot()
		require.Len(t, snap, 10, "n=%d", n)
		for i, e := range snap {
			want := entry(n - 10 + i)
			assert.Equal(t, want.Text, e.Text)
			assert.Equal(t, want.Embedding, e.Embedding)
		}
		assert.Equal(t, 10, m.Len())
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	m := New(2)
	emb := []float32{1, 2}
	m.Append(Entry{Text: "a", Embedding: emb})
	emb[0] = 99

	snap := m.Snapshot()
	snap[0].Embedding[1] = 42
	snap[0].Text = "changed"

	again := m.Snapshot()
	assert.Equal(t, "a", again[0].Text)
	assert.Equal(t, []float32{1, 2}, again[0].Embedding)
}

func TestTextsOrder(t *testing.T) {
	m := New(3)
	for i := 0; i < 5; i++ {
		m.Append(entry(i))
	}
	assert.Equal(t, []string{"msg-2", "msg-3", "msg-4"}, m.Texts())
}

func TestResetAndRestore(t *testing.T) {
	m := New(3)
	m.Append(entry(0))
	m.Reset()
	assert.Zero(t, m.Len())
	assert.Empty(t, m.Texts())

	m.Restore([]Entry{entry(1), entry(2), entry(3), entry(4)})
	assert.Equal(t, []string{"msg-2", "msg-3", "msg-4"}, m.Texts())
}

func TestConcurrentAppendSnapshot(t *testing.T) {
	m := New(10)
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(2)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				m.Append(entry(w*1000 + i))
			}
		}(w)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				assert.LessOrEqual(t, len(m.Snapshot()), 10)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, m.Len())
}
