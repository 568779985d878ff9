package alloc

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/segalloc/mem/arena"
)

func TestExtendHeap_SmallRequestTakesChunk(t *testing.T) {
	a := newTestAllocator(t, nil)
	mustMalloc(t, a, 1500) // consumes the initial free block exactly

	p := mustMalloc(t, a, 100)
	require.Equal(t, Ptr(1520), p)

	st := a.Stats()
	require.Equal(t, 1, st.GrowCalls)
	require.Equal(t, int64(DefaultConfig.ChunkSize), st.GrowBytes)
	require.Equal(t, 1520+DefaultConfig.ChunkSize, a.HeapSize())

	r := requireHeapOK(t, a, "chunk")
	require.Equal(t, DefaultConfig.ChunkSize-104, r.FreeBytes)
}

func TestExtendHeap_LargeRequestIsExact(t *testing.T) {
	a := newTestAllocator(t, nil)

	// The new region merges with the initial free block, so the request is
	// served from the start of the heap.
	p := mustMalloc(t, a, 3000)
	require.Equal(t, Ptr(16), p)

	st := a.Stats()
	require.Equal(t, int64(3008), st.GrowBytes)
	require.Equal(t, 1520+3008, a.HeapSize())
	require.GreaterOrEqual(t, st.CoalesceBackward, 1)

	r := requireHeapOK(t, a, "exact")
	require.Equal(t, 1504, r.FreeBytes)
}

func TestExtendHeap_FallsBackToExactSize(t *testing.T) {
	a, err := New(arena.NewMem(1520+1100), nil)
	require.NoError(t, err)
	mustMalloc(t, a, 1500)

	p := mustMalloc(t, a, 1000)
	require.Equal(t, Ptr(1520), p)
	require.Equal(t, int64(1008), a.Stats().GrowBytes)
	require.Equal(t, 2528, a.HeapSize())

	r := requireHeapOK(t, a, "fallback")
	require.Zero(t, r.FreeBlocks)
}

func TestExtendHeap_CustomChunkSize(t *testing.T) {
	a := newTestAllocator(t, &Config{ChunkSize: 4096, InitialSize: 64})
	require.Equal(t, 16+64, a.HeapSize())

	mustMalloc(t, a, 100)
	require.Equal(t, int64(4096), a.Stats().GrowBytes)
	requireHeapOK(t, a, "custom")
}

func TestExtendHeap_LogsGrowth(t *testing.T) {
	var logs bytes.Buffer
	a := newTestAllocator(t, &Config{Logger: captureLogger(&logs)})
	mustMalloc(t, a, 5000)

	require.Contains(t, logs.String(), "heap extended")
	require.Contains(t, logs.String(), "bytes=5008")
}

// movingArena copies its contents to a fresh buffer on every Grow, failed or
// not, and poisons the buffer it abandons.
type movingArena struct {
	data []byte
	max  int
}

func (m *movingArena) Grow(n int) (int, error) {
	old := len(m.data)
	moved := make([]byte, old, m.max)
	copy(moved, m.data)
	for i := range m.data {
		m.data[i] = 0xff
	}
	m.data = moved
	if old+n > m.max {
		return 0, arena.ErrExhausted
	}
	m.data = m.data[:old+n]
	return old, nil
}

func (m *movingArena) Low() int      { return 0 }
func (m *movingArena) High() int     { return len(m.data) }
func (m *movingArena) Bytes() []byte { return m.data }

func TestExtendHeap_FailedGrowRefreshesView(t *testing.T) {
	ar := &movingArena{max: 4096}
	a, err := New(ar, nil)
	require.NoError(t, err)

	p1 := mustMalloc(t, a, 1500)
	_, err = a.Malloc(3000)
	require.ErrorIs(t, err, ErrNoSpace)
	require.ErrorIs(t, err, arena.ErrExhausted)
	require.Equal(t, 1520, a.HeapSize())

	// The allocator keeps working on the arena's current buffer.
	require.NoError(t, a.Free(p1))
	p2 := mustMalloc(t, a, 100)
	require.Equal(t, Ptr(16), p2)
	copy(a.Payload(p2), "moved")
	require.Equal(t, "moved", string(ar.Bytes()[16:21]))
	requireHeapOK(t, a, "after failed grow")
}
