package alloc

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/segalloc/internal/format"
	"github.com/joshuapare/segalloc/mem/arena"
)

func TestNew_InitialLayout(t *testing.T) {
	a := newTestAllocator(t, nil)

	r := requireHeapOK(t, a, "init")
	require.Equal(t, 1, r.Blocks)
	require.Equal(t, 1, r.FreeBlocks)
	require.Equal(t, DefaultConfig.InitialSize, r.FreeBytes)
	require.Equal(t, format.HeapOverhead+DefaultConfig.InitialSize, a.HeapSize())

	var blocks []Block
	a.Walk(func(b Block) bool {
		blocks = append(blocks, b)
		return true
	})
	require.Equal(t, []Block{{Ptr: format.FirstBlockOffset, Size: 1504, Free: true, PrevAlloc: true}}, blocks)

	lists := a.FreeBlocks()
	require.Equal(t, []Ptr{format.FirstBlockOffset}, lists[format.Class(1504)])
}

func TestNew_AlignsUnalignedArena(t *testing.T) {
	m := arena.NewMem(0)
	_, err := m.Grow(3)
	require.NoError(t, err)

	a, err := New(m, nil)
	require.NoError(t, err)
	requireHeapOK(t, a, "unaligned")
	require.Equal(t, 1520, a.HeapSize())

	p := mustMalloc(t, a, 10)
	require.Zero(t, int(p)%format.Alignment)
	require.Equal(t, Ptr(24), p)
}

func TestNew_RejectsBadConfig(t *testing.T) {
	_, err := New(arena.NewMem(0), &Config{ChunkSize: 10})
	require.ErrorIs(t, err, ErrConfig)

	_, err = New(arena.NewMem(0), &Config{InitialSize: 1500})
	require.ErrorIs(t, err, ErrConfig)

	_, err = New(nil, nil)
	require.ErrorIs(t, err, ErrConfig)
}

func TestNew_DefaultLoggerDiscards(t *testing.T) {
	a, err := New(arena.NewMem(0), nil)
	require.NoError(t, err)
	for _, lvl := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelError} {
		require.False(t, a.log.Enabled(context.Background(), lvl), lvl.String())
	}
}

func TestNew_ArenaTooSmall(t *testing.T) {
	_, err := New(arena.NewMem(1024), nil)
	require.ErrorIs(t, err, ErrNoSpace)
	require.ErrorIs(t, err, arena.ErrExhausted)
}

func TestMalloc_Zero(t *testing.T) {
	a := newTestAllocator(t, nil)
	p, err := a.Malloc(0)
	require.NoError(t, err)
	require.Equal(t, Nil, p)
	require.Equal(t, 0, a.Stats().MallocCalls)
}

func TestMalloc_Negative(t *testing.T) {
	a := newTestAllocator(t, nil)
	_, err := a.Malloc(-1)
	require.ErrorIs(t, err, ErrBadSize)
}

func TestMalloc_AlignedAndSized(t *testing.T) {
	a := newTestAllocator(t, nil)
	for _, n := range []int{1, 4, 5, 12, 13, 24, 100, 1000, 4096, 70000} {
		p := mustMalloc(t, a, n)
		require.Zero(t, int(p)%format.Alignment, "malloc(%d) = %#x", n, p)

		payload := a.Payload(p)
		require.GreaterOrEqual(t, len(payload), n)
		require.Equal(t, format.BlockSize(n)-format.WordSize, a.UsableSize(p))
		require.LessOrEqual(t, int(p)+len(payload), a.HeapSize())
		fill(payload, byte(n))
	}
	requireHeapOK(t, a, "sized")
}

// Three blocks of 100, 50 and 200 bytes; freeing the middle one and asking
// for 40 bytes must reuse the middle block and leave an 8-byte fragment.
func TestMalloc_ReusesFreedMiddleBlock(t *testing.T) {
	a := newTestAllocator(t, nil)

	p1 := mustMalloc(t, a, 100)
	p2 := mustMalloc(t, a, 50)
	p3 := mustMalloc(t, a, 200)
	require.Equal(t, Ptr(16), p1)
	require.Equal(t, Ptr(120), p2)
	require.Equal(t, Ptr(176), p3)

	require.NoError(t, a.Free(p2))
	requireHeapOK(t, a, "after free")
	require.Equal(t, []Ptr{p2}, a.FreeBlocks()[format.Class(56)])

	p4 := mustMalloc(t, a, 40)
	require.Equal(t, p2, p4)

	r := requireHeapOK(t, a, "after reuse")
	require.Equal(t, 1, r.Fragments)
	require.Equal(t, 2, r.FreeBlocks)
	require.Equal(t, 1, r.Indexed)

	st := a.Stats()
	require.Equal(t, 4, st.MallocCalls)
	require.Equal(t, 1, st.FreeCalls)
	require.Equal(t, 4, st.Splits)
	require.Zero(t, st.GrowCalls)
}

func TestMalloc_ExactRefitReusesAddress(t *testing.T) {
	a := newTestAllocator(t, nil)
	p := mustMalloc(t, a, 100)
	require.NoError(t, a.Free(p))
	q := mustMalloc(t, a, 100)
	require.Equal(t, p, q)
	requireHeapOK(t, a, "refit")
}

func TestMalloc_FirstFitWithinBucket(t *testing.T) {
	a := newTestAllocator(t, nil)

	// Two free 104-byte blocks in the same bucket separated by guards.
	x := mustMalloc(t, a, 100)
	mustMalloc(t, a, 8)
	y := mustMalloc(t, a, 100)
	mustMalloc(t, a, 8)
	require.NoError(t, a.Free(x))
	require.NoError(t, a.Free(y))

	// LIFO: y was freed last and is found first.
	p := mustMalloc(t, a, 100)
	require.Equal(t, y, p)
	p = mustMalloc(t, a, 100)
	require.Equal(t, x, p)
}

func TestFree_Nil(t *testing.T) {
	a := newTestAllocator(t, nil)
	require.NoError(t, a.Free(Nil))
	require.Zero(t, a.Stats().FreeCalls)
}

func TestFree_DoubleFreeIsNoop(t *testing.T) {
	a := newTestAllocator(t, nil)
	p := mustMalloc(t, a, 64)
	mustMalloc(t, a, 64)

	require.NoError(t, a.Free(p))
	before := a.Check("before").FreeBytes
	require.NoError(t, a.Free(p))

	r := requireHeapOK(t, a, "double free")
	require.Equal(t, before, r.FreeBytes)
	require.Equal(t, 1, a.Stats().DoubleFrees)
	require.Nil(t, a.Payload(p))
}

func TestFree_BadPointers(t *testing.T) {
	a := newTestAllocator(t, nil)
	mustMalloc(t, a, 64)

	for _, p := range []Ptr{3, 8, 12, Ptr(a.HeapSize()), 1 << 24} {
		require.ErrorIs(t, a.Free(p), ErrBadPtr, "ptr %#x", p)
	}
	requireHeapOK(t, a, "bad pointers")
}

func TestFree_CoalescesBothNeighbours(t *testing.T) {
	a := newTestAllocator(t, nil)
	p1 := mustMalloc(t, a, 100)
	p2 := mustMalloc(t, a, 100)
	p3 := mustMalloc(t, a, 100)
	guard := mustMalloc(t, a, 100)

	require.NoError(t, a.Free(p1))
	require.NoError(t, a.Free(p3))
	require.NoError(t, a.Free(p2))

	r := requireHeapOK(t, a, "coalesce")
	require.Equal(t, 2, r.FreeBlocks)

	var first Block
	a.Walk(func(b Block) bool {
		first = b
		return false
	})
	require.Equal(t, p1, first.Ptr)
	require.True(t, first.Free)
	require.Equal(t, 3*104, first.Size)

	st := a.Stats()
	require.GreaterOrEqual(t, st.CoalesceForward, 1)
	require.GreaterOrEqual(t, st.CoalesceBackward, 1)
	require.NotNil(t, a.Payload(guard))
}

func TestFree_AbsorbsFragment(t *testing.T) {
	a := newTestAllocator(t, nil)
	mustMalloc(t, a, 100)
	p2 := mustMalloc(t, a, 50)
	mustMalloc(t, a, 200)
	require.NoError(t, a.Free(p2))
	p4 := mustMalloc(t, a, 40)
	require.Equal(t, 1, a.Check("fragment").Fragments)

	// Freeing the 48-byte block merges the unindexed 8-byte fragment.
	require.NoError(t, a.Free(p4))
	r := requireHeapOK(t, a, "absorbed")
	require.Zero(t, r.Fragments)
	require.Equal(t, []Ptr{p2}, a.FreeBlocks()[format.Class(56)])
}

func TestCalloc(t *testing.T) {
	a := newTestAllocator(t, nil)

	p := mustMalloc(t, a, 100)
	fill(a.Payload(p), 0xFF)
	require.NoError(t, a.Free(p))

	q, err := a.Calloc(25, 4)
	require.NoError(t, err)
	require.Equal(t, p, q)
	require.Equal(t, make([]byte, 100), a.Payload(q)[:100])
	require.Equal(t, 1, a.Stats().CallocCalls)
}

func TestCalloc_ZeroAndInvalid(t *testing.T) {
	a := newTestAllocator(t, nil)

	for _, tc := range []struct{ count, size int }{{0, 8}, {8, 0}, {0, 0}} {
		p, err := a.Calloc(tc.count, tc.size)
		require.NoError(t, err)
		require.Equal(t, Nil, p)
	}

	_, err := a.Calloc(-1, 8)
	require.ErrorIs(t, err, ErrBadSize)

	_, err = a.Calloc(math.MaxInt, 2)
	require.ErrorIs(t, err, ErrNoSpace)
	requireHeapOK(t, a, "calloc")
}

func TestOutOfMemory(t *testing.T) {
	a, err := New(arena.NewMem(2048), nil)
	require.NoError(t, err)

	mustMalloc(t, a, 1000)
	p, err := a.Malloc(1000)
	require.Equal(t, Nil, p)
	require.ErrorIs(t, err, ErrNoSpace)
	require.ErrorIs(t, err, arena.ErrExhausted)
	requireHeapOK(t, a, "oom")

	// Smaller requests still succeed from the remaining free block.
	mustMalloc(t, a, 400)
}

func TestMalloc_HugeRequest(t *testing.T) {
	a := newTestAllocator(t, nil)
	_, err := a.Malloc(math.MaxInt)
	require.ErrorIs(t, err, ErrNoSpace)
}

func TestPayload_Invalid(t *testing.T) {
	a := newTestAllocator(t, nil)
	require.Nil(t, a.Payload(Nil))
	require.Nil(t, a.Payload(5))
	require.Zero(t, a.UsableSize(Ptr(format.FirstBlockOffset)))
}

func TestErrorsAreDistinct(t *testing.T) {
	all := []error{ErrNoSpace, ErrBadPtr, ErrBadSize, ErrConfig}
	for i, e := range all {
		for j, f := range all {
			require.Equal(t, i == j, errors.Is(e, f))
		}
	}
}
