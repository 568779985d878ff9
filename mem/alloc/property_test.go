package alloc

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/segalloc/internal/format"
)

type liveBlock struct {
	n    int
	seed byte
}

// Test_Fuzz_RandomOps_GuardInvariants performs random malloc/realloc/calloc/
// free and validates the heap, payload contents and block disjointness after
// every step.
func Test_Fuzz_RandomOps_GuardInvariants(t *testing.T) {
	a := newTestAllocator(t, nil)
	rng := rand.New(rand.NewSource(42)) // Fixed seed for reproducibility
	live := make(map[Ptr]liveBlock)

	randomLive := func() Ptr {
		keys := make([]Ptr, 0, len(live))
		for p := range live {
			keys = append(keys, p)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
		return keys[rng.Intn(len(keys))]
	}

	for i := range 2000 {
		switch op := rng.Intn(10); {
		case op < 4 || len(live) == 0:
			n := 1 + rng.Intn(rng.Intn(4096)+1)
			p := mustMalloc(t, a, n)
			seed := byte(i)
			fill(a.Payload(p)[:n], seed)
			live[p] = liveBlock{n: n, seed: seed}

		case op < 5:
			count, size := 1+rng.Intn(32), 1+rng.Intn(64)
			p, err := a.Calloc(count, size)
			require.NoError(t, err)
			require.Equal(t, make([]byte, count*size), a.Payload(p)[:count*size], "step %d", i)
			seed := byte(i)
			fill(a.Payload(p)[:count*size], seed)
			live[p] = liveBlock{n: count * size, seed: seed}

		case op < 7:
			p := randomLive()
			old := live[p]
			n := 1 + rng.Intn(2*old.n+64)
			q, err := a.Realloc(p, n)
			require.NoError(t, err, "step %d", i)
			requireFilled(t, a.Payload(q), old.seed, min(old.n, n))
			delete(live, p)
			fill(a.Payload(q)[:n], old.seed)
			live[q] = liveBlock{n: n, seed: old.seed}

		default:
			p := randomLive()
			requireFilled(t, a.Payload(p), live[p].seed, live[p].n)
			require.NoError(t, a.Free(p), "step %d", i)
			delete(live, p)
		}

		requireHeapOK(t, a, "random")
		requireDisjoint(t, a, live)
	}

	st := a.Stats()
	require.Zero(t, st.ListMisses)
	require.Zero(t, st.DoubleFrees)
	t.Logf("%d live blocks, heap %d bytes, stats %+v", len(live), a.HeapSize(), st)
}

// requireDisjoint checks that live payloads are aligned, inside the heap and
// do not overlap each other.
func requireDisjoint(t *testing.T, a *Allocator, live map[Ptr]liveBlock) {
	t.Helper()
	ptrs := make([]Ptr, 0, len(live))
	for p := range live {
		ptrs = append(ptrs, p)
	}
	sort.Slice(ptrs, func(i, j int) bool { return ptrs[i] < ptrs[j] })

	end := 0
	for _, p := range ptrs {
		start := int(p) - format.WordSize
		require.Zero(t, int(p)%format.Alignment)
		require.GreaterOrEqual(t, start, end, "block %#x overlaps its predecessor", p)
		end = int(p) + a.UsableSize(p)
		require.LessOrEqual(t, end, a.HeapSize())
	}
}

func Test_Fuzz_AllocFreeAll_RestoresSingleBlock(t *testing.T) {
	a := newTestAllocator(t, nil)
	rng := rand.New(rand.NewSource(7))

	var ptrs []Ptr
	for range 500 {
		ptrs = append(ptrs, mustMalloc(t, a, 1+rng.Intn(2000)))
	}
	rng.Shuffle(len(ptrs), func(i, j int) { ptrs[i], ptrs[j] = ptrs[j], ptrs[i] })
	for _, p := range ptrs {
		require.NoError(t, a.Free(p))
	}

	r := requireHeapOK(t, a, "all freed")
	require.Equal(t, 1, r.FreeBlocks)
	require.Equal(t, a.HeapSize()-format.HeapOverhead, r.FreeBytes)
}
