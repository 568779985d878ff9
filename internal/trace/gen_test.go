package trace

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerate_ValidAndBalanced(t *testing.T) {
	for _, p := range []Profile{
		{Seed: 1},
		{Seed: 2, NumOps: 50, MinSize: 8, MaxSize: 64},
		{Seed: 3, NumOps: 3, FreePct: 0.9},
		{Seed: 4, NumOps: 500, ReallocPct: 0.6},
	} {
		tr := Generate(p)
		require.NoError(t, tr.Validate(), "seed %d", p.Seed)

		want := p.NumOps
		if want == 0 {
			want = 1000
		}
		require.LessOrEqual(t, len(tr.Ops), want)
		require.GreaterOrEqual(t, len(tr.Ops), want-1)

		live := make(map[int]bool)
		for _, op := range tr.Ops {
			switch op.Kind {
			case Alloc:
				live[op.ID] = true
			case Free:
				delete(live, op.ID)
			}
			if op.Kind != Free && p.MaxSize > 0 {
				require.GreaterOrEqual(t, op.Size, p.MinSize)
				require.LessOrEqual(t, op.Size, p.MaxSize)
			}
		}
		require.Empty(t, live, "seed %d leaves blocks live", p.Seed)
		require.Positive(t, tr.HeapSize)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a := Generate(Profile{Seed: 99, NumOps: 200})
	b := Generate(Profile{Seed: 99, NumOps: 200})
	require.Equal(t, a, b)

	c := Generate(Profile{Seed: 100, NumOps: 200})
	require.NotEqual(t, a.Ops, c.Ops)
}

func TestGenerate_ParsesBack(t *testing.T) {
	tr := Generate(Profile{Seed: 5, NumOps: 300})
	var out bytes.Buffer
	require.NoError(t, Write(&out, tr))

	back, err := Parse(&out)
	require.NoError(t, err)
	require.Len(t, back.Ops, len(tr.Ops))
	for i := range tr.Ops {
		require.Equal(t, tr.Ops[i].String(), back.Ops[i].String())
	}
}
