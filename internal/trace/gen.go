package trace

import (
	"fmt"
	"math/rand/v2"
)

// Profile defines the characteristics of a generated trace.
type Profile struct {
	// NumOps is the total number of operations, including the frees that
	// release every block at the end. 0 = 1000.
	NumOps int

	// MinSize and MaxSize bound request sizes. 0 = 1 and 4096.
	MinSize int
	MaxSize int

	// FreePct and ReallocPct are the probabilities (0.0-1.0) of freeing or
	// reallocating a live block instead of allocating a new one.
	// Both zero = 0.35 and 0.15.
	FreePct    float64
	ReallocPct float64

	// Seed for reproducibility.
	Seed int64
}

// Generate creates a valid trace with the given profile. Every allocated id
// is freed by the end of the trace.
func Generate(p Profile) *Trace {
	if p.NumOps == 0 {
		p.NumOps = 1000
	}
	if p.MinSize == 0 {
		p.MinSize = 1
	}
	if p.MaxSize == 0 {
		p.MaxSize = 4096
	}
	if p.MaxSize < p.MinSize {
		p.MaxSize = p.MinSize
	}
	if p.FreePct == 0 && p.ReallocPct == 0 {
		p.FreePct = 0.35
		p.ReallocPct = 0.15
	}

	rng := rand.New(rand.NewPCG(uint64(p.Seed), uint64(p.Seed)))
	size := func() int { return p.MinSize + rng.IntN(p.MaxSize-p.MinSize+1) }

	t := &Trace{Name: fmt.Sprintf("gen-%d", p.Seed), Weight: 1}
	var live []int
	sizes := make(map[int]int)
	cur, peak := 0, 0

	for len(t.Ops)+len(live) < p.NumOps {
		budget := p.NumOps - len(t.Ops) - len(live)
		roll := rng.Float64()
		switch {
		case len(live) > 0 && roll < p.FreePct:
			i := rng.IntN(len(live))
			id := live[i]
			live[i] = live[len(live)-1]
			live = live[:len(live)-1]
			cur -= sizes[id]
			t.Ops = append(t.Ops, Op{Kind: Free, ID: id})

		case len(live) > 0 && (roll < p.FreePct+p.ReallocPct || budget < 2):
			id := live[rng.IntN(len(live))]
			n := size()
			cur += n - sizes[id]
			sizes[id] = n
			t.Ops = append(t.Ops, Op{Kind: Realloc, ID: id, Size: n})

		case budget >= 2:
			id := t.NumIDs
			t.NumIDs++
			n := size()
			sizes[id] = n
			cur += n
			live = append(live, id)
			t.Ops = append(t.Ops, Op{Kind: Alloc, ID: id, Size: n})

		default:
			// One operation left and nothing live to spend it on.
			p.NumOps = len(t.Ops)
		}
		peak = max(peak, cur)
	}
	for _, id := range live {
		t.Ops = append(t.Ops, Op{Kind: Free, ID: id})
	}
	t.HeapSize = peak
	return t
}
