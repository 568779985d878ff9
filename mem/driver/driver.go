// Package driver replays allocation traces against an allocator and checks
// every block it hands out.
//
// For each operation the driver verifies that returned payloads are 8-byte
// aligned, lie inside the heap and do not overlap any other live payload.
// Payloads are filled with an id-derived byte pattern that must survive
// reallocation (up to the smaller of the two sizes) and still be intact
// when the block is freed. Optionally the heap checker runs after every
// operation.
//
// After replay, Result reports peak utilisation (the largest total of live
// payload bytes divided by the final heap size) and throughput.
package driver

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/joshuapare/segalloc/internal/format"
	"github.com/joshuapare/segalloc/internal/trace"
	"github.com/joshuapare/segalloc/mem/alloc"
)

var (
	// ErrMisaligned indicates a returned pointer off the 8-byte grid.
	ErrMisaligned = errors.New("driver: payload not 8-byte aligned")
	// ErrBounds indicates a payload that does not fit inside the heap.
	ErrBounds = errors.New("driver: payload outside heap")
	// ErrOverlap indicates a payload sharing bytes with another live block.
	ErrOverlap = errors.New("driver: payload overlaps a live block")
	// ErrCorrupt indicates payload bytes that changed while the block was live.
	ErrCorrupt = errors.New("driver: payload bytes changed")
	// ErrHeap indicates a failed heap check after an operation.
	ErrHeap = errors.New("driver: heap check failed")
	// ErrAllocator indicates an allocator call that returned an error.
	ErrAllocator = errors.New("driver: allocator call failed")
)

// OpError identifies the failing operation.
type OpError struct {
	Index int      // 0-based position in the trace
	Op    trace.Op // the operation being replayed
	Err   error
}

func (e *OpError) Error() string {
	if e.Op.Line > 0 {
		return fmt.Sprintf("op %d (line %d, %s): %v", e.Index, e.Op.Line, e.Op, e.Err)
	}
	return fmt.Sprintf("op %d (%s): %v", e.Index, e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// Options control a replay.
type Options struct {
	// Check runs the heap checker after every operation.
	Check bool

	// Logger receives per-trace summaries at debug level. Nil discards.
	Logger *slog.Logger
}

// Result summarises one replay.
type Result struct {
	Trace      string        `json:"trace"`
	Ops        int           `json:"ops"`
	PeakLive   int           `json:"peak_live_bytes"`
	HeapSize   int           `json:"heap_size"`
	Util       float64       `json:"utilization"`
	Elapsed    time.Duration `json:"elapsed_ns"`
	Throughput float64       `json:"ops_per_sec"`
	Stats      alloc.Stats   `json:"stats"`
}

type span struct {
	start, end int // payload [start, end)
	id         int
}

// Replay runs t against a, which must be freshly created.
func Replay(a *alloc.Allocator, t *trace.Trace, opts *Options) (*Result, error) {
	if opts == nil {
		opts = &Options{}
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	r := &replay{
		a:     a,
		ptrs:  make([]alloc.Ptr, t.NumIDs),
		sizes: make([]int, t.NumIDs),
	}
	start := time.Now()
	for i, op := range t.Ops {
		if err := r.apply(op); err != nil {
			return nil, &OpError{Index: i, Op: op, Err: err}
		}
		if opts.Check {
			if rep := a.Check(fmt.Sprintf("op %d", i)); !rep.OK() {
				return nil, &OpError{Index: i, Op: op, Err: fmt.Errorf("%w: %w", ErrHeap, rep.Err())}
			}
		}
	}
	elapsed := time.Since(start)

	res := &Result{
		Trace:    t.Name,
		Ops:      len(t.Ops),
		PeakLive: r.peak,
		HeapSize: a.HeapSize(),
		Elapsed:  elapsed,
		Stats:    a.Stats(),
	}
	if res.HeapSize > 0 {
		res.Util = float64(r.peak) / float64(res.HeapSize)
	}
	if elapsed > 0 {
		res.Throughput = float64(res.Ops) / elapsed.Seconds()
	}
	log.Debug("trace replayed",
		"trace", t.Name, "ops", res.Ops, "util", res.Util, "heap", res.HeapSize, "elapsed", elapsed)
	return res, nil
}

type replay struct {
	a     *alloc.Allocator
	ptrs  []alloc.Ptr
	sizes []int
	live  []span // sorted by start
	cur   int
	peak  int
}

func (r *replay) apply(op trace.Op) error {
	switch op.Kind {
	case trace.Alloc:
		p, err := r.a.Malloc(op.Size)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrAllocator, err)
		}
		return r.bind(op.ID, p, op.Size, 0)

	case trace.Realloc:
		old, oldSize := r.ptrs[op.ID], r.sizes[op.ID]
		if old != alloc.Nil {
			if err := r.verify(op.ID); err != nil {
				return err
			}
			r.unbind(op.ID)
		}
		p, err := r.a.Realloc(old, op.Size)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrAllocator, err)
		}
		keep := min(oldSize, op.Size)
		if p != alloc.Nil {
			if err := checkPattern(r.a.Payload(p), op.ID, keep); err != nil {
				return err
			}
		}
		return r.bind(op.ID, p, op.Size, keep)

	case trace.Free:
		if r.ptrs[op.ID] != alloc.Nil {
			if err := r.verify(op.ID); err != nil {
				return err
			}
			r.unbind(op.ID)
		}
		if err := r.a.Free(r.ptrs[op.ID]); err != nil {
			return fmt.Errorf("%w: %w", ErrAllocator, err)
		}
		r.ptrs[op.ID], r.sizes[op.ID] = alloc.Nil, 0
		return nil
	}
	return fmt.Errorf("%w: unknown operation %q", trace.ErrSyntax, byte(op.Kind))
}

// bind records p as the block for id, checks its placement and fills bytes
// [from, n) with the id pattern.
func (r *replay) bind(id int, p alloc.Ptr, n, from int) error {
	r.ptrs[id], r.sizes[id] = p, n
	if p == alloc.Nil {
		return nil
	}

	off := int(p)
	if off%format.Alignment != 0 {
		return fmt.Errorf("%w: %#x", ErrMisaligned, off)
	}
	payload := r.a.Payload(p)
	lo, hi := r.a.Bounds()
	if payload == nil || len(payload) < n || off < lo || off+n > hi {
		return fmt.Errorf("%w: %#x+%d", ErrBounds, off, n)
	}

	s := span{start: off, end: off + n, id: id}
	i, _ := slices.BinarySearchFunc(r.live, s.start, func(e span, t int) int { return e.start - t })
	if i > 0 && r.live[i-1].end > s.start {
		return fmt.Errorf("%w: [%#x,%#x) overlaps id %d [%#x,%#x)",
			ErrOverlap, s.start, s.end, r.live[i-1].id, r.live[i-1].start, r.live[i-1].end)
	}
	if i < len(r.live) && r.live[i].start < s.end {
		return fmt.Errorf("%w: [%#x,%#x) overlaps id %d [%#x,%#x)",
			ErrOverlap, s.start, s.end, r.live[i].id, r.live[i].start, r.live[i].end)
	}
	r.live = slices.Insert(r.live, i, s)

	for j := from; j < n; j++ {
		payload[j] = patternByte(id, j)
	}
	r.cur += n
	r.peak = max(r.peak, r.cur)
	return nil
}

func (r *replay) unbind(id int) {
	start := int(r.ptrs[id])
	if i, ok := slices.BinarySearchFunc(r.live, start, func(e span, t int) int { return e.start - t }); ok {
		r.live = slices.Delete(r.live, i, i+1)
	}
	r.cur -= r.sizes[id]
}

func (r *replay) verify(id int) error {
	return checkPattern(r.a.Payload(r.ptrs[id]), id, r.sizes[id])
}

func checkPattern(payload []byte, id, n int) error {
	if len(payload) < n {
		return fmt.Errorf("%w: id %d payload shrank to %d bytes, want %d", ErrCorrupt, id, len(payload), n)
	}
	for j := range n {
		if payload[j] != patternByte(id, j) {
			return fmt.Errorf("%w: id %d byte %d = %#x, want %#x", ErrCorrupt, id, j, payload[j], patternByte(id, j))
		}
	}
	return nil
}

func patternByte(id, j int) byte {
	return byte(id*131 + j*7 + 1)
}
