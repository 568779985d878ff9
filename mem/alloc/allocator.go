package alloc

import (
	"fmt"
	"log/slog"

	"github.com/joshuapare/segalloc/internal/buf"
	"github.com/joshuapare/segalloc/internal/format"
	"github.com/joshuapare/segalloc/mem/arena"
)

// Allocator is a segregated-fit allocator over one arena.
type Allocator struct {
	ar   arena.Arena
	data []byte // current arena view, refreshed after every Grow

	prologue int                    // prologue block pointer
	heads    [format.NumClasses]int // bucket heads, 0 = empty
	cfg      Config
	log      *slog.Logger
	stats    Stats
}

// New initialises a heap in a and returns an allocator managing it. A nil
// cfg selects DefaultConfig.
//
// The heap starts at the current high end of the arena, padded to the
// 8-byte grid, and consists of a prologue, one free block of
// cfg.InitialSize bytes and an epilogue.
func New(a arena.Arena, cfg *Config) (*Allocator, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: nil arena", ErrConfig)
	}
	c := DefaultConfig
	if cfg != nil {
		c = *cfg
	}
	c, err := c.withDefaults()
	if err != nil {
		return nil, err
	}

	base := a.High()
	lead := (format.Alignment - base%format.Alignment) % format.Alignment
	start, err := a.Grow(lead + format.HeapOverhead + c.InitialSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoSpace, err)
	}
	start += lead

	al := &Allocator{
		ar:       a,
		data:     a.Bytes(),
		prologue: start + format.PrologueOffset,
		cfg:      c,
		log:      c.Logger,
	}
	if uint64(a.High()) > uint64(format.MaxBlockSize) {
		return nil, fmt.Errorf("%w: arena offsets exceed 32 bits", ErrConfig)
	}

	// Padding word, then the prologue's header and footer.
	pw := format.Pack(format.PrologueSize, true, false)
	format.PutU32(al.data, start, 0)
	format.PutU32(al.data, format.HeaderOffset(al.prologue), pw)
	format.PutU32(al.data, format.FooterOffset(al.prologue, format.PrologueSize), pw)

	first := start + format.FirstBlockOffset
	al.writeBlock(first, c.InitialSize, false, true)
	al.writeEpilogue(first+c.InitialSize, false)
	al.insert(first)

	al.log.Debug("heap initialised",
		"start", start, "first_block", first, "size", c.InitialSize)
	al.debugCheck("init")
	return al, nil
}

// Malloc returns a pointer to at least n usable bytes. Malloc(0) returns
// Nil without error.
func (a *Allocator) Malloc(n int) (Ptr, error) {
	if n < 0 {
		return Nil, ErrBadSize
	}
	if n == 0 {
		return Nil, nil
	}
	p, err := a.malloc(n)
	a.debugCheck("malloc")
	return p, err
}

func (a *Allocator) malloc(n int) (Ptr, error) {
	a.stats.MallocCalls++
	if uint64(n) > uint64(format.MaxBlockSize)-format.DWordSize {
		return Nil, fmt.Errorf("%w: request of %d bytes", ErrNoSpace, n)
	}
	asize := format.BlockSize(n)

	bp := a.findFit(asize)
	if bp == 0 {
		var err error
		if bp, err = a.extendHeap(asize); err != nil {
			return Nil, err
		}
	}
	a.place(bp, asize)
	return Ptr(bp), nil
}

// Free releases p. Free(Nil) and freeing an already free block are no-ops.
func (a *Allocator) Free(p Ptr) error {
	if p == Nil {
		return nil
	}
	bp, err := a.validate(p)
	if err != nil {
		return err
	}
	a.free(bp)
	a.debugCheck("free")
	return nil
}

func (a *Allocator) free(bp int) {
	a.stats.FreeCalls++
	if !a.isAlloc(bp) {
		a.stats.DoubleFrees++
		a.log.Debug("free of free block ignored", "ptr", bp)
		return
	}
	a.setBlock(bp, a.sizeAt(bp), false)
	a.insert(a.coalesce(bp))
}

// Calloc allocates count*size zeroed bytes. A zero count or size returns
// Nil without error; a product that overflows reports ErrNoSpace.
func (a *Allocator) Calloc(count, size int) (Ptr, error) {
	if count < 0 || size < 0 {
		return Nil, ErrBadSize
	}
	if count == 0 || size == 0 {
		return Nil, nil
	}
	a.stats.CallocCalls++
	n, ok := buf.MulOverflowSafe(count, size)
	if !ok {
		return Nil, fmt.Errorf("%w: %d * %d overflows", ErrNoSpace, count, size)
	}
	p, err := a.malloc(n)
	if err == nil {
		clear(a.data[int(p) : int(p)+n])
	}
	a.debugCheck("calloc")
	return p, err
}

// Payload returns the usable bytes of the allocated block p, or nil if p is
// not a valid allocated block. The slice is invalidated by any call that
// may grow the arena.
func (a *Allocator) Payload(p Ptr) []byte {
	bp, err := a.validate(p)
	if err != nil || !a.isAlloc(bp) {
		return nil
	}
	end := bp + a.sizeAt(bp) - format.WordSize
	return a.data[bp:end:end]
}

// UsableSize returns len(Payload(p)).
func (a *Allocator) UsableSize(p Ptr) int {
	return len(a.Payload(p))
}

// HeapSize returns the number of arena bytes the heap spans, including the
// prologue and epilogue.
func (a *Allocator) HeapSize() int {
	return len(a.data) - (a.prologue - format.PrologueOffset)
}

// Bounds returns the arena offsets [lo, hi) spanned by the heap.
func (a *Allocator) Bounds() (lo, hi int) {
	return a.prologue - format.PrologueOffset, len(a.data)
}

// Stats returns a snapshot of the allocator counters.
func (a *Allocator) Stats() Stats {
	return a.stats
}

// Walk calls fn for every block between the prologue and the epilogue in
// address order, stopping early if fn returns false.
func (a *Allocator) Walk(fn func(Block) bool) {
	for bp := a.prologue + format.PrologueSize; ; {
		w := a.hdr(bp)
		size := int(format.SizeOf(w))
		if size == 0 {
			return
		}
		if !fn(Block{Ptr: Ptr(bp), Size: size, Free: !format.IsAlloc(w), PrevAlloc: format.IsPrevAlloc(w)}) {
			return
		}
		bp += size
	}
}

// FreeBlocks returns the indexed free blocks per bucket in list order.
func (a *Allocator) FreeBlocks() [format.NumClasses][]Ptr {
	var out [format.NumClasses][]Ptr
	for k, bp := range a.heads {
		for ; bp != 0; bp = a.link(bp) {
			out[k] = append(out[k], Ptr(bp))
		}
	}
	return out
}

// validate bounds-checks p and returns it as a block pointer.
func (a *Allocator) validate(p Ptr) (int, error) {
	bp := int(p)
	first := a.prologue + format.PrologueSize
	if bp&format.AlignmentMask != 0 || bp < first || bp >= len(a.data) {
		return 0, fmt.Errorf("%w: %#x", ErrBadPtr, bp)
	}
	size := a.sizeAt(bp)
	if size < format.FragmentSize || !buf.FitsWithin(bp, size, len(a.data)) {
		return 0, fmt.Errorf("%w: %#x has size %d", ErrBadPtr, bp, size)
	}
	return bp, nil
}
