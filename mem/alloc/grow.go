package alloc

import (
	"fmt"

	"github.com/joshuapare/segalloc/internal/format"
)

// extendHeap grows the arena so that a free block of at least size bytes
// ends the heap, and returns that block (already coalesced and indexed).
//
// Requests of at least ChunkSize are served exactly; smaller ones take a
// whole chunk, falling back to the exact size if the chunk cannot be had.
func (a *Allocator) extendHeap(size int) (int, error) {
	size = format.Align8(size)
	epi := len(a.data)
	palloc := a.prevAlloc(epi)

	n := size
	if size < a.cfg.ChunkSize {
		n = a.cfg.ChunkSize
	}
	if uint64(epi)+uint64(n) > uint64(format.MaxBlockSize) {
		n = size
	}
	if uint64(epi)+uint64(n) > uint64(format.MaxBlockSize) {
		return 0, fmt.Errorf("%w: heap would exceed 32-bit offsets", ErrNoSpace)
	}

	bp, err := a.ar.Grow(n)
	if err != nil && n != size {
		a.log.Debug("chunk growth failed, retrying exact", "chunk", n, "size", size, "error", err)
		n = size
		bp, err = a.ar.Grow(n)
	}
	// A failed Grow may still have moved the arena's view.
	a.data = a.ar.Bytes()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrNoSpace, err)
	}
	if bp != epi {
		// The arena handed back a region that does not start at the old
		// epilogue; treat it as lost rather than corrupt the chain.
		return 0, fmt.Errorf("%w: arena grew at %#x, expected %#x", ErrNoSpace, bp, epi)
	}
	a.stats.GrowCalls++
	a.stats.GrowBytes += int64(n)

	// The old epilogue header becomes the new block's header.
	a.writeBlock(bp, n, false, palloc)
	a.writeEpilogue(bp+n, false)
	bp = a.coalesce(bp)
	a.insert(bp)

	a.log.Debug("heap extended", "bytes", n, "heap_size", a.HeapSize(), "block", bp, "block_size", a.sizeAt(bp))
	return bp, nil
}
