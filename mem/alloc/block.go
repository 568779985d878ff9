package alloc

import "github.com/joshuapare/segalloc/internal/format"

// Raw word access. Callers guarantee bp names a block inside a.data.

func (a *Allocator) hdr(bp int) uint32 {
	return format.ReadU32(a.data, format.HeaderOffset(bp))
}

func (a *Allocator) sizeAt(bp int) int {
	return int(format.SizeOf(a.hdr(bp)))
}

func (a *Allocator) isAlloc(bp int) bool {
	return format.IsAlloc(a.hdr(bp))
}

func (a *Allocator) prevAlloc(bp int) bool {
	return format.IsPrevAlloc(a.hdr(bp))
}

func (a *Allocator) next(bp int) int {
	return bp + a.sizeAt(bp)
}

// prev is only meaningful when the left neighbour is free, since allocated
// blocks carry no footer.
func (a *Allocator) prev(bp int) int {
	ftr := format.ReadU32(a.data, bp-format.DWordSize)
	return bp - int(format.SizeOf(ftr))
}

// writeBlock stores a header, and a matching footer if the block is free.
func (a *Allocator) writeBlock(bp, size int, alloc, prevAlloc bool) {
	w := format.Pack(uint32(size), alloc, prevAlloc)
	format.PutU32(a.data, format.HeaderOffset(bp), w)
	if !alloc {
		format.PutU32(a.data, format.FooterOffset(bp, uint32(size)), w)
	}
}

// setBlock rewrites size and allocation state, keeping the prev_alloc bit.
func (a *Allocator) setBlock(bp, size int, alloc bool) {
	a.writeBlock(bp, size, alloc, a.prevAlloc(bp))
}

// setPrevAlloc updates the prev_alloc bit in the header and, for free
// blocks, in the footer.
func (a *Allocator) setPrevAlloc(bp int, v bool) {
	w := format.WithPrevAlloc(a.hdr(bp), v)
	format.PutU32(a.data, format.HeaderOffset(bp), w)
	if !format.IsAlloc(w) {
		format.PutU32(a.data, format.FooterOffset(bp, format.SizeOf(w)), w)
	}
}

func (a *Allocator) writeEpilogue(bp int, prevAlloc bool) {
	format.PutU32(a.data, format.HeaderOffset(bp), format.Pack(0, true, prevAlloc))
}

func (a *Allocator) link(bp int) int {
	return int(format.ReadU64(a.data, bp))
}

func (a *Allocator) setLink(bp, next int) {
	format.PutU64(a.data, bp, uint64(next))
}
