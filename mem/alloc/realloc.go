package alloc

import (
	"fmt"

	"github.com/joshuapare/segalloc/internal/format"
)

// Realloc resizes the allocation p to n bytes and returns its possibly
// moved address. Realloc(Nil, n) behaves as Malloc(n); Realloc(p, 0) frees
// p and returns Nil.
//
// Growth is attempted in place first, in this order: absorbing a free left
// neighbour, absorbing both neighbours, shrinking within the block, and
// absorbing a free right neighbour. Only then is the block freed and a new
// one allocated. In that case p is released even when the new allocation
// fails, so the caller must not use p after an error from a growing call.
func (a *Allocator) Realloc(p Ptr, n int) (Ptr, error) {
	if n < 0 {
		return Nil, ErrBadSize
	}
	if p == Nil {
		return a.Malloc(n)
	}
	bp, err := a.validate(p)
	if err != nil {
		return Nil, err
	}
	if !a.isAlloc(bp) {
		return Nil, fmt.Errorf("%w: %#x is not allocated", ErrBadPtr, bp)
	}
	if n == 0 {
		a.free(bp)
		a.debugCheck("realloc")
		return Nil, nil
	}
	if uint64(n) > uint64(format.MaxBlockSize)-format.DWordSize {
		return Nil, fmt.Errorf("%w: request of %d bytes", ErrNoSpace, n)
	}

	a.stats.ReallocCalls++
	np, err := a.realloc(bp, n)
	a.debugCheck("realloc")
	return np, err
}

func (a *Allocator) realloc(bp, n int) (Ptr, error) {
	asize := format.BlockSize(n)
	old := a.sizeAt(bp)
	keep := min(old, asize) - format.WordSize

	nbp := a.next(bp)
	nextFree := !a.isAlloc(nbp)
	nsize := a.sizeAt(nbp)

	if !a.prevAlloc(bp) {
		pbp := a.prev(bp)
		psize := a.sizeAt(pbp)
		switch {
		case old+psize >= asize:
			a.stats.ReallocPrev++
			a.remove(pbp)
			copy(a.data[pbp:pbp+keep], a.data[bp:bp+keep])
			a.setBlock(pbp, old+psize, true)
			a.place(pbp, asize)
			return Ptr(pbp), nil
		case nextFree && old+psize+nsize >= asize:
			a.stats.ReallocBoth++
			a.remove(pbp)
			a.remove(nbp)
			copy(a.data[pbp:pbp+keep], a.data[bp:bp+keep])
			a.setBlock(pbp, old+psize+nsize, true)
			a.place(pbp, asize)
			return Ptr(pbp), nil
		}
	}

	switch {
	case old >= asize:
		a.stats.ReallocShrink++
		a.place(bp, asize)
		return Ptr(bp), nil
	case nextFree && old+nsize >= asize:
		a.stats.ReallocNext++
		a.remove(nbp)
		a.setBlock(bp, old+nsize, true)
		a.place(bp, asize)
		return Ptr(bp), nil
	}

	return a.moveRealloc(bp, n, old)
}

// moveRealloc frees bp and copies its payload into a fresh block. The first
// eight payload bytes and the last payload word are overwritten by free-list
// bookkeeping once bp is freed, so they are saved beforehand.
func (a *Allocator) moveRealloc(bp, n, old int) (Ptr, error) {
	a.stats.ReallocCopy++
	tailOff := old - format.DWordSize
	head := format.ReadU64(a.data, bp)
	tail := format.ReadU32(a.data, bp+tailOff)

	a.free(bp)
	p, err := a.malloc(n)
	if err != nil {
		return Nil, err
	}
	np := int(p)

	// The new block may overlap the old one; copy handles that.
	copy(a.data[np+format.DWordSize:np+tailOff], a.data[bp+format.DWordSize:bp+tailOff])
	format.PutU64(a.data, np, head)
	format.PutU32(a.data, np+tailOff, tail)
	return p, nil
}
