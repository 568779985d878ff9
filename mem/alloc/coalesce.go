package alloc

// coalesce merges the free block bp with free neighbours and returns the
// merged block. Absorbed neighbours are unlinked; the result is not indexed.
func (a *Allocator) coalesce(bp int) int {
	if nbp := a.next(bp); !a.isAlloc(nbp) {
		a.remove(nbp)
		a.setBlock(bp, a.sizeAt(bp)+a.sizeAt(nbp), false)
		a.stats.CoalesceForward++
	}

	if !a.prevAlloc(bp) {
		pbp := a.prev(bp)
		a.remove(pbp)
		a.setBlock(pbp, a.sizeAt(pbp)+a.sizeAt(bp), false)
		a.stats.CoalesceBackward++
		bp = pbp
	}

	a.setPrevAlloc(bp, true)
	a.setPrevAlloc(a.next(bp), false)
	return bp
}
