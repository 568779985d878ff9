package alloc

import "github.com/joshuapare/segalloc/internal/format"

// findFit returns the first indexed block of at least size bytes, searching
// buckets upward from size's own class. It returns 0 if none fits.
func (a *Allocator) findFit(size int) int {
	for k := format.Class(uint32(size)); k < format.NumClasses; k++ {
		for bp := a.heads[k]; bp != 0; bp = a.link(bp) {
			if a.sizeAt(bp) >= size {
				return bp
			}
		}
	}
	return 0
}

// place marks the first size bytes of bp allocated. bp may be free (it is
// unlinked first) or allocated (a realloc target). A non-empty remainder
// becomes a free block, merged with a free right neighbour and indexed if
// large enough.
func (a *Allocator) place(bp, size int) {
	old := a.sizeAt(bp)
	if !a.isAlloc(bp) {
		a.remove(bp)
	}
	a.setBlock(bp, size, true)

	rest := old - size
	if rest == 0 {
		a.setPrevAlloc(bp+size, true)
		return
	}

	a.stats.Splits++
	nbp := bp + size
	a.writeBlock(nbp, rest, false, true)
	nbp = a.coalesce(nbp)
	a.insert(nbp)
	a.log.Debug("split", "ptr", bp, "size", size, "remainder", a.sizeAt(nbp))
}
