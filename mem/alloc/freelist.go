package alloc

import "github.com/joshuapare/segalloc/internal/format"

// insert pushes the free block bp onto the head of its bucket. Blocks
// smaller than MinBlockSize have no room for a link and are left unindexed.
func (a *Allocator) insert(bp int) {
	size := a.sizeAt(bp)
	if size < format.MinBlockSize {
		return
	}
	if a.isAlloc(bp) {
		a.log.Error("refusing to index an allocated block", "ptr", bp, "size", size)
		return
	}
	k := format.Class(uint32(size))
	a.setLink(bp, a.heads[k])
	a.heads[k] = bp
}

// remove unlinks bp from its bucket. A block missing from the bucket is
// logged and counted; the call then returns without touching the lists.
func (a *Allocator) remove(bp int) {
	size := a.sizeAt(bp)
	if size < format.MinBlockSize {
		return
	}
	k := format.Class(uint32(size))
	if a.heads[k] == bp {
		a.heads[k] = a.link(bp)
		return
	}
	for cur := a.heads[k]; cur != 0; cur = a.link(cur) {
		if nxt := a.link(cur); nxt == bp {
			a.setLink(cur, a.link(bp))
			return
		}
	}
	a.stats.ListMisses++
	a.log.Error("cannot remove a block that is not on its free list",
		"ptr", bp, "size", size, "bucket", k)
}
