package format

// Pack encodes a block size and its two flag bits into a header word.
// size must already be a multiple of 8.
func Pack(size uint32, alloc, prevAlloc bool) uint32 {
	w := size & SizeMask
	if alloc {
		w |= AllocBit
	}
	if prevAlloc {
		w |= PrevAllocBit
	}
	return w
}

// SizeOf extracts the block size from a header word.
func SizeOf(w uint32) uint32 { return w & SizeMask }

// IsAlloc reports whether the allocated bit is set.
func IsAlloc(w uint32) bool { return w&AllocBit != 0 }

// IsPrevAlloc reports whether the previous-allocated bit is set.
func IsPrevAlloc(w uint32) bool { return w&PrevAllocBit != 0 }

// WithPrevAlloc returns w with only the previous-allocated bit changed.
func WithPrevAlloc(w uint32, prevAlloc bool) uint32 {
	if prevAlloc {
		return w | PrevAllocBit
	}
	return w &^ PrevAllocBit
}

// HeaderOffset returns the offset of the header word of block bp.
func HeaderOffset(bp int) int { return bp - WordSize }

// FooterOffset returns the offset of the footer word of block bp with the given size.
func FooterOffset(bp int, size uint32) int { return bp + int(size) - DWordSize }
