package format

// Align8 returns n aligned up to the next 8-byte boundary.
//
// Example:
//
//	Align8(1)  = 8
//	Align8(8)  = 8
//	Align8(9)  = 16
func Align8(n int) int {
	return (n + AlignmentMask) &^ AlignmentMask
}

// BlockSize returns the total block size needed to hold a payload of n bytes.
//
// An allocated block carries only a header, so the payload may run up to the
// next block's header. Requests below 5 bytes get a minimal 16-byte block so
// the block can hold a free-list link once it is freed; larger requests are
// rounded so that (size - 4) covers n:
//
//	BlockSize(1)  = 16
//	BlockSize(12) = 16
//	BlockSize(13) = 24
//	BlockSize(100) = 104
func BlockSize(n int) int {
	if n < 5 {
		return MinBlockSize
	}
	return Align8(n-WordSize) + DWordSize
}

// Class returns the free-list bucket for a block of the given size: the
// smallest k in [0, NumClasses) with 2^(k+ClassShift) >= size, saturating at
// the last bucket.
func Class(size uint32) int {
	k := 0
	for k < NumClasses-1 && uint64(1)<<(k+ClassShift) < uint64(size) {
		k++
	}
	return k
}
