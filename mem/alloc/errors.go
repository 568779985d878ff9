package alloc

import "errors"

var (
	// ErrNoSpace indicates that no free block was large enough and the arena
	// could not grow.
	ErrNoSpace = errors.New("alloc: out of memory")

	// ErrBadPtr indicates a pointer outside the heap, off the 8-byte grid, or
	// naming a block that is not allocated where one is required.
	ErrBadPtr = errors.New("alloc: bad pointer")

	// ErrBadSize indicates a negative size or count.
	ErrBadSize = errors.New("alloc: negative size")

	// ErrConfig indicates an unusable configuration.
	ErrConfig = errors.New("alloc: invalid config")
)
