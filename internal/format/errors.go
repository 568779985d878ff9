package format

import "errors"

var (
	// ErrTruncated indicates the buffer lacked the bytes required for a structure.
	ErrTruncated = errors.New("format: truncated buffer")
	// ErrZeroSize indicates a non-epilogue block declared a zero size.
	ErrZeroSize = errors.New("format: zero-size block")
	// ErrMisaligned indicates a block size or pointer off the 8-byte grid.
	ErrMisaligned = errors.New("format: misaligned block")
)
