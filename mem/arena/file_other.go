//go:build !linux && !darwin && !freebsd

package arena

import (
	"errors"
	"fmt"
	"os"

	"github.com/joshuapare/segalloc/internal/buf"
)

// File is an arena whose contents are written to a regular file on Sync and
// Close. Platforms without a usable mmap keep the heap in process memory.
type File struct {
	f    *os.File
	data []byte
	max  int
}

// CreateFile creates (or truncates) the file at path and returns an empty
// arena that can grow to maxSize bytes. A non-positive maxSize selects
// DefaultMaxSize.
func CreateFile(path string, maxSize int) (*File, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, err
	}
	return &File{f: f, data: make([]byte, 0, maxSize), max: maxSize}, nil
}

// Grow extends the arena by n zero bytes.
func (a *File) Grow(n int) (int, error) {
	if a.f == nil {
		return 0, ErrClosed
	}
	if n < 0 {
		return 0, ErrNegative
	}
	old := len(a.data)
	if !buf.FitsWithin(old, n, a.max) {
		return 0, fmt.Errorf("%w: grow %d at %d exceeds %d", ErrExhausted, n, old, a.max)
	}
	a.data = a.data[:old+n]
	clear(a.data[old:])
	return old, nil
}

// Low returns the first valid offset.
func (a *File) Low() int { return 0 }

// High returns one past the last valid offset.
func (a *File) High() int { return len(a.data) }

// Bytes returns the arena contents.
func (a *File) Bytes() []byte { return a.data }

// Sync writes the arena contents to the file.
func (a *File) Sync() error {
	if a.f == nil {
		return ErrClosed
	}
	if err := a.f.Truncate(int64(len(a.data))); err != nil {
		return err
	}
	_, err := a.f.WriteAt(a.data, 0)
	return err
}

// Close syncs and closes the file.
func (a *File) Close() error {
	if a.f == nil {
		return nil
	}
	err := errors.Join(a.Sync(), a.f.Close())
	a.f = nil
	a.data = nil
	return err
}
