//go:build linux || darwin || freebsd

package arena

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/joshuapare/segalloc/internal/buf"
)

// File is an arena backed by a shared memory mapping of a regular file.
// Growing the arena extends the file and remaps it, so the heap image on disk
// always mirrors the allocator's view after Sync.
type File struct {
	f    *os.File
	data []byte
	size int
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
	return &File{f: f, max: maxSize}, nil
}

// Grow extends the file by n zero bytes and remaps it.
func (a *File) Grow(n int) (int, error) {
	if a.f == nil {
		return 0, ErrClosed
	}
	if n < 0 {
		return 0, ErrNegative
	}
	old := a.size
	if !buf.FitsWithin(old, n, a.max) {
		return 0, fmt.Errorf("%w: grow %d at %d exceeds %d", ErrExhausted, n, old, a.max)
	}
	if n == 0 {
		return old, nil
	}
	newSize := old + n

	// Truncate extends with zeros. The old mapping stays valid until the new
	// one is in place, so a failed grow leaves Bytes untouched.
	if err := a.f.Truncate(int64(newSize)); err != nil {
		return 0, fmt.Errorf("%w: truncate: %w", ErrExhausted, err)
	}
	data, err := unix.Mmap(int(a.f.Fd()), 0, newSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = a.f.Truncate(int64(old))
		return 0, fmt.Errorf("%w: remap after grow: %w", ErrExhausted, err)
	}
	if a.data != nil {
		_ = unix.Munmap(a.data)
	}
	a.data = data
	a.size = newSize
	return old, nil
}

// Low returns the first valid offset.
func (a *File) Low() int { return 0 }

// High returns one past the last valid offset.
func (a *File) High() int { return a.size }

// Bytes returns the mapped contents. The slice is invalid after Grow or Close.
func (a *File) Bytes() []byte { return a.data }

// Sync flushes the mapping to disk.
func (a *File) Sync() error {
	if a.f == nil {
		return ErrClosed
	}
	if a.data == nil {
		return nil
	}
	return unix.Msync(a.data, unix.MS_SYNC)
}

// Close unmaps and closes the file. The heap image stays on disk.
func (a *File) Close() error {
	if a.f == nil {
		return nil
	}
	var errs []error
	if a.data != nil {
		errs = append(errs, unix.Msync(a.data, unix.MS_SYNC))
		if err := unix.Munmap(a.data); err != nil && !errors.Is(err, unix.EINVAL) {
			errs = append(errs, err)
		}
		a.data = nil
	}
	errs = append(errs, a.f.Close())
	a.f = nil
	return errors.Join(errs...)
}
