package alloc

import (
	"sync"

	"github.com/joshuapare/segalloc/mem/verify"
)

// Locked serialises every call to an Allocator with a mutex.
type Locked struct {
	mu sync.Mutex
	a  *Allocator
}

// NewLocked wraps a. The caller must not use a directly afterwards.
func NewLocked(a *Allocator) *Locked {
	return &Locked{a: a}
}

func (l *Locked) Malloc(n int) (Ptr, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Malloc(n)
}

func (l *Locked) Free(p Ptr) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Free(p)
}

func (l *Locked) Realloc(p Ptr, n int) (Ptr, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Realloc(p, n)
}

func (l *Locked) Calloc(count, size int) (Ptr, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Calloc(count, size)
}

func (l *Locked) Check(label string) *verify.Report {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Check(label)
}

func (l *Locked) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Stats()
}

// With runs fn while holding the lock, for access to payload bytes.
func (l *Locked) With(fn func(*Allocator)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l.a)
}
