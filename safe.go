package vec

import (
	"sync"
	"unsafe"
)

// LockedAllocator is a mutex-protected wrapper around an Allocator so that
// containers owned by different goroutines can share one Arena or Mmap.
// The containers themselves remain single-owner.
type LockedAllocator struct {
	mu sync.Mutex
	a  Allocator
}

// Locked wraps a for concurrent use.
func Locked(a Allocator) *LockedAllocator {
	if a == nil {
		a = global
	}
	return &LockedAllocator{a: a}
}

// Unwrap returns the wrapped allocator.
func (s *LockedAllocator) Unwrap() Allocator {
	return s.a
}

// Allocate thread-safely implements Allocator.
func (s *LockedAllocator) Allocate(l Layout) (unsafe.Pointer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Allocate(l)
}

// Deallocate thread-safely implements Allocator.
func (s *LockedAllocator) Deallocate(p unsafe.Pointer, l Layout) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.a.Deallocate(p, l)
}

// Reallocate thread-safely implements Allocator.
func (s *LockedAllocator) Reallocate(p unsafe.Pointer, old Layout, newSize uintptr) (unsafe.Pointer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Reallocate(p, old, newSize)
}

// Do runs fn with exclusive access to the wrapped allocator, for calls such
// as Arena.Reset that are not part of the Allocator interface.
func (s *LockedAllocator) Do(fn func(Allocator)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.a)
}
