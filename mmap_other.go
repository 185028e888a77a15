//go:build !unix

package vec

import "unsafe"

// Mmap is unavailable on this platform; every allocation fails.
type Mmap struct{}

// NewMmap returns ErrUnsupported on this platform.
func NewMmap() (*Mmap, error) {
	return nil, ErrUnsupported
}

// Mapped always returns 0.
func (m *Mmap) Mapped() int { return 0 }

// Allocate implements Allocator.
func (m *Mmap) Allocate(Layout) (unsafe.Pointer, error) {
	return nil, ErrUnsupported
}

// Deallocate implements Allocator.
func (m *Mmap) Deallocate(unsafe.Pointer, Layout) {}

// Reallocate implements Allocator.
func (m *Mmap) Reallocate(unsafe.Pointer, Layout, uintptr) (unsafe.Pointer, error) {
	return nil, ErrUnsupported
}
