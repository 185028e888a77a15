package vec

import (
	"reflect"
	"unsafe"
)

// Allocator is the allocation strategy behind a Vec. A Vec calls the same
// Allocator for every allocation, reallocation and final deallocation of its
// block.
//
// Allocate returns a block of at least l.Size bytes aligned to l.Align.
// Reallocate returns a block of newSize bytes holding the first
// min(old.Size, newSize) bytes of p; p must not be used afterwards.
// Deallocate returns p, which was obtained with layout l, to the allocator.
type Allocator interface {
	Allocate(l Layout) (unsafe.Pointer, error)
	Deallocate(p unsafe.Pointer, l Layout)
	Reallocate(p unsafe.Pointer, old Layout, newSize uintptr) (unsafe.Pointer, error)
}

// zeroBase is handed out for zero-sized blocks. It is never dereferenced.
var zeroBase uintptr

// Heap allocates from the Go heap. Blocks with a known element type are
// allocated as typed slices, so element types holding pointers are safe.
// Deallocate leaves reclamation to the garbage collector.
type Heap struct{}

var global Allocator = Heap{}

// Global returns the default allocator used by New and WithCapacity.
func Global() Allocator {
	return global
}

// Allocate implements Allocator.
func (Heap) Allocate(l Layout) (unsafe.Pointer, error) {
	if l.Size == 0 {
		return unsafe.Pointer(&zeroBase), nil
	}
	if l.Elem != nil && l.Elem.Size() > 0 && l.Align <= uintptr(l.Elem.Align()) {
		n := int(l.Size / l.Elem.Size())
		if uintptr(n)*l.Elem.Size() == l.Size {
			return reflect.MakeSlice(reflect.SliceOf(l.Elem), n, n).UnsafePointer(), nil
		}
	}
	// Raw bytes: pad so the block can be shifted onto the requested alignment.
	pad := uintptr(0)
	if l.Align > 1 {
		pad = l.Align - 1
	}
	buf := make([]byte, l.Size+pad)
	base := unsafe.Pointer(unsafe.SliceData(buf))
	shift := alignUp(uintptr(base), l.Align) - uintptr(base)
	return unsafe.Add(base, shift), nil
}

// Deallocate implements Allocator.
func (Heap) Deallocate(unsafe.Pointer, Layout) {}

// Reallocate implements Allocator.
func (h Heap) Reallocate(p unsafe.Pointer, old Layout, newSize uintptr) (unsafe.Pointer, error) {
	if newSize == old.Size {
		return p, nil
	}
	np, err := h.Allocate(old.resized(newSize))
	if err != nil {
		return nil, err
	}
	memmove(np, p, min(old.Size, newSize), old.Elem)
	return np, nil
}
