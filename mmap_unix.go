//go:build unix

package vec

import (
	"unsafe"

	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Mmap allocates every block as its own anonymous private mapping, outside
// the Go heap. Blocks are rounded up to whole pages and unmapped by
// Deallocate, so large editor buffers return memory to the OS as soon as
// they shrink or are released.
//
// The collector does not scan mapped memory, so element types containing
// pointers are refused. Not goroutine-safe; wrap it with Locked to share it.
type Mmap struct {
	pageSize uintptr
	mappings map[uintptr][]byte
}

// NewMmap returns an allocator backed by anonymous memory mappings.
func NewMmap() (*Mmap, error) {
	return &Mmap{
		pageSize: uintptr(unix.Getpagesize()),
		mappings: make(map[uintptr][]byte),
	}, nil
}

// Mapped returns the number of bytes currently mapped, including page padding.
func (m *Mmap) Mapped() int {
	n := 0
	for _, b := range m.mappings {
		n += len(b)
	}
	return n
}

// Allocate implements Allocator.
func (m *Mmap) Allocate(l Layout) (unsafe.Pointer, error) {
	if hasPointers(l.Elem) {
		return nil, errors.Wrapf(ErrPointerElements, "mmap cannot hold %s", l.Elem)
	}
	if l.Size == 0 {
		return unsafe.Pointer(&zeroBase), nil
	}
	if l.Align > m.pageSize {
		return nil, errors.Errorf("mmap: alignment %d exceeds page size %d", l.Align, m.pageSize)
	}
	size := alignUp(l.Size, m.pageSize)
	b, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, errors.Wrapf(err, "mmap %d bytes", size)
	}
	p := unsafe.Pointer(unsafe.SliceData(b))
	m.mappings[uintptr(p)] = b
	return p, nil
}

// Deallocate implements Allocator.
func (m *Mmap) Deallocate(p unsafe.Pointer, _ Layout) {
	b, ok := m.mappings[uintptr(p)]
	if !ok {
		return
	}
	delete(m.mappings, uintptr(p))
	if err := unix.Munmap(b); err != nil {
		level.Warn(logger()).Log("msg", "failed to unmap block", "size", len(b), "err", err)
	}
}

// Reallocate implements Allocator. Requests that still fit the block's pages
// are served in place.
func (m *Mmap) Reallocate(p unsafe.Pointer, old Layout, newSize uintptr) (unsafe.Pointer, error) {
	if b, ok := m.mappings[uintptr(p)]; ok && alignUp(newSize, m.pageSize) == uintptr(len(b)) {
		return p, nil
	}
	np, err := m.Allocate(old.resized(newSize))
	if err != nil {
		return nil, err
	}
	memmove(np, p, min(old.Size, newSize), old.Elem)
	m.Deallocate(p, old)
	return np, nil
}
