package vec

import (
	"unsafe"

	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

// DefaultChunkSize is the default chunk size for new arenas (64 KiB).
const DefaultChunkSize = 1 << 16

// minAlign is the alignment every arena allocation gets at least.
const minAlign = unsafe.Sizeof(uintptr(0))

// chunk represents a single memory chunk within an arena.
type chunk struct {
	buf    []byte  // backing memory
	offset uintptr // allocation offset within buf
	last   uintptr // offset of the most recent allocation
}

func (c *chunk) base() uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(c.buf)))
}

// fit returns the offset at which n bytes aligned to align on their absolute
// address would start, and whether they fit in the chunk.
func (c *chunk) fit(n, align uintptr) (uintptr, bool) {
	base := c.base()
	off := alignUp(base+c.offset, align) - base
	return off, off+n <= uintptr(len(c.buf))
}

// Arena is a chunked bump allocator usable as a Vec's Allocator. Blocks are
// carved sequentially out of large chunks; only the most recent block of the
// current chunk can be freed or resized in place, everything else is
// reclaimed in bulk by Reset or Release.
//
// Chunks are plain byte memory, so Arena refuses element types that contain
// pointers. Not goroutine-safe; wrap it with Locked to share it.
type Arena struct {
	chunks    []chunk
	chunkSize int
	cur       int
	zeroed    bool
}

// ArenaOption configures an Arena.
type ArenaOption func(*Arena)

// WithZeroedMemory makes the arena clear every block it hands out, including
// blocks carved from chunks recycled by Reset.
func WithZeroedMemory() ArenaOption {
	return func(a *Arena) {
		a.zeroed = true
	}
}

// NewArena creates a new Arena with the specified chunk size.
// If chunkSize <= 0, DefaultChunkSize is used.
func NewArena(chunkSize int, opts ...ArenaOption) *Arena {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	a := &Arena{chunkSize: chunkSize}
	for _, opt := range opts {
		opt(a)
	}
	a.grow(chunkSize)
	return a
}

// AllocBytes returns n bytes carved from the arena, aligned to the pointer
// size. Returns nil if n <= 0. Panics after Release.
func (a *Arena) AllocBytes(n int) []byte {
	if n <= 0 {
		return nil
	}
	b, err := a.alloc(uintptr(n), minAlign)
	if err != nil {
		panic(err)
	}
	return b
}

// Allocate implements Allocator.
func (a *Arena) Allocate(l Layout) (unsafe.Pointer, error) {
	if hasPointers(l.Elem) {
		return nil, errors.Wrapf(ErrPointerElements, "arena cannot hold %s", l.Elem)
	}
	if l.Size == 0 {
		return unsafe.Pointer(&zeroBase), nil
	}
	b, err := a.alloc(l.Size, l.Align)
	if err != nil {
		return nil, err
	}
	return unsafe.Pointer(unsafe.SliceData(b)), nil
}

// Deallocate implements Allocator. The space is reused immediately when p is
// the most recent allocation, otherwise it waits for Reset.
func (a *Arena) Deallocate(p unsafe.Pointer, l Layout) {
	if c := a.lastBlock(p, l.Size); c != nil {
		c.offset = c.last
	}
}

// Reallocate implements Allocator. The most recent allocation grows or
// shrinks in place when the current chunk has room.
func (a *Arena) Reallocate(p unsafe.Pointer, old Layout, newSize uintptr) (unsafe.Pointer, error) {
	if c := a.lastBlock(p, old.Size); c != nil && c.last+newSize <= uintptr(len(c.buf)) {
		c.offset = c.last + newSize
		if a.zeroed && newSize > old.Size {
			clear(c.buf[c.last+old.Size : c.offset])
		}
		return p, nil
	}
	np, err := a.Allocate(old.resized(newSize))
	if err != nil {
		return nil, err
	}
	memmove(np, p, min(old.Size, newSize), old.Elem)
	a.Deallocate(p, old)
	return np, nil
}

// EnsureCapacity ensures the current chunk has at least n free bytes.
// If not, it grows the arena with a new chunk.
func (a *Arena) EnsureCapacity(n int) {
	a.panicIfReleased()
	if n <= 0 {
		return
	}
	if _, ok := a.chunks[a.cur].fit(uintptr(n), minAlign); !ok {
		a.grow(n + int(minAlign))
	}
}

// Reset resets allocation offsets to zero but keeps allocated chunks for reuse.
// Every block handed out before is invalid afterwards.
func (a *Arena) Reset() {
	a.panicIfReleased()
	for i := range a.chunks {
		a.chunks[i].offset = 0
		a.chunks[i].last = 0
	}
	a.cur = 0
}

// Release drops all chunks and makes the arena unusable.
// Subsequent allocations fail with ErrArenaReleased.
func (a *Arena) Release() {
	a.chunks = nil
	a.cur = 0
}

func (a *Arena) alloc(n, align uintptr) ([]byte, error) {
	if a.chunks == nil {
		return nil, ErrArenaReleased
	}
	align = max(align, minAlign)
	for {
		c := &a.chunks[a.cur]
		if off, ok := c.fit(n, align); ok {
			c.last = off
			c.offset = off + n
			b := c.buf[off:c.offset:c.offset]
			if a.zeroed {
				clear(b)
			}
			return b, nil
		}
		// Chunks kept by Reset are refilled before new ones are made.
		if a.cur+1 < len(a.chunks) {
			a.cur++
			continue
		}
		a.grow(int(n + align))
	}
}

// lastBlock returns the chunk whose most recent allocation is exactly the
// size bytes at p, or nil.
func (a *Arena) lastBlock(p unsafe.Pointer, size uintptr) *chunk {
	if a.chunks == nil || p == nil {
		return nil
	}
	c := &a.chunks[a.cur]
	if uintptr(p) != c.base()+c.last || c.last+size != c.offset {
		return nil
	}
	return c
}

// grow appends a new chunk of at least min bytes and makes it current.
func (a *Arena) grow(min int) {
	size := a.chunkSize
	if min > size {
		size = min
	}
	a.chunks = append(a.chunks, chunk{buf: make([]byte, size)})
	a.cur = len(a.chunks) - 1
	level.Debug(logger()).Log("msg", "arena chunk allocated", "size", size, "chunks", len(a.chunks))
}

// panicIfReleased panics if the arena has been released.
func (a *Arena) panicIfReleased() {
	if a.chunks == nil {
		panic(ErrArenaReleased)
	}
}
