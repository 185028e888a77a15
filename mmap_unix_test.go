//go:build unix

package vec

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func newMmap(t *testing.T) *Mmap {
	t.Helper()
	m, err := NewMmap()
	require.NoError(t, err)
	return m
}

func TestMmapAllocate(t *testing.T) {
	m := newMmap(t)
	page := unix.Getpagesize()

	p, err := m.Allocate(Layout{Size: 100, Align: 8})
	require.NoError(t, err)
	require.Zero(t, uintptr(p)%uintptr(page))
	require.Equal(t, page, m.Mapped())

	b := unsafe.Slice((*byte)(p), 100)
	for _, x := range b {
		require.Zero(t, x)
	}
	copy(b, "mapped")

	q, err := m.Allocate(Layout{Size: uintptr(page) + 1, Align: 8})
	require.NoError(t, err)
	require.Equal(t, 3*page, m.Mapped())

	m.Deallocate(p, Layout{Size: 100, Align: 8})
	require.Equal(t, 2*page, m.Mapped())
	m.Deallocate(q, Layout{Size: uintptr(page) + 1, Align: 8})
	require.Zero(t, m.Mapped())

	// Unknown blocks are ignored.
	m.Deallocate(unsafe.Pointer(&zeroBase), Layout{})
}

func TestMmapZeroSize(t *testing.T) {
	m := newMmap(t)
	p, err := m.Allocate(Layout{})
	require.NoError(t, err)
	require.NotNil(t, p)
	require.Zero(t, m.Mapped())
}

func TestMmapRejects(t *testing.T) {
	m := newMmap(t)

	l, err := ArrayLayout[withPointer](4)
	require.NoError(t, err)
	_, err = m.Allocate(l)
	require.ErrorIs(t, err, ErrPointerElements)

	_, err = m.Allocate(Layout{Size: 8, Align: uintptr(unix.Getpagesize()) * 2})
	require.Error(t, err)
	require.Zero(t, m.Mapped())
}

func TestMmapReallocate(t *testing.T) {
	m := newMmap(t)
	page := uintptr(unix.Getpagesize())
	l := Layout{Size: 16, Align: 8}

	p, err := m.Allocate(l)
	require.NoError(t, err)
	copy(unsafe.Slice((*byte)(p), 16), "0123456789abcdef")

	same, err := m.Reallocate(p, l, page)
	require.NoError(t, err)
	require.Equal(t, p, same)

	moved, err := m.Reallocate(same, l.resized(page), 2*page)
	require.NoError(t, err)
	require.NotEqual(t, p, moved)
	require.Equal(t, int(2*page), m.Mapped())
	require.Equal(t, "0123456789abcdef", string(unsafe.Slice((*byte)(moved), 16)))

	m.Deallocate(moved, l.resized(2*page))
	require.Zero(t, m.Mapped())
}

func TestVecInMmap(t *testing.T) {
	m := newMmap(t)
	page := uintptr(unix.Getpagesize())
	v := NewIn[byte](m)

	for i := 0; i < 20000; i++ {
		v.Push(byte(i))
	}
	require.Equal(t, 20000, v.Len())
	require.Equal(t, 32768, v.Cap())
	require.Equal(t, int(alignUp(32768, page)), m.Mapped())
	for i, x := range v.Slice() {
		require.Equal(t, byte(i), x)
	}

	// The source block stays mapped until the copy is done.
	v.ExtendFromSlice(v.Slice())
	require.Equal(t, 40000, v.Len())
	require.Equal(t, int(alignUp(65536, page)), m.Mapped())
	for i, x := range v.Slice() {
		require.Equal(t, byte(i%20000), x)
	}

	v.Truncate(10)
	v.ShrinkToFit()
	require.Equal(t, 10, v.Cap())
	require.Equal(t, int(page), m.Mapped())

	v.Release()
	require.Zero(t, m.Mapped())
}

func TestVecInMmapPanicsOnPointerElements(t *testing.T) {
	m := newMmap(t)
	v := NewIn[*int](m)
	require.Panics(t, func() { v.Push(new(int)) })
	require.Zero(t, m.Mapped())
}
