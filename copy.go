package vec

import (
	"slices"
	"unsafe"
)

// The operations in this file treat elements as plain bytes: they overwrite
// or discard slots without calling Drop. Use them only with element types
// that need no Drop.

// Resize sets the length to n. New slots are filled with value; when n is
// smaller than Len() the excess elements are discarded without being dropped.
func (v *Vec[T]) Resize(n int, value T) {
	n = max(n, 0)
	if n > v.cap {
		v.Reserve(n - v.len)
	}
	if n > v.len {
		s := v.buf()[v.len:n]
		for i := range s {
			s[i] = value
		}
	}
	v.len = n
}

// ReplaceRange deletes the elements in [start, end) and inserts src in their
// place, shifting the tail as needed. start is clamped to Len() and the
// deleted count to the elements available, so end may be math.MaxInt for
// "to the end". Deleting nothing and inserting nothing is a no-op.
// src may alias the Vec's own elements.
func (v *Vec[T]) ReplaceRange(start, end int, src []T) {
	dstLen := v.len
	srcLen := len(src)
	off := min(max(start, 0), dstLen)
	del := 0
	if end > off {
		del = min(end-off, dstLen-off)
	}
	if del == 0 && srcLen == 0 {
		return
	}
	if v.overlaps(src) {
		src = slices.Clone(src)
	}

	tail := dstLen - off - del
	newLen := dstLen - del + srcLen
	if srcLen > del {
		v.Reserve(srcLen - del)
	}

	s := v.buf()
	if tail > 0 && srcLen != del {
		copy(s[off+srcLen:off+srcLen+tail], s[off+del:off+del+tail])
	}
	copy(s[off:off+srcLen], src)
	if newLen < dstLen {
		clear(s[newLen:dstLen])
	}
	v.len = newLen
}

// overlaps reports whether src points into the Vec's block.
func (v *Vec[T]) overlaps(src []T) bool {
	var zero T
	size := unsafe.Sizeof(zero)
	if v.ptr == nil || len(src) == 0 || size == 0 {
		return false
	}
	lo := uintptr(v.ptr)
	hi := lo + uintptr(v.cap)*size
	p := uintptr(unsafe.Pointer(unsafe.SliceData(src)))
	return p < hi && p+uintptr(len(src))*size > lo
}
