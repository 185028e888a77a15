package vec

import (
	"math"
	"math/bits"
	"reflect"
	"unsafe"
)

// Layout describes a block of memory requested from an Allocator.
type Layout struct {
	Size  uintptr      // bytes
	Align uintptr      // power of two
	Elem  reflect.Type // element type the block holds, nil for raw bytes
}

// ArrayLayout returns the layout of a block holding n values of T.
func ArrayLayout[T any](n int) (Layout, error) {
	var zero T
	size := unsafe.Sizeof(zero)
	if n < 0 {
		return Layout{}, ErrCapacityOverflow
	}
	hi, total := bits.Mul64(uint64(size), uint64(n))
	if hi != 0 || total > math.MaxInt {
		return Layout{}, ErrCapacityOverflow
	}
	return Layout{
		Size:  uintptr(total),
		Align: unsafe.Alignof(zero),
		Elem:  reflect.TypeFor[T](),
	}, nil
}

// Count returns how many elements fit in the layout.
func (l Layout) Count() int {
	if l.Elem == nil || l.Elem.Size() == 0 {
		return int(l.Size)
	}
	return int(l.Size / l.Elem.Size())
}

func (l Layout) resized(size uintptr) Layout {
	l.Size = size
	return l
}

// hasPointers reports whether values of t contain pointers the garbage
// collector has to see.
func hasPointers(t reflect.Type) bool {
	if t == nil {
		return false
	}
	switch t.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Chan,
		reflect.Func, reflect.Interface, reflect.Slice, reflect.String:
		return true
	case reflect.Array:
		return t.Len() > 0 && hasPointers(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// memmove copies n bytes of l.Elem-typed data from src to dst. Regions may
// overlap. Pointerful element types go through reflect so the write barrier
// sees every store.
func memmove(dst, src unsafe.Pointer, n uintptr, elem reflect.Type) {
	if n == 0 || dst == src {
		return
	}
	if !hasPointers(elem) {
		copy(unsafe.Slice((*byte)(dst), n), unsafe.Slice((*byte)(src), n))
		return
	}
	at := reflect.ArrayOf(int(n/elem.Size()), elem)
	reflect.Copy(reflect.NewAt(at, dst).Elem(), reflect.NewAt(at, src).Elem())
}

func alignUp(off, align uintptr) uintptr {
	if align <= 1 {
		return off
	}
	mask := align - 1
	return (off + mask) &^ mask
}

// nextPowerOfTwo returns the smallest power of two >= n, with n <= 0 mapping to 1.
func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
