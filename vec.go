package vec

import (
	"iter"
	"math/bits"
	"unsafe"

	"github.com/pkg/errors"
)

// maxCap bounds every capacity so the next power of two still fits in an int.
const maxCap = 1 << (bits.UintSize - 2)

// Vec is a growable array backed by a single block obtained from an
// Allocator. Elements in [0, Len) are live; slots in [Len, Cap) are spare.
// Not goroutine-safe.
//
// The zero value is an empty Vec that allocates from Global on first growth.
type Vec[T any] struct {
	ptr   unsafe.Pointer
	cap   int
	len   int
	alloc Allocator
}

// New returns an empty Vec. Nothing is allocated until the first growth.
func New[T any]() *Vec[T] {
	return NewIn[T](global)
}

// NewIn returns an empty Vec that allocates from a.
func NewIn[T any](a Allocator) *Vec[T] {
	if a == nil {
		a = global
	}
	return &Vec[T]{alloc: a}
}

// WithCapacity returns an empty Vec with room for max(n, 1) elements.
func WithCapacity[T any](n int) *Vec[T] {
	return WithCapacityIn[T](n, global)
}

// WithCapacityIn is WithCapacity with an explicit allocator.
func WithCapacityIn[T any](n int, a Allocator) *Vec[T] {
	v := NewIn[T](a)
	c := max(n, 1)
	if c > maxCap {
		fatal("allocate", Layout{}, ErrCapacityOverflow)
	}
	v.ptr = v.allocate(c)
	v.cap = c
	return v
}

// FromSeq builds a Vec by pushing every value produced by seq.
func FromSeq[T any](seq iter.Seq[T]) *Vec[T] {
	return FromSeqIn(seq, global)
}

// FromSeqIn is FromSeq with an explicit allocator.
func FromSeqIn[T any](seq iter.Seq[T], a Allocator) *Vec[T] {
	v := NewIn[T](a)
	v.Extend(seq)
	return v
}

// Repeat returns a Vec holding count copies of value. If T has a
// Clone() T method it is used to produce each copy.
func Repeat[T any](value T, count int) *Vec[T] {
	return RepeatIn(value, count, global)
}

// RepeatIn is Repeat with an explicit allocator.
func RepeatIn[T any](value T, count int, a Allocator) *Vec[T] {
	v := NewIn[T](a)
	if count <= 0 {
		return v
	}
	v.Reserve(count)
	s := v.buf()
	for i := 0; i < count; i++ {
		s[i] = cloneValue(value)
	}
	v.SetLen(count)
	return v
}

// Allocator returns the allocator that owns the Vec's block.
func (v *Vec[T]) Allocator() Allocator {
	if v.alloc == nil {
		v.alloc = global
	}
	return v.alloc
}

// Len returns the number of live elements.
func (v *Vec[T]) Len() int { return v.len }

// Cap returns the number of elements the current block can hold.
func (v *Vec[T]) Cap() int { return v.cap }

// IsEmpty reports whether the Vec holds no elements.
func (v *Vec[T]) IsEmpty() bool { return v.len == 0 }

// Slice returns the live elements. The view aliases the Vec's block and is
// invalidated by any operation that grows, shrinks or releases it. Callers
// must not keep it across such calls.
func (v *Vec[T]) Slice() []T {
	return v.buf()[:v.len:v.len]
}

// Data returns the raw block pointer. It is nil while nothing is allocated.
func (v *Vec[T]) Data() unsafe.Pointer {
	return v.ptr
}

// All iterates over the live elements by index and pointer.
// The Vec must not be modified while iterating.
func (v *Vec[T]) All() iter.Seq2[int, *T] {
	return func(yield func(int, *T) bool) {
		s := v.Slice()
		for i := range s {
			if !yield(i, &s[i]) {
				return
			}
		}
	}
}

// Values iterates over copies of the live elements in order.
func (v *Vec[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, x := range v.Slice() {
			if !yield(x) {
				return
			}
		}
	}
}

// Reserve makes room for at least additional more elements. When the block
// has to grow, the new capacity is the next power of two >= Len()+additional.
func (v *Vec[T]) Reserve(additional int) {
	old, oldCap := v.reserve(additional)
	v.free(old, oldCap)
}

// ReserveExact requests room for additional more elements. Growth still
// rounds up to a power of two; "exact" only describes the request.
func (v *Vec[T]) ReserveExact(additional int) {
	v.Reserve(additional)
}

// ShrinkToFit reallocates the block down to max(Len(), 1) slots. A Vec that
// never allocated is left alone.
func (v *Vec[T]) ShrinkToFit() {
	if v.len >= v.cap {
		return
	}
	newCap := max(v.len, 1)
	if newCap >= v.cap {
		return
	}
	old := v.layout(v.cap)
	if old.Size == 0 {
		v.cap = newCap
		return
	}
	size := v.layout(newCap).Size
	p, err := v.Allocator().Reallocate(v.ptr, old, size)
	if err != nil {
		fatal("reallocate", old.resized(size), err)
	}
	v.ptr, v.cap = p, newCap
}

// Push appends value and returns a pointer to its slot. The pointer is valid
// until the next growth.
func (v *Vec[T]) Push(value T) *T {
	if v.len == v.cap {
		v.Reserve(1)
	}
	s := v.buf()
	s[v.len] = value
	p := &s[v.len]
	v.len++
	return p
}

// Clear drops every live element and sets the length to zero. The capacity
// is kept.
func (v *Vec[T]) Clear() {
	dropAll(v.Slice())
	v.len = 0
}

// Truncate drops the elements in [n, Len()) and shortens the Vec to n.
// It does nothing when n >= Len().
func (v *Vec[T]) Truncate(n int) {
	n = max(n, 0)
	if n >= v.len {
		return
	}
	dropAll(v.buf()[n:v.len])
	v.len = n
}

// Extend pushes every value produced by seq.
func (v *Vec[T]) Extend(seq iter.Seq[T]) {
	for x := range seq {
		v.Push(x)
	}
}

// ExtendFromSlice appends a copy of src, growing at most once. src may alias
// the Vec's own elements.
func (v *Vec[T]) ExtendFromSlice(src []T) {
	if len(src) == 0 {
		return
	}
	old, oldCap := v.reserve(len(src))
	copy(v.buf()[v.len:], src)
	v.len += len(src)
	v.free(old, oldCap)
}

// ExtendFromWithin appends a copy of the elements in [start, end). Nothing
// happens unless 0 <= start < end <= Len().
func (v *Vec[T]) ExtendFromWithin(start, end int) {
	if start < 0 || start >= end || end > v.len {
		return
	}
	n := end - start
	v.Reserve(n)
	s := v.buf()
	copy(s[v.len:v.len+n], s[start:end])
	v.len += n
}

// Retain keeps only the elements for which keep returns true, preserving
// their order. Rejected elements are dropped.
func (v *Vec[T]) Retain(keep func(T) bool) {
	if v.len == 0 {
		return
	}
	s := v.buf()[:v.len]
	w := 0
	for r := range s {
		if !keep(s[r]) {
			dropOne(&s[r])
			continue
		}
		if w != r {
			s[w] = s[r]
		}
		w++
	}
	clear(s[w:])
	v.len = w
}

// SpareCapacity returns the spare slots [Len(), Cap()) for in-place
// construction. Their contents are unspecified. Call SetLen afterwards to
// make them live.
func (v *Vec[T]) SpareCapacity() []T {
	return v.buf()[v.len:v.cap:v.cap]
}

// SetLen overrides the length without initializing or dropping anything.
// The caller guarantees that n <= Cap() and that [0, n) holds valid values.
func (v *Vec[T]) SetLen(n int) {
	v.len = n
}

// Leak hands the live elements to the caller and gives up the block: no
// element is dropped and the allocator is never asked to free it. The Vec is
// left empty.
func (v *Vec[T]) Leak() []T {
	s := v.Slice()
	v.ptr, v.cap, v.len = nil, 0, 0
	return s
}

// Release drops the live elements and returns the block to the allocator.
// The Vec is left empty and may be reused.
func (v *Vec[T]) Release() {
	dropAll(v.Slice())
	v.free(v.ptr, v.cap)
	v.ptr, v.cap, v.len = nil, 0, 0
}

// Clone returns an independent Vec holding a copy of the live elements.
// If the allocator has a Clone() Allocator method the copy allocates from
// its result, otherwise it shares the allocator.
func (v *Vec[T]) Clone() *Vec[T] {
	a := v.Allocator()
	if c, ok := a.(interface{ Clone() Allocator }); ok {
		a = c.Clone()
	}
	c := NewIn[T](a)
	c.Reserve(v.len)
	copy(c.buf(), v.Slice())
	c.len = v.len
	return c
}

func (v *Vec[T]) buf() []T {
	if v.ptr == nil {
		return nil
	}
	return unsafe.Slice((*T)(v.ptr), v.cap)
}

func (v *Vec[T]) layout(n int) Layout {
	l, err := ArrayLayout[T](n)
	if err != nil {
		fatal("layout", l, err)
	}
	return l
}

func (v *Vec[T]) allocate(n int) unsafe.Pointer {
	l := v.layout(n)
	if l.Size == 0 {
		return unsafe.Pointer(&zeroBase)
	}
	p, err := v.Allocator().Allocate(l)
	if err == nil && p == nil {
		err = errors.New("allocator returned nil block")
	}
	if err != nil {
		fatal("allocate", l, err)
	}
	return p
}

func (v *Vec[T]) free(p unsafe.Pointer, n int) {
	if p == nil || n == 0 {
		return
	}
	l := v.layout(n)
	if l.Size == 0 {
		return
	}
	v.Allocator().Deallocate(p, l)
}

// reserve grows the block when fewer than additional slots are spare. The
// previous block is returned, still allocated, so callers can finish reading
// from it before handing it to free.
func (v *Vec[T]) reserve(additional int) (unsafe.Pointer, int) {
	additional = max(additional, 0)
	if additional > maxCap-v.len {
		fatal("reserve", Layout{}, ErrCapacityOverflow)
	}
	need := v.len + additional
	if need <= v.cap {
		return nil, 0
	}
	return v.growTo(nextPowerOfTwo(need))
}

func (v *Vec[T]) growTo(newCap int) (unsafe.Pointer, int) {
	p := v.allocate(newCap)
	copy(unsafe.Slice((*T)(p), newCap), v.Slice())
	old, oldCap := v.ptr, v.cap
	v.ptr, v.cap = p, newCap
	return old, oldCap
}
