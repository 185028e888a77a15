// Package vec implements a growable array with a pluggable allocation
// strategy, built for text editor buffers.
//
// # Overview
//
// Vec[T] owns one contiguous block obtained from an Allocator and tracks its
// length and capacity itself instead of relying on append. This gives the
// host control over:
//
//   - where element memory comes from (Go heap, an Arena, anonymous mmap)
//   - how capacity grows (always the next power of two)
//   - bulk edits such as ReplaceRange, Retain and ExtendFromWithin, which
//     shift elements with overlap-safe block copies
//
// # Basic Usage
//
//	v := vec.New[byte]()
//	defer v.Release()
//
//	v.ExtendFromSlice([]byte("hello world"))
//	v.ReplaceRange(0, 5, []byte("goodbye"))
//	v.Retain(func(b byte) bool { return b != ' ' })
//
//	fmt.Println(string(v.Slice())) // goodbyeworld
//
// # Allocators
//
//	a := vec.NewArena(0) // Use default chunk size
//	defer a.Release()
//
//	buf := vec.WithCapacityIn[byte](4096, a)
//
// Arena and Mmap keep memory outside the collector's view and therefore only
// accept element types without pointers. Heap, the default, accepts any T.
// Wrap an allocator with Instrument to count calls and export Prometheus
// metrics, and with Locked to share it between goroutines.
//
// # Ownership
//
// A Vec has a single owner and is not goroutine-safe. Views returned by
// Slice, SpareCapacity and All alias the block and become invalid as soon as
// the Vec grows, shrinks or is released.
//
// Release drops live elements (see Dropper) and returns the block to the
// allocator. Leak hands the elements to the caller and gives the block up
// for good.
//
// # Failure
//
// Allocation failure during growth is not recoverable: it is logged through
// the logger installed with SetLogger and the goroutine panics with an error
// wrapping ErrAllocationFailed. Out-of-range arguments to range operations are
// clamped rather than reported.
package vec
