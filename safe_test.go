package vec

import (
	"reflect"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocked(t *testing.T) {
	a := NewArena(1024)
	s := Locked(a)
	require.Same(t, a, s.Unwrap())
	require.Equal(t, Global(), Locked(nil).Unwrap())
}

func TestLockedForwards(t *testing.T) {
	a := NewArena(1024)
	s := Locked(a)

	l := Layout{Size: 64, Align: 8}
	p, err := s.Allocate(l)
	require.NoError(t, err)
	require.Equal(t, 64, a.SizeInUse())

	p, err = s.Reallocate(p, l, 128)
	require.NoError(t, err)
	require.Equal(t, 128, a.SizeInUse())

	s.Deallocate(p, l.resized(128))
	require.Zero(t, a.SizeInUse())

	_, err = s.Allocate(Layout{Size: 8, Align: 8, Elem: reflect.TypeFor[withPointer]()})
	require.ErrorIs(t, err, ErrPointerElements)
}

func TestLockedDo(t *testing.T) {
	a := NewArena(1024)
	s := Locked(a)
	a.AllocBytes(100)

	s.Do(func(inner Allocator) {
		inner.(*Arena).Reset()
	})
	require.Zero(t, a.SizeInUse())
}

func TestLockedArenaConcurrentVecs(t *testing.T) {
	a := NewArena(1024)
	s := Locked(a)
	const numGoroutines = 10
	const numPushes = 500

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	results := make([][]int32, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			v := NewIn[int32](s)
			for j := 0; j < numPushes; j++ {
				v.Push(int32(id*numPushes + j))
				if j%50 == 0 {
					runtime.Gosched()
				}
			}
			v.ReplaceRange(0, 100, nil)
			results[id] = append([]int32(nil), v.Slice()...)
		}(i)
	}

	wg.Wait()

	for id, got := range results {
		require.Len(t, got, numPushes-100)
		for j, x := range got {
			require.Equal(t, int32(id*numPushes+100+j), x)
		}
	}
	s.Do(func(Allocator) {
		require.NotZero(t, a.SizeInUse())
	})
}

func TestLockedConcurrentResetAndMetrics(t *testing.T) {
	a := NewArena(1024)
	s := Locked(Instrument(a, nil))
	const numWorkers = 5

	var wg sync.WaitGroup
	wg.Add(numWorkers)

	// Workers doing allocations
	for i := 0; i < numWorkers-2; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, err := s.Allocate(Layout{Size: 32, Align: 8})
				assert.NoError(t, err)
				runtime.Gosched()
			}
		}()
	}

	// Worker doing periodic resets
	go func() {
		defer wg.Done()
		for i := 0; i < 5; i++ {
			runtime.Gosched()
			s.Do(func(inner Allocator) {
				inner.(*InstrumentedAllocator).Unwrap().(*Arena).Reset()
			})
		}
	}()

	// Worker doing metrics reads
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			s.Do(func(Allocator) {
				_ = a.Metrics()
			})
			runtime.Gosched()
		}
	}()

	wg.Wait()
	require.Equal(t, int64(150), s.Unwrap().(*InstrumentedAllocator).Metrics().Allocations)
}

func BenchmarkLockedArena(b *testing.B) {
	s := Locked(NewArena(1024 * 1024))
	l := Layout{Size: 64, Align: 8}

	b.Run("Allocate", func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			s.Allocate(l)
			if i%1000 == 999 {
				s.Do(func(a Allocator) { a.(*Arena).Reset() })
			}
		}
	})

	b.Run("Vec", func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			v := NewIn[uint64](s)
			for j := uint64(0); j < 16; j++ {
				v.Push(j)
			}
			v.Release()
			if i%1000 == 999 {
				s.Do(func(a Allocator) { a.(*Arena).Reset() })
			}
		}
	})
}

func BenchmarkLockedArenaConcurrent(b *testing.B) {
	s := Locked(NewArena(1024 * 1024))
	l := Layout{Size: 64, Align: 8}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			s.Allocate(l)
			i++
			if i%1000 == 999 {
				s.Do(func(a Allocator) { a.(*Arena).Reset() })
			}
		}
	})
}
