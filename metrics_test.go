package vec

import (
	"strings"
	"testing"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaMetrics(t *testing.T) {
	a := NewArena(1024)

	// Test initial state
	if a.SizeInUse() != 0 {
		t.Errorf("Initial SizeInUse = %d, want 0", a.SizeInUse())
	}
	if a.NumChunks() != 1 {
		t.Errorf("Initial NumChunks = %d, want 1", a.NumChunks())
	}
	if a.ChunkSize() != 1024 {
		t.Errorf("ChunkSize = %d, want 1024", a.ChunkSize())
	}
	if a.Utilization() != 0 {
		t.Errorf("Initial Utilization = %f, want 0", a.Utilization())
	}

	a.AllocBytes(100)
	a.AllocBytes(200)

	utilization := a.Utilization()
	if utilization <= 0 || utilization > 1 {
		t.Errorf("Utilization = %f, want 0 < x <= 1", utilization)
	}

	// Force chunk growth
	a.AllocBytes(2000)
	if a.NumChunks() != 2 {
		t.Errorf("NumChunks after growth = %d, want 2", a.NumChunks())
	}
	if a.Capacity() <= 1024 {
		t.Errorf("Capacity after growth = %d, want > 1024", a.Capacity())
	}

	m := a.Metrics()
	assert.Equal(t, a.SizeInUse(), m.SizeInUse)
	assert.Equal(t, a.Capacity(), m.Capacity)
	assert.Equal(t, a.NumChunks(), m.NumChunks)
	assert.Equal(t, a.ChunkSize(), m.ChunkSize)
	assert.Equal(t, a.Utilization(), m.Utilization)
}

func TestArenaMetricsAfterReset(t *testing.T) {
	a := NewArena(1024)
	a.AllocBytes(500)
	require.NotZero(t, a.Utilization())

	a.Reset()
	require.Zero(t, a.SizeInUse())
	require.Zero(t, a.Utilization())
	require.Equal(t, 1024, a.Capacity())
}

func TestArenaMetricsAfterRelease(t *testing.T) {
	a := NewArena(1024)
	a.AllocBytes(500)
	a.Release()

	m := a.Metrics()
	require.Equal(t, ArenaMetrics{ChunkSize: 1024}, m)
}

func TestArenaMetricsString(t *testing.T) {
	m := ArenaMetrics{SizeInUse: 512, Capacity: 2048, NumChunks: 2, ChunkSize: 1024, Utilization: 0.25}
	require.Equal(t, "512 B of 2.0 KiB in 2 chunks (25.0%)", m.String())
}

func TestInstrumentedAllocatorCounts(t *testing.T) {
	a := Instrument(Global(), nil)
	v := NewIn[int64](a)

	for i := range int64(5) {
		v.Push(i)
	}
	// Capacities 1, 2, 4, 8: four allocations, three blocks returned.
	m := a.Metrics()
	require.Equal(t, int64(4), m.Allocations)
	require.Equal(t, int64(3), m.Deallocations)
	require.Equal(t, int64(0), m.Reallocations)
	require.Equal(t, int64(64), m.InUseBytes)
	require.Equal(t, int64(64+32), m.PeakBytes)

	v.ShrinkToFit()
	m = a.Metrics()
	require.Equal(t, int64(1), m.Reallocations)
	require.Equal(t, int64(40), m.InUseBytes)

	v.Release()
	m = a.Metrics()
	require.Equal(t, int64(4), m.Deallocations)
	require.Zero(t, m.InUseBytes)
	require.Equal(t, int64(96), m.PeakBytes)
}

func TestInstrumentedAllocatorUnwrap(t *testing.T) {
	arena := NewArena(0)
	require.Same(t, arena, Instrument(arena, nil).Unwrap())
	require.Equal(t, Global(), Instrument(nil, nil).Unwrap())
}

type failingAllocator struct {
	Heap
	err error
}

func (f failingAllocator) Allocate(Layout) (unsafe.Pointer, error) {
	return nil, f.err
}

func (f failingAllocator) Reallocate(unsafe.Pointer, Layout, uintptr) (unsafe.Pointer, error) {
	return nil, f.err
}

func TestInstrumentedAllocatorFailures(t *testing.T) {
	a := Instrument(failingAllocator{err: errors.New("out of memory")}, nil)

	_, err := a.Allocate(Layout{Size: 8, Align: 8})
	require.EqualError(t, err, "out of memory")
	_, err = a.Reallocate(nil, Layout{Size: 8, Align: 8}, 16)
	require.Error(t, err)

	m := a.Metrics()
	require.Equal(t, int64(2), m.Failures)
	require.Zero(t, m.Allocations)
	require.Zero(t, m.InUseBytes)
}

func TestInstrumentedAllocatorPrometheus(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	a := Instrument(NewArena(4096), reg)

	v := NewIn[uint32](a)
	v.ExtendFromSlice([]uint32{1, 2, 3})
	v.Truncate(1)
	v.ShrinkToFit()

	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP vec_allocator_allocations_total Total number of blocks allocated.
# TYPE vec_allocator_allocations_total counter
vec_allocator_allocations_total 1
# HELP vec_allocator_deallocations_total Total number of blocks returned to the allocator.
# TYPE vec_allocator_deallocations_total counter
vec_allocator_deallocations_total 0
# HELP vec_allocator_failures_total Total number of failed allocations and reallocations.
# TYPE vec_allocator_failures_total counter
vec_allocator_failures_total 0
# HELP vec_allocator_in_use_bytes Bytes currently held by live blocks.
# TYPE vec_allocator_in_use_bytes gauge
vec_allocator_in_use_bytes 4
# HELP vec_allocator_peak_in_use_bytes Highest value vec_allocator_in_use_bytes has reached.
# TYPE vec_allocator_peak_in_use_bytes gauge
vec_allocator_peak_in_use_bytes 16
# HELP vec_allocator_reallocations_total Total number of blocks resized.
# TYPE vec_allocator_reallocations_total counter
vec_allocator_reallocations_total 1
`)))

	v.Release()
	require.Equal(t, float64(1), testutil.ToFloat64(a.deallocsTotal))
}

func TestAllocatorMetricsString(t *testing.T) {
	m := AllocatorMetrics{
		Allocations:   12345,
		Deallocations: 12000,
		Reallocations: 7,
		Failures:      1,
		InUseBytes:    3 << 20,
		PeakBytes:     4 << 20,
	}
	require.Equal(t, "allocs=12,345 deallocs=12,000 reallocs=7 failures=1 in_use=3.0 MiB peak=4.0 MiB", m.String())
}
