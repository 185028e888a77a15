package vec

import (
	"fmt"
	"unsafe"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/atomic"
)

// SizeInUse returns the total number of bytes currently allocated in the arena.
// This includes internal fragmentation due to alignment.
func (a *Arena) SizeInUse() int {
	sum := 0
	for _, c := range a.chunks {
		sum += int(c.offset)
	}
	return sum
}

// NumChunks returns the number of chunks currently allocated by the arena.
func (a *Arena) NumChunks() int {
	return len(a.chunks)
}

// Capacity returns the total capacity (in bytes) of all chunks in the arena.
func (a *Arena) Capacity() int {
	sum := 0
	for _, c := range a.chunks {
		sum += len(c.buf)
	}
	return sum
}

// Utilization returns the ratio of bytes in use to total capacity (0.0 to 1.0).
// Returns 0.0 if the arena has no capacity.
func (a *Arena) Utilization() float64 {
	capacity := a.Capacity()
	if capacity == 0 {
		return 0
	}
	return float64(a.SizeInUse()) / float64(capacity)
}

// ChunkSize returns the default chunk size used by this arena.
func (a *Arena) ChunkSize() int {
	return a.chunkSize
}

// Metrics returns a snapshot of arena statistics.
func (a *Arena) Metrics() ArenaMetrics {
	return ArenaMetrics{
		SizeInUse:   a.SizeInUse(),
		Capacity:    a.Capacity(),
		NumChunks:   a.NumChunks(),
		ChunkSize:   a.ChunkSize(),
		Utilization: a.Utilization(),
	}
}

// ArenaMetrics contains statistical information about an arena.
type ArenaMetrics struct {
	SizeInUse   int     // Bytes currently allocated
	Capacity    int     // Total capacity in bytes
	NumChunks   int     // Number of chunks
	ChunkSize   int     // Default chunk size
	Utilization float64 // Ratio of used to total capacity (0.0-1.0)
}

func (m ArenaMetrics) String() string {
	return fmt.Sprintf("%s of %s in %d chunks (%.1f%%)",
		humanize.IBytes(uint64(m.SizeInUse)), humanize.IBytes(uint64(m.Capacity)), m.NumChunks, m.Utilization*100)
}

// AllocatorMetrics is a snapshot of an InstrumentedAllocator's counters.
type AllocatorMetrics struct {
	Allocations   int64
	Deallocations int64
	Reallocations int64
	Failures      int64
	InUseBytes    int64
	PeakBytes     int64
}

func (m AllocatorMetrics) String() string {
	return fmt.Sprintf("allocs=%s deallocs=%s reallocs=%s failures=%d in_use=%s peak=%s",
		humanize.Comma(m.Allocations), humanize.Comma(m.Deallocations), humanize.Comma(m.Reallocations),
		m.Failures, humanize.IBytes(uint64(m.InUseBytes)), humanize.IBytes(uint64(m.PeakBytes)))
}

// InstrumentedAllocator counts the calls made to the allocator it wraps and
// tracks the bytes handed out. Counters may be read from any goroutine; the
// wrapped allocator keeps its own concurrency rules.
type InstrumentedAllocator struct {
	a Allocator

	allocs   atomic.Int64
	deallocs atomic.Int64
	reallocs atomic.Int64
	failures atomic.Int64
	inUse    atomic.Int64
	peak     atomic.Int64

	allocsTotal   prometheus.Counter
	deallocsTotal prometheus.Counter
	reallocsTotal prometheus.Counter
	failuresTotal prometheus.Counter
}

// Instrument wraps a. When reg is not nil the counters are also registered
// as Prometheus metrics.
func Instrument(a Allocator, reg prometheus.Registerer) *InstrumentedAllocator {
	if a == nil {
		a = global
	}
	i := &InstrumentedAllocator{a: a}
	f := promauto.With(reg)
	i.allocsTotal = f.NewCounter(prometheus.CounterOpts{
		Name: "vec_allocator_allocations_total",
		Help: "Total number of blocks allocated.",
	})
	i.deallocsTotal = f.NewCounter(prometheus.CounterOpts{
		Name: "vec_allocator_deallocations_total",
		Help: "Total number of blocks returned to the allocator.",
	})
	i.reallocsTotal = f.NewCounter(prometheus.CounterOpts{
		Name: "vec_allocator_reallocations_total",
		Help: "Total number of blocks resized.",
	})
	i.failuresTotal = f.NewCounter(prometheus.CounterOpts{
		Name: "vec_allocator_failures_total",
		Help: "Total number of failed allocations and reallocations.",
	})
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "vec_allocator_in_use_bytes",
		Help: "Bytes currently held by live blocks.",
	}, func() float64 { return float64(i.inUse.Load()) })
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "vec_allocator_peak_in_use_bytes",
		Help: "Highest value vec_allocator_in_use_bytes has reached.",
	}, func() float64 { return float64(i.peak.Load()) })
	return i
}

// Unwrap returns the wrapped allocator.
func (i *InstrumentedAllocator) Unwrap() Allocator {
	return i.a
}

// Allocate implements Allocator.
func (i *InstrumentedAllocator) Allocate(l Layout) (unsafe.Pointer, error) {
	p, err := i.a.Allocate(l)
	if err != nil {
		i.failures.Inc()
		i.failuresTotal.Inc()
		return nil, err
	}
	i.allocs.Inc()
	i.allocsTotal.Inc()
	i.track(int64(l.Size))
	return p, nil
}

// Deallocate implements Allocator.
func (i *InstrumentedAllocator) Deallocate(p unsafe.Pointer, l Layout) {
	i.a.Deallocate(p, l)
	i.deallocs.Inc()
	i.deallocsTotal.Inc()
	i.inUse.Sub(int64(l.Size))
}

// Reallocate implements Allocator.
func (i *InstrumentedAllocator) Reallocate(p unsafe.Pointer, old Layout, newSize uintptr) (unsafe.Pointer, error) {
	np, err := i.a.Reallocate(p, old, newSize)
	if err != nil {
		i.failures.Inc()
		i.failuresTotal.Inc()
		return nil, err
	}
	i.reallocs.Inc()
	i.reallocsTotal.Inc()
	i.track(int64(newSize) - int64(old.Size))
	return np, nil
}

// Metrics returns a snapshot of the counters.
func (i *InstrumentedAllocator) Metrics() AllocatorMetrics {
	return AllocatorMetrics{
		Allocations:   i.allocs.Load(),
		Deallocations: i.deallocs.Load(),
		Reallocations: i.reallocs.Load(),
		Failures:      i.failures.Load(),
		InUseBytes:    i.inUse.Load(),
		PeakBytes:     i.peak.Load(),
	}
}

func (i *InstrumentedAllocator) track(delta int64) {
	n := i.inUse.Add(delta)
	for {
		p := i.peak.Load()
		if n <= p || i.peak.CompareAndSwap(p, n) {
			return
		}
	}
}
