// Package workload replays randomized editor edits against a vec.Vec[byte]
// text buffer and reports allocator behaviour.
package workload

import (
	"bytes"
	"context"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pavanmanishd/vec"
)

// corpus is the shared text edits borrow from.
var corpus = []byte("The quick brown fox jumps over the lazy dog.\n" +
	"Pack my box with five dozen liquor jugs.\n" +
	"Sphinx of black quartz, judge my vow.\n" +
	"How vexingly quick daft zebras jump!\n")

// Op identifies an edit kind.
type Op int

const (
	OpInsert Op = iota
	OpDelete
	OpReplace
	OpDuplicate
	OpRetain
	OpTruncate
	OpShrink
	numOps
)

var opNames = [numOps]string{"insert", "delete", "replace", "duplicate", "retain", "truncate", "shrink"}

func (o Op) String() string {
	if o < 0 || o >= numOps {
		return "unknown"
	}
	return opNames[o]
}

// Report summarises a finished run.
type Report struct {
	Steps     int
	Ops       [numOps]int
	Duration  time.Duration
	Len       int
	Cap       int
	Allocator vec.AllocatorMetrics
	Arena     *vec.ArenaMetrics
}

// Count returns how many edits of kind o ran.
func (r Report) Count(o Op) int {
	return r.Ops[o]
}

// Runner replays a workload.
type Runner struct {
	cfg    Config
	logger log.Logger
	reg    prometheus.Registerer
}

// NewRunner validates cfg and returns a Runner. reg may be nil.
func NewRunner(cfg Config, logger log.Logger, reg prometheus.Registerer) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid workload config")
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Runner{cfg: cfg, logger: logger, reg: reg}, nil
}

// Run executes the configured number of edits. It stops early when ctx is
// cancelled or, with Verify set, when the buffer diverges from the reference
// model. Each call registers a fresh set of allocator metrics with the
// Runner's registerer, so a non-nil registerer supports a single Run.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	base, arena, err := r.newAllocator()
	if err != nil {
		return Report{}, err
	}
	if arena != nil {
		defer arena.Release()
	}
	alloc := vec.Instrument(base, r.reg)

	var buf *vec.Vec[byte]
	if r.cfg.InitialCapacity > 0 {
		buf = vec.WithCapacityIn[byte](r.cfg.InitialCapacity, alloc)
	} else {
		buf = vec.NewIn[byte](alloc)
	}
	defer buf.Release()

	var model []byte
	rng := rand.New(rand.NewPCG(r.cfg.Seed, r.cfg.Seed^0x9e3779b97f4a7c15))
	rep := Report{}
	start := time.Now()

	for step := 0; step < r.cfg.Steps; step++ {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		op := r.pick(rng)
		model = r.apply(op, rng, buf, model)
		rep.Ops[op]++
		rep.Steps++

		if r.cfg.Verify && !bytes.Equal(buf.Slice(), model) {
			return rep, errors.Errorf("buffer diverged from reference after step %d (%s): len %d, want %d", step, op, buf.Len(), len(model))
		}
		if (step+1)%10000 == 0 {
			level.Debug(r.logger).Log("msg", "workload progress", "step", step+1, "len", buf.Len(), "cap", buf.Cap())
		}
	}

	rep.Duration = time.Since(start)
	rep.Len = buf.Len()
	rep.Cap = buf.Cap()
	rep.Allocator = alloc.Metrics()
	if arena != nil {
		m := arena.Metrics()
		rep.Arena = &m
	}
	level.Info(r.logger).Log("msg", "workload finished", "steps", rep.Steps, "duration", rep.Duration, "len", rep.Len, "cap", rep.Cap, "allocator", rep.Allocator)
	return rep, nil
}

func (r *Runner) newAllocator() (vec.Allocator, *vec.Arena, error) {
	switch r.cfg.Allocator {
	case AllocatorArena:
		a := vec.NewArena(r.cfg.ArenaChunkSize)
		return a, a, nil
	case AllocatorMmap:
		m, err := vec.NewMmap()
		if err != nil {
			return nil, nil, errors.Wrap(err, "creating mmap allocator")
		}
		return m, nil, nil
	default:
		return vec.Global(), nil, nil
	}
}

func (r *Runner) pick(rng *rand.Rand) Op {
	m := r.cfg.Mix
	n := rng.IntN(m.total())
	for op, w := range []int{m.Insert, m.Delete, m.Replace, m.Duplicate, m.Retain, m.Truncate, m.Shrink} {
		if n < w {
			return Op(op)
		}
		n -= w
	}
	return OpInsert
}

// text returns the bytes to insert: borrowed from the shared corpus, freshly
// generated, or typed into a scratch buffer.
func (r *Runner) text(rng *rand.Rand) vec.MaybeOwned[[]byte] {
	n := 1 + rng.IntN(r.cfg.MaxEditSize)
	switch rng.IntN(3) {
	case 0:
		if n <= len(corpus) {
			off := rng.IntN(len(corpus) - n + 1)
			s := corpus[off : off+n]
			return vec.Borrowed(&s)
		}
	case 1:
		var sb bytes.Buffer
		for range n {
			sb.WriteByte('A' + byte(rng.IntN(26)))
		}
		return vec.OwnedAs(sb, func(b *bytes.Buffer) *[]byte {
			s := b.Bytes()
			return &s
		})
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a' + byte(rng.IntN(26))
	}
	return vec.Owned(b)
}

// apply performs op on buf and mirrors it on the reference model.
func (r *Runner) apply(op Op, rng *rand.Rand, buf *vec.Vec[byte], model []byte) []byte {
	n := buf.Len()
	switch op {
	case OpInsert:
		t := r.text(rng)
		pos := rng.IntN(n + 1)
		buf.ReplaceRange(pos, pos, *t.Get())
		return slices.Insert(model, pos, *t.Get()...)
	case OpDelete, OpReplace:
		if n == 0 {
			return model
		}
		pos := rng.IntN(n)
		end := pos + 1 + rng.IntN(r.cfg.MaxEditSize)
		var src []byte
		if op == OpReplace {
			t := r.text(rng)
			src = t.Into()
		}
		buf.ReplaceRange(pos, end, src)
		return slices.Replace(model, pos, min(end, len(model)), src...)
	case OpDuplicate:
		if n == 0 {
			return model
		}
		start := rng.IntN(n)
		end := min(n, start+1+rng.IntN(r.cfg.MaxEditSize))
		buf.ExtendFromWithin(start, end)
		return append(model, model[start:end]...)
	case OpRetain:
		if n == 0 {
			return model
		}
		drop := buf.Slice()[rng.IntN(n)]
		buf.Retain(func(b byte) bool { return b != drop })
		return slices.DeleteFunc(model, func(b byte) bool { return b == drop })
	case OpTruncate:
		keep := max(0, n-rng.IntN(r.cfg.MaxEditSize+1))
		buf.Truncate(keep)
		return model[:keep]
	case OpShrink:
		buf.ShrinkToFit()
		return model
	}
	return model
}
