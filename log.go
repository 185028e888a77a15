package vec

import (
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

var (
	// ErrAllocationFailed wraps every allocator failure that reaches a Vec.
	ErrAllocationFailed = errors.New("vec: allocation failed")
	// ErrCapacityOverflow is returned when a requested capacity does not fit in memory.
	ErrCapacityOverflow = errors.New("vec: capacity overflow")
	// ErrPointerElements is returned by off-heap allocators asked to hold pointers.
	ErrPointerElements = errors.New("vec: element type contains pointers")
	// ErrUnsupported is returned by allocators not available on this platform.
	ErrUnsupported = errors.New("vec: allocator not supported on this platform")
	// ErrArenaReleased is returned when allocating from a released arena.
	ErrArenaReleased = errors.New("vec: use of arena after Release()")
)

type loggerHolder struct{ l log.Logger }

var pkgLogger atomic.Pointer[loggerHolder]

func init() {
	SetLogger(log.NewNopLogger())
}

// SetLogger installs the logger used for allocation failures and allocator
// diagnostics. A nil logger disables logging.
func SetLogger(l log.Logger) {
	if l == nil {
		l = log.NewNopLogger()
	}
	pkgLogger.Store(&loggerHolder{l: log.With(l, "component", "vec")})
}

func logger() log.Logger {
	return pkgLogger.Load().l
}

// fatal aborts the current operation after an allocation failure. Growth
// never returns an error to the caller.
func fatal(op string, l Layout, err error) {
	err = errors.Wrapf(ErrAllocationFailed, "%s %d bytes: %v", op, l.Size, err)
	level.Error(logger()).Log("msg", "allocation failed", "op", op, "size", l.Size, "align", l.Align, "err", err)
	panic(err)
}
