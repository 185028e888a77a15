package vec

// MaybeOwned holds either a pointer to a value owned elsewhere or a value
// owned outright. Get reads through whichever variant is active, so callers
// can pass data along without deciding up front whether to copy it.
//
// T is the borrowed view. An owner of a different type that exposes a T,
// such as a struct holding the []byte callers read, is wrapped with OwnedAs.
type MaybeOwned[T any] struct {
	ref   *T
	val   T
	owner any
	owned bool
}

// Borrowed wraps a value owned by the caller.
func Borrowed[T any](p *T) MaybeOwned[T] {
	return MaybeOwned[T]{ref: p}
}

// Owned wraps a value the MaybeOwned owns.
func Owned[T any](v T) MaybeOwned[T] {
	return MaybeOwned[T]{val: v, owned: true}
}

// OwnedAs takes ownership of o and exposes the T that borrow returns from it.
// borrow is called once, with a pointer to the MaybeOwned's copy of o.
func OwnedAs[T, O any](o O, borrow func(*O) *T) MaybeOwned[T] {
	p := &o
	return MaybeOwned[T]{ref: borrow(p), owner: p, owned: true}
}

// IsOwned reports whether m holds its own value.
func (m *MaybeOwned[T]) IsOwned() bool {
	return m.owned
}

// Get returns a pointer to the underlying value. For a value wrapped with
// Owned it points into m.
func (m *MaybeOwned[T]) Get() *T {
	if m.owned && m.owner == nil {
		return &m.val
	}
	return m.ref
}

// Into returns a copy of the underlying value.
func (m *MaybeOwned[T]) Into() T {
	return *m.Get()
}
