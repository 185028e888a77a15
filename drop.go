package vec

import "reflect"

// Dropper is implemented by element types that own something beyond their
// own memory. A Vec calls Drop exactly once on every element it destroys:
// on Clear, Truncate, Release and for elements rejected by Retain.
// Elements handed out by Leak are never dropped.
//
// Drop is looked up on the element itself first, which covers pointer,
// interface and value-receiver element types, and then on its slot. Nil
// elements are skipped.
type Dropper interface {
	Drop()
}

// cloner lets Repeat duplicate values that cannot be copied by assignment.
type cloner[T any] interface {
	Clone() T
}

var dropperType = reflect.TypeFor[Dropper]()

// mayDrop reports whether some value of T can reach a Drop method.
func mayDrop[T any]() bool {
	t := reflect.TypeFor[T]()
	return t.Kind() == reflect.Interface || t.Implements(dropperType) || reflect.PointerTo(t).Implements(dropperType)
}

// dropper returns the Dropper for the element at p, or nil.
func dropper[T any](p *T) Dropper {
	if d, ok := any(*p).(Dropper); ok {
		if isNil(d) {
			return nil
		}
		return d
	}
	if d, ok := any(p).(Dropper); ok {
		return d
	}
	return nil
}

func isNil(d Dropper) bool {
	v := reflect.ValueOf(d)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return v.IsNil()
	}
	return false
}

// dropAll runs Drop over s and then zeroes the slots so the collector does
// not keep their referents alive.
func dropAll[T any](s []T) {
	if len(s) == 0 {
		return
	}
	if mayDrop[T]() {
		for i := range s {
			if d := dropper(&s[i]); d != nil {
				d.Drop()
			}
		}
	}
	clear(s)
}

func dropOne[T any](p *T) {
	if d := dropper(p); d != nil {
		d.Drop()
	}
	var zero T
	*p = zero
}

func cloneValue[T any](v T) T {
	if c, ok := any(v).(cloner[T]); ok {
		return c.Clone()
	}
	return v
}
