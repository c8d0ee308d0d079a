package accessor

import (
	"reflect"

	"github.com/malweka/GoliathData-sub001/lazy"
)

var deferredType = reflect.TypeOf((*lazy.Deferred)(nil)).Elem()

// IsDeferred reports whether t (or *t) is a lazy wrapper
func IsDeferred(t reflect.Type) bool {
	return t.Implements(deferredType) || reflect.PointerTo(t).Implements(deferredType)
}

// Deferred returns the lazy wrapper held in fv. A nil wrapper pointer is
// allocated when alloc is set and fv is settable.
func Deferred(fv reflect.Value, alloc bool) (lazy.Deferred, bool) {
	switch {
	case fv.Kind() == reflect.Ptr && fv.Type().Implements(deferredType):
		if fv.IsNil() {
			if !alloc || !fv.CanSet() {
				return nil, false
			}
			fv.Set(reflect.New(fv.Type().Elem()))
		}
		return fv.Interface().(lazy.Deferred), true
	case fv.CanAddr() && reflect.PointerTo(fv.Type()).Implements(deferredType):
		return fv.Addr().Interface().(lazy.Deferred), true
	}
	return nil, false
}

// Related unwraps a to-one relation value. obj is the referenced struct
// pointer when one is held; key is set instead for a pending lazy reference
// and for fields holding the raw key.
func Related(fv reflect.Value) (obj interface{}, key interface{}, ok bool) {
	if d, isDeferred := Deferred(fv, false); isDeferred {
		ref, isRef := d.(lazy.DeferredRef)
		if !isRef {
			return nil, nil, false
		}
		if v, loaded := ref.LoadedValue(); loaded {
			if v == nil {
				return nil, nil, false
			}
			return v, nil, true
		}
		if k := ref.Key(); k != nil {
			return nil, k, true
		}
		return nil, nil, false
	}

	switch {
	case fv.Kind() == reflect.Ptr && fv.IsNil():
		return nil, nil, false
	case fv.Kind() == reflect.Ptr && fv.Type().Elem().Kind() == reflect.Struct:
		return fv.Interface(), nil, true
	case fv.Kind() == reflect.Struct && fv.CanAddr():
		if fv.IsZero() {
			return nil, nil, false
		}
		return fv.Addr().Interface(), nil, true
	case fv.Kind() == reflect.Interface:
		if fv.IsNil() {
			return nil, nil, false
		}
		return Related(fv.Elem())
	}
	if fv.IsZero() {
		return nil, nil, false
	}
	return nil, fv.Interface(), true
}

// Elements lists the elements of a to-many relation value as struct
// pointers. A pending lazy collection is reported as not loaded.
func Elements(fv reflect.Value) ([]interface{}, bool) {
	if d, ok := Deferred(fv, false); ok {
		if c, ok := d.(lazy.DeferredCollection); ok {
			return c.LoadedItems()
		}
		return nil, false
	}

	fv = reflect.Indirect(fv)
	var items []interface{}
	switch fv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < fv.Len(); i++ {
			if item, ok := elementPointer(fv.Index(i)); ok {
				items = append(items, item)
			}
		}
	case reflect.Map:
		iter := fv.MapRange()
		for iter.Next() {
			if item, ok := elementPointer(iter.Value()); ok {
				items = append(items, item)
			}
		}
	}
	return items, true
}

func elementPointer(v reflect.Value) (interface{}, bool) {
	switch {
	case v.Kind() == reflect.Interface:
		if v.IsNil() {
			return nil, false
		}
		return elementPointer(v.Elem())
	case v.Kind() == reflect.Ptr:
		if v.IsNil() {
			return nil, false
		}
		return v.Interface(), true
	case v.CanAddr():
		return v.Addr().Interface(), true
	}
	p := reflect.New(v.Type())
	p.Elem().Set(v)
	return p.Interface(), true
}
