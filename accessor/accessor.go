// Package accessor compiles and caches per-type property getters and setters.
package accessor

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// TagName struct tag overriding the property name a field is reached by;
// "-" hides the field
const TagName = "goliath"

var (
	// ErrUnsupportedType the value is not a struct or pointer to struct
	ErrUnsupportedType = errors.New("unsupported type")
	// ErrUnknownProperty no field is mapped to the property name
	ErrUnknownProperty = errors.New("unknown property")
)

// Accessor reads and writes one field of a struct type. ValueOf and
// ReflectValueOf take the struct (or a pointer to it); Set requires an
// addressable struct.
type Accessor struct {
	Name        string
	Type        reflect.Type
	StructField reflect.StructField

	ValueOf        func(reflect.Value) (value interface{}, zero bool)
	ReflectValueOf func(reflect.Value) reflect.Value
	Set            func(reflect.Value, interface{}) error
}

// Accessors compiled accessors of one struct type
type Accessors struct {
	Type   reflect.Type
	Fields []*Accessor

	byName  map[string]*Accessor
	byLower map[string]*Accessor
}

// Lookup finds an accessor by property name, falling back to a case
// insensitive match
func (a *Accessors) Lookup(name string) (*Accessor, bool) {
	if f, ok := a.byName[name]; ok {
		return f, true
	}
	f, ok := a.byLower[strings.ToLower(name)]
	return f, ok
}

// Get reads the named property of obj
func (a *Accessors) Get(obj interface{}, name string) (interface{}, error) {
	f, ok := a.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownProperty, a.Type.Name(), name)
	}
	v, _ := f.ValueOf(reflect.ValueOf(obj))
	return v, nil
}

// Set writes the named property of obj, which must be a pointer
func (a *Accessors) Set(obj interface{}, name string, value interface{}) error {
	f, ok := a.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownProperty, a.Type.Name(), name)
	}
	rv := reflect.ValueOf(obj)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("%w: %T is not a non-nil pointer", ErrUnsupportedType, obj)
	}
	return f.Set(rv, value)
}

// Cache accessors keyed by struct type; entries are never evicted. Safe for
// concurrent use.
type Cache struct {
	store sync.Map
	group singleflight.Group
}

// NewCache returns an empty cache
func NewCache() *Cache {
	return &Cache{}
}

// For returns the accessors of the struct value points at
func (c *Cache) For(value interface{}) (*Accessors, error) {
	if value == nil {
		return nil, fmt.Errorf("%w: nil", ErrUnsupportedType)
	}
	return c.Of(reflect.TypeOf(value))
}

// Of returns the accessors of t, dereferencing pointers and slices
func (c *Cache) Of(t reflect.Type) (*Accessors, error) {
	for t.Kind() == reflect.Ptr || t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedType, t)
	}

	if v, ok := c.store.Load(t); ok {
		return v.(*Accessors), nil
	}

	key := strconv.FormatUint(uint64(reflect.ValueOf(t).Pointer()), 16)
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if v, ok := c.store.Load(t); ok {
			return v, nil
		}
		accessors := compile(t)
		v, _ := c.store.LoadOrStore(t, accessors)
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Accessors), nil
}

func compile(t reflect.Type) *Accessors {
	accessors := &Accessors{
		Type:    t,
		byName:  map[string]*Accessor{},
		byLower: map[string]*Accessor{},
	}

	for _, sf := range reflect.VisibleFields(t) {
		if !sf.IsExported() {
			continue
		}
		if sf.Anonymous {
			ft := sf.Type
			if ft.Kind() == reflect.Ptr {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				continue
			}
		}

		name := sf.Name
		if tag, ok := sf.Tag.Lookup(TagName); ok {
			tag = strings.TrimSpace(strings.Split(tag, ",")[0])
			if tag == "-" {
				continue
			}
			if tag != "" {
				name = tag
			}
		}

		// shallowest field wins, first declared on a tie
		if prev, ok := accessors.byName[name]; ok && len(prev.StructField.Index) <= len(sf.Index) {
			continue
		}

		f := newAccessor(name, sf)
		if prev, ok := accessors.byName[name]; ok {
			for i, p := range accessors.Fields {
				if p == prev {
					accessors.Fields[i] = f
				}
			}
		} else {
			accessors.Fields = append(accessors.Fields, f)
		}
		accessors.byName[name] = f
		lower := strings.ToLower(name)
		if cur, ok := accessors.byLower[lower]; !ok || cur.Name == name {
			accessors.byLower[lower] = f
		}
	}
	return accessors
}

func newAccessor(name string, sf reflect.StructField) *Accessor {
	f := &Accessor{Name: name, Type: sf.Type, StructField: sf}
	index := sf.Index

	// ValueOf
	switch len(index) {
	case 1:
		f.ValueOf = func(value reflect.Value) (interface{}, bool) {
			fieldValue := reflect.Indirect(value).Field(index[0])
			return fieldValue.Interface(), fieldValue.IsZero()
		}
	default:
		f.ValueOf = func(value reflect.Value) (interface{}, bool) {
			v := reflect.Indirect(value)
			for i, idx := range index {
				if i > 0 && v.Kind() == reflect.Ptr {
					if v.IsNil() {
						return nil, true
					}
					v = v.Elem()
				}
				v = v.Field(idx)
			}
			return v.Interface(), v.IsZero()
		}
	}

	// ReflectValueOf allocates nil embedded pointers on the way down
	switch len(index) {
	case 1:
		f.ReflectValueOf = func(value reflect.Value) reflect.Value {
			return reflect.Indirect(value).Field(index[0])
		}
	default:
		f.ReflectValueOf = func(value reflect.Value) reflect.Value {
			v := reflect.Indirect(value)
			for i, idx := range index {
				if i > 0 && v.Kind() == reflect.Ptr {
					if v.IsNil() {
						v.Set(reflect.New(v.Type().Elem()))
					}
					v = v.Elem()
				}
				v = v.Field(idx)
			}
			return v
		}
	}

	assign := SetterFor(sf.Type)
	f.Set = func(value reflect.Value, v interface{}) error {
		if err := assign(f.ReflectValueOf(value), v); err != nil {
			return fmt.Errorf("failed to set value %+v to field %v: %w", v, f.Name, err)
		}
		return nil
	}
	return f
}
