// Package lazy holds deferred relation values: a single reference (Ref) and a
// collection (Collection), each either loaded or pending a stored query that
// runs on first access.
package lazy

import (
	"context"
	"errors"
	"reflect"
	"sync"
)

// ErrNoLoader pending value has no loader to run its query
var ErrNoLoader = errors.New("lazy: no loader")

// Param a named query parameter
type Param struct {
	Name  string
	Value interface{}
}

// Query a stored read: SQL with named markers, its parameters and the entity
// the rows hydrate into
type Query struct {
	SQL    string
	Params []Param
	Entity string
}

// Loader runs a stored query, appending hydrated rows to dest (a *[]*T)
type Loader interface {
	Load(ctx context.Context, q Query, dest interface{}) error
}

// Deferred is implemented by Ref and Collection so hydration can fill them
// without knowing their element type statically
type Deferred interface {
	// ElemType struct type of the referenced entities
	ElemType() reflect.Type
	// SetPending stores the query run on first access
	SetPending(q Query, loader Loader)
	// SetLoadedValue stores a value: *T for Ref, []*T for Collection, nil for empty
	SetLoadedValue(v interface{}) error
	IsLoaded() bool
}

// DeferredRef a Deferred single reference
type DeferredRef interface {
	Deferred
	LoadedValue() (interface{}, bool)
	Key() interface{}
	SetKey(key interface{})
}

// DeferredCollection a Deferred collection
type DeferredCollection interface {
	Deferred
	LoadedItems() ([]interface{}, bool)
}

// ErrValueType value passed to SetLoadedValue does not match the element type
var ErrValueType = errors.New("lazy: value type mismatch")

type state struct {
	mu     sync.Mutex
	loaded bool
	query  *Query
	loader Loader
}

func (s *state) setPending(q Query, loader Loader) {
	s.loaded, s.query, s.loader = false, &q, loader
}

// Pending returns the stored query when the value is not loaded yet
func (s *state) pending() (Query, bool) {
	if s.loaded || s.query == nil {
		return Query{}, false
	}
	return *s.query, true
}

func load[T any](ctx context.Context, s *state) ([]*T, error) {
	if s.loader == nil {
		return nil, ErrNoLoader
	}
	var rows []*T
	if err := s.loader.Load(ctx, *s.query, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Ref a deferred single reference. The zero value is loaded and empty.
type Ref[T any] struct {
	state
	value *T
	key   interface{}
}

// Loaded returns a Ref holding v
func Loaded[T any](v *T) *Ref[T] {
	r := &Ref[T]{value: v}
	r.loaded = true
	return r
}

// Pending returns a Ref that runs q through loader on first access
func Pending[T any](q Query, loader Loader) *Ref[T] {
	r := &Ref[T]{}
	r.setPending(q, loader)
	return r
}

// Get returns the referenced value, running the stored query once
func (r *Ref[T]) Get(ctx context.Context) (*T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.state.pending(); !ok {
		return r.value, nil
	}
	rows, err := load[T](ctx, &r.state)
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		r.value = rows[0]
	}
	r.loaded, r.query, r.loader = true, nil, nil
	return r.value, nil
}

// Set replaces the reference with a loaded value
func (r *Ref[T]) Set(v *T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.value, r.loaded, r.query, r.loader = v, true, nil, nil
}

// IsLoaded reports whether the value is available without a query
func (r *Ref[T]) IsLoaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, pending := r.state.pending()
	return !pending
}

// Query returns the stored query while the reference is pending
func (r *Ref[T]) Query() (Query, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.pending()
}

// Key foreign key value the reference was hydrated from
func (r *Ref[T]) Key() interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.key
}

// SetKey records the foreign key value of a pending reference
func (r *Ref[T]) SetKey(key interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.key = key
}

func (r *Ref[T]) ElemType() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func (r *Ref[T]) SetPending(q Query, loader Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.value = nil
	r.setPending(q, loader)
}

func (r *Ref[T]) SetLoadedValue(v interface{}) error {
	if v == nil {
		r.Set(nil)
		return nil
	}
	value, ok := v.(*T)
	if !ok {
		return ErrValueType
	}
	r.Set(value)
	return nil
}

// LoadedValue returns the value when loaded, without running a query
func (r *Ref[T]) LoadedValue() (interface{}, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, pending := r.state.pending(); pending || r.value == nil {
		return nil, !pending
	}
	return r.value, true
}

// Collection a deferred collection. The zero value is loaded and empty.
type Collection[T any] struct {
	state
	items []*T
}

// LoadedCollection returns a Collection holding items
func LoadedCollection[T any](items ...*T) *Collection[T] {
	c := &Collection[T]{items: items}
	c.loaded = true
	return c
}

// PendingCollection returns a Collection that runs q through loader on first access
func PendingCollection[T any](q Query, loader Loader) *Collection[T] {
	c := &Collection[T]{}
	c.setPending(q, loader)
	return c
}

// Items returns the elements, running the stored query once
func (c *Collection[T]) Items(ctx context.Context) ([]*T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.state.pending(); !ok {
		return c.items, nil
	}
	rows, err := load[T](ctx, &c.state)
	if err != nil {
		return nil, err
	}
	c.items = rows
	c.loaded, c.query, c.loader = true, nil, nil
	return c.items, nil
}

// Set replaces the elements
func (c *Collection[T]) Set(items []*T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items, c.loaded, c.query, c.loader = items, true, nil, nil
}

// Add appends an element to a loaded collection. Adding to a pending
// collection discards the pending query.
func (c *Collection[T]) Add(items ...*T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, items...)
	c.loaded, c.query, c.loader = true, nil, nil
}

// IsLoaded reports whether the elements are available without a query
func (c *Collection[T]) IsLoaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, pending := c.state.pending()
	return !pending
}

// Query returns the stored query while the collection is pending
func (c *Collection[T]) Query() (Query, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.pending()
}

func (c *Collection[T]) ElemType() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func (c *Collection[T]) SetPending(q Query, loader Loader) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.setPending(q, loader)
}

func (c *Collection[T]) SetLoadedValue(v interface{}) error {
	if v == nil {
		c.Set(nil)
		return nil
	}
	items, ok := v.([]*T)
	if !ok {
		return ErrValueType
	}
	c.Set(items)
	return nil
}

// LoadedItems returns the elements when loaded, without running a query
func (c *Collection[T]) LoadedItems() ([]interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, pending := c.state.pending(); pending {
		return nil, false
	}
	items := make([]interface{}, len(c.items))
	for i, item := range c.items {
		items[i] = item
	}
	return items, true
}
