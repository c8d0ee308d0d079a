// Package hydrate materializes entity graphs from result rows. Eager
// ManyToOne targets are read from their joined columns, lazy relations are
// left pending a stored query that runs on first access.
package hydrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/malweka/GoliathData-sub001/accessor"
	"github.com/malweka/GoliathData-sub001/lazy"
	"github.com/malweka/GoliathData-sub001/logger"
	"github.com/malweka/GoliathData-sub001/mapping"
	"github.com/malweka/GoliathData-sub001/sqlgen"
)

// ErrInvalidDestination dest is not a pointer to a struct or a slice of structs
var ErrInvalidDestination = errors.New("invalid destination")

var scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()

// Hydrator fills entity instances from rows labelled <alias>_<column>
type Hydrator struct {
	Builder    *sqlgen.Builder
	Converters *Converters
	Loader     lazy.Loader
	Logger     logger.Interface

	warned sync.Map
	plans  sync.Map // *mapping.Entity -> *plan
}

// plan the tables an entity's row is read from: its inheritance chain under
// the chain's own aliases, and the eager targets joined by relation
type plan struct {
	chain   []*mapping.Entity
	aliases []string
	joins   map[*mapping.Relation]sqlgen.Join
}

func (h *Hydrator) plan(e *mapping.Entity) (*plan, error) {
	if p, ok := h.plans.Load(e); ok {
		return p.(*plan), nil
	}
	chain, err := e.InheritanceChain()
	if err != nil {
		return nil, err
	}
	eager, err := sqlgen.EagerJoins(chain)
	if err != nil {
		return nil, err
	}
	p := &plan{chain: chain, aliases: make([]string, len(chain)), joins: make(map[*mapping.Relation]sqlgen.Join, len(eager))}
	for i, ent := range chain {
		p.aliases[i] = ent.Alias()
	}
	for _, j := range eager {
		p.joins[j.Relation] = j
	}
	actual, _ := h.plans.LoadOrStore(e, p)
	return actual.(*plan), nil
}

// New returns a hydrator whose lazy relations load through loader
func New(b *sqlgen.Builder, loader lazy.Loader) *Hydrator {
	return &Hydrator{Builder: b, Converters: NewConverters(), Loader: loader, Logger: logger.Discard}
}

type row struct {
	values []interface{}
	index  map[string]int
}

func columnIndex(cols []string) map[string]int {
	index := make(map[string]int, len(cols))
	for i, c := range cols {
		lower := strings.ToLower(c)
		if _, ok := index[lower]; !ok {
			index[lower] = i
		}
	}
	return index
}

func (r row) get(alias, column string) (interface{}, bool) {
	i, ok := r.index[strings.ToLower(alias+"_"+column)]
	if !ok || i >= len(r.values) {
		return nil, false
	}
	return r.values[i], true
}

// Serialize reads every row of reader into dest: a pointer to a slice of
// structs or struct pointers, or a pointer to a single struct, which receives
// the first row. A row failing conversion aborts the call without being
// added to dest.
func (h *Hydrator) Serialize(ctx context.Context, reader RowReader, e *mapping.Entity, dest interface{}) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("%w: %T", ErrInvalidDestination, dest)
	}
	cols, err := reader.Columns()
	if err != nil {
		return err
	}
	index := columnIndex(cols)

	target := rv.Elem()
	switch target.Kind() {
	case reflect.Slice:
		elemType := target.Type().Elem()
		isPtr := elemType.Kind() == reflect.Ptr
		structType := elemType
		if isPtr {
			structType = elemType.Elem()
		}
		if structType.Kind() != reflect.Struct {
			return fmt.Errorf("%w: %T", ErrInvalidDestination, dest)
		}
		for reader.Next() {
			values, err := reader.Values()
			if err != nil {
				return err
			}
			obj := reflect.New(structType)
			if err := h.hydrateEntity(ctx, e, obj, row{values: values, index: index}); err != nil {
				return err
			}
			if isPtr {
				target.Set(reflect.Append(target, obj))
			} else {
				target.Set(reflect.Append(target, obj.Elem()))
			}
		}
		return reader.Err()
	case reflect.Struct:
		if !reader.Next() {
			if err := reader.Err(); err != nil {
				return err
			}
			return logger.ErrRecordNotFound
		}
		values, err := reader.Values()
		if err != nil {
			return err
		}
		obj := reflect.New(target.Type())
		if err := h.hydrateEntity(ctx, e, obj, row{values: values, index: index}); err != nil {
			return err
		}
		target.Set(obj.Elem())
		return reader.Err()
	}
	return fmt.Errorf("%w: %T", ErrInvalidDestination, dest)
}

// HydrateRow fills dest, a struct pointer, from one row
func (h *Hydrator) HydrateRow(ctx context.Context, e *mapping.Entity, cols []string, values []interface{}, dest interface{}) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w: %T", ErrInvalidDestination, dest)
	}
	obj := reflect.New(rv.Elem().Type())
	if err := h.hydrateEntity(ctx, e, obj, row{values: values, index: columnIndex(cols)}); err != nil {
		return err
	}
	rv.Elem().Set(obj.Elem())
	return nil
}

func (h *Hydrator) hydrateEntity(ctx context.Context, e *mapping.Entity, obj reflect.Value, r row) error {
	p, err := h.plan(e)
	if err != nil {
		return err
	}
	return h.hydrate(ctx, p.chain, p.aliases, obj, r, p.joins)
}

// hydrate fills obj from the tables of chain, each read under the alias at
// the same position. ManyToOne relations found in joins are hydrated from
// their joined columns, the others become key-only references.
func (h *Hydrator) hydrate(ctx context.Context, chain []*mapping.Entity, aliases []string, obj reflect.Value, r row, joins map[*mapping.Relation]sqlgen.Join) error {
	acc, err := h.Builder.Accessors.Of(obj.Type())
	if err != nil {
		return err
	}

	for i, ent := range chain {
		for _, k := range ent.Keys() {
			if k.Relation != nil {
				err = h.manyToOne(ctx, ent, aliases[i], k.Relation, obj, acc, r, joins)
			} else {
				err = h.property(ctx, ent, aliases[i], k.Key, obj, acc, r)
			}
			if err != nil {
				return err
			}
		}
		for _, p := range ent.Properties {
			if err := h.property(ctx, ent, aliases[i], p, obj, acc, r); err != nil {
				return err
			}
		}
	}

	// relations last, collections key on the hydrated owner key
	for i, ent := range chain {
		for _, rel := range ent.Relations {
			if rel.Exclude {
				continue
			}
			if rel.RelationType == mapping.ManyToOne {
				err = h.manyToOne(ctx, ent, aliases[i], rel, obj, acc, r, joins)
			} else {
				err = h.collection(ctx, chain, ent, aliases[i], rel, obj, acc, r)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *Hydrator) lookup(ctx context.Context, ent *mapping.Entity, acc *accessor.Accessors, name string) (*accessor.Accessor, bool) {
	f, ok := acc.Lookup(name)
	if !ok && h.Logger != nil {
		if _, seen := h.warned.LoadOrStore(acc.Type.String()+"."+name, true); !seen {
			h.Logger.Warn(ctx, "%s.%s is mapped but %v has no such field", ent.FullName(), name, acc.Type)
		}
	}
	return f, ok
}

func (h *Hydrator) property(ctx context.Context, ent *mapping.Entity, alias string, p *mapping.Property, obj reflect.Value, acc *accessor.Accessors, r row) error {
	v, ok := r.get(alias, p.ColumnName)
	if !ok {
		return nil
	}
	f, ok := h.lookup(ctx, ent, acc, p.PropertyName)
	if !ok {
		return nil
	}
	return h.assign(f.ReflectValueOf(obj), v, alias+"_"+p.ColumnName, p.ClrType)
}

func (h *Hydrator) assign(fv reflect.Value, v interface{}, column, clrType string) error {
	if err := h.convert(fv, v, clrType); err != nil {
		return &ConversionError{Column: column, From: reflect.TypeOf(v), To: fv.Type(), Err: err}
	}
	return nil
}

// convert stores v in fv: as is when assignable, else through a registered
// converter, the enum mapped to clrType, or the accessor's coercing setter
func (h *Hydrator) convert(fv reflect.Value, v interface{}, clrType string) error {
	if v == nil {
		fv.Set(reflect.Zero(fv.Type()))
		return nil
	}
	if reflect.TypeOf(v).AssignableTo(fv.Type()) {
		fv.Set(reflect.ValueOf(v))
		return nil
	}

	t := fv.Type()
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if fn, ok := h.Converters.Lookup(t); ok {
		out, err := fn(v)
		if err != nil {
			return err
		}
		return accessor.Assign(fv, out)
	}
	if enum, ok := h.enum(clrType); ok {
		out, err := enumValue(enum, v, t)
		if err != nil {
			return err
		}
		return accessor.Assign(fv, out)
	}
	return accessor.Assign(fv, v)
}

func (h *Hydrator) enum(clrType string) (*mapping.ComplexType, bool) {
	if clrType == "" || h.Builder.Model == nil {
		return nil, false
	}
	ct, ok := h.Builder.Model.GetComplexType(clrType)
	if !ok || !ct.IsEnum {
		return nil, false
	}
	return ct, true
}

// relatedType struct type a to-one field refers to, nil when the field holds
// the raw key
func relatedType(fv reflect.Value, d lazy.Deferred) reflect.Type {
	if d != nil {
		return d.ElemType()
	}
	t := fv.Type()
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct || t == timeType || reflect.PointerTo(t).Implements(scannerType) {
		return nil
	}
	return t
}

func setRelated(fv reflect.Value, d lazy.Deferred, ptr reflect.Value) error {
	if d != nil {
		return d.SetLoadedValue(ptr.Interface())
	}
	if fv.Kind() == reflect.Struct {
		fv.Set(ptr.Elem())
		return nil
	}
	fv.Set(ptr)
	return nil
}

func (h *Hydrator) manyToOne(ctx context.Context, ent *mapping.Entity, alias string, rel *mapping.Relation, obj reflect.Value, acc *accessor.Accessors, r row, joins map[*mapping.Relation]sqlgen.Join) error {
	f, ok := h.lookup(ctx, ent, acc, rel.PropertyName)
	if !ok {
		return nil
	}
	fv := f.ReflectValueOf(obj)
	column := alias + "_" + rel.ColumnName
	fk, present := r.get(alias, rel.ColumnName)

	d, _ := accessor.Deferred(fv, true)
	elem := relatedType(fv, d)
	if elem == nil {
		if !present {
			return nil
		}
		return h.assign(fv, fk, column, rel.ClrType)
	}

	if fk == nil {
		if d != nil {
			return d.SetLoadedValue(nil)
		}
		fv.Set(reflect.Zero(fv.Type()))
		return nil
	}

	target, err := ent.ReferenceEntity(rel)
	if err != nil {
		return err
	}
	if rel.LazyLoad && d != nil {
		q, err := h.Builder.RelationQuery(ent, rel, fk)
		if err != nil {
			return err
		}
		d.SetPending(q, h.Loader)
		if ref, ok := d.(lazy.DeferredRef); ok {
			ref.SetKey(fk)
		}
		return nil
	}

	ptr := reflect.New(elem)
	if j, ok := joins[rel]; ok && !rel.LazyLoad {
		if key, joined := r.get(j.Alias(), rel.ReferenceColumn); joined && sameKey(key, fk) {
			if err := h.hydrate(ctx, j.Chain, j.Aliases, ptr, r, nil); err != nil {
				return err
			}
			return setRelated(fv, d, ptr)
		}
	}

	// key only
	tacc, err := h.Builder.Accessors.Of(elem)
	if err != nil {
		return err
	}
	if kf, ok := h.lookup(ctx, target, tacc, sqlgen.ReferenceProperty(rel, target)); ok {
		if err := h.assign(kf.ReflectValueOf(ptr), fk, column, ""); err != nil {
			return err
		}
	}
	return setRelated(fv, d, ptr)
}

// collection leaves a lazy collection pending a query on the owner key, or
// loaded and empty when the key is null. Plain slices are left untouched.
func (h *Hydrator) collection(ctx context.Context, chain []*mapping.Entity, ent *mapping.Entity, alias string, rel *mapping.Relation, obj reflect.Value, acc *accessor.Accessors, r row) error {
	f, ok := h.lookup(ctx, ent, acc, rel.PropertyName)
	if !ok {
		return nil
	}
	d, ok := accessor.Deferred(f.ReflectValueOf(obj), true)
	if !ok {
		return nil
	}

	key := ownerKey(chain, alias, rel, obj, acc, r)
	if key == nil {
		return d.SetLoadedValue(nil)
	}
	q, err := h.Builder.RelationQuery(ent, rel, key)
	if err != nil {
		return err
	}
	d.SetPending(q, h.Loader)
	return nil
}

// ownerKey reads the column a collection joins on from the row, or from the
// hydrated property mapped to it
func ownerKey(chain []*mapping.Entity, alias string, rel *mapping.Relation, obj reflect.Value, acc *accessor.Accessors, r row) interface{} {
	if v, ok := r.get(alias, rel.ColumnName); ok {
		return v
	}
	for i := len(chain) - 1; i >= 0; i-- {
		p, ok := chain[i].PropertyByColumn(rel.ColumnName)
		if !ok {
			continue
		}
		f, ok := acc.Lookup(p.PropertyName)
		if !ok {
			return nil
		}
		if v, zero := f.ValueOf(obj); !zero {
			return v
		}
		return nil
	}
	return nil
}

// sameKey reports whether a joined key matches the foreign key it was joined on
func sameKey(joined, fk interface{}) bool {
	if joined == nil || fk == nil {
		return false
	}
	if reflect.DeepEqual(joined, fk) {
		return true
	}
	return fmt.Sprint(joined) == fmt.Sprint(fk)
}
