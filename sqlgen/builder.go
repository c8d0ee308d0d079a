package sqlgen

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/malweka/GoliathData-sub001/accessor"
	"github.com/malweka/GoliathData-sub001/dialect"
	"github.com/malweka/GoliathData-sub001/keygen"
	"github.com/malweka/GoliathData-sub001/mapping"
	"github.com/malweka/GoliathData-sub001/utils"
)

// ErrInvalidValue the value handed to a builder is not a non-nil struct pointer
var ErrInvalidValue = errors.New("invalid value")

// Builder builds statement trees for entities of one model against one dialect
type Builder struct {
	Model     *mapping.Model
	Dialect   dialect.Dialect
	Accessors *accessor.Cache
}

// NewBuilder returns a builder; a nil cache gets a private one
func NewBuilder(model *mapping.Model, d dialect.Dialect, cache *accessor.Cache) *Builder {
	if cache == nil {
		cache = accessor.NewCache()
	}
	return &Builder{Model: model, Dialect: d, Accessors: cache}
}

// BuildInsert plans the insert of obj. With recursive set, OneToMany children
// are inserted and owning ManyToMany join rows written.
func (b *Builder) BuildInsert(e *mapping.Entity, obj interface{}, recursive bool) (*BatchSqlOperation, error) {
	return b.newBuild().insert(e, obj, recursive, Medium, nil)
}

// BuildUpdate plans the update of obj. With recursive set, unsaved OneToMany
// children are inserted, saved ones updated, and owning ManyToMany join rows
// rewritten.
func (b *Builder) BuildUpdate(e *mapping.Entity, obj interface{}, recursive bool) (*BatchSqlOperation, error) {
	return b.newBuild().update(e, obj, recursive, Medium, nil)
}

// BuildDelete plans the delete of obj. With recursive set, loaded OneToMany
// children and owning ManyToMany join rows are deleted first.
func (b *Builder) BuildDelete(e *mapping.Entity, obj interface{}, recursive bool) (*BatchSqlOperation, error) {
	return b.newBuild().delete(e, obj, recursive, Medium)
}

// IsUnsaved reports whether any key of obj holds its zero or unsaved value
func (b *Builder) IsUnsaved(e *mapping.Entity, obj interface{}) (bool, error) {
	return b.newBuild().isUnsaved(e, obj)
}

func (b *Builder) table(e *mapping.Entity) string {
	if e.SchemaName != "" {
		return b.Dialect.Quote(e.SchemaName + "." + e.TableName)
	}
	return b.Dialect.Quote(e.TableName)
}

func (b *Builder) keyGenerators() *keygen.Registry {
	if b.Model != nil && b.Model.KeyGenerators() != nil {
		return b.Model.KeyGenerators()
	}
	return keygen.NewDefaultRegistry()
}

// build state of one Build call; the level counter keeps parameter names of
// nested statements apart
type build struct {
	*Builder
	level int
}

func (b *Builder) newBuild() *build {
	return &build{Builder: b}
}

func (s *build) nextLevel() int {
	s.level++
	return s.level
}

// paramName <prefix>_<column>_<level>, with every byte a marker cannot hold
// (such as the dot of a schema qualified table) replaced by '_'
func paramName(prefix, column string, level int) string {
	name := []byte(fmt.Sprintf("%s_%s_%d", prefix, column, level))
	for i, c := range name {
		if !isIdentPart(c) {
			name[i] = '_'
		}
	}
	return string(name)
}

// parentLink fills a child's foreign key column with its owner's key
type parentLink struct {
	column string
	value  func() (interface{}, error)
}

type column struct {
	name  string
	param Param
}

// columnSet ordered columns; a relation replaces a plain field on the same column
type columnSet struct {
	cols  []column
	index map[string]int
}

func newColumnSet() *columnSet {
	return &columnSet{index: map[string]int{}}
}

func (c *columnSet) add(name string, p Param, override bool) {
	if i, ok := c.index[name]; ok {
		if override {
			c.cols[i] = column{name: name, param: p}
		}
		return
	}
	c.index[name] = len(c.cols)
	c.cols = append(c.cols, column{name: name, param: p})
}

func (c *columnSet) remove(name string) {
	i, ok := c.index[name]
	if !ok {
		return
	}
	c.cols = append(c.cols[:i:i], c.cols[i+1:]...)
	delete(c.index, name)
	for j := i; j < len(c.cols); j++ {
		c.index[c.cols[j].name] = j
	}
}

func (c *columnSet) params() []Param {
	params := make([]Param, len(c.cols))
	for i, col := range c.cols {
		params[i] = col.param
	}
	return params
}

func (s *build) instance(e *mapping.Entity, obj interface{}) (*accessor.Accessors, reflect.Value, error) {
	rv := reflect.ValueOf(obj)
	if !rv.IsValid() || rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return nil, rv, fmt.Errorf("%w: %s requires a non-nil struct pointer, got %T", ErrInvalidValue, e.FullName(), obj)
	}
	acc, err := s.Accessors.For(obj)
	if err != nil {
		return nil, rv, err
	}
	return acc, rv, nil
}

func (s *build) field(e *mapping.Entity, acc *accessor.Accessors, name string) (*accessor.Accessor, error) {
	if f, ok := acc.Lookup(name); ok {
		return f, nil
	}
	return nil, &mapping.MappingError{Entity: e.FullName(), Property: name, Err: mapping.ErrPropertyNotFound}
}

func reader(rv reflect.Value, f *accessor.Accessor) func() (interface{}, error) {
	return func() (interface{}, error) {
		v, _ := f.ValueOf(rv)
		return v, nil
	}
}

// relatedKey reads property of the entity held in a to-one relation field
func (s *build) relatedKey(fv reflect.Value, property string) (interface{}, error) {
	obj, key, ok := accessor.Related(fv)
	if !ok {
		return nil, nil
	}
	if obj == nil {
		return key, nil
	}
	acc, err := s.Accessors.For(obj)
	if err != nil {
		return nil, err
	}
	return acc.Get(obj, property)
}

// ReferenceProperty property of target a to-one relation points at
func ReferenceProperty(rel *mapping.Relation, target *mapping.Entity) string {
	if rel.ReferenceProperty != "" {
		return rel.ReferenceProperty
	}
	if keys := target.Keys(); len(keys) > 0 {
		return keys[0].Name()
	}
	return "Id"
}

// manyToOneParam resolves the referenced entity's key when the statement runs
func (s *build) manyToOneParam(owner *mapping.Entity, rel *mapping.Relation, rv reflect.Value, acc *accessor.Accessors, name string) (Param, error) {
	f, err := s.field(owner, acc, rel.PropertyName)
	if err != nil {
		return Param{}, err
	}
	target, err := owner.ReferenceEntity(rel)
	if err != nil {
		return Param{}, err
	}
	property := ReferenceProperty(rel, target)
	return Param{Name: name, Lazy: func() (interface{}, error) {
		return s.relatedKey(f.ReflectValueOf(rv), property)
	}}, nil
}

// ownerKey reads the owner key column a collection relation joins on
func (s *build) ownerKey(owner *mapping.Entity, rel *mapping.Relation, rv reflect.Value, acc *accessor.Accessors) (func() (interface{}, error), error) {
	p, ok := owner.PropertyByColumn(rel.ColumnName)
	if !ok {
		return nil, &mapping.MappingError{Entity: owner.FullName(), Property: rel.PropertyName, Err: mapping.ErrPropertyNotFound, Names: []string{rel.ColumnName}}
	}
	f, err := s.field(owner, acc, p.PropertyName)
	if err != nil {
		return nil, err
	}
	return reader(rv, f), nil
}

// keyField accessor holding the value of key j of ent: subtypes share the
// root entity's key
func (s *build) keyField(ent, root *mapping.Entity, j int, acc *accessor.Accessors) (*accessor.Accessor, error) {
	k := ent.Keys()[j]
	if ent != root && j < len(root.Keys()) {
		k = root.Keys()[j]
		return s.field(root, acc, k.Name())
	}
	return s.field(ent, acc, k.Name())
}

func (s *build) generator(e *mapping.Entity, k *mapping.PrimaryKeyProperty) (keygen.Generator, error) {
	if k.KeyGenerationStrategy == "" {
		if k.Key.IsIdentity {
			return keygen.Identity{GeneratorName: "identity"}, nil
		}
		return nil, nil
	}
	gen, err := s.keyGenerators().Get(k.KeyGenerationStrategy)
	if err != nil {
		return nil, &mapping.MappingError{Entity: e.FullName(), Property: k.Name(), Err: err}
	}
	return gen, nil
}

// generateKeys runs client side generators and registers database ones on batch
func (s *build) generateKeys(batch *BatchSqlOperation, root *mapping.Entity, obj interface{}, rv reflect.Value, acc *accessor.Accessors, level int) (map[*mapping.PrimaryKeyProperty]*KeyGenOperationInfo, error) {
	infos := map[*mapping.PrimaryKeyProperty]*KeyGenOperationInfo{}
	for _, k := range root.Keys() {
		if k.Relation != nil {
			continue
		}
		gen, err := s.generator(root, k)
		if err != nil {
			return nil, err
		}
		if gen == nil {
			continue
		}

		f, err := s.field(root, acc, k.Name())
		if err != nil {
			return nil, err
		}
		current, _ := f.ValueOf(rv)
		unsaved := utils.IsZeroOrUnsaved(current, k.UnsavedValue)

		switch g := gen.(type) {
		case keygen.ClientGenerator:
			if !unsaved {
				continue
			}
			v, err := g.Generate(f.Type)
			if err != nil {
				return nil, &mapping.MappingError{Entity: root.FullName(), Property: k.Name(), Err: err}
			}
			if err := f.Set(rv, v); err != nil {
				return nil, err
			}
		case keygen.DatabaseGenerator:
			if g.Timing() == keygen.BeforeInsert && !unsaved {
				continue
			}
			info := &KeyGenOperationInfo{
				ParamName: paramName(root.Alias(), k.Key.ColumnName, level),
				Entity:    root,
				Key:       k,
				Generator: g,
				Priority:  Low,
				Query:     g.Query(s.Dialect, root.TableName, k.Key.ColumnName),
				Instance:  obj,
				apply:     func(v interface{}) error { return f.Set(rv, v) },
			}
			if g.Timing() == keygen.BeforeInsert {
				if info.Query == "" {
					return nil, &mapping.MappingError{Entity: root.FullName(), Property: k.Name(),
						Err: fmt.Errorf("%s generator unsupported by %s dialect", g.Name(), s.Dialect.Name())}
				}
				batch.AddKeyGeneration(info)
			}
			infos[k] = info
		default:
			return nil, &mapping.MappingError{Entity: root.FullName(), Property: k.Name(),
				Err: fmt.Errorf("generator %s produces no value", gen.Name())}
		}
	}
	return infos, nil
}

// linkTarget the entity of chain whose table holds the link column
func linkTarget(chain []*mapping.Entity, link *parentLink) *mapping.Entity {
	if link == nil {
		return nil
	}
	for i := len(chain) - 1; i >= 0; i-- {
		if _, ok := chain[i].PropertyByColumn(link.column); ok {
			return chain[i]
		}
	}
	return chain[len(chain)-1]
}

func (s *build) insert(e *mapping.Entity, obj interface{}, recursive bool, priority Priority, link *parentLink) (*BatchSqlOperation, error) {
	acc, rv, err := s.instance(e, obj)
	if err != nil {
		return nil, err
	}
	chain, err := e.InheritanceChain()
	if err != nil {
		return nil, err
	}

	level := s.nextLevel()
	batch := NewBatch(priority)
	infos, err := s.generateKeys(batch, chain[0], obj, rv, acc, level)
	if err != nil {
		return nil, err
	}

	linked := linkTarget(chain, link)
	for i, ent := range chain {
		var entLink *parentLink
		if ent == linked {
			entLink = link
		}
		op, err := s.insertOp(ent, chain[0], rv, acc, level, infos, entLink)
		if err != nil {
			return nil, err
		}
		if i < len(chain)-1 {
			op.Priority = Low
		} else {
			op.Priority = Medium
		}
		batch.Add(op)
	}

	if recursive {
		if err := s.cascadeInsert(batch, chain, rv, acc); err != nil {
			return nil, err
		}
	}
	return batch, nil
}

func (s *build) insertOp(ent, root *mapping.Entity, rv reflect.Value, acc *accessor.Accessors, level int, infos map[*mapping.PrimaryKeyProperty]*KeyGenOperationInfo, link *parentLink) (*SqlOperation, error) {
	cols := newColumnSet()
	var generated *KeyGenOperationInfo

	for j, k := range ent.Keys() {
		name := paramName(ent.Alias(), k.Key.ColumnName, level)
		if k.Relation != nil {
			p, err := s.manyToOneParam(ent, k.Relation, rv, acc, name)
			if err != nil {
				return nil, err
			}
			cols.add(k.Key.ColumnName, p, true)
			continue
		}
		if info, ok := infos[k]; ok && ent == root && info.Timing() == keygen.AfterInsert {
			generated = info
			continue
		}
		f, err := s.keyField(ent, root, j, acc)
		if err != nil {
			return nil, err
		}
		cols.add(k.Key.ColumnName, Param{Name: name, Lazy: reader(rv, f)}, false)
	}

	for _, p := range ent.Properties {
		if p.IsGeneratedOnInsert() {
			continue
		}
		f, err := s.field(ent, acc, p.PropertyName)
		if err != nil {
			return nil, err
		}
		if accessor.IsDeferred(f.Type) {
			continue
		}
		v, _ := f.ValueOf(rv)
		cols.add(p.ColumnName, Param{Name: paramName(ent.Alias(), p.ColumnName, level), Value: v}, false)
	}

	for _, r := range ent.Relations {
		if r.RelationType != mapping.ManyToOne || r.Exclude {
			continue
		}
		p, err := s.manyToOneParam(ent, r, rv, acc, paramName(ent.Alias(), r.ColumnName, level))
		if err != nil {
			return nil, err
		}
		cols.add(r.ColumnName, p, true)
	}
	// the owner's key replaces whatever the child's back reference holds
	if link != nil {
		cols.add(link.column, Param{Name: paramName(ent.Alias(), link.column, level), Lazy: link.value}, true)
	}

	op := &SqlOperation{Kind: InsertOperation, Entity: ent, Params: cols.params(), GeneratedKey: generated}

	var sql strings.Builder
	sql.WriteString("INSERT INTO ")
	sql.WriteString(s.table(ent))
	if len(cols.cols) == 0 {
		sql.WriteString(" DEFAULT VALUES")
	} else {
		sql.WriteString(" (")
		for i, c := range cols.cols {
			if i > 0 {
				sql.WriteString(", ")
			}
			sql.WriteString(s.Dialect.Quote(c.name))
		}
		sql.WriteString(") VALUES (")
		for i, c := range cols.cols {
			if i > 0 {
				sql.WriteString(", ")
			}
			sql.WriteString("@")
			sql.WriteString(c.param.Name)
		}
		sql.WriteString(")")
	}
	if generated != nil && generated.Query == "" && !s.Dialect.SupportsLastInsertID() {
		sql.WriteString(s.Dialect.Returning(generated.Key.Key.ColumnName))
		op.ReturnsKey = true
	}
	op.SQL = sql.String()
	return op, nil
}

func (s *build) items(owner *mapping.Entity, rel *mapping.Relation, rv reflect.Value, acc *accessor.Accessors) ([]interface{}, bool, error) {
	f, err := s.field(owner, acc, rel.PropertyName)
	if err != nil {
		return nil, false, err
	}
	items, loaded := accessor.Elements(f.ReflectValueOf(rv))
	return items, loaded, nil
}

func (s *build) cascadeInsert(batch *BatchSqlOperation, chain []*mapping.Entity, rv reflect.Value, acc *accessor.Accessors) error {
	for _, ent := range chain {
		for _, rel := range ent.Relations {
			if rel.Exclude || !rel.IsCollection() {
				continue
			}
			if rel.RelationType == mapping.ManyToMany && !rel.IsOwningManyToMany() {
				continue
			}
			items, _, err := s.items(ent, rel, rv, acc)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				continue
			}
			owner, err := s.ownerKey(ent, rel, rv, acc)
			if err != nil {
				return err
			}

			if rel.RelationType == mapping.OneToMany {
				child, err := ent.ReferenceEntity(rel)
				if err != nil {
					return err
				}
				link := &parentLink{column: rel.ReferenceColumn, value: owner}
				for _, item := range items {
					sub, err := s.insert(child, item, true, Low, link)
					if err != nil {
						return err
					}
					batch.AddSub(sub)
				}
				continue
			}

			for _, item := range items {
				sub, err := s.joinInsert(ent, rel, owner, item)
				if err != nil {
					return err
				}
				batch.AddSub(sub)
			}
		}
	}
	return nil
}

// joinInsert writes one ManyToMany join row linking the owner to item
func (s *build) joinInsert(owner *mapping.Entity, rel *mapping.Relation, ownerKey func() (interface{}, error), item interface{}) (*BatchSqlOperation, error) {
	target, err := owner.ReferenceEntity(rel)
	if err != nil {
		return nil, err
	}
	property := ReferenceProperty(rel, target)
	targetKey := func() (interface{}, error) {
		acc, err := s.Accessors.For(item)
		if err != nil {
			return nil, err
		}
		return acc.Get(item, property)
	}

	level := s.nextLevel()
	ownerParam := paramName(rel.MapTableName, rel.MapColumn, level)
	targetParam := paramName(rel.MapTableName, rel.MapReferenceColumn, level)
	sub := NewBatch(Low)
	sub.Add(&SqlOperation{
		SQL: fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (@%s, @%s)",
			s.Dialect.Quote(rel.MapTableName), s.Dialect.Quote(rel.MapColumn), s.Dialect.Quote(rel.MapReferenceColumn),
			ownerParam, targetParam),
		Params:   []Param{{Name: ownerParam, Lazy: ownerKey}, {Name: targetParam, Lazy: targetKey}},
		Priority: Low,
		Kind:     InsertOperation,
		Entity:   owner,
	})
	return sub, nil
}

// joinDelete removes every ManyToMany join row of the owner
func (s *build) joinDelete(owner *mapping.Entity, rel *mapping.Relation, ownerKey func() (interface{}, error)) *BatchSqlOperation {
	level := s.nextLevel()
	name := paramName(rel.MapTableName, rel.MapColumn, level)
	sub := NewBatch(Low)
	sub.Add(&SqlOperation{
		SQL:      fmt.Sprintf("DELETE FROM %s WHERE %s = @%s", s.Dialect.Quote(rel.MapTableName), s.Dialect.Quote(rel.MapColumn), name),
		Params:   []Param{{Name: name, Lazy: ownerKey}},
		Priority: Low,
		Kind:     DeleteOperation,
		Entity:   owner,
	})
	return sub
}

// keyWhere the WHERE clause matching the current key values of ent
func (s *build) keyWhere(ent, root *mapping.Entity, rv reflect.Value, acc *accessor.Accessors, level int) (string, []Param, error) {
	keys := ent.Keys()
	if len(keys) == 0 {
		return "", nil, &mapping.MappingError{Entity: ent.FullName(), Err: mapping.ErrMissingPrimaryKey}
	}

	conds := make([]string, 0, len(keys))
	params := make([]Param, 0, len(keys))
	for j, k := range keys {
		name := paramName(ent.Alias(), k.Key.ColumnName, level)
		var p Param
		if k.Relation != nil {
			var err error
			if p, err = s.manyToOneParam(ent, k.Relation, rv, acc, name); err != nil {
				return "", nil, err
			}
		} else {
			f, err := s.keyField(ent, root, j, acc)
			if err != nil {
				return "", nil, err
			}
			p = Param{Name: name, Lazy: reader(rv, f)}
		}
		conds = append(conds, s.Dialect.Quote(k.Key.ColumnName)+" = @"+name)
		params = append(params, p)
	}
	return strings.Join(conds, " AND "), params, nil
}

func (s *build) update(e *mapping.Entity, obj interface{}, recursive bool, priority Priority, link *parentLink) (*BatchSqlOperation, error) {
	acc, rv, err := s.instance(e, obj)
	if err != nil {
		return nil, err
	}
	chain, err := e.InheritanceChain()
	if err != nil {
		return nil, err
	}

	level := s.nextLevel()
	batch := NewBatch(priority)
	linked := linkTarget(chain, link)
	for i, ent := range chain {
		var entLink *parentLink
		if ent == linked {
			entLink = link
		}
		op, err := s.updateOp(ent, chain[0], rv, acc, level, entLink)
		if err != nil {
			return nil, err
		}
		if op == nil {
			continue
		}
		if i < len(chain)-1 {
			op.Priority = Low
		} else {
			op.Priority = Medium
		}
		batch.Add(op)
	}

	if recursive {
		if err := s.cascadeUpdate(batch, chain, rv, acc); err != nil {
			return nil, err
		}
	}
	return batch, nil
}

func (s *build) updateOp(ent, root *mapping.Entity, rv reflect.Value, acc *accessor.Accessors, level int, link *parentLink) (*SqlOperation, error) {
	set := newColumnSet()
	for _, p := range ent.Properties {
		if p.IgnoreOnUpdate || p.IsPrimaryKey || p.IsGeneratedOnInsert() {
			continue
		}
		f, err := s.field(ent, acc, p.PropertyName)
		if err != nil {
			return nil, err
		}
		if accessor.IsDeferred(f.Type) {
			continue
		}
		v, _ := f.ValueOf(rv)
		set.add(p.ColumnName, Param{Name: paramName(ent.Alias(), p.ColumnName, level), Value: v}, false)
	}
	for _, r := range ent.Relations {
		if r.RelationType != mapping.ManyToOne || r.Exclude || r.IgnoreOnUpdate {
			continue
		}
		p, err := s.manyToOneParam(ent, r, rv, acc, paramName(ent.Alias(), r.ColumnName, level))
		if err != nil {
			return nil, err
		}
		set.add(r.ColumnName, p, true)
	}
	if link != nil {
		set.add(link.column, Param{Name: paramName(ent.Alias(), link.column, level), Lazy: link.value}, true)
	}
	for _, k := range ent.Keys() {
		set.remove(k.Key.ColumnName)
	}
	if len(set.cols) == 0 {
		return nil, nil
	}

	where, keyParams, err := s.keyWhere(ent, root, rv, acc, level)
	if err != nil {
		return nil, err
	}

	assignments := make([]string, len(set.cols))
	for i, c := range set.cols {
		assignments[i] = s.Dialect.Quote(c.name) + " = @" + c.param.Name
	}
	return &SqlOperation{
		SQL:    "UPDATE " + s.table(ent) + " SET " + strings.Join(assignments, ", ") + " WHERE " + where,
		Params: append(set.params(), keyParams...),
		Kind:   UpdateOperation,
		Entity: ent,
	}, nil
}

func (s *build) cascadeUpdate(batch *BatchSqlOperation, chain []*mapping.Entity, rv reflect.Value, acc *accessor.Accessors) error {
	for _, ent := range chain {
		for _, rel := range ent.Relations {
			if rel.Exclude || !rel.IsCollection() {
				continue
			}
			if rel.RelationType == mapping.ManyToMany && !rel.IsOwningManyToMany() {
				continue
			}
			items, loaded, err := s.items(ent, rel, rv, acc)
			if err != nil {
				return err
			}
			if !loaded {
				continue
			}
			owner, err := s.ownerKey(ent, rel, rv, acc)
			if err != nil {
				return err
			}

			if rel.RelationType == mapping.ManyToMany {
				batch.AddSub(s.joinDelete(ent, rel, owner))
				for _, item := range items {
					sub, err := s.joinInsert(ent, rel, owner, item)
					if err != nil {
						return err
					}
					batch.AddSub(sub)
				}
				continue
			}

			child, err := ent.ReferenceEntity(rel)
			if err != nil {
				return err
			}
			link := &parentLink{column: rel.ReferenceColumn, value: owner}
			for _, item := range items {
				unsaved, err := s.isUnsaved(child, item)
				if err != nil {
					return err
				}
				var sub *BatchSqlOperation
				if unsaved {
					sub, err = s.insert(child, item, true, Low, link)
				} else {
					sub, err = s.update(child, item, true, Low, link)
				}
				if err != nil {
					return err
				}
				batch.AddSub(sub)
			}
		}
	}
	return nil
}

func (s *build) isUnsaved(e *mapping.Entity, obj interface{}) (bool, error) {
	acc, rv, err := s.instance(e, obj)
	if err != nil {
		return false, err
	}
	chain, err := e.InheritanceChain()
	if err != nil {
		return false, err
	}
	root := chain[0]
	for _, k := range root.Keys() {
		if k.Relation != nil {
			continue
		}
		f, err := s.field(root, acc, k.Name())
		if err != nil {
			return false, err
		}
		v, _ := f.ValueOf(rv)
		if utils.IsZeroOrUnsaved(v, k.UnsavedValue) {
			return true, nil
		}
	}
	return false, nil
}

func (s *build) delete(e *mapping.Entity, obj interface{}, recursive bool, priority Priority) (*BatchSqlOperation, error) {
	acc, rv, err := s.instance(e, obj)
	if err != nil {
		return nil, err
	}
	chain, err := e.InheritanceChain()
	if err != nil {
		return nil, err
	}

	level := s.nextLevel()
	var own []*SqlOperation
	for i := len(chain) - 1; i >= 0; i-- {
		ent := chain[i]
		where, params, err := s.keyWhere(ent, chain[0], rv, acc, level)
		if err != nil {
			return nil, err
		}
		op := &SqlOperation{
			SQL:      "DELETE FROM " + s.table(ent) + " WHERE " + where,
			Params:   params,
			Priority: High,
			Kind:     DeleteOperation,
			Entity:   ent,
		}
		if i == len(chain)-1 {
			op.Priority = Medium
		}
		own = append(own, op)
	}

	batch := NewBatch(priority)
	if !recursive {
		batch.Add(own...)
		return batch, nil
	}

	for _, ent := range chain {
		for _, rel := range ent.Relations {
			if rel.Exclude || !rel.IsCollection() {
				continue
			}
			if rel.RelationType == mapping.ManyToMany {
				if !rel.IsOwningManyToMany() {
					continue
				}
				owner, err := s.ownerKey(ent, rel, rv, acc)
				if err != nil {
					return nil, err
				}
				batch.AddSub(s.joinDelete(ent, rel, owner))
				continue
			}

			items, _, err := s.items(ent, rel, rv, acc)
			if err != nil {
				return nil, err
			}
			if len(items) == 0 {
				continue
			}
			child, err := ent.ReferenceEntity(rel)
			if err != nil {
				return nil, err
			}
			for _, item := range items {
				sub, err := s.delete(child, item, true, Low)
				if err != nil {
					return nil, err
				}
				batch.AddSub(sub)
			}
		}
	}

	self := NewBatch(High)
	self.Add(own...)
	batch.AddSub(self)
	return batch, nil
}
