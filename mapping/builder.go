package mapping

import (
	"errors"
)

type field struct {
	prop *Property
	rel  *Relation
	key  *PrimaryKeyProperty
}

// Option adjusts a property, relation or key while it is built. Options not
// applicable to the field kind are ignored.
type Option func(*field)

// Column overrides the column name
func Column(name string) Option {
	return func(f *field) { f.prop.ColumnName = name }
}

// DbType sets the SQL type name
func DbType(name string) Option {
	return func(f *field) { f.prop.DbType = name }
}

// Length sets the column length
func Length(n int) Option {
	return func(f *field) { f.prop.Length = n }
}

// Nullable marks the column nullable
func Nullable() Option {
	return func(f *field) { f.prop.IsNullable = true }
}

// Unique marks the column unique
func Unique() Option {
	return func(f *field) {
		f.prop.IsUnique = true
		f.prop.ConstraintType = ConstraintUnique
	}
}

// Identity marks the column as database generated on insert
func Identity() Option {
	return func(f *field) { f.prop.IsIdentity = true }
}

// AutoGenerated marks the column as filled by the database (defaults, triggers)
func AutoGenerated() Option {
	return func(f *field) { f.prop.IsAutoGenerated = true }
}

// Default sets the column default value
func Default(value string) Option {
	return func(f *field) { f.prop.DefaultValue = value }
}

// IgnoreOnUpdate keeps the column out of UPDATE statements
func IgnoreOnUpdate() Option {
	return func(f *field) { f.prop.IgnoreOnUpdate = true }
}

// Lazy defers loading of the property or relation
func Lazy() Option {
	return func(f *field) { f.prop.LazyLoad = true }
}

// Meta sets a metadata attribute
func Meta(name, value string) Option {
	return func(f *field) { f.prop.setMeta(name, value) }
}

// Generator sets the key generation strategy of a key
func Generator(name string) Option {
	return func(f *field) {
		if f.key != nil {
			f.key.KeyGenerationStrategy = name
			if name == "identity" || name == "autoincrement" {
				f.prop.IsIdentity = true
			}
		}
	}
}

// Unsaved sets the value marking a key as not yet persisted
func Unsaved(value string) Option {
	return func(f *field) {
		if f.key != nil {
			f.key.UnsavedValue = value
		}
	}
}

// ReferenceColumn overrides the relation reference column
func ReferenceColumn(column string) Option {
	return func(f *field) {
		if f.rel != nil {
			f.rel.ReferenceColumn = column
		}
	}
}

// ReferenceProperty overrides the relation reference property
func ReferenceProperty(name string) Option {
	return func(f *field) {
		if f.rel != nil {
			f.rel.ReferenceProperty = name
		}
	}
}

// Inverse marks a many to many relation as the non-owning side
func Inverse() Option {
	return func(f *field) {
		if f.rel != nil {
			f.rel.Inverse = true
		}
	}
}

// Exclude keeps the relation out of generated SQL
func Exclude() Option {
	return func(f *field) {
		if f.rel != nil {
			f.rel.Exclude = true
		}
	}
}

// Collection sets the collection kind of a relation
func Collection(kind CollectionType) Option {
	return func(f *field) {
		if f.rel != nil {
			f.rel.CollectionType = kind
		}
	}
}

// EntityBuilder builds an Entity fluently; the first error sticks and is
// returned by Build
type EntityBuilder struct {
	entity *Entity
	namer  Namer
	err    error
}

// NewEntityBuilder starts an entity named name, tables and columns named by namer
func NewEntityBuilder(name string, namer Namer) *EntityBuilder {
	if namer == nil {
		namer = NamingStrategy{}
	}
	return &EntityBuilder{
		entity: &Entity{
			Name:       name,
			TableName:  namer.TableName(name),
			TableAlias: namer.Alias(name),
		},
		namer: namer,
	}
}

func (b *EntityBuilder) Namespace(ns string) *EntityBuilder {
	b.entity.Namespace = ns
	return b
}

func (b *EntityBuilder) Table(name string) *EntityBuilder {
	b.entity.TableName = name
	return b
}

func (b *EntityBuilder) Schema(name string) *EntityBuilder {
	b.entity.SchemaName = name
	return b
}

func (b *EntityBuilder) Alias(alias string) *EntityBuilder {
	b.entity.TableAlias = alias
	return b
}

// Extends makes the entity a subtype of base
func (b *EntityBuilder) Extends(base string) *EntityBuilder {
	b.entity.Extends = base
	return b
}

// LinkTable marks the entity as a join table keyed by its relations
func (b *EntityBuilder) LinkTable() *EntityBuilder {
	b.entity.IsLinkTable = true
	return b
}

// Meta sets an entity metadata attribute
func (b *EntityBuilder) Meta(name, value string) *EntityBuilder {
	b.entity.SetMeta(name, value)
	return b
}

func (b *EntityBuilder) newProperty(name, clrType string) *Property {
	return &Property{PropertyName: name, ColumnName: b.namer.ColumnName(name), ClrType: clrType}
}

// Key adds a primary key field
func (b *EntityBuilder) Key(name, clrType string, opts ...Option) *EntityBuilder {
	f := &field{prop: b.newProperty(name, clrType)}
	f.key = &PrimaryKeyProperty{Key: f.prop}
	f.prop.ConstraintType = ConstraintPrimaryKey
	for _, opt := range opts {
		opt(f)
	}
	b.record(b.entity.AddKey(f.key))
	return b
}

// KeyReference adds a primary key field that references target, as link tables do
func (b *EntityBuilder) KeyReference(name, target string, opts ...Option) *EntityBuilder {
	f := b.manyToOne(name, target)
	f.key = &PrimaryKeyProperty{Key: f.prop, Relation: f.rel}
	for _, opt := range opts {
		opt(f)
	}
	b.record(b.entity.AddKey(f.key))
	return b
}

// Property adds a plain column
func (b *EntityBuilder) Property(name, clrType string, opts ...Option) *EntityBuilder {
	f := &field{prop: b.newProperty(name, clrType)}
	for _, opt := range opts {
		opt(f)
	}
	b.record(b.entity.AddProperty(f.prop))
	return b
}

func (b *EntityBuilder) manyToOne(name, target string) *field {
	rel := &Relation{
		Property:            Property{PropertyName: name, ColumnName: b.namer.ForeignKeyColumn(name), ClrType: target, ConstraintType: ConstraintForeignKey},
		RelationType:        ManyToOne,
		ReferenceEntityName: target,
		ReferenceColumn:     b.namer.ColumnName("Id"),
		ReferenceProperty:   "Id",
	}
	return &field{prop: &rel.Property, rel: rel}
}

// ManyToOne adds a reference to target stored in a foreign key column
func (b *EntityBuilder) ManyToOne(name, target string, opts ...Option) *EntityBuilder {
	f := b.manyToOne(name, target)
	for _, opt := range opts {
		opt(f)
	}
	b.record(b.entity.AddRelation(f.rel))
	return b
}

// OneToMany adds a collection of target rows whose foreignKey column holds this
// entity's key; backReference names the child's relation pointing back
func (b *EntityBuilder) OneToMany(name, target, foreignKey, backReference string, opts ...Option) *EntityBuilder {
	rel := &Relation{
		Property:            Property{PropertyName: name, ColumnName: b.namer.ColumnName("Id"), ClrType: "[]" + target},
		RelationType:        OneToMany,
		ReferenceEntityName: target,
		ReferenceColumn:     foreignKey,
		ReferenceProperty:   backReference,
		CollectionType:      CollectionList,
	}
	f := &field{prop: &rel.Property, rel: rel}
	for _, opt := range opts {
		opt(f)
	}
	b.record(b.entity.AddRelation(rel))
	return b
}

// ManyToMany adds a collection of target rows linked through mapTable, whose
// mapColumn holds this entity's key and mapReferenceColumn the target's key
func (b *EntityBuilder) ManyToMany(name, target, mapTable, mapColumn, mapReferenceColumn string, opts ...Option) *EntityBuilder {
	if mapTable == "" {
		mapTable = b.namer.JoinTableName(b.entity.Name, target)
	}
	rel := &Relation{
		Property:            Property{PropertyName: name, ColumnName: b.namer.ColumnName("Id"), ClrType: "[]" + target},
		RelationType:        ManyToMany,
		ReferenceEntityName: target,
		ReferenceColumn:     b.namer.ColumnName("Id"),
		ReferenceProperty:   "Id",
		MapTableName:        mapTable,
		MapColumn:           mapColumn,
		MapReferenceColumn:  mapReferenceColumn,
		CollectionType:      CollectionList,
	}
	f := &field{prop: &rel.Property, rel: rel}
	for _, opt := range opts {
		opt(f)
	}
	b.record(b.entity.AddRelation(rel))
	return b
}

func (b *EntityBuilder) record(err error) {
	if b.err == nil && err != nil {
		b.err = err
	}
}

// Build returns the entity or the first error met while building it
func (b *EntityBuilder) Build() (*Entity, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.entity.Name == "" {
		return nil, errors.New("entity name required")
	}
	return b.entity, nil
}

// BuildInto builds the entity and adds it to m
func (b *EntityBuilder) BuildInto(m *Model) (*Entity, error) {
	e, err := b.Build()
	if err != nil {
		return nil, err
	}
	if err := m.AddEntity(e); err != nil {
		return nil, err
	}
	return e, nil
}
