package mapping

import (
	"errors"
)

// ErrDuplicateProperty property name already used on the entity
var ErrDuplicateProperty = errors.New("duplicate property")

// Entity one mapped type
type Entity struct {
	Name        string
	Namespace   string
	Assembly    string
	TableName   string
	SchemaName  string
	TableAlias  string
	Extends     string
	IsLinkTable bool
	PrimaryKey  *PrimaryKey
	Properties  []*Property
	Relations   []*Relation
	MetaData    map[string]string

	model *Model
	index int
}

// FullName namespace qualified entity name
func (e *Entity) FullName() string {
	if e.Namespace == "" {
		return e.Name
	}
	return e.Namespace + "." + e.Name
}

// Model owning model, nil until the entity is added
func (e *Entity) Model() *Model {
	return e.model
}

// Index position of the entity in its model
func (e *Entity) Index() int {
	return e.index
}

// Alias table alias used to prefix selected columns
func (e *Entity) Alias() string {
	if e.TableAlias != "" {
		return e.TableAlias
	}
	return toDBName(e.Name)
}

// Keys primary key fields, nil when the entity has no key
func (e *Entity) Keys() []*PrimaryKeyProperty {
	if e.PrimaryKey == nil {
		return nil
	}
	return e.PrimaryKey.Keys
}

// AddProperty appends a plain property
func (e *Entity) AddProperty(p *Property) error {
	if _, ok := e.GetProperty(p.PropertyName); ok {
		return newMappingError(e.FullName(), p.PropertyName, ErrDuplicateProperty)
	}
	e.Properties = append(e.Properties, p)
	return nil
}

// AddRelation appends a relation
func (e *Entity) AddRelation(r *Relation) error {
	if _, ok := e.GetProperty(r.PropertyName); ok {
		return newMappingError(e.FullName(), r.PropertyName, ErrDuplicateProperty)
	}
	e.Relations = append(e.Relations, r)
	return nil
}

// AddKey appends a key field, removing any plain property or relation of the same name
func (e *Entity) AddKey(k *PrimaryKeyProperty) error {
	if e.PrimaryKey == nil {
		e.PrimaryKey = &PrimaryKey{}
	}
	name := k.Key.PropertyName
	if _, ok := e.PrimaryKey.Get(name); ok {
		return newMappingError(e.FullName(), name, ErrDuplicateProperty)
	}

	for i, p := range e.Properties {
		if p.PropertyName == name {
			e.Properties = append(e.Properties[:i:i], e.Properties[i+1:]...)
			break
		}
	}
	for i, r := range e.Relations {
		if r.PropertyName == name {
			e.Relations = append(e.Relations[:i:i], e.Relations[i+1:]...)
			break
		}
	}

	k.Key.IsPrimaryKey = true
	e.PrimaryKey.Keys = append(e.PrimaryKey.Keys, k)
	return nil
}

// GetProperty looks a property up by name in keys, properties and relations
func (e *Entity) GetProperty(name string) (*Property, bool) {
	if k, ok := e.PrimaryKey.Get(name); ok {
		return k.Key, true
	}
	for _, p := range e.Properties {
		if p.PropertyName == name {
			return p, true
		}
	}
	for _, r := range e.Relations {
		if r.PropertyName == name {
			return &r.Property, true
		}
	}
	return nil, false
}

// GetRelation looks a relation up by name in key relations and relations
func (e *Entity) GetRelation(name string) (*Relation, bool) {
	for _, k := range e.Keys() {
		if k.Relation != nil && k.Relation.PropertyName == name {
			return k.Relation, true
		}
	}
	for _, r := range e.Relations {
		if r.PropertyName == name {
			return r, true
		}
	}
	return nil, false
}

// PropertyByColumn finds the property mapped to column, relations first
func (e *Entity) PropertyByColumn(column string) (*Property, bool) {
	for _, k := range e.Keys() {
		if k.Key.ColumnName == column {
			return k.Key, true
		}
	}
	for _, r := range e.Relations {
		if r.RelationType == ManyToOne && r.ColumnName == column {
			return &r.Property, true
		}
	}
	for _, p := range e.Properties {
		if p.ColumnName == column {
			return p, true
		}
	}
	return nil, false
}

// AllProperties keys, then properties, then relations
func (e *Entity) AllProperties() []*Property {
	all := make([]*Property, 0, len(e.Keys())+len(e.Properties)+len(e.Relations))
	for _, k := range e.Keys() {
		all = append(all, k.Key)
	}
	all = append(all, e.Properties...)
	for _, r := range e.Relations {
		all = append(all, &r.Property)
	}
	return all
}

// ColumnFor column mapped to the named property
func (e *Entity) ColumnFor(property string) (string, error) {
	if p, ok := e.GetProperty(property); ok {
		return p.ColumnName, nil
	}
	return "", newMappingError(e.FullName(), property, ErrPropertyNotFound)
}

// IsSubClass reports whether the entity extends another mapped entity
func (e *Entity) IsSubClass() bool {
	return e.Extends != ""
}

// BaseModel resolves Extends; nil when the entity has no base
func (e *Entity) BaseModel() (*Entity, error) {
	if e.Extends == "" {
		return nil, nil
	}
	if e.model != nil {
		if base, ok := e.model.GetEntity(e.Extends); ok {
			return base, nil
		}
	}
	return nil, newMappingError(e.FullName(), "", ErrReferenceEntityNotFound).withNames(e.Extends)
}

// ReferenceEntity resolves the relation target
func (e *Entity) ReferenceEntity(rel *Relation) (*Entity, error) {
	if e.model != nil {
		if target, ok := e.model.GetEntity(rel.ReferenceEntityName); ok {
			return target, nil
		}
	}
	return nil, newMappingError(e.FullName(), rel.PropertyName, ErrReferenceEntityNotFound).withNames(rel.ReferenceEntityName)
}

// InheritanceChain base entities root first, ending with e
func (e *Entity) InheritanceChain() ([]*Entity, error) {
	chain := []*Entity{e}
	seen := map[*Entity]bool{e: true}
	for cur := e; cur.IsSubClass(); {
		base, err := cur.BaseModel()
		if err != nil {
			return nil, err
		}
		if seen[base] {
			return nil, newMappingError(e.FullName(), "", ErrCyclicReference).withNames(base.FullName())
		}
		seen[base] = true
		chain = append([]*Entity{base}, chain...)
		cur = base
	}
	return chain, nil
}

// KeyColumnFor maps a key of a base entity onto the matching key of e, by position
func (e *Entity) KeyColumnFor(base *Entity, baseKey *PrimaryKeyProperty) (*PrimaryKeyProperty, bool) {
	for i, k := range base.Keys() {
		if k == baseKey && i < len(e.Keys()) {
			return e.Keys()[i], true
		}
	}
	return nil, false
}

// SetMeta sets an entity metadata attribute unless it is already set
func (e *Entity) SetMeta(name, value string) bool {
	if e.MetaData == nil {
		e.MetaData = map[string]string{}
	}
	if _, ok := e.MetaData[name]; ok {
		return false
	}
	e.MetaData[name] = value
	return true
}

func (e *MappingError) withNames(names ...string) *MappingError {
	e.Names = append(e.Names, names...)
	return e
}
