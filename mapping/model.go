// Package mapping is the entity/relation metadata model: entities, their
// keys, properties and relations, plus the document codecs that load and
// save it.
package mapping

import (
	"github.com/malweka/GoliathData-sub001/keygen"
)

// Model root container of the mapping metadata
type Model struct {
	Settings ProjectSettings

	entities      []*Entity
	byName        map[string]int
	complexTypes  []*ComplexType
	statements    []*Statement
	keyGenerators *keygen.Registry
}

// NewModel returns an empty model using the builtin key generators
func NewModel(settings ProjectSettings) *Model {
	return &Model{
		Settings:      settings,
		byName:        map[string]int{},
		keyGenerators: keygen.NewDefaultRegistry(),
	}
}

// KeyGenerators registry used to resolve key generation strategies
func (m *Model) KeyGenerators() *keygen.Registry {
	return m.keyGenerators
}

// UseKeyGenerators replaces the key generator registry
func (m *Model) UseKeyGenerators(r *keygen.Registry) {
	m.keyGenerators = r
}

// AddEntity registers e, unique by qualified name
func (m *Model) AddEntity(e *Entity) error {
	name := e.FullName()
	if _, ok := m.byName[name]; ok {
		return newMappingError(name, "", ErrDuplicateEntity)
	}
	e.model = m
	e.index = len(m.entities)
	m.byName[name] = e.index
	m.entities = append(m.entities, e)
	return nil
}

// GetEntity looks an entity up by qualified name, then by simple name
func (m *Model) GetEntity(name string) (*Entity, bool) {
	if idx, ok := m.byName[name]; ok {
		return m.entities[idx], true
	}
	for _, e := range m.entities {
		if e.Name == name {
			return e, true
		}
	}
	return nil, false
}

// ResolveEntity is GetEntity reporting a missing entity as a *MappingError
func (m *Model) ResolveEntity(name string) (*Entity, error) {
	if e, ok := m.GetEntity(name); ok {
		return e, nil
	}
	return nil, newMappingError(name, "", ErrReferenceEntityNotFound)
}

// EntityByIndex entity at the given index
func (m *Model) EntityByIndex(idx int) *Entity {
	if idx < 0 || idx >= len(m.entities) {
		return nil
	}
	return m.entities[idx]
}

// Entities entities in registration order
func (m *Model) Entities() []*Entity {
	return append([]*Entity(nil), m.entities...)
}

// AddComplexType registers a non-entity type
func (m *Model) AddComplexType(c *ComplexType) {
	m.complexTypes = append(m.complexTypes, c)
}

// ComplexTypes complex types in registration order
func (m *Model) ComplexTypes() []*ComplexType {
	return append([]*ComplexType(nil), m.complexTypes...)
}

// GetComplexType looks a complex type up by qualified name, then by simple name
func (m *Model) GetComplexType(name string) (*ComplexType, bool) {
	for _, c := range m.complexTypes {
		if c.FullName() == name {
			return c, true
		}
	}
	for _, c := range m.complexTypes {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// AddStatement registers a mapped statement, replacing one with the same name
func (m *Model) AddStatement(s *Statement) {
	for i, existing := range m.statements {
		if existing.Name == s.Name {
			m.statements[i] = s
			return
		}
	}
	m.statements = append(m.statements, s)
}

// GetStatement looks a mapped statement up by name
func (m *Model) GetStatement(name string) (*Statement, bool) {
	for _, s := range m.statements {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// Statements mapped statements in registration order
func (m *Model) Statements() []*Statement {
	return append([]*Statement(nil), m.statements...)
}

// Validate resolves every base entity, relation target and key generator,
// returning the first failure, then rejects reference cycles
func (m *Model) Validate() error {
	for _, e := range m.entities {
		if _, err := e.InheritanceChain(); err != nil {
			return err
		}
		for _, k := range e.Keys() {
			if k.Relation != nil {
				if _, err := e.ReferenceEntity(k.Relation); err != nil {
					return err
				}
			}
			if k.KeyGenerationStrategy != "" {
				if _, err := m.keyGenerators.Get(k.KeyGenerationStrategy); err != nil {
					return newMappingError(e.FullName(), k.Name(), err)
				}
			}
		}
		for _, r := range e.Relations {
			if _, err := e.ReferenceEntity(r); err != nil {
				return err
			}
		}
	}
	_, err := m.SortedEntities()
	return err
}

// SortedEntities all entities ordered so references come before referrers
func (m *Model) SortedEntities() ([]*Entity, error) {
	return SortEntities(m.entities)
}
