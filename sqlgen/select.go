package sqlgen

import (
	"fmt"
	"strings"

	"github.com/malweka/GoliathData-sub001/lazy"
	"github.com/malweka/GoliathData-sub001/mapping"
)

// Column a selected column, labelled <alias>_<column>
type Column struct {
	Entity *mapping.Entity
	Alias  string
	Name   string
	Label  string
}

// SelectBuilder builds the SELECT reading an entity, the base tables of its
// subtype chain and its eager ManyToOne targets with their base tables.
// Targets are joined one level deep: their own eager relations are read as
// key-only references.
type SelectBuilder struct {
	b       *Builder
	entity  *mapping.Entity
	chain   []*mapping.Entity
	where   []string
	params  []Param
	orderBy []string
	limit   int
	offset  int
	err     error
}

// Select starts a SELECT of e
func (b *Builder) Select(e *mapping.Entity) *SelectBuilder {
	chain, err := e.InheritanceChain()
	return &SelectBuilder{b: b, entity: e, chain: chain, err: err}
}

// Where adds a condition, ANDed with the others. Conditions use @name markers
// bound to params.
func (s *SelectBuilder) Where(cond string, params ...Param) *SelectBuilder {
	if strings.TrimSpace(cond) != "" {
		s.where = append(s.where, cond)
	}
	s.params = append(s.params, params...)
	return s
}

// WhereKey restricts the SELECT to the row with the given key values
func (s *SelectBuilder) WhereKey(values ...interface{}) *SelectBuilder {
	keys := s.entity.Keys()
	if len(keys) == 0 {
		s.err = &mapping.MappingError{Entity: s.entity.FullName(), Err: mapping.ErrMissingPrimaryKey}
		return s
	}
	if len(values) != len(keys) {
		s.err = fmt.Errorf("%w: %s has %d key fields, got %d values", ErrInvalidValue, s.entity.FullName(), len(keys), len(values))
		return s
	}
	alias := s.entity.Alias()
	for i, k := range keys {
		name := paramName(alias, k.Key.ColumnName, 0)
		s.Where(s.b.Dialect.Quote(alias+"."+k.Key.ColumnName)+" = @"+name, Param{Name: name, Value: values[i]})
	}
	return s
}

// OrderBy appends ORDER BY expressions
func (s *SelectBuilder) OrderBy(exprs ...string) *SelectBuilder {
	s.orderBy = append(s.orderBy, exprs...)
	return s
}

func (s *SelectBuilder) Limit(n int) *SelectBuilder {
	s.limit = n
	return s
}

func (s *SelectBuilder) Offset(n int) *SelectBuilder {
	s.offset = n
	return s
}

// ColumnRef quoted alias.column of the table in the chain holding column
func (s *SelectBuilder) ColumnRef(column string) string {
	return s.b.Dialect.Quote(s.owner(column).Alias() + "." + column)
}

// PropertyRef quoted alias.column of a mapped property
func (s *SelectBuilder) PropertyRef(property string) (string, error) {
	for i := len(s.chain) - 1; i >= 0; i-- {
		if p, ok := s.chain[i].GetProperty(property); ok {
			return s.b.Dialect.Quote(s.chain[i].Alias() + "." + p.ColumnName), nil
		}
	}
	return "", &mapping.MappingError{Entity: s.entity.FullName(), Property: property, Err: mapping.ErrPropertyNotFound}
}

func (s *SelectBuilder) owner(column string) *mapping.Entity {
	for i := len(s.chain) - 1; i >= 0; i-- {
		if _, ok := s.chain[i].PropertyByColumn(column); ok {
			return s.chain[i]
		}
	}
	return s.entity
}

// Columns the selected columns
func (s *SelectBuilder) Columns() ([]Column, error) {
	cols, _, err := s.plan()
	return cols, err
}

// Build returns the SELECT and its parameters
func (s *SelectBuilder) Build() (string, []Param, error) {
	body, err := s.body()
	if err != nil {
		return "", nil, err
	}
	if len(s.orderBy) > 0 {
		body += " ORDER BY " + strings.Join(s.orderBy, ", ")
	}
	return s.b.Dialect.Paging(body, s.limit, s.offset), s.params, nil
}

// Count returns a query counting the rows the SELECT matches
func (s *SelectBuilder) Count() (string, []Param, error) {
	body, err := s.body()
	if err != nil {
		return "", nil, err
	}
	return s.b.Dialect.Count(body), s.params, nil
}

func (s *SelectBuilder) body() (string, error) {
	cols, joins, err := s.plan()
	if err != nil {
		return "", err
	}

	d := s.b.Dialect
	selected := make([]string, len(cols))
	for i, c := range cols {
		selected[i] = d.Quote(c.Alias+"."+c.Name) + " AS " + d.Quote(c.Label)
	}

	var sql strings.Builder
	sql.WriteString("SELECT ")
	sql.WriteString(strings.Join(selected, ", "))
	sql.WriteString(" FROM ")
	sql.WriteString(s.b.table(s.entity))
	sql.WriteString(" ")
	sql.WriteString(d.Quote(s.entity.Alias()))
	for _, join := range joins {
		sql.WriteString(" ")
		sql.WriteString(join)
	}
	if len(s.where) > 0 {
		sql.WriteString(" WHERE ")
		if len(s.where) == 1 {
			sql.WriteString(s.where[0])
		} else {
			sql.WriteString("(" + strings.Join(s.where, ") AND (") + ")")
		}
	}
	return sql.String(), nil
}

// plan lists the selected columns and the joins: base tables by key, then
// every eager ManyToOne target, one level deep, with its own base tables
func (s *SelectBuilder) plan() ([]Column, []string, error) {
	if s.err != nil {
		return nil, nil, s.err
	}

	d := s.b.Dialect
	var (
		cols  []Column
		joins []string
		seen  = map[string]bool{}
	)
	add := func(e *mapping.Entity, alias, column string) {
		label := alias + "_" + column
		if seen[label] {
			return
		}
		seen[label] = true
		cols = append(cols, Column{Entity: e, Alias: alias, Name: column, Label: label})
	}

	aliases := make([]string, len(s.chain))
	for i, ent := range s.chain {
		aliases[i] = ent.Alias()
	}
	for i := len(s.chain) - 2; i >= 0; i-- {
		on, err := s.keyJoin(s.chain[i], aliases[i], s.chain[i+1], aliases[i+1])
		if err != nil {
			return nil, nil, err
		}
		joins = append(joins, "INNER JOIN "+s.b.table(s.chain[i])+" "+d.Quote(aliases[i])+" ON "+on)
	}
	for i, ent := range s.chain {
		entityColumns(ent, aliases[i], add)
	}

	eager, err := EagerJoins(s.chain)
	if err != nil {
		return nil, nil, err
	}
	for _, j := range eager {
		last := len(j.Chain) - 1
		joins = append(joins, "LEFT JOIN "+s.b.table(j.Chain[last])+" "+d.Quote(j.Alias())+" ON "+
			d.Quote(j.Alias()+"."+j.Relation.ReferenceColumn)+" = "+d.Quote(j.Owner.Alias()+"."+j.Relation.ColumnName))
		for i := last - 1; i >= 0; i-- {
			on, err := s.keyJoin(j.Chain[i], j.Aliases[i], j.Chain[i+1], j.Aliases[i+1])
			if err != nil {
				return nil, nil, err
			}
			joins = append(joins, "LEFT JOIN "+s.b.table(j.Chain[i])+" "+d.Quote(j.Aliases[i])+" ON "+on)
		}
		for i, ent := range j.Chain {
			entityColumns(ent, j.Aliases[i], add)
		}
	}
	return cols, joins, nil
}

// keyJoin the ON condition matching a base table's keys to its subtype's
func (s *SelectBuilder) keyJoin(base *mapping.Entity, baseAlias string, derived *mapping.Entity, derivedAlias string) (string, error) {
	d := s.b.Dialect
	var on []string
	for j, bk := range base.Keys() {
		if j >= len(derived.Keys()) {
			break
		}
		dk := derived.Keys()[j]
		on = append(on, d.Quote(baseAlias+"."+bk.Key.ColumnName)+" = "+d.Quote(derivedAlias+"."+dk.Key.ColumnName))
	}
	if len(on) == 0 {
		return "", &mapping.MappingError{Entity: derived.FullName(), Err: mapping.ErrMissingPrimaryKey}
	}
	return strings.Join(on, " AND "), nil
}

// Join an eager ManyToOne target read along with its owner. Chain is the
// target's inheritance chain, root first, and Aliases the alias of each of
// its tables.
type Join struct {
	Owner    *mapping.Entity
	Relation *mapping.Relation
	Chain    []*mapping.Entity
	Aliases  []string
}

// Alias alias of the target's own table
func (j Join) Alias() string {
	return j.Aliases[len(j.Aliases)-1]
}

// EagerJoins the eager ManyToOne targets a SELECT of chain joins. The first
// relation to a target uses the target's alias, another relation to the same
// target gets <target alias>_<relation>. An alias is suffixed _2, _3 ... until
// it repeats no other alias and none of its column labels repeats another.
// Relations back into chain are not joined.
func EagerJoins(chain []*mapping.Entity) ([]Join, error) {
	used := map[string]bool{}
	labels := map[string]bool{}
	inChain := map[*mapping.Entity]bool{}
	for _, ent := range chain {
		inChain[ent] = true
		used[ent.Alias()] = true
		for _, c := range ownColumns(ent) {
			labels[ent.Alias()+"_"+c] = true
		}
	}
	claim := func(e *mapping.Entity, alias string) string {
		cols := ownColumns(e)
		free := func(candidate string) bool {
			if used[candidate] {
				return false
			}
			for _, c := range cols {
				if labels[candidate+"_"+c] {
					return false
				}
			}
			return true
		}
		candidate := alias
		for n := 2; !free(candidate); n++ {
			candidate = fmt.Sprintf("%s_%d", alias, n)
		}
		used[candidate] = true
		for _, c := range cols {
			labels[candidate+"_"+c] = true
		}
		return candidate
	}

	var joins []Join
	for _, ent := range chain {
		for _, rel := range ent.Relations {
			if rel.RelationType != mapping.ManyToOne || rel.LazyLoad || rel.Exclude {
				continue
			}
			target, err := ent.ReferenceEntity(rel)
			if err != nil {
				return nil, err
			}
			if inChain[target] {
				continue
			}
			targetChain, err := target.InheritanceChain()
			if err != nil {
				return nil, err
			}

			own := target.Alias()
			if used[own] {
				own += "_" + strings.ToLower(rel.PropertyName)
			}
			last := len(targetChain) - 1
			aliases := make([]string, len(targetChain))
			aliases[last] = claim(target, own)
			for i := last - 1; i >= 0; i-- {
				alias := targetChain[i].Alias()
				if aliases[last] != target.Alias() {
					alias = aliases[last] + "_" + alias
				}
				aliases[i] = claim(targetChain[i], alias)
			}
			joins = append(joins, Join{Owner: ent, Relation: rel, Chain: targetChain, Aliases: aliases})
		}
	}
	return joins, nil
}

func ownColumns(e *mapping.Entity) []string {
	var cols []string
	entityColumns(e, "", func(_ *mapping.Entity, _, column string) {
		cols = append(cols, column)
	})
	return cols
}

// entityColumns the columns of e's own table: keys, eager properties and
// ManyToOne foreign keys
func entityColumns(e *mapping.Entity, alias string, add func(*mapping.Entity, string, string)) {
	for _, k := range e.Keys() {
		add(e, alias, k.Key.ColumnName)
	}
	for _, p := range e.Properties {
		if !p.LazyLoad {
			add(e, alias, p.ColumnName)
		}
	}
	for _, r := range e.Relations {
		if r.RelationType == mapping.ManyToOne && !r.Exclude {
			add(e, alias, r.ColumnName)
		}
	}
}

// RelationQuery the stored read loading rel for an owner whose relation key
// (the foreign key for ManyToOne, the owner key otherwise) is key
func (b *Builder) RelationQuery(owner *mapping.Entity, rel *mapping.Relation, key interface{}) (lazy.Query, error) {
	target, err := owner.ReferenceEntity(rel)
	if err != nil {
		return lazy.Query{}, err
	}

	sel := b.Select(target)
	name := paramName(owner.Alias(), rel.ColumnName, 0)
	var cond string
	switch rel.RelationType {
	case mapping.ManyToOne, mapping.OneToMany:
		cond = sel.ColumnRef(rel.ReferenceColumn) + " = @" + name
	case mapping.ManyToMany:
		cond = fmt.Sprintf("%s IN (SELECT %s FROM %s WHERE %s = @%s)",
			sel.ColumnRef(rel.ReferenceColumn), b.Dialect.Quote(rel.MapReferenceColumn),
			b.Dialect.Quote(rel.MapTableName), b.Dialect.Quote(rel.MapColumn), name)
	default:
		return lazy.Query{}, &mapping.MappingError{Entity: owner.FullName(), Property: rel.PropertyName, Err: mapping.ErrInvalidValue}
	}

	query, params, err := sel.Where(cond, Param{Name: name, Value: key}).Build()
	if err != nil {
		return lazy.Query{}, err
	}
	q := lazy.Query{SQL: query, Entity: target.FullName()}
	for _, p := range params {
		v, err := p.Resolve()
		if err != nil {
			return lazy.Query{}, err
		}
		q.Params = append(q.Params, lazy.Param{Name: p.Name, Value: v})
	}
	return q, nil
}
