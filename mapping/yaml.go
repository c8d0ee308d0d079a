package mapping

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

type yamlDocument struct {
	Version          string           `yaml:"version,omitempty"`
	Platform         string           `yaml:"platform,omitempty"`
	ConnectionString string           `yaml:"connection_string,omitempty"`
	TablePrefixes    string           `yaml:"table_prefixes,omitempty"`
	Namespace        string           `yaml:"namespace,omitempty"`
	BaseModel        string           `yaml:"base_model,omitempty"`
	Properties       []ProjectSetting `yaml:"project_properties,omitempty"`
	Entities         []yamlEntity     `yaml:"entities,omitempty"`
	ComplexTypes     []yamlComplex    `yaml:"complex_types,omitempty"`
	Statements       []yamlStatement  `yaml:"statements,omitempty"`
}

type yamlEntity struct {
	Name       string         `yaml:"name"`
	Extends    string         `yaml:"extends,omitempty"`
	Assembly   string         `yaml:"assembly,omitempty"`
	Namespace  string         `yaml:"namespace,omitempty"`
	Table      string         `yaml:"table,omitempty"`
	Schema     string         `yaml:"schema,omitempty"`
	Alias      string         `yaml:"alias,omitempty"`
	LinkTable  bool           `yaml:"link_table,omitempty"`
	PrimaryKey []yamlKey      `yaml:"primary_key,omitempty"`
	Properties []yamlProperty `yaml:"properties,omitempty"`
}

type yamlKey struct {
	UnsavedValue string       `yaml:"unsaved_value,omitempty"`
	KeyGenerator string       `yaml:"key_generator,omitempty"`
	Field        yamlProperty `yaml:"field"`
}

// yamlProperty is a plain property when Kind is empty, otherwise a relation
// whose Kind names its collection (reference, list, map, set)
type yamlProperty struct {
	Kind               string `yaml:"kind,omitempty"`
	Name               string `yaml:"name"`
	Column             string `yaml:"column,omitempty"`
	ClrType            string `yaml:"clr_type,omitempty"`
	DbType             string `yaml:"db_type,omitempty"`
	Length             int    `yaml:"length,omitempty"`
	Precision          int    `yaml:"precision,omitempty"`
	Scale              int    `yaml:"scale,omitempty"`
	Nullable           bool   `yaml:"nullable,omitempty"`
	Unique             bool   `yaml:"unique,omitempty"`
	Identity           bool   `yaml:"identity,omitempty"`
	AutoGenerated      bool   `yaml:"auto_generated,omitempty"`
	Default            string `yaml:"default,omitempty"`
	IgnoreOnUpdate     bool   `yaml:"ignore_on_update,omitempty"`
	LazyLoad           bool   `yaml:"lazy_load,omitempty"`
	Constraint         string `yaml:"constraint,omitempty"`
	Order              int    `yaml:"order,omitempty"`
	Relation           string `yaml:"relation,omitempty"`
	ReferenceEntity    string `yaml:"reference_entity,omitempty"`
	ReferenceColumn    string `yaml:"reference_column,omitempty"`
	ReferenceProperty  string `yaml:"reference_property,omitempty"`
	MapTable           string `yaml:"map_table,omitempty"`
	MapColumn          string `yaml:"map_column,omitempty"`
	MapReferenceColumn string `yaml:"map_reference_column,omitempty"`
	Inverse            bool   `yaml:"inverse,omitempty"`
	Exclude            bool   `yaml:"exclude,omitempty"`
}

type yamlComplex struct {
	Name       string         `yaml:"name"`
	Namespace  string         `yaml:"namespace,omitempty"`
	Enum       bool           `yaml:"enum,omitempty"`
	BaseType   string         `yaml:"base_type,omitempty"`
	Properties []yamlProperty `yaml:"properties,omitempty"`
}

type yamlStatement struct {
	Name      string `yaml:"name"`
	Operation string `yaml:"operation,omitempty"`
	ResultMap string `yaml:"result_map,omitempty"`
	Body      string `yaml:"body"`
}

// LoadYAML reads a YAML mapping document
func LoadYAML(r io.Reader) (*Model, error) {
	var doc yamlDocument
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, &MappingSerializationError{Element: elMapping, Err: err}
	}

	m := NewModel(ProjectSettings{
		Version:          doc.Version,
		Platform:         doc.Platform,
		ConnectionString: doc.ConnectionString,
		TablePrefixes:    doc.TablePrefixes,
		Namespace:        doc.Namespace,
		BaseModel:        doc.BaseModel,
		Properties:       doc.Properties,
	})

	for _, ye := range doc.Entities {
		e, err := ye.entity()
		if err != nil {
			return nil, err
		}
		if err := m.AddEntity(e); err != nil {
			return nil, &MappingSerializationError{Element: elEntity, Attribute: "name", Value: e.FullName(), Err: err}
		}
	}

	for _, yc := range doc.ComplexTypes {
		if yc.BaseType != "" && !ValidQualifiedName(yc.BaseType) {
			return nil, &MappingSerializationError{Element: elType, Attribute: "base_type", Value: yc.BaseType, Err: ErrInvalidValue}
		}
		c := &ComplexType{Name: yc.Name, Namespace: yc.Namespace, IsEnum: yc.Enum, BaseType: yc.BaseType}
		for _, yp := range yc.Properties {
			p, rel, err := yp.field()
			if err != nil {
				return nil, err
			}
			if rel != nil {
				p = &rel.Property
			}
			c.Properties = append(c.Properties, p)
		}
		m.AddComplexType(c)
	}

	for _, ys := range doc.Statements {
		m.AddStatement(&Statement{Name: ys.Name, Operation: StatementOperation(ys.Operation), ResultMap: ys.ResultMap, Body: ys.Body})
	}
	return m, nil
}

func (ye yamlEntity) entity() (*Entity, error) {
	if ye.Extends != "" && !ValidQualifiedName(ye.Extends) {
		return nil, &MappingSerializationError{Element: elEntity, Attribute: "extends", Value: ye.Extends, Err: ErrInvalidValue}
	}
	e := &Entity{
		Name:        ye.Name,
		Extends:     ye.Extends,
		Assembly:    ye.Assembly,
		Namespace:   ye.Namespace,
		TableName:   ye.Table,
		SchemaName:  ye.Schema,
		TableAlias:  ye.Alias,
		IsLinkTable: ye.LinkTable,
	}

	for _, yk := range ye.PrimaryKey {
		p, rel, err := yk.Field.field()
		if err != nil {
			return nil, err
		}
		k := &PrimaryKeyProperty{Key: p, UnsavedValue: yk.UnsavedValue, KeyGenerationStrategy: yk.KeyGenerator}
		if rel != nil {
			k.Key, k.Relation = &rel.Property, rel
		}
		if err := e.AddKey(k); err != nil {
			return nil, &MappingSerializationError{Element: elKey, Attribute: "name", Value: k.Name(), Err: err}
		}
	}

	for _, yp := range ye.Properties {
		p, rel, err := yp.field()
		if err != nil {
			return nil, err
		}
		if rel != nil {
			err = e.AddRelation(rel)
		} else {
			err = e.AddProperty(p)
		}
		if err != nil {
			return nil, &MappingSerializationError{Element: elProperty, Attribute: "name", Value: yp.Name, Err: err}
		}
	}
	return e, nil
}

func (yp yamlProperty) field() (*Property, *Relation, error) {
	element := elProperty
	if yp.Kind != "" {
		element = yp.Kind
	}
	fail := func(attr, value string, err error) (*Property, *Relation, error) {
		return nil, nil, &MappingSerializationError{Element: element, Attribute: attr, Value: value, Err: err}
	}

	if yp.Name == "" {
		return fail("name", "", fmt.Errorf("%w: name required", ErrInvalidValue))
	}
	if yp.ClrType != "" && !ValidQualifiedName(yp.ClrType) {
		return fail("clr_type", yp.ClrType, ErrInvalidValue)
	}
	constraint, err := ParseConstraintType(yp.Constraint)
	if err != nil {
		return fail("constraint", yp.Constraint, err)
	}

	p := Property{
		PropertyName:    yp.Name,
		ColumnName:      yp.Column,
		ClrType:         yp.ClrType,
		DbType:          yp.DbType,
		Length:          yp.Length,
		Precision:       yp.Precision,
		Scale:           yp.Scale,
		IsNullable:      yp.Nullable,
		IsUnique:        yp.Unique,
		IsIdentity:      yp.Identity,
		IsAutoGenerated: yp.AutoGenerated,
		DefaultValue:    yp.Default,
		IgnoreOnUpdate:  yp.IgnoreOnUpdate,
		LazyLoad:        yp.LazyLoad,
		ConstraintType:  constraint,
		Order:           yp.Order,
	}
	if yp.Kind == "" {
		return &p, nil, nil
	}

	collection, ok := collectionElements[yp.Kind]
	if !ok {
		return fail("kind", yp.Kind, ErrInvalidValue)
	}
	kind, err := ParseRelationType(yp.Relation)
	if err != nil {
		return fail("relation", yp.Relation, err)
	}
	if yp.ReferenceEntity != "" && !ValidQualifiedName(yp.ReferenceEntity) {
		return fail("reference_entity", yp.ReferenceEntity, ErrInvalidValue)
	}
	return nil, &Relation{
		Property:            p,
		RelationType:        kind,
		ReferenceEntityName: yp.ReferenceEntity,
		ReferenceColumn:     yp.ReferenceColumn,
		ReferenceProperty:   yp.ReferenceProperty,
		MapTableName:        yp.MapTable,
		MapColumn:           yp.MapColumn,
		MapReferenceColumn:  yp.MapReferenceColumn,
		Inverse:             yp.Inverse,
		Exclude:             yp.Exclude,
		CollectionType:      collection,
	}, nil
}

func yamlField(p *Property, rel *Relation) yamlProperty {
	yp := yamlProperty{
		Name:           p.PropertyName,
		Column:         p.ColumnName,
		ClrType:        p.ClrType,
		DbType:         p.DbType,
		Length:         p.Length,
		Precision:      p.Precision,
		Scale:          p.Scale,
		Nullable:       p.IsNullable,
		Unique:         p.IsUnique,
		Identity:       p.IsIdentity,
		AutoGenerated:  p.IsAutoGenerated,
		Default:        p.DefaultValue,
		IgnoreOnUpdate: p.IgnoreOnUpdate,
		LazyLoad:       p.LazyLoad,
		Constraint:     string(p.ConstraintType),
		Order:          p.Order,
	}
	if rel != nil {
		yp.Kind = collectionElement(rel.CollectionType)
		yp.Relation = string(rel.RelationType)
		yp.ReferenceEntity = rel.ReferenceEntityName
		yp.ReferenceColumn = rel.ReferenceColumn
		yp.ReferenceProperty = rel.ReferenceProperty
		yp.MapTable = rel.MapTableName
		yp.MapColumn = rel.MapColumn
		yp.MapReferenceColumn = rel.MapReferenceColumn
		yp.Inverse = rel.Inverse
		yp.Exclude = rel.Exclude
	}
	return yp
}

// SaveYAML writes the model as a YAML mapping document
func (m *Model) SaveYAML(w io.Writer) error {
	s := m.Settings
	doc := yamlDocument{
		Version:          s.Version,
		Platform:         s.Platform,
		ConnectionString: s.ConnectionString,
		TablePrefixes:    s.TablePrefixes,
		Namespace:        s.Namespace,
		BaseModel:        s.BaseModel,
		Properties:       s.Properties,
	}

	for _, e := range m.entities {
		ye := yamlEntity{
			Name:      e.Name,
			Extends:   e.Extends,
			Assembly:  e.Assembly,
			Namespace: e.Namespace,
			Table:     e.TableName,
			Schema:    e.SchemaName,
			Alias:     e.TableAlias,
			LinkTable: e.IsLinkTable,
		}
		for _, k := range e.Keys() {
			ye.PrimaryKey = append(ye.PrimaryKey, yamlKey{
				UnsavedValue: k.UnsavedValue,
				KeyGenerator: k.KeyGenerationStrategy,
				Field:        yamlField(k.Key, k.Relation),
			})
		}
		for _, p := range e.Properties {
			ye.Properties = append(ye.Properties, yamlField(p, nil))
		}
		for _, r := range e.Relations {
			ye.Properties = append(ye.Properties, yamlField(&r.Property, r))
		}
		doc.Entities = append(doc.Entities, ye)
	}

	for _, c := range m.complexTypes {
		yc := yamlComplex{Name: c.Name, Namespace: c.Namespace, Enum: c.IsEnum, BaseType: c.BaseType}
		for _, p := range c.Properties {
			yc.Properties = append(yc.Properties, yamlField(p, nil))
		}
		doc.ComplexTypes = append(doc.ComplexTypes, yc)
	}

	for _, st := range m.statements {
		doc.Statements = append(doc.Statements, yamlStatement{Name: st.Name, Operation: string(st.Operation), ResultMap: st.ResultMap, Body: st.Body})
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return err
	}
	return enc.Close()
}
