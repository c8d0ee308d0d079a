package mapping

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	elMapping           = "mapping"
	elConnectionString  = "connection_string"
	elTablePrefixes     = "table_prefixes"
	elNamespace         = "namespace"
	elBaseModel         = "base_model"
	elProjectProperties = "project_properties"
	elEntities          = "entities"
	elEntity            = "entity"
	elPrimaryKey        = "primary_key"
	elKey               = "key"
	elProperties        = "properties"
	elProperty          = "property"
	elReference         = "reference"
	elList              = "list"
	elMap               = "map"
	elSet               = "set"
	elComplexTypes      = "complex_types"
	elType              = "type"
	elStatements        = "statements"
	elStatement         = "statement"
)

var collectionElements = map[string]CollectionType{
	elReference: CollectionNone,
	elList:      CollectionList,
	elMap:       CollectionMap,
	elSet:       CollectionSet,
}

func collectionElement(c CollectionType) string {
	switch c {
	case CollectionList:
		return elList
	case CollectionMap:
		return elMap
	case CollectionSet:
		return elSet
	}
	return elReference
}

// LoadFile loads a mapping document, choosing the codec by file extension
func LoadFile(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml", ".map":
		return Load(f)
	case ".yml", ".yaml":
		return LoadYAML(f)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// SaveFile writes the model, choosing the codec by file extension
func (m *Model) SaveFile(path string) error {
	var save func(io.Writer) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml", ".map":
		save = m.Save
	case ".yml", ".yaml":
		save = m.SaveYAML
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := save(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Load reads an XML mapping document. Relation targets and base entities are
// kept by name and resolved when first used.
func Load(r io.Reader) (*Model, error) {
	x := &xmlReader{d: xml.NewDecoder(r)}
	for {
		tok, err := x.d.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, &MappingSerializationError{Element: elMapping, Err: ErrUnclosedElement}
			}
			return nil, &MappingSerializationError{Err: err}
		}
		if start, ok := tok.(xml.StartElement); ok {
			if start.Name.Local != elMapping {
				return nil, &MappingSerializationError{Element: start.Name.Local, Err: fmt.Errorf("%w: root element must be <%s>", ErrInvalidValue, elMapping)}
			}
			return x.readMapping(start)
		}
	}
}

type xmlReader struct {
	d *xml.Decoder
}

func (x *xmlReader) tokenError(start xml.StartElement, err error) error {
	var syntaxErr *xml.SyntaxError
	if errors.Is(err, io.EOF) || (errors.As(err, &syntaxErr) &&
		(strings.Contains(syntaxErr.Msg, "unexpected EOF") || strings.Contains(syntaxErr.Msg, "closed by"))) {
		return &MappingSerializationError{Element: start.Name.Local, Err: fmt.Errorf("%w: %v", ErrUnclosedElement, err)}
	}
	return &MappingSerializationError{Element: start.Name.Local, Err: err}
}

// children calls fn for every child element of start, consuming its end element
func (x *xmlReader) children(start xml.StartElement, fn func(xml.StartElement) error) error {
	for {
		tok, err := x.d.Token()
		if err != nil {
			return x.tokenError(start, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if err := fn(t); err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		}
	}
}

// text reads the character data of start, skipping nested elements
func (x *xmlReader) text(start xml.StartElement) (string, error) {
	var b strings.Builder
	for {
		tok, err := x.d.Token()
		if err != nil {
			return "", x.tokenError(start, err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			b.Write(t)
		case xml.StartElement:
			if err := x.d.Skip(); err != nil {
				return "", x.tokenError(t, err)
			}
		case xml.EndElement:
			return strings.TrimSpace(b.String()), nil
		}
	}
}

// skip discards an unknown element
func (x *xmlReader) skip(start xml.StartElement) error {
	if err := x.d.Skip(); err != nil {
		return x.tokenError(start, err)
	}
	return nil
}

type attributes struct {
	element string
	values  map[string]string
	err     error
}

func newAttributes(start xml.StartElement) *attributes {
	a := &attributes{element: start.Name.Local, values: map[string]string{}}
	for _, attr := range start.Attr {
		a.values[attr.Name.Local] = attr.Value
	}
	return a
}

func (a *attributes) fail(name, value string, err error) {
	if a.err == nil {
		a.err = &MappingSerializationError{Element: a.element, Attribute: name, Value: value, Err: err}
	}
}

func (a *attributes) str(name string) string {
	return a.values[name]
}

func (a *attributes) bool(name string) bool {
	v, ok := a.values[name]
	if !ok || v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		a.fail(name, v, ErrInvalidValue)
	}
	return b
}

func (a *attributes) int(name string) int {
	v, ok := a.values[name]
	if !ok || v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		a.fail(name, v, ErrInvalidValue)
	}
	return n
}

func (a *attributes) typeName(name string) string {
	v := a.values[name]
	if v != "" && !ValidQualifiedName(v) {
		a.fail(name, v, ErrInvalidValue)
	}
	return v
}

func (a *attributes) relationType(name string) RelationType {
	v := a.values[name]
	kind, err := ParseRelationType(v)
	if err != nil {
		a.fail(name, v, err)
	}
	return kind
}

func (a *attributes) constraint(name string) ConstraintType {
	v := a.values[name]
	kind, err := ParseConstraintType(v)
	if err != nil {
		a.fail(name, v, err)
	}
	return kind
}

func (x *xmlReader) readMapping(start xml.StartElement) (*Model, error) {
	attrs := newAttributes(start)
	m := NewModel(ProjectSettings{Version: attrs.str("version"), Platform: attrs.str("platform")})

	err := x.children(start, func(child xml.StartElement) (err error) {
		switch child.Name.Local {
		case elConnectionString:
			m.Settings.ConnectionString, err = x.text(child)
		case elTablePrefixes:
			m.Settings.TablePrefixes, err = x.text(child)
		case elNamespace:
			m.Settings.Namespace, err = x.text(child)
		case elBaseModel:
			m.Settings.BaseModel, err = x.text(child)
		case elProjectProperties:
			err = x.children(child, func(p xml.StartElement) error {
				a := newAttributes(p)
				m.Settings.Properties = append(m.Settings.Properties, ProjectSetting{Name: a.str("name"), Value: a.str("value")})
				return x.skip(p)
			})
		case elEntities:
			err = x.children(child, func(el xml.StartElement) error {
				if el.Name.Local != elEntity {
					return x.skip(el)
				}
				e, err := x.readEntity(el)
				if err != nil {
					return err
				}
				if err := m.AddEntity(e); err != nil {
					return &MappingSerializationError{Element: elEntity, Attribute: "name", Value: e.FullName(), Err: err}
				}
				return nil
			})
		case elComplexTypes:
			err = x.children(child, func(el xml.StartElement) error {
				if el.Name.Local != elType {
					return x.skip(el)
				}
				c, err := x.readComplexType(el)
				if err == nil {
					m.AddComplexType(c)
				}
				return err
			})
		case elStatements:
			err = x.children(child, func(el xml.StartElement) error {
				if el.Name.Local != elStatement {
					return x.skip(el)
				}
				a := newAttributes(el)
				s := &Statement{Name: a.str("name"), Operation: StatementOperation(a.str("operation")), ResultMap: a.str("result_map")}
				body, err := x.text(el)
				if err != nil {
					return err
				}
				s.Body = body
				m.AddStatement(s)
				return nil
			})
		default:
			err = x.skip(child)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (x *xmlReader) readEntity(start xml.StartElement) (*Entity, error) {
	attrs := newAttributes(start)
	e := &Entity{
		Name:        attrs.str("name"),
		Extends:     attrs.typeName("extends"),
		Assembly:    attrs.str("assembly"),
		Namespace:   attrs.str("namespace"),
		TableName:   attrs.str("table"),
		SchemaName:  attrs.str("schema"),
		TableAlias:  attrs.str("alias"),
		IsLinkTable: attrs.bool("link_table"),
	}
	if attrs.err != nil {
		return nil, attrs.err
	}

	err := x.children(start, func(child xml.StartElement) error {
		switch child.Name.Local {
		case elPrimaryKey:
			return x.children(child, func(el xml.StartElement) error {
				if el.Name.Local != elKey {
					return x.skip(el)
				}
				k, err := x.readKey(el)
				if err != nil {
					return err
				}
				if err := e.AddKey(k); err != nil {
					return &MappingSerializationError{Element: elKey, Attribute: "name", Value: k.Name(), Err: err}
				}
				return nil
			})
		case elProperties:
			return x.children(child, func(el xml.StartElement) error {
				p, rel, err := x.readField(el)
				if err != nil || (p == nil && rel == nil) {
					return err
				}
				if rel != nil {
					err = e.AddRelation(rel)
				} else {
					err = e.AddProperty(p)
				}
				if err != nil {
					return &MappingSerializationError{Element: el.Name.Local, Attribute: "name", Value: newAttributes(el).str("name"), Err: err}
				}
				return nil
			})
		}
		return x.skip(child)
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (x *xmlReader) readKey(start xml.StartElement) (*PrimaryKeyProperty, error) {
	attrs := newAttributes(start)
	k := &PrimaryKeyProperty{
		UnsavedValue:          attrs.str("unsaved_value"),
		KeyGenerationStrategy: attrs.str("key_generator"),
	}
	err := x.children(start, func(el xml.StartElement) error {
		p, rel, err := x.readField(el)
		if err != nil {
			return err
		}
		if rel != nil {
			k.Key, k.Relation = &rel.Property, rel
		} else if p != nil {
			k.Key = p
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if k.Key == nil {
		return nil, &MappingSerializationError{Element: elKey, Err: fmt.Errorf("%w: key without field", ErrInvalidValue)}
	}
	return k, nil
}

// readField reads a property or relation element; unknown elements are skipped
func (x *xmlReader) readField(start xml.StartElement) (*Property, *Relation, error) {
	collection, isRelation := collectionElements[start.Name.Local]
	if start.Name.Local != elProperty && !isRelation {
		return nil, nil, x.skip(start)
	}

	attrs := newAttributes(start)
	p := Property{
		PropertyName:    attrs.str("name"),
		ColumnName:      attrs.str("column"),
		ClrType:         attrs.typeName("clr_type"),
		DbType:          attrs.str("db_type"),
		Length:          attrs.int("length"),
		Precision:       attrs.int("precision"),
		Scale:           attrs.int("scale"),
		IsNullable:      attrs.bool("nullable"),
		IsUnique:        attrs.bool("unique"),
		IsIdentity:      attrs.bool("identity"),
		IsAutoGenerated: attrs.bool("auto_generated"),
		DefaultValue:    attrs.str("default"),
		IgnoreOnUpdate:  attrs.bool("ignore_on_update"),
		LazyLoad:        attrs.bool("lazy_load"),
		ConstraintType:  attrs.constraint("constraint"),
		Order:           attrs.int("order"),
	}
	if p.PropertyName == "" {
		attrs.fail("name", "", fmt.Errorf("%w: name required", ErrInvalidValue))
	}

	var rel *Relation
	if isRelation {
		rel = &Relation{
			Property:            p,
			RelationType:        attrs.relationType("relation"),
			ReferenceEntityName: attrs.typeName("reference_entity"),
			ReferenceColumn:     attrs.str("reference_column"),
			ReferenceProperty:   attrs.str("reference_property"),
			MapTableName:        attrs.str("map_table"),
			MapColumn:           attrs.str("map_column"),
			MapReferenceColumn:  attrs.str("map_reference_column"),
			Inverse:             attrs.bool("inverse"),
			Exclude:             attrs.bool("exclude"),
			CollectionType:      collection,
		}
	}

	if err := x.skip(start); err != nil {
		return nil, nil, err
	}
	if attrs.err != nil {
		return nil, nil, attrs.err
	}
	if rel != nil {
		return nil, rel, nil
	}
	return &p, nil, nil
}

func (x *xmlReader) readComplexType(start xml.StartElement) (*ComplexType, error) {
	attrs := newAttributes(start)
	c := &ComplexType{
		Name:      attrs.str("name"),
		Namespace: attrs.str("namespace"),
		IsEnum:    attrs.bool("enum"),
		BaseType:  attrs.typeName("base_type"),
	}
	if attrs.err != nil {
		return nil, attrs.err
	}
	err := x.children(start, func(child xml.StartElement) error {
		if child.Name.Local != elProperties {
			return x.skip(child)
		}
		return x.children(child, func(el xml.StartElement) error {
			p, rel, err := x.readField(el)
			if err != nil {
				return err
			}
			if rel != nil {
				p = &rel.Property
			}
			if p != nil {
				c.Properties = append(c.Properties, p)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Save writes the model as an XML mapping document, omitting attributes
// holding default values
func (m *Model) Save(w io.Writer) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	x := &xmlWriter{e: xml.NewEncoder(w)}
	x.e.Indent("", "  ")

	s := m.Settings
	x.start(elMapping, attrList{}.str("version", s.Version).str("platform", s.Platform))
	x.textElement(elConnectionString, s.ConnectionString)
	x.textElement(elTablePrefixes, s.TablePrefixes)
	x.textElement(elNamespace, s.Namespace)
	x.textElement(elBaseModel, s.BaseModel)

	if len(s.Properties) > 0 {
		x.start(elProjectProperties, nil)
		for _, p := range s.Properties {
			x.empty(elProperty, attrList{}.str("name", p.Name).str("value", p.Value))
		}
		x.end(elProjectProperties)
	}

	x.start(elEntities, nil)
	for _, e := range m.entities {
		x.writeEntity(e)
	}
	x.end(elEntities)

	if len(m.complexTypes) > 0 {
		x.start(elComplexTypes, nil)
		for _, c := range m.complexTypes {
			x.start(elType, attrList{}.str("name", c.Name).str("namespace", c.Namespace).bool("enum", c.IsEnum).str("base_type", c.BaseType))
			x.start(elProperties, nil)
			for _, p := range c.Properties {
				x.empty(elProperty, propertyAttrs(p))
			}
			x.end(elProperties)
			x.end(elType)
		}
		x.end(elComplexTypes)
	}

	if len(m.statements) > 0 {
		x.start(elStatements, nil)
		for _, st := range m.statements {
			x.start(elStatement, attrList{}.str("name", st.Name).str("operation", string(st.Operation)).str("result_map", st.ResultMap))
			x.chars(st.Body)
			x.end(elStatement)
		}
		x.end(elStatements)
	}

	x.end(elMapping)
	if x.err == nil {
		x.err = x.e.Flush()
	}
	if x.err == nil {
		_, x.err = io.WriteString(w, "\n")
	}
	return x.err
}

type attrList []xml.Attr

func (a attrList) str(name, value string) attrList {
	if value == "" {
		return a
	}
	return append(a, xml.Attr{Name: xml.Name{Local: name}, Value: value})
}

func (a attrList) bool(name string, value bool) attrList {
	if !value {
		return a
	}
	return a.str(name, "true")
}

func (a attrList) int(name string, value int) attrList {
	if value == 0 {
		return a
	}
	return a.str(name, strconv.Itoa(value))
}

func propertyAttrs(p *Property) attrList {
	return attrList{}.
		str("name", p.PropertyName).
		str("column", p.ColumnName).
		str("clr_type", p.ClrType).
		str("db_type", p.DbType).
		int("length", p.Length).
		int("precision", p.Precision).
		int("scale", p.Scale).
		bool("nullable", p.IsNullable).
		bool("unique", p.IsUnique).
		bool("identity", p.IsIdentity).
		bool("auto_generated", p.IsAutoGenerated).
		str("default", p.DefaultValue).
		bool("ignore_on_update", p.IgnoreOnUpdate).
		bool("lazy_load", p.LazyLoad).
		str("constraint", string(p.ConstraintType)).
		int("order", p.Order)
}

func relationAttrs(r *Relation) attrList {
	return propertyAttrs(&r.Property).
		str("relation", string(r.RelationType)).
		str("reference_entity", r.ReferenceEntityName).
		str("reference_column", r.ReferenceColumn).
		str("reference_property", r.ReferenceProperty).
		str("map_table", r.MapTableName).
		str("map_column", r.MapColumn).
		str("map_reference_column", r.MapReferenceColumn).
		bool("inverse", r.Inverse).
		bool("exclude", r.Exclude)
}

type xmlWriter struct {
	e   *xml.Encoder
	err error
}

func (x *xmlWriter) token(t xml.Token) {
	if x.err == nil {
		x.err = x.e.EncodeToken(t)
	}
}

func (x *xmlWriter) start(name string, attrs attrList) {
	x.token(xml.StartElement{Name: xml.Name{Local: name}, Attr: attrs})
}

func (x *xmlWriter) end(name string) {
	x.token(xml.EndElement{Name: xml.Name{Local: name}})
}

func (x *xmlWriter) empty(name string, attrs attrList) {
	x.start(name, attrs)
	x.end(name)
}

func (x *xmlWriter) chars(s string) {
	if s != "" {
		x.token(xml.CharData(s))
	}
}

func (x *xmlWriter) textElement(name, value string) {
	if value == "" {
		return
	}
	x.start(name, nil)
	x.chars(value)
	x.end(name)
}

func (x *xmlWriter) writeField(p *Property, rel *Relation) {
	if rel != nil {
		x.empty(collectionElement(rel.CollectionType), relationAttrs(rel))
		return
	}
	x.empty(elProperty, propertyAttrs(p))
}

func (x *xmlWriter) writeEntity(e *Entity) {
	x.start(elEntity, attrList{}.
		str("name", e.Name).
		str("extends", e.Extends).
		str("assembly", e.Assembly).
		str("namespace", e.Namespace).
		str("table", e.TableName).
		str("schema", e.SchemaName).
		str("alias", e.TableAlias).
		bool("link_table", e.IsLinkTable))

	if keys := e.Keys(); len(keys) > 0 {
		x.start(elPrimaryKey, nil)
		for _, k := range keys {
			x.start(elKey, attrList{}.str("unsaved_value", k.UnsavedValue).str("key_generator", k.KeyGenerationStrategy))
			x.writeField(k.Key, k.Relation)
			x.end(elKey)
		}
		x.end(elPrimaryKey)
	}

	x.start(elProperties, nil)
	for _, p := range e.Properties {
		x.writeField(p, nil)
	}
	for _, r := range e.Relations {
		x.writeField(nil, r)
	}
	x.end(elProperties)

	x.end(elEntity)
}
