package mapping

// Property a mapped column
type Property struct {
	PropertyName    string
	ColumnName      string
	ClrType         string
	DbType          string
	Length          int
	Precision       int
	Scale           int
	IsNullable      bool
	IsUnique        bool
	IsPrimaryKey    bool
	IsIdentity      bool
	IsAutoGenerated bool
	DefaultValue    string
	IgnoreOnUpdate  bool
	LazyLoad        bool
	ConstraintType  ConstraintType
	Order           int
	MetaData        map[string]string
}

// Name property name
func (p *Property) Name() string {
	return p.PropertyName
}

// IsGeneratedOnInsert reports whether the database supplies the column value on insert
func (p *Property) IsGeneratedOnInsert() bool {
	return p.IsIdentity || p.IsAutoGenerated
}

func (p *Property) setMeta(name, value string) bool {
	if p.MetaData == nil {
		p.MetaData = map[string]string{}
	}
	if _, ok := p.MetaData[name]; ok {
		return false
	}
	p.MetaData[name] = value
	return true
}

// Relation a property whose value is another entity or a collection of entities
type Relation struct {
	Property

	RelationType        RelationType
	ReferenceEntityName string
	// ReferenceColumn is the target's key column for ManyToOne and ManyToMany,
	// and the child's foreign-key column for OneToMany.
	ReferenceColumn string
	// ReferenceProperty is the target's key property for ManyToOne and
	// ManyToMany, and the child's back-reference property for OneToMany.
	ReferenceProperty  string
	MapTableName       string
	MapColumn          string
	MapReferenceColumn string
	Inverse            bool
	Exclude            bool
	CollectionType     CollectionType
}

// IsCollection reports whether the relation holds many entities
func (r *Relation) IsCollection() bool {
	return r.RelationType == OneToMany || r.RelationType == ManyToMany
}

// IsOwningManyToMany reports whether the relation writes join rows
func (r *Relation) IsOwningManyToMany() bool {
	return r.RelationType == ManyToMany && !r.Inverse && !r.Exclude
}

// PrimaryKeyProperty a key field with its generation strategy
type PrimaryKeyProperty struct {
	Key *Property
	// Relation is set when the key field is itself a relation (link tables)
	Relation              *Relation
	UnsavedValue          string
	KeyGenerationStrategy string
}

// Name key property name
func (k *PrimaryKeyProperty) Name() string {
	return k.Key.PropertyName
}

// PrimaryKey ordered, unique-by-name key fields
type PrimaryKey struct {
	Keys []*PrimaryKeyProperty
}

// Get returns the key with the given property name
func (pk *PrimaryKey) Get(name string) (*PrimaryKeyProperty, bool) {
	if pk == nil {
		return nil, false
	}
	for _, k := range pk.Keys {
		if k.Key.PropertyName == name {
			return k, true
		}
	}
	return nil, false
}

// ComplexType a non-entity type; enum members carry their numeric value in DefaultValue
type ComplexType struct {
	Name       string
	Namespace  string
	IsEnum     bool
	BaseType   string
	Properties []*Property
}

// FullName namespace qualified name
func (c *ComplexType) FullName() string {
	if c.Namespace == "" {
		return c.Name
	}
	return c.Namespace + "." + c.Name
}

// Member returns the enum member with the given name
func (c *ComplexType) Member(name string) (*Property, bool) {
	for _, p := range c.Properties {
		if p.PropertyName == name {
			return p, true
		}
	}
	return nil, false
}

// ProjectSetting a name/value project property
type ProjectSetting struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// ProjectSettings document level settings
type ProjectSettings struct {
	Version          string
	Platform         string
	ConnectionString string
	TablePrefixes    string
	Namespace        string
	BaseModel        string
	Properties       []ProjectSetting
}

// Get returns a project property value
func (s ProjectSettings) Get(name string) (string, bool) {
	for _, p := range s.Properties {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// StatementOperation kind of a mapped statement
type StatementOperation string

const (
	StatementQuery    StatementOperation = "Query"
	StatementNonQuery StatementOperation = "NonQuery"
)

// Statement a named, hand-authored parameterized statement
type Statement struct {
	Name      string
	Operation StatementOperation
	ResultMap string
	Body      string
}
