package mapping_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/malweka/GoliathData-sub001/mapping"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	m := salesModel(t)

	var first bytes.Buffer
	require.NoError(t, m.Save(&first))

	loaded, err := mapping.Load(bytes.NewReader(first.Bytes()))
	require.NoError(t, err)
	require.NoError(t, loaded.Validate())

	var second bytes.Buffer
	require.NoError(t, loaded.Save(&second))
	assert.Equal(t, first.String(), second.String())

	require.Len(t, loaded.Entities(), len(m.Entities()))
	for i, want := range m.Entities() {
		got := loaded.Entities()[i]
		assert.Equal(t, want.FullName(), got.FullName())
		assert.Equal(t, want.Properties, got.Properties)
		assert.Equal(t, want.Relations, got.Relations)
		assert.Equal(t, want.PrimaryKey, got.PrimaryKey)
	}
	assert.Equal(t, m.Settings, loaded.Settings)
	assert.Equal(t, m.ComplexTypes(), loaded.ComplexTypes())
	assert.Equal(t, m.Statements(), loaded.Statements())
}

func TestSaveOmitsDefaults(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, salesModel(t).Save(&buf))
	doc := buf.String()

	assert.True(t, strings.HasPrefix(doc, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, doc, `<mapping version="1.0" platform="Postgres">`)
	assert.Contains(t, doc, `<property name="Number" column="number" clr_type="string"></property>`)
	assert.Contains(t, doc, `<key key_generator="guid">`)
	assert.Contains(t, doc, `<set name="Tags" column="id" clr_type="[]Tag" relation="ManyToMany" reference_entity="Tag" reference_column="id" reference_property="Id" map_table="order_tags" map_column="order_id" map_reference_column="tag_id"></set>`)
	assert.NotContains(t, doc, `nullable="false"`)
	assert.NotContains(t, doc, `length="0"`)
	assert.NotContains(t, doc, `<connection_string>`)
}

const canonical = `<?xml version="1.0" encoding="UTF-8"?>
<mapping version="2" platform="Sqlite">
  <connection_string>file::memory:</connection_string>
  <namespace>Blog</namespace>
  <entities>
    <entity name="Post" namespace="Blog" table="posts" alias="p">
      <primary_key>
        <key unsaved_value="0" key_generator="identity">
          <property name="Id" column="id" clr_type="int64" identity="true" constraint="PrimaryKey"></property>
        </key>
      </primary_key>
      <properties>
        <property name="Title" column="title" clr_type="string" length="200" unique="true"></property>
        <property name="Body" column="body" clr_type="string" nullable="true" lazy_load="true"></property>
        <reference name="Author" column="author_id" lazy_load="true" relation="ManyToOne" reference_entity="Author" reference_column="id" reference_property="Id"></reference>
        <list name="Comments" column="id" relation="OneToMany" reference_entity="Comment" reference_column="post_id" reference_property="Post" exclude="true"></list>
      </properties>
    </entity>
  </entities>
</mapping>
`

func TestCanonicalDocumentRoundTrip(t *testing.T) {
	m, err := mapping.Load(strings.NewReader(canonical))
	require.NoError(t, err)

	post, ok := m.GetEntity("Blog.Post")
	require.True(t, ok)
	assert.True(t, post.Keys()[0].Key.IsIdentity)
	assert.Equal(t, "0", post.Keys()[0].UnsavedValue)
	author, ok := post.GetRelation("Author")
	require.True(t, ok)
	assert.Equal(t, mapping.CollectionNone, author.CollectionType)
	assert.True(t, author.LazyLoad)
	comments, _ := post.GetRelation("Comments")
	assert.Equal(t, mapping.CollectionList, comments.CollectionType)
	assert.True(t, comments.Exclude)

	var buf bytes.Buffer
	require.NoError(t, m.Save(&buf))
	assert.Equal(t, canonical, buf.String())
}

func TestLoadErrors(t *testing.T) {
	cases := map[string]struct {
		doc       string
		element   string
		attribute string
		target    error
	}{
		"bad bool": {
			doc:       `<mapping><entities><entity name="A" link_table="maybe"></entity></entities></mapping>`,
			element:   "entity",
			attribute: "link_table",
			target:    mapping.ErrInvalidValue,
		},
		"bad int": {
			doc:       `<mapping><entities><entity name="A"><properties><property name="X" length="ten"></property></properties></entity></entities></mapping>`,
			element:   "property",
			attribute: "length",
			target:    mapping.ErrInvalidValue,
		},
		"bad relation kind": {
			doc:       `<mapping><entities><entity name="A"><properties><reference name="B" relation="OneToOne"></reference></properties></entity></entities></mapping>`,
			element:   "reference",
			attribute: "relation",
			target:    mapping.ErrInvalidValue,
		},
		"bad constraint": {
			doc:       `<mapping><entities><entity name="A"><properties><property name="X" constraint="Check"></property></properties></entity></entities></mapping>`,
			element:   "property",
			attribute: "constraint",
			target:    mapping.ErrInvalidValue,
		},
		"bad type name": {
			doc:       `<mapping><entities><entity name="A"><properties><property name="X" clr_type="9lives"></property></properties></entity></entities></mapping>`,
			element:   "property",
			attribute: "clr_type",
			target:    mapping.ErrInvalidValue,
		},
		"unclosed entity": {
			doc:     `<mapping><entities><entity name="A"><properties></properties>`,
			element: "entity",
			target:  mapping.ErrUnclosedElement,
		},
		"mismatched close": {
			doc:     `<mapping><entities><entity name="A"></entities></mapping>`,
			element: "entity",
			target:  mapping.ErrUnclosedElement,
		},
		"duplicate entity": {
			doc:       `<mapping><entities><entity name="A"></entity><entity name="A"></entity></entities></mapping>`,
			element:   "entity",
			attribute: "name",
			target:    mapping.ErrDuplicateEntity,
		},
	}

	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := mapping.Load(strings.NewReader(c.doc))
			var serr *mapping.MappingSerializationError
			require.ErrorAs(t, err, &serr)
			assert.Equal(t, c.element, serr.Element)
			assert.Equal(t, c.attribute, serr.Attribute)
			assert.ErrorIs(t, err, c.target)
		})
	}
}

func TestLoadToleratesForwardReferences(t *testing.T) {
	doc := `<mapping><entities>
  <entity name="Child"><properties><reference name="Parent" column="parent_id" relation="ManyToOne" reference_entity="Parent"></reference></properties></entity>
  <entity name="Parent" extends="Base"></entity>
</entities></mapping>`
	m, err := mapping.Load(strings.NewReader(doc))
	require.NoError(t, err)

	child, _ := m.GetEntity("Child")
	rel, _ := child.GetRelation("Parent")
	parent, err := child.ReferenceEntity(rel)
	require.NoError(t, err)
	assert.Equal(t, "Parent", parent.Name)

	_, err = parent.BaseModel()
	assert.ErrorIs(t, err, mapping.ErrReferenceEntityNotFound)
}

func TestFileCodecs(t *testing.T) {
	dir := t.TempDir()
	m := salesModel(t)

	for _, name := range []string{"sales.xml", "sales.yaml"} {
		path := filepath.Join(dir, name)
		require.NoError(t, m.SaveFile(path))
		loaded, err := mapping.LoadFile(path)
		require.NoError(t, err, name)
		assert.Len(t, loaded.Entities(), len(m.Entities()))
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "sales.json"), []byte("{}"), 0o600))
	_, err := mapping.LoadFile(filepath.Join(dir, "sales.json"))
	assert.ErrorIs(t, err, mapping.ErrUnsupportedFormat)
}
