package accessor_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/malweka/GoliathData-sub001/accessor"
	"github.com/malweka/GoliathData-sub001/lazy"
)

type Part struct {
	Id int64
}

type Assembly struct {
	Main     *Part
	Backup   *lazy.Ref[Part]
	Spare    lazy.Ref[Part]
	PartId   int64
	Parts    []*Part
	ByName   map[string]Part
	Deferred *lazy.Collection[Part]
}

func field(t *testing.T, a *Assembly, name string) reflect.Value {
	t.Helper()
	return reflect.ValueOf(a).Elem().FieldByName(name)
}

func TestRelated(t *testing.T) {
	a := &Assembly{Main: &Part{Id: 1}, Backup: lazy.Loaded(&Part{Id: 2}), PartId: 7}

	obj, key, ok := accessor.Related(field(t, a, "Main"))
	require.True(t, ok)
	assert.Nil(t, key)
	assert.Equal(t, int64(1), obj.(*Part).Id)

	obj, _, ok = accessor.Related(field(t, a, "Backup"))
	require.True(t, ok)
	assert.Equal(t, int64(2), obj.(*Part).Id)

	a.Spare.SetPending(lazy.Query{SQL: "SELECT 1"}, nil)
	a.Spare.SetKey(int64(9))
	obj, key, ok = accessor.Related(field(t, a, "Spare"))
	require.True(t, ok)
	assert.Nil(t, obj)
	assert.Equal(t, int64(9), key)

	_, key, ok = accessor.Related(field(t, a, "PartId"))
	require.True(t, ok)
	assert.Equal(t, int64(7), key)

	_, _, ok = accessor.Related(field(t, &Assembly{}, "Main"))
	assert.False(t, ok)
}

func TestDeferredAllocates(t *testing.T) {
	a := &Assembly{}
	_, ok := accessor.Deferred(field(t, a, "Backup"), false)
	assert.False(t, ok)

	d, ok := accessor.Deferred(field(t, a, "Backup"), true)
	require.True(t, ok)
	assert.NotNil(t, a.Backup)
	assert.Equal(t, reflect.TypeOf(Part{}), d.ElemType())

	_, ok = accessor.Deferred(field(t, a, "Spare"), false)
	assert.True(t, ok)
	assert.True(t, accessor.IsDeferred(reflect.TypeOf(&a.Spare).Elem()))
	assert.False(t, accessor.IsDeferred(reflect.TypeOf(Part{})))
}

func TestElements(t *testing.T) {
	a := &Assembly{
		Parts:    []*Part{{Id: 1}, nil, {Id: 2}},
		ByName:   map[string]Part{"x": {Id: 3}},
		Deferred: lazy.LoadedCollection(&Part{Id: 4}),
	}

	items, ok := accessor.Elements(field(t, a, "Parts"))
	require.True(t, ok)
	assert.Len(t, items, 2)

	items, ok = accessor.Elements(field(t, a, "ByName"))
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, int64(3), items[0].(*Part).Id)

	items, ok = accessor.Elements(field(t, a, "Deferred"))
	require.True(t, ok)
	assert.Equal(t, int64(4), items[0].(*Part).Id)

	a.Deferred.SetPending(lazy.Query{}, nil)
	_, ok = accessor.Elements(field(t, a, "Deferred"))
	assert.False(t, ok)
}
