package lazy

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID   int
	Name string
}

type countingLoader struct {
	mu    sync.Mutex
	calls int
	rows  []*item
	err   error
}

func (l *countingLoader) Load(ctx context.Context, q Query, dest interface{}) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return l.err
	}
	*dest.(*[]*item) = append(*dest.(*[]*item), l.rows...)
	return nil
}

var (
	_ DeferredRef        = (*Ref[item])(nil)
	_ DeferredCollection = (*Collection[item])(nil)
)

func TestCollectionLoadsOnce(t *testing.T) {
	loader := &countingLoader{rows: []*item{{ID: 1}, {ID: 2}}}
	c := PendingCollection[item](Query{SQL: "SELECT 1", Entity: "Item"}, loader)
	assert.False(t, c.IsLoaded())
	q, ok := c.Query()
	require.True(t, ok)
	assert.Equal(t, "Item", q.Entity)

	first, err := c.Items(context.Background())
	require.NoError(t, err)
	second, err := c.Items(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 2)
	assert.Equal(t, 1, loader.calls)
	assert.True(t, c.IsLoaded())
}

func TestCollectionConcurrentAccess(t *testing.T) {
	loader := &countingLoader{rows: []*item{{ID: 1}}}
	c := PendingCollection[item](Query{}, loader)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			items, err := c.Items(context.Background())
			assert.NoError(t, err)
			assert.Len(t, items, 1)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, loader.calls)
}

func TestLoadErrorKeepsPending(t *testing.T) {
	loader := &countingLoader{err: errors.New("boom")}
	r := Pending[item](Query{SQL: "SELECT"}, loader)

	_, err := r.Get(context.Background())
	assert.EqualError(t, err, "boom")
	assert.False(t, r.IsLoaded())

	loader.err = nil
	loader.rows = []*item{{ID: 7}}
	v, err := r.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, v.ID)
	assert.Equal(t, 2, loader.calls)
}

func TestZeroValuesAreLoadedAndEmpty(t *testing.T) {
	var r Ref[item]
	v, err := r.Get(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, v)
	assert.True(t, r.IsLoaded())

	var c Collection[item]
	items, err := c.Items(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, items)

	_, err = Pending[item](Query{}, nil).Get(context.Background())
	assert.ErrorIs(t, err, ErrNoLoader)
}

func TestDeferredHooks(t *testing.T) {
	r := &Ref[item]{}
	assert.Equal(t, "item", r.ElemType().Name())
	require.NoError(t, r.SetLoadedValue(&item{ID: 3}))
	v, ok := r.LoadedValue()
	require.True(t, ok)
	assert.Equal(t, 3, v.(*item).ID)
	assert.ErrorIs(t, r.SetLoadedValue(item{}), ErrValueType)

	r.SetPending(Query{SQL: "x"}, &countingLoader{})
	r.SetKey(int64(9))
	_, ok = r.LoadedValue()
	assert.False(t, ok)
	assert.Equal(t, int64(9), r.Key())

	c := LoadedCollection(&item{ID: 1})
	c.Add(&item{ID: 2})
	items, ok := c.LoadedItems()
	require.True(t, ok)
	assert.Len(t, items, 2)
	assert.ErrorIs(t, c.SetLoadedValue([]item{}), ErrValueType)

	c.SetPending(Query{}, &countingLoader{})
	_, ok = c.LoadedItems()
	assert.False(t, ok)
}
