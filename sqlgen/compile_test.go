package sqlgen_test

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/malweka/GoliathData-sub001/dialect"
	"github.com/malweka/GoliathData-sub001/sqlgen"
)

func TestCompile(t *testing.T) {
	text := "SELECT * FROM t WHERE a = @a AND b = :b OR a = @a"
	tests := []struct {
		dialect dialect.Dialect
		want    string
	}{
		{&dialect.Postgres{}, "SELECT * FROM t WHERE a = $1 AND b = $2 OR a = $3"},
		{&dialect.SQLite{}, "SELECT * FROM t WHERE a = ?1 AND b = ?2 OR a = ?3"},
		{&dialect.MySQL{}, "SELECT * FROM t WHERE a = ? AND b = ? OR a = ?"},
	}
	for _, tt := range tests {
		t.Run(tt.dialect.Name(), func(t *testing.T) {
			c := sqlgen.Compile(text, tt.dialect)
			assert.Equal(t, tt.want, c.SQL)
			assert.Equal(t, []string{"a", "b", "a"}, c.Names)
		})
	}
}

func TestCompileLeavesLiteralsAlone(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		args []string
	}{
		{"string", `SELECT ':x', 'it''s @y' WHERE a = @a`, `SELECT ':x', 'it''s @y' WHERE a = $1`, []string{"a"}},
		{"identifier", `SELECT "@col" FROM t`, `SELECT "@col" FROM t`, nil},
		{"line comment", "SELECT 1 -- @gone\nWHERE a = @a", "SELECT 1 -- @gone\nWHERE a = $1", []string{"a"}},
		{"block comment", "SELECT /* :gone */ @a", "SELECT /* :gone */ $1", []string{"a"}},
		{"cast", "SELECT @a::int", "SELECT $1::int", []string{"a"}},
		{"variable", "SELECT @@version, @a", "SELECT @@version, $1", []string{"a"}},
		{"email", "SELECT 'x' WHERE mail = user@host", "SELECT 'x' WHERE mail = user@host", nil},
		{"time", "SELECT '10:30', @at", "SELECT '10:30', $1", []string{"at"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := sqlgen.Compile(tt.text, &dialect.Postgres{})
			assert.Equal(t, tt.want, c.SQL)
			assert.Equal(t, tt.args, c.Names)
		})
	}
}

func TestBind(t *testing.T) {
	c := sqlgen.Compile("UPDATE t SET a = @Total WHERE id = @id AND a <> @total", &dialect.SQLite{})

	key := int64(0)
	params := []sqlgen.Param{
		{Name: "total", Value: 10},
		{Name: "id", Lazy: func() (interface{}, error) { return key, nil }},
	}
	key = 9
	args, err := c.Bind(params)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{10, int64(9), 10}, args)

	_, err = c.Bind(params[:1])
	assert.ErrorIs(t, err, sqlgen.ErrMissingParameter)

	boom := errors.New("boom")
	_, err = c.Bind([]sqlgen.Param{
		{Name: "total", Value: 1},
		{Name: "id", Lazy: func() (interface{}, error) { return nil, boom }},
	})
	assert.ErrorIs(t, err, boom)

	args, err = sqlgen.Compile("SELECT 1", &dialect.SQLite{}).Bind(nil)
	require.NoError(t, err)
	assert.Nil(t, args)
}

func TestParams(t *testing.T) {
	p := sqlgen.Param{Name: "b", Value: 2}
	params, ok := sqlgen.Params(sql.Named("a", 1), p, &p)
	require.True(t, ok)
	assert.Equal(t, []sqlgen.Param{{Name: "a", Value: 1}, p, p}, params)

	_, ok = sqlgen.Params(sql.Named("a", 1), 5)
	assert.False(t, ok)
}
