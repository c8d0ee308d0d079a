package logger_test

import (
	"regexp"
	"testing"

	"github.com/jinzhu/now"
	"github.com/stretchr/testify/assert"

	"github.com/malweka/GoliathData-sub001/logger"
)

func TestExplainSQL(t *testing.T) {
	type role string
	var (
		tt     = now.MustParse("2020-02-23 11:10:10")
		myrole = role("admin")
	)

	results := []struct {
		SQL           string
		NumericRegexp *regexp.Regexp
		Vars          []interface{}
		Result        string
	}{
		{
			SQL:    "INSERT INTO users (name, age, active, created_on, deleted_on, role) VALUES (?, ?, ?, ?, ?, ?)",
			Vars:   []interface{}{"jinzhu?", 1, true, tt, nil, myrole},
			Result: `INSERT INTO users (name, age, active, created_on, deleted_on, role) VALUES ("jinzhu?", 1, true, "2020-02-23 11:10:10", NULL, "admin")`,
		},
		{
			SQL:           "UPDATE users SET name = $2, age = $3 WHERE id = $1",
			NumericRegexp: regexp.MustCompile(`\$(\d+)`),
			Vars:          []interface{}{int64(7), "w@g.\"com", 3.5},
			Result:        `UPDATE users SET name = "w@g.""com", age = 3.5 WHERE id = 7`,
		},
		{
			SQL:           "DELETE FROM users WHERE id = @p1 AND created_on = @p2",
			NumericRegexp: regexp.MustCompile(`@p(\d+)`),
			Vars:          []interface{}{[]byte("12345"), &tt},
			Result:        `DELETE FROM users WHERE id = "12345" AND created_on = "2020-02-23 11:10:10"`,
		},
	}

	for idx, r := range results {
		assert.Equal(t, r.Result, logger.ExplainSQL(r.SQL, r.NumericRegexp, `"`, r.Vars...), "explain #%d", idx)
	}
}
