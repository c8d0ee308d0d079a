package dialect

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	// registers the "sqlite" database/sql driver
	_ "modernc.org/sqlite"

	"github.com/malweka/GoliathData-sub001/errtranslator"
)

// SQLite strategy, executed through modernc.org/sqlite
type SQLite struct{}

func (*SQLite) Name() string       { return "sqlite" }
func (*SQLite) DriverName() string { return "sqlite" }

func (*SQLite) BindVar(position int) string {
	return "?" + strconv.Itoa(position)
}

func (*SQLite) Quote(identifier string) string {
	return quoteParts(identifier, func(s string) string {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	})
}

func (*SQLite) Paging(sql string, limit, offset int) string {
	switch {
	case limit > 0:
		sql += fmt.Sprintf(" LIMIT %d", limit)
	case offset > 0:
		sql += " LIMIT -1"
	}
	if offset > 0 {
		sql += fmt.Sprintf(" OFFSET %d", offset)
	}
	return sql
}

func (*SQLite) Count(sql string) string {
	return countSQL(sql)
}

func (s *SQLite) Returning(column string) string {
	return " RETURNING " + s.Quote(column)
}

func (*SQLite) SupportsLastInsertID() bool {
	return true
}

func (*SQLite) NextSequenceSQL(string) string {
	return ""
}

func (*SQLite) LastIdentitySQL(string, string) string {
	return "SELECT last_insert_rowid()"
}

var sqlitePlaceholder = regexp.MustCompile(`\?(\d+)`)

func (*SQLite) NumericPlaceholder() *regexp.Regexp {
	return sqlitePlaceholder
}

func (*SQLite) Translate(err error) error {
	return (&errtranslator.SqliteErrTranslator{}).Translate(err)
}
