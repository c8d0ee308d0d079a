package dialect

import (
	"fmt"
	"regexp"
	"strings"

	// registers the "mysql" database/sql driver
	_ "github.com/go-sql-driver/mysql"

	"github.com/malweka/GoliathData-sub001/errtranslator"
)

// MySQL strategy
type MySQL struct{}

func (*MySQL) Name() string       { return "mysql" }
func (*MySQL) DriverName() string { return "mysql" }

func (*MySQL) BindVar(int) string {
	return "?"
}

func (*MySQL) Quote(identifier string) string {
	return quoteParts(identifier, func(s string) string {
		return "`" + strings.ReplaceAll(s, "`", "``") + "`"
	})
}

func (*MySQL) Paging(sql string, limit, offset int) string {
	switch {
	case limit > 0 && offset > 0:
		return sql + fmt.Sprintf(" LIMIT %d, %d", offset, limit)
	case limit > 0:
		return sql + fmt.Sprintf(" LIMIT %d", limit)
	case offset > 0:
		return sql + fmt.Sprintf(" LIMIT %d, 18446744073709551615", offset)
	}
	return sql
}

func (*MySQL) Count(sql string) string {
	return countSQL(sql)
}

func (*MySQL) Returning(string) string {
	return ""
}

func (*MySQL) SupportsLastInsertID() bool {
	return true
}

func (*MySQL) NextSequenceSQL(string) string {
	return ""
}

func (*MySQL) LastIdentitySQL(string, string) string {
	return "SELECT LAST_INSERT_ID()"
}

func (*MySQL) NumericPlaceholder() *regexp.Regexp {
	return nil
}

func (*MySQL) Translate(err error) error {
	return (&errtranslator.MysqlErrTranslator{}).Translate(err)
}
