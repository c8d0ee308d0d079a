package dialect

import (
	"fmt"
	"regexp"
	"strconv"

	// registers the "pgx" database/sql driver
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"

	"github.com/malweka/GoliathData-sub001/errtranslator"
)

// Postgres strategy, executed through the pgx stdlib driver
type Postgres struct{}

func (*Postgres) Name() string       { return "postgres" }
func (*Postgres) DriverName() string { return "pgx" }

func (*Postgres) BindVar(position int) string {
	return "$" + strconv.Itoa(position)
}

func (*Postgres) Quote(identifier string) string {
	return quoteParts(identifier, pq.QuoteIdentifier)
}

func (*Postgres) Paging(sql string, limit, offset int) string {
	if limit > 0 {
		sql += fmt.Sprintf(" LIMIT %d", limit)
	}
	if offset > 0 {
		sql += fmt.Sprintf(" OFFSET %d", offset)
	}
	return sql
}

func (*Postgres) Count(sql string) string {
	return countSQL(sql)
}

func (p *Postgres) Returning(column string) string {
	return " RETURNING " + p.Quote(column)
}

func (*Postgres) SupportsLastInsertID() bool {
	return false
}

func (*Postgres) NextSequenceSQL(sequence string) string {
	return "SELECT nextval(" + pq.QuoteLiteral(sequence) + ")"
}

func (*Postgres) LastIdentitySQL(string, string) string {
	return "SELECT lastval()"
}

func (*Postgres) NumericPlaceholder() *regexp.Regexp {
	return numberedPlaceholder
}

func (*Postgres) Translate(err error) error {
	return (&errtranslator.PostgresErrTranslator{}).Translate(err)
}
