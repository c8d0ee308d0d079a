package errtranslator

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

var mysqlErrCodes = map[uint16]error{
	1062: ErrDuplicatedKey,
	1451: ErrForeignKeyViolated,
	1452: ErrForeignKeyViolated,
}

type MysqlErrTranslator struct{}

func (m *MysqlErrTranslator) Translate(err error) error {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		if kind, ok := mysqlErrCodes[mysqlErr.Number]; ok {
			return translated(kind, mysqlErr.Number, mysqlErr.Message, err)
		}
	}
	return err
}
