package errtranslator

import (
	"errors"

	"modernc.org/sqlite"
)

// extended result codes
var sqliteErrCodes = map[int]error{
	2067: ErrDuplicatedKey, // SQLITE_CONSTRAINT_UNIQUE
	1555: ErrDuplicatedKey, // SQLITE_CONSTRAINT_PRIMARYKEY
	787:  ErrForeignKeyViolated,
}

type SqliteErrTranslator struct{}

func (s *SqliteErrTranslator) Translate(err error) error {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		if kind, ok := sqliteErrCodes[sqliteErr.Code()]; ok {
			return translated(kind, sqliteErr.Code(), sqliteErr.Error(), err)
		}
	}
	return err
}
