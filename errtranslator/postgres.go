package errtranslator

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

var postgresErrCodes = map[string]error{
	"23505": ErrDuplicatedKey,
	"23503": ErrForeignKeyViolated,
}

// PostgresErrTranslator understands both pgx and lib/pq errors
type PostgresErrTranslator struct{}

func (p *PostgresErrTranslator) Translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if kind, ok := postgresErrCodes[pgErr.Code]; ok {
			return translated(kind, pgErr.Code, pgErr.Message, err)
		}
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if kind, ok := postgresErrCodes[string(pqErr.Code)]; ok {
			return translated(kind, string(pqErr.Code), pqErr.Message, err)
		}
	}
	return err
}
