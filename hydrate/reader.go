package hydrate

import (
	"database/sql"
	"errors"
)

// RowReader a forward-only result cursor
type RowReader interface {
	Columns() ([]string, error)
	Next() bool
	// Values the current row, one value per column
	Values() ([]interface{}, error)
	Err() error
	Close() error
}

type rowsReader struct {
	rows *sql.Rows
	cols []string
}

// NewRowsReader reads a *sql.Rows
func NewRowsReader(rows *sql.Rows) RowReader {
	return &rowsReader{rows: rows}
}

func (r *rowsReader) Columns() ([]string, error) {
	if r.cols != nil {
		return r.cols, nil
	}
	cols, err := r.rows.Columns()
	if err != nil {
		return nil, err
	}
	r.cols = cols
	return cols, nil
}

func (r *rowsReader) Next() bool {
	return r.rows.Next()
}

func (r *rowsReader) Values() ([]interface{}, error) {
	cols, err := r.Columns()
	if err != nil {
		return nil, err
	}
	values := make([]interface{}, len(cols))
	dest := make([]interface{}, len(cols))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := r.rows.Scan(dest...); err != nil {
		return nil, err
	}
	return values, nil
}

func (r *rowsReader) Err() error {
	return r.rows.Err()
}

func (r *rowsReader) Close() error {
	return r.rows.Close()
}

// ErrNoCurrentRow Values called before Next or after the last row
var ErrNoCurrentRow = errors.New("no current row")

// SliceReader a RowReader over rows already in memory
type SliceReader struct {
	cols []string
	rows [][]interface{}
	pos  int
}

// NewSliceReader returns a reader over rows, each holding one value per column
func NewSliceReader(cols []string, rows ...[]interface{}) *SliceReader {
	return &SliceReader{cols: cols, rows: rows}
}

func (r *SliceReader) Columns() ([]string, error) {
	return r.cols, nil
}

func (r *SliceReader) Next() bool {
	if r.pos > len(r.rows) {
		return false
	}
	r.pos++
	return r.pos <= len(r.rows)
}

func (r *SliceReader) Values() ([]interface{}, error) {
	if r.pos == 0 || r.pos > len(r.rows) {
		return nil, ErrNoCurrentRow
	}
	return r.rows[r.pos-1], nil
}

func (r *SliceReader) Err() error   { return nil }
func (r *SliceReader) Close() error { return nil }
