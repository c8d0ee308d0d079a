// Package errtranslator classifies driver errors into portable constraint
// violations while keeping the driver error reachable through errors.As.
package errtranslator

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicatedKey unique or primary key constraint violated
	ErrDuplicatedKey = errors.New("duplicated key not allowed")
	// ErrForeignKeyViolated foreign key constraint violated
	ErrForeignKeyViolated = errors.New("violates foreign key constraint")
)

type ErrTranslator interface {
	Translate(err error) error
}

// TranslatedError carries the classification next to the driver error
type TranslatedError struct {
	Kind    error
	Code    interface{}
	Message string
	Err     error
}

func (e *TranslatedError) Error() string {
	return fmt.Sprintf("%v, code: %v, message: %s", e.Kind, e.Code, e.Message)
}

func (e *TranslatedError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func translated(kind error, code interface{}, message string, err error) error {
	return &TranslatedError{Kind: kind, Code: code, Message: message, Err: err}
}
