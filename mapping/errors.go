package mapping

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrReferenceEntityNotFound relation target or base entity is not mapped
	ErrReferenceEntityNotFound = errors.New("reference entity not found")
	// ErrPropertyNotFound property is not mapped on the entity
	ErrPropertyNotFound = errors.New("property not found")
	// ErrDuplicateEntity entity already registered under the same qualified name
	ErrDuplicateEntity = errors.New("duplicate entity")
	// ErrCyclicReference entity graph contains a reference cycle
	ErrCyclicReference = errors.New("cyclic reference")
	// ErrMissingPrimaryKey entity has no primary key
	ErrMissingPrimaryKey = errors.New("primary key required")
	// ErrInvalidValue attribute value cannot be converted
	ErrInvalidValue = errors.New("invalid value")
	// ErrUnclosedElement document ended before an element was closed
	ErrUnclosedElement = errors.New("missing closing element")
	// ErrUnsupportedFormat document extension has no codec
	ErrUnsupportedFormat = errors.New("unsupported mapping format")
)

// MappingError is a structural configuration failure. It is always fatal.
type MappingError struct {
	Entity   string
	Property string
	Names    []string
	Err      error
}

func (e *MappingError) Error() string {
	var b strings.Builder
	b.WriteString("mapping")
	if e.Entity != "" {
		b.WriteString(" ")
		b.WriteString(e.Entity)
		if e.Property != "" {
			b.WriteString(".")
			b.WriteString(e.Property)
		}
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	if len(e.Names) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(e.Names, ", "))
		b.WriteString("]")
	}
	return b.String()
}

func (e *MappingError) Unwrap() error {
	return e.Err
}

func newMappingError(entity, property string, err error) *MappingError {
	return &MappingError{Entity: entity, Property: property, Err: err}
}

// MappingSerializationError reports a document value that could not be read
type MappingSerializationError struct {
	Element   string
	Attribute string
	Value     string
	Err       error
}

func (e *MappingSerializationError) Error() string {
	switch {
	case e.Attribute != "":
		return fmt.Sprintf("mapping document: element <%s> attribute %q value %q: %v", e.Element, e.Attribute, e.Value, e.Err)
	case e.Element != "":
		return fmt.Sprintf("mapping document: element <%s>: %v", e.Element, e.Err)
	default:
		return fmt.Sprintf("mapping document: %v", e.Err)
	}
}

func (e *MappingSerializationError) Unwrap() error {
	return e.Err
}
