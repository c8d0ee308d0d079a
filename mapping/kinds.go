package mapping

import (
	"strings"
	"unicode"
)

// RelationType relation kind
type RelationType string

const (
	ManyToOne  RelationType = "ManyToOne"
	OneToMany  RelationType = "OneToMany"
	ManyToMany RelationType = "ManyToMany"
)

// ParseRelationType parses a relation kind, case-insensitively
func ParseRelationType(s string) (RelationType, error) {
	for _, kind := range []RelationType{ManyToOne, OneToMany, ManyToMany} {
		if strings.EqualFold(s, string(kind)) {
			return kind, nil
		}
	}
	return "", ErrInvalidValue
}

// CollectionType collection kind of a relation, CollectionNone for single references
type CollectionType string

const (
	CollectionNone CollectionType = ""
	CollectionList CollectionType = "List"
	CollectionMap  CollectionType = "Map"
	CollectionSet  CollectionType = "Set"
)

func (c CollectionType) String() string {
	if c == CollectionNone {
		return "None"
	}
	return string(c)
}

// ParseCollectionType parses a collection kind; "None" and "" map to CollectionNone
func ParseCollectionType(s string) (CollectionType, error) {
	if s == "" || strings.EqualFold(s, "none") {
		return CollectionNone, nil
	}
	for _, kind := range []CollectionType{CollectionList, CollectionMap, CollectionSet} {
		if strings.EqualFold(s, string(kind)) {
			return kind, nil
		}
	}
	return CollectionNone, ErrInvalidValue
}

// ConstraintType column constraint
type ConstraintType string

const (
	ConstraintNone       ConstraintType = ""
	ConstraintUnique     ConstraintType = "Unique"
	ConstraintForeignKey ConstraintType = "ForeignKey"
	ConstraintPrimaryKey ConstraintType = "PrimaryKey"
)

func (c ConstraintType) String() string {
	if c == ConstraintNone {
		return "None"
	}
	return string(c)
}

// ParseConstraintType parses a constraint kind; "None" and "" map to ConstraintNone
func ParseConstraintType(s string) (ConstraintType, error) {
	if s == "" || strings.EqualFold(s, "none") {
		return ConstraintNone, nil
	}
	for _, kind := range []ConstraintType{ConstraintUnique, ConstraintForeignKey, ConstraintPrimaryKey} {
		if strings.EqualFold(s, string(kind)) {
			return kind, nil
		}
	}
	return ConstraintNone, ErrInvalidValue
}

// ValidQualifiedName reports whether s is a dotted type name, optionally
// prefixed by "*" or "[]" (e.g. "string", "time.Time", "[]byte", "*Sales.Customer").
func ValidQualifiedName(s string) bool {
	for {
		switch {
		case strings.HasPrefix(s, "*"):
			s = s[1:]
			continue
		case strings.HasPrefix(s, "[]"):
			s = s[2:]
			continue
		}
		break
	}
	if s == "" {
		return false
	}
	for _, part := range strings.Split(s, ".") {
		if part == "" {
			return false
		}
		for i, r := range part {
			switch {
			case r == '_', unicode.IsLetter(r):
			case unicode.IsDigit(r) && i > 0:
			default:
				return false
			}
		}
	}
	return true
}
