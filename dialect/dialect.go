// Package dialect holds the per-backend SQL strategies: placeholder
// formatting, identifier quoting, paging and key retrieval.
package dialect

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// ErrUnsupportedDialect no dialect registered under the requested name
var ErrUnsupportedDialect = errors.New("unsupported dialect")

// Dialect SQL strategy for one backend
type Dialect interface {
	// Name canonical dialect name
	Name() string
	// DriverName database/sql driver name
	DriverName() string
	// BindVar placeholder for the 1-based parameter position
	BindVar(position int) string
	// Quote escapes an identifier, quoting every dotted part
	Quote(identifier string) string
	// Paging appends limit/offset to a SELECT; zero values leave it untouched
	Paging(sql string, limit, offset int) string
	// Count wraps a SELECT into a row count query
	Count(sql string) string
	// Returning clause fetching column after insert, empty when unsupported
	Returning(column string) string
	// SupportsLastInsertID reports whether sql.Result.LastInsertId works
	SupportsLastInsertID() bool
	// NextSequenceSQL query returning the next value of a sequence, empty when unsupported
	NextSequenceSQL(sequence string) string
	// LastIdentitySQL query returning the identity generated by the last insert
	LastIdentitySQL(table, column string) string
	// NumericPlaceholder matches positional placeholders when rendering traces, nil for "?"
	NumericPlaceholder() *regexp.Regexp
	// Translate classifies driver errors
	Translate(err error) error
}

var (
	mu       sync.RWMutex
	dialects = map[string]func() Dialect{}
)

// Register makes a dialect available under name and its aliases
func Register(factory func() Dialect, names ...string) {
	mu.Lock()
	defer mu.Unlock()
	for _, name := range names {
		dialects[strings.ToLower(name)] = factory
	}
}

// Get returns the dialect registered under name
func Get(name string) (Dialect, error) {
	mu.RLock()
	defer mu.RUnlock()
	if factory, ok := dialects[strings.ToLower(strings.TrimSpace(name))]; ok {
		return factory(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedDialect, name)
}

// Names registered dialect names, sorted
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	Register(func() Dialect { return &Postgres{} }, "postgres", "postgresql", "pgx")
	Register(func() Dialect { return &SQLite{} }, "sqlite", "sqlite3")
	Register(func() Dialect { return &MySQL{} }, "mysql")
}

func quoteParts(identifier string, quote func(string) string) string {
	parts := strings.Split(identifier, ".")
	for i, part := range parts {
		if part == "*" {
			continue
		}
		parts[i] = quote(part)
	}
	return strings.Join(parts, ".")
}

func countSQL(sql string) string {
	return "SELECT COUNT(*) FROM (" + sql + ") count_query"
}

var numberedPlaceholder = regexp.MustCompile(`\$(\d+)\$?`)
