package sqlgen

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/malweka/GoliathData-sub001/dialect"
)

// ErrMissingParameter a statement marker has no matching parameter
var ErrMissingParameter = errors.New("missing parameter")

// Compiled a statement rewritten to positional placeholders. Names holds the
// parameter bound to each placeholder, in order; a repeated marker repeats its
// name.
type Compiled struct {
	SQL   string
	Names []string
}

// Compile rewrites @name and :name markers into the dialect's placeholders.
// String literals, quoted identifiers, comments, @@variables and :: casts are
// copied unchanged.
func Compile(text string, d dialect.Dialect) Compiled {
	var (
		b     strings.Builder
		names []string
		n     = len(text)
	)
	b.Grow(n + 8)

	for i := 0; i < n; {
		c := text[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			j := skipQuoted(text, i, c)
			b.WriteString(text[i:j])
			i = j
		case c == '-' && i+1 < n && text[i+1] == '-':
			j := strings.IndexByte(text[i:], '\n')
			if j < 0 {
				j = n
			} else {
				j += i
			}
			b.WriteString(text[i:j])
			i = j
		case c == '/' && i+1 < n && text[i+1] == '*':
			j := strings.Index(text[i+2:], "*/")
			if j < 0 {
				j = n
			} else {
				j += i + 4
			}
			b.WriteString(text[i:j])
			i = j
		case c == ':' && i+1 < n && text[i+1] == ':':
			b.WriteString("::")
			i += 2
		case c == '@' && i+1 < n && text[i+1] == '@':
			j := i + 2
			for j < n && isIdentPart(text[j]) {
				j++
			}
			b.WriteString(text[i:j])
			i = j
		case (c == '@' || c == ':') && i+1 < n && isIdentStart(text[i+1]) && (i == 0 || !isIdentPart(text[i-1])):
			j := i + 1
			for j < n && isIdentPart(text[j]) {
				j++
			}
			names = append(names, text[i+1:j])
			b.WriteString(d.BindVar(len(names)))
			i = j
		default:
			b.WriteByte(c)
			i++
		}
	}
	return Compiled{SQL: b.String(), Names: names}
}

func skipQuoted(text string, i int, quote byte) int {
	for j := i + 1; j < len(text); j++ {
		if text[j] != quote {
			continue
		}
		if j+1 < len(text) && text[j+1] == quote {
			j++
			continue
		}
		return j + 1
	}
	return len(text)
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// Bind resolves the values of the compiled placeholders, matching names
// exactly first and case-insensitively second
func (c Compiled) Bind(params []Param) ([]interface{}, error) {
	if len(c.Names) == 0 {
		return nil, nil
	}
	byName := make(map[string]Param, len(params))
	byLower := make(map[string]Param, len(params))
	for _, p := range params {
		byName[p.Name] = p
		if _, ok := byLower[strings.ToLower(p.Name)]; !ok {
			byLower[strings.ToLower(p.Name)] = p
		}
	}

	args := make([]interface{}, len(c.Names))
	for i, name := range c.Names {
		p, ok := byName[name]
		if !ok {
			if p, ok = byLower[strings.ToLower(name)]; !ok {
				return nil, fmt.Errorf("%w: %s", ErrMissingParameter, name)
			}
		}
		v, err := p.Resolve()
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", name, err)
		}
		args[i] = v
	}
	return args, nil
}

// Params converts sql.NamedArg and Param values into parameters
func Params(args ...interface{}) ([]Param, bool) {
	params := make([]Param, 0, len(args))
	for _, arg := range args {
		switch a := arg.(type) {
		case Param:
			params = append(params, a)
		case *Param:
			params = append(params, *a)
		case sql.NamedArg:
			params = append(params, Param{Name: a.Name, Value: a.Value})
		default:
			return nil, false
		}
	}
	return params, true
}
