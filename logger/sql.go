package logger

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

const (
	tmFmtWithMS = "2006-01-02 15:04:05.999"
	tmFmtZero   = "0000-00-00 00:00:00"
	nullStr     = "NULL"
)

func isPrintable(s string) bool {
	for _, r := range s {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

// ExplainSQL renders sql with its vars inlined, for logging only. When
// numericPlaceholder is nil vars replace '?' markers in order, otherwise the
// regexp's first group is read as the 1-based index of the var.
func ExplainSQL(sql string, numericPlaceholder *regexp.Regexp, escaper string, vars ...interface{}) string {
	rendered := make([]string, len(vars))
	for idx, v := range vars {
		rendered[idx] = explainVar(v, escaper)
	}

	if numericPlaceholder == nil {
		var (
			buf    strings.Builder
			argIdx int
		)
		for _, r := range sql {
			if r == '?' && argIdx < len(rendered) {
				buf.WriteString(rendered[argIdx])
				argIdx++
				continue
			}
			buf.WriteRune(r)
		}
		return buf.String()
	}

	return numericPlaceholder.ReplaceAllStringFunc(sql, func(placeholder string) string {
		match := numericPlaceholder.FindStringSubmatch(placeholder)
		if len(match) < 2 {
			return placeholder
		}
		n, err := strconv.Atoi(match[1])
		if err != nil || n < 1 || n > len(rendered) {
			return placeholder
		}
		return rendered[n-1]
	})
}

func explainVar(v interface{}, escaper string) string {
	escape := func(s string) string {
		return escaper + strings.ReplaceAll(s, escaper, escaper+escaper) + escaper
	}

	switch v := v.(type) {
	case nil:
		return nullStr
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		if v.IsZero() {
			return escaper + tmFmtZero + escaper
		}
		return escaper + v.Format(tmFmtWithMS) + escaper
	case *time.Time:
		if v == nil {
			return nullStr
		}
		return explainVar(*v, escaper)
	case driver.Valuer:
		reflectValue := reflect.ValueOf(v)
		if reflectValue.Kind() == reflect.Ptr && reflectValue.IsNil() {
			return nullStr
		}
		value, err := v.Value()
		if err != nil {
			return escape(fmt.Sprint(v))
		}
		return explainVar(value, escaper)
	case fmt.Stringer:
		reflectValue := reflect.ValueOf(v)
		if reflectValue.Kind() == reflect.Ptr && reflectValue.IsNil() {
			return nullStr
		}
		return escape(v.String())
	case []byte:
		if s := string(v); isPrintable(s) {
			return escape(s)
		}
		return escape("<binary>")
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		return escape(v)
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Ptr {
			if rv.IsNil() {
				return nullStr
			}
			return explainVar(rv.Elem().Interface(), escaper)
		}
		return escape(fmt.Sprint(v))
	}
}
