package utils

import (
	"fmt"
	"path/filepath"
	"reflect"
	"runtime"
	"strconv"
	"strings"
)

var goliathSourceDir string

func init() {
	_, file, _, _ := runtime.Caller(0)
	// compatible solution to get the module source directory with various operating systems
	goliathSourceDir = sourceDir(file)
}

func sourceDir(file string) string {
	dir := filepath.Dir(file)
	dir = filepath.Dir(dir)
	return filepath.ToSlash(dir) + "/"
}

// FileWithLineNum return the file name and line number of the first caller outside of this module
func FileWithLineNum() string {
	pc := CallerFrame().PC
	if pc == 0 {
		return ""
	}
	frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	return frame.File + ":" + strconv.FormatInt(int64(frame.Line), 10)
}

// CallerFrame retrieves the first relevant stack frame outside of the module's internal code
func CallerFrame() runtime.Frame {
	pcs := [13]uintptr{}
	// the third caller usually from internal code, so skip the first two
	length := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:length])
	for i := 0; i < length; i++ {
		frame, more := frames.Next()
		if (!strings.HasPrefix(frame.File, goliathSourceDir) ||
			strings.HasSuffix(frame.File, "_test.go")) && !strings.HasSuffix(frame.File, ".gen.go") {
			return frame
		}
		if !more {
			break
		}
	}
	return runtime.Frame{}
}

// ParseActivation parses an activation flag. Empty means active, anything
// strconv.ParseBool rejects means inactive.
func ParseActivation(val string) bool {
	if strings.TrimSpace(val) == "" {
		return true
	}
	b, err := strconv.ParseBool(strings.TrimSpace(val))
	if err != nil {
		return false
	}
	return b
}

// ToString formats integer, bool and string values, "" for anything else
func ToString(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case int:
		return strconv.FormatInt(int64(v), 10)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

// IsZeroOrUnsaved reports whether value equals its zero value or the string
// form of unsaved.
func IsZeroOrUnsaved(value interface{}, unsaved string) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return true
		}
		rv = rv.Elem()
	}
	if unsaved != "" {
		s := ToString(rv.Interface())
		if s == "" {
			s = fmt.Sprint(rv.Interface())
		}
		if s == unsaved {
			return true
		}
	}
	return rv.IsZero()
}
