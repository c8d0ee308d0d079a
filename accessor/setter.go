package accessor

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jinzhu/now"

	"github.com/malweka/GoliathData-sub001/utils"
)

// Setter writes v into dst, an addressable value, coercing between
// compatible kinds
type Setter func(dst reflect.Value, v interface{}) error

var (
	setters     sync.Map
	timeType    = reflect.TypeOf(time.Time{})
	scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
)

// Assign writes v into dst using the setter compiled for dst's type
func Assign(dst reflect.Value, v interface{}) error {
	return SetterFor(dst.Type())(dst, v)
}

// SetterFor returns the coercing setter of t, compiling it on first use
func SetterFor(t reflect.Type) Setter {
	if s, ok := setters.Load(t); ok {
		return s.(Setter)
	}
	s, _ := setters.LoadOrStore(t, newSetter(t))
	return s.(Setter)
}

func newSetter(t reflect.Type) Setter {
	var set Setter

	fallback := func(dst reflect.Value, v interface{}) error {
		if v == nil {
			dst.Set(reflect.Zero(t))
			return nil
		}

		reflectV := reflect.ValueOf(v)
		if reflectV.Type().AssignableTo(t) {
			dst.Set(reflectV)
			return nil
		} else if reflectV.Type().ConvertibleTo(t) && convertible(reflectV.Kind(), t.Kind()) {
			dst.Set(reflectV.Convert(t))
			return nil
		}

		if reflectV.Kind() == reflect.Ptr {
			if reflectV.IsNil() {
				dst.Set(reflect.Zero(t))
				return nil
			}
			return set(dst, reflectV.Elem().Interface())
		} else if valuer, ok := v.(driver.Valuer); ok {
			dv, err := valuer.Value()
			if err != nil {
				return err
			}
			return set(dst, dv)
		}
		return fmt.Errorf("cannot convert %T to %v", v, t)
	}

	switch {
	case reflect.PointerTo(t).Implements(scannerType) && t.Kind() != reflect.Ptr:
		set = func(dst reflect.Value, v interface{}) error {
			if v != nil && reflect.TypeOf(v).AssignableTo(t) {
				dst.Set(reflect.ValueOf(v))
				return nil
			}
			if valuer, ok := v.(driver.Valuer); ok {
				v, _ = valuer.Value()
			}
			return dst.Addr().Interface().(sql.Scanner).Scan(v)
		}
	case t == timeType:
		set = func(dst reflect.Value, v interface{}) error {
			switch data := v.(type) {
			case time.Time:
				dst.Set(reflect.ValueOf(data))
			case []byte:
				return set(dst, string(data))
			case string:
				if data == "" {
					dst.Set(reflect.ValueOf(time.Time{}))
					return nil
				}
				tm, err := now.Parse(data)
				if err != nil {
					return fmt.Errorf("failed to parse %q as time: %w", data, err)
				}
				dst.Set(reflect.ValueOf(tm))
			case int64:
				dst.Set(reflect.ValueOf(time.Unix(data, 0)))
			default:
				return fallback(dst, v)
			}
			return nil
		}
	}
	if set != nil {
		return set
	}

	switch t.Kind() {
	case reflect.Ptr:
		elemSet := SetterFor(t.Elem())
		set = func(dst reflect.Value, v interface{}) error {
			if v == nil {
				dst.Set(reflect.Zero(t))
				return nil
			}
			reflectV := reflect.ValueOf(v)
			if reflectV.Type().AssignableTo(t) {
				dst.Set(reflectV)
				return nil
			}
			if reflectV.Kind() == reflect.Ptr && reflectV.IsNil() {
				dst.Set(reflect.Zero(t))
				return nil
			}
			elem := reflect.New(t.Elem())
			if err := elemSet(elem.Elem(), v); err != nil {
				return err
			}
			dst.Set(elem)
			return nil
		}
	case reflect.Bool:
		set = func(dst reflect.Value, v interface{}) error {
			switch data := v.(type) {
			case bool:
				dst.SetBool(data)
			case int64:
				dst.SetBool(data > 0)
			case []byte:
				return set(dst, string(data))
			case string:
				b, err := strconv.ParseBool(strings.TrimSpace(data))
				if err != nil {
					return err
				}
				dst.SetBool(b)
			default:
				if i, ok := asInt64(v); ok {
					dst.SetBool(i > 0)
					return nil
				}
				return fallback(dst, v)
			}
			return nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		set = func(dst reflect.Value, v interface{}) error {
			switch data := v.(type) {
			case []byte:
				return set(dst, string(data))
			case string:
				i, err := strconv.ParseInt(strings.TrimSpace(data), 0, 64)
				if err != nil {
					return err
				}
				dst.SetInt(i)
			case time.Time:
				dst.SetInt(data.Unix())
			case bool:
				if data {
					dst.SetInt(1)
				} else {
					dst.SetInt(0)
				}
			default:
				if i, ok := asInt64(v); ok {
					dst.SetInt(i)
					return nil
				}
				return fallback(dst, v)
			}
			return nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		set = func(dst reflect.Value, v interface{}) error {
			switch data := v.(type) {
			case []byte:
				return set(dst, string(data))
			case string:
				i, err := strconv.ParseUint(strings.TrimSpace(data), 0, 64)
				if err != nil {
					return err
				}
				dst.SetUint(i)
			case time.Time:
				dst.SetUint(uint64(data.Unix()))
			default:
				if i, ok := asInt64(v); ok {
					dst.SetUint(uint64(i))
					return nil
				}
				return fallback(dst, v)
			}
			return nil
		}
	case reflect.Float32, reflect.Float64:
		set = func(dst reflect.Value, v interface{}) error {
			switch data := v.(type) {
			case float64:
				dst.SetFloat(data)
			case float32:
				dst.SetFloat(float64(data))
			case []byte:
				return set(dst, string(data))
			case string:
				f, err := strconv.ParseFloat(strings.TrimSpace(data), 64)
				if err != nil {
					return err
				}
				dst.SetFloat(f)
			default:
				if i, ok := asInt64(v); ok {
					dst.SetFloat(float64(i))
					return nil
				}
				return fallback(dst, v)
			}
			return nil
		}
	case reflect.String:
		set = func(dst reflect.Value, v interface{}) error {
			switch data := v.(type) {
			case string:
				dst.SetString(data)
			case []byte:
				dst.SetString(string(data))
			case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, bool:
				dst.SetString(utils.ToString(data))
			case float64:
				dst.SetString(strconv.FormatFloat(data, 'f', -1, 64))
			case float32:
				dst.SetString(strconv.FormatFloat(float64(data), 'f', -1, 32))
			case time.Time:
				dst.SetString(data.Format(time.RFC3339Nano))
			case fmt.Stringer:
				dst.SetString(data.String())
			default:
				return fallback(dst, v)
			}
			return nil
		}
	default:
		set = fallback
	}
	return set
}

// asInt64 widens any integer or float kind
func asInt64(v interface{}) (int64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return int64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return int64(rv.Float()), true
	}
	return 0, false
}

// convertible rejects reflect conversions that change meaning, such as int to string
func convertible(from, to reflect.Kind) bool {
	if to == reflect.String {
		return from == reflect.String
	}
	return true
}
