package hydrate

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jinzhu/now"

	"github.com/malweka/GoliathData-sub001/mapping"
	"github.com/malweka/GoliathData-sub001/utils"
)

var (
	// ErrNotEnum the complex type is not an enum
	ErrNotEnum = errors.New("not an enum")
	// ErrUnknownEnumMember the value names no member of the enum
	ErrUnknownEnumMember = errors.New("unknown enum member")
)

// ConversionError a column value could not be coerced to its property type
type ConversionError struct {
	Column string
	From   reflect.Type
	To     reflect.Type
	Err    error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("cannot convert column %s from %v to %v: %v", e.Column, e.From, e.To, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// ConvertFunc converts a column value into a value assignable to the type
// it is registered for
type ConvertFunc func(v interface{}) (interface{}, error)

// Converters type converters keyed by target type. Safe for concurrent use.
type Converters struct {
	mu     sync.RWMutex
	byType map[reflect.Type]ConvertFunc
}

var timeType = reflect.TypeOf(time.Time{})

// NewConverters returns converters holding the text to time.Time conversion
func NewConverters() *Converters {
	c := &Converters{byType: map[reflect.Type]ConvertFunc{}}
	c.Register(timeType, parseTime)
	return c
}

func parseTime(v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case []byte:
		return parseTime(string(t))
	case string:
		if strings.TrimSpace(t) == "" {
			return time.Time{}, nil
		}
		return now.Parse(t)
	case int64:
		return time.Unix(t, 0), nil
	}
	return nil, fmt.Errorf("unsupported time value %T", v)
}

// Register sets the converter for target, replacing any previous one
func (c *Converters) Register(target reflect.Type, fn ConvertFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.byType == nil {
		c.byType = map[reflect.Type]ConvertFunc{}
	}
	c.byType[target] = fn
}

// RegisterEnum converts member names and numeric values of enum into
// target, an integer or string type
func (c *Converters) RegisterEnum(target reflect.Type, enum *mapping.ComplexType) error {
	if !enum.IsEnum {
		return fmt.Errorf("%w: %s", ErrNotEnum, enum.FullName())
	}
	c.Register(target, func(v interface{}) (interface{}, error) {
		return enumValue(enum, v, target)
	})
	return nil
}

// Lookup returns the converter registered for target
func (c *Converters) Lookup(target reflect.Type) (ConvertFunc, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn, ok := c.byType[target]
	return fn, ok
}

// enumValue maps v, a member name or numeric value, onto target: integer
// targets receive the member value, string targets the member name
func enumValue(enum *mapping.ComplexType, v interface{}, target reflect.Type) (interface{}, error) {
	var member *mapping.Property
	switch x := v.(type) {
	case []byte:
		return enumValue(enum, string(x), target)
	case string:
		name := strings.TrimSpace(x)
		for _, p := range enum.Properties {
			if strings.EqualFold(p.PropertyName, name) {
				member = p
				break
			}
		}
		if member == nil {
			if _, err := strconv.ParseInt(name, 10, 64); err == nil {
				member = memberByValue(enum, name)
			}
		}
	default:
		s := utils.ToString(v)
		if s == "" {
			s = fmt.Sprint(v)
		}
		member = memberByValue(enum, s)
	}
	if member == nil {
		return nil, fmt.Errorf("%w: %v of %s", ErrUnknownEnumMember, v, enum.FullName())
	}

	out := reflect.New(target).Elem()
	switch target.Kind() {
	case reflect.String:
		out.SetString(member.PropertyName)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(member.DefaultValue, 10, 64)
		if err != nil {
			return nil, err
		}
		out.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(member.DefaultValue, 10, 64)
		if err != nil {
			return nil, err
		}
		out.SetUint(n)
	default:
		return nil, fmt.Errorf("enum %s cannot target %v", enum.FullName(), target)
	}
	return out.Interface(), nil
}

func memberByValue(enum *mapping.ComplexType, value string) *mapping.Property {
	for _, p := range enum.Properties {
		if p.DefaultValue == value {
			return p
		}
	}
	return nil
}
