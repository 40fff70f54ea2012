package convert

import (
	"fmt"
	"reflect"
	"strconv"
	"sync"
)

// Char is the single-character target shape. rune is an alias of int32 and
// cannot be told apart from it through reflection, so character-valued
// fields and parameters are declared as Char.
type Char rune

var charType = reflect.TypeOf(Char(0))

// ── Converter ─────────────────────────────────────────────────────────────────

// Converter turns string literals into typed values.
//
// Supported target shapes:
//   - string (and named string types)
//   - int, int8, int16, int32, int64 (and named types of those kinds)
//   - float32, float64
//   - bool
//   - Char
//   - enumerations registered with RegisterEnum
//   - a pointer to any of the above (boxed / nullable)
type Converter struct {
	mu    sync.RWMutex
	enums map[reflect.Type][]string
}

// New creates a Converter with no enumerations registered.
func New() *Converter {
	return &Converter{enums: make(map[reflect.Type][]string)}
}

// RegisterEnum declares t as an enumeration whose members, in ordinal order,
// are named by members. Member i converts to the value t(i).
//
//	type Level int
//	const (Low Level = iota; High)
//	c.RegisterEnum(reflect.TypeOf(Low), "Low", "High")
func (c *Converter) RegisterEnum(t reflect.Type, members ...string) {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
	default:
		panic(fmt.Sprintf("convert: enum %s must have a signed integer kind, got %s", t, t.Kind()))
	}
	if len(members) == 0 {
		panic(fmt.Sprintf("convert: enum %s declared without members", t))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enums[t] = append([]string(nil), members...)
}

// Enum is the generic form of RegisterEnum.
//
//	convert.Enum[Level](c, "Low", "High")
func Enum[T ~int | ~int8 | ~int16 | ~int32 | ~int64](c *Converter, members ...string) {
	c.RegisterEnum(reflect.TypeOf(*new(T)), members...)
}

// Members returns the member names of a registered enumeration.
func (c *Converter) Members(t reflect.Type) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.enums[t]
	return m, ok
}

// Supports reports whether t is a convertible target shape.
func (c *Converter) Supports(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
		if t.Kind() == reflect.Pointer {
			return false
		}
	}
	if _, ok := c.Members(t); ok || t == charType {
		return true
	}
	switch t.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// Convert converts value into t. A nil value yields the shape's zero value:
// "" for text, 0 for numbers, false, Char(0), the first enum member, and nil
// for pointer shapes.
func (c *Converter) Convert(value *string, t reflect.Type) (reflect.Value, error) {
	if t.Kind() == reflect.Pointer {
		if t.Elem().Kind() == reflect.Pointer || !c.Supports(t.Elem()) {
			return reflect.Value{}, &UnsupportedConversionError{Shape: t.String()}
		}
		if value == nil {
			return reflect.Zero(t), nil
		}
		inner, err := c.Convert(value, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(t.Elem())
		ptr.Elem().Set(inner)
		return ptr, nil
	}

	out := reflect.New(t).Elem()

	if members, ok := c.Members(t); ok {
		if value == nil {
			return out, nil
		}
		for i, m := range members {
			if m == *value {
				out.SetInt(int64(i))
				return out, nil
			}
		}
		return reflect.Value{}, &ConversionError{Literal: *value, Shape: t.String(), Err: ErrUnknownMember}
	}

	if t == charType {
		if value == nil {
			return out, nil
		}
		r := []rune(*value)
		if len(r) != 1 {
			return reflect.Value{}, &ConversionError{Literal: *value, Shape: t.String(), Err: ErrCharLength}
		}
		out.SetInt(int64(r[0]))
		return out, nil
	}

	switch t.Kind() {
	case reflect.String:
		if value != nil {
			out.SetString(*value)
		}
	case reflect.Bool:
		if value == nil {
			return out, nil
		}
		b, err := strconv.ParseBool(*value)
		if err != nil {
			return reflect.Value{}, &ConversionError{Literal: *value, Shape: t.String(), Err: err}
		}
		out.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if value == nil {
			return out, nil
		}
		i, err := strconv.ParseInt(*value, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, &ConversionError{Literal: *value, Shape: t.String(), Err: err}
		}
		out.SetInt(i)
	case reflect.Float32, reflect.Float64:
		if value == nil {
			return out, nil
		}
		f, err := strconv.ParseFloat(*value, t.Bits())
		if err != nil {
			return reflect.Value{}, &ConversionError{Literal: *value, Shape: t.String(), Err: err}
		}
		out.SetFloat(f)
	default:
		return reflect.Value{}, &UnsupportedConversionError{Shape: t.String()}
	}
	return out, nil
}

// String converts a non-nil literal. It is shorthand for Convert(&s, t).
func (c *Converter) String(s string, t reflect.Type) (reflect.Value, error) {
	return c.Convert(&s, t)
}

// ── Generics helper ───────────────────────────────────────────────────────────

// To converts value into T using c.
//
//	port, err := convert.To[int](c, ptr("8080"))
func To[T any](c *Converter, value *string) (T, error) {
	var zero T
	v, err := c.Convert(value, reflect.TypeOf(&zero).Elem())
	if err != nil {
		return zero, err
	}
	return v.Interface().(T), nil
}

// ── Formatting ────────────────────────────────────────────────────────────────

// Format renders v as the literal Convert would turn back into v. Nil and
// nil pointers yield nil; enum members render by name.
func (c *Converter) Format(v any) (*string, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}
	t := rv.Type()
	if !c.Supports(t) {
		return nil, &UnsupportedConversionError{Shape: t.String()}
	}

	var s string
	if members, ok := c.Members(t); ok {
		i := rv.Int()
		if i < 0 || int(i) >= len(members) {
			return nil, &ConversionError{Literal: strconv.FormatInt(i, 10), Shape: t.String(), Err: ErrUnknownMember}
		}
		s = members[i]
		return &s, nil
	}
	if t == charType {
		s = string(rune(rv.Int()))
		return &s, nil
	}
	switch t.Kind() {
	case reflect.String:
		s = rv.String()
	case reflect.Bool:
		s = strconv.FormatBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		s = strconv.FormatInt(rv.Int(), 10)
	case reflect.Float32, reflect.Float64:
		s = strconv.FormatFloat(rv.Float(), 'g', -1, t.Bits())
	}
	return &s, nil
}
