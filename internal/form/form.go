// Package form reads and writes struct fields by their `form:"name"` tag.
//
// Entity forms are plain structs; the tag is the camelCase field name used by
// dialogs, validation errors and the wire field map.
package form

import (
	"encoding"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// ErrUnknownField is returned when no struct field carries the requested tag.
var ErrUnknownField = errors.New("unknown form field")

// Fields returns the form tag names of F in declaration order.
func Fields[F any]() []string {
	var zero F
	t := reflect.TypeOf(zero)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	var out []string
	for i := 0; i < t.NumField(); i++ {
		if name := t.Field(i).Tag.Get("form"); name != "" && name != "-" {
			out = append(out, name)
		}
	}
	return out
}

// Get returns the value of the field tagged name.
func Get(src any, name string) (any, bool) {
	v, ok := lookup(reflect.ValueOf(src), name)
	if !ok {
		return nil, false
	}
	return v.Interface(), true
}

// String returns the field tagged name formatted as text, or "".
func String(src any, name string) string {
	v, ok := Get(src, name)
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case encoding.TextMarshaler:
		b, err := t.MarshalText()
		if err != nil {
			return ""
		}
		return string(b)
	}
	return fmt.Sprint(v)
}

// Set assigns value to the field tagged name on the struct dst points to.
// Strings are parsed into bool and numeric fields, or handed to the field's
// UnmarshalText when it implements encoding.TextUnmarshaler; other values
// must be assignable or convertible to the field type.
func Set(dst any, name string, value any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("form: set %q: destination must be a non-nil pointer", name)
	}
	field, ok := lookup(rv, name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	if !field.CanSet() {
		return fmt.Errorf("form: set %q: field is not settable", name)
	}

	if value == nil {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}

	val := reflect.ValueOf(value)
	switch {
	case val.Type().AssignableTo(field.Type()):
		field.Set(val)
		return nil
	case val.Kind() == reflect.String:
		if u, ok := field.Addr().Interface().(encoding.TextUnmarshaler); ok {
			if err := u.UnmarshalText([]byte(val.String())); err != nil {
				return fmt.Errorf("form: set %q: %w", name, err)
			}
			return nil
		}
		return setFromString(field, val.String())
	case field.Kind() == reflect.String:
		field.SetString(fmt.Sprint(value))
		return nil
	case val.Type().ConvertibleTo(field.Type()):
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("form: set %q: cannot use %T as %s", name, value, field.Type())
}

func setFromString(field reflect.Value, s string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(s)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return fmt.Errorf("form: invalid boolean %q", s)
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("form: invalid integer %q", s)
		}
		field.SetInt(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return fmt.Errorf("form: invalid number %q", s)
		}
		field.SetFloat(f)
	default:
		return fmt.Errorf("form: cannot parse %q into %s", s, field.Type())
	}
	return nil
}

func lookup(v reflect.Value, name string) (reflect.Value, bool) {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, false
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Tag.Get("form") == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}
