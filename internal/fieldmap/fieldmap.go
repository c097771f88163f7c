// Package fieldmap translates between the snake_case field names used on the
// wire and the camelCase names used by forms.
//
// A Map holds the explicit pairs for one entity. Lookups that miss the table
// fall back to mechanical conversion, so a Map only needs entries where the
// two spellings are not mechanically related.
package fieldmap

import (
	"reflect"
	"strings"
	"unicode"
)

// SnakeToCamel converts "invoice_number" to "invoiceNumber".
// Every segment after the first is title-cased; empty segments are dropped.
func SnakeToCamel(s string) string {
	parts := strings.Split(s, "_")
	var b strings.Builder
	b.Grow(len(s))
	first := true
	for _, p := range parts {
		if p == "" {
			continue
		}
		if first {
			b.WriteString(p)
			first = false
			continue
		}
		r := []rune(p)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	return b.String()
}

// CamelToSnake converts "invoiceNumber" to "invoice_number".
func CamelToSnake(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Map is a bidirectional field name table for one entity.
type Map struct {
	toCamel map[string]string
	toSnake map[string]string
	fields  []string // camelCase names in declaration order
}

// New builds a Map from snake -> camel pairs.
func New(pairs map[string]string) *Map {
	m := &Map{
		toCamel: make(map[string]string, len(pairs)),
		toSnake: make(map[string]string, len(pairs)),
	}
	for snake, camel := range pairs {
		m.add(snake, camel)
	}
	return m
}

// FromStruct builds a Map from the `form` (camelCase) and `wire` (snake_case)
// tags of a struct type. Fields without a form tag are ignored; fields without
// a wire tag use the mechanical snake_case of their form name.
func FromStruct[F any]() *Map {
	m := &Map{
		toCamel: make(map[string]string),
		toSnake: make(map[string]string),
	}
	var zero F
	t := reflect.TypeOf(zero)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return m
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		camel := f.Tag.Get("form")
		if camel == "" || camel == "-" {
			continue
		}
		snake := f.Tag.Get("wire")
		if snake == "" {
			snake = CamelToSnake(camel)
		}
		m.add(snake, camel)
	}
	return m
}

func (m *Map) add(snake, camel string) {
	if _, ok := m.toSnake[camel]; !ok {
		m.fields = append(m.fields, camel)
	}
	m.toCamel[snake] = camel
	m.toSnake[camel] = snake
}

// With returns a copy of m with extra snake -> camel pairs.
// Extra pairs take precedence over existing ones.
func (m *Map) With(pairs map[string]string) *Map {
	out := &Map{
		toCamel: make(map[string]string, len(m.toCamel)+len(pairs)),
		toSnake: make(map[string]string, len(m.toSnake)+len(pairs)),
		fields:  append([]string(nil), m.fields...),
	}
	for k, v := range m.toCamel {
		out.toCamel[k] = v
	}
	for k, v := range m.toSnake {
		out.toSnake[k] = v
	}
	for snake, camel := range pairs {
		out.add(snake, camel)
	}
	return out
}

// ToCamel returns the form name for a wire name.
func (m *Map) ToCamel(snake string) string {
	if m != nil {
		if camel, ok := m.toCamel[snake]; ok {
			return camel
		}
	}
	return SnakeToCamel(snake)
}

// ToSnake returns the wire name for a form name.
func (m *Map) ToSnake(camel string) string {
	if m != nil {
		if snake, ok := m.toSnake[camel]; ok {
			return snake
		}
	}
	return CamelToSnake(camel)
}

// Has reports whether camel is a field known to the table.
func (m *Map) Has(camel string) bool {
	if m == nil {
		return false
	}
	_, ok := m.toSnake[camel]
	return ok
}

// Fields returns the camelCase field names in declaration order.
func (m *Map) Fields() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.fields...)
}

// Snake returns every snake_case key in the table.
func (m *Map) Snake() []string {
	if m == nil {
		return nil
	}
	out := make([]string, 0, len(m.fields))
	for _, camel := range m.fields {
		out = append(out, m.toSnake[camel])
	}
	return out
}
