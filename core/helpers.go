package core

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"
)

// foldConditionsAnd combines multiple conditions into a single condition
// using logical AND. Nil entries are skipped. If zero conditions remain it
// returns nil; if one remains it returns that condition.
func foldConditionsAnd(conds ...*Condition) *Condition {
	kept := make([]*Condition, 0, len(conds))
	for _, c := range conds {
		if c != nil {
			kept = append(kept, c)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return &Condition{Operator: &OpAnd, Children: kept}
	}
}

// isCollection reports whether v is a slice or array that should become a
// membership predicate. Byte slices are scalar values.
func isCollection(v any) bool {
	if v == nil {
		return false
	}
	if _, ok := v.([]byte); ok {
		return false
	}
	kind := reflect.TypeOf(v).Kind()
	return kind == reflect.Slice || kind == reflect.Array
}

// toSlice spreads a slice or array into []any. Scalars become a one-element list.
func toSlice(v any) []any {
	if list, ok := v.([]any); ok {
		return list
	}
	if !isCollection(v) {
		return []any{v}
	}
	rv := reflect.ValueOf(v)
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

// keyOf normalizes identifier values so that int32(1), int64(1) and "1"
// land on the same map key during relationship stitching.
func keyOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// snakeCase converts a Go identifier to snake_case ("BookModel" -> "book_model").
func snakeCase(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// typeName returns the bare name of T, stripping pointers and generic arguments.
func typeName[T any]() string {
	rt := reflect.TypeOf((*T)(nil)).Elem()
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	name := rt.Name()
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	return name
}
