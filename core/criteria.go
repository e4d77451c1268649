package core

import (
	"fmt"
	"sort"
)

// Raw is an opaque predicate handed to the backend verbatim: an SQL fragment
// for relational backends, an extended JSON filter for document stores.
type Raw string

// E is a single field/value entry of an ordered criteria mapping.
type E struct {
	Key   string
	Value any
}

// D is an ordered criteria mapping. Elements may be Raw or string (raw
// predicates), E (equality, or membership when Value is a collection) or
// *Condition. Predicates are ANDed in element order.
//
// Example:
//
//	m.GetBy(ctx, core.D{core.Raw("a = b"), core.E{"c", []int{1, 2}}, core.E{"d", "v"}})
type D []any

// Criteria normalizes the heterogeneous criteria arguments accepted by the
// *By operations into a single condition.
//
//   - no arguments: nil (no predicate)
//   - one string or Raw: a raw predicate
//   - one *Condition: used as is
//   - one D: every element normalized, ANDed in order
//   - one map[string]any or Record: entries in sorted key order
//   - one E
//   - two arguments (field, value): equality, or membership for collections
func Criteria(args ...any) (*Condition, error) {
	switch len(args) {
	case 0:
		return nil, nil
	case 1:
		return criterion(args[0])
	case 2:
		field, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("%w: field name must be a string, got %T", ErrInvalidCriteria, args[0])
		}
		return fieldPredicate(field, args[1]), nil
	default:
		return nil, fmt.Errorf("%w: expected at most 2 arguments, got %d", ErrInvalidCriteria, len(args))
	}
}

func criterion(arg any) (*Condition, error) {
	switch t := arg.(type) {
	case nil:
		return nil, nil
	case Raw:
		return RawCondition(t), nil
	case string:
		return RawCondition(Raw(t)), nil
	case *Condition:
		return t, nil
	case E:
		return fieldPredicate(t.Key, t.Value), nil
	case D:
		conds := make([]*Condition, 0, len(t))
		for _, element := range t {
			if _, nested := element.(D); nested {
				return nil, fmt.Errorf("%w: nested ordered mapping", ErrInvalidCriteria)
			}
			cond, err := criterion(element)
			if err != nil {
				return nil, err
			}
			conds = append(conds, cond)
		}
		return foldConditionsAnd(conds...), nil
	case Record:
		return mapPredicate(t), nil
	case map[string]any:
		return mapPredicate(t), nil
	default:
		return nil, fmt.Errorf("%w: unsupported criterion %T", ErrInvalidCriteria, arg)
	}
}

// mapPredicate normalizes an unordered mapping. Go maps carry no order, so
// keys are sorted to keep the emitted predicate deterministic.
func mapPredicate(m map[string]any) *Condition {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	conds := make([]*Condition, 0, len(keys))
	for _, k := range keys {
		conds = append(conds, fieldPredicate(k, m[k]))
	}
	return foldConditionsAnd(conds...)
}

func fieldPredicate(field string, value any) *Condition {
	if isCollection(value) {
		return Field(field).In(toSlice(value)...)
	}
	return Field(field).Eq(value)
}
