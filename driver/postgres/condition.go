package postgres

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/leandroluk/recordkit/core"
)

// builder renders every statement with PostgreSQL $n placeholders.
var builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// quote sanitizes a single identifier ("name" -> "\"name\"").
func quote(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// quoteAll sanitizes a list of column names.
func quoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = quote(name)
	}
	return out
}

// table renders the qualified relation name of a source.
func table(source *core.Source) string {
	if source.Database != "" {
		return pgx.Identifier{source.Database, source.Name}.Sanitize()
	}
	return quote(source.Name)
}

// buildCondition translates a condition tree into a squirrel predicate.
// A nil condition yields a nil predicate, meaning no WHERE clause.
func buildCondition(condition *core.Condition) (sq.Sqlizer, error) {
	if condition == nil || condition.Operator == nil {
		return nil, nil
	}

	switch *condition.Operator {
	case core.OpAnd, core.OpOr:
		parts := make([]sq.Sqlizer, 0, len(condition.Children))
		for _, child := range condition.Children {
			part, err := buildCondition(child)
			if err != nil {
				return nil, err
			}
			if part != nil {
				parts = append(parts, part)
			}
		}
		if *condition.Operator == core.OpOr {
			return sq.Or(parts), nil
		}
		return sq.And(parts), nil
	case core.OpNot:
		if len(condition.Children) == 0 {
			return nil, fmt.Errorf("%w: NOT without operand", core.ErrInvalidCriteria)
		}
		inner, err := buildCondition(condition.Children[0])
		if err != nil || inner == nil {
			return nil, err
		}
		query, args, err := inner.ToSql()
		if err != nil {
			return nil, err
		}
		return sq.Expr("NOT ("+query+")", args...), nil
	case core.OpRaw:
		// ?? survives placeholder rewriting as a literal ?, e.g. the jsonb operator.
		return sq.Expr(strings.ReplaceAll(fmt.Sprint(condition.Value), "?", "??")), nil
	}

	column := quote(condition.FieldName)
	switch *condition.Operator {
	case core.OpNil:
		return sq.Eq{column: nil}, nil
	case core.OpEq:
		return sq.Eq{column: condition.Value}, nil
	case core.OpIn:
		values, ok := condition.Value.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: IN on %q expects a list, got %T", core.ErrInvalidCriteria, condition.FieldName, condition.Value)
		}
		return sq.Eq{column: values}, nil
	case core.OpGt:
		return sq.Gt{column: condition.Value}, nil
	case core.OpGte:
		return sq.GtOrEq{column: condition.Value}, nil
	case core.OpLt:
		return sq.Lt{column: condition.Value}, nil
	case core.OpLte:
		return sq.LtOrEq{column: condition.Value}, nil
	case core.OpLike:
		return sq.ILike{column: condition.Value}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported operator %q", core.ErrInvalidCriteria, *condition.Operator)
	}
}
