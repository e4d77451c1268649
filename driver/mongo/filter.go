package mongo

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/leandroluk/recordkit/core"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// buildFilter translates a condition tree into a query document. A nil
// condition matches every document.
func buildFilter(condition *core.Condition) (bson.M, error) {
	if condition == nil || condition.Operator == nil {
		return bson.M{}, nil
	}

	if condition.Operator.IsLogical() {
		if len(condition.Children) == 0 {
			if *condition.Operator == core.OpNot {
				return nil, fmt.Errorf("%w: NOT without operand", core.ErrInvalidCriteria)
			}
			return bson.M{}, nil
		}
		children := make([]bson.M, 0, len(condition.Children))
		for _, child := range condition.Children {
			filter, err := buildFilter(child)
			if err != nil {
				return nil, err
			}
			children = append(children, filter)
		}
		switch *condition.Operator {
		case core.OpOr:
			return bson.M{"$or": children}, nil
		case core.OpNot:
			return bson.M{"$nor": children[:1]}, nil
		default:
			return bson.M{"$and": children}, nil
		}
	}
	if *condition.Operator == core.OpRaw {
		var filter bson.M
		if err := bson.UnmarshalExtJSON([]byte(fmt.Sprint(condition.Value)), false, &filter); err != nil {
			return nil, fmt.Errorf("%w: raw filter is not extended JSON: %v", core.ErrInvalidCriteria, err)
		}
		return filter, nil
	}

	field := condition.FieldName
	switch *condition.Operator {
	case core.OpNil:
		return bson.M{field: bson.M{"$eq": nil}}, nil
	case core.OpEq:
		return bson.M{field: condition.Value}, nil
	case core.OpGt:
		return bson.M{field: bson.M{"$gt": condition.Value}}, nil
	case core.OpGte:
		return bson.M{field: bson.M{"$gte": condition.Value}}, nil
	case core.OpLt:
		return bson.M{field: bson.M{"$lt": condition.Value}}, nil
	case core.OpLte:
		return bson.M{field: bson.M{"$lte": condition.Value}}, nil
	case core.OpLike:
		pattern := likePattern(fmt.Sprint(condition.Value))
		return bson.M{field: primitive.Regex{Pattern: pattern, Options: "i"}}, nil
	case core.OpIn:
		values, ok := condition.Value.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: IN on %q expects a list, got %T", core.ErrInvalidCriteria, field, condition.Value)
		}
		return bson.M{field: bson.M{"$in": values}}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported operator %q", core.ErrInvalidCriteria, *condition.Operator)
	}
}

// likePattern turns an SQL LIKE pattern into an anchored regular expression:
// % matches any run, _ matches one character, everything else is literal.
func likePattern(input string) string {
	var b strings.Builder
	b.WriteByte('^')
	for _, r := range input {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteByte('.')
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteByte('$')
	return b.String()
}

// projection includes the requested fields. The primary key is excluded
// unless asked for.
func projection(fields []string) bson.D {
	if len(fields) == 0 {
		return nil
	}
	doc := make(bson.D, 0, len(fields)+1)
	withID := false
	for _, field := range fields {
		if field == core.DocumentPrimaryKey {
			withID = true
		}
		doc = append(doc, bson.E{Key: field, Value: 1})
	}
	if !withID {
		doc = append(doc, bson.E{Key: core.DocumentPrimaryKey, Value: 0})
	}
	return doc
}

// sortDocument renders sort rules in order.
func sortDocument(rules []core.Sort) bson.D {
	if len(rules) == 0 {
		return nil
	}
	doc := make(bson.D, 0, len(rules))
	for _, rule := range rules {
		direction := 1
		if rule.Order < 0 {
			direction = -1
		}
		doc = append(doc, bson.E{Key: rule.FieldName, Value: direction})
	}
	return doc
}
