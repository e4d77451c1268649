package core

// Operator names how a Condition matches.
type Operator string

// Condition operators. They are variables so a Condition can point at them.
var (
	OpAnd Operator = "AND"
	OpOr  Operator = "OR"
	OpNot Operator = "NOT"

	OpNil  Operator = "NIL"
	OpEq   Operator = "EQ"
	OpGt   Operator = "GT"
	OpGte  Operator = "GTE"
	OpLt   Operator = "LT"
	OpLte  Operator = "LTE"
	OpLike Operator = "LIKE" // % and _ wildcards, case-insensitive
	OpIn   Operator = "IN"

	// OpRaw carries a backend-native predicate in Condition.Value.
	OpRaw Operator = "RAW"
)

// IsLogical reports whether the operator combines child conditions.
func (o Operator) IsLogical() bool {
	return o == OpAnd || o == OpOr || o == OpNot
}
