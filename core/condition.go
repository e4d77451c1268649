package core

// Condition is one node of a criteria tree.
//
// Leaves name a field and compare it with Value under Operator. A RAW leaf has
// no field; Value holds a backend-native predicate. AND, OR and NOT nodes keep
// their operands in Children.
//
//	adults := core.Field("age").Gte(18).And(core.Field("status").Eq("active"))
type Condition struct {
	FieldName string
	Operator  *Operator
	Value     any
	Children  []*Condition
}

// Field starts a leaf condition on the named field.
func Field(name string) *Condition {
	return &Condition{FieldName: name}
}

// RawCondition wraps a predicate handed to the backend untouched.
func RawCondition(predicate Raw) *Condition {
	return &Condition{Operator: &OpRaw, Value: predicate}
}

func group(op *Operator, children ...*Condition) *Condition {
	return &Condition{Operator: op, Children: children}
}

// And returns c joined with conditions by AND.
func (c *Condition) And(conditions ...*Condition) *Condition {
	return group(&OpAnd, append([]*Condition{c}, conditions...)...)
}

// Or returns c joined with conditions by OR.
func (c *Condition) Or(conditions ...*Condition) *Condition {
	return group(&OpOr, append([]*Condition{c}, conditions...)...)
}

// Not returns the negation of c.
func (c *Condition) Not() *Condition {
	return group(&OpNot, c)
}

// compare turns c into a leaf comparison. It mutates c so builders chain off Field.
func (c *Condition) compare(op *Operator, value any) *Condition {
	c.Operator, c.Value = op, value
	return c
}

// Nil matches a missing or NULL field.
func (c *Condition) Nil() *Condition { return c.compare(&OpNil, nil) }

// Eq matches field == v.
func (c *Condition) Eq(v any) *Condition { return c.compare(&OpEq, v) }

// Gt matches field > v.
func (c *Condition) Gt(v any) *Condition { return c.compare(&OpGt, v) }

// Gte matches field >= v.
func (c *Condition) Gte(v any) *Condition { return c.compare(&OpGte, v) }

// Lt matches field < v.
func (c *Condition) Lt(v any) *Condition { return c.compare(&OpLt, v) }

// Lte matches field <= v.
func (c *Condition) Lte(v any) *Condition { return c.compare(&OpLte, v) }

// Like matches a case-insensitive pattern with % and _ wildcards.
func (c *Condition) Like(pattern any) *Condition { return c.compare(&OpLike, pattern) }

// In matches any of values.
func (c *Condition) In(values ...any) *Condition { return c.compare(&OpIn, values) }

// Leaves flattens nested AND conditions into their leaf predicates, in order.
// OR and NOT subtrees are returned whole.
func (c *Condition) Leaves() []*Condition {
	if c == nil {
		return nil
	}
	if c.Operator != nil && *c.Operator == OpAnd {
		var out []*Condition
		for _, child := range c.Children {
			out = append(out, child.Leaves()...)
		}
		return out
	}
	return []*Condition{c}
}
