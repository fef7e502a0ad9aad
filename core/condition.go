package core

// Condition is a node of a backend-neutral predicate tree.
//
// Leaves compare FieldName with Value (or with the key set of Subquery for
// OpInSet). Logical nodes (OpAnd, OpOr, OpNot) hold Children. Drivers render
// the tree through their PredicateBuilder:
//
//	cond := core.Field("total").Gt(18.0).And(core.Field("status").Contains("pend"))
//	// postgres: ("total" > $1 AND CAST("status" AS text) ILIKE $2)
type Condition struct {
	FieldName string
	Operator  *Operator
	Value     any
	Subquery  *Subquery
	Children  []*Condition
}

// Subquery selects the values of Key from the rows of Model matching Condition.
//
// It is the only way a condition reaches into another collection: drivers
// render it as a nested SELECT or resolve it to an id list, never as a join.
type Subquery struct {
	Model     *Model
	Key       string
	Condition *Condition
}

// GeoRadius is the value of a GeoWithin condition.
type GeoRadius struct {
	Longitude float64
	Latitude  float64
	RadiusKm  float64
}

// Field starts a condition on the given field name.
func Field(name string) *Condition {
	return &Condition{FieldName: name}
}

// And returns the conjunction of c and conditions.
func (c *Condition) And(conditions ...*Condition) *Condition {
	return combine(&OpAnd, append([]*Condition{c}, conditions...))
}

// Or returns the disjunction of c and conditions.
func (c *Condition) Or(conditions ...*Condition) *Condition {
	return combine(&OpOr, append([]*Condition{c}, conditions...))
}

// Not returns the negation of c.
func (c *Condition) Not() *Condition {
	return combine(&OpNot, []*Condition{c})
}

func combine(op *Operator, children []*Condition) *Condition {
	return &Condition{Operator: op, Children: children}
}

// set turns c into a leaf comparing its field with v.
func (c *Condition) set(op *Operator, v any) *Condition {
	c.Operator = op
	c.Value = v
	return c
}

// Nil matches missing or NULL values.
func (c *Condition) Nil() *Condition { return c.set(&OpNil, nil) }

// Eq matches values equal to v.
func (c *Condition) Eq(v any) *Condition { return c.set(&OpEq, v) }

// IEq matches strings equal to v, ignoring case.
func (c *Condition) IEq(v string) *Condition { return c.set(&OpIEq, v) }

func (c *Condition) Gt(v any) *Condition  { return c.set(&OpGt, v) }
func (c *Condition) Gte(v any) *Condition { return c.set(&OpGte, v) }
func (c *Condition) Lt(v any) *Condition  { return c.set(&OpLt, v) }
func (c *Condition) Lte(v any) *Condition { return c.set(&OpLte, v) }

// Compare applies one of the range operators OpGt, OpGte, OpLt or OpLte.
func (c *Condition) Compare(op *Operator, v any) *Condition { return c.set(op, v) }

// Contains matches values holding v as a literal substring, ignoring case.
func (c *Condition) Contains(v string) *Condition { return c.set(&OpContains, v) }

// In matches values listed in values. An empty list matches nothing.
func (c *Condition) In(values ...any) *Condition { return c.set(&OpIn, values) }

// InSet sets this condition to check whether the field value is one of the
// keys selected by the subquery.
func (c *Condition) InSet(subquery *Subquery) *Condition {
	c.Operator = &OpInSet
	c.Value = nil
	c.Subquery = subquery
	return c
}

// GeoWithin sets this condition to check that the coordinates stored in the
// field lie within the given radius.
func (c *Condition) GeoWithin(radius GeoRadius) *Condition {
	c.Operator = &OpGeoWithin
	c.Value = radius
	return c
}

// IsLogical reports whether the condition combines children.
func (c *Condition) IsLogical() bool {
	if c == nil || c.Operator == nil {
		return false
	}
	switch *c.Operator {
	case OpAnd, OpOr, OpNot:
		return true
	}
	return false
}
