// Package core provides the building blocks of the golem-admin back-office.
// This file defines the fluent query builder used to assemble listing scopes.
package core

// Query represents a fluent query builder over one model.
//
// It allows chaining of filtering, ordering and pagination options.
// A Query is a value-like scope: every method returns a new Query and leaves
// the receiver untouched, so a base scope can be narrowed in several ways.
//
// Example:
//
//	scope := core.NewQuery(orderModel).
//		Filter(core.Field("status").Contains("pend")).
//		OrderBy("created_at", core.Desc).
//		Limit(25)
type Query struct {
	model *Model
	where Where
}

// NewQuery creates a new, unfiltered Query over model.
func NewQuery(model *Model) *Query {
	return &Query{model: model}
}

// Model returns the model the query lists.
func (q *Query) Model() *Model {
	return q.model
}

func (q *Query) clone() *Query {
	out := &Query{model: q.model, where: q.where}
	out.where.Sort = append([]Sort(nil), q.where.Sort...)
	return out
}

// Where starts a condition on a catalog field, mapped to its column.
//
// Example:
//
//	q.Where("total").Gt(10.0)
func (q *Query) Where(fieldName string) *Condition {
	return Field(q.model.Column(fieldName))
}

// Filter narrows the query with the conjunction of the given conditions.
// Nil conditions are ignored.
func (q *Query) Filter(conds ...*Condition) *Query {
	out := q.clone()
	out.where.Condition = foldConditionsAnd(append([]*Condition{q.where.Condition}, conds...)...)
	return out
}

// FilterAny narrows the query with the disjunction of the given conditions.
// Nil conditions are ignored; when none remain the query is returned unchanged.
func (q *Query) FilterAny(conds ...*Condition) *Query {
	anyCond := foldConditionsOr(conds...)
	if anyCond == nil {
		return q
	}
	return q.Filter(anyCond)
}

// Condition returns the accumulated filter condition (nil when unfiltered).
func (q *Query) Condition() *Condition {
	return q.where.Condition
}

// OrderBy adds an ordering rule on a catalog field.
func (q *Query) OrderBy(fieldName string, direction Direction) *Query {
	out := q.clone()
	out.where.Sort = append(out.where.Sort, Sort{FieldName: q.model.Column(fieldName), Order: direction.Order()})
	return out
}

// Limit sets the maximum number of results to return.
func (q *Query) Limit(limit int) *Query {
	out := q.clone()
	out.where.Limit = limit
	return out
}

// Offset sets the number of rows to skip before starting to return results.
func (q *Query) Offset(offset int) *Query {
	out := q.clone()
	out.where.Offset = offset
	return out
}

// Options returns the driver options of the query.
func (q *Query) Options() *Where {
	where := q.where
	where.Sort = append([]Sort(nil), q.where.Sort...)
	return &where
}
