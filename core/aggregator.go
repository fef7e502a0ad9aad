package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Mode selects how explicit filter clauses combine.
type Mode string

const (
	// ModeUnset applies every clause on its own, which narrows like ModeAll.
	ModeUnset Mode = ""
	// ModeAll requires every clause to hold.
	ModeAll Mode = "all"
	// ModeAny requires at least one clause to hold.
	ModeAny Mode = "any"
)

// ParseMode parses "all", "any" or the empty string.
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeUnset:
		return ModeUnset, nil
	case ModeAll:
		return ModeAll, nil
	case ModeAny:
		return ModeAny, nil
	}
	return "", fmt.Errorf("%w: aggregation mode %q", ErrInvalidValue, raw)
}

// ListRequest is everything a listing needs to build its result set.
type ListRequest struct {
	Model     string
	ID        string         // restricts the listing to one identifier
	Query     string         // free-text search
	Clauses   []FilterClause // explicit filter rows
	Mode      Mode
	Order     string    // field name to sort by
	Direction Direction // sort direction
	Location  *time.Location
}

// Search builds the free-text condition for q: an OR over every persisted
// text, number and lookup field of root. It returns nil when no field yields
// a branch, which leaves the scope unmodified.
func (c *Compiler) Search(root *Model, q string) *Condition {
	if q == "" {
		return nil
	}
	number, isNumber := parseNumber(q)

	var branchList []*Condition
	for _, field := range root.Fields {
		if !field.Persisted() {
			continue
		}
		switch field.Type.Kind() {
		case KindText:
			branchList = append(branchList, Field(field.Column).Contains(q))
		case KindNumber:
			if isNumber {
				branchList = append(branchList, Field(field.Column).Eq(number))
			}
		case KindLookup:
			display, err := c.displayTarget(field)
			if err != nil {
				continue
			}
			match, err := displayMatch(display, q)
			if err != nil || match == nil {
				continue
			}
			branchList = append(branchList, Field(field.Column).InSet(&Subquery{
				Model:     display.Model,
				Key:       display.Model.IDField,
				Condition: match,
			}))
		}
	}
	return foldConditionsOr(branchList...)
}

// Aggregate narrows base with the search condition and the clause
// conditions. Nil conditions contribute nothing. In ModeAny the clauses form
// one disjunction, which is only applied when at least one clause is concrete.
func (c *Compiler) Aggregate(base *Query, search *Condition, clauses []*Condition, mode Mode) *Query {
	scope := base.Filter(search)
	if mode == ModeAny {
		return scope.FilterAny(clauses...)
	}
	return scope.Filter(clauses...)
}

// List compiles a listing request into a lazily evaluated result set.
//
// Any clause failing to resolve or translate aborts the whole listing;
// clauses with unparsable values are dropped.
func (c *Compiler) List(ctx context.Context, request ListRequest) (*ResultSet, error) {
	root, err := c.catalog.Model(request.Model)
	if err != nil {
		return nil, err
	}

	base := NewQuery(root)
	if request.ID != "" {
		base = base.Filter(base.Where(root.IDField).Eq(request.ID))
	}

	conditionList := make([]*Condition, 0, len(request.Clauses))
	for index, clause := range request.Clauses {
		cond, err := c.Translate(ctx, root, clause, request.Location)
		if err != nil {
			c.observe(ClauseRejected)
			return nil, fmt.Errorf("filter %d (%s %s): %w", index, clause.FieldPath, clause.Operator, err)
		}
		if cond == nil {
			c.observe(ClauseDropped)
			c.logger.DebugContext(ctx, "filter dropped",
				slog.String("model", root.Name),
				slog.String("field", clause.FieldPath),
				slog.String("operator", string(clause.Operator)),
				slog.String("value", clause.RawValue))
			continue
		}
		c.observe(ClauseApplied)
		conditionList = append(conditionList, cond)
	}

	scope := c.Aggregate(base, c.Search(root, request.Query), conditionList, request.Mode)
	scope, err = c.sort(scope, request.Order, request.Direction)
	if err != nil {
		return nil, err
	}
	return newResultSet(c.driver, c.pipeline, scope), nil
}

// sort applies the listing order. The default is the model's default sort,
// else created-at descending. An explicit field and an explicit direction
// each replace their half of the default; without any direction the order is
// ascending. Sorted scopes get the identifier as tie-break so repeated
// listings keep their order.
func (c *Compiler) sort(scope *Query, order string, direction Direction) (*Query, error) {
	root := scope.Model()

	var field string
	var dir Direction
	switch {
	case root.DefaultSort != nil:
		field, dir = root.DefaultSort.Field, root.DefaultSort.Direction
	case root.CreatedAtField != "" && root.HasPersistedField(root.CreatedAtField):
		field, dir = root.CreatedAtField, Desc
	}
	if order != "" {
		if order != root.IDField && !root.HasPersistedField(order) {
			return nil, fmt.Errorf("%w: cannot sort %s by %s", ErrUnknownField, root.Name, order)
		}
		field = order
	}
	if direction != "" {
		dir = direction
	}
	if dir == "" {
		dir = Asc
	}
	if field == "" {
		return scope, nil
	}

	scope = scope.OrderBy(field, dir)
	if root.Column(field) != root.IDField {
		scope = scope.OrderBy(root.IDField, Asc)
	}
	return scope, nil
}
