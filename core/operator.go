// Package core provides the building blocks of the golem-admin back-office.
// This file defines the operators used by condition trees and the filter
// operators accepted from listing requests.
package core

import (
	"fmt"
	"strings"
)

// Operator represents a comparison or logical operator used in a Condition.
//
// Operators can be logical (AND, OR, NOT) or value-based (EQ, GT, IN, etc.).
type Operator string

const (
	// Logical operators
	opAnd Operator = "AND"
	opOr  Operator = "OR"
	opNot Operator = "NOT"

	// Value-based operators
	opNil       Operator = "NIL"        // field IS NULL
	opEq        Operator = "EQ"         // field = value
	opIEq       Operator = "IEQ"        // lower(field) = lower(value)
	opGt        Operator = "GT"         // field > value
	opGte       Operator = "GTE"        // field >= value
	opLt        Operator = "LT"         // field < value
	opLte       Operator = "LTE"        // field <= value
	opContains  Operator = "CONTAINS"   // case-insensitive substring, value is a literal
	opIn        Operator = "IN"         // field IN (value list)
	opInSet     Operator = "IN_SET"     // field IN (keys selected by a Subquery)
	opGeoWithin Operator = "GEO_WITHIN" // coordinates within a GeoRadius
)

// Public operator aliases exposed to users of the package.
//
// Example:
//
//	cond := &core.Condition{FieldName: "total", Operator: &core.OpGt, Value: 10.0}
var (
	OpAnd       = opAnd
	OpOr        = opOr
	OpNot       = opNot
	OpNil       = opNil
	OpEq        = opEq
	OpIEq       = opIEq
	OpGt        = opGt
	OpGte       = opGte
	OpLt        = opLt
	OpLte       = opLte
	OpContains  = opContains
	OpIn        = opIn
	OpInSet     = opInSet
	OpGeoWithin = opGeoWithin
)

// FilterOperator is the operator a user picks for one filter row of a listing.
type FilterOperator string

const (
	FilterIs  FilterOperator = "is"
	FilterIn  FilterOperator = "in"
	FilterNin FilterOperator = "nin"
	FilterGt  FilterOperator = "gt"
	FilterGte FilterOperator = "gte"
	FilterLt  FilterOperator = "lt"
	FilterLte FilterOperator = "lte"
)

// FilterOperators lists every filter operator in display order.
var FilterOperators = []FilterOperator{FilterIs, FilterIn, FilterNin, FilterGt, FilterGte, FilterLt, FilterLte}

// ParseFilterOperator parses a raw operator token such as "gte".
func ParseFilterOperator(raw string) (FilterOperator, error) {
	op := FilterOperator(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range FilterOperators {
		if op == known {
			return op, nil
		}
	}
	return "", fmt.Errorf("%w: unknown operator %q", ErrOperatorNotSupported, raw)
}

// comparison maps a range filter operator onto the condition operator.
func (op FilterOperator) comparison() *Operator {
	switch op {
	case FilterGt:
		return &OpGt
	case FilterGte:
		return &OpGte
	case FilterLt:
		return &OpLt
	case FilterLte:
		return &OpLte
	}
	return nil
}
