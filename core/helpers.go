// Package core provides the building blocks of the golem-admin back-office.
// This file contains helper functions for reflection, naming and condition folding.
package core

import (
	"reflect"
	"strings"
	"time"
	"unicode"
)

var timeType = reflect.TypeOf(time.Time{})

// inferFieldType picks the admin type for a Go struct field without an
// explicit `admin` type.
func inferFieldType(t reflect.Type) FieldType {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == timeType {
		return TypeDatetime
	}
	switch t.Kind() {
	case reflect.Bool:
		return TypeCheckBox
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return TypeNumber
	}
	return TypeText
}

// toSnake converts a Go identifier such as CustomerID into customer_id.
func toSnake(name string) string {
	runeList := []rune(name)
	var builder strings.Builder
	for i, r := range runeList {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runeList[i-1]) ||
				(i+1 < len(runeList) && unicode.IsLower(runeList[i+1]) && unicode.IsUpper(runeList[i-1]))) {
				builder.WriteByte('_')
			}
			builder.WriteRune(unicode.ToLower(r))
			continue
		}
		builder.WriteRune(r)
	}
	return builder.String()
}

// foldConditionsAnd combines multiple conditions into a single condition
// using logical AND. Nil conditions are skipped. If no condition remains it
// returns nil; a single condition is returned as is.
func foldConditionsAnd(conds ...*Condition) *Condition {
	return foldConditions(&OpAnd, conds)
}

// foldConditionsOr is the OR counterpart of foldConditionsAnd.
func foldConditionsOr(conds ...*Condition) *Condition {
	return foldConditions(&OpOr, conds)
}

func foldConditions(op *Operator, conds []*Condition) *Condition {
	childList := make([]*Condition, 0, len(conds))
	for _, cond := range conds {
		if cond != nil {
			childList = append(childList, cond)
		}
	}
	switch len(childList) {
	case 0:
		return nil
	case 1:
		return childList[0]
	default:
		return &Condition{Operator: op, Children: childList}
	}
}
