package core

import (
	"context"
	"fmt"
	"time"
)

// FilterClause is one user-submitted filter row.
type FilterClause struct {
	FieldPath string
	Operator  FilterOperator
	RawValue  string
}

// translation carries the inputs of one registry cell.
type translation struct {
	ctx      context.Context
	target   ResolvedTarget
	operator FilterOperator
	raw      string
	location *time.Location
	geocoder Geocoder
}

// column is the column of the filtered field on the target model.
func (t translation) column() string {
	return t.target.Field.Column
}

// translateFunc builds the condition a clause places on the target model.
// A nil condition with a nil error means the clause contributes no constraint.
type translateFunc func(t translation) (*Condition, error)

type translationKey struct {
	kind     FieldKind
	operator FilterOperator
}

type translator struct {
	build translateFunc
	// negate turns the root membership into non-membership.
	negate bool
}

var translators = newTranslatorRegistry()

func newTranslatorRegistry() map[translationKey]translator {
	registry := make(map[translationKey]translator)
	register := func(kind FieldKind, build translateFunc, operatorList ...FilterOperator) {
		for _, op := range operatorList {
			registry[translationKey{kind: kind, operator: op}] = translator{build: build, negate: op == FilterNin}
		}
	}

	register(KindText, textEquals, FilterIs)
	register(KindText, textContains, FilterIn, FilterNin)

	register(KindLookup, lookupEquals, FilterIs)
	register(KindLookup, lookupDisplayMatch, FilterIn, FilterNin)

	register(KindNumber, numberEquals, FilterIs, FilterIn, FilterNin)
	register(KindNumber, numberCompare, FilterGt, FilterGte, FilterLt, FilterLte)

	register(KindCheckBox, checkBoxEquals, FilterIs, FilterIn, FilterNin)

	register(KindDate, dateEquals, FilterIs, FilterIn, FilterNin)
	register(KindDate, dateCompare, FilterGt, FilterGte, FilterLt, FilterLte)

	register(KindDatetime, datetimeEquals, FilterIs, FilterIn, FilterNin)
	register(KindDatetime, datetimeCompare, FilterGt, FilterGte, FilterLt, FilterLte)

	register(KindGeopicker, geoWithin, FilterIs, FilterIn, FilterNin)
	return registry
}

// Supports reports whether op can filter fields of the given type.
func Supports(fieldType FieldType, op FilterOperator) bool {
	_, ok := translators[translationKey{kind: fieldType.Kind(), operator: op}]
	return ok
}

// OperatorsFor lists the filter operators usable on fields of the given type.
func OperatorsFor(fieldType FieldType) []FilterOperator {
	var operatorList []FilterOperator
	for _, op := range FilterOperators {
		if Supports(fieldType, op) {
			operatorList = append(operatorList, op)
		}
	}
	return operatorList
}

// Translate resolves clause.FieldPath against root and translates the clause.
func (c *Compiler) Translate(ctx context.Context, root *Model, clause FilterClause, location *time.Location) (*Condition, error) {
	target, err := c.Resolve(root, clause.FieldPath)
	if err != nil {
		return nil, err
	}
	return c.TranslateResolved(ctx, target, clause.Operator, clause.RawValue, location)
}

// TranslateResolved translates one operator and raw value on a resolved target.
//
// The result is always a membership condition on the root identifier:
//
//	root.id IN (SELECT join_key FROM target WHERE <cell condition>)
//
// or its negation for nin. It returns (nil, nil) when the raw value cannot be
// parsed for the field's type, and ErrOperatorNotSupported when the registry
// has no cell for the field kind and operator. No backend call is made here.
func (c *Compiler) TranslateResolved(ctx context.Context, target ResolvedTarget, op FilterOperator, raw string, location *time.Location) (*Condition, error) {
	entry, ok := translators[translationKey{kind: target.Field.Type.Kind(), operator: op}]
	if !ok {
		return nil, fmt.Errorf("%w: %q on %s field %s.%s", ErrOperatorNotSupported, op, target.Field.Type, target.Model.Name, target.Field.Name)
	}
	cond, err := entry.build(translation{
		ctx:      ctx,
		target:   target,
		operator: op,
		raw:      raw,
		location: location,
		geocoder: c.geocoder,
	})
	if err != nil || cond == nil {
		return nil, err
	}

	membership := Field(target.Root.IDField).InSet(&Subquery{
		Model:     target.Model,
		Key:       target.JoinKey,
		Condition: cond,
	})
	if entry.negate {
		return membership.Not(), nil
	}
	return membership, nil
}

//region text

func textEquals(t translation) (*Condition, error) {
	return Field(t.column()).IEq(t.raw), nil
}

func textContains(t translation) (*Condition, error) {
	return Field(t.column()).Contains(t.raw), nil
}

//endregion

//region lookup

func lookupEquals(t translation) (*Condition, error) {
	return Field(t.column()).Eq(t.raw), nil
}

// lookupDisplayMatch matches the lookup through the associated model's
// display field and keeps the rows pointing at any matched record.
func lookupDisplayMatch(t translation) (*Condition, error) {
	display := t.target.Display
	if display == nil {
		return nil, fmt.Errorf("%w: lookup %s has no display field", ErrUnknownField, t.target.Field.Name)
	}
	match, err := displayMatch(display, t.raw)
	if err != nil || match == nil {
		return nil, err
	}
	return Field(t.column()).InSet(&Subquery{
		Model:     display.Model,
		Key:       display.Model.IDField,
		Condition: match,
	}), nil
}

// displayMatch builds the condition matching q against a display field:
// substring for text fields, equality for numbers.
func displayMatch(display *DisplayTarget, q string) (*Condition, error) {
	switch display.Field.Type.Kind() {
	case KindText:
		return Field(display.Field.Column).Contains(q), nil
	case KindNumber:
		number, ok := parseNumber(q)
		if !ok {
			return nil, nil
		}
		return Field(display.Field.Column).Eq(number), nil
	}
	return nil, fmt.Errorf("%w: display field %s.%s is %s", ErrOperatorNotSupported, display.Model.Name, display.Field.Name, display.Field.Type)
}

//endregion

//region number

func numberEquals(t translation) (*Condition, error) {
	number, ok := parseNumber(t.raw)
	if !ok {
		return nil, nil
	}
	return Field(t.column()).Eq(number), nil
}

func numberCompare(t translation) (*Condition, error) {
	number, ok := parseNumber(t.raw)
	if !ok {
		return nil, nil
	}
	return Field(t.column()).Compare(t.operator.comparison(), number), nil
}

//endregion

//region check_box

func checkBoxEquals(t translation) (*Condition, error) {
	return Field(t.column()).Eq(parseCheckBox(t.raw)), nil
}

//endregion

//region date and datetime

func dateEquals(t translation) (*Condition, error) {
	date, ok := parseDate(t.raw)
	if !ok {
		return nil, nil
	}
	return Field(t.column()).Eq(date), nil
}

func dateCompare(t translation) (*Condition, error) {
	date, ok := parseDate(t.raw)
	if !ok {
		return nil, nil
	}
	return Field(t.column()).Compare(t.operator.comparison(), date), nil
}

func datetimeEquals(t translation) (*Condition, error) {
	timestamp, ok := parseDatetime(t.raw, t.location)
	if !ok {
		return nil, nil
	}
	return Field(t.column()).Eq(timestamp), nil
}

func datetimeCompare(t translation) (*Condition, error) {
	timestamp, ok := parseDatetime(t.raw, t.location)
	if !ok {
		return nil, nil
	}
	return Field(t.column()).Compare(t.operator.comparison(), timestamp), nil
}

//endregion

//region geopicker

// geoWithin geocodes "<place>:<radius_km>" and matches the target model's
// coordinates within the radius.
func geoWithin(t translation) (*Condition, error) {
	place, radiusKm := parseGeopicker(t.raw)
	if place == "" {
		return nil, fmt.Errorf("%w: %w: empty place", ErrGeocode, ErrInvalidValue)
	}
	if t.geocoder == nil {
		return nil, fmt.Errorf("%w: no geocoder configured", ErrGeocode)
	}
	longitude, latitude, err := t.geocoder.Geocode(t.ctx, place)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrGeocode, place, err)
	}
	return Field(t.target.Model.CoordinatesField).GeoWithin(GeoRadius{
		Longitude: longitude,
		Latitude:  latitude,
		RadiusKm:  radiusKm,
	}), nil
}

//endregion
