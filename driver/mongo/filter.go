package mongo

import (
	"context"
	"fmt"

	"github.com/leandroluk/golem-admin/core"
	"go.mongodb.org/mongo-driver/bson"
)

// Predicate is a MongoDB filter document.
type Predicate struct {
	Filter bson.M
}

// String renders the filter as relaxed extended JSON.
func (p Predicate) String() string {
	out, err := bson.MarshalExtJSON(p.Filter, false, false)
	if err != nil {
		return fmt.Sprintf("%v", p.Filter)
	}
	return string(out)
}

// distinctFunc returns the distinct values of key over the documents of
// model matching filter.
type distinctFunc func(ctx context.Context, model *core.Model, key string, filter bson.M) ([]any, error)

// filterBuilder renders condition trees into filter documents. Membership
// conditions are resolved to value lists through distinct, since a filter
// document cannot embed another collection's query.
type filterBuilder struct {
	distinct distinctFunc
}

func (builder *filterBuilder) build(ctx context.Context, model *core.Model, condition *core.Condition) (bson.M, error) {
	if condition == nil || condition.Operator == nil {
		return bson.M{}, nil
	}
	if condition.IsLogical() {
		return builder.buildLogical(ctx, model, condition)
	}

	fieldName := condition.FieldName
	value := condition.Value
	if holdsObjectIDs(model, fieldName) {
		value = toObjectID(value)
	}

	switch *condition.Operator {
	case core.OpNil:
		return bson.M{fieldName: bson.M{"$eq": nil}}, nil
	case core.OpEq:
		return bson.M{fieldName: value}, nil
	case core.OpIEq:
		return bson.M{fieldName: equalFoldRegex(fmt.Sprintf("%v", condition.Value))}, nil
	case core.OpGt:
		return bson.M{fieldName: bson.M{"$gt": value}}, nil
	case core.OpGte:
		return bson.M{fieldName: bson.M{"$gte": value}}, nil
	case core.OpLt:
		return bson.M{fieldName: bson.M{"$lt": value}}, nil
	case core.OpLte:
		return bson.M{fieldName: bson.M{"$lte": value}}, nil
	case core.OpContains:
		return bson.M{fieldName: containsRegex(fmt.Sprintf("%v", condition.Value))}, nil
	case core.OpIn:
		return bson.M{fieldName: bson.M{"$in": builder.valueList(model, fieldName, condition.Value)}}, nil
	case core.OpInSet:
		keyList, err := builder.resolve(ctx, condition.Subquery)
		if err != nil {
			return nil, err
		}
		return bson.M{fieldName: bson.M{"$in": keyList}}, nil
	case core.OpGeoWithin:
		radius, ok := condition.Value.(core.GeoRadius)
		if !ok {
			return nil, fmt.Errorf("geo condition on %s needs a GeoRadius, got %T", fieldName, condition.Value)
		}
		return bson.M{fieldName: bson.M{"$geoWithin": bson.M{
			"$centerSphere": bson.A{
				bson.A{radius.Longitude, radius.Latitude},
				radius.RadiusKm / core.EarthRadiusKm,
			},
		}}}, nil
	}
	return nil, fmt.Errorf("operator %s is not supported", *condition.Operator)
}

func (builder *filterBuilder) buildLogical(ctx context.Context, model *core.Model, condition *core.Condition) (bson.M, error) {
	if *condition.Operator == core.OpNot && len(condition.Children) == 1 {
		child := condition.Children[0]
		if child.Operator != nil && *child.Operator == core.OpInSet {
			keyList, err := builder.resolve(ctx, child.Subquery)
			if err != nil {
				return nil, err
			}
			return bson.M{child.FieldName: bson.M{"$nin": keyList}}, nil
		}
	}

	childFilterList := make([]bson.M, 0, len(condition.Children))
	for _, child := range condition.Children {
		childFilter, err := builder.build(ctx, model, child)
		if err != nil {
			return nil, err
		}
		childFilterList = append(childFilterList, childFilter)
	}
	switch *condition.Operator {
	case core.OpAnd:
		if len(childFilterList) == 0 {
			return bson.M{}, nil
		}
		return bson.M{"$and": childFilterList}, nil
	case core.OpOr:
		if len(childFilterList) == 0 {
			return bson.M{"$expr": false}, nil
		}
		return bson.M{"$or": childFilterList}, nil
	default:
		if len(childFilterList) == 0 {
			return bson.M{"$expr": false}, nil
		}
		return bson.M{"$nor": childFilterList}, nil
	}
}

// resolve runs a subquery and returns its non-null keys.
func (builder *filterBuilder) resolve(ctx context.Context, subquery *core.Subquery) (bson.A, error) {
	if subquery == nil || subquery.Model == nil {
		return nil, fmt.Errorf("membership condition without subquery")
	}
	filter, err := builder.build(ctx, subquery.Model, subquery.Condition)
	if err != nil {
		return nil, err
	}
	valueList, err := builder.distinct(ctx, subquery.Model, subquery.Key, filter)
	if err != nil {
		return nil, fmt.Errorf("distinct %s.%s: %w", subquery.Model.Collection, subquery.Key, err)
	}
	keyList := make(bson.A, 0, len(valueList))
	for _, value := range valueList {
		if value != nil {
			keyList = append(keyList, value)
		}
	}
	return keyList, nil
}

func (builder *filterBuilder) valueList(model *core.Model, fieldName string, value any) bson.A {
	var array []any
	switch v := value.(type) {
	case []any:
		array = v
	default:
		array = []any{value}
	}
	convert := holdsObjectIDs(model, fieldName)
	out := make(bson.A, 0, len(array))
	for _, item := range array {
		if convert {
			item = toObjectID(item)
		}
		out = append(out, item)
	}
	return out
}
