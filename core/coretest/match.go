package coretest

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/leandroluk/golem-admin/core"
)

// matcher evaluates condition trees against the documents of a Driver.
type matcher struct {
	driver *Driver
}

func (m matcher) match(document core.Document, condition *core.Condition) (bool, error) {
	if condition == nil || condition.Operator == nil {
		return true, nil
	}
	switch *condition.Operator {
	case core.OpAnd:
		for _, child := range condition.Children {
			ok, err := m.match(document, child)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case core.OpOr:
		for _, child := range condition.Children {
			ok, err := m.match(document, child)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case core.OpNot:
		for _, child := range condition.Children {
			ok, err := m.match(document, child)
			if err != nil {
				return false, err
			}
			if !ok {
				return true, nil
			}
		}
		return len(condition.Children) == 0, nil
	}

	value, present := document[condition.FieldName]
	switch *condition.Operator {
	case core.OpNil:
		return !present || value == nil, nil
	case core.OpEq:
		return present && equal(value, condition.Value), nil
	case core.OpIEq:
		return present && value != nil && strings.EqualFold(fmt.Sprint(value), fmt.Sprint(condition.Value)), nil
	case core.OpContains:
		return present && value != nil &&
			strings.Contains(strings.ToLower(fmt.Sprint(value)), strings.ToLower(fmt.Sprint(condition.Value))), nil
	case core.OpGt, core.OpGte, core.OpLt, core.OpLte:
		if !present || value == nil {
			return false, nil
		}
		c, ok := compare(value, condition.Value)
		if !ok {
			return false, nil
		}
		switch *condition.Operator {
		case core.OpGt:
			return c > 0, nil
		case core.OpGte:
			return c >= 0, nil
		case core.OpLt:
			return c < 0, nil
		default:
			return c <= 0, nil
		}
	case core.OpIn:
		valueList, _ := condition.Value.([]any)
		return present && containsValue(valueList, value), nil
	case core.OpInSet:
		keyList, err := m.keys(condition.Subquery)
		if err != nil {
			return false, err
		}
		return present && containsValue(keyList, value), nil
	case core.OpGeoWithin:
		radius, ok := condition.Value.(core.GeoRadius)
		if !ok {
			return false, fmt.Errorf("geo condition on %s needs a GeoRadius, got %T", condition.FieldName, condition.Value)
		}
		longitude, latitude, ok := coordinates(value)
		if !ok {
			return false, nil
		}
		return distanceKm(longitude, latitude, radius.Longitude, radius.Latitude) <= radius.RadiusKm, nil
	}
	return false, fmt.Errorf("operator %s is not supported", *condition.Operator)
}

// keys returns the non-nil key values of the subquery's matching documents.
func (m matcher) keys(subquery *core.Subquery) ([]any, error) {
	if subquery == nil || subquery.Model == nil {
		return nil, fmt.Errorf("membership condition without subquery")
	}
	var keyList []any
	for _, document := range m.driver.collections[collectionKey(subquery.Model)] {
		ok, err := m.match(document, subquery.Condition)
		if err != nil {
			return nil, err
		}
		if ok && document[subquery.Key] != nil {
			keyList = append(keyList, document[subquery.Key])
		}
	}
	return keyList, nil
}

func containsValue(valueList []any, value any) bool {
	for _, candidate := range valueList {
		if equal(candidate, value) {
			return true
		}
	}
	return false
}

func equal(a, b any) bool {
	if c, ok := compare(a, b); ok {
		return c == 0
	}
	return reflect.DeepEqual(a, b)
}

// compare orders numbers, times, strings and booleans. The second result is
// false when the values are not comparable.
func compare(a, b any) (int, bool) {
	if x, ok := toFloat(a); ok {
		if y, ok := toFloat(b); ok {
			switch {
			case x < y:
				return -1, true
			case x > y:
				return 1, true
			}
			return 0, true
		}
		return 0, false
	}
	switch x := a.(type) {
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y), true
		}
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), true
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0, true
			case !x:
				return -1, true
			}
			return 1, true
		}
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// coordinates reads a [longitude, latitude] pair.
func coordinates(value any) (longitude, latitude float64, ok bool) {
	switch point := value.(type) {
	case []float64:
		if len(point) == 2 {
			return point[0], point[1], true
		}
	case [2]float64:
		return point[0], point[1], true
	case []any:
		if len(point) == 2 {
			lng, okLng := toFloat(point[0])
			lat, okLat := toFloat(point[1])
			return lng, lat, okLng && okLat
		}
	}
	return 0, 0, false
}

func distanceKm(lng1, lat1, lng2, lat2 float64) float64 {
	toRadians := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)
	h := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Pow(math.Sin(dLng/2), 2)
	return 2 * core.EarthRadiusKm * math.Asin(math.Sqrt(h))
}
