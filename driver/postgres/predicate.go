package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/leandroluk/golem-admin/core"
)

// Predicate is a parameterized SQL condition. Placeholders are numbered from $1.
type Predicate struct {
	SQL  string
	Args []any
}

func (p Predicate) String() string {
	return p.SQL
}

// Backend reports the relational expression form.
func (driver *PostgresDriver) Backend() core.Backend {
	return core.BackendRelational
}

// BuildPredicate renders condition as a WHERE clause body. Subqueries are
// rendered inline, so the predicate never touches the database.
func (driver *PostgresDriver) BuildPredicate(_ context.Context, model *core.Model, condition *core.Condition) (core.Predicate, error) {
	builder := &conditionBuilder{}
	sql, err := builder.build(condition)
	if err != nil {
		return nil, fmt.Errorf("postgres: %s: %w", model.Name, err)
	}
	return Predicate{SQL: sql, Args: builder.argList}, nil
}

// conditionBuilder accumulates bound arguments while rendering a condition
// tree, so placeholders are numbered in a single pass.
type conditionBuilder struct {
	argList []any
}

func (builder *conditionBuilder) bind(value any) string {
	builder.argList = append(builder.argList, value)
	return fmt.Sprintf("$%d", len(builder.argList))
}

func (builder *conditionBuilder) build(condition *core.Condition) (string, error) {
	if condition == nil || condition.Operator == nil {
		return "1=1", nil
	}
	if condition.IsLogical() {
		partList := make([]string, 0, len(condition.Children))
		for _, child := range condition.Children {
			part, err := builder.build(child)
			if err != nil {
				return "", err
			}
			partList = append(partList, part)
		}
		switch *condition.Operator {
		case core.OpAnd:
			if len(partList) == 0 {
				return "1=1", nil
			}
			return "(" + strings.Join(partList, " AND ") + ")", nil
		case core.OpOr:
			if len(partList) == 0 {
				return "1=0", nil
			}
			return "(" + strings.Join(partList, " OR ") + ")", nil
		default:
			if len(partList) == 0 {
				return "1=0", nil
			}
			return "NOT (" + strings.Join(partList, " AND ") + ")", nil
		}
	}

	column := quoteIdentifier(condition.FieldName)
	switch *condition.Operator {
	case core.OpNil:
		return column + " IS NULL", nil
	case core.OpEq:
		return fmt.Sprintf("%s = %s", column, builder.bind(condition.Value)), nil
	case core.OpIEq:
		return fmt.Sprintf("lower(CAST(%s AS text)) = lower(%s)", column, builder.bind(condition.Value)), nil
	case core.OpGt:
		return fmt.Sprintf("%s > %s", column, builder.bind(condition.Value)), nil
	case core.OpGte:
		return fmt.Sprintf("%s >= %s", column, builder.bind(condition.Value)), nil
	case core.OpLt:
		return fmt.Sprintf("%s < %s", column, builder.bind(condition.Value)), nil
	case core.OpLte:
		return fmt.Sprintf("%s <= %s", column, builder.bind(condition.Value)), nil
	case core.OpContains:
		pattern := "%" + escapeLike(fmt.Sprintf("%v", condition.Value)) + "%"
		return fmt.Sprintf("CAST(%s AS text) ILIKE %s", column, builder.bind(pattern)), nil
	case core.OpIn:
		valueList, _ := condition.Value.([]any)
		if len(valueList) == 0 {
			return "1=0", nil
		}
		placeholderList := make([]string, 0, len(valueList))
		for _, v := range valueList {
			placeholderList = append(placeholderList, builder.bind(v))
		}
		return fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholderList, ", ")), nil
	case core.OpInSet:
		subquery, err := builder.buildSubquery(condition.Subquery)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s IN (%s)", column, subquery), nil
	case core.OpGeoWithin:
		radius, ok := condition.Value.(core.GeoRadius)
		if !ok {
			return "", fmt.Errorf("geo condition on %s needs a GeoRadius, got %T", condition.FieldName, condition.Value)
		}
		return builder.buildDistance(column, radius), nil
	}
	return "", fmt.Errorf("operator %s is not supported", *condition.Operator)
}

// buildSubquery selects the non-null keys of the matching rows. NULL keys are
// left out so that NOT (x IN (...)) keeps its set meaning.
func (builder *conditionBuilder) buildSubquery(subquery *core.Subquery) (string, error) {
	if subquery == nil || subquery.Model == nil {
		return "", fmt.Errorf("membership condition without subquery")
	}
	key := quoteIdentifier(subquery.Key)
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s IS NOT NULL", key, formatTable(subquery.Model), key)
	if subquery.Condition != nil {
		where, err := builder.build(subquery.Condition)
		if err != nil {
			return "", err
		}
		sql += " AND " + where
	}
	return sql, nil
}

// buildDistance renders a haversine great-circle distance check against a
// point column holding (longitude, latitude).
func (builder *conditionBuilder) buildDistance(column string, radius core.GeoRadius) string {
	latitude := builder.bind(radius.Latitude)
	longitude := builder.bind(radius.Longitude)
	return fmt.Sprintf(
		"(2 * %v * asin(sqrt(power(sin(radians((%s - %s[1]) / 2)), 2) + "+
			"cos(radians(%s[1])) * cos(radians(%s)) * power(sin(radians((%s - %s[0]) / 2)), 2)))) <= %s",
		core.EarthRadiusKm,
		latitude, column,
		column, latitude,
		longitude, column,
		builder.bind(radius.RadiusKm),
	)
}

// escapeLike quotes the LIKE wildcards of a literal, using the default
// backslash escape character.
func escapeLike(value string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(value)
}

func quoteIdentifier(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func formatTable(model *core.Model) string {
	if model.Database != "" {
		return pgx.Identifier{model.Database, model.Collection}.Sanitize()
	}
	return pgx.Identifier{model.Collection}.Sanitize()
}
